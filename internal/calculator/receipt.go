package calculator

import (
	"math"
	"strings"

	"github.com/mmynk/onecount/internal/models"
)

// PfandItemName is the name of the merged deposit line.
const PfandItemName = "Pfand (Summarized)"

// IsPfand reports whether an item name is a German/Austrian bottle deposit line.
func IsPfand(name string) bool {
	return strings.Contains(strings.ToLower(name), "pfand")
}

// BuildReceiptItems turns parsed receipt lines into bill items.
//
// Every line whose name contains "pfand" (any case) is merged into one item named
// PfandItemName, priced at the sum rounded to cents and appended after the other
// items. Other lines become one item each, at source precision. All new items are
// assigned to every id in memberIDs. newID mints item ids.
func BuildReceiptItems(parsed []models.ParsedItem, memberIDs []string, newID func() string) []models.Item {
	items := make([]models.Item, 0, len(parsed)+1)

	var pfandTotal float64
	pfandCount := 0
	for _, p := range parsed {
		if IsPfand(p.Name) {
			// deposit returns may be negative; only the merged sum is clamped
			if !math.IsNaN(p.Price) && !math.IsInf(p.Price, 0) {
				pfandTotal += p.Price
			}
			pfandCount++
			continue
		}
		items = append(items, models.Item{
			ID:              newID(),
			Name:            p.Name,
			Price:           SanitizeAmount(p.Price),
			AssignedMembers: append([]string{}, memberIDs...),
		})
	}

	if pfandCount > 0 {
		items = append(items, models.Item{
			ID:              newID(),
			Name:            PfandItemName,
			Price:           SanitizeAmount(Round2(pfandTotal)),
			AssignedMembers: append([]string{}, memberIDs...),
		})
	}

	return items
}
