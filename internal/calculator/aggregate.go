package calculator

import (
	"sort"

	"github.com/mmynk/onecount/internal/models"
)

// PersonTotal is the amount one person owes across all folders.
type PersonTotal struct {
	// Name is the aggregation key.
	Name string

	// Color is the color of the most recently processed member with this name.
	Color string

	// Amount is the accumulated total share across folders.
	Amount float64
}

// Summary is the cross-folder aggregate.
type Summary struct {
	// GrandTotal is the sum of every folder's precomputed total.
	GrandTotal float64

	// FolderCount is the number of folders aggregated.
	FolderCount int

	// People is sorted by Amount descending. Ties keep the order in which
	// each name was first encountered.
	People []PersonTotal
}

// Aggregate sums folders into a grand total and per-person totals.
//
// Each folder's member shares are recomputed with ComputeShare over the folder's
// frozen items, members and tip. Shares are then accumulated by member name, not
// id: every folder mints its own member ids for the same person. Only strictly
// positive shares are recorded, so a person who owes nothing never appears.
func Aggregate(folders []models.Folder) Summary {
	summary := Summary{FolderCount: len(folders)}

	index := make(map[string]int)
	var people []PersonTotal

	for _, folder := range folders {
		summary.GrandTotal += folder.Total

		breakdown := ComputeShare(folder.Items, folder.Members, folder.Tip)
		for _, share := range breakdown.Members {
			if share.Total <= 0 {
				continue
			}

			name := share.Member.Name
			i, seen := index[name]
			if !seen {
				i = len(people)
				index[name] = i
				people = append(people, PersonTotal{Name: name})
			}
			people[i].Amount += share.Total
			people[i].Color = share.Member.Color
		}
	}

	sort.SliceStable(people, func(a, b int) bool {
		return people[a].Amount > people[b].Amount
	})
	summary.People = people

	return summary
}
