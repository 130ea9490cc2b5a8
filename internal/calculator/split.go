package calculator

import (
	"github.com/mmynk/onecount/internal/models"
)

// MemberShare is one member's calculated share of a bill.
type MemberShare struct {
	Member models.Member

	// Subtotal is the sum of this member's equal portions of assigned items.
	Subtotal float64

	// TipShare is the tip scaled by Subtotal / bill subtotal.
	TipShare float64

	// Total is Subtotal + TipShare.
	Total float64
}

// Breakdown is the result of ComputeShare for one bill.
type Breakdown struct {
	// Subtotal is the sum of all item prices, assigned or not.
	Subtotal float64

	// Tip is the tip the breakdown was computed with.
	Tip float64

	// FinalTotal is Subtotal + Tip.
	FinalTotal float64

	// Members holds one entry per input member, in input order.
	Members []MemberShare
}

// AssignedTotal returns the sum of all member totals.
func (b Breakdown) AssignedTotal() float64 {
	var sum float64
	for _, m := range b.Members {
		sum += m.Total
	}
	return sum
}

// Unattributed returns the part of FinalTotal that belongs to no member:
// unassigned items plus the tip they would have carried.
func (b Breakdown) Unattributed() float64 {
	return b.FinalTotal - b.AssignedTotal()
}

// Share returns the share of the member with the given id.
func (b Breakdown) Share(memberID string) (MemberShare, bool) {
	for _, m := range b.Members {
		if m.Member.ID == memberID {
			return m, true
		}
	}
	return MemberShare{}, false
}

// ComputeShare computes how much each member owes, including a proportional
// share of the tip.
//
// Algorithm:
//   - subtotal = sum of all item prices
//   - each item is split equally among its assignees; items without assignees
//     contribute to nobody
//   - tip_share = tip × (member_subtotal / subtotal), or 0 when subtotal is 0
//   - total = member_subtotal + tip_share
//
// Ids in an assignment list that are not in members are ignored, but still count
// toward the item's split, so their portion stays unattributed. The function never
// fails: the sum of member totals is at most subtotal + tip, with equality iff every
// positively priced item has at least one assignee.
func ComputeShare(items []models.Item, members []models.Member, tip float64) Breakdown {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price
	}

	raw := make(map[string]float64, len(members))
	for _, m := range members {
		raw[m.ID] = 0
	}

	for _, item := range items {
		if len(item.AssignedMembers) == 0 {
			continue
		}

		perPerson := item.Price / float64(len(item.AssignedMembers))
		for _, id := range item.AssignedMembers {
			if _, known := raw[id]; known {
				raw[id] += perPerson
			}
		}
	}

	shares := make([]MemberShare, len(members))
	for i, m := range members {
		share := raw[m.ID]
		var proportion float64
		if subtotal > 0 {
			proportion = share / subtotal
		}
		tipShare := tip * proportion
		shares[i] = MemberShare{
			Member:   m,
			Subtotal: share,
			TipShare: tipShare,
			Total:    share + tipShare,
		}
	}

	return Breakdown{
		Subtotal:   subtotal,
		Tip:        tip,
		FinalTotal: subtotal + tip,
		Members:    shares,
	}
}
