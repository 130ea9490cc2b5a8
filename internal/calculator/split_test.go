package calculator

import (
	"math"
	"testing"

	"github.com/mmynk/onecount/internal/models"
)

const epsilon = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

var (
	alice   = models.Member{ID: "a", Name: "Alice", Color: "bg-emerald-500"}
	bob     = models.Member{ID: "b", Name: "Bob", Color: "bg-sky-500"}
	charlie = models.Member{ID: "c", Name: "Charlie", Color: "bg-amber-500"}
)

func TestComputeShare(t *testing.T) {
	tests := []struct {
		name         string
		items        []models.Item
		members      []models.Member
		tip          float64
		validateFunc func(t *testing.T, b Breakdown)
	}{
		{
			name: "shared and single items with proportional tip",
			items: []models.Item{
				{ID: "1", Name: "Pizza", Price: 20, AssignedMembers: []string{"a", "b"}},
				{ID: "2", Name: "Salad", Price: 10, AssignedMembers: []string{"a"}},
			},
			members: []models.Member{alice, bob},
			tip:     3,
			validateFunc: func(t *testing.T, b Breakdown) {
				// Alice: subtotal = 10 + 10 = 20, tip = 3 * 20/30 = 2, total = 22
				// Bob: subtotal = 10, tip = 1, total = 11
				a, _ := b.Share("a")
				if !almostEqual(a.Subtotal, 20) || !almostEqual(a.TipShare, 2) || !almostEqual(a.Total, 22) {
					t.Errorf("Alice = %+v, want subtotal 20, tip 2, total 22", a)
				}
				bb, _ := b.Share("b")
				if !almostEqual(bb.Subtotal, 10) || !almostEqual(bb.TipShare, 1) || !almostEqual(bb.Total, 11) {
					t.Errorf("Bob = %+v, want subtotal 10, tip 1, total 11", bb)
				}
				if !almostEqual(b.FinalTotal, 33) {
					t.Errorf("FinalTotal = %v, want 33", b.FinalTotal)
				}
			},
		},
		{
			name: "merged Pfand with tip",
			items: []models.Item{
				{ID: "1", Name: "Pizza", Price: 20, AssignedMembers: []string{"a", "b"}},
				{ID: "2", Name: PfandItemName, Price: 5, AssignedMembers: []string{"a", "b"}},
			},
			members: []models.Member{alice, bob},
			tip:     5,
			validateFunc: func(t *testing.T, b Breakdown) {
				if !almostEqual(b.Subtotal, 25) {
					t.Errorf("Subtotal = %v, want 25", b.Subtotal)
				}
				if !almostEqual(b.FinalTotal, 30) {
					t.Errorf("FinalTotal = %v, want 30", b.FinalTotal)
				}
				for _, s := range b.Members {
					if !almostEqual(s.Subtotal, 12.5) || !almostEqual(s.TipShare, 2.5) || !almostEqual(s.Total, 15) {
						t.Errorf("%s = %+v, want 12.50 / 2.50 / 15.00", s.Member.Name, s)
					}
				}
			},
		},
		{
			name: "unassigned item belongs to nobody",
			items: []models.Item{
				{ID: "1", Name: "Wine", Price: 10, AssignedMembers: []string{}},
			},
			members: []models.Member{alice, bob},
			tip:     0,
			validateFunc: func(t *testing.T, b Breakdown) {
				if !almostEqual(b.Subtotal, 10) || !almostEqual(b.FinalTotal, 10) {
					t.Errorf("Subtotal/FinalTotal = %v/%v, want 10/10", b.Subtotal, b.FinalTotal)
				}
				for _, s := range b.Members {
					if s.Total != 0 {
						t.Errorf("%s total = %v, want 0", s.Member.Name, s.Total)
					}
				}
				if !almostEqual(b.Unattributed(), 10) {
					t.Errorf("Unattributed = %v, want 10", b.Unattributed())
				}
			},
		},
		{
			name:    "zero subtotal leaves the tip unattributed",
			items:   []models.Item{{ID: "1", Name: "Free", Price: 0, AssignedMembers: []string{"a"}}},
			members: []models.Member{alice, bob},
			tip:     7,
			validateFunc: func(t *testing.T, b Breakdown) {
				for _, s := range b.Members {
					if s.TipShare != 0 || s.Total != 0 {
						t.Errorf("%s = %+v, want zero share", s.Member.Name, s)
					}
				}
				if !almostEqual(b.FinalTotal, 7) {
					t.Errorf("FinalTotal = %v, want 7", b.FinalTotal)
				}
			},
		},
		{
			name:    "no items",
			items:   nil,
			members: []models.Member{alice},
			tip:     0,
			validateFunc: func(t *testing.T, b Breakdown) {
				if len(b.Members) != 1 {
					t.Fatalf("len(Members) = %d, want 1", len(b.Members))
				}
				if b.Subtotal != 0 || b.FinalTotal != 0 || b.Members[0].Total != 0 {
					t.Errorf("breakdown = %+v, want all zero", b)
				}
			},
		},
		{
			name: "unknown assignee is ignored but keeps its portion",
			items: []models.Item{
				{ID: "1", Name: "Pasta", Price: 12, AssignedMembers: []string{"a", "ghost"}},
			},
			members: []models.Member{alice},
			tip:     0,
			validateFunc: func(t *testing.T, b Breakdown) {
				a, _ := b.Share("a")
				if !almostEqual(a.Subtotal, 6) {
					t.Errorf("Alice subtotal = %v, want 6", a.Subtotal)
				}
				if !almostEqual(b.Unattributed(), 6) {
					t.Errorf("Unattributed = %v, want 6", b.Unattributed())
				}
			},
		},
		{
			name: "members keep input order",
			items: []models.Item{
				{ID: "1", Name: "Soup", Price: 9, AssignedMembers: []string{"c"}},
			},
			members: []models.Member{charlie, alice, bob},
			tip:     1,
			validateFunc: func(t *testing.T, b Breakdown) {
				want := []string{"c", "a", "b"}
				for i, id := range want {
					if b.Members[i].Member.ID != id {
						t.Errorf("Members[%d] = %s, want %s", i, b.Members[i].Member.ID, id)
					}
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeShare(tt.items, tt.members, tt.tip)
			tt.validateFunc(t, b)
		})
	}
}

func TestComputeShare_Conservation(t *testing.T) {
	members := []models.Member{alice, bob, charlie}

	tests := []struct {
		name      string
		items     []models.Item
		tip       float64
		wantEqual bool
	}{
		{
			name: "every priced item assigned",
			items: []models.Item{
				{ID: "1", Price: 10, AssignedMembers: []string{"a", "b", "c"}},
				{ID: "2", Price: 7.35, AssignedMembers: []string{"b"}},
				{ID: "3", Price: 0, AssignedMembers: nil},
			},
			tip:       4.2,
			wantEqual: true,
		},
		{
			name: "one priced item unassigned",
			items: []models.Item{
				{ID: "1", Price: 10, AssignedMembers: []string{"a"}},
				{ID: "2", Price: 3.5, AssignedMembers: nil},
			},
			tip:       2,
			wantEqual: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := ComputeShare(tt.items, members, tt.tip)
			assigned := b.AssignedTotal()
			if assigned > b.FinalTotal+epsilon {
				t.Fatalf("assigned %v exceeds final total %v", assigned, b.FinalTotal)
			}
			if got := almostEqual(assigned, b.FinalTotal); got != tt.wantEqual {
				t.Errorf("assigned == final: got %v, want %v (assigned %v, final %v)", got, tt.wantEqual, assigned, b.FinalTotal)
			}
		})
	}
}

func TestComputeShare_SplitFairness(t *testing.T) {
	for k := 1; k <= 7; k++ {
		ids := make([]string, k)
		members := make([]models.Member, k)
		for i := range ids {
			ids[i] = string(rune('a' + i))
			members[i] = models.Member{ID: ids[i], Name: ids[i]}
		}

		price := 19.99
		b := ComputeShare([]models.Item{{ID: "x", Price: price, AssignedMembers: ids}}, members, 0)

		var sum float64
		for _, s := range b.Members {
			if !almostEqual(s.Subtotal, price/float64(k)) {
				t.Errorf("k=%d: %s subtotal = %v, want %v", k, s.Member.ID, s.Subtotal, price/float64(k))
			}
			sum += s.Subtotal
		}
		if !almostEqual(sum, price) {
			t.Errorf("k=%d: sum of portions = %v, want %v", k, sum, price)
		}
	}
}

func TestComputeShare_TipProportionality(t *testing.T) {
	items := []models.Item{
		{ID: "1", Price: 8, AssignedMembers: []string{"a"}},
		{ID: "2", Price: 8, AssignedMembers: []string{"b"}},
		{ID: "3", Price: 0, AssignedMembers: []string{"c"}},
	}
	b := ComputeShare(items, []models.Member{alice, bob, charlie}, 6)

	a, _ := b.Share("a")
	bb, _ := b.Share("b")
	c, _ := b.Share("c")

	if a.TipShare != bb.TipShare {
		t.Errorf("equal subtotals got different tips: %v vs %v", a.TipShare, bb.TipShare)
	}
	if c.TipShare != 0 {
		t.Errorf("zero subtotal got tip %v, want 0", c.TipShare)
	}
	if !almostEqual(a.TipShare, 3) {
		t.Errorf("Alice tip = %v, want 3", a.TipShare)
	}
}
