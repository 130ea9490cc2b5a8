package calculator

import (
	"reflect"
	"testing"

	"github.com/mmynk/onecount/internal/models"
)

func folderFor(id string, members []models.Member, items []models.Item, tip float64) models.Folder {
	var subtotal float64
	for _, item := range items {
		subtotal += item.Price
	}
	return models.Folder{ID: id, Name: id, Members: members, Items: items, Tip: tip, Total: subtotal + tip}
}

func TestAggregate(t *testing.T) {
	t.Run("same name across folders is one person", func(t *testing.T) {
		alice1 := models.Member{ID: "f1-alice", Name: "Alice", Color: "bg-rose-500"}
		alice2 := models.Member{ID: "f2-alice", Name: "Alice", Color: "bg-sky-500"}

		folders := []models.Folder{
			folderFor("f1", []models.Member{alice1}, []models.Item{
				{ID: "1", Price: 12, AssignedMembers: []string{"f1-alice"}},
			}, 3),
			folderFor("f2", []models.Member{alice2}, []models.Item{
				{ID: "2", Price: 10, AssignedMembers: []string{"f2-alice"}},
			}, 0),
		}

		s := Aggregate(folders)
		if len(s.People) != 1 {
			t.Fatalf("len(People) = %d, want 1: %+v", len(s.People), s.People)
		}
		if s.People[0].Name != "Alice" || !almostEqual(s.People[0].Amount, 25) {
			t.Errorf("People[0] = %+v, want Alice 25", s.People[0])
		}
		if s.People[0].Color != "bg-sky-500" {
			t.Errorf("Color = %s, want the last processed folder's color", s.People[0].Color)
		}
		if !almostEqual(s.GrandTotal, 25) {
			t.Errorf("GrandTotal = %v, want 25", s.GrandTotal)
		}
		if s.FolderCount != 2 {
			t.Errorf("FolderCount = %d, want 2", s.FolderCount)
		}
	})

	t.Run("zero amounts are excluded", func(t *testing.T) {
		folders := []models.Folder{
			folderFor("f1", []models.Member{alice, bob}, []models.Item{
				{ID: "1", Price: 10, AssignedMembers: []string{"a"}},
				{ID: "2", Price: 0, AssignedMembers: []string{"b"}},
			}, 0),
		}

		s := Aggregate(folders)
		if len(s.People) != 1 || s.People[0].Name != "Alice" {
			t.Errorf("People = %+v, want only Alice", s.People)
		}
	})

	t.Run("grand total includes unassigned money", func(t *testing.T) {
		folders := []models.Folder{
			folderFor("f1", []models.Member{alice}, []models.Item{
				{ID: "1", Price: 10, AssignedMembers: nil},
			}, 2),
		}

		s := Aggregate(folders)
		if !almostEqual(s.GrandTotal, 12) {
			t.Errorf("GrandTotal = %v, want 12", s.GrandTotal)
		}
		if len(s.People) != 0 {
			t.Errorf("People = %+v, want none", s.People)
		}
	})

	t.Run("tip is shared over the full folder subtotal", func(t *testing.T) {
		// 10 assigned to Alice, 10 unassigned, tip 4: Alice gets 10 + 4*10/20 = 12
		folders := []models.Folder{
			folderFor("f1", []models.Member{alice}, []models.Item{
				{ID: "1", Price: 10, AssignedMembers: []string{"a"}},
				{ID: "2", Price: 10, AssignedMembers: nil},
			}, 4),
		}

		s := Aggregate(folders)
		if len(s.People) != 1 || !almostEqual(s.People[0].Amount, 12) {
			t.Errorf("People = %+v, want Alice 12", s.People)
		}
	})

	t.Run("sorted descending with first-seen tie break", func(t *testing.T) {
		folders := []models.Folder{
			folderFor("f1", []models.Member{charlie, bob, alice}, []models.Item{
				{ID: "1", Price: 5, AssignedMembers: []string{"c"}},
				{ID: "2", Price: 5, AssignedMembers: []string{"b"}},
				{ID: "3", Price: 9, AssignedMembers: []string{"a"}},
			}, 0),
		}

		s := Aggregate(folders)
		var got []string
		for _, p := range s.People {
			got = append(got, p.Name)
		}
		want := []string{"Alice", "Charlie", "Bob"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("order = %v, want %v", got, want)
		}
	})

	t.Run("empty archive", func(t *testing.T) {
		s := Aggregate(nil)
		if s.GrandTotal != 0 || len(s.People) != 0 || s.FolderCount != 0 {
			t.Errorf("Aggregate(nil) = %+v, want zero summary", s)
		}
	})
}

func TestAggregate_Idempotent(t *testing.T) {
	folders := []models.Folder{
		folderFor("f1", []models.Member{alice, bob}, []models.Item{
			{ID: "1", Price: 13.37, AssignedMembers: []string{"a", "b"}},
			{ID: "2", Price: 4.2, AssignedMembers: []string{"b"}},
		}, 2.5),
		folderFor("f2", []models.Member{charlie, {ID: "b2", Name: "Bob"}}, []models.Item{
			{ID: "3", Price: 8, AssignedMembers: []string{"c", "b2"}},
		}, 1),
	}

	first := Aggregate(folders)
	second := Aggregate(folders)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Aggregate not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}
