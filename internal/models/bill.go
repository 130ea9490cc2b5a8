package models

// Item represents a single line item on a bill.
// Items can be shared among multiple members.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string `json:"id"`

	// Name is the label of the item (e.g., "Pizza", "Pfand (Summarized)").
	Name string `json:"name"`

	// Price is the non-negative price of this item.
	Price float64 `json:"price"`

	// AssignedMembers holds the ids of the members who split this item.
	// If several members are assigned, the item is split equally among them.
	// An empty list is valid: the price counts toward the bill total but
	// toward nobody's share.
	AssignedMembers []string `json:"assignedMembers"`
}

// Clone returns a deep copy of the item.
func (i Item) Clone() Item {
	out := i
	if i.AssignedMembers != nil {
		out.AssignedMembers = append([]string(nil), i.AssignedMembers...)
	}
	return out
}

// IsAssigned reports whether memberID is one of the item's assignees.
func (i Item) IsAssigned(memberID string) bool {
	for _, id := range i.AssignedMembers {
		if id == memberID {
			return true
		}
	}
	return false
}

// CloneItems deep-copies a list of items.
func CloneItems(items []Item) []Item {
	if items == nil {
		return nil
	}
	out := make([]Item, len(items))
	for i, item := range items {
		out[i] = item.Clone()
	}
	return out
}

// BillMetadata carries the display name and date of the active bill.
type BillMetadata struct {
	Name string `json:"name"`
	Date string `json:"date"`
}

// Bill is the active, editable bill. Exactly one exists per workspace.
type Bill struct {
	// Members is the ordered list of people on the bill.
	Members []Member `json:"members"`

	// Items are the line items, in entry order.
	Items []Item `json:"items"`

	// Tip is the non-negative tip amount for the whole bill.
	Tip float64 `json:"tip"`

	// ReceiptImage is the uploaded receipt image, if any.
	ReceiptImage []byte `json:"receiptImage,omitempty"`

	// Metadata is set from receipt analysis or a reopened folder.
	// Nil means a fallback name and date are used when the bill is saved.
	Metadata *BillMetadata `json:"metadata,omitempty"`
}

// Clone returns a deep copy of the bill.
func (b Bill) Clone() Bill {
	out := Bill{
		Members: CloneMembers(b.Members),
		Items:   CloneItems(b.Items),
		Tip:     b.Tip,
	}
	if b.ReceiptImage != nil {
		out.ReceiptImage = append([]byte(nil), b.ReceiptImage...)
	}
	if b.Metadata != nil {
		md := *b.Metadata
		out.Metadata = &md
	}
	return out
}

// State reports whether the active bill holds work in progress.
func (b Bill) State() BillState {
	if len(b.Items) == 0 && b.Tip == 0 && b.ReceiptImage == nil && b.Metadata == nil {
		return BillIdle
	}
	return BillEditing
}
