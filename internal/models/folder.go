package models

// BillState names where a logical bill currently lives.
type BillState int

const (
	// BillIdle means there is no bill: the active slot is empty, or the folder id is unknown.
	BillIdle BillState = iota
	// BillEditing means the bill is the active, mutable bill.
	BillEditing
	// BillArchived means the bill is a frozen folder in the archive.
	BillArchived
)

// String returns the lower-case name of the state.
func (s BillState) String() string {
	switch s {
	case BillEditing:
		return "editing"
	case BillArchived:
		return "archived"
	default:
		return "idle"
	}
}

// Folder is an immutable snapshot of a finalized bill.
type Folder struct {
	// ID is the unique identifier for the folder (UUID format).
	ID string `json:"id"`

	// Name is the display name (merchant name or "Bill #N").
	Name string `json:"name"`

	// Date is the receipt date as displayed, free-form.
	Date string `json:"date"`

	// Items is a frozen copy of the bill's items.
	Items []Item `json:"items"`

	// Members is a frozen copy of the members at the time of saving.
	Members []Member `json:"members"`

	// Tip is the bill's tip.
	Tip float64 `json:"tip"`

	// Total is the precomputed subtotal plus tip.
	Total float64 `json:"total"`

	// ReceiptImage is the receipt image saved with the bill, if any.
	ReceiptImage []byte `json:"receiptImage,omitempty"`

	// CreatedAt is the Unix timestamp in milliseconds when the folder was created.
	CreatedAt int64 `json:"createdAt"`
}

// Clone returns a deep copy of the folder.
func (f Folder) Clone() Folder {
	out := f
	out.Items = CloneItems(f.Items)
	out.Members = CloneMembers(f.Members)
	if f.ReceiptImage != nil {
		out.ReceiptImage = append([]byte(nil), f.ReceiptImage...)
	}
	return out
}

// CloneFolders deep-copies a list of folders.
func CloneFolders(folders []Folder) []Folder {
	out := make([]Folder, len(folders))
	for i, f := range folders {
		out[i] = f.Clone()
	}
	return out
}
