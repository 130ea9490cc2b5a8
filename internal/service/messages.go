package service

import (
	"bytes"
	"encoding/json"

	"github.com/mmynk/onecount/internal/calculator"
	"github.com/mmynk/onecount/internal/models"
)

// Amount is a monetary request field. It accepts a JSON number or a string
// such as "12,50" or "€3.20"; malformed, negative and non-finite input is 0.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*a = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			*a = 0
			return nil
		}
		*a = Amount(calculator.ParseAmount(s))
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		*a = 0
		return nil
	}
	*a = Amount(calculator.SanitizeAmount(f))
	return nil
}

// Money is a monetary response value with its 2-decimal display form.
type Money struct {
	Value   float64 `json:"value"`
	Display string  `json:"display"`
}

func money(v float64) Money {
	return Money{Value: v, Display: calculator.FormatAmount(v)}
}

// Requests

type GetBillRequest struct{}

type AddMemberRequest struct {
	Name string `json:"name"`
}

type RemoveMemberRequest struct {
	MemberID string `json:"memberId"`
}

type AddItemRequest struct{}

// UpdateItemRequest patches an item. Omitted fields are left unchanged.
type UpdateItemRequest struct {
	ItemID          string    `json:"itemId"`
	Name            *string   `json:"name,omitempty"`
	Price           *Amount   `json:"price,omitempty"`
	AssignedMembers *[]string `json:"assignedMembers,omitempty"`
}

type DeleteItemRequest struct {
	ItemID string `json:"itemId"`
}

type ItemMemberRequest struct {
	ItemID   string `json:"itemId"`
	MemberID string `json:"memberId"`
}

type AssignAllItemRequest struct {
	ItemID string `json:"itemId"`
}

type SetTipRequest struct {
	Tip Amount `json:"tip"`
}

// ReceiptImageRequest carries raw image bytes (base64 in JSON).
type ReceiptImageRequest struct {
	Image []byte `json:"image"`
}

type SaveBillRequest struct{}

type ListFoldersRequest struct{}

type FolderRequest struct {
	FolderID string `json:"folderId"`
}

type GetSummaryRequest struct{}

// Responses

type ItemView struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Price           Money    `json:"price"`
	AssignedMembers []string `json:"assignedMembers"`
}

type MemberShareView struct {
	MemberID string `json:"memberId"`
	Name     string `json:"name"`
	Color    string `json:"color"`
	Subtotal Money  `json:"subtotal"`
	TipShare Money  `json:"tipShare"`
	Total    Money  `json:"total"`
}

type BreakdownView struct {
	Subtotal     Money             `json:"subtotal"`
	Tip          Money             `json:"tip"`
	FinalTotal   Money             `json:"finalTotal"`
	Unattributed Money             `json:"unattributed"`
	Members      []MemberShareView `json:"members"`
}

type BillView struct {
	State           string               `json:"state"`
	Members         []models.Member      `json:"members"`
	Items           []ItemView           `json:"items"`
	Tip             Money                `json:"tip"`
	Metadata        *models.BillMetadata `json:"metadata,omitempty"`
	HasReceiptImage bool                 `json:"hasReceiptImage"`
	Breakdown       BreakdownView        `json:"breakdown"`
}

// BillResponse is returned by every active-bill procedure. Changed is false
// when the request was a no-op (unknown id, empty name).
type BillResponse struct {
	Changed bool     `json:"changed"`
	Bill    BillView `json:"bill"`
}

type AnalyzeReceiptResponse struct {
	Items []ItemView `json:"items"`
	Bill  BillView   `json:"bill"`
}

type FolderSummary struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Date            string          `json:"date"`
	Total           Money           `json:"total"`
	ItemCount       int             `json:"itemCount"`
	Members         []models.Member `json:"members"`
	HasReceiptImage bool            `json:"hasReceiptImage"`
	CreatedAt       int64           `json:"createdAt"`
}

type SaveBillResponse struct {
	Saved  bool           `json:"saved"`
	Folder *FolderSummary `json:"folder,omitempty"`
	Bill   BillView       `json:"bill"`
}

type ListFoldersResponse struct {
	Folders []FolderSummary `json:"folders"`
}

type GetFolderResponse struct {
	Folder       FolderSummary `json:"folder"`
	Tip          Money         `json:"tip"`
	Items        []ItemView    `json:"items"`
	ReceiptImage []byte        `json:"receiptImage,omitempty"`
	Breakdown    BreakdownView `json:"breakdown"`
}

type ReopenFolderResponse struct {
	Reopened bool     `json:"reopened"`
	Bill     BillView `json:"bill"`
}

type PersonTotalView struct {
	Name   string `json:"name"`
	Color  string `json:"color"`
	Amount Money  `json:"amount"`
}

type SummaryResponse struct {
	GrandTotal  Money             `json:"grandTotal"`
	FolderCount int               `json:"folderCount"`
	People      []PersonTotalView `json:"people"`
}

func toItemViews(items []models.Item) []ItemView {
	out := make([]ItemView, len(items))
	for i, item := range items {
		assigned := item.AssignedMembers
		if assigned == nil {
			assigned = []string{}
		}
		out[i] = ItemView{
			ID:              item.ID,
			Name:            item.Name,
			Price:           money(item.Price),
			AssignedMembers: assigned,
		}
	}
	return out
}

func toBreakdownView(b calculator.Breakdown) BreakdownView {
	members := make([]MemberShareView, len(b.Members))
	for i, share := range b.Members {
		members[i] = MemberShareView{
			MemberID: share.Member.ID,
			Name:     share.Member.Name,
			Color:    share.Member.Color,
			Subtotal: money(share.Subtotal),
			TipShare: money(share.TipShare),
			Total:    money(share.Total),
		}
	}
	return BreakdownView{
		Subtotal:     money(b.Subtotal),
		Tip:          money(b.Tip),
		FinalTotal:   money(b.FinalTotal),
		Unattributed: money(b.Unattributed()),
		Members:      members,
	}
}

func toBillView(bill models.Bill, b calculator.Breakdown) BillView {
	members := bill.Members
	if members == nil {
		members = []models.Member{}
	}
	return BillView{
		State:           bill.State().String(),
		Members:         members,
		Items:           toItemViews(bill.Items),
		Tip:             money(bill.Tip),
		Metadata:        bill.Metadata,
		HasReceiptImage: bill.ReceiptImage != nil,
		Breakdown:       toBreakdownView(b),
	}
}

func toFolderSummary(f models.Folder) FolderSummary {
	members := f.Members
	if members == nil {
		members = []models.Member{}
	}
	return FolderSummary{
		ID:              f.ID,
		Name:            f.Name,
		Date:            f.Date,
		Total:           money(f.Total),
		ItemCount:       len(f.Items),
		Members:         members,
		HasReceiptImage: f.ReceiptImage != nil,
		CreatedAt:       f.CreatedAt,
	}
}

func toSummaryResponse(s calculator.Summary) SummaryResponse {
	people := make([]PersonTotalView, len(s.People))
	for i, p := range s.People {
		people[i] = PersonTotalView{Name: p.Name, Color: p.Color, Amount: money(p.Amount)}
	}
	return SummaryResponse{
		GrandTotal:  money(s.GrandTotal),
		FolderCount: s.FolderCount,
		People:      people,
	}
}
