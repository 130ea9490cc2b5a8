// Package workspace owns the single active bill and the archive of finalized
// folders. Every exported method is one atomic state transition.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/onecount/internal/analyzer"
	"github.com/mmynk/onecount/internal/calculator"
	"github.com/mmynk/onecount/internal/models"
	"github.com/mmynk/onecount/internal/storage"
)

// ErrItemNotFound is returned when an item id is not on the active bill.
var ErrItemNotFound = errors.New("item not found")

// DateLayout is the format of generated bill dates.
const DateLayout = "2006-01-02"

// MemberColors is the palette new members cycle through.
var MemberColors = []string{
	"#3b82f6", // blue
	"#ef4444", // red
	"#10b981", // emerald
	"#f59e0b", // amber
	"#8b5cf6", // violet
	"#ec4899", // pink
	"#06b6d4", // cyan
	"#84cc16", // lime
}

// ItemPatch is a partial update of an item. Nil fields are left unchanged.
type ItemPatch struct {
	Name            *string
	Price           *float64
	AssignedMembers *[]string
}

// Workspace holds the active bill and the archive.
type Workspace struct {
	mu      sync.Mutex
	bill    models.Bill
	folders []models.Folder // newest first
	store   storage.Store
	logger  *slog.Logger
	now     func() time.Time
	newID   func() string

	initialMembers []string
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithStore persists the archive in store.
func WithStore(store storage.Store) Option {
	return func(w *Workspace) { w.store = store }
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workspace) { w.logger = logger }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(w *Workspace) { w.now = now }
}

// WithIDGenerator overrides how ids are minted.
func WithIDGenerator(newID func() string) Option {
	return func(w *Workspace) { w.newID = newID }
}

// WithInitialMembers adds members to the starting bill.
func WithInitialMembers(names ...string) Option {
	return func(w *Workspace) {
		w.initialMembers = append(w.initialMembers, names...)
	}
}

// New creates a workspace. If a store is configured, the archive is loaded from it.
func New(ctx context.Context, opts ...Option) (*Workspace, error) {
	w := &Workspace{
		logger: slog.Default(),
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(w)
	}

	w.bill = models.Bill{Members: []models.Member{}, Items: []models.Item{}}
	for _, name := range w.initialMembers {
		w.addMember(name)
	}

	if w.store != nil {
		folders, err := w.store.ListFolders(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load archive: %w", err)
		}
		w.folders = folders
		w.logger.Info("archive loaded", "folders", len(folders))
	}

	return w, nil
}

// Bill returns a deep copy of the active bill.
func (w *Workspace) Bill() models.Bill {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bill.Clone()
}

// Breakdown computes the per-member shares of the active bill.
func (w *Workspace) Breakdown() calculator.Breakdown {
	w.mu.Lock()
	defer w.mu.Unlock()
	return calculator.ComputeShare(w.bill.Items, w.bill.Members, w.bill.Tip)
}

// Snapshot returns the active bill and its breakdown, taken in one step.
func (w *Workspace) Snapshot() (models.Bill, calculator.Breakdown) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bill.Clone(), calculator.ComputeShare(w.bill.Items, w.bill.Members, w.bill.Tip)
}

// AddMember appends a member. Names are trimmed; an empty name is ignored.
func (w *Workspace) AddMember(name string) (models.Member, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.addMember(name)
}

func (w *Workspace) addMember(name string) (models.Member, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return models.Member{}, false
	}
	m := models.Member{
		ID:    w.newID(),
		Name:  name,
		Color: MemberColors[len(w.bill.Members)%len(MemberColors)],
	}
	w.bill.Members = append(w.bill.Members, m)
	return m, true
}

// RemoveMember removes a member and strips it from every item's assignees.
// An unknown id is a no-op.
func (w *Workspace) RemoveMember(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := -1
	for i, m := range w.bill.Members {
		if m.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}

	w.bill.Members = append(w.bill.Members[:idx:idx], w.bill.Members[idx+1:]...)
	for i := range w.bill.Items {
		w.bill.Items[i].AssignedMembers = without(w.bill.Items[i].AssignedMembers, id)
	}
	return true
}

// AddItem appends an empty item named "Item N" assigned to every member.
func (w *Workspace) AddItem() models.Item {
	w.mu.Lock()
	defer w.mu.Unlock()

	item := models.Item{
		ID:              w.newID(),
		Name:            fmt.Sprintf("Item %d", len(w.bill.Items)+1),
		Price:           0,
		AssignedMembers: models.MemberIDs(w.bill.Members),
	}
	w.bill.Items = append(w.bill.Items, item)
	return item.Clone()
}

// UpdateItem applies patch to the item with the given id.
// Prices are sanitized and assignees are deduplicated and restricted to current members.
func (w *Workspace) UpdateItem(id string, patch ItemPatch) (models.Item, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	item := w.findItem(id)
	if item == nil {
		return models.Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	if patch.Name != nil {
		item.Name = *patch.Name
	}
	if patch.Price != nil {
		item.Price = calculator.SanitizeAmount(*patch.Price)
	}
	if patch.AssignedMembers != nil {
		item.AssignedMembers = w.knownMembers(*patch.AssignedMembers)
	}
	return item.Clone(), nil
}

// DeleteItem removes an item. An unknown id is a no-op.
func (w *Workspace) DeleteItem(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	for i, item := range w.bill.Items {
		if item.ID == id {
			w.bill.Items = append(w.bill.Items[:i:i], w.bill.Items[i+1:]...)
			return true
		}
	}
	return false
}

// ToggleAssignment adds or removes a member from an item's assignees.
// It returns false if the item or the member does not exist.
func (w *Workspace) ToggleAssignment(itemID, memberID string) (models.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	item := w.findItem(itemID)
	if item == nil || !w.hasMember(memberID) {
		return models.Item{}, false
	}
	if item.IsAssigned(memberID) {
		item.AssignedMembers = without(item.AssignedMembers, memberID)
	} else {
		item.AssignedMembers = append(item.AssignedMembers, memberID)
	}
	return item.Clone(), true
}

// ClaimItem assigns an item to one member only.
func (w *Workspace) ClaimItem(itemID, memberID string) (models.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	item := w.findItem(itemID)
	if item == nil || !w.hasMember(memberID) {
		return models.Item{}, false
	}
	item.AssignedMembers = []string{memberID}
	return item.Clone(), true
}

// AssignAll assigns an item to every current member.
func (w *Workspace) AssignAll(itemID string) (models.Item, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	item := w.findItem(itemID)
	if item == nil {
		return models.Item{}, false
	}
	item.AssignedMembers = models.MemberIDs(w.bill.Members)
	return item.Clone(), true
}

// SetTip replaces the tip. Negative and non-finite values become 0.
func (w *Workspace) SetTip(tip float64) float64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bill.Tip = calculator.SanitizeAmount(tip)
	return w.bill.Tip
}

// SetReceiptImage attaches an image to the active bill.
// Images over analyzer.MaxImageSize are rejected without changing state.
func (w *Workspace) SetReceiptImage(image []byte) error {
	if err := analyzer.CheckImageSize(image); err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bill.ReceiptImage = append([]byte(nil), image...)
	return nil
}

// IngestParsedReceipt appends items from a parsed receipt, assigned to the
// members present now, and adds the parsed tip to the bill's tip.
// It returns the new items.
func (w *Workspace) IngestParsedReceipt(parsed *models.ParsedReceipt) []models.Item {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.ingest(parsed)
}

// CompleteAnalysis stores the analyzed image and ingests its parsed receipt in
// one transition, so both use the same member set.
func (w *Workspace) CompleteAnalysis(image []byte, parsed *models.ParsedReceipt) ([]models.Item, error) {
	if err := analyzer.CheckImageSize(image); err != nil {
		return nil, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.bill.ReceiptImage = append([]byte(nil), image...)
	return w.ingest(parsed), nil
}

func (w *Workspace) ingest(parsed *models.ParsedReceipt) []models.Item {
	if parsed == nil {
		parsed = &models.ParsedReceipt{}
	}

	today := w.now().Format(DateLayout)
	if parsed.MerchantName != "" || parsed.Date != "" {
		md := &models.BillMetadata{Name: parsed.MerchantName, Date: parsed.Date}
		if md.Name == "" {
			md.Name = "Receipt"
		}
		if md.Date == "" {
			md.Date = today
		}
		w.bill.Metadata = md
	} else {
		w.bill.Metadata = &models.BillMetadata{
			Name: fmt.Sprintf("Bill #%d", len(w.folders)+1),
			Date: today,
		}
	}

	items := calculator.BuildReceiptItems(parsed.Items, models.MemberIDs(w.bill.Members), w.newID)
	w.bill.Items = append(w.bill.Items, items...)

	if tip := calculator.SanitizeAmount(parsed.Tip); tip > 0 {
		w.bill.Tip += tip
	}

	w.logger.Info("receipt ingested",
		"items", len(items),
		"members", len(w.bill.Members),
		"tip", w.bill.Tip,
	)
	return models.CloneItems(items)
}

// Finalize archives the active bill as a new folder and clears the bill,
// keeping its members. A bill without items is left alone and false is returned.
func (w *Workspace) Finalize(ctx context.Context) (models.Folder, bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.bill.Items) == 0 {
		return models.Folder{}, false, nil
	}

	var subtotal float64
	for _, item := range w.bill.Items {
		subtotal += item.Price
	}

	now := w.now()
	folder := models.Folder{
		ID:        w.newID(),
		Name:      fmt.Sprintf("Bill #%d", len(w.folders)+1),
		Date:      now.Format(DateLayout),
		Items:     models.CloneItems(w.bill.Items),
		Members:   models.CloneMembers(w.bill.Members),
		Tip:       w.bill.Tip,
		Total:     subtotal + w.bill.Tip,
		CreatedAt: now.UnixMilli(),
	}
	if md := w.bill.Metadata; md != nil {
		if md.Name != "" {
			folder.Name = md.Name
		}
		if md.Date != "" {
			folder.Date = md.Date
		}
	}
	if w.bill.ReceiptImage != nil {
		folder.ReceiptImage = append([]byte(nil), w.bill.ReceiptImage...)
	}

	if w.store != nil {
		if err := w.store.CreateFolder(ctx, &folder); err != nil {
			return models.Folder{}, false, fmt.Errorf("failed to archive bill: %w", err)
		}
	}

	w.folders = append([]models.Folder{folder}, w.folders...)
	w.bill = models.Bill{
		Members: w.bill.Members,
		Items:   []models.Item{},
	}

	w.logger.Info("bill archived", "folder_id", folder.ID, "name", folder.Name, "total", folder.Total)
	return folder.Clone(), true, nil
}

// Reopen moves a folder back into the active bill, replacing it entirely, and
// removes the folder from the archive. An unknown id is a no-op.
func (w *Workspace) Reopen(ctx context.Context, folderID string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.folderIndex(folderID)
	if idx < 0 {
		return false, nil
	}
	folder := w.folders[idx]

	if w.store != nil {
		if err := w.store.DeleteFolder(ctx, folderID); err != nil && !errors.Is(err, storage.ErrFolderNotFound) {
			return false, fmt.Errorf("failed to remove folder from archive: %w", err)
		}
	}

	if w.bill.State() == models.BillEditing {
		w.logger.Warn("discarding active bill to reopen folder",
			"folder_id", folderID,
			"items", len(w.bill.Items),
		)
	}

	w.bill = models.Bill{
		Members:  models.CloneMembers(folder.Members),
		Items:    models.CloneItems(folder.Items),
		Tip:      folder.Tip,
		Metadata: &models.BillMetadata{Name: folder.Name, Date: folder.Date},
	}
	if w.bill.Members == nil {
		w.bill.Members = []models.Member{}
	}
	if w.bill.Items == nil {
		w.bill.Items = []models.Item{}
	}
	if folder.ReceiptImage != nil {
		w.bill.ReceiptImage = append([]byte(nil), folder.ReceiptImage...)
	}
	w.folders = append(w.folders[:idx:idx], w.folders[idx+1:]...)

	w.logger.Info("folder reopened", "folder_id", folderID, "name", folder.Name)
	return true, nil
}

// Folders returns a copy of the archive, newest first.
func (w *Workspace) Folders() []models.Folder {
	w.mu.Lock()
	defer w.mu.Unlock()
	return models.CloneFolders(w.folders)
}

// FolderCount returns the number of archived folders.
func (w *Workspace) FolderCount() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.folders)
}

// Folder returns a copy of one archived folder.
func (w *Workspace) Folder(id string) (models.Folder, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.folderIndex(id)
	if idx < 0 {
		return models.Folder{}, false
	}
	return w.folders[idx].Clone(), true
}

// FolderBreakdown recomputes the per-member shares of an archived folder.
func (w *Workspace) FolderBreakdown(id string) (calculator.Breakdown, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	idx := w.folderIndex(id)
	if idx < 0 {
		return calculator.Breakdown{}, false
	}
	f := w.folders[idx]
	return calculator.ComputeShare(f.Items, f.Members, f.Tip), true
}

// Summary aggregates the archive by member name.
func (w *Workspace) Summary() calculator.Summary {
	w.mu.Lock()
	defer w.mu.Unlock()
	return calculator.Aggregate(w.folders)
}

// StateOf reports where the bill with the given folder id lives.
// Ids not in the archive are Idle, including folders that were reopened.
func (w *Workspace) StateOf(folderID string) models.BillState {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.folderIndex(folderID) >= 0 {
		return models.BillArchived
	}
	return models.BillIdle
}

// State reports whether the active bill holds work in progress.
func (w *Workspace) State() models.BillState {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.bill.State()
}

func (w *Workspace) findItem(id string) *models.Item {
	for i := range w.bill.Items {
		if w.bill.Items[i].ID == id {
			return &w.bill.Items[i]
		}
	}
	return nil
}

func (w *Workspace) hasMember(id string) bool {
	for _, m := range w.bill.Members {
		if m.ID == id {
			return true
		}
	}
	return false
}

// knownMembers keeps the ids that belong to current members, first occurrence only.
func (w *Workspace) knownMembers(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] || !w.hasMember(id) {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func (w *Workspace) folderIndex(id string) int {
	for i, f := range w.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func without(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
