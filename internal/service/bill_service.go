package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"connectrpc.com/connect"

	"github.com/mmynk/onecount/internal/analyzer"
	"github.com/mmynk/onecount/internal/middleware"
	"github.com/mmynk/onecount/internal/workspace"
)

// ServicePath is the URL prefix of every BillService procedure.
const ServicePath = "/onecount.v1.BillService/"

// Procedure names.
const (
	GetBillProcedure          = ServicePath + "GetBill"
	AddMemberProcedure        = ServicePath + "AddMember"
	RemoveMemberProcedure     = ServicePath + "RemoveMember"
	AddItemProcedure          = ServicePath + "AddItem"
	UpdateItemProcedure       = ServicePath + "UpdateItem"
	DeleteItemProcedure       = ServicePath + "DeleteItem"
	ToggleAssignmentProcedure = ServicePath + "ToggleAssignment"
	ClaimItemProcedure        = ServicePath + "ClaimItem"
	AssignAllItemProcedure    = ServicePath + "AssignAllItem"
	SetTipProcedure           = ServicePath + "SetTip"
	UploadReceiptProcedure    = ServicePath + "UploadReceipt"
	AnalyzeReceiptProcedure   = ServicePath + "AnalyzeReceipt"
	SaveBillProcedure         = ServicePath + "SaveBill"
	ListFoldersProcedure      = ServicePath + "ListFolders"
	GetFolderProcedure        = ServicePath + "GetFolder"
	ReopenFolderProcedure     = ServicePath + "ReopenFolder"
	GetSummaryProcedure       = ServicePath + "GetSummary"
)

// BillService exposes the workspace over Connect.
type BillService struct {
	ws       *workspace.Workspace
	analyzer analyzer.Analyzer
	metrics  *middleware.Metrics
	logger   *slog.Logger
}

// Option configures a BillService.
type Option func(*BillService)

// WithMetrics records analysis outcomes and archive size.
func WithMetrics(m *middleware.Metrics) Option {
	return func(s *BillService) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *BillService) { s.logger = logger }
}

// NewBillService creates a BillService. A nil analyzer disables receipt analysis.
func NewBillService(ws *workspace.Workspace, a analyzer.Analyzer, opts ...Option) *BillService {
	if a == nil {
		a = analyzer.Disabled{}
	}
	s := &BillService{ws: ws, analyzer: a, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	s.setFolderGauge()
	return s
}

// Handler returns the path prefix and handler serving every procedure.
func (s *BillService) Handler(opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append(opts, connect.WithCodec(jsonCodec{}))
	mux := http.NewServeMux()

	register(mux, GetBillProcedure, s.GetBill, opts)
	register(mux, AddMemberProcedure, s.AddMember, opts)
	register(mux, RemoveMemberProcedure, s.RemoveMember, opts)
	register(mux, AddItemProcedure, s.AddItem, opts)
	register(mux, UpdateItemProcedure, s.UpdateItem, opts)
	register(mux, DeleteItemProcedure, s.DeleteItem, opts)
	register(mux, ToggleAssignmentProcedure, s.ToggleAssignment, opts)
	register(mux, ClaimItemProcedure, s.ClaimItem, opts)
	register(mux, AssignAllItemProcedure, s.AssignAllItem, opts)
	register(mux, SetTipProcedure, s.SetTip, opts)
	register(mux, UploadReceiptProcedure, s.UploadReceipt, opts)
	register(mux, AnalyzeReceiptProcedure, s.AnalyzeReceipt, opts)
	register(mux, SaveBillProcedure, s.SaveBill, opts)
	register(mux, ListFoldersProcedure, s.ListFolders, opts)
	register(mux, GetFolderProcedure, s.GetFolder, opts)
	register(mux, ReopenFolderProcedure, s.ReopenFolder, opts)
	register(mux, GetSummaryProcedure, s.GetSummary, opts)

	return ServicePath, mux
}

func register[Req, Res any](
	mux *http.ServeMux,
	procedure string,
	fn func(context.Context, *connect.Request[Req]) (*connect.Response[Res], error),
	opts []connect.HandlerOption,
) {
	mux.Handle(procedure, connect.NewUnaryHandler(procedure, fn, opts...))
}

func (s *BillService) billResponse(changed bool) *connect.Response[BillResponse] {
	bill, breakdown := s.ws.Snapshot()
	return connect.NewResponse(&BillResponse{Changed: changed, Bill: toBillView(bill, breakdown)})
}

func (s *BillService) billView() BillView {
	bill, breakdown := s.ws.Snapshot()
	return toBillView(bill, breakdown)
}

// GetBill returns the active bill with its breakdown
func (s *BillService) GetBill(ctx context.Context, req *connect.Request[GetBillRequest]) (*connect.Response[BillResponse], error) {
	return s.billResponse(false), nil
}

// AddMember adds a member to the active bill
func (s *BillService) AddMember(ctx context.Context, req *connect.Request[AddMemberRequest]) (*connect.Response[BillResponse], error) {
	m, ok := s.ws.AddMember(req.Msg.Name)
	if ok {
		s.logger.Debug("Member added", "member_id", m.ID, "name", m.Name)
	}
	return s.billResponse(ok), nil
}

// RemoveMember removes a member and their item assignments
func (s *BillService) RemoveMember(ctx context.Context, req *connect.Request[RemoveMemberRequest]) (*connect.Response[BillResponse], error) {
	ok := s.ws.RemoveMember(req.Msg.MemberID)
	if ok {
		s.logger.Debug("Member removed", "member_id", req.Msg.MemberID)
	}
	return s.billResponse(ok), nil
}

// AddItem appends an empty item assigned to everyone
func (s *BillService) AddItem(ctx context.Context, req *connect.Request[AddItemRequest]) (*connect.Response[BillResponse], error) {
	item := s.ws.AddItem()
	s.logger.Debug("Item added", "item_id", item.ID)
	return s.billResponse(true), nil
}

// UpdateItem patches an item's name, price or assignees
func (s *BillService) UpdateItem(ctx context.Context, req *connect.Request[UpdateItemRequest]) (*connect.Response[BillResponse], error) {
	patch := workspace.ItemPatch{
		Name:            req.Msg.Name,
		AssignedMembers: req.Msg.AssignedMembers,
	}
	if req.Msg.Price != nil {
		price := float64(*req.Msg.Price)
		patch.Price = &price
	}

	if _, err := s.ws.UpdateItem(req.Msg.ItemID, patch); err != nil {
		return nil, toConnectError(err)
	}
	return s.billResponse(true), nil
}

// DeleteItem removes an item
func (s *BillService) DeleteItem(ctx context.Context, req *connect.Request[DeleteItemRequest]) (*connect.Response[BillResponse], error) {
	return s.billResponse(s.ws.DeleteItem(req.Msg.ItemID)), nil
}

// ToggleAssignment flips one member's assignment on an item
func (s *BillService) ToggleAssignment(ctx context.Context, req *connect.Request[ItemMemberRequest]) (*connect.Response[BillResponse], error) {
	_, ok := s.ws.ToggleAssignment(req.Msg.ItemID, req.Msg.MemberID)
	return s.billResponse(ok), nil
}

// ClaimItem assigns an item to a single member
func (s *BillService) ClaimItem(ctx context.Context, req *connect.Request[ItemMemberRequest]) (*connect.Response[BillResponse], error) {
	_, ok := s.ws.ClaimItem(req.Msg.ItemID, req.Msg.MemberID)
	return s.billResponse(ok), nil
}

// AssignAllItem assigns an item to every member
func (s *BillService) AssignAllItem(ctx context.Context, req *connect.Request[AssignAllItemRequest]) (*connect.Response[BillResponse], error) {
	_, ok := s.ws.AssignAll(req.Msg.ItemID)
	return s.billResponse(ok), nil
}

// SetTip replaces the tip
func (s *BillService) SetTip(ctx context.Context, req *connect.Request[SetTipRequest]) (*connect.Response[BillResponse], error) {
	s.ws.SetTip(float64(req.Msg.Tip))
	return s.billResponse(true), nil
}

// UploadReceipt attaches a receipt image without analyzing it
func (s *BillService) UploadReceipt(ctx context.Context, req *connect.Request[ReceiptImageRequest]) (*connect.Response[BillResponse], error) {
	if len(req.Msg.Image) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("image is required"))
	}
	if err := s.ws.SetReceiptImage(req.Msg.Image); err != nil {
		return nil, toConnectError(err)
	}
	return s.billResponse(true), nil
}

// AnalyzeReceipt extracts items from a receipt image and adds them to the
// active bill. On failure the bill is left untouched.
func (s *BillService) AnalyzeReceipt(ctx context.Context, req *connect.Request[ReceiptImageRequest]) (*connect.Response[AnalyzeReceiptResponse], error) {
	image := req.Msg.Image
	if len(image) == 0 {
		return nil, connect.NewError(connect.CodeInvalidArgument, errors.New("image is required"))
	}
	if err := analyzer.CheckImageSize(image); err != nil {
		s.observeAnalysis("rejected")
		return nil, toConnectError(err)
	}

	s.logger.Debug("Analyzing receipt", "bytes", len(image))
	parsed, err := s.analyzer.Analyze(ctx, image)
	if err != nil {
		s.observeAnalysis("failed")
		s.logger.Warn("Receipt analysis failed", "error", err)
		return nil, toConnectError(err)
	}

	// The caller went away while we waited; its result is discarded
	if err := ctx.Err(); err != nil {
		s.observeAnalysis("failed")
		return nil, connect.NewError(connect.CodeCanceled, err)
	}

	// Members are read now, not when the request arrived
	items, err := s.ws.CompleteAnalysis(image, parsed)
	if err != nil {
		return nil, toConnectError(err)
	}
	s.observeAnalysis("ok")

	return connect.NewResponse(&AnalyzeReceiptResponse{
		Items: toItemViews(items),
		Bill:  s.billView(),
	}), nil
}

// SaveBill archives the active bill as a folder
func (s *BillService) SaveBill(ctx context.Context, req *connect.Request[SaveBillRequest]) (*connect.Response[SaveBillResponse], error) {
	folder, saved, err := s.ws.Finalize(ctx)
	if err != nil {
		s.logger.Error("SaveBill failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}

	resp := &SaveBillResponse{Saved: saved}
	if saved {
		summary := toFolderSummary(folder)
		resp.Folder = &summary
		s.setFolderGauge()
	}
	resp.Bill = s.billView()
	return connect.NewResponse(resp), nil
}

// ListFolders returns the archive, newest first
func (s *BillService) ListFolders(ctx context.Context, req *connect.Request[ListFoldersRequest]) (*connect.Response[ListFoldersResponse], error) {
	folders := s.ws.Folders()
	out := make([]FolderSummary, len(folders))
	for i, f := range folders {
		out[i] = toFolderSummary(f)
	}
	return connect.NewResponse(&ListFoldersResponse{Folders: out}), nil
}

// GetFolder returns one folder with its recomputed breakdown
func (s *BillService) GetFolder(ctx context.Context, req *connect.Request[FolderRequest]) (*connect.Response[GetFolderResponse], error) {
	folder, ok := s.ws.Folder(req.Msg.FolderID)
	if !ok {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("folder not found"))
	}
	breakdown, _ := s.ws.FolderBreakdown(folder.ID)

	return connect.NewResponse(&GetFolderResponse{
		Folder:       toFolderSummary(folder),
		Tip:          money(folder.Tip),
		Items:        toItemViews(folder.Items),
		ReceiptImage: folder.ReceiptImage,
		Breakdown:    toBreakdownView(breakdown),
	}), nil
}

// ReopenFolder moves a folder back into the active bill
func (s *BillService) ReopenFolder(ctx context.Context, req *connect.Request[FolderRequest]) (*connect.Response[ReopenFolderResponse], error) {
	reopened, err := s.ws.Reopen(ctx, req.Msg.FolderID)
	if err != nil {
		s.logger.Error("ReopenFolder failed", "folder_id", req.Msg.FolderID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if reopened {
		s.setFolderGauge()
	}
	return connect.NewResponse(&ReopenFolderResponse{Reopened: reopened, Bill: s.billView()}), nil
}

// GetSummary aggregates the archive by member name
func (s *BillService) GetSummary(ctx context.Context, req *connect.Request[GetSummaryRequest]) (*connect.Response[SummaryResponse], error) {
	resp := toSummaryResponse(s.ws.Summary())
	return connect.NewResponse(&resp), nil
}

func (s *BillService) observeAnalysis(result string) {
	if s.metrics != nil {
		s.metrics.ObserveAnalysis(result)
	}
}

func (s *BillService) setFolderGauge() {
	if s.metrics != nil {
		s.metrics.SetFolders(s.ws.FolderCount())
	}
}

// toConnectError maps domain errors to Connect codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, analyzer.ErrImageTooLarge):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, workspace.ErrItemNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case analyzer.IsAnalysisError(err):
		return connect.NewError(connect.CodeUnavailable, errors.New("could not analyze the receipt, please try again"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
