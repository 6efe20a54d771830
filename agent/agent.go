package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tdvu/bookstore-agent/completion"
	"github.com/tdvu/bookstore-agent/dialog"
	"github.com/tdvu/bookstore-agent/internal/textnorm"
	"github.com/tdvu/bookstore-agent/internal/util"
	"github.com/tdvu/bookstore-agent/logging"
	"github.com/tdvu/bookstore-agent/order"
	"github.com/tdvu/bookstore-agent/retrieval"
	"github.com/tdvu/bookstore-agent/store"
)

const (
	defaultHistoryWindow  = 16
	defaultMaxPlanActions = 3
	searchLimit           = 5
	// Replies shorter than this while search results exist are assumed to
	// have dropped the list; we render it deterministically instead.
	minPlausibleReply = 12
)

// Reply is the outcome of handling one utterance.
type Reply struct {
	Text    string
	Phase   dialog.Phase
	Hits    []dialog.ItemRef
	OrderID uint
}

// Agent wires the state machine, retrieval, orders and the completion client
// into one message handler.
type Agent struct {
	store       *store.Store
	engine      *retrieval.Engine
	orders      *order.Manager
	completions *completion.Client
	states      dialog.StateStore
	logger      logging.Logger

	historyWindow  int
	maxPlanActions int
	confirmTokens  []string
}

// Options configure an Agent.
type Options struct {
	// States holds per-session dialogue state. Defaults to the in-memory
	// store, which is single-instance only.
	States dialog.StateStore

	// HistoryWindow caps the chat messages fed to slot resolution.
	HistoryWindow int

	// MaxPlanActions caps executed plan actions per turn.
	MaxPlanActions int

	// ConfirmTokens overrides the confirmation token set.
	ConfirmTokens []string

	Logger logging.Logger
}

// New creates an agent over the given collaborators.
func New(st *store.Store, engine *retrieval.Engine, orders *order.Manager, completions *completion.Client, optFns ...func(o *Options)) *Agent {
	opts := Options{
		HistoryWindow:  defaultHistoryWindow,
		MaxPlanActions: defaultMaxPlanActions,
		ConfirmTokens:  dialog.DefaultConfirmTokens,
		Logger:         logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.States == nil {
		opts.States = dialog.NewInMemoryStore()
	}
	return &Agent{
		store:          st,
		engine:         engine,
		orders:         orders,
		completions:    completions,
		states:         opts.States,
		logger:         opts.Logger,
		historyWindow:  opts.HistoryWindow,
		maxPlanActions: opts.MaxPlanActions,
		confirmTokens:  opts.ConfirmTokens,
	}
}

// Handle processes one utterance for a session. Concurrent calls for the same
// session must be serialized by the caller; different sessions are
// independent.
func (a *Agent) Handle(ctx context.Context, sessionID, text string) (Reply, error) {
	st, err := a.states.Get(ctx, sessionID)
	if err != nil {
		return Reply{}, fmt.Errorf("agent: load state: %w", err)
	}

	if err := a.store.EnsureSession(ctx, sessionID); err != nil {
		a.logger.Warn("ensure session failed", "session_id", sessionID, "error", err)
	}
	if strings.TrimSpace(text) == "" {
		return Reply{Text: "Bạn cứ nhắn tên sách hoặc chủ đề bạn quan tâm nhé!", Phase: st.Phase}, nil
	}
	if err := a.store.AppendMessage(ctx, sessionID, "user", text); err != nil {
		a.logger.Warn("append user message failed", "session_id", sessionID, "error", err)
	}

	reply, err := a.dispatch(ctx, st, text)
	if err != nil {
		return Reply{}, err
	}

	if err := a.states.Save(ctx, st); err != nil {
		return Reply{}, fmt.Errorf("agent: save state: %w", err)
	}
	if err := a.store.AppendMessage(ctx, sessionID, "assistant", reply.Text); err != nil {
		a.logger.Warn("append assistant message failed", "session_id", sessionID, "error", err)
	}

	reply.Phase = st.Phase
	return reply, nil
}

// Reset discards the session's dialogue state.
func (a *Agent) Reset(ctx context.Context, sessionID string) error {
	return a.states.Delete(ctx, sessionID)
}

func (a *Agent) dispatch(ctx context.Context, st *dialog.SessionState, text string) (Reply, error) {
	// A follow-up purchase restarts collection from any phase, keeping the
	// contact details already known.
	if dialog.WantsAnotherOrder(text) {
		st.StartNewPurchase()
		return a.askNextMissing(st), nil
	}

	switch st.Phase {
	case dialog.PhaseAwaitConfirm:
		return a.handleConfirm(ctx, st, text)
	case dialog.PhaseOrderCollect:
		if st.LastPrompt != dialog.PromptNone {
			if reply, handled, err := a.consumePrompt(ctx, st, text); handled || err != nil {
				return reply, err
			}
		}
	}

	return a.pipeline(ctx, st, text)
}

// handleConfirm covers the await_confirm phase: confirmation submits, an edit
// request loops back to collection, anything else re-renders the summary.
func (a *Agent) handleConfirm(ctx context.Context, st *dialog.SessionState, text string) (Reply, error) {
	if dialog.IsAffirmative(text, a.confirmTokens) {
		return a.submit(ctx, st)
	}

	if st.LastPrompt == dialog.PromptEditField {
		st.LastPrompt = dialog.PromptNone
		if f, ok := dialog.ClassifyField(text); ok {
			return a.beginEdit(st, f), nil
		}
	}

	if f, ok := dialog.ClassifyField(text); ok {
		return a.beginEdit(st, f), nil
	}
	if dialog.IsEditRequest(text) {
		st.LastPrompt = dialog.PromptEditField
		return Reply{Text: promptText(dialog.PromptEditField)}, nil
	}

	return a.summary(ctx, st)
}

// beginEdit clears one slot and re-enters collection asking for it.
func (a *Agent) beginEdit(st *dialog.SessionState, f dialog.Field) Reply {
	clearSlot(&st.Slots, f)
	st.Phase = dialog.PhaseOrderCollect
	st.LastPrompt = dialog.PromptFor(f)
	return Reply{Text: promptText(st.LastPrompt)}
}

func clearSlot(s *dialog.Slots, f dialog.Field) {
	switch f {
	case dialog.FieldItem:
		s.ItemID = nil
	case dialog.FieldQuantity:
		s.Quantity = nil
	case dialog.FieldName:
		s.Name = nil
	case dialog.FieldPhone:
		s.Phone = nil
	case dialog.FieldAddress:
		s.Address = nil
	}
}

// consumePrompt interprets the utterance as the answer to the slot we just
// asked for. Reports handled=false only when the answer should fall through
// to the full pipeline.
func (a *Agent) consumePrompt(ctx context.Context, st *dialog.SessionState, text string) (Reply, bool, error) {
	switch st.LastPrompt {
	case dialog.PromptQuantity:
		q := parseBareQuantity(text)
		if q == nil {
			return Reply{Text: "Bạn muốn mua bao nhiêu quyển? Nhắn giúp mình một con số nhé."}, true, nil
		}
		st.Slots.Quantity = q

	case dialog.PromptPhone:
		p := extractPhone(text)
		if p == nil {
			return Reply{Text: "Số điện thoại chưa đúng định dạng. Bạn nhắn lại giúp mình nhé (vd: 0912345678)."}, true, nil
		}
		st.Slots.Phone = p

	case dialog.PromptName:
		name := strings.TrimSpace(text)
		if utf8.RuneCountInString(name) < 2 {
			return Reply{Text: promptText(dialog.PromptName)}, true, nil
		}
		st.Slots.Name = &name

	case dialog.PromptAddress:
		addr := strings.TrimSpace(text)
		if utf8.RuneCountInString(addr) < 5 {
			return Reply{Text: "Bạn cho mình xin địa chỉ đầy đủ hơn nhé (số nhà, đường, quận/huyện)."}, true, nil
		}
		st.Slots.Address = &addr

	case dialog.PromptNewItem:
		return a.consumeItemAnswer(ctx, st, text)

	default:
		return Reply{}, false, nil
	}

	st.LastPrompt = dialog.PromptNone
	reply, err := a.advance(ctx, st)
	return reply, true, err
}

// consumeItemAnswer resolves an item reference: explicit id, position in the
// last result list, a title fragment, or a fresh search.
func (a *Agent) consumeItemAnswer(ctx context.Context, st *dialog.SessionState, text string) (Reply, bool, error) {
	if id := extractItemID(text); id != nil {
		if _, err := a.store.GetItem(ctx, *id); err == nil {
			return a.fillItem(ctx, st, *id)
		}
		return Reply{Text: fmt.Sprintf("Mình không thấy sách id %d. Bạn kiểm tra lại giúp mình nhé.", *id)}, true, nil
	}

	if n := extractOrdinal(text); n >= 1 && n <= len(st.LastHits) {
		return a.fillItem(ctx, st, st.LastHits[n-1].ID)
	}

	folded := textnorm.Fold(text)
	for _, h := range st.LastHits {
		if strings.Contains(textnorm.Fold(h.Title), folded) {
			return a.fillItem(ctx, st, h.ID)
		}
	}

	hits, err := a.engine.Search(ctx, text, searchLimit)
	if err != nil {
		return Reply{}, true, fmt.Errorf("agent: search: %w", err)
	}
	if len(hits) == 1 {
		return a.fillItem(ctx, st, hits[0].Item.ID)
	}
	st.LastHits = refsFromHits(hits)
	return Reply{Text: renderHits(st.LastHits), Hits: st.LastHits}, true, nil
}

func (a *Agent) fillItem(ctx context.Context, st *dialog.SessionState, id uint) (Reply, bool, error) {
	st.Slots.ItemID = &id
	st.LastPrompt = dialog.PromptNone
	reply, err := a.advance(ctx, st)
	return reply, true, err
}

// advance moves to confirmation when every slot is filled, otherwise asks for
// the next missing one.
func (a *Agent) advance(ctx context.Context, st *dialog.SessionState) (Reply, error) {
	if st.Slots.Complete() {
		return a.toConfirm(ctx, st)
	}
	return a.askNextMissing(st), nil
}

func (a *Agent) askNextMissing(st *dialog.SessionState) Reply {
	missing := st.Slots.Missing()
	if len(missing) == 0 {
		st.Phase = dialog.PhaseOrderCollect
		st.LastPrompt = dialog.PromptNone
		return Reply{Text: promptText(dialog.PromptNewItem)}
	}
	st.Phase = dialog.PhaseOrderCollect
	st.LastPrompt = dialog.PromptFor(missing[0])
	return Reply{Text: promptText(st.LastPrompt)}
}

// toConfirm validates the chosen item against current stock and renders the
// confirmation summary.
func (a *Agent) toConfirm(ctx context.Context, st *dialog.SessionState) (Reply, error) {
	item, err := a.store.GetItem(ctx, *st.Slots.ItemID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			clearSlot(&st.Slots, dialog.FieldItem)
			return a.askNextMissing(st), nil
		}
		return Reply{}, fmt.Errorf("agent: load item: %w", err)
	}

	if st.Slots.Quantity != nil && item.Stock < *st.Slots.Quantity {
		clearSlot(&st.Slots, dialog.FieldQuantity)
		st.Phase = dialog.PhaseOrderCollect
		st.LastPrompt = dialog.PromptQuantity
		return Reply{Text: fmt.Sprintf("\"%s\" chỉ còn %d cuốn. Bạn muốn lấy bao nhiêu?", item.Title, item.Stock)}, nil
	}

	st.Phase = dialog.PhaseAwaitConfirm
	st.LastPrompt = dialog.PromptNone
	return Reply{Text: renderSummary(refFromItem(item), st.Slots)}, nil
}

// summary re-renders the confirmation text without changing state.
func (a *Agent) summary(ctx context.Context, st *dialog.SessionState) (Reply, error) {
	item, err := a.store.GetItem(ctx, *st.Slots.ItemID)
	if err != nil {
		return Reply{}, fmt.Errorf("agent: load item: %w", err)
	}
	return Reply{Text: renderSummary(refFromItem(item), st.Slots)}, nil
}

// submit hands the completed slots to the transaction manager and moves the
// session into await_admin_decision.
func (a *Agent) submit(ctx context.Context, st *dialog.SessionState) (Reply, error) {
	if !st.Slots.Complete() {
		return a.advance(ctx, st)
	}
	sub := order.Submission{
		SessionID:    st.SessionID,
		ItemID:       *st.Slots.ItemID,
		Quantity:     *st.Slots.Quantity,
		CustomerName: *st.Slots.Name,
		Phone:        *st.Slots.Phone,
		Address:      *st.Slots.Address,
	}
	o, err := a.orders.Submit(ctx, sub)
	if err != nil {
		if errors.Is(err, order.ErrOutOfStock) {
			clearSlot(&st.Slots, dialog.FieldQuantity)
			st.Phase = dialog.PhaseOrderCollect
			st.LastPrompt = dialog.PromptQuantity
			return Reply{Text: "Tiếc quá, sách không còn đủ số lượng bạn cần. Bạn muốn lấy bao nhiêu cuốn?"}, nil
		}
		return Reply{}, fmt.Errorf("agent: submit order: %w", err)
	}

	st.Phase = dialog.PhaseAwaitAdminDecision
	st.LastPrompt = dialog.PromptNone
	text := fmt.Sprintf("Đơn hàng #%d đã được gửi và đang chờ duyệt. Mình sẽ báo bạn ngay khi có kết quả nhé!", o.ID)
	return Reply{Text: text, OrderID: o.ID}, nil
}

// pipeline is the model-assisted path: deterministic extraction, slot
// resolution, shortcuts, then plan/execute/respond for ambiguous turns.
func (a *Agent) pipeline(ctx context.Context, st *dialog.SessionState, text string) (Reply, error) {
	if st.Slots.Quantity == nil {
		if q := extractQuantity(text); q != nil {
			st.Slots.Quantity = q
		}
	}
	if st.Slots.Phone == nil {
		if p := extractPhone(text); p != nil {
			st.Slots.Phone = p
		}
	}

	history, err := a.store.RecentMessages(ctx, st.SessionID, a.historyWindow)
	if err != nil {
		a.logger.Warn("load history failed", "session_id", st.SessionID, "error", err)
	}

	var res nluResult
	if err := a.completions.CompleteJSON(ctx, buildNLURequest(st, history, text), &res); err != nil {
		return Reply{}, fmt.Errorf("agent: slot resolution: %w", err)
	}
	res.Intent = normalizeIntent(res.Intent)
	mergeNLU(st, res)
	a.resolveItem(ctx, st, res, text)

	if res.Intent == intentSearch {
		return a.search(ctx, st, firstNonEmpty(res.Query, text))
	}

	if st.Slots.Complete() && st.Phase != dialog.PhaseAwaitConfirm {
		return a.toConfirm(ctx, st)
	}

	switch res.Intent {
	case intentOrder:
		if res.Clarify != "" {
			st.Phase = dialog.PhaseOrderCollect
			if missing := st.Slots.Missing(); len(missing) > 0 {
				st.LastPrompt = dialog.PromptFor(missing[0])
			}
			return Reply{Text: res.Clarify}, nil
		}
		return a.askNextMissing(st), nil
	case intentStatus:
		return a.lastOrderStatus(ctx, st)
	}

	return a.planAndRespond(ctx, st, text)
}

// resolveItem fills the item slot from an explicit id, the extractor output
// or a position in the last result list.
func (a *Agent) resolveItem(ctx context.Context, st *dialog.SessionState, res nluResult, text string) {
	if st.Slots.ItemID != nil {
		return
	}
	if id := extractItemID(text); id != nil && a.itemExists(ctx, *id) {
		st.Slots.ItemID = id
		return
	}
	if res.ItemID != nil && a.itemExists(ctx, *res.ItemID) {
		st.Slots.ItemID = res.ItemID
		return
	}
	if n := extractOrdinal(text); n >= 1 && n <= len(st.LastHits) {
		id := st.LastHits[n-1].ID
		st.Slots.ItemID = &id
	}
}

func (a *Agent) itemExists(ctx context.Context, id uint) bool {
	_, err := a.store.GetItem(ctx, id)
	return err == nil
}

func (a *Agent) search(ctx context.Context, st *dialog.SessionState, query string) (Reply, error) {
	hits, err := a.engine.Search(ctx, query, searchLimit)
	if err != nil {
		return Reply{}, fmt.Errorf("agent: search: %w", err)
	}
	st.LastHits = refsFromHits(hits)
	return Reply{Text: renderHits(st.LastHits), Hits: st.LastHits}, nil
}

func (a *Agent) lastOrderStatus(ctx context.Context, st *dialog.SessionState) (Reply, error) {
	o, err := a.store.LastOrderBySession(ctx, st.SessionID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return Reply{Text: "Bạn chưa có đơn hàng nào trong phiên này."}, nil
		}
		return Reply{}, fmt.Errorf("agent: last order: %w", err)
	}
	return Reply{Text: fmt.Sprintf("Đơn hàng gần nhất của bạn là #%d, trạng thái: %s.", o.ID, statusText(o.Status))}, nil
}

func statusText(s store.OrderStatus) string {
	switch s {
	case store.StatusApproved:
		return "đã duyệt"
	case store.StatusCancelled:
		return "đã huỷ"
	default:
		return "đang chờ duyệt"
	}
}

// planAndRespond is the last resort for ambiguous turns: ask the model for a
// bounded plan, execute it, then compose the reply from the observations.
func (a *Agent) planAndRespond(ctx context.Context, st *dialog.SessionState, text string) (Reply, error) {
	var plan planResult
	if err := a.completions.CompleteJSON(ctx, buildPlanRequest(st, text), &plan); err != nil {
		return Reply{}, fmt.Errorf("agent: plan: %w", err)
	}
	if plan.Clarify != "" {
		return Reply{Text: plan.Clarify}, nil
	}

	var observations []observation
	executed := 0
	for _, action := range plan.Actions {
		if executed >= a.maxPlanActions {
			break
		}
		executed++

		kind, ok := NormalizeTool(action.Tool)
		if !ok {
			observations = append(observations, observation{Tool: action.Tool, Error: "unknown tool"})
			continue
		}
		schema, _ := SchemaForTool(kind)
		if err := util.ValidateParameters(action.Args, schema); err != nil {
			observations = append(observations, observation{Tool: string(kind), Error: err.Error()})
			continue
		}

		obs, short, err := a.executeAction(ctx, st, kind, action.Args)
		if err != nil {
			return Reply{}, err
		}
		if short != nil {
			return *short, nil
		}
		observations = append(observations, obs)
	}

	if len(observations) == 0 {
		return Reply{Text: "Mình là trợ lý của hiệu sách, bạn muốn tìm sách gì hay đặt mua cuốn nào ạ?"}, nil
	}

	var say sayResult
	if err := a.completions.CompleteJSON(ctx, buildRespondRequest(observations, text), &say); err != nil {
		return Reply{}, fmt.Errorf("agent: respond: %w", err)
	}
	reply := strings.TrimSpace(say.Say)
	if utf8.RuneCountInString(reply) < minPlausibleReply && hasSearchObservation(observations) && len(st.LastHits) > 0 {
		return Reply{Text: renderHits(st.LastHits), Hits: st.LastHits}, nil
	}
	return Reply{Text: reply}, nil
}

// executeAction runs one validated tool call. A non-nil short reply ends the
// turn immediately (order submission transitions phase and must not be
// post-processed by the responder).
func (a *Agent) executeAction(ctx context.Context, st *dialog.SessionState, kind ToolKind, args map[string]any) (observation, *Reply, error) {
	switch kind {
	case ToolSearchBooks:
		query, _ := args["query"].(string)
		limit := searchLimit
		if f, ok := args["limit"].(float64); ok && f > 0 {
			limit = int(f)
		}
		hits, err := a.engine.Search(ctx, query, limit)
		if err != nil {
			return observation{Tool: string(kind), Error: err.Error()}, nil, nil
		}
		st.LastHits = refsFromHits(hits)
		return observation{Tool: string(kind), Result: renderHits(st.LastHits)}, nil, nil

	case ToolCreateOrder:
		mergeOrderArgs(st, args)
		if st.Slots.Complete() {
			reply, err := a.toConfirm(ctx, st)
			if err != nil {
				return observation{}, nil, err
			}
			return observation{}, &reply, nil
		}
		reply := a.askNextMissing(st)
		return observation{}, &reply, nil

	case ToolLastOrderStatus:
		reply, err := a.lastOrderStatus(ctx, st)
		if err != nil {
			return observation{Tool: string(kind), Error: err.Error()}, nil, nil
		}
		return observation{Tool: string(kind), Result: reply.Text}, nil, nil
	}
	return observation{Tool: string(kind), Error: "unknown tool"}, nil, nil
}

// mergeOrderArgs folds planner-supplied order fields into empty slots.
func mergeOrderArgs(st *dialog.SessionState, args map[string]any) {
	var in dialog.Slots
	if f, ok := args["item_id"].(float64); ok && f > 0 {
		id := uint(f)
		in.ItemID = &id
	}
	if f, ok := args["quantity"].(float64); ok && f > 0 {
		q := int(f)
		in.Quantity = &q
	}
	if s, ok := args["customer_name"].(string); ok && strings.TrimSpace(s) != "" {
		v := strings.TrimSpace(s)
		in.Name = &v
	}
	if s, ok := args["phone"].(string); ok && strings.TrimSpace(s) != "" {
		v := strings.TrimSpace(s)
		in.Phone = &v
	}
	if s, ok := args["address"].(string); ok && strings.TrimSpace(s) != "" {
		v := strings.TrimSpace(s)
		in.Address = &v
	}
	st.Slots.Merge(in)
}

func refsFromHits(hits []retrieval.Hit) []dialog.ItemRef {
	refs := make([]dialog.ItemRef, 0, len(hits))
	for _, h := range hits {
		refs = append(refs, refFromItem(h.Item))
	}
	return refs
}

func refFromItem(it store.Item) dialog.ItemRef {
	return dialog.ItemRef{ID: it.ID, Title: it.Title, Author: it.Author, Price: it.Price, Stock: it.Stock}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
