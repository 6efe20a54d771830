package dialog

// Phase is the dialogue state machine's current state for a session.
type Phase string

const (
	// PhaseCatalog is the initial browsing state.
	PhaseCatalog Phase = "catalog"
	// PhaseOrderCollect loops while order slots are filled one at a time.
	PhaseOrderCollect Phase = "order_collect"
	// PhaseAwaitConfirm shows the order summary and waits for OK / an edit.
	PhaseAwaitConfirm Phase = "await_confirm"
	// PhaseAwaitAdminDecision waits for the admin to approve or cancel.
	PhaseAwaitAdminDecision Phase = "await_admin_decision"
)

// Field names one order slot.
type Field string

const (
	FieldItem     Field = "item"
	FieldQuantity Field = "quantity"
	FieldName     Field = "name"
	FieldPhone    Field = "phone"
	FieldAddress  Field = "address"
)

// askPriority is the fixed order in which missing slots are solicited.
var askPriority = []Field{FieldItem, FieldQuantity, FieldName, FieldPhone, FieldAddress}

// Prompt identifies which slot the assistant most recently solicited.
type Prompt string

const (
	PromptNone      Prompt = ""
	PromptQuantity  Prompt = "ask_quantity"
	PromptPhone     Prompt = "ask_phone"
	PromptAddress   Prompt = "ask_address"
	PromptName      Prompt = "ask_name"
	PromptNewItem   Prompt = "ask_new_item"
	PromptEditField Prompt = "ask_edit_field"
)

// PromptFor maps a field to the prompt soliciting it.
func PromptFor(f Field) Prompt {
	switch f {
	case FieldQuantity:
		return PromptQuantity
	case FieldPhone:
		return PromptPhone
	case FieldAddress:
		return PromptAddress
	case FieldName:
		return PromptName
	case FieldItem:
		return PromptNewItem
	}
	return PromptNone
}

// Slots are the order fields collected across turns. Nil means unfilled.
type Slots struct {
	ItemID   *uint   `json:"item_id,omitempty"`
	Quantity *int    `json:"quantity,omitempty"`
	Name     *string `json:"customer_name,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	Address  *string `json:"address,omitempty"`
}

// Complete reports whether every slot required for submission is filled.
func (s Slots) Complete() bool {
	return s.ItemID != nil && s.Quantity != nil && s.Name != nil && s.Phone != nil && s.Address != nil
}

// Missing lists unfilled slots in ask-priority order.
func (s Slots) Missing() []Field {
	var missing []Field
	for _, f := range askPriority {
		if !s.filled(f) {
			missing = append(missing, f)
		}
	}
	return missing
}

func (s Slots) filled(f Field) bool {
	switch f {
	case FieldItem:
		return s.ItemID != nil
	case FieldQuantity:
		return s.Quantity != nil
	case FieldName:
		return s.Name != nil
	case FieldPhone:
		return s.Phone != nil
	case FieldAddress:
		return s.Address != nil
	}
	return false
}

// Merge fills empty slots from in. Already-filled slots are never overwritten,
// so re-sending the same utterance is idempotent.
func (s *Slots) Merge(in Slots) {
	if s.ItemID == nil && in.ItemID != nil {
		s.ItemID = in.ItemID
	}
	if s.Quantity == nil && in.Quantity != nil {
		s.Quantity = in.Quantity
	}
	if s.Name == nil && in.Name != nil {
		s.Name = in.Name
	}
	if s.Phone == nil && in.Phone != nil {
		s.Phone = in.Phone
	}
	if s.Address == nil && in.Address != nil {
		s.Address = in.Address
	}
}

// ItemRef is a slim item snapshot kept in state so follow-up references
// ("the first one", "id 7") can be resolved against the latest results.
type ItemRef struct {
	ID     uint   `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Price  int64  `json:"price"`
	Stock  int    `json:"stock"`
}

// SessionState is the ephemeral per-session dialogue state.
type SessionState struct {
	SessionID  string    `json:"session_id"`
	Phase      Phase     `json:"phase"`
	Slots      Slots     `json:"slots"`
	LastPrompt Prompt    `json:"last_prompt"`
	LastHits   []ItemRef `json:"last_hits,omitempty"`
}

// NewSessionState creates the initial state for a session.
func NewSessionState(sessionID string) *SessionState {
	return &SessionState{SessionID: sessionID, Phase: PhaseCatalog}
}

// StartNewPurchase clears the item and quantity slots for a fresh order while
// keeping the buyer contact details already known, and re-enters collection.
func (st *SessionState) StartNewPurchase() {
	st.Slots.ItemID = nil
	st.Slots.Quantity = nil
	st.LastPrompt = PromptNone
	st.Phase = PhaseOrderCollect
}

// Clone deep-copies the state so stores can hand out safe snapshots.
func (st *SessionState) Clone() *SessionState {
	c := *st
	c.Slots = cloneSlots(st.Slots)
	c.LastHits = append([]ItemRef(nil), st.LastHits...)
	return &c
}

func cloneSlots(s Slots) Slots {
	var out Slots
	if s.ItemID != nil {
		v := *s.ItemID
		out.ItemID = &v
	}
	if s.Quantity != nil {
		v := *s.Quantity
		out.Quantity = &v
	}
	if s.Name != nil {
		v := *s.Name
		out.Name = &v
	}
	if s.Phone != nil {
		v := *s.Phone
		out.Phone = &v
	}
	if s.Address != nil {
		v := *s.Address
		out.Address = &v
	}
	return out
}
