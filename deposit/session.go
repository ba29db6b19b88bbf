package deposit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/majorphones/topup/infra/audit"
	"github.com/majorphones/topup/infra/logger"
	"github.com/majorphones/topup/infra/metrics"
	"github.com/majorphones/topup/wallet"
)

// Phase is a provider family's current lifecycle phase
type Phase int

const (
	// PhaseIdle is the resting state
	PhaseIdle Phase = iota
	// PhaseProcessing means a submission for this family is in flight. At
	// most one family may be processing at a time.
	PhaseProcessing
	// PhaseLocked is the sticky terminal state entered on an authorization
	// rejection. It is not cleared by further user action short of a
	// session reset.
	PhaseLocked
	// PhaseFailed holds a dismissible error message
	PhaseFailed
)

// ProviderState is the tagged per-family state replacing the boolean sprawl
// of independent processing/locked/message flags.
type ProviderState struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message,omitempty"`
}

// FamilyPolicy captures deliberate per-family behavioral differences
type FamilyPolicy struct {
	// PreserveSelectionOnLock keeps the in-progress method/amount selection
	// visible after a sticky lock, so the user can see what failed. Only
	// the cryptomus family behaves this way.
	PreserveSelectionOnLock bool
}

// OutcomeKind tags a successful submission's result
type OutcomeKind string

const (
	// OutcomeRedirect carries a URL the whole page must navigate to.
	// Terminal: no further session state matters.
	OutcomeRedirect OutcomeKind = "redirect"
	// OutcomeWidget carries a signed checkout session for the embedded
	// widget.
	OutcomeWidget OutcomeKind = "widget"
)

// Outcome is the result of a successful submission
type Outcome struct {
	Kind        OutcomeKind    `json:"kind"`
	RedirectURL string         `json:"redirectUrl,omitempty"`
	Widget      *WidgetSession `json:"widget,omitempty"`
}

// Session coordinates method selection, amount entry and submission for one
// user. It owns the per-family processing/lock state.
type Session struct {
	mu     sync.Mutex
	userID string

	catalog    *Catalog
	dispatcher *Dispatcher
	widget     *WidgetFlow
	wallets    *wallet.Service
	audit      *audit.Logger

	method    *Method
	sub       *SubMethod
	rawAmount string

	asset   wallet.AssetID
	address string

	states   map[Family]ProviderState
	policies map[Family]FamilyPolicy
}

// DefaultPolicies returns the per-family policy table
func DefaultPolicies() map[Family]FamilyPolicy {
	return map[Family]FamilyPolicy{
		FamilyCryptomus: {PreserveSelectionOnLock: true},
	}
}

func newSession(userID string, deps Deps) *Session {
	return &Session{
		userID:     userID,
		catalog:    deps.Catalog,
		dispatcher: deps.Dispatcher,
		widget:     deps.Widget,
		wallets:    deps.Wallets,
		audit:      deps.Audit,
		states: map[Family]ProviderState{
			FamilyCryptomus: {},
			FamilyGateway:   {},
			FamilyWallet:    {},
		},
		policies: DefaultPolicies(),
	}
}

// Snapshot is a read-only view of the session for API responses
type Snapshot struct {
	MethodID    string                   `json:"methodId,omitempty"`
	SubMethodID string                   `json:"subMethodId,omitempty"`
	Amount      string                   `json:"amount,omitempty"`
	Asset       string                   `json:"asset,omitempty"`
	Address     string                   `json:"address,omitempty"`
	States      map[Family]ProviderState `json:"states"`
}

// Snapshot returns the current selection and family states
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Amount:  s.rawAmount,
		Asset:   string(s.asset),
		Address: s.address,
		States:  make(map[Family]ProviderState, len(s.states)),
	}
	if s.method != nil {
		snap.MethodID = s.method.ID
	}
	if s.sub != nil {
		snap.SubMethodID = s.sub.ID
	}
	for f, st := range s.states {
		snap.States[f] = st
	}
	return snap
}

// SelectMethod selects a payment method, clearing the previous method's
// amount and sub-method. Sticky locks and other families' states are left
// untouched.
func (s *Session) SelectMethod(id string) (*Method, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.anyProcessing() {
		return nil, fmt.Errorf("a deposit is already in progress")
	}

	m, err := s.catalog.Resolve(id)
	if err != nil {
		return nil, err
	}

	if s.method != nil && s.method.ID == m.ID {
		return m, nil
	}

	// Keep the sub-method only when it belongs to the newly selected
	// container.
	if s.sub != nil {
		if _, owns := m.Sub(s.sub.ID); !owns {
			s.sub = nil
		}
	}

	s.method = m
	s.rawAmount = ""
	return m, nil
}

// SelectSubMethod chooses a sub-method of the selected composite method
func (s *Session) SelectSubMethod(id string) (*SubMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.method == nil {
		return nil, fmt.Errorf("select a payment method first")
	}
	if s.method.Strategy != StrategyComposite {
		return nil, fmt.Errorf("payment method '%s' has no sub-methods", s.method.ID)
	}

	sub, ok := s.method.Sub(id)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a sub-method of '%s'", id, s.method.ID)
	}

	s.sub = sub
	return sub, nil
}

// EnterAmount applies the edit-time filter to a keystroke and returns the
// resulting amount string. Input is refused entirely while the selected
// method's family is processing or locked.
func (s *Session) EnterAmount(next string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.method == nil {
		return "", fmt.Errorf("select a payment method first")
	}

	st := s.states[s.method.Family]
	if st.Phase == PhaseProcessing || st.Phase == PhaseLocked {
		return s.rawAmount, fmt.Errorf("amount entry is disabled for this payment method")
	}

	s.rawAmount = SanitizeInput(s.rawAmount, next)
	return s.rawAmount, nil
}

// Submit validates the current selection and creates the backend order. On
// success the returned outcome is terminal for the attempt: either a
// redirect URL or a widget session.
func (s *Session) Submit(ctx context.Context) (*Outcome, error) {
	s.mu.Lock()

	if s.method == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("select a payment method first")
	}

	m, sub := s.method, s.sub
	fam := m.Family

	if st := s.states[fam]; st.Phase == PhaseLocked {
		s.mu.Unlock()
		return nil, fmt.Errorf("this payment method is locked: %s", st.Message)
	}
	if s.anyProcessing() {
		s.mu.Unlock()
		return nil, fmt.Errorf("a deposit is already in progress")
	}

	if m.Strategy == StrategyStaticWallet {
		s.mu.Unlock()
		return nil, fmt.Errorf("choose an asset to receive a deposit address")
	}
	if m.Strategy == StrategyComposite && sub == nil {
		s.mu.Unlock()
		return nil, fmt.Errorf("choose a payment option for %s first", m.Name)
	}

	amount, err := ValidateSubmit(s.rawAmount, m)
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}

	s.states[fam] = ProviderState{Phase: PhaseProcessing}
	s.mu.Unlock()

	metrics.DepositAttempts.WithLabelValues(string(fam)).Inc()
	attemptID := uuid.New().String()
	start := time.Now()

	var outcome *Outcome
	var submitErr error

	switch m.Strategy {
	case StrategyEmbeddedWidget:
		ws, err := s.widget.CreateSession(ctx, s.userID, amount)
		if err != nil {
			submitErr = err
		} else {
			outcome = &Outcome{Kind: OutcomeWidget, Widget: ws}
		}
	default:
		order, err := s.dispatcher.CreateOrder(ctx, m, sub, amount)
		if err != nil {
			submitErr = err
		} else {
			outcome = &Outcome{Kind: OutcomeRedirect, RedirectURL: order.RedirectURL}
		}
	}

	s.finalize(ctx, fam, m, amount, attemptID, start, outcome, submitErr)
	return outcome, submitErr
}

// finalize applies the submission result to the family state and records
// the attempt.
func (s *Session) finalize(ctx context.Context, fam Family, m *Method, amount float64, attemptID string, start time.Time, outcome *Outcome, submitErr error) {
	s.mu.Lock()

	outcomeLabel := ""
	message := ""

	if submitErr == nil {
		s.states[fam] = ProviderState{Phase: PhaseIdle}
		s.clearSelection()
		outcomeLabel = string(outcome.Kind)
	} else {
		oe, ok := submitErr.(*OrderError)
		if !ok {
			oe = &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
		}
		outcomeLabel = string(oe.Kind)
		message = oe.Message

		if oe.Sticky() {
			s.states[fam] = ProviderState{Phase: PhaseLocked, Message: oe.Message}
			if !s.policies[fam].PreserveSelectionOnLock {
				s.clearSelection()
			}
		} else {
			s.states[fam] = ProviderState{Phase: PhaseFailed, Message: oe.Message}
			s.clearSelection()
		}
	}
	s.mu.Unlock()

	metrics.DepositOutcomes.WithLabelValues(string(fam), outcomeLabel).Inc()

	if err := s.audit.LogAttempt(ctx, audit.AttemptLog{
		AttemptID:    attemptID,
		UserID:       s.userID,
		Method:       m.ID,
		Family:       string(fam),
		Amount:       amount,
		Outcome:      outcomeLabel,
		Message:      message,
		ProcessingMs: time.Since(start).Milliseconds(),
	}); err != nil {
		logger.Warn("failed to audit deposit attempt", logger.LogContext{
			UserID: s.userID,
			Family: string(fam),
			Fields: map[string]any{"error": err.Error()},
		})
	}
}

// clearSelection drops the in-progress method, sub-method, amount and any
// held wallet selection. Callers hold the mutex.
func (s *Session) clearSelection() {
	s.method = nil
	s.sub = nil
	s.rawAmount = ""
	s.asset = ""
	s.address = ""
}

// CompleteWidget finishes a pending embedded-widget deposit after the
// provider redirects back with a checkout session id.
func (s *Session) CompleteWidget(ctx context.Context, checkoutSessionID string) error {
	err := s.widget.Complete(ctx, s.userID, checkoutSessionID)

	s.mu.Lock()
	if err != nil {
		oe, ok := err.(*OrderError)
		if !ok {
			oe = &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
		}
		if oe.Sticky() {
			s.states[FamilyGateway] = ProviderState{Phase: PhaseLocked, Message: oe.Message}
		} else {
			s.states[FamilyGateway] = ProviderState{Phase: PhaseFailed, Message: oe.Message}
		}
	} else {
		s.states[FamilyGateway] = ProviderState{Phase: PhaseIdle}
		s.clearSelection()
	}
	s.mu.Unlock()

	return err
}

// Dismiss clears a family's dismissible error. Locks stay.
func (s *Session) Dismiss(f Family) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if st, ok := s.states[f]; ok && st.Phase == PhaseFailed {
		s.states[f] = ProviderState{Phase: PhaseIdle}
	}
}

// State returns one family's current state
func (s *Session) State(f Family) ProviderState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.states[f]
}

// SelectAsset selects a static-wallet asset. Re-selecting the held asset
// toggles it off; selecting a different one always re-reads the store, so a
// stale address can never be shown.
func (s *Session) SelectAsset(ctx context.Context, id wallet.AssetID) (*wallet.Result, error) {
	s.mu.Lock()

	if st := s.states[FamilyWallet]; st.Phase == PhaseLocked {
		s.mu.Unlock()
		return nil, fmt.Errorf("wallet deposits are locked: %s", st.Message)
	}

	if s.asset == id {
		s.asset = ""
		s.address = ""
		s.mu.Unlock()
		return nil, nil
	}
	s.mu.Unlock()

	res, err := s.wallets.EnsureAddress(ctx, s.userID, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.applyWalletError(err)
		return nil, err
	}

	s.asset = id
	if res.State == wallet.Ready {
		s.address = res.Address
	} else {
		s.address = ""
	}
	return res, nil
}

// GenerateAddress runs the one-time generation call for the selected asset.
// It is only ever reached through an explicit user confirmation.
func (s *Session) GenerateAddress(ctx context.Context) (*wallet.Result, error) {
	s.mu.Lock()
	if st := s.states[FamilyWallet]; st.Phase == PhaseLocked {
		s.mu.Unlock()
		return nil, fmt.Errorf("wallet deposits are locked: %s", st.Message)
	}
	if s.asset == "" {
		s.mu.Unlock()
		return nil, fmt.Errorf("select an asset first")
	}
	id := s.asset
	s.mu.Unlock()

	res, err := s.wallets.Generate(ctx, s.userID, id)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.applyWalletError(err)
		return nil, err
	}

	if res.State == wallet.Ready {
		s.address = res.Address
	}
	return res, nil
}

// applyWalletError maps a wallet failure onto the wallet family state.
// Callers hold the mutex.
func (s *Session) applyWalletError(err error) {
	werr, ok := err.(*wallet.WalletError)
	if !ok {
		s.states[FamilyWallet] = ProviderState{Phase: PhaseFailed, Message: "something went wrong, please contact support"}
		return
	}

	switch werr.Kind {
	case wallet.ErrUnauthenticated:
		// No identity is terminal for wallet operations until reload.
		s.states[FamilyWallet] = ProviderState{Phase: PhaseLocked, Message: werr.Message}
	case wallet.ErrBusy:
		// Transient gate contention; not a family failure.
	default:
		s.states[FamilyWallet] = ProviderState{Phase: PhaseFailed, Message: werr.Message}
	}
}

func (s *Session) anyProcessing() bool {
	for _, st := range s.states {
		if st.Phase == PhaseProcessing {
			return true
		}
	}
	return false
}

// Deps are the collaborators a session needs
type Deps struct {
	Catalog    *Catalog
	Dispatcher *Dispatcher
	Widget     *WidgetFlow
	Wallets    *wallet.Service
	Audit      *audit.Logger
}

// Manager hands out one session per user
type Manager struct {
	mu       sync.Mutex
	deps     Deps
	sessions map[string]*Session
}

// NewManager creates a session manager
func NewManager(deps Deps) *Manager {
	if deps.Catalog == nil {
		deps.Catalog = NewCatalog()
	}
	return &Manager{
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Catalog returns the method catalog sessions are built on
func (m *Manager) Catalog() *Catalog {
	return m.deps.Catalog
}

// Session returns the session for a user, creating it on first use
func (m *Manager) Session(userID string) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[userID]; ok {
		return s
	}
	s := newSession(userID, m.deps)
	m.sessions[userID] = s
	return s
}

// Reset drops a user's session, clearing sticky locks. This is the
// server-side analog of a full page reload.
func (m *Manager) Reset(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}
