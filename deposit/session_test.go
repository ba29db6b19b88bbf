package deposit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/majorphones/topup/wallet"
)

type fakeWalletStore struct {
	docs map[string]*wallet.Document
}

func (f *fakeWalletStore) GetDocument(ctx context.Context, userID string) (*wallet.Document, error) {
	doc, ok := f.docs[userID]
	if !ok {
		return nil, wallet.ErrUserRecordMissing
	}
	return doc, nil
}

type sessionFixture struct {
	manager  *Manager
	session  *Session
	requests *atomic.Int64
	server   *httptest.Server
}

// newSessionFixture wires a session against a fake backend. The handler
// controls every order endpoint response; requests counts order calls.
func newSessionFixture(t *testing.T, backend http.HandlerFunc) *sessionFixture {
	t.Helper()

	requests := &atomic.Int64{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		backend(w, r)
	}))
	t.Cleanup(server.Close)

	client := testClient()
	tokens := testTokens()
	store := newTestOrderStore(t)

	walletStore := &fakeWalletStore{docs: map[string]*wallet.Document{
		"user-1": {UserID: "user-1", Addresses: map[string]string{"eth_eth": "0xabc"}},
	}}

	manager := NewManager(Deps{
		Catalog: NewCatalog(),
		Dispatcher: NewDispatcher(client, tokens, map[Family]string{
			FamilyCryptomus: server.URL,
			FamilyGateway:   server.URL,
		}),
		Widget:  NewWidgetFlow(client, tokens, server.URL, server.URL, store),
		Wallets: wallet.NewService(walletStore, client, tokens, server.URL),
	})

	return &sessionFixture{
		manager:  manager,
		session:  manager.Session("user-1"),
		requests: requests,
		server:   server,
	}
}

func successBackend(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"success":true,"url":"https://pay/x"}`))
}

func unauthorizedBackend(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte("Unauthorized"))
}

func TestSessionSelectingNewMethodClearsAmountAndSubMethod(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectSubMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("25"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}

	snap := s.Snapshot()
	if snap.Amount != "" {
		t.Errorf("amount = %q after switching method, want empty", snap.Amount)
	}
	if snap.SubMethodID != "" {
		t.Errorf("sub-method = %q after switching method, want empty", snap.SubMethodID)
	}
}

func TestSessionSwitchingContainerClearsForeignSubMethod(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectSubMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectMethod("asia"); err != nil {
		t.Fatal(err)
	}

	if snap := s.Snapshot(); snap.SubMethodID != "" {
		t.Errorf("sub-method = %q after switching container, want empty", snap.SubMethodID)
	}
}

func TestSessionBelowMinimumSubmitMakesNoNetworkCall(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("4.99"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected a below-minimum rejection")
	}

	if got := fx.requests.Load(); got != 0 {
		t.Errorf("backend received %d requests, want 0", got)
	}
	if st := s.State(FamilyCryptomus); st.Phase != PhaseIdle {
		t.Errorf("family phase = %v after local rejection, want idle", st.Phase)
	}
}

func TestSessionSubmitRedirect(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}

	outcome, err := s.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit() error = %v", err)
	}

	if outcome.Kind != OutcomeRedirect {
		t.Fatalf("outcome kind = %v, want redirect", outcome.Kind)
	}
	if outcome.RedirectURL != "https://pay/x" {
		t.Errorf("redirect URL = %q, want %q", outcome.RedirectURL, "https://pay/x")
	}
	if st := s.State(FamilyCryptomus); st.Phase != PhaseIdle {
		t.Errorf("family phase = %v after success, want idle", st.Phase)
	}
}

func TestSessionAuthorizationRejectionLocksFamily(t *testing.T) {
	fx := newSessionFixture(t, unauthorizedBackend)
	s := fx.session

	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectSubMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("25"); err != nil {
		t.Fatal(err)
	}

	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected an authorization rejection")
	}

	if st := s.State(FamilyGateway); st.Phase != PhaseLocked {
		t.Fatalf("gateway phase = %v after 401, want locked", st.Phase)
	}
	// Other families are untouched.
	if st := s.State(FamilyCryptomus); st.Phase != PhaseIdle {
		t.Errorf("cryptomus phase = %v, want idle", st.Phase)
	}

	// The lock is sticky: no further submissions for this family.
	before := fx.requests.Load()
	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectSubMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected a locked family to reject submission")
	}
	if got := fx.requests.Load(); got != before {
		t.Errorf("backend received %d extra requests after lock", got-before)
	}

	// Amount entry is disabled for the locked family's methods.
	if _, err := s.EnterAmount("30"); err == nil {
		t.Error("expected amount entry to be disabled while locked")
	}
}

func TestSessionGatewayLockClearsSelection(t *testing.T) {
	fx := newSessionFixture(t, unauthorizedBackend)
	s := fx.session

	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.SelectSubMethod("pix"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("25"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected an authorization rejection")
	}

	snap := s.Snapshot()
	if snap.MethodID != "" || snap.Amount != "" || snap.SubMethodID != "" {
		t.Errorf("gateway lock should clear the selection, got %+v", snap)
	}
}

func TestSessionCryptomusLockPreservesSelection(t *testing.T) {
	fx := newSessionFixture(t, unauthorizedBackend)
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected an authorization rejection")
	}

	// Deliberate per-family policy: the failed cryptomus context stays
	// visible so the user can see what was rejected.
	snap := s.Snapshot()
	if snap.MethodID != "cryptomus" {
		t.Errorf("method = %q after cryptomus lock, want preserved", snap.MethodID)
	}
	if snap.Amount != "5" {
		t.Errorf("amount = %q after cryptomus lock, want preserved", snap.Amount)
	}
}

func TestSessionTransientFailureIsDismissible(t *testing.T) {
	fx := newSessionFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected a failure")
	}

	if st := s.State(FamilyCryptomus); st.Phase != PhaseFailed || st.Message == "" {
		t.Fatalf("state after transient failure = %+v, want failed with message", st)
	}

	s.Dismiss(FamilyCryptomus)
	if st := s.State(FamilyCryptomus); st.Phase != PhaseIdle {
		t.Errorf("phase after dismiss = %v, want idle", st.Phase)
	}

	// Transient failures do not lock: a corrected retry goes through.
	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("backend still failing, expected an error")
	}
	if st := s.State(FamilyCryptomus); st.Phase == PhaseLocked {
		t.Error("transient failures must not lock the family")
	}
}

func TestSessionDismissDoesNotClearLock(t *testing.T) {
	fx := newSessionFixture(t, unauthorizedBackend)
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected an authorization rejection")
	}

	s.Dismiss(FamilyCryptomus)
	if st := s.State(FamilyCryptomus); st.Phase != PhaseLocked {
		t.Errorf("phase after dismissing a lock = %v, want still locked", st.Phase)
	}
}

func TestManagerResetClearsLock(t *testing.T) {
	fx := newSessionFixture(t, unauthorizedBackend)
	s := fx.session

	if _, err := s.SelectMethod("cryptomus"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("5"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected an authorization rejection")
	}
	if st := s.State(FamilyCryptomus); st.Phase != PhaseLocked {
		t.Fatalf("phase = %v, want locked", st.Phase)
	}

	// A reset is the only way out of a lock, mirroring a page reload.
	fx.manager.Reset("user-1")
	fresh := fx.manager.Session("user-1")
	if st := fresh.State(FamilyCryptomus); st.Phase != PhaseIdle {
		t.Errorf("phase after reset = %v, want idle", st.Phase)
	}
}

func TestSessionStaticWalletMethodRejectsSubmit(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("crypto-wallet"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Error("static wallet method must require an asset selection, not a submission")
	}
}

func TestSessionCompositeRequiresSubMethod(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	if _, err := s.SelectMethod("latam"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.EnterAmount("25"); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Submit(context.Background()); err == nil {
		t.Fatal("expected submission to be blocked without a sub-method")
	}
	if got := fx.requests.Load(); got != 0 {
		t.Errorf("backend received %d requests, want 0", got)
	}
}

func TestSessionSelectAssetToggle(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	res, err := s.SelectAsset(context.Background(), wallet.AssetETH)
	if err != nil {
		t.Fatalf("SelectAsset() error = %v", err)
	}
	if res.State != wallet.Ready || res.Address != "0xabc" {
		t.Fatalf("SelectAsset() = %+v, want ready 0xabc", res)
	}

	// Re-selecting toggles off without touching the store.
	res, err = s.SelectAsset(context.Background(), wallet.AssetETH)
	if err != nil {
		t.Fatalf("toggle error = %v", err)
	}
	if res != nil {
		t.Errorf("toggle returned %+v, want nil", res)
	}
	if snap := s.Snapshot(); snap.Asset != "" || snap.Address != "" {
		t.Errorf("snapshot after toggle = %+v, want no asset", snap)
	}
}

func TestSessionSelectAssetNeedsGeneration(t *testing.T) {
	fx := newSessionFixture(t, successBackend)
	s := fx.session

	res, err := s.SelectAsset(context.Background(), wallet.AssetBTC)
	if err != nil {
		t.Fatalf("SelectAsset() error = %v", err)
	}
	if res.State != wallet.NeedsGeneration {
		t.Errorf("state = %v for missing btc field, want NeedsGeneration", res.State)
	}
}
