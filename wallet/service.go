package wallet

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"

	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/httpclient"
	"github.com/majorphones/topup/infra/logger"
	"github.com/majorphones/topup/infra/metrics"
)

// ErrorKind classifies wallet provisioning failures
type ErrorKind string

const (
	ErrUnauthenticated  ErrorKind = "unauthenticated"
	ErrRecordMissing    ErrorKind = "user_record_missing"
	ErrBusy             ErrorKind = "busy"
	ErrGenerationFailed ErrorKind = "generation_failed"
	ErrAssetUnsupported ErrorKind = "asset_unsupported"
)

// WalletError is a typed provisioning failure
type WalletError struct {
	Kind    ErrorKind
	Message string
}

func (e *WalletError) Error() string {
	return fmt.Sprintf("wallet: %s: %s", e.Kind, e.Message)
}

// ResultState describes the outcome of an address lookup
type ResultState int

const (
	// Ready means the user already holds an address for the asset
	Ready ResultState = iota
	// NeedsGeneration means the user's document exists but the asset field
	// is empty. Generation requires an explicit user confirmation; the
	// service never triggers it on its own.
	NeedsGeneration
)

// Result is the outcome of EnsureAddress or Generate
type Result struct {
	State   ResultState
	Asset   Asset
	Address string
}

// Service implements fetch-or-generate address provisioning. At most one
// provisioning operation may be in flight at a time across all assets; the
// generation endpoint is not guaranteed idempotent under concurrent calls
// for the same user.
type Service struct {
	store       Store
	client      *httpclient.Client
	tokens      identity.TokenSource
	generateURL string
	inflight    atomic.Bool
}

// NewService creates a wallet provisioning service
func NewService(store Store, client *httpclient.Client, tokens identity.TokenSource, generateURL string) *Service {
	return &Service{
		store:       store,
		client:      client,
		tokens:      tokens,
		generateURL: generateURL,
	}
}

// Busy reports whether a provisioning operation is currently in flight
func (s *Service) Busy() bool {
	return s.inflight.Load()
}

func (s *Service) acquire() bool {
	return s.inflight.CompareAndSwap(false, true)
}

func (s *Service) release() {
	s.inflight.Store(false)
}

// EnsureAddress looks up the user's address for an asset. It never triggers
// generation: an empty field is reported as NeedsGeneration and the caller
// must obtain an explicit confirmation before calling Generate.
func (s *Service) EnsureAddress(ctx context.Context, userID string, id AssetID) (*Result, error) {
	if !s.acquire() {
		return nil, &WalletError{Kind: ErrBusy, Message: "another wallet operation is in progress"}
	}
	defer s.release()

	res, err := s.fetch(ctx, userID, id)
	s.count(id, res, err)
	return res, err
}

// Generate invokes the one-time generation endpoint for an asset and then
// re-reads the store for the freshly populated address. Generation does not
// return the address directly; the store is the source of truth.
func (s *Service) Generate(ctx context.Context, userID string, id AssetID) (*Result, error) {
	if !s.acquire() {
		return nil, &WalletError{Kind: ErrBusy, Message: "another wallet operation is in progress"}
	}
	defer s.release()

	// Reuse guard: if an address already exists, generation must not run.
	current, err := s.fetch(ctx, userID, id)
	if err != nil {
		s.count(id, nil, err)
		return nil, err
	}
	if current.State == Ready {
		return current, nil
	}

	token, err := s.tokens.Token(ctx)
	if err != nil {
		return nil, &WalletError{Kind: ErrUnauthenticated, Message: "sign in to generate an address"}
	}

	resp, err := s.client.SendJSON(ctx, &httpclient.Request{
		Method:   http.MethodGet,
		Endpoint: s.generateURL,
		// The observed backend contract takes the raw token, without a
		// "Bearer " prefix.
		Headers: map[string]string{"Authorization": token},
	})
	if err != nil {
		logger.Error("wallet generation request failed", err, logger.LogContext{
			UserID: userID,
			Fields: map[string]any{"asset": string(id)},
		})
		werr := &WalletError{Kind: ErrGenerationFailed, Message: "address generation failed, please try again"}
		s.count(id, nil, werr)
		return nil, werr
	}

	var genResp struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	_ = s.client.ParseJSON(resp, &genResp)

	// The endpoint has been observed returning 200 with a plain error
	// message in the body; treat that the same as a failing status.
	if !resp.OK() || genResp.Message == "Internal Server Error" {
		logger.Warn("wallet generation rejected", logger.LogContext{
			UserID: userID,
			Fields: map[string]any{"asset": string(id), "status": resp.StatusCode},
		})
		werr := &WalletError{Kind: ErrGenerationFailed, Message: "address generation failed, please try again"}
		s.count(id, nil, werr)
		return nil, werr
	}

	// Re-read through the same per-asset fetch routine that was originally
	// requested; the generated address is only visible in the store.
	res, err := s.fetch(ctx, userID, id)
	s.count(id, res, err)
	return res, err
}

// fetch is the single parameterized per-asset read routine
func (s *Service) fetch(ctx context.Context, userID string, id AssetID) (*Result, error) {
	asset, ok := Lookup(id)
	if !ok {
		return nil, &WalletError{Kind: ErrAssetUnsupported, Message: string(id)}
	}

	if userID == "" {
		return nil, &WalletError{Kind: ErrUnauthenticated, Message: "sign in to view your deposit address"}
	}
	if _, err := s.tokens.Token(ctx); err != nil {
		return nil, &WalletError{Kind: ErrUnauthenticated, Message: "sign in to view your deposit address"}
	}

	doc, err := s.store.GetDocument(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserRecordMissing) {
			return nil, &WalletError{Kind: ErrRecordMissing, Message: "account record not found, contact support"}
		}
		return nil, &WalletError{Kind: ErrGenerationFailed, Message: "could not read wallet record"}
	}

	if addr, ok := doc.Address(asset); ok {
		return &Result{State: Ready, Asset: *asset, Address: addr}, nil
	}

	return &Result{State: NeedsGeneration, Asset: *asset}, nil
}

func (s *Service) count(id AssetID, res *Result, err error) {
	switch {
	case err != nil:
		kind := "error"
		if werr, ok := err.(*WalletError); ok {
			kind = string(werr.Kind)
		}
		metrics.WalletOperations.WithLabelValues(string(id), kind).Inc()
	case res != nil && res.State == Ready:
		metrics.WalletOperations.WithLabelValues(string(id), "ready").Inc()
	case res != nil:
		metrics.WalletOperations.WithLabelValues(string(id), "needs_generation").Inc()
	}
}
