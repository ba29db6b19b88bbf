package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/majorphones/topup/deposit"
	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/response"
)

// DepositHandler handles deposit flow HTTP requests
type DepositHandler struct {
	sessions *deposit.Manager
	validate *validator.Validate
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(sessions *deposit.Manager, validate *validator.Validate) *DepositHandler {
	return &DepositHandler{
		sessions: sessions,
		validate: validate,
	}
}

func (h *DepositHandler) session(r *http.Request) (*deposit.Session, error) {
	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	return h.sessions.Session(user.ID), nil
}

// ListMethods returns the available payment methods
func (h *DepositHandler) ListMethods(w http.ResponseWriter, r *http.Request) {
	response.Success(w, http.StatusOK, "Payment methods", h.sessions.Catalog().Methods())
}

type selectRequest struct {
	MethodID    string `json:"methodId" validate:"required"`
	SubMethodID string `json:"subMethodId,omitempty"`
}

// SelectMethod selects a payment method (and optionally a sub-method)
func (h *DepositHandler) SelectMethod(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	var req selectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	if _, err := sess.SelectMethod(req.MethodID); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "Method selection rejected", err)
		return
	}

	if req.SubMethodID != "" {
		if _, err := sess.SelectSubMethod(req.SubMethodID); err != nil {
			response.Error(w, http.StatusUnprocessableEntity, "Sub-method selection rejected", err)
			return
		}
	}

	response.Success(w, http.StatusOK, "Method selected", sess.Snapshot())
}

type amountRequest struct {
	Amount string `json:"amount" validate:"required"`
}

// EnterAmount applies the edit-time amount filter
func (h *DepositHandler) EnterAmount(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	if _, err := sess.EnterAmount(req.Amount); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "Amount entry rejected", err)
		return
	}

	response.Success(w, http.StatusOK, "Amount updated", sess.Snapshot())
}

// Submit validates and submits the current selection
func (h *DepositHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	outcome, err := sess.Submit(r.Context())
	if err != nil {
		var oe *deposit.OrderError
		if errors.As(err, &oe) && oe.Kind == deposit.ErrAuthorizationRejected {
			response.Error(w, http.StatusUnauthorized, "Deposit rejected", err)
			return
		}
		response.Error(w, http.StatusUnprocessableEntity, "Deposit rejected", err)
		return
	}

	response.Success(w, http.StatusOK, "Deposit submitted", outcome)
}

type widgetCompleteRequest struct {
	CheckoutSessionID string `json:"checkoutSessionId" validate:"required"`
}

// CompleteWidget finishes a pending embedded-widget deposit
func (h *DepositHandler) CompleteWidget(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	var req widgetCompleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	if err := sess.CompleteWidget(r.Context(), req.CheckoutSessionID); err != nil {
		response.Error(w, http.StatusUnprocessableEntity, "Payment could not be confirmed", err)
		return
	}

	response.Success(w, http.StatusOK, "Payment confirmed", nil)
}

// ResetSession drops the caller's session entirely, clearing sticky locks.
// This is the server-side analog of a full page reload.
func (h *DepositHandler) ResetSession(w http.ResponseWriter, r *http.Request) {
	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	h.sessions.Reset(user.ID)
	response.Success(w, http.StatusOK, "Session reset", nil)
}

type dismissRequest struct {
	Family string `json:"family" validate:"required"`
}

// DismissError clears a family's dismissible error state
func (h *DepositHandler) DismissError(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	var req dismissRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	sess.Dismiss(deposit.Family(req.Family))
	response.Success(w, http.StatusOK, "Dismissed", sess.Snapshot())
}
