package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/majorphones/topup/deposit"
	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/response"
	"github.com/majorphones/topup/wallet"
)

// WalletHandler handles static-wallet HTTP requests
type WalletHandler struct {
	sessions *deposit.Manager
	validate *validator.Validate
}

// NewWalletHandler creates a new wallet handler
func NewWalletHandler(sessions *deposit.Manager, validate *validator.Validate) *WalletHandler {
	return &WalletHandler{
		sessions: sessions,
		validate: validate,
	}
}

func (h *WalletHandler) session(r *http.Request) (*deposit.Session, error) {
	user, err := identity.UserFromContext(r.Context())
	if err != nil {
		return nil, err
	}
	return h.sessions.Session(user.ID), nil
}

// ListAssets returns the supported static-wallet assets
func (h *WalletHandler) ListAssets(w http.ResponseWriter, r *http.Request) {
	type assetView struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Network string `json:"network"`
	}

	assets := make([]assetView, 0, len(wallet.Assets))
	for _, a := range wallet.Assets {
		assets = append(assets, assetView{ID: string(a.ID), Name: a.Name, Network: a.Network})
	}
	response.Success(w, http.StatusOK, "Supported assets", assets)
}

type selectAssetRequest struct {
	Asset string `json:"asset" validate:"required"`
}

type walletResultView struct {
	Asset           string `json:"asset,omitempty"`
	Network         string `json:"network,omitempty"`
	Address         string `json:"address,omitempty"`
	NeedsGeneration bool   `json:"needsGeneration,omitempty"`
	Deselected      bool   `json:"deselected,omitempty"`
}

// SelectAsset selects (or toggles off) a static-wallet asset
func (h *WalletHandler) SelectAsset(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	var req selectAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		response.Error(w, http.StatusBadRequest, "Validation error", err)
		return
	}

	res, err := sess.SelectAsset(r.Context(), wallet.AssetID(req.Asset))
	if err != nil {
		response.Error(w, walletErrorStatus(err), "Asset selection failed", err)
		return
	}

	if res == nil {
		response.Success(w, http.StatusOK, "Asset deselected", walletResultView{Deselected: true})
		return
	}

	response.Success(w, http.StatusOK, "Asset selected", walletResultView{
		Asset:           string(res.Asset.ID),
		Network:         res.Asset.Network,
		Address:         res.Address,
		NeedsGeneration: res.State == wallet.NeedsGeneration,
	})
}

// GenerateAddress runs the explicit, user-confirmed generation call
func (h *WalletHandler) GenerateAddress(w http.ResponseWriter, r *http.Request) {
	sess, err := h.session(r)
	if err != nil {
		response.Error(w, http.StatusUnauthorized, "Authentication required", err)
		return
	}

	res, err := sess.GenerateAddress(r.Context())
	if err != nil {
		response.Error(w, walletErrorStatus(err), "Address generation failed", err)
		return
	}

	response.Success(w, http.StatusOK, "Address ready", walletResultView{
		Asset:           string(res.Asset.ID),
		Network:         res.Asset.Network,
		Address:         res.Address,
		NeedsGeneration: res.State == wallet.NeedsGeneration,
	})
}

func walletErrorStatus(err error) int {
	werr, ok := err.(*wallet.WalletError)
	if !ok {
		return http.StatusUnprocessableEntity
	}
	switch werr.Kind {
	case wallet.ErrUnauthenticated:
		return http.StatusUnauthorized
	case wallet.ErrBusy:
		return http.StatusConflict
	default:
		return http.StatusUnprocessableEntity
	}
}
