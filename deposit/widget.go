package deposit

import (
	"context"
	"math"
	"net/http"

	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/httpclient"
	"github.com/majorphones/topup/infra/logger"
)

// WidgetFlatFee is the fixed fee added to every embedded-widget deposit. It
// is included both in the displayed total and in the amount sent to checkout
// session creation.
const WidgetFlatFee = 0.30

// widgetOrderKey is the durable key under which a pending widget order id is
// persisted between session creation and completion.
const widgetOrderKey = "widget_order_id"

// WidgetSession is the signed payload handed to the embedded checkout widget
type WidgetSession struct {
	Payload     string  `json:"payload"`
	Signature   string  `json:"signature"`
	PublicKeyID string  `json:"publicKeyId"`
	Algorithm   string  `json:"algorithm"`
	OrderID     string  `json:"orderId"`
	Sandbox     bool    `json:"isSandbox"`
	Total       float64 `json:"total"`
}

// WidgetFlow owns the embedded-widget checkout path: session creation before
// the widget renders, and completion after the provider redirects back.
type WidgetFlow struct {
	client      *httpclient.Client
	tokens      identity.TokenSource
	sessionURL  string
	completeURL string
	store       *OrderStore
}

// NewWidgetFlow creates the embedded-widget checkout flow
func NewWidgetFlow(client *httpclient.Client, tokens identity.TokenSource, sessionURL, completeURL string, store *OrderStore) *WidgetFlow {
	return &WidgetFlow{
		client:      client,
		tokens:      tokens,
		sessionURL:  sessionURL,
		completeURL: completeURL,
		store:       store,
	}
}

type widgetSessionResponse struct {
	Success     bool   `json:"success"`
	Payload     string `json:"payload"`
	Signature   string `json:"signature"`
	PublicKeyID string `json:"publicKeyId"`
	Algorithm   string `json:"algorithm"`
	OrderID     string `json:"orderId"`
	Sandbox     bool   `json:"isSandbox"`
}

// CreateSession creates a signed checkout session for amount plus the flat
// fee. The returned order id is persisted before the session is handed out:
// the page navigates away to the widget's domain, and completion needs the
// order id after it comes back.
func (w *WidgetFlow) CreateSession(ctx context.Context, userID string, amount float64) (*WidgetSession, error) {
	token, err := w.tokens.Token(ctx)
	if err != nil {
		return nil, &OrderError{Kind: ErrUnauthenticated, Message: "sign in to make a deposit"}
	}

	total := round2(amount + WidgetFlatFee)

	resp, err := w.client.SendJSON(ctx, &httpclient.Request{
		Method:   http.MethodPost,
		Endpoint: w.sessionURL,
		Headers:  map[string]string{"Authorization": token},
		Body:     map[string]any{"amount": total},
	})
	if err != nil {
		logger.Error("checkout session request failed", err, logger.LogContext{
			UserID: userID,
			Family: string(FamilyGateway),
		})
		return nil, &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	if !resp.OK() {
		return nil, ClassifyResponse(resp.StatusCode, string(resp.Body))
	}

	var parsed widgetSessionResponse
	if err := w.client.ParseJSON(resp, &parsed); err != nil || !parsed.Success || parsed.OrderID == "" {
		return nil, &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	if err := w.store.Put(userID, widgetOrderKey, parsed.OrderID); err != nil {
		logger.Error("failed to persist widget order id", err, logger.LogContext{UserID: userID})
		return nil, &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	return &WidgetSession{
		Payload:     parsed.Payload,
		Signature:   parsed.Signature,
		PublicKeyID: parsed.PublicKeyID,
		Algorithm:   parsed.Algorithm,
		OrderID:     parsed.OrderID,
		Sandbox:     parsed.Sandbox,
		Total:       total,
	}, nil
}

type widgetCompleteResponse struct {
	Success bool `json:"success"`
}

// Complete exchanges the checkout session id returned via query parameter
// for a final determination, using the persisted order id. On success the
// persisted key is cleared.
func (w *WidgetFlow) Complete(ctx context.Context, userID, checkoutSessionID string) error {
	orderID, err := w.store.Get(userID, widgetOrderKey)
	if err != nil {
		return &OrderError{Kind: ErrValidationRejected, Message: "no pending card deposit was found"}
	}

	token, err := w.tokens.Token(ctx)
	if err != nil {
		return &OrderError{Kind: ErrUnauthenticated, Message: "sign in to make a deposit"}
	}

	resp, err := w.client.SendJSON(ctx, &httpclient.Request{
		Method:   http.MethodPost,
		Endpoint: w.completeURL,
		Headers:  map[string]string{"Authorization": token},
		Body: map[string]string{
			"checkoutSessionId": checkoutSessionID,
			"orderId":           orderID,
		},
	})
	if err != nil {
		logger.Error("checkout completion request failed", err, logger.LogContext{UserID: userID})
		return &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	if !resp.OK() {
		return ClassifyResponse(resp.StatusCode, string(resp.Body))
	}

	var parsed widgetCompleteResponse
	if err := w.client.ParseJSON(resp, &parsed); err != nil || !parsed.Success {
		return &OrderError{Kind: ErrServerFault, Message: "the payment could not be confirmed, please contact support"}
	}

	if err := w.store.Delete(userID, widgetOrderKey); err != nil {
		logger.Warn("failed to clear widget order id", logger.LogContext{
			UserID: userID,
			Fields: map[string]any{"error": err.Error()},
		})
	}

	return nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
