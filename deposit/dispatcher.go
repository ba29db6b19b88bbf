package deposit

import (
	"context"
	"net/http"

	"github.com/majorphones/topup/identity"
	"github.com/majorphones/topup/infra/httpclient"
	"github.com/majorphones/topup/infra/logger"
)

// Order is a successfully created backend order
type Order struct {
	RedirectURL string
	Amount      float64
	PaymentName string
}

// Dispatcher creates backend orders for the redirect-strategy families. It
// performs no retries; failures are classified and returned to the session.
type Dispatcher struct {
	client    *httpclient.Client
	tokens    identity.TokenSource
	endpoints map[Family]string
}

// NewDispatcher creates an order dispatcher with one endpoint per redirect
// family.
func NewDispatcher(client *httpclient.Client, tokens identity.TokenSource, endpoints map[Family]string) *Dispatcher {
	return &Dispatcher{
		client:    client,
		tokens:    tokens,
		endpoints: endpoints,
	}
}

type orderRequest struct {
	Amount      float64 `json:"amount"`
	PaymentName string  `json:"paymentName,omitempty"`
}

type orderResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

// CreateOrder issues one authenticated order-creation request for a method
// with a validated amount. For composite methods the selected sub-method's
// id is sent as the payment name.
func (d *Dispatcher) CreateOrder(ctx context.Context, m *Method, sub *SubMethod, amount float64) (*Order, error) {
	endpoint, ok := d.endpoints[m.Family]
	if !ok {
		return nil, &OrderError{Kind: ErrMethodUnavailable, Message: "this payment method is temporarily unavailable, try again later"}
	}

	// The token is read fresh for every call, never cached across calls.
	token, err := d.tokens.Token(ctx)
	if err != nil {
		return nil, &OrderError{Kind: ErrUnauthenticated, Message: "sign in to make a deposit"}
	}

	body := orderRequest{Amount: amount}
	if m.Family == FamilyGateway {
		body.PaymentName = m.ID
		if sub != nil {
			body.PaymentName = sub.ID
		}
	}

	resp, err := d.client.SendJSON(ctx, &httpclient.Request{
		Method:   http.MethodPost,
		Endpoint: endpoint,
		// Raw token, no "Bearer " prefix; this is the observed backend
		// contract.
		Headers: map[string]string{"Authorization": token},
		Body:    body,
	})
	if err != nil {
		logger.Error("order creation request failed", err, logger.LogContext{
			Family: string(m.Family),
			Fields: map[string]any{"method": m.ID},
		})
		return nil, &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	if !resp.OK() {
		return nil, ClassifyResponse(resp.StatusCode, string(resp.Body))
	}

	var parsed orderResponse
	if err := d.client.ParseJSON(resp, &parsed); err != nil || !parsed.Success || parsed.URL == "" {
		logger.Warn("order endpoint returned an unusable payload", logger.LogContext{
			Family: string(m.Family),
			Fields: map[string]any{"method": m.ID, "status": resp.StatusCode},
		})
		return nil, &OrderError{Kind: ErrServerFault, Message: "something went wrong, please contact support"}
	}

	return &Order{
		RedirectURL: parsed.URL,
		Amount:      amount,
		PaymentName: body.PaymentName,
	}, nil
}
