// Package deposit implements the balance top-up engine: the payment-method
// catalog, amount validation, order dispatch and the per-user selection
// session that coordinates them.
package deposit

// Strategy determines how a method's order is created and completed
type Strategy string

const (
	// StrategyRedirect creates a backend order and navigates the user to
	// the returned URL.
	StrategyRedirect Strategy = "redirect"
	// StrategyEmbeddedWidget hands a signed checkout session to an embedded
	// third-party widget.
	StrategyEmbeddedWidget Strategy = "embedded_widget"
	// StrategyStaticWallet shows a persistent per-user receive address
	// instead of creating an order.
	StrategyStaticWallet Strategy = "static_wallet"
	// StrategyComposite requires a second, dependent sub-method choice; the
	// chosen sub-method is dispatched as a redirect order.
	StrategyComposite Strategy = "composite"
)

// Family groups methods that share one backend order contract and one
// error/lock state.
type Family string

const (
	FamilyCryptomus Family = "cryptomus"
	FamilyGateway   Family = "gateway"
	FamilyWallet    Family = "wallet"
)

// SubMethod is a dependent choice under a composite method
type SubMethod struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Method describes one selectable payment method. Methods are immutable and
// defined at process start.
type Method struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Family     Family      `json:"family"`
	Strategy   Strategy    `json:"strategy"`
	MinAmount  float64     `json:"minAmount"`
	FlatFee    float64     `json:"flatFee,omitempty"`
	Available  bool        `json:"available"`
	SubMethods []SubMethod `json:"subMethods,omitempty"`
}

// Sub returns the sub-method with the given id, if the method owns it
func (m *Method) Sub(id string) (*SubMethod, bool) {
	for i := range m.SubMethods {
		if m.SubMethods[i].ID == id {
			return &m.SubMethods[i], true
		}
	}
	return nil, false
}
