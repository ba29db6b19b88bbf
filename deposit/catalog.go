package deposit

import "fmt"

// Catalog is the static, read-only method registry
type Catalog struct {
	methods []Method
	index   map[string]*Method
}

// NewCatalog creates a catalog from the given methods; with none given the
// default method set is used.
func NewCatalog(methods ...Method) *Catalog {
	if len(methods) == 0 {
		methods = DefaultMethods()
	}

	c := &Catalog{
		methods: methods,
		index:   make(map[string]*Method, len(methods)),
	}
	for i := range c.methods {
		c.index[c.methods[i].ID] = &c.methods[i]
	}
	return c
}

// DefaultMethods returns the production method set
func DefaultMethods() []Method {
	return []Method{
		{
			ID:        "cryptomus",
			Name:      "Cryptomus",
			Family:    FamilyCryptomus,
			Strategy:  StrategyRedirect,
			MinAmount: 5,
			Available: true,
		},
		{
			ID:        "card",
			Name:      "Credit / Debit Card",
			Family:    FamilyGateway,
			Strategy:  StrategyEmbeddedWidget,
			MinAmount: 2,
			FlatFee:   0.30,
			Available: true,
		},
		{
			ID:        "latam",
			Name:      "Latin America",
			Family:    FamilyGateway,
			Strategy:  StrategyComposite,
			MinAmount: 10,
			Available: true,
			SubMethods: []SubMethod{
				{ID: "pix", Name: "Pix"},
				{ID: "mercadopago", Name: "Mercado Pago"},
				{ID: "oxxo", Name: "OXXO"},
			},
		},
		{
			ID:        "asia",
			Name:      "Asia",
			Family:    FamilyGateway,
			Strategy:  StrategyComposite,
			MinAmount: 10,
			Available: true,
			SubMethods: []SubMethod{
				{ID: "upi", Name: "UPI"},
				{ID: "gcash", Name: "GCash"},
				{ID: "ovo", Name: "OVO"},
			},
		},
		{
			ID:        "crypto-wallet",
			Name:      "Crypto Wallet",
			Family:    FamilyWallet,
			Strategy:  StrategyStaticWallet,
			Available: true,
		},
	}
}

// Resolve returns the method with the given id
func (c *Catalog) Resolve(id string) (*Method, error) {
	m, ok := c.index[id]
	if !ok || !m.Available {
		return nil, fmt.Errorf("payment method '%s' is not available", id)
	}
	return m, nil
}

// ResolveSub returns a sub-method, enforcing that it belongs to the method
func (c *Catalog) ResolveSub(methodID, subID string) (*SubMethod, error) {
	m, err := c.Resolve(methodID)
	if err != nil {
		return nil, err
	}
	if m.Strategy != StrategyComposite {
		return nil, fmt.Errorf("payment method '%s' has no sub-methods", methodID)
	}
	sub, ok := m.Sub(subID)
	if !ok {
		return nil, fmt.Errorf("'%s' is not a sub-method of '%s'", subID, methodID)
	}
	return sub, nil
}

// Methods returns all available methods in declaration order
func (c *Catalog) Methods() []Method {
	out := make([]Method, 0, len(c.methods))
	for _, m := range c.methods {
		if m.Available {
			out = append(out, m)
		}
	}
	return out
}
