// Package wallet provides fetch-or-generate provisioning of static
// blockchain receive addresses, one per user per asset. An address, once
// generated, is always reused; reuse is a compliance requirement, so nothing
// here will ever request a second address for a (user, asset) pair that
// already has one.
package wallet

// AssetID identifies one of the supported blockchain assets
type AssetID string

const (
	AssetBTC  AssetID = "btc"
	AssetETH  AssetID = "eth"
	AssetLTC  AssetID = "ltc"
	AssetUSDT AssetID = "usdt"
	AssetUSDC AssetID = "usdc"
	AssetPOL  AssetID = "pol"
	AssetTRX  AssetID = "trx"
)

// Asset describes a supported asset: its network label and the fixed document
// field that holds a previously generated address for it.
type Asset struct {
	ID      AssetID
	Name    string
	Network string
	Field   string
}

// Assets is the full set of supported assets. Field names are fixed by the
// external document store schema and must not change.
var Assets = []Asset{
	{ID: AssetBTC, Name: "Bitcoin", Network: "Bitcoin", Field: "btc_btc"},
	{ID: AssetETH, Name: "Ethereum", Network: "Ethereum", Field: "eth_eth"},
	{ID: AssetLTC, Name: "Litecoin", Network: "Litecoin", Field: "ltc_ltc"},
	{ID: AssetUSDT, Name: "Tether", Network: "Tron", Field: "usdt_tron"},
	{ID: AssetUSDC, Name: "USD Coin", Network: "Polygon", Field: "usdc_polygon"},
	{ID: AssetPOL, Name: "Polygon", Network: "Polygon", Field: "pol_polygon"},
	{ID: AssetTRX, Name: "Tron", Network: "Tron", Field: "trx_tron"},
}

// Lookup returns the asset descriptor for an id
func Lookup(id AssetID) (*Asset, bool) {
	for i := range Assets {
		if Assets[i].ID == id {
			return &Assets[i], true
		}
	}
	return nil, false
}
