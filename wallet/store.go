package wallet

import (
	"context"
	"errors"
)

// ErrUserRecordMissing is returned when the user has no wallet document at
// all. This is distinct from a document that exists but lacks a particular
// asset field; the latter means the address simply has not been generated
// yet.
var ErrUserRecordMissing = errors.New("wallet: user record missing")

// Document is a user's wallet record. Addresses maps the fixed per-asset
// field names to opaque address text; absent or empty means not generated.
type Document struct {
	UserID    string
	Addresses map[string]string
}

// Address returns the stored address for an asset, if any
func (d *Document) Address(a *Asset) (string, bool) {
	addr, ok := d.Addresses[a.Field]
	if !ok || addr == "" {
		return "", false
	}
	return addr, true
}

// Store reads user wallet documents. All mutation happens out-of-band via the
// generation endpoint; the engine itself never writes addresses.
type Store interface {
	GetDocument(ctx context.Context, userID string) (*Document, error)
}
