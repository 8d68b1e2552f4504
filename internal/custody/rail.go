// Package custody abstracts the external settlement rail holding the vault's
// reserve currency. The core only ever sees this narrow interface; chain
// specifics stay behind it.
package custody

import (
	"context"

	"github.com/shopspring/decimal"
)

// Rail is the custody/settlement collaborator contract. PayOut transfers
// settlement currency to a destination and returns a transaction reference.
// GetCustodyBalance returns the live custody balance, independent of any
// cached bookkeeping figure.
type Rail interface {
	PayOut(ctx context.Context, destination string, amount decimal.Decimal) (string, error)
	GetCustodyBalance(ctx context.Context) (decimal.Decimal, error)
}
