package ports

import (
	"context"

	"github.com/layer-3/siwx/core"
)

// Verifier checks a wallet signature over the exact signing text of a challenge.
// A false result with a nil error means the signature was well-formed but wrong.
type Verifier interface {
	Verify(ctx context.Context, message []byte, signature string, key core.KeyID) (bool, error)
}

// Policy gates disclosure of each mapping direction
type Policy interface {
	PrincipalToKeyEnabled() bool
	KeyToPrincipalEnabled() bool
}
