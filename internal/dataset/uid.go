package dataset

import (
	"math/big"

	"github.com/google/uuid"
)

// NewUID returns a fresh UID under the 2.25 root, derived from a random UUID as
// described in PS3.5 Annex B.2.
func NewUID() string {
	u := uuid.New()
	n := new(big.Int).SetBytes(u[:])
	return "2.25." + n.String()
}
