package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/baechuer/vehicle-maintenance/services/reset-service/internal/domain"
)

// bcrypt only looks at the first 72 bytes of input.
const maxPasswordBytes = 72

// BcryptHasher produces the credential hash written on reset.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher falls back to bcrypt.DefaultCost when cost is outside
// the range bcrypt accepts.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

func (h *BcryptHasher) Hash(password string) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", domain.ErrWeakPassword(fmt.Sprintf("max length %d bytes", maxPasswordBytes))
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", domain.ErrHashFailed(err)
	}
	return string(b), nil
}
