package auth

import (
	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"golang.org/x/crypto/bcrypt"
)

// PasswordServiceImpl implements domain.PasswordService
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a new password service
func NewPasswordService() domain.PasswordService {
	return NewPasswordServiceWithCost(bcrypt.DefaultCost)
}

// NewPasswordServiceWithCost creates a password service with an explicit
// bcrypt cost. Tests use bcrypt.MinCost.
func NewPasswordServiceWithCost(cost int) domain.PasswordService {
	return &PasswordServiceImpl{
		cost: cost,
	}
}

// Hash implements domain.PasswordService
func (p *PasswordServiceImpl) Hash(password string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), p.cost)
	if err != nil {
		return "", err
	}
	return string(hashedBytes), nil
}

// Verify implements domain.PasswordService. The federated sentinel is not
// a bcrypt hash, so it never verifies.
func (p *PasswordServiceImpl) Verify(hashedPassword, password string) bool {
	if hashedPassword == domain.FederatedCredential {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}
