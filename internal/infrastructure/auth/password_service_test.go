package auth

import (
	"testing"

	"github.com/Ayan-Alam-07/VELoop-Backend/domain"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordServiceImpl_HashAndVerify(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)

	hash, err := svc.Hash("secret1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hash == "secret1" {
		t.Fatal("hash must not equal the plaintext")
	}

	tests := []struct {
		name     string
		hash     string
		password string
		expected bool
	}{
		{"correct password", hash, "secret1", true},
		{"wrong password", hash, "secret2", false},
		{"empty password", hash, "", false},
		{"federated sentinel never verifies", domain.FederatedCredential, domain.FederatedCredential, false},
		{"garbage hash", "not-a-hash", "secret1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := svc.Verify(tt.hash, tt.password); got != tt.expected {
				t.Errorf("Verify() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPasswordServiceImpl_SaltedHashes(t *testing.T) {
	svc := NewPasswordServiceWithCost(bcrypt.MinCost)
	a, _ := svc.Hash("secret1")
	b, _ := svc.Hash("secret1")
	if a == b {
		t.Error("expected distinct hashes for the same password")
	}
}
