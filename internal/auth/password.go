package auth

import "golang.org/x/crypto/bcrypt"

// MinBcryptCost is the lowest acceptable work factor for stored hashes.
const MinBcryptCost = 10

// HashPassword hashes a plaintext password with the configured cost,
// clamped to MinBcryptCost.
func HashPassword(password string, cost int) (string, error) {
	if cost < MinBcryptCost {
		cost = MinBcryptCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
