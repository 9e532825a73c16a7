package utils

import "golang.org/x/crypto/bcrypt"

// Account passwords are only ever persisted as bcrypt hashes; login and
// the admin seed go through these two helpers.
const passwordHashCost = bcrypt.DefaultCost

// HashPassword returns the hash to store for a plaintext password.
func HashPassword(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), passwordHashCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// CheckPassword reports whether plain matches the stored hash. Any
// malformed hash counts as a mismatch.
func CheckPassword(hashed, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
}
