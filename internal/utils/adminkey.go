package utils

import "golang.org/x/crypto/bcrypt"

// HashAdminKey returns the bcrypt hash of an admin override key.  Used by
// operators to mint the ADMIN_KEY_HASH value handed to the service.
func HashAdminKey(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyAdminKey safely compares a bcrypt hash and a presented key.
func VerifyAdminKey(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
