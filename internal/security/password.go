package security

import "golang.org/x/crypto/bcrypt"

// HashPassword derives a bcrypt hash (default cost) from a plaintext
// password. The plaintext is never stored anywhere.
func HashPassword(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)

	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword reports whether plain matches the stored bcrypt hash. A nil
// error means match.
func CheckPassword(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
