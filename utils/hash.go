package utils

import "golang.org/x/crypto/bcrypt"

// CompareHash reports whether plain matches the stored bcrypt hash.
func CompareHash(hash, plain []byte) bool {
	if err := bcrypt.CompareHashAndPassword(hash, plain); err != nil {
		return false
	}
	return true
}

// GenerateHash returns the bcrypt hash of plain.
func GenerateHash(plain []byte) (string, error) {
	hash, err := bcrypt.GenerateFromPassword(plain, bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
