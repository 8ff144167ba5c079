package auth

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the work factor for passwords and one time codes.
const BcryptCost = 12

// HashPassword hashes a password (or OTP) with bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// CheckPassword compares a bcrypt hash against a plain value.
func CheckPassword(hashedPassword, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
	return err == nil
}

// GenerateOTP returns a uniformly chosen six digit code in [100000, 999999].
func GenerateOTP() (string, error) {
	var buf [4]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	n := binary.BigEndian.Uint32(buf[:])%900000 + 100000
	return fmt.Sprintf("%06d", n), nil
}
