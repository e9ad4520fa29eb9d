package auth

import (
	"crypto/rand"
	"errors"
	"math/big"

	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLen = 8
	maxPasswordLen = 72 // bcrypt input cap
)

var (
	ErrPasswordTooShort = errors.New("password must be at least 8 characters")
	ErrPasswordTooLong  = errors.New("password must be at most 72 characters")
)

func validatePassword(pw string) error {
	if len(pw) < minPasswordLen {
		return ErrPasswordTooShort
	}
	if len(pw) > maxPasswordLen {
		return ErrPasswordTooLong
	}
	return nil
}

func hashPassword(pw string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	return string(b), err
}

func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// sixDigitCode returns a zero-padded numeric verification code.
func sixDigitCode() string {
	n, _ := rand.Int(rand.Reader, big.NewInt(1000000))
	s := n.String()
	for len(s) < 6 {
		s = "0" + s
	}
	return s
}
