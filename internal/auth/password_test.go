package auth

import (
	"strings"
	"testing"
)

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := hashPassword("correct horse battery")
	if err != nil {
		t.Fatal(err)
	}
	if hash == "correct horse battery" {
		t.Fatal("hash must not equal plaintext")
	}
	if !checkPassword(hash, "correct horse battery") {
		t.Fatal("correct password rejected")
	}
	if checkPassword(hash, "wrong password") {
		t.Fatal("wrong password accepted")
	}
}

func TestValidatePassword(t *testing.T) {
	if err := validatePassword("short"); err != ErrPasswordTooShort {
		t.Fatalf("err = %v, want too-short", err)
	}
	if err := validatePassword(strings.Repeat("x", 73)); err != ErrPasswordTooLong {
		t.Fatalf("err = %v, want too-long", err)
	}
	if err := validatePassword("long enough 123"); err != nil {
		t.Fatalf("valid password rejected: %v", err)
	}
}

func TestSixDigitCode(t *testing.T) {
	for i := 0; i < 50; i++ {
		code := sixDigitCode()
		if len(code) != 6 {
			t.Fatalf("code %q has length %d", code, len(code))
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("code %q contains non-digit", code)
			}
		}
	}
}
