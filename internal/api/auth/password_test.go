package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name     string
		password string
		strict   bool
		wantOK   bool
	}{
		{"basic short", "secret", false, true},
		{"basic single char", "x", false, true},
		{"basic empty", "", false, false},
		{"basic too long", strings.Repeat("x", 73), false, false},
		{"basic at limit", strings.Repeat("x", 72), false, true},
		{"strict valid", "Passw0rd", true, true},
		{"strict valid long", "CorrectHorse42Battery", true, true},
		{"strict too short", "Ab1defg", true, false},
		{"strict no uppercase", "password1", true, false},
		{"strict no lowercase", "PASSWORD1", true, false},
		{"strict no digit", "Password", true, false},
		{"strict empty", "", true, false},
		{"strict too long", "Aa1" + strings.Repeat("x", 70), true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password, tt.strict)
			if tt.wantOK && err != nil {
				t.Errorf("ValidatePassword(%q, %v) = %v, want nil", tt.password, tt.strict, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("ValidatePassword(%q, %v) = nil, want error", tt.password, tt.strict)
			}
		})
	}
}

func TestValidatePasswordOrError_FirstMessage(t *testing.T) {
	err := ValidatePasswordOrError("abc", true)
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "at least 8 characters") {
		t.Errorf("error = %q, want length message first", err)
	}

	err = ValidatePasswordOrError("", false)
	if err == nil || err.Error() != "password is required" {
		t.Errorf("error = %v, want required message", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	SetHashCost(bcrypt.MinCost)
	defer SetHashCost(bcrypt.DefaultCost)

	hash, err := HashPassword("Passw0rd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Passw0rd" {
		t.Fatal("hash should differ from plaintext")
	}

	again, _ := HashPassword("Passw0rd")
	if again == hash {
		t.Error("hashes should be salted")
	}

	if !VerifyPassword("Passw0rd", hash) {
		t.Error("correct password should verify")
	}
	if VerifyPassword("wrong", hash) {
		t.Error("wrong password should not verify")
	}
	if VerifyPassword("Passw0rd", "not-a-hash") {
		t.Error("malformed hash should not verify")
	}
}
