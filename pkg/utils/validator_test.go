package utils

import (
	"errors"
	"testing"

	"space-notes-backend/pkg/models"
)

func TestValidateStructFieldNames(t *testing.T) {
	t.Parallel()

	err := ValidateStruct(&models.CompleteProfileRequest{DisplayName: "Ann", Username: "bad name!", AvatarType: "gif"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("error = %v, want *ValidationError", err)
	}
	for _, field := range []string{"username", "avatarType"} {
		if _, ok := ve.Fields[field]; !ok {
			t.Fatalf("fields = %v, want %q reported", ve.Fields, field)
		}
	}
	if _, ok := ve.Fields["displayName"]; ok {
		t.Fatalf("displayName reported as invalid: %v", ve.Fields)
	}
}

func TestValidateStructOTP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		otp string
		ok  bool
	}{
		{"123456", true},
		{"12345", false},
		{"12a456", false},
		{"", false},
	}
	for _, tt := range tests {
		err := ValidateStruct(&models.VerifyOTPRequest{Contact: "a@example.com", OTP: tt.otp})
		if (err == nil) != tt.ok {
			t.Fatalf("otp %q: err = %v, want ok=%v", tt.otp, err, tt.ok)
		}
	}
}

func TestUsernameRule(t *testing.T) {
	t.Parallel()
	for name, want := range map[string]bool{"demo_admin": true, "A1": true, "has space": false, "dash-ed": false} {
		err := Validator().Var(name, "username")
		if (err == nil) != want {
			t.Fatalf("username %q: err = %v, want ok=%v", name, err, want)
		}
	}
}
