package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var codePattern = regexp.MustCompile(`^\d{6}$`)

// ValidCode reports whether code is syntactically a 6-digit OTP.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}

// randomCode draws uniformly from 100000..999999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}
