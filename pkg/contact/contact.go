// Package contact validates and normalizes the identifiers users sign in with.
package contact

import (
	"regexp"
	"strings"
	"unicode"
)

// Kind is the shape of a contact identifier.
type Kind string

const (
	KindNone  Kind = ""
	KindEmail Kind = "email"
	KindPhone Kind = "phone"
)

// InvalidMessage is surfaced to callers whenever validation fails.
const InvalidMessage = "Please enter a valid email address or phone number (e.g. +1234567890)"

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+\d{10,15}$`)
	digitsOnly   = regexp.MustCompile(`^\d{10,15}$`)
)

// Result is the outcome of Validate.
type Result struct {
	Valid      bool
	Kind       Kind
	Normalized string
}

// Validate classifies contact as an email or an E.164-ish phone number.
func Validate(contact string) Result {
	trimmed := strings.TrimSpace(contact)
	if trimmed == "" {
		return Result{}
	}

	if strings.Contains(trimmed, "@") {
		if emailPattern.MatchString(trimmed) {
			return Result{Valid: true, Kind: KindEmail, Normalized: strings.ToLower(trimmed)}
		}
		return Result{}
	}

	phone := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, trimmed)
	if digitsOnly.MatchString(phone) {
		phone = "+" + phone
	}
	if phonePattern.MatchString(phone) {
		return Result{Valid: true, Kind: KindPhone, Normalized: phone}
	}
	return Result{}
}

// Normalize returns the normalized form of contact, or "" if it is invalid.
func Normalize(contact string) string {
	return Validate(contact).Normalized
}
