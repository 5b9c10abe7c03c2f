package otp

import (
	"context"
	"time"
)

// Record is the live one-time code for a contact.
type Record struct {
	Contact   string    `json:"contact"`
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expiresAt"`
	Attempts  int       `json:"attempts"`
}

// Expired reports whether the record is past its expiry at now.
func (r *Record) Expired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}

// Store keeps at most one record per contact. Get returns nil, nil when
// no record exists. Set overwrites any previous record for the contact.
type Store interface {
	Get(ctx context.Context, contact string) (*Record, error)
	Set(ctx context.Context, rec *Record) error
	Delete(ctx context.Context, contact string) error
	// IncrAttempts atomically counts one more guess against the record and
	// returns it as stored afterwards, or nil when no record exists.
	IncrAttempts(ctx context.Context, contact string) (*Record, error)
	// Sweep removes every record expired at now and returns how many went.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
