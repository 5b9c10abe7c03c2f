package utils

import (
	"crypto/rand"
	"math/big"
)

// inviteAlphabet drops 0/O and 1/I so codes survive being read aloud
const inviteAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// InviteCodeLength is the length of generated space invite codes.
const InviteCodeLength = 8

// GenerateInviteCode returns a random code of InviteCodeLength characters.
func GenerateInviteCode() (string, error) {
	max := big.NewInt(int64(len(inviteAlphabet)))
	b := make([]byte, InviteCodeLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b[i] = inviteAlphabet[n.Int64()]
	}
	return string(b), nil
}
