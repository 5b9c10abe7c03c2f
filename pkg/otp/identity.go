package otp

import "strings"

// DemoCode is the fixed code issued to reserved demo identifiers.
const DemoCode = "123456"

// Identity is who a successful verification proved the caller to be.
type Identity struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
	Name  string `json:"name,omitempty"`
	Role  string `json:"role,omitempty"`
}

// DemoIdentity is a reserved account that bypasses real verification.
type DemoIdentity struct {
	Contact  string
	UserID   string
	Name     string
	Username string
	Role     string
}

// Identity returns the fixed identity handed out on verification.
func (d DemoIdentity) Identity() *Identity {
	return &Identity{ID: d.UserID, Email: d.Contact, Name: d.Name, Role: d.Role}
}

var demoAccounts = map[string]DemoIdentity{
	"demo-admin@example.com": {
		Contact:  "demo-admin@example.com",
		UserID:   "00000000-0000-4000-8000-00000000d001",
		Name:     "Demo Admin",
		Username: "demo_admin",
		Role:     "admin",
	},
	"demo-member@example.com": {
		Contact:  "demo-member@example.com",
		UserID:   "00000000-0000-4000-8000-00000000d002",
		Name:     "Demo Member",
		Username: "demo_member",
		Role:     "user",
	},
}

// ResolveIdentity is the single place demo accounts are recognised. Issuance,
// verification and user resolution all go through it.
func ResolveIdentity(contact string) (DemoIdentity, bool) {
	d, ok := demoAccounts[strings.ToLower(strings.TrimSpace(contact))]
	return d, ok
}

// ReservedUsername returns the demo account holding username, if any.
// Nobody else may claim these names.
func ReservedUsername(username string) (DemoIdentity, bool) {
	name := strings.ToLower(strings.TrimSpace(username))
	for _, d := range demoAccounts {
		if d.Username == name {
			return d, true
		}
	}
	return DemoIdentity{}, false
}
