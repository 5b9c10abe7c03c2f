package contact

import "testing"

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantValid bool
		wantKind  Kind
		wantNorm  string
	}{
		{name: "email", input: "test@example.com", wantValid: true, wantKind: KindEmail, wantNorm: "test@example.com"},
		{name: "email mixed case", input: "  Ada@Example.COM ", wantValid: true, wantKind: KindEmail, wantNorm: "ada@example.com"},
		{name: "email without domain dot", input: "ada@localhost", wantValid: false},
		{name: "email with space", input: "a da@example.com", wantValid: false},
		{name: "phone with plus", input: "+14155550123", wantValid: true, wantKind: KindPhone, wantNorm: "+14155550123"},
		{name: "phone digits only", input: "4155550123", wantValid: true, wantKind: KindPhone, wantNorm: "+4155550123"},
		{name: "phone with spaces", input: "+1 415 555 0123", wantValid: true, wantKind: KindPhone, wantNorm: "+14155550123"},
		{name: "phone too short", input: "555012", wantValid: false},
		{name: "phone too long", input: "+1234567890123456", wantValid: false},
		{name: "phone with dashes", input: "415-555-0123", wantValid: false},
		{name: "empty", input: "", wantValid: false},
		{name: "garbage", input: "hello", wantValid: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got := Validate(tc.input)
			if got.Valid != tc.wantValid {
				t.Fatalf("Validate(%q).Valid = %v, want %v", tc.input, got.Valid, tc.wantValid)
			}
			if !tc.wantValid {
				if got.Kind != KindNone {
					t.Fatalf("Validate(%q).Kind = %q, want none", tc.input, got.Kind)
				}
				return
			}
			if got.Kind != tc.wantKind {
				t.Fatalf("Validate(%q).Kind = %q, want %q", tc.input, got.Kind, tc.wantKind)
			}
			if got.Normalized != tc.wantNorm {
				t.Fatalf("Validate(%q).Normalized = %q, want %q", tc.input, got.Normalized, tc.wantNorm)
			}
		})
	}
}
