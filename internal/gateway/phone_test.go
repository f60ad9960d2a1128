package gateway

import "testing"

func TestNormalizePhone(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		raw  string
		want string
	}{
		{"leading zero replaced", "0977123456", "260977123456"},
		{"nine digits prefixed", "977123456", "260977123456"},
		{"already international", "260977123456", "260977123456"},
		{"formatting stripped", "+260 977-123-456", "260977123456"},
		{"leading zero with spaces", "097 712 3456", "260977123456"},
		{"too short passes through", "12345", "12345"},
		{"too long passes through", "9771234567890", "9771234567890"},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := NormalizePhone(tc.raw, "260"); got != tc.want {
				t.Fatalf("NormalizePhone(%q) = %q, want %q", tc.raw, got, tc.want)
			}
		})
	}
}

func TestRedactPhone(t *testing.T) {
	t.Parallel()

	if got := RedactPhone("260977123456"); got != "260977***456" {
		t.Fatalf("RedactPhone() = %q, want %q", got, "260977***456")
	}

	// Numbers too short to keep 6+3 digits are fully masked.
	if got := RedactPhone("12345"); got != "***" {
		t.Fatalf("RedactPhone() = %q, want %q", got, "***")
	}
}
