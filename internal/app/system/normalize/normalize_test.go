package normalize

import "testing"

func TestName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"nasa", "nasa"},
		{"  nasa  ", "nasa"},
		{"", ""},
		{"   ", ""},
		{"Tracelabs", "Tracelabs"}, // Name preserves case
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Name(tt.input)
			if got != tt.want {
				t.Errorf("Name(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestRole(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"admin", "admin"},
		{"Admin", "admin"},
		{"  MEMBER ", "member"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := Role(tt.input)
			if got != tt.want {
				t.Errorf("Role(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}
