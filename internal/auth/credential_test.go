package auth

import "testing"

func TestValidateEmail(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"simple", "a@b.com", true},
		{"dots and plus in local part", "first.last+tag@example.co.uk", true},
		{"percent and dash", "x%y-z@sub-domain.io", true},
		{"empty", "", false},
		{"no at sign", "ab.com", false},
		{"nothing before at", "@b.com", false},
		{"no dot in domain", "a@bcom", false},
		{"one letter tld", "a@b.c", false},
		{"numeric tld", "a@b.12", false},
		{"space", "a b@c.com", false},
		{"trailing newline", "a@b.com\n", false},
		{"two at signs", "a@@b.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidateEmail(tt.input); got != tt.want {
				t.Errorf("ValidateEmail(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"valid", "Abc123!", true},
		{"exactly six", "Ab1!cd", true},
		{"every symbol allowed", `A1!@#$%^&*(),.?":{}|<>`, true},
		{"too short", "Ab1!", false},
		{"no uppercase", "abc123!", false},
		{"no digit", "Abcdef!", false},
		{"no symbol", "Abc1234", false},
		{"symbol outside set", "Abc123-", false},
		{"space not allowed", "Abc 123!", false},
		{"trailing newline", "Abc123!\n", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidatePassword(tt.input); got != tt.want {
				t.Errorf("ValidatePassword(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
