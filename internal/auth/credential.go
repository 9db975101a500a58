package auth

import (
	"github.com/dlclark/regexp2"
)

// MinPasswordLength is the shortest password accepted at login.
const MinPasswordLength = 6

// PasswordSymbols is the punctuation set a password must draw at least one
// character from.
const PasswordSymbols = `!@#$%^&*(),.?":{}|<>`

// The password rule needs lookahead (uppercase AND digit AND symbol), which
// RE2 does not support, so both patterns use regexp2. \z anchors at the true
// end of input; $ would also match before a trailing newline.
var (
	emailPattern = regexp2.MustCompile(
		`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}\z`, regexp2.None)

	passwordPattern = regexp2.MustCompile(
		`^(?=.*[A-Z])(?=.*[0-9])(?=.*[!@#$%^&*(),.?":{}|<>])[A-Za-z0-9!@#$%^&*(),.?":{}|<>]+\z`, regexp2.None)
)

// ValidateEmail reports whether s looks like local@domain.tld with a TLD of
// at least two letters.
func ValidateEmail(s string) bool {
	return match(emailPattern, s)
}

// ValidatePassword reports whether s is at least MinPasswordLength long,
// contains an uppercase letter, a digit and one of PasswordSymbols, and
// uses no other characters than letters, digits and PasswordSymbols.
func ValidatePassword(s string) bool {
	return len(s) >= MinPasswordLength && match(passwordPattern, s)
}

func match(re *regexp2.Regexp, s string) bool {
	ok, err := re.MatchString(s)
	return err == nil && ok
}
