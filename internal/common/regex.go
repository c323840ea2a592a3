package common

import "regexp"

// MatchRegex compiles and matches a regex pattern against a string.
// Returns an error if the pattern is invalid.
func MatchRegex(pattern, text string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	return re.MatchString(text), nil
}

// UsernamePattern restricts usernames to ASCII letters and digits.
const UsernamePattern = `^[a-zA-Z0-9]+$`

// IsValidUsername reports whether name matches UsernamePattern.
func IsValidUsername(name string) bool {
	ok, err := MatchRegex(UsernamePattern, name)
	return err == nil && ok
}
