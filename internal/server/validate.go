// ABOUTME: Username and password validation applied at the account endpoints
// ABOUTME: Usernames are alphanumeric, both fields have bounded lengths

package server

import "regexp"

// usernamePattern accepts 4 to 36 alphanumeric characters. Usernames end
// up in URLs and log lines, so no punctuation.
var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9]{4,36}$`)

func validUsername(username string) bool {
	return usernamePattern.MatchString(username)
}

// validPassword bounds password length. The upper bound keeps bcrypt's
// 72-byte input limit out of reach.
func validPassword(password string) bool {
	return len(password) >= 8 && len(password) <= 36
}
