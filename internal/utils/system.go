package utils

import (
	"os/user"
	"regexp"
	"strings"
)

var (
	userIDPattern   = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)
	invalidUserChar = regexp.MustCompile(`[^a-z0-9._-]`)
	repeatedHyphens = regexp.MustCompile(`-+`)
)

// GetUsername returns the current operating system username.
func GetUsername() (string, error) {
	user, err := user.Current()
	if err != nil {
		return "", err
	}
	return user.Username, nil
}

// IsValidUserID reports whether id can name an account. User IDs become
// blob directory names, so they are restricted to lowercase letters,
// digits, dots, hyphens and underscores.
func IsValidUserID(id string) bool {
	return userIDPattern.MatchString(id)
}

// SanitizeUserID turns an arbitrary name (such as an OS username or a
// DOMAIN\user login) into a valid user ID.
func SanitizeUserID(name string) string {
	// Trim whitespace.
	name = strings.TrimSpace(name)

	// Drop a Windows domain prefix.
	if i := strings.LastIndex(name, `\`); i >= 0 {
		name = name[i+1:]
	}

	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, " ", "-")
	name = invalidUserChar.ReplaceAllString(name, "")
	name = repeatedHyphens.ReplaceAllString(name, "-")
	name = strings.TrimLeft(name, "-._")

	if len(name) > 64 {
		name = name[:64]
	}

	// If empty after sanitization, use a default.
	if name == "" {
		name = "user"
	}

	return name
}
