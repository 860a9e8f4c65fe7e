// Package validation checks what SSH clients send before a session starts:
// the user name, the terminal size and how often a host connects.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Limits on client-supplied session parameters.
const (
	MaxUserNameLen = 32

	MinWindowWidth  = 20
	MinWindowHeight = 8
	MaxWindowWidth  = 1000
	MaxWindowHeight = 500
)

// DefaultUserName stands in for names that cannot be shown or logged.
const DefaultUserName = "pilot"

// ErrWindowTooSmall is returned for terminals that cannot fit both
// viewports.
var ErrWindowTooSmall = errors.New("terminal window too small")

var validUserNameChars = regexp.MustCompile(`^[a-zA-Z0-9\-_.@]+$`)

// ValidateUserName checks an SSH user name for display in logs and the
// status line. Surrounding whitespace is trimmed.
func ValidateUserName(name string) (string, error) {
	if !utf8.ValidString(name) {
		return "", fmt.Errorf("user name contains invalid UTF-8 characters")
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", fmt.Errorf("user name cannot be empty")
	}
	if len(trimmed) > MaxUserNameLen {
		return "", fmt.Errorf("user name too long: %d characters (max %d)", len(trimmed), MaxUserNameLen)
	}

	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return "", fmt.Errorf("user name contains control characters")
		}
	}

	if !validUserNameChars.MatchString(trimmed) {
		return "", fmt.Errorf("user name contains invalid characters (only letters, digits and -_.@ allowed)")
	}

	return trimmed, nil
}

// UserNameOrDefault returns the validated name, or DefaultUserName when it
// is not valid.
func UserNameOrDefault(name string) string {
	if v, err := ValidateUserName(name); err == nil {
		return v
	}
	return DefaultUserName
}

// ClampWindow checks a terminal size in cells. Sizes below the minimum are
// rejected; sizes above the maximum are reduced to it.
func ClampWindow(width, height int) (int, int, error) {
	if width < MinWindowWidth || height < MinWindowHeight {
		return 0, 0, fmt.Errorf("%w: %dx%d (min %dx%d)", ErrWindowTooSmall,
			width, height, MinWindowWidth, MinWindowHeight)
	}
	return min(width, MaxWindowWidth), min(height, MaxWindowHeight), nil
}
