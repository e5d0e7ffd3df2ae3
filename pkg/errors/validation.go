package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// resourceGroupRegex follows the Azure naming rules: letters, digits,
// underscores, hyphens, periods and parentheses, not ending in a period.
var resourceGroupRegex = regexp.MustCompile(`^[\p{L}\p{N}._()-]*[\p{L}\p{N}_()-]$`)

// subscriptionIDRegex matches a subscription GUID.
var subscriptionIDRegex = regexp.MustCompile(`^[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}$`)

// ValidateResourceGroup validates a resource group name before it is embedded
// in a backend query. An empty name means "all resource groups" and is valid.
func ValidateResourceGroup(name string) error {
	if name == "" {
		return nil
	}
	if len(name) > 90 {
		return New(ErrCodeInvalidScope, "resource group name too long (max 90 characters)")
	}
	if !resourceGroupRegex.MatchString(name) {
		return New(ErrCodeInvalidScope, "invalid resource group name: %q", name)
	}
	return nil
}

// ValidateSubscriptionID validates a subscription id. Empty means "all
// subscriptions visible to the backend" and is valid.
func ValidateSubscriptionID(id string) error {
	if id == "" {
		return nil
	}
	if !subscriptionIDRegex.MatchString(id) {
		return New(ErrCodeInvalidScope, "invalid subscription id: %q", id)
	}
	return nil
}

// ValidateDiagramName validates a diagram name. Names end up in file names,
// history keys and the document title.
//
// The validation rules are intentionally conservative:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 128 characters
func ValidateDiagramName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidInput, "diagram name cannot be empty")
	}

	if len(name) > 128 {
		return New(ErrCodeInvalidInput, "diagram name too long (max 128 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "diagram name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidInput, "diagram name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidatePath validates a relative file path supplied by a remote caller.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
