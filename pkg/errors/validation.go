package errors

import (
	"strings"
	"unicode"
)

// maxIDLength bounds document identifiers accepted from manifests and HTTP requests.
const maxIDLength = 256

// ValidateDocumentID validates a document identifier for safety and correctness.
// It rejects identifiers that would break key layouts of the Redis and Mongo
// backends or could be used for injection through the HTTP API.
//
// The validation rules are intentionally conservative:
//   - No empty identifiers
//   - No control characters or null bytes
//   - No whitespace at either end
//   - Maximum length of 256 characters
func ValidateDocumentID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidID, "document id cannot be empty")
	}

	if len(id) > maxIDLength {
		return New(ErrCodeInvalidID, "document id too long (max %d characters)", maxIDLength)
	}

	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidID, "document id contains invalid control characters")
		}
	}

	if strings.TrimSpace(id) != id {
		return New(ErrCodeInvalidID, "document id has leading or trailing whitespace: %q", id)
	}

	return nil
}

// ValidatePath validates a manifest document path for safety.
// Paths are stored verbatim and only used as display names and for
// deterministic ID derivation, so the rules stay loose:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
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

	return nil
}

// ValidateURL validates a source URL string.
// It ensures the URL uses one of the accepted schemes.
func ValidateURL(rawURL string, schemes ...string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	for _, s := range schemes {
		if strings.HasPrefix(rawURL, s+"://") {
			return nil
		}
	}

	return New(ErrCodeInvalidInput, "URL must use one of the schemes: %s", strings.Join(schemes, ", "))
}
