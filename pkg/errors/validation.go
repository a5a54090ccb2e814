package errors

import (
	"path"
	"strings"
	"unicode"
)

// ValidateVersionID validates a version id before it is used as a directory
// name under versions/.
//
// The validation rules are intentionally conservative:
//   - No empty ids
//   - No control characters
//   - No path separators or parent references
//   - Maximum length of 128 characters
func ValidateVersionID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidVersion, "version id cannot be empty")
	}
	if len(id) > 128 {
		return New(ErrCodeInvalidVersion, "version id too long (max 128 characters)")
	}
	for _, r := range id {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidVersion, "version id contains invalid control characters")
		}
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return New(ErrCodeInvalidVersion, "version id contains invalid characters: %q", id)
	}
	return nil
}

// ValidateUsername validates a profile username.
// Usernames are passed verbatim to the game, so only printable, non-space
// characters are accepted.
func ValidateUsername(name string) error {
	if name == "" {
		return New(ErrCodeInvalidProfile, "username cannot be empty")
	}
	if len(name) > 64 {
		return New(ErrCodeInvalidProfile, "username too long (max 64 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidProfile, "username contains whitespace or control characters")
		}
	}
	return nil
}

// ValidateRelativePath validates a slash-separated path taken from remote
// metadata (library paths, asset virtual paths, archive entry names) before
// it is joined onto a local directory.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - Not absolute, no drive letters, no ".." segments
func ValidateRelativePath(p string) error {
	if p == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if len(p) > 500 {
		return New(ErrCodeInvalidPath, "path too long (max 500 characters)")
	}
	for _, r := range p {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid control characters")
		}
	}
	slashed := strings.ReplaceAll(p, `\`, "/")
	if strings.HasPrefix(slashed, "/") || (len(slashed) >= 2 && slashed[1] == ':') {
		return New(ErrCodeInvalidPath, "path must be relative: %q", p)
	}
	for _, seg := range strings.Split(slashed, "/") {
		if seg == ".." {
			return New(ErrCodeInvalidPath, "path escapes its directory: %q", p)
		}
	}
	if path.Clean(slashed) == "." {
		return New(ErrCodeInvalidPath, "path is empty after cleaning: %q", p)
	}
	return nil
}

// ValidateObjectHash checks that an asset object hash is a lowercase
// hex SHA-1, since it becomes both a directory and a file name.
func ValidateObjectHash(hash string) error {
	if len(hash) != 40 {
		return New(ErrCodeInvalidPath, "object hash must be 40 hex characters, got %d", len(hash))
	}
	for _, r := range hash {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return New(ErrCodeInvalidPath, "object hash is not lowercase hex: %q", hash)
		}
	}
	return nil
}
