package utils

import (
	"fmt"
	"net/url"
	"strings"

	"decktracker/internal/domain/model"
)

const maxTagLength = 15

// ValidateTag validates and normalizes a player or clan tag. Tags are
// alphanumeric, at most 15 characters after the # prefix, and are returned
// uppercased with the prefix restored.
func ValidateTag(tag string) (string, error) {
	if tag == "" {
		return "", fmt.Errorf("%w: tag cannot be empty", model.ErrValidation)
	}

	clean := strings.TrimPrefix(tag, "#")
	if len(clean) > maxTagLength {
		return "", fmt.Errorf("%w: tag is too long (max %d characters)", model.ErrValidation, maxTagLength)
	}
	for _, r := range clean {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return "", fmt.Errorf("%w: tag must contain only letters and numbers", model.ErrValidation)
		}
	}

	return "#" + strings.ToUpper(clean), nil
}

// EncodeTag URL-encodes a tag for use in an upstream path segment. Any
// incoming %23 is decoded first, the leading # restored, then the tag is
// encoded exactly once.
func EncodeTag(tag string) string {
	if decoded, err := url.QueryUnescape(tag); err == nil {
		tag = decoded
	}
	if !strings.HasPrefix(tag, "#") {
		tag = "#" + tag
	}
	return url.QueryEscape(tag)
}

// SanitizeString trims whitespace and truncates to maxLength.
func SanitizeString(value string, maxLength int) string {
	clean := strings.TrimSpace(value)
	if len(clean) > maxLength {
		clean = clean[:maxLength]
	}
	return clean
}
