package errors

import (
	"path/filepath"
	"strings"
	"unicode"
)

// ValidateYearRange checks an optional start/end year pair.
//
// Both years must be given together (or both left at zero), and the start
// year cannot come after the end year.
func ValidateYearRange(start, end int) error {
	if start == 0 && end == 0 {
		return nil
	}
	if start == 0 || end == 0 {
		return New(ErrCodeInvalidInput, "start and end year must be given together (got %d-%d)", start, end)
	}
	if start > end {
		return New(ErrCodeInvalidInput, "start year %d is after end year %d", start, end)
	}
	return nil
}

// ValidateDimensions checks output image dimensions.
func ValidateDimensions(width, height int) error {
	if width <= 0 || height <= 0 {
		return New(ErrCodeInvalidInput, "dimensions must be positive (got %dx%d)", width, height)
	}

	const maxSide = 16384
	if width > maxSide || height > maxSide {
		return New(ErrCodeInvalidInput, "dimensions too large (max %d per side, got %dx%d)", maxSide, width, height)
	}
	return nil
}

// ValidatePalette checks that a palette name is a plain identifier.
// Whether the palette exists is decided by the palette package.
func ValidatePalette(name string) error {
	if name == "" {
		return New(ErrCodeInvalidPalette, "palette name cannot be empty")
	}
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' {
			return New(ErrCodeInvalidPalette, "palette name contains invalid characters: %q", name)
		}
	}
	return nil
}

// ValidatePattern validates a glob pattern for spatial output files.
//
// Validation rules:
//   - Pattern cannot be empty
//   - No null bytes or control characters
//   - Must be a syntactically valid glob
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return New(ErrCodeInvalidInput, "file pattern cannot be empty")
	}

	for _, r := range pattern {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "file pattern contains invalid characters")
		}
	}

	if _, err := filepath.Match(pattern, ""); err != nil {
		return Wrap(ErrCodeInvalidInput, err, "invalid file pattern %q", pattern)
	}

	if strings.TrimSpace(pattern) != pattern {
		return New(ErrCodeInvalidInput, "file pattern has leading or trailing whitespace: %q", pattern)
	}

	return nil
}
