package errors

import (
	"strings"
	"unicode"
)

// Limits enforced on requests before they reach the core.
const (
	// BookExtension is the reserved extension every pixel book filename carries.
	BookExtension = ".pxl"

	// MaxDimension is the largest accepted width or height.
	MaxDimension = 4096

	// MaxFrames is the largest accepted frame count for a new book.
	MaxFrames = 1000

	maxFilenameLength = 255
)

// ValidateFilename validates a pixel book filename for safety and correctness.
//
// Validation rules:
//   - Filename cannot be empty
//   - Must end in ".pxl"
//   - Maximum length of 255 characters
//   - No control characters or null bytes
//   - No path separators or traversal sequences
func ValidateFilename(name string) error {
	if name == "" {
		return New(ErrCodeInvalidFilename, "filename cannot be empty")
	}

	if len(name) > maxFilenameLength {
		return New(ErrCodeInvalidFilename, "filename too long (max %d characters)", maxFilenameLength)
	}

	if !strings.HasSuffix(name, BookExtension) || name == BookExtension {
		return New(ErrCodeInvalidFilename, "filename must end in %s: %q", BookExtension, name)
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidFilename, "filename contains invalid control characters")
		}
	}

	dangerousPatterns := []string{
		"..",   // Parent directory
		"/",    // Path separator
		"\\",   // Backslash (Windows path)
		"\x00", // Null byte
	}

	for _, pattern := range dangerousPatterns {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidFilename, "filename contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateDimensions checks that width and height are both within [1, 4096].
func ValidateDimensions(width, height int) error {
	if width < 1 || height < 1 || width > MaxDimension || height > MaxDimension {
		return New(ErrCodeInvalidDimensions, "dimensions %dx%d out of range (1-%d)", width, height, MaxDimension)
	}
	return nil
}

// ValidateFrameCount checks that a frame count is within [1, 1000].
func ValidateFrameCount(frames int) error {
	if frames < 1 || frames > MaxFrames {
		return New(ErrCodeInvalidDimensions, "frame count must be between 1 and %d, got %d", MaxFrames, frames)
	}
	return nil
}

// ValidateColor validates an RGBA color. Every 8-bit channel value is
// acceptable, so this never fails today; it exists so callers have one
// place to hang color policy.
func ValidateColor(rgba [4]uint8) error {
	_ = rgba
	return nil
}
