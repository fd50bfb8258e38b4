package errors

import (
	"math"
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// MaxEntityIDLen bounds entity IDs, which end up in URLs and cache keys.
const MaxEntityIDLen = 256

// sourceExts are the entity file extensions the loaders understand.
var sourceExts = []string{".json", ".yaml", ".yml", ".toml"}

func hasControl(s string) bool {
	return strings.IndexFunc(s, unicode.IsControl) >= 0
}

// ValidateEntityID rejects IDs that are empty, too long, contain control
// characters, or contain ':' which separates the parts of a connector ID.
func ValidateEntityID(id string) error {
	switch {
	case id == "":
		return New(ErrCodeInvalidEntity, "entity id cannot be empty")
	case len(id) > MaxEntityIDLen:
		return New(ErrCodeInvalidEntity, "entity id too long (max %d characters)", MaxEntityIDLen)
	case hasControl(id):
		return New(ErrCodeInvalidEntity, "entity id contains invalid control characters")
	case strings.ContainsRune(id, ':'):
		return New(ErrCodeInvalidEntity, "entity id %q cannot contain ':'", id)
	}
	return nil
}

// ValidateViewport accepts zero (meaning "use the default") and any positive
// finite size.
func ValidateViewport(width, height float64) error {
	for _, v := range [2]float64{width, height} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return New(ErrCodeInvalidViewport, "viewport dimension must be finite")
		}
		if v < 0 {
			return New(ErrCodeInvalidViewport, "viewport dimension cannot be negative: %g", v)
		}
	}
	return nil
}

// ValidateSourceFile checks an entity file path before it is opened.
func ValidateSourceFile(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}
	if hasControl(path) {
		return New(ErrCodeInvalidPath, "path contains invalid characters")
	}
	if !slices.Contains(sourceExts, strings.ToLower(filepath.Ext(path))) {
		return New(ErrCodeInvalidFormat, "unsupported entity file %q (want .json, .yaml or .toml)", filepath.Base(path))
	}
	return nil
}
