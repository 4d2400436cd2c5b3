package imgembed

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedType is returned for files outside the recognized image extensions.
var ErrUnsupportedType = errors.New("unsupported image type")

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// IsImage reports whether name has one of the recognized image extensions
// (case-insensitive).
func IsImage(name string) bool {
	_, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]
	return ok
}

// MimeType resolves the MIME type of name from its extension alone.
func MimeType(name string) (string, error) {
	ext := strings.ToLower(filepath.Ext(name))
	mt, ok := mimeTypes[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedType, ext)
	}
	return mt, nil
}
