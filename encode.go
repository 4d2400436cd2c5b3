package imgembed

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"
)

var (
	// ErrInvalidDataURI is returned when a string is not a usable base64 data URI.
	ErrInvalidDataURI = errors.New("invalid data URI")
	// ErrTooLarge is returned when decoded image data exceeds the allowed size.
	ErrTooLarge = errors.New("image too large")
)

const dataURIPrefix = "data:"

// EncodeDataURI renders data as "data:<mime>;base64,<payload>".
func EncodeDataURI(mimeType string, data []byte) string {
	var b strings.Builder
	b.Grow(len(dataURIPrefix) + len(mimeType) + 8 + base64.StdEncoding.EncodedLen(len(data)))
	b.WriteString(dataURIPrefix)
	b.WriteString(mimeType)
	b.WriteString(";base64,")
	b.WriteString(base64.StdEncoding.EncodeToString(data))
	return b.String()
}

// EncodeFile reads the file at path and returns its data URI together with
// the number of source bytes read.
func EncodeFile(path string) (string, int64, error) {
	mt, err := MimeType(path)
	if err != nil {
		return "", 0, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, fmt.Errorf("read %s: %w", path, err)
	}
	return EncodeDataURI(mt, data), int64(len(data)), nil
}

// ParseDataURI splits a data URI into its MIME type and decoded bytes.
// A bare base64 payload without the "data:" header is accepted and yields an
// empty MIME type.
func ParseDataURI(s string) (string, []byte, error) {
	s = strings.TrimSpace(s)
	mimeType := ""
	payload := s
	if strings.HasPrefix(s, dataURIPrefix) {
		header, rest, ok := strings.Cut(s[len(dataURIPrefix):], ",")
		if !ok {
			return "", nil, fmt.Errorf("%w: missing payload separator", ErrInvalidDataURI)
		}
		// Parameters such as charset or name may sit between the type and ";base64".
		if !strings.HasSuffix(header, ";base64") {
			return "", nil, fmt.Errorf("%w: only base64 encoding is supported", ErrInvalidDataURI)
		}
		mimeType, _, _ = strings.Cut(header, ";")
		payload = rest
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	if len(data) == 0 {
		return "", nil, fmt.Errorf("%w: empty payload", ErrInvalidDataURI)
	}
	return mimeType, data, nil
}

// ValidateDataURI decodes s and checks it against maxBytes. It returns the
// decoded size. A maxBytes of zero disables the size check.
func ValidateDataURI(s string, maxBytes int64) (int64, error) {
	_, data, err := ParseDataURI(s)
	if err != nil {
		return 0, err
	}
	size := int64(len(data))
	if maxBytes > 0 && size > maxBytes {
		return size, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, size, maxBytes)
	}
	return size, nil
}
