package workout

import (
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"
)

// Decode reverses the base64 obfuscation of a workout document.
// Line breaks inside the encoded text are ignored.
func Decode(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if !utf8.Valid(raw) {
		return "", ErrEncoding
	}
	return string(raw), nil
}

// Encode obfuscates a plain-text document into the form Decode accepts,
// wrapped at 76 columns.
func Encode(text string) string {
	enc := base64.StdEncoding.EncodeToString([]byte(text))

	const width = 76
	var b strings.Builder
	for len(enc) > width {
		b.WriteString(enc[:width])
		b.WriteByte('\n')
		enc = enc[width:]
	}
	b.WriteString(enc)
	b.WriteByte('\n')
	return b.String()
}
