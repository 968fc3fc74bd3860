package crypto

import (
	"encoding/base64"
	"strings"
)

// EncodeBase64URL encodes b with the URL-safe alphabet and no padding.
func EncodeBase64URL(b []byte) string {
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeBase64URL accepts URL-safe base64 with or without padding, the form
// Gmail uses for message bodies and attachments. The input is translated to
// the standard alphabet and re-padded before decoding.
func DecodeBase64URL(s string) ([]byte, error) {
	if s == "" {
		return nil, nil
	}
	normalized := strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimRight(s, "="))
	if rem := len(normalized) % 4; rem != 0 {
		normalized += strings.Repeat("=", 4-rem)
	}
	return base64.StdEncoding.DecodeString(normalized)
}

// DecodeBase64URLString decodes s and returns it as a string, or "" on invalid input.
func DecodeBase64URLString(s string) string {
	b, err := DecodeBase64URL(s)
	if err != nil {
		return ""
	}
	return string(b)
}
