package httputil

import (
	"mime"
	"net/url"
	"path"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultFilename is used when a part carries no usable name.
const DefaultFilename = "attachment"

const maxFilenameBytes = 200

// SanitizeFilename strips directory components, control characters and
// characters that are unsafe in file systems or header values. It never
// returns an empty string.
func SanitizeFilename(name string) string {
	name = strings.ToValidUTF8(name, "")
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(name)
	if name == "/" || name == "." {
		name = ""
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case unicode.IsControl(r):
			continue
		case strings.ContainsRune(`/\:*?"<>|;`, r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}

	cleaned := strings.TrimSpace(b.String())
	cleaned = strings.TrimLeft(cleaned, ".")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = truncateUTF8(cleaned, maxFilenameBytes)
	if cleaned == "" {
		return DefaultFilename
	}
	return cleaned
}

// ASCIIFilename returns an ASCII-only rendering of name for the plain
// filename= parameter. Non-ASCII runes become underscores.
func ASCIIFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' || r == '%' {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.Trim(b.String(), " ")
	ext := path.Ext(out)
	if strings.Trim(strings.TrimSuffix(out, ext), "_. ") == "" {
		if strings.Trim(ext, "_.") != "" {
			return DefaultFilename + ext
		}
		return DefaultFilename
	}
	return out
}

// ContentDisposition builds an attachment header carrying both an ASCII
// fallback name and the RFC 5987 UTF-8 extended name.
func ContentDisposition(name string) string {
	name = SanitizeFilename(name)
	return `attachment; filename="` + ASCIIFilename(name) + `"; filename*=UTF-8''` + encodeRFC5987(name)
}

// FilenameFromHeaders picks the best filename from Content-Disposition and
// Content-Type header values, decoding RFC 2231 extended parameters.
// It returns "" when neither header names a file.
func FilenameFromHeaders(contentDisposition, contentType string) string {
	if name := paramFromHeader(contentDisposition, "filename"); name != "" {
		return name
	}
	return paramFromHeader(contentType, "name")
}

func paramFromHeader(value, key string) string {
	if value == "" {
		return ""
	}
	// mime.ParseMediaType handles quoting, filename*= and continuations.
	if _, params, err := mime.ParseMediaType(value); err == nil {
		if v := strings.TrimSpace(params[key]); v != "" {
			return decodeEncodedWord(v)
		}
		return ""
	}
	return manualParam(value, key)
}

// manualParam is a lenient fallback for headers mime.ParseMediaType rejects,
// which is common in real-world mail.
func manualParam(value, key string) string {
	var plain string
	for _, seg := range strings.Split(value, ";") {
		seg = strings.TrimSpace(seg)
		k, v, ok := strings.Cut(seg, "=")
		if !ok {
			continue
		}
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		switch k {
		case key + "*":
			if decoded := decodeRFC2231(v); decoded != "" {
				return decoded
			}
		case key:
			plain = decodeEncodedWord(strings.Trim(v, `"`))
		}
	}
	return plain
}

// decodeRFC2231 decodes charset'lang'percent-encoded values.
func decodeRFC2231(v string) string {
	v = strings.Trim(v, `"`)
	parts := strings.SplitN(v, "'", 3)
	if len(parts) != 3 {
		return ""
	}
	decoded, err := url.PathUnescape(parts[2])
	if err != nil {
		return ""
	}
	if !utf8.ValidString(decoded) {
		// Most non-UTF-8 names in the wild are latin-1.
		runes := make([]rune, 0, len(decoded))
		for i := 0; i < len(decoded); i++ {
			runes = append(runes, rune(decoded[i]))
		}
		decoded = string(runes)
	}
	return decoded
}

func decodeEncodedWord(v string) string {
	if !strings.Contains(v, "=?") {
		return v
	}
	dec := new(mime.WordDecoder)
	if out, err := dec.DecodeHeader(v); err == nil {
		return out
	}
	return v
}

func encodeRFC5987(s string) string {
	const unreserved = "!#$&+-.^_`|~"
	var b strings.Builder
	for _, c := range []byte(s) {
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || strings.IndexByte(unreserved, c) >= 0 {
			b.WriteByte(c)
			continue
		}
		b.WriteString("%")
		b.WriteByte("0123456789ABCDEF"[c>>4])
		b.WriteByte("0123456789ABCDEF"[c&0x0f])
	}
	return b.String()
}

func truncateUTF8(s string, max int) string {
	if len(s) <= max {
		return s
	}
	ext := path.Ext(s)
	if len(ext) > 16 {
		ext = ""
	}
	cut := max - len(ext)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ext
}

// IsMediaType reports whether s looks like type/subtype.
func IsMediaType(s string) bool {
	mt, _, err := mime.ParseMediaType(s)
	return err == nil && strings.Count(mt, "/") == 1 && !strings.HasPrefix(mt, "/") && !strings.HasSuffix(mt, "/")
}
