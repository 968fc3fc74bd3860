package gmail

import (
	"html"
	"regexp"
	"strings"

	"portal_server/core/domain"
	"portal_server/pkg/crypto"
	"portal_server/pkg/httputil"

	"google.golang.org/api/gmail/v1"
)

const (
	mimeTextPlain = "text/plain"
	mimeTextHTML  = "text/html"
)

var (
	styleBlock  = regexp.MustCompile(`(?is)<style[\s\S]*?</style>`)
	scriptBlock = regexp.MustCompile(`(?is)<script[\s\S]*?</script>`)
	htmlTag     = regexp.MustCompile(`<[^>]+>`)
	whitespace  = regexp.MustCompile(`[\s\p{Zs}]+`)
)

// StripHTML reduces an HTML document to its visible text on one line.
func StripHTML(s string) string {
	s = styleBlock.ReplaceAllString(s, " ")
	s = scriptBlock.ReplaceAllString(s, " ")
	s = htmlTag.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	s = whitespace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

func hasData(p *gmail.MessagePart) bool {
	return p != nil && p.Body != nil && p.Body.Data != ""
}

func isMime(p *gmail.MessagePart, mimeType string) bool {
	return strings.EqualFold(p.MimeType, mimeType)
}

// FindPart returns the first part in depth-first order whose type is mimeType
// and that carries inline data.
func FindPart(p *gmail.MessagePart, mimeType string) *gmail.MessagePart {
	if p == nil {
		return nil
	}
	if isMime(p, mimeType) && hasData(p) {
		return p
	}
	for _, child := range p.Parts {
		if found := FindPart(child, mimeType); found != nil {
			return found
		}
	}
	return nil
}

// ExtractText returns the message body as plain text. Inline data on the root
// wins; otherwise the first text/plain part, then the first text/html part
// with markup stripped. Returns "" when the tree has no textual part.
func ExtractText(p *gmail.MessagePart) string {
	if p == nil {
		return ""
	}
	if hasData(p) {
		raw := crypto.DecodeBase64URLString(p.Body.Data)
		if isMime(p, mimeTextHTML) {
			return StripHTML(raw)
		}
		return raw
	}
	if part := FindPart(p, mimeTextPlain); part != nil {
		return crypto.DecodeBase64URLString(part.Body.Data)
	}
	if part := FindPart(p, mimeTextHTML); part != nil {
		return StripHTML(crypto.DecodeBase64URLString(part.Body.Data))
	}
	return ""
}

// ExtractHTML returns the raw HTML body or "".
func ExtractHTML(p *gmail.MessagePart) string {
	if part := FindPart(p, mimeTextHTML); part != nil {
		return crypto.DecodeBase64URLString(part.Body.Data)
	}
	return ""
}

// CollectAttachments lists every part carrying an attachment id, depth first.
func CollectAttachments(p *gmail.MessagePart) []domain.Attachment {
	attachments := []domain.Attachment{}
	collectAttachments(p, &attachments)
	return attachments
}

func collectAttachments(p *gmail.MessagePart, acc *[]domain.Attachment) {
	if p == nil {
		return
	}
	if p.Body != nil && p.Body.AttachmentId != "" {
		mimeType := p.MimeType
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		*acc = append(*acc, domain.Attachment{
			ID:       p.Body.AttachmentId,
			Filename: attachmentName(p),
			MimeType: mimeType,
			Size:     p.Body.Size,
		})
	}
	for _, child := range p.Parts {
		collectAttachments(child, acc)
	}
}

func attachmentName(p *gmail.MessagePart) string {
	name := httputil.FilenameFromHeaders(header(p.Headers, "Content-Disposition"), header(p.Headers, "Content-Type"))
	if name == "" {
		name = p.Filename
	}
	return httputil.SanitizeFilename(name)
}

func header(headers []*gmail.MessagePartHeader, name string) string {
	for _, h := range headers {
		if h != nil && strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}
