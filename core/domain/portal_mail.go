package domain

// MessageSummary is one row of the unread preview list.
type MessageSummary struct {
	ID      string `json:"id"`
	From    string `json:"from"`
	Subject string `json:"subject"`
	Date    string `json:"date"`
	Snippet string `json:"snippet"`
}

// Attachment describes a downloadable part of a message.
type Attachment struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	MimeType string `json:"mimeType"`
	Size     int64  `json:"size"`
}

// MessageDetail is the full view of a single message.
type MessageDetail struct {
	ID          string       `json:"id"`
	From        string       `json:"from"`
	Subject     string       `json:"subject"`
	Date        string       `json:"date"`
	Body        string       `json:"body"`
	HTML        string       `json:"html"`
	Attachments []Attachment `json:"attachments"`
}

// AttachmentContent is a downloaded attachment body.
type AttachmentContent struct {
	Data     []byte
	Filename string
	MimeType string
}
