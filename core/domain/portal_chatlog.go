package domain

import "time"

// ChatEntry is one message in a blood-pressure chat log. Readings are optional.
type ChatEntry struct {
	Role      string    `json:"role"`
	Text      string    `json:"text"`
	At        time.Time `json:"at"`
	Systolic  *int      `json:"systolic,omitempty"`
	Diastolic *int      `json:"diastolic,omitempty"`
	Pulse     *int      `json:"pulse,omitempty"`
}

// ChatLog is a user's full log.
type ChatLog struct {
	Owner     string      `json:"owner"`
	Entries   []ChatEntry `json:"entries"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
