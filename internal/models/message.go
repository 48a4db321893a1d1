package models

// Message is the durable record of a chat event scoped to a project.
// Append-only, ordered by timestamp, independent from live room
// membership: it survives disconnects and restarts.
type Message struct {
	ID          string `json:"id"` // ULID
	ProjectID   string `json:"project_id"`
	SenderID    string `json:"sender_id"`
	SenderEmail string `json:"sender_email"`
	Body        string `json:"body"` // serialized: plain text or StructuredResult JSON
	IsAI        bool   `json:"is_ai"`
	Timestamp   int64  `json:"ts"` // Unix ms
}
