// Package message defines the canonical chat event shapes shared by the
// server and clients, and the normalizer that coerces heterogeneous AI
// payloads into one renderable form.
package message

import (
	"encoding/json"
	"time"

	"github.com/devroom-hq/devroom/internal/filetree"
)

// AISenderID is the reserved sender id for assistant replies. An event is
// an AI event iff its sender id equals this value.
const AISenderID = "ai"

// AISenderEmail is the display identity shown for assistant replies.
const AISenderEmail = "AI Assistant"

// Sender identifies the originator of a chat event.
type Sender struct {
	ID    string `json:"_id"`
	Email string `json:"email"`
}

// AISender returns the fixed assistant identity.
func AISender() Sender {
	return Sender{ID: AISenderID, Email: AISenderEmail}
}

// BuildCommand describes how to run a generated project.
type BuildCommand struct {
	MainItem string   `json:"mainItem"`
	Commands []string `json:"commands"`
}

// StructuredResult is the canonical AI-reply payload. At least one of Text
// or FileTree is non-empty once it has passed through Normalize.
type StructuredResult struct {
	Text         string        `json:"text,omitempty"`
	FileTree     filetree.Tree `json:"fileTree,omitempty"`
	BuildCommand *BuildCommand `json:"buildCommand,omitempty"`
}

// Renderable reports whether the result carries something to show.
func (r StructuredResult) Renderable() bool {
	return r.Text != "" || r.FileTree != nil
}

// Body is the polymorphic message payload: plain text for human chat,
// structured for AI replies. Exactly one variant is populated; Normalize
// is the single conversion boundary between the two.
type Body struct {
	text       string
	structured *StructuredResult
}

// TextBody wraps a plain chat string.
func TextBody(s string) Body {
	return Body{text: s}
}

// StructuredBody wraps a structured AI result.
func StructuredBody(r StructuredResult) Body {
	return Body{structured: &r}
}

// Text returns the plain-text variant, or "" if structured.
func (b Body) Text() string {
	return b.text
}

// Structured returns the structured variant, or nil if plain text.
func (b Body) Structured() *StructuredResult {
	return b.structured
}

// Key returns the canonical serialization of the body, used as part of
// the client dedup key.
func (b Body) Key() string {
	data, err := b.MarshalJSON()
	if err != nil {
		return b.text
	}
	return string(data)
}

// MarshalJSON emits either a JSON string or the structured object,
// matching the wire format: "message" is string | StructuredResult.
func (b Body) MarshalJSON() ([]byte, error) {
	if b.structured != nil {
		return json.Marshal(b.structured)
	}
	return json.Marshal(b.text)
}

// UnmarshalJSON accepts either variant. Anything that is not a JSON
// string is run through the normalizer so the invariant that structured
// bodies are renderable holds on the receiving end too.
func (b *Body) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*b = Body{text: s}
		return nil
	}
	res := normalizeJSON(data)
	*b = Body{structured: &res}
	return nil
}

// ChatEvent is one message in a room's ordered stream. Immutable once
// emitted; the relay stamps Timestamp server-side.
type ChatEvent struct {
	Message   Body      `json:"message"`
	Sender    Sender    `json:"sender"`
	IsAI      bool      `json:"isAI"`
	Timestamp time.Time `json:"timestamp"`
}

// NewHumanEvent builds a human chat event stamped with the current time.
func NewHumanEvent(sender Sender, text string) ChatEvent {
	return ChatEvent{
		Message:   TextBody(text),
		Sender:    sender,
		IsAI:      false,
		Timestamp: time.Now().UTC(),
	}
}

// NewAIEvent builds an assistant event stamped with the current time.
func NewAIEvent(result StructuredResult) ChatEvent {
	return ChatEvent{
		Message:   StructuredBody(result),
		Sender:    AISender(),
		IsAI:      true,
		Timestamp: time.Now().UTC(),
	}
}
