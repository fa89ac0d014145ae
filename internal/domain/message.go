package domain

import (
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Status is a message's position in the delivery lifecycle.
type Status string

const (
	StatusSent      Status = "sent"
	StatusDelivered Status = "delivered"
	StatusRead      Status = "read"
	StatusRetracted Status = "retracted"
)

// Type discriminates the expected shape of a message's content.
type Type string

const (
	TypeText   Type = "text"
	TypeFile   Type = "file"
	TypeSystem Type = "system"
)

// MaxTextLength is the upper bound on text message content, in runes.
const MaxTextLength = 2000

var (
	ErrMissingParty   = errors.New("message requires both sender and receiver")
	ErrInvalidType    = errors.New("unknown message type")
	ErrInvalidContent = errors.New("content does not match message type")
)

// Envelope is an opaque encrypted blob. The relay stores and forwards it
// without ever decrypting.
type Envelope struct {
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

// FileContent is the required shape of a file message's content. The
// ciphertext itself stays opaque; only the shape is checked.
type FileContent struct {
	Filename   string `json:"filename"`
	MimeType   string `json:"mime_type"`
	Size       int64  `json:"size"`
	IV         []byte `json:"iv"`
	Ciphertext []byte `json:"ciphertext"`
}

type Message struct {
	ID         uuid.UUID       `json:"id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Content    json.RawMessage `json:"content"`
	Type       Type            `json:"type"`
	Status     Status          `json:"status"`
	SessionKey *Envelope       `json:"session_key,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// NewMessage builds a validated message in the initial sent state.
func NewMessage(sender, receiver uuid.UUID, t Type, content json.RawMessage, sessionKey *Envelope) (*Message, error) {
	if sender == uuid.Nil || receiver == uuid.Nil {
		return nil, ErrMissingParty
	}
	if err := ValidateContent(t, content); err != nil {
		return nil, err
	}
	return &Message{
		ID:         uuid.New(),
		SenderID:   sender,
		ReceiverID: receiver,
		Content:    content,
		Type:       t,
		Status:     StatusSent,
		SessionKey: sessionKey,
		CreatedAt:  time.Now(),
	}, nil
}

// ValidateContent checks the type-dependent shape of content. Payload bytes
// beyond the shape are never inspected.
func ValidateContent(t Type, content json.RawMessage) error {
	switch t {
	case TypeText:
		var s string
		if err := json.Unmarshal(content, &s); err != nil {
			return ErrInvalidContent
		}
		if s == "" || utf8.RuneCountInString(s) > MaxTextLength {
			return ErrInvalidContent
		}
	case TypeFile:
		var f FileContent
		if err := json.Unmarshal(content, &f); err != nil {
			return ErrInvalidContent
		}
		if f.Filename == "" || f.MimeType == "" || f.Size < 0 || f.IV == nil || f.Ciphertext == nil {
			return ErrInvalidContent
		}
	case TypeSystem:
		// Implementation-defined; anything but null/empty passes.
		if len(content) == 0 || string(content) == "null" || !json.Valid(content) {
			return ErrInvalidContent
		}
	default:
		return ErrInvalidType
	}
	return nil
}

// CanTransition reports whether a lifecycle edge is legal. Transitions are
// monotonic: sent → delivered → read, with retracted reachable from any
// non-retracted state and absorbing.
func CanTransition(from, to Status) bool {
	switch to {
	case StatusDelivered:
		return from == StatusSent
	case StatusRead:
		return from == StatusSent || from == StatusDelivered
	case StatusRetracted:
		return from != StatusRetracted
	}
	return false
}
