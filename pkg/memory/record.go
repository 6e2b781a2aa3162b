package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Kind distinguishes the two record families kept in a store.
type Kind string

const (
	// KindMessage is a conversational turn (chat, dm, email response).
	KindMessage Kind = "message"

	// KindPersonalInfo is a standalone fact about the principal.
	KindPersonalInfo Kind = "personal_info"
)

// Recognized values for Metadata.Sender.
const (
	SenderUser  = "user"
	SenderClone = "clone"
	SenderOther = "other"
)

// Recognized values for Metadata.Channel.
const (
	ChannelEmail = "email"
	ChannelChat  = "chat"
	ChannelDM    = "dm"
)

// Metadata carries the recognized per-record attributes.
type Metadata struct {
	// Channel the record originated on ("email", "chat", "dm")
	Channel string `json:"channel,omitempty"`

	// Sender identifies who produced the text ("user", "clone", "other")
	Sender string `json:"sender,omitempty"`

	// Timestamp is when the underlying exchange happened
	Timestamp time.Time `json:"timestamp,omitempty"`

	// Subject is the email subject line, when the channel carries one
	Subject string `json:"subject,omitempty"`

	// IsBadExample marks a quarantined record: retained for audit but
	// excluded from generation-time retrieval by search filters.
	IsBadExample bool `json:"is_bad_example,omitempty"`
}

// Record is a single entry in a memory store.
type Record struct {
	// ID is a unique identifier, assigned at insertion and never reused
	ID string `json:"id"`

	// Kind is the record family (message or personal_info)
	Kind Kind `json:"kind"`

	// Text is the record content
	Text string `json:"text"`

	// Embedding is the vector representation; nil until computed
	Embedding []float32 `json:"embedding,omitempty"`

	// Metadata is additional structured data about this record
	Metadata Metadata `json:"metadata"`

	// CreatedAt is when this record was initially stored
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when this record was last modified
	UpdatedAt time.Time `json:"updated_at"`
}

// NewMessage creates a message record with a fresh ID.
func NewMessage(text string, meta Metadata) Record {
	return newRecord(KindMessage, text, meta)
}

// NewPersonalInfo creates a personal-info fact record with a fresh ID.
func NewPersonalInfo(text string, meta Metadata) Record {
	return newRecord(KindPersonalInfo, text, meta)
}

func newRecord(kind Kind, text string, meta Metadata) Record {
	now := time.Now().UTC()
	return Record{
		ID:        uuid.New().String(),
		Kind:      kind,
		Text:      text,
		Metadata:  meta,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasEmbedding reports whether the record carries a computed embedding.
func (r Record) HasEmbedding() bool {
	return len(r.Embedding) > 0
}

// IsEmail reports whether the record originated on the email channel.
func (r Record) IsEmail() bool {
	return r.Metadata.Channel == ChannelEmail
}

// Validate checks the structural requirements on a record.
func (r Record) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return ErrEmptyText
	}
	if r.Kind != KindMessage && r.Kind != KindPersonalInfo {
		return ErrUnknownKind
	}
	return nil
}
