// ABOUTME: Data types and the ConversationStore interface for chat persistence
// ABOUTME: Defines Conversation, Message and the cleanup report returned by image GC

package store

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// Role values produced by the application. The column itself is free-form
// text; these are the only values the UI ever sends.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// InputType values for messages. Rows written before the image columns
// existed have no input_type and are read back as InputTypeText.
const (
	InputTypeText  = "text"
	InputTypeImage = "image"
)

// Conversation is a thread of messages. IDs are assigned by the store and
// increase monotonically.
type Conversation struct {
	ID        int64  `json:"id"`
	CreatedAt string `json:"created_at"`
}

// Message is a single turn in a conversation. The three image fields are
// either all set or all nil; the store does not enforce this, callers must
// supply them together.
type Message struct {
	ID             int64   `json:"id"`
	ConversationID int64   `json:"conversation_id"`
	Role           string  `json:"role"`
	Content        string  `json:"content"`
	InputType      string  `json:"input_type"`
	ImagePath      *string `json:"image_path,omitempty"`
	ImageFilename  *string `json:"image_filename,omitempty"`
	ImageSize      *int64  `json:"image_size,omitempty"`
	Timestamp      string  `json:"timestamp"`
}

// CleanupReport summarizes one orphaned-image sweep. Failed counts files
// that were orphaned but could not be deleted; the sweep never aborts on
// individual failures.
type CleanupReport struct {
	Removed int `json:"removed"`
	Failed  int `json:"failed"`
}

// ConversationStore defines the persistence operations the rest of the
// application depends on.
type ConversationStore interface {
	// CreateConversation inserts a new conversation and returns its
	// store-assigned identifier.
	CreateConversation(ctx context.Context, createdAt string) (int64, error)

	// SaveMessage inserts a plain text message with input_type "text" and
	// no image metadata.
	SaveMessage(ctx context.Context, conversationID int64, role, content, timestamp string) error

	// SaveMessageWithImage inserts a message carrying optional image
	// metadata. The message ID field is ignored on input.
	SaveMessageWithImage(ctx context.Context, msg *Message) error

	// ListConversations returns all conversations, most recent first.
	ListConversations(ctx context.Context) ([]*Conversation, error)

	// GetMessages returns the messages of a conversation in ascending
	// timestamp order. An unknown conversation yields an empty slice.
	GetMessages(ctx context.Context, conversationID int64) ([]*Message, error)

	// CleanupOrphanedImages removes files under imagesDir that no message
	// references. Best effort; a missing directory is not an error.
	CleanupOrphanedImages(ctx context.Context, imagesDir string) (*CleanupReport, error)

	// Close releases the underlying database handle.
	Close() error
}
