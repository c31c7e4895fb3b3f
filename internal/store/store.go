package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations. Callers match with
// errors.Is and translate into transport-level responses.
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for empty content, empty names, or a
	// private channel with no participants.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate is returned when a unique field already exists.
	ErrDuplicate = errors.New("duplicate")
)

// User is an authenticated identity. The chat core references users but
// never mutates them.
type User struct {
	ID           int64
	Username     string
	Email        string
	PasswordHash string
	AvatarURL    string
	CreatedAt    time.Time
}

// ChannelKind distinguishes open channels from invite-only ones.
// Password protection is an attribute of a public channel, not a kind.
type ChannelKind string

const (
	ChannelKindPublic  ChannelKind = "public"
	ChannelKindPrivate ChannelKind = "private"
)

// Channel is a named container for messages.
type Channel struct {
	ID          int64
	Name        string
	Description string
	Kind        ChannelKind
	SecretHash  string // bcrypt hash; empty means no secret
	CreatedAt   time.Time
}

// HasSecret reports whether joining the channel requires a secret.
func (c *Channel) HasSecret() bool {
	return c.SecretHash != ""
}

// Message is a persisted chat message. Immutable once created.
type Message struct {
	ID        int64
	ChannelID int64
	UserID    int64
	Content   string
	CreatedAt time.Time
}

// HistoryEntry is a message joined with its author's current profile.
// The join happens at read time, so renames and avatar changes show up
// in old history.
type HistoryEntry struct {
	Message
	Username  string
	AvatarURL string
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser creates a new user with a hashed password.
	CreateUser(ctx context.Context, username, email, passwordHash, avatarURL string) (*User, error)

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id int64) (*User, error)

	// GetUserByEmail retrieves a user by email.
	GetUserByEmail(ctx context.Context, email string) (*User, error)
}

// ChannelStore handles channel persistence.
type ChannelStore interface {
	// CreateChannel creates a new channel. For private channels the
	// participant list must be non-empty and is inserted in the same
	// transaction as the channel row: a private channel is never
	// observable with zero participants.
	CreateChannel(ctx context.Context, name, description string, kind ChannelKind, secretHash string, participantIDs []int64) (*Channel, error)

	// GetChannelByID retrieves a channel by ID.
	GetChannelByID(ctx context.Context, id int64) (*Channel, error)

	// ListChannelsVisibleTo lists channels in creation order: all public
	// channels plus, when userID is non-nil, private channels where that
	// user is a participant.
	ListChannelsVisibleTo(ctx context.Context, userID *int64) ([]*Channel, error)

	// ListParticipants lists the participant user IDs of a channel.
	ListParticipants(ctx context.Context, channelID int64) ([]int64, error)

	// IsParticipant checks whether a user is in the channel's participant set.
	IsParticipant(ctx context.Context, channelID, userID int64) (bool, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// AppendMessage persists a message, assigning its ID and timestamp.
	// Appends to the same channel are serialized so IDs and timestamps
	// are monotonic within a channel.
	AppendMessage(ctx context.Context, channelID, authorID int64, content string) (*Message, error)

	// GetHistory returns up to limit most recent messages of a channel in
	// ascending creation order, joined with author profiles.
	GetHistory(ctx context.Context, channelID int64, limit int) ([]*HistoryEntry, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChannelStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
