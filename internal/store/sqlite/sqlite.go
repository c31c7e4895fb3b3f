package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/YumYum643/discord-clone/internal/store"
)

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB

	// Guards appendLocks. Appends to the same channel take the channel's
	// lock so ID and timestamp assignment never interleaves; appends to
	// different channels proceed in parallel.
	mu          sync.Mutex
	appendLocks map[int64]*sync.Mutex
}

// New opens (and if needed creates) the SQLite database at dbPath, applies
// the schema, and seeds the default channels.
func New(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &SQLiteStore{
		db:          db,
		appendLocks: make(map[int64]*sync.Mutex),
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	if err := s.seedChannels(); err != nil {
		db.Close()
		return nil, fmt.Errorf("seed channels: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT NOT NULL UNIQUE,
		email         TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		avatar_url    TEXT NOT NULL DEFAULT '',
		created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channels (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		kind        TEXT NOT NULL DEFAULT 'public',
		secret_hash TEXT NOT NULL DEFAULT '',
		created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS channel_participants (
		channel_id INTEGER NOT NULL,
		user_id    INTEGER NOT NULL,
		added_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (channel_id, user_id),
		FOREIGN KEY (channel_id) REFERENCES channels(id)
	);

	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		channel_id INTEGER NOT NULL,
		user_id    INTEGER NOT NULL,
		content    TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (channel_id) REFERENCES channels(id),
		FOREIGN KEY (user_id) REFERENCES users(id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_channel ON messages(channel_id, id);
	CREATE INDEX IF NOT EXISTS idx_participants_user ON channel_participants(user_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// seedChannels inserts the default channels on an empty database.
func (s *SQLiteStore) seedChannels() error {
	var count int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM channels`).Scan(&count); err != nil {
		return fmt.Errorf("count channels: %w", err)
	}
	if count > 0 {
		return nil
	}

	seeds := []struct{ name, description string }{
		{"general", "General discussion"},
		{"random", "Random chatter"},
	}
	for _, seed := range seeds {
		_, err := s.db.Exec(
			`INSERT INTO channels (name, description, kind) VALUES (?, ?, 'public')`,
			seed.name, seed.description,
		)
		if err != nil {
			return fmt.Errorf("insert seed channel %q: %w", seed.name, err)
		}
	}

	return nil
}

// ==== UserStore implementation ====

// CreateUser creates a new user with a hashed password.
func (s *SQLiteStore) CreateUser(ctx context.Context, username, email, passwordHash, avatarURL string) (*store.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, avatar_url)
		VALUES (?, ?, ?, ?)
	`
	result, err := s.db.ExecContext(ctx, query, username, email, passwordHash, avatarURL)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("insert user: %w", store.ErrDuplicate)
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return s.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id int64) (*store.User, error) {
	return s.getUser(ctx, `WHERE id = ?`, id)
}

// GetUserByEmail retrieves a user by email.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (*store.User, error) {
	return s.getUser(ctx, `WHERE email = ?`, email)
}

func (s *SQLiteStore) getUser(ctx context.Context, where string, arg any) (*store.User, error) {
	query := `
		SELECT id, username, email, password_hash, avatar_url, created_at
		FROM users ` + where
	var user store.User
	err := s.db.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.PasswordHash,
		&user.AvatarURL,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user: %w", store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	return &user, nil
}

// ==== ChannelStore implementation ====

// CreateChannel creates a new channel. Private channels get their
// participants inserted in the same transaction as the channel row.
func (s *SQLiteStore) CreateChannel(ctx context.Context, name, description string, kind store.ChannelKind, secretHash string, participantIDs []int64) (*store.Channel, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("channel name is empty: %w", store.ErrInvalidInput)
	}
	if kind == store.ChannelKindPrivate && len(participantIDs) == 0 {
		return nil, fmt.Errorf("private channel without participants: %w", store.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO channels (name, description, kind, secret_hash) VALUES (?, ?, ?, ?)`,
		name, description, string(kind), secretHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert channel: %w", err)
	}

	channelID, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	if kind == store.ChannelKindPrivate {
		for _, userID := range participantIDs {
			_, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO channel_participants (channel_id, user_id) VALUES (?, ?)`,
				channelID, userID,
			)
			if err != nil {
				return nil, fmt.Errorf("insert participant %d: %w", userID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return s.GetChannelByID(ctx, channelID)
}

// GetChannelByID retrieves a channel by ID.
func (s *SQLiteStore) GetChannelByID(ctx context.Context, id int64) (*store.Channel, error) {
	query := `
		SELECT id, name, description, kind, secret_hash, created_at
		FROM channels
		WHERE id = ?
	`
	var ch store.Channel
	var kind string
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&ch.ID,
		&ch.Name,
		&ch.Description,
		&kind,
		&ch.SecretHash,
		&ch.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("channel %d: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query channel: %w", err)
	}
	ch.Kind = store.ChannelKind(kind)

	return &ch, nil
}

// ListChannelsVisibleTo lists channels in creation order: all public channels
// plus private channels where userID is a participant.
func (s *SQLiteStore) ListChannelsVisibleTo(ctx context.Context, userID *int64) ([]*store.Channel, error) {
	var query string
	var args []any

	if userID != nil {
		query = `
			SELECT id, name, description, kind, secret_hash, created_at
			FROM channels c
			WHERE c.kind != 'private'
			   OR EXISTS (
					SELECT 1 FROM channel_participants p
					WHERE p.channel_id = c.id AND p.user_id = ?
			   )
			ORDER BY c.id ASC
		`
		args = []any{*userID}
	} else {
		query = `
			SELECT id, name, description, kind, secret_hash, created_at
			FROM channels
			WHERE kind != 'private'
			ORDER BY id ASC
		`
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query channels: %w", err)
	}
	defer rows.Close()

	var channels []*store.Channel
	for rows.Next() {
		var ch store.Channel
		var kind string
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Description, &kind, &ch.SecretHash, &ch.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		ch.Kind = store.ChannelKind(kind)
		channels = append(channels, &ch)
	}

	return channels, rows.Err()
}

// ListParticipants lists the participant user IDs of a channel.
func (s *SQLiteStore) ListParticipants(ctx context.Context, channelID int64) ([]int64, error) {
	query := `
		SELECT user_id FROM channel_participants
		WHERE channel_id = ?
		ORDER BY added_at ASC
	`
	rows, err := s.db.QueryContext(ctx, query, channelID)
	if err != nil {
		return nil, fmt.Errorf("query participants: %w", err)
	}
	defer rows.Close()

	var participants []int64
	for rows.Next() {
		var userID int64
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, userID)
	}

	return participants, rows.Err()
}

// IsParticipant checks whether a user is in the channel's participant set.
func (s *SQLiteStore) IsParticipant(ctx context.Context, channelID, userID int64) (bool, error) {
	query := `
		SELECT 1 FROM channel_participants
		WHERE channel_id = ? AND user_id = ?
	`
	var exists int
	err := s.db.QueryRowContext(ctx, query, channelID, userID).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("query participant: %w", err)
	}

	return true, nil
}

// ==== MessageStore implementation ====

// appendLock returns the per-channel mutex guarding message appends.
func (s *SQLiteStore) appendLock(channelID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.appendLocks[channelID]
	if !ok {
		lock = &sync.Mutex{}
		s.appendLocks[channelID] = lock
	}
	return lock
}

// AppendMessage persists a message, assigning its ID and timestamp. The
// timestamp is taken under the channel's append lock, so it is monotonic
// non-decreasing within a channel.
func (s *SQLiteStore) AppendMessage(ctx context.Context, channelID, authorID int64, content string) (*store.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("message content is empty: %w", store.ErrInvalidInput)
	}

	lock := s.appendLock(channelID)
	lock.Lock()
	defer lock.Unlock()

	if _, err := s.GetChannelByID(ctx, channelID); err != nil {
		return nil, err
	}

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (channel_id, user_id, content, created_at) VALUES (?, ?, ?, ?)`,
		channelID, authorID, content, createdAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("get last insert id: %w", err)
	}

	return &store.Message{
		ID:        id,
		ChannelID: channelID,
		UserID:    authorID,
		Content:   content,
		CreatedAt: createdAt,
	}, nil
}

// GetHistory returns up to limit most recent messages of a channel in
// ascending order, joined with the authors' current username and avatar.
func (s *SQLiteStore) GetHistory(ctx context.Context, channelID int64, limit int) ([]*store.HistoryEntry, error) {
	if _, err := s.GetChannelByID(ctx, channelID); err != nil {
		return nil, err
	}

	query := `
		SELECT m.id, m.channel_id, m.user_id, m.content, m.created_at, u.username, u.avatar_url
		FROM messages m
		JOIN users u ON m.user_id = u.id
		WHERE m.channel_id = ?
		ORDER BY m.id DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, channelID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []*store.HistoryEntry
	for rows.Next() {
		var e store.HistoryEntry
		if err := rows.Scan(&e.ID, &e.ChannelID, &e.UserID, &e.Content, &e.CreatedAt, &e.Username, &e.AvatarURL); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		entries = append(entries, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Newest page was fetched descending; flip to chronological order.
	for i := 0; i < len(entries)/2; i++ {
		entries[i], entries[len(entries)-1-i] = entries[len(entries)-1-i], entries[i]
	}

	return entries, nil
}

// Ensure SQLiteStore implements store.Store
var _ store.Store = (*SQLiteStore)(nil)
