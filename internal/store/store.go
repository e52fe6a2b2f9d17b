package store

import "context"

// UserRecord identifies a known user; the id is all the fan-out writer needs
// to address a log append.
type UserRecord struct {
	ID string
}

// LogEntry is one notification mirrored into a user's log. The timestamp and
// the unread flag are assigned by the backing store at write time.
type LogEntry struct {
	Title string
	Body  string
	Image string
}

// Store holds user records and per-user notification logs.
type Store interface {
	ListUsers(ctx context.Context) ([]UserRecord, error)
	AppendNotification(ctx context.Context, userID string, entry LogEntry) error
}
