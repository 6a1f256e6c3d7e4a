package backend

import (
	"context"
	"errors"
	"io"
	"time"
)

// UploadsBucket is the bucket holding user uploads.
const UploadsBucket = "user-uploads"

var (
	// ErrNoSession is returned when an operation requires a signed-in user.
	ErrNoSession = errors.New("no active session")

	// ErrObjectNotFound is returned when a stored object does not exist.
	ErrObjectNotFound = errors.New("object not found")

	// ErrFileNotFound is returned when a file record does not exist.
	ErrFileNotFound = errors.New("file record not found")
)

// Session is an authenticated session.
type Session struct {
	AccessToken string
	UserID      string
	ExpiresAt   time.Time
}

// Expired reports whether the session is past its expiry.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// User is an authenticated user.
type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

// FileRecord is one row of the user_files table.
type FileRecord struct {
	ID        string
	UserID    string
	FileName  string
	FilePath  string
	FileSize  int64
	FileType  string
	CreatedAt time.Time
}

// Auth exposes the current session. GetSession and GetUser return
// (nil, nil) when nobody is signed in.
type Auth interface {
	GetSession(ctx context.Context) (*Session, error)
	RefreshSession(ctx context.Context) error
	GetUser(ctx context.Context) (*User, error)
}

// Storage is an object store.
type Storage interface {
	Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Remove(ctx context.Context, bucket string, paths ...string) error
	PublicURL(bucket, path string) string
}

// Files stores file metadata rows.
type Files interface {
	InsertFile(ctx context.Context, rec FileRecord) error
	ListFiles(ctx context.Context, userID string) ([]FileRecord, error)
	DeleteFile(ctx context.Context, id string) error
}

// Backend bundles the capabilities.
type Backend interface {
	Auth
	Storage
	Files
}
