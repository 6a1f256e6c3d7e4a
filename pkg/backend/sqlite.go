package backend

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/dataada/go-sdk/pkg/core"
)

// DefaultSessionTTL is the lifetime of a new or refreshed session.
const DefaultSessionTTL = time.Hour

// ErrProjectNotFound is returned when a project does not exist.
var ErrProjectNotFound = errors.New("project not found")

// Projects stores analysis projects.
type Projects interface {
	ListProjects(ctx context.Context, userID string) ([]core.Project, error)
	CreateProject(ctx context.Context, req core.CreateProjectRequest) (*core.Project, error)
	UpdateProject(ctx context.Context, req core.UpdateProjectRequest) (*core.Project, error)
	DeleteProject(ctx context.Context, id string) error
}

// SQLite implements Backend and Projects on a single SQLite database.
type SQLite struct {
	db         *sql.DB
	logger     logrus.FieldLogger
	sessionTTL time.Duration
	now        func() time.Time

	mu    sync.RWMutex
	token string
}

var (
	_ Backend  = (*SQLite)(nil)
	_ Projects = (*SQLite)(nil)
)

// SQLiteOption configures a SQLite backend.
type SQLiteOption func(*SQLite)

// WithLogger sets the logger.
func WithLogger(logger logrus.FieldLogger) SQLiteOption {
	return func(s *SQLite) {
		s.logger = logger
	}
}

// WithSessionTTL sets the session lifetime.
func WithSessionTTL(ttl time.Duration) SQLiteOption {
	return func(s *SQLite) {
		s.sessionTTL = ttl
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLite) {
		s.now = now
	}
}

// OpenSQLite opens (creating if needed) the database at path and initializes
// the schema. Pass ":memory:" for an in-memory database.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLite, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(8000)&_pragma=foreign_keys(1)", filepath.ToSlash(path))
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	s := &SQLite{
		db:         db,
		logger:     logrus.StandardLogger(),
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            email TEXT NOT NULL UNIQUE,
            name TEXT,
            created_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS sessions (
            token TEXT PRIMARY KEY,
            user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            expires_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS objects (
            bucket TEXT NOT NULL,
            path TEXT NOT NULL,
            content BLOB NOT NULL,
            content_type TEXT,
            created_at INTEGER NOT NULL,
            PRIMARY KEY (bucket, path)
        );`,
		`CREATE TABLE IF NOT EXISTS user_files (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            file_name TEXT NOT NULL,
            file_path TEXT NOT NULL,
            file_size INTEGER NOT NULL,
            file_type TEXT,
            created_at INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS projects (
            id TEXT PRIMARY KEY,
            user_id TEXT NOT NULL,
            name TEXT NOT NULL,
            description TEXT,
            created_at INTEGER NOT NULL,
            updated_at INTEGER NOT NULL
        );`,
		`CREATE INDEX IF NOT EXISTS idx_user_files_user ON user_files(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_projects_user ON projects(user_id);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// SignIn finds or creates the user with the given email and starts a session.
func (s *SQLite) SignIn(ctx context.Context, email, name string) (*Session, error) {
	if email == "" {
		return nil, errors.New("email is required")
	}

	now := s.now()
	var userID string
	err := s.db.QueryRowContext(ctx, `SELECT id FROM users WHERE email = ?`, email).Scan(&userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		userID = uuid.NewString()
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO users (id, email, name, created_at) VALUES (?, ?, ?, ?)`,
			userID, email, name, now.UnixMilli()); err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		s.logger.WithField("user_id", userID).Info("created local user")
	case err != nil:
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	session := &Session{
		AccessToken: uuid.NewString(),
		UserID:      userID,
		ExpiresAt:   now.Add(s.sessionTTL),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (token, user_id, expires_at) VALUES (?, ?, ?)`,
		session.AccessToken, session.UserID, session.ExpiresAt.UnixMilli()); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	s.mu.Lock()
	s.token = session.AccessToken
	s.mu.Unlock()

	return session, nil
}

// SignOut ends the current session.
func (s *SQLite) SignOut(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.token = ""
	s.mu.Unlock()

	if token == "" {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	return err
}

func (s *SQLite) currentToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// GetSession returns the current unexpired session, or nil.
func (s *SQLite) GetSession(ctx context.Context) (*Session, error) {
	token := s.currentToken()
	if token == "" {
		return nil, nil
	}
	return s.LookupSession(ctx, token)
}

// LookupSession returns the unexpired session with the given access token,
// or nil. The dev server uses it to authenticate bearer tokens.
func (s *SQLite) LookupSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, nil
	}

	var (
		session   = &Session{AccessToken: token}
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).Scan(&session.UserID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	session.ExpiresAt = time.UnixMilli(expiresAt)
	if session.Expired(s.now()) {
		return nil, nil
	}
	return session, nil
}

// RefreshSession extends the current session.
func (s *SQLite) RefreshSession(ctx context.Context) error {
	token := s.currentToken()
	if token == "" {
		return ErrNoSession
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET expires_at = ? WHERE token = ?`, s.now().Add(s.sessionTTL).UnixMilli(), token)
	if err != nil {
		return fmt.Errorf("refresh session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNoSession
	}
	return nil
}

// GetUser returns the user of the current session, or nil.
func (s *SQLite) GetUser(ctx context.Context) (*User, error) {
	session, err := s.GetSession(ctx)
	if err != nil || session == nil {
		return nil, err
	}

	var (
		user      User
		name      sql.NullString
		createdAt int64
	)
	err = s.db.QueryRowContext(ctx,
		`SELECT id, email, name, created_at FROM users WHERE id = ?`, session.UserID).
		Scan(&user.ID, &user.Email, &name, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}

	user.Name = name.String
	user.CreatedAt = time.UnixMilli(createdAt)
	return &user, nil
}

// Upload stores an object, replacing any existing object at the same path.
func (s *SQLite) Upload(ctx context.Context, bucket, path string, r io.Reader, contentType string) error {
	content, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("read object: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO objects (bucket, path, content, content_type, created_at) VALUES (?, ?, ?, ?, ?)`,
		bucket, path, content, contentType, s.now().UnixMilli())
	if err != nil {
		return fmt.Errorf("store object: %w", err)
	}
	return nil
}

// Download returns the content of an object.
func (s *SQLite) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM objects WHERE bucket = ? AND path = ?`, bucket, path).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrObjectNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load object: %w", err)
	}
	return bytes.Clone(content), nil
}

// Remove deletes objects. Missing paths are ignored.
func (s *SQLite) Remove(ctx context.Context, bucket string, paths ...string) error {
	for _, path := range paths {
		if _, err := s.db.ExecContext(ctx,
			`DELETE FROM objects WHERE bucket = ? AND path = ?`, bucket, path); err != nil {
			return fmt.Errorf("remove object %s: %w", path, err)
		}
	}
	return nil
}

// PublicURL returns a local URL for an object.
func (s *SQLite) PublicURL(bucket, path string) string {
	return (&url.URL{Scheme: "sqlite", Host: bucket, Path: "/" + path}).String()
}

// InsertFile stores a file record.
func (s *SQLite) InsertFile(ctx context.Context, rec FileRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO user_files (id, user_id, file_name, file_path, file_size, file_type, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.FileName, rec.FilePath, rec.FileSize, rec.FileType, rec.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// ListFiles returns the file records of a user, oldest first.
func (s *SQLite) ListFiles(ctx context.Context, userID string) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, file_path, file_size, file_type, created_at
         FROM user_files WHERE user_id = ? ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileRecord
	for rows.Next() {
		var (
			rec       FileRecord
			fileType  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&rec.ID, &rec.UserID, &rec.FileName, &rec.FilePath, &rec.FileSize, &fileType, &createdAt); err != nil {
			return nil, err
		}
		rec.FileType = fileType.String
		rec.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// DeleteFile removes a file record.
func (s *SQLite) DeleteFile(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_files WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete file record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrFileNotFound
	}
	return nil
}

// ListProjects returns the projects of a user, most recently updated first.
func (s *SQLite) ListProjects(ctx context.Context, userID string) ([]core.Project, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at
         FROM projects WHERE user_id = ? ORDER BY updated_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	out := []core.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// CreateProject inserts a new project.
func (s *SQLite) CreateProject(ctx context.Context, req core.CreateProjectRequest) (*core.Project, error) {
	if req.Name == "" {
		return nil, errors.New("project name is required")
	}

	id := uuid.NewString()
	now := s.now().UnixMilli()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, user_id, name, description, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, req.UserID, req.Name, req.Description, now, now); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return s.getProject(ctx, id)
}

// UpdateProject updates the non-empty fields of a project.
func (s *SQLite) UpdateProject(ctx context.Context, req core.UpdateProjectRequest) (*core.Project, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE projects SET
            name = COALESCE(NULLIF(?, ''), name),
            description = COALESCE(NULLIF(?, ''), description),
            updated_at = ?
         WHERE id = ?`,
		req.Name, req.Description, s.now().UnixMilli(), req.ID)
	if err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, ErrProjectNotFound
	}
	return s.getProject(ctx, req.ID)
}

// DeleteProject removes a project.
func (s *SQLite) DeleteProject(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrProjectNotFound
	}
	return nil
}

func (s *SQLite) getProject(ctx context.Context, id string) (*core.Project, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, description, created_at, updated_at FROM projects WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProjectNotFound
	}
	return p, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(row scanner) (*core.Project, error) {
	var (
		p                    core.Project
		description          sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&p.ID, &p.UserID, &p.Name, &description, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.CreatedAt = time.UnixMilli(createdAt).UTC().Format(time.RFC3339)
	p.UpdatedAt = time.UnixMilli(updatedAt).UTC().Format(time.RFC3339)
	return &p, nil
}
