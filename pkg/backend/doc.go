// Package backend defines the storage and authentication capabilities the
// client depends on, and a local implementation backed by SQLite.
//
// The client never talks to a hosted backend directly. It is given three
// narrow capabilities:
//   - Auth: the current session and user, plus session refresh
//   - Storage: an object store for uploaded files
//   - Files: the user_files metadata rows
//
// SQLite implements all three in a single database file, which is enough for
// development, the CLI and tests. Use ":memory:" for a throwaway database.
package backend
