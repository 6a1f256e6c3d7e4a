package backend

import (
	"context"
	"strings"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dataada/go-sdk/pkg/core"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }

func openTest(t *testing.T, opts ...SQLiteOption) *SQLite {
	t.Helper()

	logger, _ := logtest.NewNullLogger()
	s, err := OpenSQLite(":memory:", append([]SQLiteOption{WithLogger(logger)}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLite_OpenFile(t *testing.T) {
	path := t.TempDir() + "/nested/dataada.db"

	s, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	// Reopening keeps the schema.
	s, err = OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}

func TestSQLite_Sessions(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := openTest(t, WithClock(clock.now), WithSessionTTL(time.Minute))

	session, err := s.GetSession(ctx)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.ErrorIs(t, s.RefreshSession(ctx), ErrNoSession)

	user, err := s.GetUser(ctx)
	require.NoError(t, err)
	assert.Nil(t, user)

	created, err := s.SignIn(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)
	assert.NotEmpty(t, created.AccessToken)

	session, err = s.GetSession(ctx)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, created.UserID, session.UserID)

	user, err = s.GetUser(ctx)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada", user.Name)

	t.Run("signing in again reuses the user", func(t *testing.T) {
		again, err := s.SignIn(ctx, "ada@example.com", "")
		require.NoError(t, err)
		assert.Equal(t, created.UserID, again.UserID)
		assert.NotEqual(t, created.AccessToken, again.AccessToken)
	})

	t.Run("expiry and refresh", func(t *testing.T) {
		clock.t = clock.t.Add(50 * time.Second)
		require.NoError(t, s.RefreshSession(ctx))

		clock.t = clock.t.Add(50 * time.Second)
		session, err := s.GetSession(ctx)
		require.NoError(t, err)
		assert.NotNil(t, session, "refreshed session should still be valid")

		clock.t = clock.t.Add(time.Minute)
		session, err = s.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})

	t.Run("sign out", func(t *testing.T) {
		require.NoError(t, s.SignOut(ctx))
		session, err := s.GetSession(ctx)
		require.NoError(t, err)
		assert.Nil(t, session)
	})
}

func TestSQLite_Storage(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	require.NoError(t, s.Upload(ctx, UploadsBucket, "u1/f1", strings.NewReader("a,b\n1,2\n"), "text/csv"))

	content, err := s.Download(ctx, UploadsBucket, "u1/f1")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", string(content))

	require.NoError(t, s.Upload(ctx, UploadsBucket, "u1/f1", strings.NewReader("x"), "text/csv"))
	content, err = s.Download(ctx, UploadsBucket, "u1/f1")
	require.NoError(t, err)
	assert.Equal(t, "x", string(content))

	require.NoError(t, s.Remove(ctx, UploadsBucket, "u1/f1", "u1/missing"))
	_, err = s.Download(ctx, UploadsBucket, "u1/f1")
	assert.ErrorIs(t, err, ErrObjectNotFound)

	assert.Equal(t, "sqlite://user-uploads/u1/f1", s.PublicURL(UploadsBucket, "u1/f1"))
}

func TestSQLite_Files(t *testing.T) {
	ctx := context.Background()
	s := openTest(t)

	recs := []FileRecord{
		{ID: "f1", UserID: "u1", FileName: "grades.csv", FilePath: "u1/f1", FileSize: 12, FileType: "text/csv", CreatedAt: time.UnixMilli(1000)},
		{ID: "f2", UserID: "u1", FileName: "scores.xlsx", FilePath: "u1/f2", FileSize: 34, CreatedAt: time.UnixMilli(2000)},
		{ID: "f3", UserID: "u2", FileName: "other.csv", FilePath: "u2/f3", FileSize: 1},
	}
	for _, rec := range recs {
		require.NoError(t, s.InsertFile(ctx, rec))
	}

	assert.Error(t, s.InsertFile(ctx, recs[0]), "duplicate id must fail")

	files, err := s.ListFiles(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "grades.csv", files[0].FileName)
	assert.Equal(t, "text/csv", files[0].FileType)
	assert.Equal(t, int64(34), files[1].FileSize)

	require.NoError(t, s.DeleteFile(ctx, "f1"))
	assert.ErrorIs(t, s.DeleteFile(ctx, "f1"), ErrFileNotFound)
}

func TestSQLite_Projects(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := openTest(t, WithClock(clock.now))

	_, err := s.CreateProject(ctx, core.CreateProjectRequest{UserID: "u1"})
	assert.Error(t, err)

	first, err := s.CreateProject(ctx, core.CreateProjectRequest{Name: "Grades", Description: "term 1", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, "Grades", first.Name)
	assert.Equal(t, "2024-05-01T10:00:00Z", first.CreatedAt)

	clock.t = clock.t.Add(time.Hour)
	second, err := s.CreateProject(ctx, core.CreateProjectRequest{Name: "Sales", UserID: "u1"})
	require.NoError(t, err)

	projects, err := s.ListProjects(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, second.ID, projects[0].ID)

	clock.t = clock.t.Add(time.Hour)
	updated, err := s.UpdateProject(ctx, core.UpdateProjectRequest{ID: first.ID, Name: "Grades 2024"})
	require.NoError(t, err)
	assert.Equal(t, "Grades 2024", updated.Name)
	assert.Equal(t, "term 1", updated.Description)
	assert.Equal(t, "2024-05-01T12:00:00Z", updated.UpdatedAt)

	_, err = s.UpdateProject(ctx, core.UpdateProjectRequest{ID: "missing", Name: "x"})
	assert.ErrorIs(t, err, ErrProjectNotFound)

	require.NoError(t, s.DeleteProject(ctx, first.ID))
	assert.ErrorIs(t, s.DeleteProject(ctx, first.ID), ErrProjectNotFound)

	projects, err = s.ListProjects(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestSQLite_LookupSession(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
	s := openTest(t, WithClock(clock.now), WithSessionTTL(time.Minute))

	session, err := s.SignIn(ctx, "ada@example.com", "Ada")
	require.NoError(t, err)

	got, err := s.LookupSession(ctx, session.AccessToken)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, session.UserID, got.UserID)

	for _, token := range []string{"", "unknown"} {
		got, err := s.LookupSession(ctx, token)
		require.NoError(t, err)
		assert.Nil(t, got)
	}

	clock.t = clock.t.Add(2 * time.Minute)
	got, err = s.LookupSession(ctx, session.AccessToken)
	require.NoError(t, err)
	assert.Nil(t, got)
}
