package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dataada/go-sdk/internal/validation"
	"github.com/dataada/go-sdk/pkg/backend"
	"github.com/dataada/go-sdk/pkg/core"
)

// FileInput is a file to upload.
type FileInput struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.Reader
}

// UploadResult reports the outcome for one file. FileID is set on success,
// Error on failure.
type UploadResult struct {
	Name   string `json:"name"`
	FileID string `json:"fileId,omitempty"`
	Error  string `json:"error,omitempty"`
}

// OK reports whether the file was uploaded.
func (r UploadResult) OK() bool {
	return r.Error == ""
}

// OpenFile opens a local file for upload. The caller closes the returned file.
func OpenFile(path string) (FileInput, *os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileInput{}, nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return FileInput{}, nil, err
	}

	return FileInput{
		Name:        filepath.Base(path),
		Size:        info.Size(),
		ContentType: validation.ContentType(path),
		Reader:      f,
	}, f, nil
}

// UploadFile uploads a single file.
func (c *Client) UploadFile(ctx context.Context, file FileInput) (UploadResult, error) {
	results, err := c.UploadFiles(ctx, []FileInput{file})
	if err != nil {
		return UploadResult{Name: file.Name}, err
	}
	return results[0], nil
}

// UploadFiles validates and uploads files concurrently. Validation and
// storage failures are reported per file; the returned error is reserved for
// failures of the whole call: too many files, no backend, no signed-in user
// or a cancelled context.
func (c *Client) UploadFiles(ctx context.Context, files []FileInput) ([]UploadResult, error) {
	if err := c.rules.CheckCount(len(files)); err != nil {
		return nil, err
	}

	results := make([]UploadResult, len(files))
	for i, f := range files {
		results[i].Name = f.Name
	}

	if c.useMock {
		if err := wait(ctx, c.mockConfig.APIDelay); err != nil {
			return nil, err
		}
		for i, f := range files {
			if err := c.rules.CheckFile(f.Name, f.Size); err != nil {
				results[i].Error = err.Error()
				continue
			}
			results[i].FileID = "file_" + uuid.NewString()
		}
		return results, nil
	}

	if c.backend == nil {
		return nil, core.ErrBackendMissing
	}
	user, err := c.backend.GetUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, core.ErrNotAuthenticated
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.uploadConcurrency)
	for i := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			id, err := c.uploadOne(gctx, user.ID, files[i])
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].FileID = id
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

func (c *Client) uploadOne(ctx context.Context, userID string, f FileInput) (string, error) {
	log := c.logger.WithFields(logrus.Fields{"file": f.Name, "user_id": userID})

	if err := c.rules.CheckFile(f.Name, f.Size); err != nil {
		log.WithError(err).Info("file rejected")
		return "", err
	}
	if f.Reader == nil {
		return "", &validation.FileError{Name: f.Name, Err: fmt.Errorf("no content")}
	}

	fileID := uuid.NewString()
	path := userID + "/" + fileID
	contentType := f.ContentType
	if contentType == "" {
		contentType = validation.ContentType(f.Name)
	}

	src := f.Reader
	if c.rules.MaxFileSize > 0 {
		src = io.LimitReader(src, c.rules.MaxFileSize+1)
	}
	counter := &countingReader{r: src}
	if err := c.backend.Upload(ctx, backend.UploadsBucket, path, counter, contentType); err != nil {
		log.WithError(err).Error("storage upload failed")
		return "", fmt.Errorf("upload failed: %w", err)
	}

	if c.rules.MaxFileSize > 0 && counter.n > c.rules.MaxFileSize {
		c.removeObject(ctx, path, log)
		return "", &validation.FileError{Name: f.Name, Err: validation.ErrFileTooLarge}
	}

	rec := backend.FileRecord{
		ID:       fileID,
		UserID:   userID,
		FileName: validation.SanitizeName(f.Name),
		FilePath: path,
		FileSize: counter.n,
		FileType: strings.TrimPrefix(strings.ToLower(filepath.Ext(f.Name)), "."),
	}
	if err := c.backend.InsertFile(ctx, rec); err != nil {
		log.WithError(err).Error("saving file record failed, removing uploaded object")
		c.removeObject(ctx, path, log)
		return "", fmt.Errorf("save file record: %w", err)
	}

	log.WithField("file_id", fileID).Info("file uploaded")
	return fileID, nil
}

func (c *Client) removeObject(ctx context.Context, path string, log logrus.FieldLogger) {
	if err := c.backend.Remove(context.WithoutCancel(ctx), backend.UploadsBucket, path); err != nil {
		log.WithError(err).Error("failed to remove uploaded object")
	}
}

// ListFiles returns the file records of the signed-in user.
func (c *Client) ListFiles(ctx context.Context) ([]backend.FileRecord, error) {
	if c.backend == nil {
		return nil, core.ErrBackendMissing
	}
	user, err := c.backend.GetUser(ctx)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, core.ErrNotAuthenticated
	}
	return c.backend.ListFiles(ctx, user.ID)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
