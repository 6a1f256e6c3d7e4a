package validation

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Upload validation errors
var (
	ErrTooManyFiles    = errors.New("too many files")
	ErrFileTooLarge    = errors.New("file too large")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFileName   = errors.New("file name is empty")
)

// FileRules defines what an upload may contain
type FileRules struct {
	// MaxFiles is the maximum number of files per upload call
	MaxFiles int

	// MaxFileSize is the maximum size of a single file in bytes
	MaxFileSize int64

	// AllowedExtensions lists accepted extensions, lower case with the dot
	AllowedExtensions []string
}

// DefaultFileRules returns the rules for spreadsheet uploads
func DefaultFileRules() FileRules {
	return FileRules{
		MaxFiles:          5,
		MaxFileSize:       10 * 1024 * 1024, // 10MB
		AllowedExtensions: []string{".csv", ".xlsx", ".xls"},
	}
}

// FileError reports which file failed validation
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// CheckCount validates the number of files in one call
func (r FileRules) CheckCount(n int) error {
	if r.MaxFiles > 0 && n > r.MaxFiles {
		return fmt.Errorf("%w: %d files, at most %d allowed", ErrTooManyFiles, n, r.MaxFiles)
	}
	return nil
}

// CheckFile validates a single file's name and size
func (r FileRules) CheckFile(name string, size int64) error {
	if strings.TrimSpace(name) == "" {
		return &FileError{Name: name, Err: ErrEmptyFileName}
	}

	if r.MaxFileSize > 0 && size > r.MaxFileSize {
		return &FileError{
			Name: name,
			Err:  fmt.Errorf("%w: %d bytes, at most %d allowed", ErrFileTooLarge, size, r.MaxFileSize),
		}
	}

	ext := strings.ToLower(filepath.Ext(name))
	for _, allowed := range r.AllowedExtensions {
		if ext == allowed {
			return nil
		}
	}
	return &FileError{Name: name, Err: fmt.Errorf("%w: %q", ErrUnsupportedType, ext)}
}

var unsafeNameChars = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// SanitizeName strips directories and replaces characters that are unsafe in
// storage paths with underscores
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}

// contentTypes maps accepted extensions to MIME types
var contentTypes = map[string]string{
	".csv":  "text/csv",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
}

// ContentType returns the MIME type for a file name
func ContentType(name string) string {
	if ct, ok := contentTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return ct
	}
	return "application/octet-stream"
}
