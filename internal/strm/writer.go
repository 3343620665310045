package strm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
)

// Sentinel errors, matched through *WriteError with errors.Is.
var (
	ErrInvalidName = errors.New("strm: filename must be a single path element")
	ErrPermission  = errors.New("strm: permission denied")
	ErrDiskFull    = errors.New("strm: no space left on device")
	ErrNameTooLong = errors.New("strm: file name too long")
)

// Reason classifies a failed write.
type Reason int

const (
	ReasonOther Reason = iota
	ReasonPermission
	ReasonDiskFull
	ReasonNameTooLong
)

func (r Reason) String() string {
	switch r {
	case ReasonPermission:
		return "permission"
	case ReasonDiskFull:
		return "disk_full"
	case ReasonNameTooLong:
		return "name_too_long"
	default:
		return "other"
	}
}

// WriteError describes a failed directory creation or file write.
// Error returns the underlying OS message unchanged.
type WriteError struct {
	Path   string
	Reason Reason
	Err    error
}

func (e *WriteError) Error() string { return e.Err.Error() }

func (e *WriteError) Unwrap() error { return e.Err }

// Is matches the sentinel that corresponds to Reason.
func (e *WriteError) Is(target error) bool {
	switch target {
	case ErrPermission:
		return e.Reason == ReasonPermission
	case ErrDiskFull:
		return e.Reason == ReasonDiskFull
	case ErrNameTooLong:
		return e.Reason == ReasonNameTooLong
	}
	return false
}

func classify(err error) Reason {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return ReasonPermission
	case errors.Is(err, syscall.ENOSPC):
		return ReasonDiskFull
	case errors.Is(err, syscall.ENAMETOOLONG):
		return ReasonNameTooLong
	default:
		return ReasonOther
	}
}

// Default permissions for the target folder and written files.
const (
	DefaultDirPerm  fs.FileMode = 0o755
	DefaultFilePerm fs.FileMode = 0o644
)

// Writer stores files in a single directory, creating it on demand.
// It is safe for concurrent use.
type Writer struct {
	Dir      string
	DirPerm  fs.FileMode
	FilePerm fs.FileMode
}

// NewWriter returns a Writer for dir with default permissions.
func NewWriter(dir string) *Writer {
	return &Writer{Dir: dir, DirPerm: DefaultDirPerm, FilePerm: DefaultFilePerm}
}

// Write creates or truncates Dir/filename with content and returns the
// full path. The directory is created first if missing.
func (w *Writer) Write(filename, content string) (string, error) {
	if !isSingleElement(filename) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}

	dirPerm, filePerm := w.DirPerm, w.FilePerm
	if dirPerm == 0 {
		dirPerm = DefaultDirPerm
	}
	if filePerm == 0 {
		filePerm = DefaultFilePerm
	}

	if err := os.MkdirAll(w.Dir, dirPerm); err != nil {
		return "", &WriteError{Path: w.Dir, Reason: classify(err), Err: err}
	}

	path := filepath.Join(w.Dir, filename)
	if err := os.WriteFile(path, []byte(content), filePerm); err != nil {
		return "", &WriteError{Path: path, Reason: classify(err), Err: err}
	}
	return path, nil
}

func isSingleElement(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return filepath.Base(name) == name
}
