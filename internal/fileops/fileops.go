// Package fileops provides the line-oriented file reads and atomic writes
// every later stage builds on: splitting source text into lines while
// remembering whether it used CRLF or LF endings, and writing files back
// without ever leaving a half-written file on disk.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// IoError wraps a filesystem failure with the path that caused it.
type IoError struct {
	Path string
	Op   string
	Err  error
}

func (e *IoError) Error() string {
	return fmt.Sprintf("fileops: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IoError) Unwrap() error { return e.Err }

// Buffer is a file's content split into lines, remembering its original
// line-ending convention so a round trip reproduces it. String always ends
// the text with a terminator, so a missing final newline is not preserved.
type Buffer struct {
	Path  string
	Lines []string // without trailing newline characters
	CRLF  bool
}

// ReadFile loads a file into a Buffer, detecting CRLF vs LF from its
// dominant line ending.
func ReadFile(path string) (*Buffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IoError{Path: path, Op: "read", Err: err}
	}
	return ParseBuffer(path, string(data)), nil
}

// ParseBuffer splits raw text into a Buffer, used both by ReadFile and by
// callers holding in-memory content (e.g. sandbox copies).
func ParseBuffer(path, text string) *Buffer {
	// CRLF only when more than half of the line endings are CRLF.
	crlf := strings.Count(text, "\r\n")*2 > strings.Count(text, "\n")
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	trailingNewline := strings.HasSuffix(normalized, "\n")
	if trailingNewline {
		normalized = normalized[:len(normalized)-1]
	}
	var lines []string
	if normalized == "" && !trailingNewline {
		lines = nil
	} else {
		lines = strings.Split(normalized, "\n")
	}
	return &Buffer{Path: path, Lines: lines, CRLF: crlf}
}

// String reassembles the buffer's lines into text, restoring the original
// line-ending convention and a trailing newline (spec.md's preserve_crlf
// run option controls whether callers force CRLF regardless of detection).
func (b *Buffer) String(forceCRLF bool) string {
	nl := "\n"
	if b.CRLF || forceCRLF {
		nl = "\r\n"
	}
	if len(b.Lines) == 0 {
		return ""
	}
	return strings.Join(b.Lines, nl) + nl
}

// Slice returns lines [start, end] inclusive, 1-based, matching the
// indexing convention used by model.PatchOp.StartLine/EndLine.
func (b *Buffer) Slice(start, end int) []string {
	if start < 1 {
		start = 1
	}
	if end > len(b.Lines) {
		end = len(b.Lines)
	}
	if start > end {
		return nil
	}
	return append([]string(nil), b.Lines[start-1:end]...)
}

// WriteFileAtomic writes data to path by first writing to a sibling temp
// file and renaming it into place, so a crash mid-write never leaves a
// truncated file behind.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".docmaint-tmp-*")
	if err != nil {
		return &IoError{Path: path, Op: "create-temp", Err: err}
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return &IoError{Path: path, Op: "write-temp", Err: err}
	}
	if err := tmp.Close(); err != nil {
		return &IoError{Path: path, Op: "close-temp", Err: err}
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return &IoError{Path: path, Op: "chmod-temp", Err: err}
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return &IoError{Path: path, Op: "rename", Err: err}
	}
	return nil
}

// EnsureDir creates dir (and parents) if missing.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &IoError{Path: dir, Op: "mkdir", Err: err}
	}
	return nil
}
