// Package sourceretrieve guards path resolution against scan_root and the
// exclude_globs list, and caches each file's content across the items that
// reference it so a file with many targeted symbols is read once.
package sourceretrieve

import (
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"docmaint/internal/fileops"
)

// PathError reports a path that resolved outside scan_root or matched an
// exclude glob.
type PathError struct {
	RelPath string
	Reason  string
}

func (e *PathError) Error() string {
	return fmt.Sprintf("sourceretrieve: %s: %s", e.RelPath, e.Reason)
}

// Retriever resolves and caches source file reads for one run.
type Retriever struct {
	scanRoot     string
	excludeGlobs []string

	mu    sync.Mutex
	cache map[string]string // absPath -> content
}

func New(scanRoot string, excludeGlobs []string) *Retriever {
	return &Retriever{
		scanRoot:     scanRoot,
		excludeGlobs: excludeGlobs,
		cache:        make(map[string]string),
	}
}

// Resolve validates rawPath (as recorded by the scanner, possibly absolute)
// against scan_root and exclude_globs, returning its absolute path.
func (r *Retriever) Resolve(rawPath string) (absPath, relPath string, err error) {
	abs := rawPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(r.scanRoot, rawPath)
	}
	abs = filepath.Clean(abs)

	rel, err := filepath.Rel(r.scanRoot, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", "", &PathError{RelPath: rawPath, Reason: "resolves outside scan_root"}
	}
	relPosix := filepath.ToSlash(rel)
	for _, glob := range r.excludeGlobs {
		if matchGlob(glob, relPosix) {
			return "", "", &PathError{RelPath: rawPath, Reason: fmt.Sprintf("matches exclude glob %q", glob)}
		}
	}
	return abs, relPosix, nil
}

// matchGlob supports a doublestar-lite "**" suffix (e.g. "output/**")
// alongside filepath.Match's single-segment patterns, since exclude_globs
// in spec.md's examples ("output/**", ".git/**") need to match whole
// subtrees, not just one path segment.
func matchGlob(glob, relPosix string) bool {
	if strings.HasSuffix(glob, "/**") {
		prefix := strings.TrimSuffix(glob, "/**")
		return relPosix == prefix || strings.HasPrefix(relPosix, prefix+"/")
	}
	ok, _ := filepath.Match(glob, relPosix)
	return ok
}

// Read returns a file's full text, reading from disk only on first access.
func (r *Retriever) Read(absPath string) (string, error) {
	r.mu.Lock()
	if content, ok := r.cache[absPath]; ok {
		r.mu.Unlock()
		return content, nil
	}
	r.mu.Unlock()

	buf, err := fileops.ReadFile(absPath)
	if err != nil {
		return "", err
	}
	content := buf.String(false)

	r.mu.Lock()
	r.cache[absPath] = content
	r.mu.Unlock()
	return content, nil
}
