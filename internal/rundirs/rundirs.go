// Package rundirs creates and names the per-run artifact tree. A RunDir is
// the single durable, mutable surface of a run: nothing outside it is
// touched unless archive_and_replace is enabled and confirmed.
package rundirs

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/oklog/ulid/v2"

	"docmaint/internal/fileops"
)

// RunDir is the rooted, created artifact tree for one pipeline run. Its ID
// is a ULID, lexically sortable by creation time the same way the teacher
// names its message and session identifiers (ant.go, convo.go).
type RunDir struct {
	ID   string
	Root string
}

const (
	dirRawPrompts     = "raw_prompts"
	dirRawResponses   = "raw_responses"
	dirItems          = "items"
	dirVerifyReports  = "verify_reports"
	dirPatches        = "patches"
	dirSandboxApplied = "sandbox_applied"
	dirArchives       = "archives"
	dirProdApplied    = "prod_applied"
)

// New creates a fresh RunDir under parent, named after a new ULID.
func New(parent string) (*RunDir, error) {
	id := ulid.Make().String()
	root := filepath.Join(parent, id)
	rd := &RunDir{ID: id, Root: root}
	for _, sub := range []string{
		dirRawPrompts, dirRawResponses, dirItems, dirVerifyReports,
		dirPatches, dirSandboxApplied, dirArchives, dirProdApplied,
	} {
		if err := fileops.EnsureDir(filepath.Join(root, sub)); err != nil {
			return nil, fmt.Errorf("rundirs: creating %s: %w", sub, err)
		}
	}
	return rd, nil
}

func (rd *RunDir) RawPromptPath(batchIndex int) string {
	return filepath.Join(rd.Root, dirRawPrompts, fmt.Sprintf("batch_%03d.txt", batchIndex))
}

func (rd *RunDir) RawResponsePath(batchIndex int) string {
	return filepath.Join(rd.Root, dirRawResponses, fmt.Sprintf("batch_%03d.json", batchIndex))
}

func (rd *RunDir) ItemPath(id string) string {
	return filepath.Join(rd.Root, dirItems, id+".json")
}

func (rd *RunDir) VerifyReportPath(id string) string {
	return filepath.Join(rd.Root, dirVerifyReports, id+".txt")
}

// PatchPath returns the path for a file's combined diff, or, when id is
// non-empty, the per-item diff for that file (per spec.md's
// patches/<sanitized_relpath>[__<id>].patch naming).
func (rd *RunDir) PatchPath(relPath, id string) string {
	name := sanitizeRelPath(relPath)
	if id != "" {
		name += "__" + id
	}
	return filepath.Join(rd.Root, dirPatches, name+".patch")
}

func (rd *RunDir) SandboxAppliedPath(relPath string) string {
	return filepath.Join(rd.Root, dirSandboxApplied, relPath)
}

func (rd *RunDir) ArchivePath(relPath string) string {
	return filepath.Join(rd.Root, dirArchives, relPath)
}

func (rd *RunDir) ProdAppliedPath(relPath string) string {
	return filepath.Join(rd.Root, dirProdApplied, relPath)
}

func (rd *RunDir) RejectsManifestPath() string {
	return filepath.Join(rd.Root, "rejects.json")
}

func (rd *RunDir) SummaryPath() string {
	return filepath.Join(rd.Root, "run_summary.json")
}

func (rd *RunDir) LogPath() string {
	return filepath.Join(rd.Root, "run.log")
}

var nonFilenameSafe = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// sanitizeRelPath flattens a relative path into a single safe filename
// component, e.g. "pkg/foo.py" -> "pkg__foo.py".
func sanitizeRelPath(relPath string) string {
	cleaned := strings.ReplaceAll(filepath.ToSlash(relPath), "/", "__")
	return nonFilenameSafe.ReplaceAllString(cleaned, "_")
}
