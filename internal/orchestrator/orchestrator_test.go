package orchestrator

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"docmaint/internal/config"
	"docmaint/internal/indexsource"
	"docmaint/internal/llmclient"
	"docmaint/internal/rundirs"
)

// seedIndex creates a minimal symbol-index table with one row pointing at
// a function that has no docstring yet, mirroring spec.md §8's S1
// end-to-end scenario.
func seedIndex(t *testing.T, dbPath string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(`CREATE TABLE symbols (
		id TEXT PRIMARY KEY,
		filepath TEXT,
		lineno INTEGER,
		symbol_type TEXT,
		name TEXT,
		description TEXT,
		unique_key_hash TEXT,
		status TEXT
	)`).Error; err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(`INSERT INTO symbols (id, filepath, lineno, symbol_type, name, status)
		VALUES ('x1', 'm.py', 1, 'function', 'add', 'pending')`).Error; err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()
}

func TestRunEndToEndCreatesDocstring(t *testing.T) {
	scanRoot := t.TempDir()
	source := "def add(a, b):\n    return a + b\n"
	if err := os.WriteFile(filepath.Join(scanRoot, "m.py"), []byte(source), 0o644); err != nil {
		t.Fatal(err)
	}

	dbPath := filepath.Join(t.TempDir(), "index.db")
	seedIndex(t, dbPath)
	idx, err := indexsource.Open(dbPath, "symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	cfg := config.Default()
	cfg.ProjectRoot = scanRoot
	cfg.ScanRoot = scanRoot
	cfg.IndexCfg = config.Index{URL: dbPath, Table: "symbols"}
	cfg.LLMCfg.Provider = "mock"

	rd, err := rundirs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	svc := llmclient.NewMockService(cfg.LLMCfg.ModelCtxTokens)
	orch := New(cfg, idx, svc, rd)

	sum, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.ItemsBuilt != 1 || sum.ItemsDocumented != 1 {
		t.Fatalf("sum = %+v", sum)
	}
	if sum.FilesPatched != 1 || sum.FilesRejected != 0 {
		t.Fatalf("sum = %+v", sum)
	}

	sandboxed, err := os.ReadFile(rd.SandboxAppliedPath("m.py"))
	if err != nil {
		t.Fatalf("sandbox file not written: %v", err)
	}
	got := string(sandboxed)
	if !strings.Contains(got, `"""`) {
		t.Errorf("sandbox output missing docstring: %q", got)
	}
	if !strings.Contains(got, "Summarize add.") {
		t.Errorf("sandbox output missing synthesized summary: %q", got)
	}
	if !strings.Contains(got, "return a + b") {
		t.Errorf("sandbox output lost original body: %q", got)
	}

	if _, err := os.Stat(rd.SummaryPath()); err != nil {
		t.Errorf("run_summary.json not written: %v", err)
	}
}

func TestRunNoRowsIsANoop(t *testing.T) {
	scanRoot := t.TempDir()
	dbPath := filepath.Join(t.TempDir(), "index.db")
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{})
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Exec(`CREATE TABLE symbols (
		id TEXT PRIMARY KEY, filepath TEXT, lineno INTEGER, symbol_type TEXT,
		name TEXT, description TEXT, unique_key_hash TEXT, status TEXT
	)`).Error; err != nil {
		t.Fatal(err)
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()

	idx, err := indexsource.Open(dbPath, "symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer idx.Close()

	cfg := config.Default()
	cfg.ProjectRoot = scanRoot
	cfg.ScanRoot = scanRoot
	cfg.IndexCfg = config.Index{URL: dbPath, Table: "symbols"}

	rd, err := rundirs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	orch := New(cfg, idx, llmclient.NewMockService(0), rd)

	sum, err := orch.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if sum.RowsFetched != 0 || sum.ItemsBuilt != 0 || sum.FilesPatched != 0 {
		t.Fatalf("sum = %+v", sum)
	}
}
