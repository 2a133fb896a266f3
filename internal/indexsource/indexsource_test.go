package indexsource

import (
	"context"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"docmaint/internal/model"
)

func seedDB(t *testing.T, path string) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
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
	rows := []storageRow{
		{ID: "1", FilePath: "b.py", LineNo: 10, SymbolType: "function", Name: "g", Status: "stale"},
		{ID: "2", FilePath: "a.py", LineNo: 5, SymbolType: "class", Name: "C", Status: "ok"},
		{ID: "3", FilePath: "a.py", LineNo: 1, SymbolType: "module", Name: "a", Status: "missing"},
	}
	for _, r := range rows {
		if err := db.Table("symbols").Create(&r).Error; err != nil {
			t.Fatal(err)
		}
	}
	sqlDB, _ := db.DB()
	sqlDB.Close()
}

func TestSourceRowsOrderingAndFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	seedDB(t, dbPath)

	src, err := Open(dbPath, "symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rows, err := src.Rows(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Fatalf("got %d rows, want 3", len(rows))
	}
	// filepath, lineno order: a.py@1, a.py@5, b.py@10
	if rows[0].Name != "a" || rows[1].Name != "C" || rows[2].Name != "g" {
		t.Errorf("ordering wrong: %+v", rows)
	}
	if rows[0].SymbolType != model.SymbolModule {
		t.Errorf("SymbolType = %v, want SymbolModule", rows[0].SymbolType)
	}
}

func TestSourceRowsStatusFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	seedDB(t, dbPath)

	src, err := Open(dbPath, "symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rows, err := src.Rows(context.Background(), "status = 'stale'", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].Name != "g" {
		t.Errorf("got %+v", rows)
	}
}

func TestSourceRowsMaxRows(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "index.db")
	seedDB(t, dbPath)

	src, err := Open(dbPath, "symbols")
	if err != nil {
		t.Fatal(err)
	}
	defer src.Close()

	rows, err := src.Rows(context.Background(), "", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Errorf("got %d rows, want 1", len(rows))
	}
}

func TestOpenMissingTable(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "empty.db")
	if _, err := Open(dbPath, "nope"); err == nil {
		t.Fatal("Open() should fail for a missing table")
	}
}
