// Package indexsource streams rows from the persistent symbol index: the
// external, read-only record of every module/class/function the scanner
// has previously observed, along with its current documentation status.
// The core never writes to this table; IndexSource is a pure reader.
package indexsource

import (
	"context"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docmaint/internal/model"
)

// storageRow mirrors the symbol-index table's columns. The table name is
// configurable (index.table in config.Config) since the scanner that
// populates it may name it per-project.
type storageRow struct {
	ID            string `gorm:"column:id;primaryKey"`
	FilePath      string `gorm:"column:filepath"`
	LineNo        int    `gorm:"column:lineno"`
	SymbolType    string `gorm:"column:symbol_type"`
	Name          string `gorm:"column:name"`
	Description   string `gorm:"column:description"`
	UniqueKeyHash string `gorm:"column:unique_key_hash"`
	Status        string `gorm:"column:status"`
}

// Source reads IndexRows from the symbol index. It holds no mutable
// pipeline state; only the opened database handle.
type Source struct {
	db    *gorm.DB
	table string
}

// Open connects to the symbol index at dsn (a SQLite DSN, e.g. a file
// path or "file::memory:?cache=shared") and verifies the configured table
// exists. table is the table name from config.Config's index.table.
func Open(dsn, table string) (*Source, error) {
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("indexsource: opening %s: %w", dsn, err)
	}
	if !db.Migrator().HasTable(table) {
		return nil, fmt.Errorf("indexsource: table %q not found in %s", table, dsn)
	}
	return &Source{db: db, table: table}, nil
}

// Rows streams IndexRows matching statusFilter (a raw SQL predicate
// fragment against the status column, or "" for no filter), capped at
// maxRows (0 means unlimited). Rows are read in filepath, lineno order so
// downstream stages see a stable, file-local ordering.
func (s *Source) Rows(ctx context.Context, statusFilter string, maxRows int) ([]model.IndexRow, error) {
	query := s.db.WithContext(ctx).Table(s.table).Order("filepath, lineno")
	if statusFilter != "" {
		query = query.Where(statusFilter)
	}
	if maxRows > 0 {
		query = query.Limit(maxRows)
	}
	var stored []storageRow
	if err := query.Find(&stored).Error; err != nil {
		return nil, fmt.Errorf("indexsource: querying %s: %w", s.table, err)
	}
	rows := make([]model.IndexRow, 0, len(stored))
	for _, sr := range stored {
		rows = append(rows, model.IndexRow{
			ID:            sr.ID,
			FilePath:      sr.FilePath,
			LineNo:        sr.LineNo,
			SymbolType:    parseSymbolType(sr.SymbolType),
			Name:          sr.Name,
			Description:   sr.Description,
			UniqueKeyHash: sr.UniqueKeyHash,
			Status:        sr.Status,
		})
	}
	return rows, nil
}

// Close releases the underlying database connection.
func (s *Source) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func parseSymbolType(s string) model.SymbolKind {
	switch s {
	case "module":
		return model.SymbolModule
	case "class":
		return model.SymbolClass
	case "function":
		return model.SymbolFunction
	default:
		return model.SymbolUnknown
	}
}
