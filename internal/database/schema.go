package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ksred/job-tracker/internal/models"
	"gorm.io/gorm"
)

// BaseSchemaVersion is the generation assigned to a freshly created store
const BaseSchemaVersion = 1

// baseJobsTable is the original jobs layout with textual timestamps and audit columns
const baseJobsTable = `
CREATE TABLE IF NOT EXISTS jobs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	jobTitle TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT,
	remoteType TEXT DEFAULT 'on-site',
	salaryMin INTEGER,
	salaryMax INTEGER,
	status TEXT DEFAULT 'applied',
	jobUrl TEXT,
	notes TEXT,
	lastUpdated TEXT DEFAULT CURRENT_TIMESTAMP,
	createdAt TEXT DEFAULT CURRENT_TIMESTAMP,
	updatedAt TEXT DEFAULT CURRENT_TIMESTAMP
)`

const versionTable = `
CREATE TABLE IF NOT EXISTS db_version (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL,
	updated TEXT NOT NULL
)`

// ColumnInfo is one row of PRAGMA table_info
type ColumnInfo struct {
	CID          int     `gorm:"column:cid"`
	Name         string  `gorm:"column:name"`
	Type         string  `gorm:"column:type"`
	NotNull      int     `gorm:"column:notnull"`
	DefaultValue *string `gorm:"column:dflt_value"`
	PrimaryKey   int     `gorm:"column:pk"`
}

// IsTextual reports whether the declared type gives the column text affinity
// or is a date type that SQLite stores as text.
func (c ColumnInfo) IsTextual() bool {
	t := strings.ToUpper(c.Type)
	for _, marker := range []string{"TEXT", "CHAR", "CLOB", "DATE", "TIME"} {
		if strings.Contains(t, marker) {
			return true
		}
	}
	return false
}

// EnsureBaseSchema creates the jobs table in its original shape and the version
// marker row when either is missing. Existing tables are left untouched.
func EnsureBaseSchema(ctx context.Context, db *gorm.DB) error {
	db = db.WithContext(ctx)

	if err := db.Exec(baseJobsTable).Error; err != nil {
		return fmt.Errorf("failed to create jobs table: %w", err)
	}
	if err := db.Exec(versionTable).Error; err != nil {
		return fmt.Errorf("failed to create version table: %w", err)
	}
	if err := db.Exec(
		"INSERT OR IGNORE INTO db_version (id, version, updated) VALUES (?, ?, ?)",
		models.SchemaVersionRowID, BaseSchemaVersion, time.Now().UTC().Format(time.RFC3339),
	).Error; err != nil {
		return fmt.Errorf("failed to initialise version marker: %w", err)
	}

	return nil
}

// CurrentVersion reads the schema generation from the version marker
func CurrentVersion(ctx context.Context, db *gorm.DB) (int, error) {
	var marker models.SchemaVersion
	err := db.WithContext(ctx).First(&marker, models.SchemaVersionRowID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, fmt.Errorf("version marker missing")
		}
		return 0, fmt.Errorf("failed to read version marker: %w", err)
	}
	return marker.Version, nil
}

// SetVersion records version as the current schema generation
func SetVersion(ctx context.Context, db *gorm.DB, version int) error {
	result := db.WithContext(ctx).
		Model(&models.SchemaVersion{}).
		Where("id = ?", models.SchemaVersionRowID).
		Updates(map[string]interface{}{
			"version": version,
			"updated": time.Now().UTC().Format(time.RFC3339),
		})
	if result.Error != nil {
		return fmt.Errorf("failed to record version %d: %w", version, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("version marker missing")
	}
	return nil
}

// TableColumns returns the live column layout of table
func TableColumns(ctx context.Context, db *gorm.DB, table string) ([]ColumnInfo, error) {
	var columns []ColumnInfo
	if err := db.WithContext(ctx).Raw(fmt.Sprintf("PRAGMA table_info(%q)", table)).Scan(&columns).Error; err != nil {
		return nil, fmt.Errorf("failed to inspect table %s: %w", table, err)
	}
	return columns, nil
}

// FindColumn returns the named column from columns
func FindColumn(columns []ColumnInfo, name string) (ColumnInfo, bool) {
	for _, c := range columns {
		if c.Name == name {
			return c, true
		}
	}
	return ColumnInfo{}, false
}

// SwapTable replaces table with the already populated replacement
func SwapTable(ctx context.Context, tx *gorm.DB, table, replacement string) error {
	tx = tx.WithContext(ctx)
	if err := tx.Exec(fmt.Sprintf("DROP TABLE %q", table)).Error; err != nil {
		return fmt.Errorf("failed to drop %s: %w", table, err)
	}
	if err := tx.Exec(fmt.Sprintf("ALTER TABLE %q RENAME TO %q", replacement, table)).Error; err != nil {
		return fmt.Errorf("failed to rename %s to %s: %w", replacement, table, err)
	}
	return nil
}
