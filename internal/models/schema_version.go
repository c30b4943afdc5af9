package models

// SchemaVersionRowID is the primary key of the only row in db_version.
const SchemaVersionRowID = 1

// SchemaVersion records the schema generation applied to the store
type SchemaVersion struct {
	ID      int    `gorm:"column:id;primaryKey"`
	Version int    `gorm:"column:version;not null"`
	Updated string `gorm:"column:updated;not null"` // RFC 3339
}

// TableName ensures consistent table naming
func (SchemaVersion) TableName() string {
	return "db_version"
}
