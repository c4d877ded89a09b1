package db

import (
	"database/sql"

	"gorm.io/gorm"
	"gorm.io/gorm/schema"
)

// Timestamp trzyma znacznik czasu jako tekst gotowy do zapisu w kolumnie
// DATETIME (lub TIMESTAMP w Postgresie). Invalid = NULL.
type Timestamp struct {
	sql.NullString
}

func NewTimestamp(s string) Timestamp {
	return Timestamp{sql.NullString{String: s, Valid: true}}
}

func NullTimestamp() Timestamp { return Timestamp{} }

func (Timestamp) GormDataType() string { return "datetime" }

func (Timestamp) GormDBDataType(db *gorm.DB, _ *schema.Field) string {
	if db.Dialector.Name() == "postgres" {
		return "timestamp"
	}
	return "datetime"
}
