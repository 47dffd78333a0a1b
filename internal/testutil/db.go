// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"supplymarket/internal/config"
	"supplymarket/internal/database"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// NewTestDB opens a fresh in-memory sqlite database with the schema migrated.
// Each call gets its own database, so tests never see each other's rows.
func NewTestDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:       "sqlite",
		DSN:          fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.New().String()),
		LogLevel:     "silent",
		MaxOpenConns: 1,
	})
	if err != nil {
		t.Fatalf("failed to connect to in-memory database: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("failed to auto-migrate database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
