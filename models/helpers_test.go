package models

import (
	"fmt"
	"testing"

	"ContentStudio-server/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := Open(config.Database{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	require.NoError(t, err)
	require.NoError(t, Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, email, role string) *User {
	t.Helper()
	u := &User{Nome: "Teste " + email, Email: email, Role: role}
	require.NoError(t, u.SetSenha("senha123"))
	require.NoError(t, CreateUser(db, u))
	return u
}
