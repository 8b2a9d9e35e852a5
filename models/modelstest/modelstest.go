// Package modelstest provides database fixtures for tests in other packages.
package modelstest

import (
	"fmt"
	"testing"

	"ContentStudio-server/config"
	"ContentStudio-server/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Password is the password of every user created by CreateUser.
const Password = "senha123"

// OpenDB returns a migrated, private in-memory SQLite database.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := models.Open(config.Database{
		Driver: "sqlite",
		DSN:    fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

// CreateUser inserts an active user with Password.
func CreateUser(t testing.TB, db *gorm.DB, email, role string) *models.User {
	t.Helper()
	u := &models.User{Nome: "Teste " + email, Email: email, Role: role}
	if err := u.SetSenha(Password); err != nil {
		t.Fatalf("hash password: %v", err)
	}
	if err := models.CreateUser(db, u); err != nil {
		t.Fatalf("create user: %v", err)
	}
	return u
}
