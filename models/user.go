package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

const bcryptCost = 10

type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Nome      string    `gorm:"size:120;not null" json:"nome"`
	Email     string    `gorm:"size:191;uniqueIndex;not null" json:"email"`
	SenhaHash string    `gorm:"size:255;not null" json:"-"`
	Role      string    `gorm:"size:20;not null;default:user" json:"role"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// SetSenha hashes and stores a new password.
func (u *User) SetSenha(senha string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(senha), bcryptCost)
	if err != nil {
		return err
	}
	u.SenhaHash = string(hash)
	return nil
}

func (u *User) CheckSenha(senha string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.SenhaHash), []byte(senha)) == nil
}

// NormalizeEmail lowercases and trims an address before it is stored or looked up.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleUser
}

func CreateUser(db *gorm.DB, u *User) error {
	u.Email = NormalizeEmail(u.Email)
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.Ativo = true
	return db.Create(u).Error
}

func GetUserByID(db *gorm.DB, id uint) (*User, error) {
	var u User
	if err := db.First(&u, id).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func GetUserByEmail(db *gorm.DB, email string) (*User, error) {
	var u User
	if err := db.First(&u, "email = ?", NormalizeEmail(email)).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

func EmailTaken(db *gorm.DB, email string, exceptID uint) (bool, error) {
	var n int64
	err := db.Model(&User{}).
		Where("email = ? AND id <> ?", NormalizeEmail(email), exceptID).
		Count(&n).Error
	return n > 0, err
}

func ListUsers(db *gorm.DB) ([]User, error) {
	var users []User
	err := db.Order("nome ASC").Find(&users).Error
	return users, err
}

// UpdateUser applies a partial update. Keys are column names.
func UpdateUser(db *gorm.DB, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&User{}).Where("id = ?", id).Updates(updates).Error
}

func CountAdmins(db *gorm.DB) (int64, error) {
	var n int64
	err := db.Model(&User{}).Where("role = ? AND ativo = ?", RoleAdmin, true).Count(&n).Error
	return n, err
}
