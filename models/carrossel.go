package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Slide struct {
	Ordem  int    `json:"ordem"`
	Titulo string `json:"titulo"`
	Texto  string `json:"texto"`
}

// Slides is stored as a JSON column.
type Slides []Slide

func (s Slides) Value() (driver.Value, error) {
	if s == nil {
		return "[]", nil
	}
	b, err := json.Marshal(s)
	return string(b), err
}

func (s *Slides) Scan(value any) error {
	return scanJSON(value, s)
}

// StringList is stored as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func (l *StringList) Scan(value any) error {
	return scanJSON(value, l)
}

func scanJSON(value any, dst any) error {
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		if len(v) == 0 {
			return nil
		}
		return json.Unmarshal(v, dst)
	case string:
		if v == "" {
			return nil
		}
		return json.Unmarshal([]byte(v), dst)
	default:
		return fmt.Errorf("unsupported JSON column value %T", value)
	}
}

// UserCarrossel is a generated social-media carousel.
type UserCarrossel struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"userId"`
	Tema      string     `gorm:"size:255;not null" json:"tema"`
	Titulo    string     `gorm:"size:255" json:"titulo"`
	Slides    Slides     `gorm:"type:json" json:"slides"`
	Legenda   string     `gorm:"type:text" json:"legenda"`
	Hashtags  StringList `gorm:"type:json" json:"hashtags"`
	Ativo     bool       `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

func (UserCarrossel) TableName() string {
	return "user_carrosseis"
}

func CreateCarrossel(db *gorm.DB, c *UserCarrossel) error {
	c.Ativo = true
	return db.Create(c).Error
}

func ListCarrosseis(db *gorm.DB, userID uint) ([]UserCarrossel, error) {
	var list []UserCarrossel
	err := db.Where("user_id = ? AND ativo = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func GetCarrossel(db *gorm.DB, userID, id uint) (*UserCarrossel, error) {
	var c UserCarrossel
	err := db.First(&c, "id = ? AND user_id = ? AND ativo = ?", id, userID, true).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func DeactivateCarrossel(db *gorm.DB, userID, id uint) error {
	return deactivate(db, &UserCarrossel{}, userID, id)
}
