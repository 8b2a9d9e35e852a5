package models

import (
	"time"

	"gorm.io/gorm"
)

// Tema is a theme suggestion a user saved, optionally tied to a catalog topic.
type Tema struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	TopicoID  *uint     `gorm:"index" json:"topicoId,omitempty"`
	Titulo    string    `gorm:"size:255;not null" json:"titulo"`
	Descricao string    `gorm:"type:text" json:"descricao"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Tema) TableName() string {
	return "temas"
}

// UserTemaCarrossel is a carousel theme kept by a user for later generation.
type UserTemaCarrossel struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"userId"`
	Titulo    string    `gorm:"size:255;not null" json:"titulo"`
	Descricao string    `gorm:"type:text" json:"descricao"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserTemaCarrossel) TableName() string {
	return "user_temas_carrossel"
}

func CreateTema(db *gorm.DB, t *Tema) error {
	t.Ativo = true
	return db.Create(t).Error
}

// CreateTemas saves a batch of suggestions in one insert.
func CreateTemas(db *gorm.DB, temas []Tema) error {
	if len(temas) == 0 {
		return nil
	}
	for i := range temas {
		temas[i].Ativo = true
	}
	return db.Create(&temas).Error
}

func ListTemas(db *gorm.DB, userID uint, topicoID *uint) ([]Tema, error) {
	var list []Tema
	q := db.Where("user_id = ? AND ativo = ?", userID, true)
	if topicoID != nil {
		q = q.Where("topico_id = ?", *topicoID)
	}
	err := q.Order("created_at DESC, id DESC").Find(&list).Error
	return list, err
}

func DeactivateTema(db *gorm.DB, userID, id uint) error {
	return deactivate(db, &Tema{}, userID, id)
}

func CreateTemaCarrossel(db *gorm.DB, t *UserTemaCarrossel) error {
	t.Ativo = true
	return db.Create(t).Error
}

func ListTemasCarrossel(db *gorm.DB, userID uint) ([]UserTemaCarrossel, error) {
	var list []UserTemaCarrossel
	err := db.Where("user_id = ? AND ativo = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func DeactivateTemaCarrossel(db *gorm.DB, userID, id uint) error {
	return deactivate(db, &UserTemaCarrossel{}, userID, id)
}
