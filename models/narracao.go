package models

import (
	"time"

	"gorm.io/gorm"
)

// Narration lifecycle: pendente -> processando -> concluida | erro.
const (
	NarracaoPendente    = "pendente"
	NarracaoProcessando = "processando"
	NarracaoConcluida   = "concluida"
	NarracaoErro        = "erro"
)

type UserNarracao struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"userId"`
	Titulo          string    `gorm:"size:255" json:"titulo"`
	Texto           string    `gorm:"type:text;not null" json:"texto"`
	VoiceID         string    `gorm:"size:100" json:"voiceId"`
	Status          string    `gorm:"size:20;not null;default:pendente;index" json:"status"`
	Arquivo         string    `gorm:"size:255" json:"arquivo"`
	AudioURL        string    `gorm:"type:text" json:"audioUrl"`
	DuracaoSegundos float64   `json:"duracaoSegundos"`
	Erro            string    `gorm:"type:text" json:"erro,omitempty"`
	Ativo           bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func (UserNarracao) TableName() string {
	return "user_narracoes"
}

func CreateNarracao(db *gorm.DB, n *UserNarracao) error {
	n.Ativo = true
	if n.Status == "" {
		n.Status = NarracaoPendente
	}
	return db.Create(n).Error
}

func GetNarracaoByID(db *gorm.DB, id uint) (*UserNarracao, error) {
	var n UserNarracao
	if err := db.First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

// GetNarracao returns an active narration owned by userID.
func GetNarracao(db *gorm.DB, userID, id uint) (*UserNarracao, error) {
	var n UserNarracao
	err := db.First(&n, "id = ? AND user_id = ? AND ativo = ?", id, userID, true).Error
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func ListNarracoes(db *gorm.DB, userID uint) ([]UserNarracao, error) {
	var list []UserNarracao
	err := db.Where("user_id = ? AND ativo = ?", userID, true).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

// UpdateNarracao writes the given columns of n.
func UpdateNarracao(db *gorm.DB, n *UserNarracao, updates map[string]any) error {
	return db.Model(n).Updates(updates).Error
}

func DeactivateNarracao(db *gorm.DB, userID, id uint) error {
	return deactivate(db, &UserNarracao{}, userID, id)
}

// ArquivoReferenced reports whether any narration row points at the audio file.
func ArquivoReferenced(db *gorm.DB, arquivo string) (bool, error) {
	var n int64
	err := db.Model(&UserNarracao{}).Where("arquivo = ? AND ativo = ?", arquivo, true).Count(&n).Error
	return n > 0, err
}
