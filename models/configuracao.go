package models

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Configuracao is an installation-wide setting.
type Configuracao struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Chave     string    `gorm:"size:100;uniqueIndex;not null" json:"chave"`
	Valor     string    `gorm:"type:text" json:"valor"`
	Descricao string    `gorm:"size:255" json:"descricao"`
	Secreta   bool      `gorm:"not null;default:false" json:"secreta"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Configuracao) TableName() string {
	return "configuracoes"
}

// UserConfiguracao overrides a setting for one user.
type UserConfiguracao struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_config_chave" json:"userId"`
	Chave     string    `gorm:"size:100;not null;uniqueIndex:idx_user_config_chave" json:"chave"`
	Valor     string    `gorm:"type:text" json:"valor"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserConfiguracao) TableName() string {
	return "user_configuracoes"
}

// GetConfiguracao returns the active global setting for chave.
func GetConfiguracao(db *gorm.DB, chave string) (*Configuracao, error) {
	var c Configuracao
	if err := db.First(&c, "chave = ? AND ativo = ?", chave, true).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// FindConfiguracao returns the setting for chave whether or not it is active.
func FindConfiguracao(db *gorm.DB, chave string) (*Configuracao, error) {
	var c Configuracao
	if err := db.First(&c, "chave = ?", chave).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func ListConfiguracoes(db *gorm.DB) ([]Configuracao, error) {
	var list []Configuracao
	err := db.Order("chave ASC").Find(&list).Error
	return list, err
}

// UpsertConfiguracao creates or updates by chave and (re)activates the row.
func UpsertConfiguracao(db *gorm.DB, c *Configuracao) error {
	var existing Configuracao
	err := db.First(&existing, "chave = ?", c.Chave).Error
	switch {
	case err == nil:
		c.ID = existing.ID
		c.CreatedAt = existing.CreatedAt
		return db.Model(&existing).Updates(map[string]any{
			"valor":     c.Valor,
			"descricao": c.Descricao,
			"secreta":   c.Secreta,
			"ativo":     true,
		}).Error
	case err == gorm.ErrRecordNotFound:
		c.Ativo = true
		return db.Create(c).Error
	default:
		return err
	}
}

func DeactivateConfiguracao(db *gorm.DB, chave string) error {
	res := db.Model(&Configuracao{}).
		Where("chave = ? AND ativo = ?", chave, true).
		Update("ativo", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func GetUserConfiguracao(db *gorm.DB, userID uint, chave string) (*UserConfiguracao, error) {
	var uc UserConfiguracao
	if err := db.First(&uc, "user_id = ? AND chave = ?", userID, chave).Error; err != nil {
		return nil, err
	}
	return &uc, nil
}

func ListUserConfiguracoes(db *gorm.DB, userID uint) ([]UserConfiguracao, error) {
	var list []UserConfiguracao
	err := db.Where("user_id = ?", userID).Order("chave ASC").Find(&list).Error
	return list, err
}

func UpsertUserConfiguracao(db *gorm.DB, userID uint, chave, valor string) error {
	uc := UserConfiguracao{UserID: userID, Chave: chave, Valor: valor}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "chave"}},
		DoUpdates: clause.AssignmentColumns([]string{"valor", "updated_at"}),
	}).Create(&uc).Error
}

// DeleteUserConfiguracao removes an override so the global value applies again.
func DeleteUserConfiguracao(db *gorm.DB, userID uint, chave string) error {
	res := db.Where("user_id = ? AND chave = ?", userID, chave).Delete(&UserConfiguracao{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
