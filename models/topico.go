package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// Topico is an entry of the admin-curated topic catalog.
type Topico struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Nome      string    `gorm:"size:120;uniqueIndex;not null" json:"nome"`
	Descricao string    `gorm:"type:text" json:"descricao"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (Topico) TableName() string {
	return "topicos"
}

// UserTopico links a user to a topic they follow.
type UserTopico struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_user_topico" json:"userId"`
	TopicoID  uint      `gorm:"not null;uniqueIndex:idx_user_topico" json:"topicoId"`
	Ativo     bool      `gorm:"not null;default:true" json:"ativo"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (UserTopico) TableName() string {
	return "user_topicos"
}

func ListTopicos(db *gorm.DB, onlyActive bool) ([]Topico, error) {
	var list []Topico
	q := db.Order("nome ASC")
	if onlyActive {
		q = q.Where("ativo = ?", true)
	}
	err := q.Find(&list).Error
	return list, err
}

func GetTopico(db *gorm.DB, id uint) (*Topico, error) {
	var t Topico
	if err := db.First(&t, id).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func GetActiveTopico(db *gorm.DB, id uint) (*Topico, error) {
	var t Topico
	if err := db.First(&t, "id = ? AND ativo = ?", id, true).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func TopicoNomeTaken(db *gorm.DB, nome string, exceptID uint) (bool, error) {
	var n int64
	err := db.Model(&Topico{}).Where("nome = ? AND id <> ?", nome, exceptID).Count(&n).Error
	return n > 0, err
}

func CreateTopico(db *gorm.DB, t *Topico) error {
	t.Ativo = true
	return db.Create(t).Error
}

func UpdateTopico(db *gorm.DB, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	return db.Model(&Topico{}).Where("id = ?", id).Updates(updates).Error
}

func DeactivateTopico(db *gorm.DB, id uint) error {
	res := db.Model(&Topico{}).Where("id = ? AND ativo = ?", id, true).Update("ativo", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FollowTopico creates the link or reactivates a previously removed one.
func FollowTopico(db *gorm.DB, userID, topicoID uint) error {
	var ut UserTopico
	err := db.First(&ut, "user_id = ? AND topico_id = ?", userID, topicoID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&UserTopico{UserID: userID, TopicoID: topicoID, Ativo: true}).Error
	}
	if err != nil {
		return err
	}
	if ut.Ativo {
		return nil
	}
	return db.Model(&ut).Update("ativo", true).Error
}

func UnfollowTopico(db *gorm.DB, userID, topicoID uint) error {
	res := db.Model(&UserTopico{}).
		Where("user_id = ? AND topico_id = ? AND ativo = ?", userID, topicoID, true).
		Update("ativo", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FollowedTopicoIDs returns the set of topic ids the user actively follows.
func FollowedTopicoIDs(db *gorm.DB, userID uint) (map[uint]bool, error) {
	var ids []uint
	err := db.Model(&UserTopico{}).
		Where("user_id = ? AND ativo = ?", userID, true).
		Pluck("topico_id", &ids).Error
	if err != nil {
		return nil, err
	}
	set := make(map[uint]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}
