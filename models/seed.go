package models

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// DefaultConfiguracoes are inserted by Seed when their chave does not exist yet.
// Empty values fall through to the config file at lookup time.
var DefaultConfiguracoes = []Configuracao{
	{Chave: "openrouter_api_key", Descricao: "Chave da API OpenRouter", Secreta: true},
	{Chave: "openrouter_model", Descricao: "Modelo usado para gerar temas, roteiros e carrosséis"},
	{Chave: "elevenlabs_api_key", Descricao: "Chave da API ElevenLabs", Secreta: true},
	{Chave: "elevenlabs_voice_id", Descricao: "Voz padrão das narrações"},
	{Chave: "elevenlabs_model_id", Descricao: "Modelo de síntese de voz"},
	{Chave: "allow_registration", Valor: "true", Descricao: "Permite cadastro público de usuários"},
	{Chave: "idioma", Valor: "pt-BR", Descricao: "Idioma padrão do conteúdo gerado"},
	{Chave: "tom_padrao", Valor: "informativo", Descricao: "Tom padrão do conteúdo gerado"},
}

var DefaultTopicos = []Topico{
	{Nome: "Tecnologia", Descricao: "Novidades, ferramentas e tendências de tecnologia"},
	{Nome: "Finanças pessoais", Descricao: "Orçamento, investimentos e educação financeira"},
	{Nome: "Saúde e bem-estar", Descricao: "Hábitos saudáveis, exercícios e saúde mental"},
	{Nome: "Empreendedorismo", Descricao: "Negócios, marketing e gestão"},
	{Nome: "Educação", Descricao: "Aprendizado, estudos e carreira"},
}

// Seed inserts missing default settings and, on an empty catalog, the default topics.
func Seed(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		created := 0
		for _, def := range DefaultConfiguracoes {
			var existing Configuracao
			err := tx.First(&existing, "chave = ?", def.Chave).Error
			if err == nil {
				continue
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			c := def
			c.Ativo = true
			if err := tx.Create(&c).Error; err != nil {
				return fmt.Errorf("seed configuracao %s: %w", c.Chave, err)
			}
			created++
		}
		log.Info("configurações padrão verificadas", "criadas", created)

		var topicos int64
		if err := tx.Model(&Topico{}).Count(&topicos).Error; err != nil {
			return err
		}
		if topicos > 0 {
			return nil
		}
		list := make([]Topico, len(DefaultTopicos))
		for i, t := range DefaultTopicos {
			t.Ativo = true
			list[i] = t
		}
		if err := tx.Create(&list).Error; err != nil {
			return fmt.Errorf("seed topicos: %w", err)
		}
		log.Info("tópicos padrão criados", "total", len(list))
		return nil
	})
}

// EnsureAdmin creates an admin account, or promotes and reactivates the
// existing account with that email, resetting its password.
func EnsureAdmin(db *gorm.DB, nome, email, senha string) (*User, error) {
	u, err := GetUserByEmail(db, email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		u = &User{Nome: nome, Email: email, Role: RoleAdmin}
		if err := u.SetSenha(senha); err != nil {
			return nil, err
		}
		if err := CreateUser(db, u); err != nil {
			return nil, err
		}
		return u, nil
	case err != nil:
		return nil, err
	}

	if err := u.SetSenha(senha); err != nil {
		return nil, err
	}
	err = UpdateUser(db, u.ID, map[string]any{
		"role":       RoleAdmin,
		"ativo":      true,
		"senha_hash": u.SenhaHash,
	})
	if err != nil {
		return nil, err
	}
	u.Role = RoleAdmin
	u.Ativo = true
	return u, nil
}
