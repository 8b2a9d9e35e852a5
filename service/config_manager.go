package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"ContentStudio-server/config"
	"ContentStudio-server/metrics"
	"ContentStudio-server/models"

	"github.com/jonboulle/clockwork"
	"gorm.io/gorm"
)

// Setting keys resolved through the ConfigManager.
const (
	KeyOpenRouterAPIKey  = "openrouter_api_key"
	KeyOpenRouterModel   = "openrouter_model"
	KeyElevenLabsAPIKey  = "elevenlabs_api_key"
	KeyElevenLabsVoiceID = "elevenlabs_voice_id"
	KeyElevenLabsModelID = "elevenlabs_model_id"
	KeyMockMode          = "mock_mode"
	KeyAllowRegistration = "allow_registration"
	KeyIdioma            = "idioma"
	KeyTomPadrao         = "tom_padrao"
	KeyPromptTemas       = "prompt_temas"
	KeyPromptRoteiro     = "prompt_roteiro"
	KeyPromptCarrossel   = "prompt_carrossel"
)

// UserEditableKeys may be overridden per user through /api/configuracoes.
var UserEditableKeys = []string{
	KeyOpenRouterModel,
	KeyElevenLabsVoiceID,
	KeyElevenLabsModelID,
	KeyIdioma,
	KeyTomPadrao,
}

func IsUserEditable(chave string) bool {
	for _, k := range UserEditableKeys {
		if k == chave {
			return true
		}
	}
	return false
}

// IsSecretKey reports whether a value must be masked before leaving the server.
func IsSecretKey(chave string) bool {
	return strings.HasSuffix(chave, "_api_key") || strings.HasSuffix(chave, "_secret")
}

// MaskSecret keeps the last four characters of a secret.
func MaskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 4 {
		return "****"
	}
	return "****" + v[len(v)-4:]
}

var ErrConfigNotFound = errors.New("configuração não encontrada")

// DefaultConfigTTL is how long a resolved value is served from memory.
const DefaultConfigTTL = 5 * time.Minute

// ConfigDefaults is the file/environment layer under the database settings.
func ConfigDefaults(cfg *config.Config) map[string]string {
	return map[string]string{
		KeyOpenRouterAPIKey:  cfg.AI.OpenRouterAPIKey,
		KeyOpenRouterModel:   cfg.AI.OpenRouterModel,
		KeyElevenLabsAPIKey:  cfg.AI.ElevenLabsAPIKey,
		KeyElevenLabsVoiceID: cfg.AI.ElevenLabsVoiceID,
		KeyElevenLabsModelID: cfg.AI.ElevenLabsModelID,
		KeyMockMode:          strconv.FormatBool(cfg.AI.MockMode),
		KeyAllowRegistration: "true",
		KeyIdioma:            "pt-BR",
		KeyTomPadrao:         "informativo",
	}
}

type cacheKey struct {
	userID uint
	chave  string
}

type cacheEntry struct {
	valor     string
	expiresAt time.Time
}

// ConfigManager resolves settings as user override -> global setting -> file
// default and keeps resolved values in a TTL cache. Cached values may be stale
// for up to the TTL; Invalidate and Clear drop them early.
type ConfigManager struct {
	db       *gorm.DB
	defaults map[string]string
	ttl      time.Duration
	clock    clockwork.Clock

	mu      sync.RWMutex
	entries map[cacheKey]cacheEntry
}

func NewConfigManager(db *gorm.DB, defaults map[string]string, ttl time.Duration, clock clockwork.Clock) *ConfigManager {
	if ttl <= 0 {
		ttl = DefaultConfigTTL
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if defaults == nil {
		defaults = map[string]string{}
	}
	return &ConfigManager{
		db:       db,
		defaults: defaults,
		ttl:      ttl,
		clock:    clock,
		entries:  make(map[cacheKey]cacheEntry),
	}
}

// Get returns the effective value of chave for userID. userID 0 skips the
// per-user layer. Empty database values count as unset.
func (m *ConfigManager) Get(ctx context.Context, userID uint, chave string) (string, error) {
	key := cacheKey{userID: userID, chave: chave}
	if v, ok := m.lookup(key); ok {
		metrics.ConfigCacheLookups.WithLabelValues("hit").Inc()
		return v, nil
	}
	metrics.ConfigCacheLookups.WithLabelValues("miss").Inc()

	v, err := m.resolve(ctx, userID, chave)
	if err != nil {
		return "", err
	}
	m.store(key, v)
	return v, nil
}

func (m *ConfigManager) resolve(ctx context.Context, userID uint, chave string) (string, error) {
	db := m.db.WithContext(ctx)

	if userID != 0 {
		uc, err := models.GetUserConfiguracao(db, userID, chave)
		switch {
		case err == nil && uc.Valor != "":
			return uc.Valor, nil
		case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
			return "", err
		}
	}

	c, err := models.GetConfiguracao(db, chave)
	switch {
	case err == nil && c.Valor != "":
		return c.Valor, nil
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return "", err
	}

	if v := m.defaults[chave]; v != "" {
		return v, nil
	}
	return "", ErrConfigNotFound
}

// GetOr returns fallback when the key is unset or cannot be read.
func (m *ConfigManager) GetOr(ctx context.Context, userID uint, chave, fallback string) string {
	v, err := m.Get(ctx, userID, chave)
	if err != nil {
		return fallback
	}
	return v
}

func (m *ConfigManager) Bool(ctx context.Context, userID uint, chave string) bool {
	return ParseBool(m.GetOr(ctx, userID, chave, ""))
}

func (m *ConfigManager) Int(ctx context.Context, userID uint, chave string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(m.GetOr(ctx, userID, chave, "")))
	if err != nil {
		return fallback
	}
	return n
}

// ParseBool accepts true/1/sim/yes/on in any case.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "sim", "yes", "on":
		return true
	}
	return false
}

func (m *ConfigManager) lookup(key cacheKey) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.entries[key]
	if !ok || !m.clock.Now().Before(e.expiresAt) {
		return "", false
	}
	return e.valor, true
}

func (m *ConfigManager) store(key cacheKey, v string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = cacheEntry{valor: v, expiresAt: m.clock.Now().Add(m.ttl)}
}

// Invalidate drops chave for every user, since a global change affects all of them.
func (m *ConfigManager) Invalidate(chave string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.entries {
		if k.chave == chave {
			delete(m.entries, k)
		}
	}
}

func (m *ConfigManager) InvalidateUser(userID uint, chave string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, cacheKey{userID: userID, chave: chave})
}

// Clear empties the cache and returns how many entries were dropped.
func (m *ConfigManager) Clear() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := len(m.entries)
	m.entries = make(map[cacheKey]cacheEntry)
	return n
}

func (m *ConfigManager) Size() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
