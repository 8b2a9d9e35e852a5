package routers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ContentStudio-server/config"
	"ContentStudio-server/middleware"
	"ContentStudio-server/models"
	"ContentStudio-server/models/modelstest"
	"ContentStudio-server/routers/api"
	"ContentStudio-server/service"
	"ContentStudio-server/websocket"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	engine *gin.Engine
	db     *gorm.DB
	jobs   *service.InlineDispatcher
	cfg    *config.Config
}

func newTestServer(t *testing.T, tweak func(cfg *config.Config)) *testServer {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.JWTSecret = "router-test"
	cfg.AI.MockMode = true
	cfg.RateLimit.PerMinute = 0
	if tweak != nil {
		tweak(cfg)
	}

	db := modelstest.OpenDB(t)
	require.NoError(t, models.Seed(db))

	configs := service.NewConfigManager(db, service.ConfigDefaults(cfg), time.Minute, clockwork.NewFakeClock())
	speech := service.NewSpeechService(configs, nil)
	audio, err := service.NewAudioCache(t.TempDir(), func(context.Context, string) (float64, error) { return 1.5, nil })
	require.NoError(t, err)
	hub := websocket.NewHub(nil)
	narrations := service.NewNarrationService(db, speech, audio, nil, hub)
	jobs := service.NewInlineDispatcher(narrations.Process)

	h := &api.Handler{
		DB:         db,
		Config:     cfg,
		Configs:    configs,
		Content:    service.NewContentService(configs, nil),
		Speech:     speech,
		Narrations: narrations,
		Jobs:       jobs,
		Audio:      audio,
		Hub:        hub,
	}
	return &testServer{t: t, engine: InitRouter(h, log.New(io.Discard)), db: db, jobs: jobs, cfg: cfg}
}

func (s *testServer) token(u *models.User) string {
	tok, err := middleware.IssueToken(u, s.cfg.Auth.JWTSecret, time.Hour)
	require.NoError(s.t, err)
	return tok
}

func (s *testServer) user(email, role string) (*models.User, string) {
	u := modelstest.CreateUser(s.t, s.db, email, role)
	return u, s.token(u)
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(s.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["error"]
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	w := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, true, body["mockMode"])
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"nome": "Maria", "email": "Maria@Example.com", "senha": "segredo1",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	reg := decode[map[string]any](t, w)
	assert.NotEmpty(t, reg["token"])
	assert.Equal(t, "maria@example.com", reg["user"].(map[string]any)["email"])
	assert.NotContains(t, w.Body.String(), "senha")

	w = s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"nome": "Outra", "email": "maria@example.com", "senha": "segredo1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "maria@example.com", "senha": "errada"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "MARIA@example.com", "senha": "segredo1"})
	require.Equal(t, http.StatusOK, w.Code)
	tok := decode[map[string]any](t, w)["token"].(string)

	w = s.do(http.MethodGet, "/api/auth/me", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Maria", decode[map[string]any](t, w)["nome"])

	w = s.do(http.MethodPut, "/api/auth/senha", tok, map[string]string{"senhaAtual": "errada", "novaSenha": "novasenha"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPut, "/api/auth/senha", tok, map[string]string{"senhaAtual": "segredo1", "novaSenha": "novasenha"})
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "maria@example.com", "senha": "novasenha"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegisterValidation(t *testing.T) {
	s := newTestServer(t, nil)

	cases := []struct {
		body map[string]string
		msg  string
	}{
		{map[string]string{"nome": "", "email": "a@b.com", "senha": "123456"}, "informe o nome"},
		{map[string]string{"nome": "A", "email": "nao-e-email", "senha": "123456"}, "e-mail inválido"},
		{map[string]string{"nome": "A", "email": "a@b.com", "senha": "123"}, "a senha deve ter pelo menos 6 caracteres"},
	}
	for _, c := range cases {
		w := s.do(http.MethodPost, "/api/auth/register", "", c.body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, c.msg, errorMessage(t, w))
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRegistrationDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	require.NoError(t, models.UpsertConfiguracao(s.db, &models.Configuracao{Chave: service.KeyAllowRegistration, Valor: "false"}))

	w := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"nome": "X", "email": "x@example.com", "senha": "segredo1",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAdminGating(t *testing.T) {
	s := newTestServer(t, nil)
	_, userTok := s.user("u@example.com", models.RoleUser)
	admin, adminTok := s.user("a@example.com", models.RoleAdmin)

	assert.Equal(t, http.StatusUnauthorized, s.do(http.MethodGet, "/api/admin/usuarios", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, s.do(http.MethodGet, "/api/admin/usuarios", userTok, nil).Code)

	w := s.do(http.MethodGet, "/api/admin/usuarios", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/usuarios/%d", admin.ID), adminTok, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(http.MethodPut, fmt.Sprintf("/api/admin/usuarios/%d", admin.ID), adminTok, map[string]any{"ativo": false})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminUserManagement(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)

	w := s.do(http.MethodPost, "/api/admin/usuarios", adminTok, map[string]string{
		"nome": "Novo", "email": "novo@example.com", "senha": "segredo1", "role": "user",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := uint(decode[map[string]any](t, w)["id"].(float64))

	w = s.do(http.MethodPut, fmt.Sprintf("/api/admin/usuarios/%d", id), adminTok, map[string]any{"role": "chefe"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, fmt.Sprintf("/api/admin/usuarios/%d", id), adminTok, map[string]any{"nome": "Renomeado"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Renomeado", decode[map[string]any](t, w)["nome"])

	w = s.do(http.MethodDelete, fmt.Sprintf("/api/admin/usuarios/%d", id), adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "novo@example.com", "senha": "segredo1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/admin/usuarios/9999", adminTok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/admin/usuarios/abc", adminTok, nil).Code)
}

func TestUserSettings(t *testing.T) {
	s := newTestServer(t, nil)
	_, tok := s.user("u@example.com", models.RoleUser)

	w := s.do(http.MethodPut, "/api/configuracoes/"+service.KeyIdioma, tok, map[string]string{"valor": "en-US"})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/configuracoes", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	settings := decode[[]map[string]any](t, w)
	found := false
	for _, st := range settings {
		if st["chave"] == service.KeyIdioma {
			found = true
			assert.Equal(t, "en-US", st["valor"])
			assert.Equal(t, true, st["personalizado"])
		}
	}
	assert.True(t, found)

	w = s.do(http.MethodDelete, "/api/configuracoes/"+service.KeyIdioma, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pt-BR", decode[map[string]any](t, w)["valor"])

	assert.Equal(t, http.StatusForbidden,
		s.do(http.MethodPut, "/api/configuracoes/"+service.KeyOpenRouterAPIKey, tok, map[string]string{"valor": "x"}).Code)
}

func TestAdminSettingsMaskSecrets(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)

	w := s.do(http.MethodPut, "/api/admin/configuracoes/"+service.KeyOpenRouterAPIKey, adminTok,
		map[string]string{"valor": "sk-or-abcdef123456"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "****3456", decode[map[string]any](t, w)["valor"])

	// sending the mask back keeps the stored secret
	w = s.do(http.MethodPut, "/api/admin/configuracoes/"+service.KeyOpenRouterAPIKey, adminTok,
		map[string]string{"valor": "****3456", "descricao": "nova"})
	require.Equal(t, http.StatusOK, w.Code)
	stored, err := models.GetConfiguracao(s.db, service.KeyOpenRouterAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "sk-or-abcdef123456", stored.Valor)

	w = s.do(http.MethodGet, "/api/admin/configuracoes", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "sk-or-abcdef123456")

	w = s.do(http.MethodPost, "/api/admin/cache/limpar", adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodDelete, "/api/admin/configuracoes/"+service.KeyOpenRouterAPIKey, adminTok, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.do(http.MethodDelete, "/api/admin/configuracoes/"+service.KeyOpenRouterAPIKey, adminTok, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAdminSettingsMaskedValueOnInactiveRow(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)
	path := "/api/admin/configuracoes/" + service.KeyOpenRouterAPIKey

	require.Equal(t, http.StatusOK, s.do(http.MethodPut, path, adminTok, map[string]string{"valor": "sk-or-abcdef123456"}).Code)
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, adminTok, nil).Code)

	// the form sends back the masked value it was shown
	w := s.do(http.MethodPut, path, adminTok, map[string]string{"valor": "****3456"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	stored, err := models.GetConfiguracao(s.db, service.KeyOpenRouterAPIKey)
	require.NoError(t, err, "the row is active again")
	assert.Equal(t, "sk-or-abcdef123456", stored.Valor)
}

func TestAdminSettingsMaskedValueWithoutStoredSecret(t *testing.T) {
	s := newTestServer(t, nil)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)

	// seeded with an empty value
	w := s.do(http.MethodPut, "/api/admin/configuracoes/"+service.KeyElevenLabsAPIKey, adminTok, map[string]string{"valor": "****abcd"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPut, "/api/admin/configuracoes/outra_api_key", adminTok, map[string]string{"valor": "****"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	_, err := models.FindConfiguracao(s.db, "outra_api_key")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestTopics(t *testing.T) {
	s := newTestServer(t, nil)
	_, tok := s.user("u@example.com", models.RoleUser)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)

	w := s.do(http.MethodPost, "/api/admin/topicos", adminTok, map[string]string{"nome": "Culinária"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := uint(decode[map[string]any](t, w)["id"].(float64))
	assert.Equal(t, http.StatusConflict, s.do(http.MethodPost, "/api/admin/topicos", adminTok, map[string]string{"nome": "Culinária"}).Code)

	path := fmt.Sprintf("/api/topicos/%d/seguir", id)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, path, tok, nil).Code)

	w = s.do(http.MethodGet, "/api/topicos", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	topics := decode[[]map[string]any](t, w)
	assert.Len(t, topics, len(models.DefaultTopicos)+1)
	for _, tp := range topics {
		assert.Equal(t, tp["nome"] == "Culinária", tp["seguindo"], tp["nome"])
	}

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, path, tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, path, tok, nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/admin/topicos/%d", id), adminTok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodPost, path, tok, nil).Code, "inactive topics cannot be followed")
}

func TestThemesAndScripts(t *testing.T) {
	s := newTestServer(t, nil)
	_, tok := s.user("u@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/api/temas/sugerir", tok, map[string]any{"topicoId": 1, "quantidade": 3})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	temas := decode[[]map[string]any](t, w)
	require.Len(t, temas, 3)
	assert.EqualValues(t, 1, temas[0]["topicoId"])

	w = s.do(http.MethodGet, "/api/temas?topicoId=1", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 3)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/temas/sugerir", tok, map[string]any{"topico": " "}).Code)

	w = s.do(http.MethodPost, "/api/temas", tok, map[string]any{"titulo": "Meu tema"})
	require.Equal(t, http.StatusCreated, w.Code)
	temaID := uint(decode[map[string]any](t, w)["id"].(float64))
	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/temas/%d", temaID), tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, fmt.Sprintf("/api/temas/%d", temaID), tok, nil).Code)

	w = s.do(http.MethodPost, "/api/roteiros", tok, map[string]any{"tema": "Juros compostos", "duracaoSegundos": 90})
	require.Equal(t, http.StatusOK, w.Code)
	script := decode[map[string]any](t, w)
	assert.Equal(t, "Juros compostos", script["titulo"])
	assert.EqualValues(t, 90, script["duracaoSegundos"])
	assert.NotEmpty(t, script["roteiro"])
}

func TestCarousels(t *testing.T) {
	s := newTestServer(t, nil)
	_, tok := s.user("u@example.com", models.RoleUser)
	_, otherTok := s.user("o@example.com", models.RoleUser)

	w := s.do(http.MethodPost, "/api/temas-carrossel", tok, map[string]string{"titulo": "Dicas de viagem"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = s.do(http.MethodGet, "/api/temas-carrossel", tok, nil)
	assert.Len(t, decode[[]map[string]any](t, w), 1)

	w = s.do(http.MethodPost, "/api/carrosseis", tok, map[string]any{"tema": "Dicas de viagem", "slides": 4})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	car := decode[map[string]any](t, w)
	assert.Len(t, car["slides"], 4)
	id := uint(car["id"].(float64))

	w = s.do(http.MethodGet, fmt.Sprintf("/api/carrosseis/%d", id), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[map[string]any](t, w)["hashtags"], 2)

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/carrosseis/%d", id), otherTok, nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/carrosseis/%d", id), tok, nil).Code)
	w = s.do(http.MethodGet, "/api/carrosseis", tok, nil)
	assert.Empty(t, decode[[]map[string]any](t, w))
}

func TestNarrations(t *testing.T) {
	s := newTestServer(t, nil)
	_, tok := s.user("u@example.com", models.RoleUser)
	_, otherTok := s.user("o@example.com", models.RoleUser)
	_, adminTok := s.user("a@example.com", models.RoleAdmin)

	w := s.do(http.MethodGet, "/api/vozes", tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, w), 2)

	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodPost, "/api/narracoes", tok, map[string]string{"texto": ""}).Code)

	w = s.do(http.MethodPost, "/api/narracoes", tok, map[string]string{"titulo": "Abertura", "texto": "Bem-vindos ao canal"})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	assert.Equal(t, models.NarracaoPendente, created["status"])
	id := uint(created["id"].(float64))
	s.jobs.Wait()

	w = s.do(http.MethodGet, fmt.Sprintf("/api/narracoes/%d", id), tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	n := decode[map[string]any](t, w)
	assert.Equal(t, models.NarracaoConcluida, n["status"])
	assert.Equal(t, 1.5, n["duracaoSegundos"])

	audioPath := fmt.Sprintf("/api/narracoes/%d/audio", id)
	w = s.do(http.MethodGet, audioPath, tok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.NotZero(t, w.Body.Len())

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, audioPath, otherTok, nil).Code)
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, audioPath, adminTok, nil).Code)

	w = s.do(http.MethodGet, "/api/admin/audios", adminTok, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, w)["total"])

	assert.Equal(t, http.StatusNotFound, s.do(http.MethodDelete, "/api/admin/audios/nao-existe.mp3", adminTok, nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(http.MethodDelete, "/api/admin/audios/.oculto.mp3", adminTok, nil).Code)

	require.Equal(t, http.StatusOK, s.do(http.MethodDelete, fmt.Sprintf("/api/narracoes/%d", id), tok, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(http.MethodGet, fmt.Sprintf("/api/narracoes/%d", id), tok, nil).Code)

	w = s.do(http.MethodGet, "/api/admin/audios", adminTok, nil)
	assert.EqualValues(t, 0, decode[map[string]any](t, w)["total"])
}

func TestRateLimitedGeneration(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit.PerMinute = 1
		cfg.RateLimit.Burst = 1
	})
	_, tok := s.user("u@example.com", models.RoleUser)

	body := map[string]any{"tema": "x"}
	assert.Equal(t, http.StatusOK, s.do(http.MethodPost, "/api/roteiros", tok, body).Code)
	w := s.do(http.MethodPost, "/api/roteiros", tok, body)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, errorMessage(t, w))

	// listing endpoints are not limited
	assert.Equal(t, http.StatusOK, s.do(http.MethodGet, "/api/temas", tok, nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(http.MethodGet, "/health", "", nil)

	w := s.do(http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `contentstudio_http_requests_total{method="GET",route="/health",status="200"}`)
}
