package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/metrics"
	"ContentStudio-server/models"

	"github.com/charmbracelet/log"
)

const (
	DefaultThemeCount  = 5
	MaxThemeCount      = 10
	DefaultScriptSecs  = 60
	MinScriptSecs      = 15
	MaxScriptSecs      = 600
	DefaultSlideCount  = 5
	MinSlideCount      = 3
	MaxSlideCount      = 10
	defaultTemperature = 0.8
)

type ThemeSuggestion struct {
	Titulo    string `json:"titulo"`
	Descricao string `json:"descricao"`
}

type ScriptRequest struct {
	Tema            string
	DuracaoSegundos int
	Tom             string
	Idioma          string
}

type Scene struct {
	Ordem  int    `json:"ordem"`
	Texto  string `json:"texto"`
	Visual string `json:"visual"`
}

type Script struct {
	Titulo          string  `json:"titulo"`
	Roteiro         string  `json:"roteiro"`
	Cenas           []Scene `json:"cenas"`
	DuracaoSegundos int     `json:"duracaoSegundos"`
}

type CarouselRequest struct {
	Tema   string
	Slides int
	Tom    string
	Idioma string
}

type Carousel struct {
	Titulo   string         `json:"titulo"`
	Slides   []models.Slide `json:"slides"`
	Legenda  string         `json:"legenda"`
	Hashtags []string       `json:"hashtags"`
}

// ContentService builds prompts, calls the completer (or the canned mock
// responses in mock mode) and validates what comes back.
type ContentService struct {
	configs *ConfigManager
	llm     ChatCompleter
}

func NewContentService(configs *ConfigManager, llm ChatCompleter) *ContentService {
	return &ContentService{configs: configs, llm: llm}
}

func (s *ContentService) SuggestThemes(ctx context.Context, userID uint, topico string, quantidade int) ([]ThemeSuggestion, error) {
	topico = strings.TrimSpace(topico)
	if topico == "" {
		return nil, apperr.Validation("informe o tópico")
	}
	quantidade = clamp(quantidade, DefaultThemeCount, 1, MaxThemeCount)

	vars := map[string]string{
		"topico":     topico,
		"quantidade": itoa(quantidade),
		"idioma":     s.configs.GetOr(ctx, userID, KeyIdioma, "pt-BR"),
	}
	var out struct {
		Temas []ThemeSuggestion `json:"temas"`
	}
	if err := s.generate(ctx, userID, "temas", KeyPromptTemas, defaultPromptTemas, vars, &out); err != nil {
		return nil, err
	}

	temas := make([]ThemeSuggestion, 0, len(out.Temas))
	for _, t := range out.Temas {
		t.Titulo = strings.TrimSpace(t.Titulo)
		if t.Titulo == "" {
			continue
		}
		temas = append(temas, t)
	}
	if len(temas) == 0 {
		return nil, apperr.External("a IA não retornou temas", nil)
	}
	if len(temas) > quantidade {
		temas = temas[:quantidade]
	}
	return temas, nil
}

func (s *ContentService) GenerateScript(ctx context.Context, userID uint, req ScriptRequest) (*Script, error) {
	req.Tema = strings.TrimSpace(req.Tema)
	if req.Tema == "" {
		return nil, apperr.Validation("informe o tema do roteiro")
	}
	req.DuracaoSegundos = clamp(req.DuracaoSegundos, DefaultScriptSecs, MinScriptSecs, MaxScriptSecs)
	s.fillStyle(ctx, userID, &req.Tom, &req.Idioma)

	vars := map[string]string{
		"tema":    req.Tema,
		"duracao": itoa(req.DuracaoSegundos),
		"tom":     req.Tom,
		"idioma":  req.Idioma,
	}
	var out Script
	if err := s.generate(ctx, userID, "roteiro", KeyPromptRoteiro, defaultPromptRoteiro, vars, &out); err != nil {
		return nil, err
	}

	for i := range out.Cenas {
		out.Cenas[i].Ordem = i + 1
	}
	if strings.TrimSpace(out.Roteiro) == "" {
		parts := make([]string, 0, len(out.Cenas))
		for _, c := range out.Cenas {
			if t := strings.TrimSpace(c.Texto); t != "" {
				parts = append(parts, t)
			}
		}
		out.Roteiro = strings.Join(parts, "\n\n")
	}
	if out.Roteiro == "" {
		return nil, apperr.External("a IA retornou um roteiro vazio", nil)
	}
	if out.Titulo == "" {
		out.Titulo = req.Tema
	}
	out.DuracaoSegundos = req.DuracaoSegundos
	return &out, nil
}

// GenerateCarousel returns an unsaved carousel row for the user.
func (s *ContentService) GenerateCarousel(ctx context.Context, userID uint, req CarouselRequest) (*models.UserCarrossel, error) {
	req.Tema = strings.TrimSpace(req.Tema)
	if req.Tema == "" {
		return nil, apperr.Validation("informe o tema do carrossel")
	}
	req.Slides = clamp(req.Slides, DefaultSlideCount, MinSlideCount, MaxSlideCount)
	s.fillStyle(ctx, userID, &req.Tom, &req.Idioma)

	vars := map[string]string{
		"tema":   req.Tema,
		"slides": itoa(req.Slides),
		"tom":    req.Tom,
		"idioma": req.Idioma,
	}
	var out Carousel
	if err := s.generate(ctx, userID, "carrossel", KeyPromptCarrossel, defaultPromptCarrossel, vars, &out); err != nil {
		return nil, err
	}

	slides := make(models.Slides, 0, len(out.Slides))
	for _, sl := range out.Slides {
		if strings.TrimSpace(sl.Texto) == "" && strings.TrimSpace(sl.Titulo) == "" {
			continue
		}
		sl.Ordem = len(slides) + 1
		slides = append(slides, sl)
	}
	if len(slides) == 0 {
		return nil, apperr.External("a IA retornou um carrossel sem slides", nil)
	}
	if out.Titulo == "" {
		out.Titulo = req.Tema
	}

	return &models.UserCarrossel{
		UserID:   userID,
		Tema:     req.Tema,
		Titulo:   out.Titulo,
		Slides:   slides,
		Legenda:  out.Legenda,
		Hashtags: models.StringList(normalizeHashtags(out.Hashtags)),
	}, nil
}

func (s *ContentService) fillStyle(ctx context.Context, userID uint, tom, idioma *string) {
	if strings.TrimSpace(*tom) == "" {
		*tom = s.configs.GetOr(ctx, userID, KeyTomPadrao, "informativo")
	}
	if strings.TrimSpace(*idioma) == "" {
		*idioma = s.configs.GetOr(ctx, userID, KeyIdioma, "pt-BR")
	}
}

// generate renders the prompt, obtains JSON and decodes it into out.
func (s *ContentService) generate(ctx context.Context, userID uint, kind, promptKey, defaultPrompt string, vars map[string]string, out any) error {
	tmpl := s.configs.GetOr(ctx, userID, promptKey, defaultPrompt)
	prompt := renderPrompt(tmpl, vars)

	var raw string
	if s.configs.Bool(ctx, userID, KeyMockMode) {
		raw = mockCompletion(kind, vars)
		metrics.GenerationsTotal.WithLabelValues(kind, "mock").Inc()
	} else {
		apiKey, err := s.configs.Get(ctx, userID, KeyOpenRouterAPIKey)
		if errors.Is(err, ErrConfigNotFound) {
			return apperr.Internal("a chave da OpenRouter não está configurada", err)
		}
		if err != nil {
			return apperr.Internal("falha ao ler configurações", err)
		}
		model := s.configs.GetOr(ctx, userID, KeyOpenRouterModel, "openai/gpt-4o-mini")

		res, err := s.llm.CompleteJSON(ctx, CompletionRequest{
			APIKey:      apiKey,
			Model:       model,
			System:      systemPrompt,
			Prompt:      prompt,
			Temperature: defaultTemperature,
		})
		if err != nil {
			metrics.GenerationsTotal.WithLabelValues(kind, "error").Inc()
			return apperr.External("falha ao gerar conteúdo com a IA", err)
		}
		raw = res.JSON
		result := "ok"
		if res.Fallback {
			result = "fallback"
		}
		metrics.GenerationsTotal.WithLabelValues(kind, result).Inc()
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		log.Warn("unexpected AI response shape", "kind", kind, "err", err)
		return apperr.External("resposta inválida da IA", err)
	}
	return nil
}

func normalizeHashtags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		if !strings.HasPrefix(t, "#") {
			t = "#" + t
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	return out
}

// clamp applies def to non-positive n, then bounds it to [lo, hi].
func clamp(n, def, lo, hi int) int {
	if n <= 0 {
		n = def
	}
	if n < lo {
		return lo
	}
	if n > hi {
		return hi
	}
	return n
}
