package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"unicode/utf8"

	"ContentStudio-server/apperr"
	"ContentStudio-server/metrics"
	"ContentStudio-server/models"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

const (
	MaxNarrationChars = 5000
	maxTituloChars    = 60

	EventNarrationStatus = "narracao:status"
)

// ErrNarrationFailed marks a job failure that was recorded on the row and
// must not be retried.
var ErrNarrationFailed = errors.New("narration failed")

// Notifier pushes an event to every connection in a room.
type Notifier interface {
	Emit(room, event string, data any)
}

// Dispatcher schedules Process for a narration id.
type Dispatcher interface {
	Dispatch(ctx context.Context, narracaoID uint) error
}

// UserRoom is the realtime room every connection of userID joins.
func UserRoom(userID uint) string {
	return fmt.Sprintf("user:%d", userID)
}

// NarrationEvent is the payload of narracao:status.
type NarrationEvent struct {
	ID              uint    `json:"id"`
	Status          string  `json:"status"`
	AudioURL        string  `json:"audioUrl,omitempty"`
	DuracaoSegundos float64 `json:"duracaoSegundos,omitempty"`
	Erro            string  `json:"erro,omitempty"`
}

type NarrationInput struct {
	Titulo  string
	Texto   string
	VoiceID string
}

type NarrationService struct {
	db       *gorm.DB
	speech   *SpeechService
	audio    *AudioCache
	objects  ObjectStore
	notifier Notifier
}

// NewNarrationService wires the pipeline. objects may be nil when uploads are off.
func NewNarrationService(db *gorm.DB, speech *SpeechService, audio *AudioCache, objects ObjectStore, notifier Notifier) *NarrationService {
	return &NarrationService{db: db, speech: speech, audio: audio, objects: objects, notifier: notifier}
}

// Create validates the input and stores a pendente row.
func (s *NarrationService) Create(ctx context.Context, userID uint, in NarrationInput) (*models.UserNarracao, error) {
	texto := strings.TrimSpace(in.Texto)
	if texto == "" {
		return nil, apperr.Validation("informe o texto da narração")
	}
	if utf8.RuneCountInString(texto) > MaxNarrationChars {
		return nil, apperr.Validation(fmt.Sprintf("o texto deve ter no máximo %d caracteres", MaxNarrationChars))
	}

	titulo := strings.TrimSpace(in.Titulo)
	if titulo == "" {
		titulo = truncateRunes(texto, maxTituloChars)
	}
	voice := strings.TrimSpace(in.VoiceID)
	if voice == "" {
		voice = s.speech.DefaultVoice(ctx, userID)
	}

	n := &models.UserNarracao{UserID: userID, Titulo: titulo, Texto: texto, VoiceID: voice}
	if err := models.CreateNarracao(s.db.WithContext(ctx), n); err != nil {
		return nil, apperr.From(err)
	}
	return n, nil
}

// Submit hands n to jobs. When scheduling fails the row is marked erro.
func (s *NarrationService) Submit(ctx context.Context, jobs Dispatcher, n *models.UserNarracao) error {
	if err := jobs.Dispatch(ctx, n.ID); err != nil {
		s.fail(ctx, n, "não foi possível agendar a narração")
		return apperr.Internal("falha ao agendar a narração", err)
	}
	return nil
}

// Process runs one narration to completion. Rows already concluded or
// deleted are left alone. Failures are recorded on the row and returned
// wrapping ErrNarrationFailed.
func (s *NarrationService) Process(ctx context.Context, id uint) error {
	db := s.db.WithContext(ctx)
	n, err := models.GetNarracaoByID(db, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: narração %d não existe", ErrNarrationFailed, id)
	}
	if err != nil {
		return fmt.Errorf("load narration %d: %w", id, err)
	}
	if n.Status == models.NarracaoConcluida || !n.Ativo {
		return nil
	}

	if err := models.UpdateNarracao(db, n, map[string]any{"status": models.NarracaoProcessando, "erro": ""}); err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	n.Status = models.NarracaoProcessando
	s.emit(n)

	stream, err := s.speech.Synthesize(ctx, n.UserID, n.Texto, n.VoiceID)
	if err != nil {
		return s.fail(ctx, n, publicMessage(err))
	}
	name, size, err := s.audio.Save(stream, ".mp3")
	stream.Close()
	if err != nil {
		log.Error("save narration audio failed", "narracao", n.ID, "err", err)
		return s.fail(ctx, n, "falha ao salvar o áudio")
	}

	audioURL := fmt.Sprintf("/api/narracoes/%d/audio", n.ID)
	if s.objects != nil {
		if u, err := s.upload(ctx, n, name, size); err != nil {
			log.Warn("narration upload failed, serving local file", "narracao", n.ID, "err", err)
		} else {
			audioURL = u
		}
	}

	dur, err := s.audio.Duration(ctx, name)
	if err != nil {
		log.Warn("narration duration unavailable", "narracao", n.ID, "err", err)
	}

	updates := map[string]any{
		"status":           models.NarracaoConcluida,
		"arquivo":          name,
		"audio_url":        audioURL,
		"duracao_segundos": dur,
		"erro":             "",
	}
	if err := models.UpdateNarracao(db, n, updates); err != nil {
		return fmt.Errorf("mark concluded: %w", err)
	}
	n.Status, n.Arquivo, n.AudioURL, n.DuracaoSegundos = models.NarracaoConcluida, name, audioURL, dur
	metrics.NarrationsTotal.WithLabelValues(models.NarracaoConcluida).Inc()
	log.Info("narration concluded", "narracao", n.ID, "user", n.UserID, "arquivo", name, "duracao", dur)
	s.emit(n)
	return nil
}

func (s *NarrationService) upload(ctx context.Context, n *models.UserNarracao, name string, size int64) (string, error) {
	f, err := s.audio.Open(name)
	if err != nil {
		return "", err
	}
	defer f.Close()
	return s.objects.Upload(ctx, fmt.Sprintf("narracoes/%d/%s", n.UserID, name), f, size)
}

func (s *NarrationService) fail(ctx context.Context, n *models.UserNarracao, msg string) error {
	err := models.UpdateNarracao(s.db.WithContext(context.WithoutCancel(ctx)), n, map[string]any{
		"status": models.NarracaoErro,
		"erro":   msg,
	})
	if err != nil {
		log.Error("mark narration failed", "narracao", n.ID, "err", err)
	}
	n.Status, n.Erro = models.NarracaoErro, msg
	metrics.NarrationsTotal.WithLabelValues(models.NarracaoErro).Inc()
	s.emit(n)
	return fmt.Errorf("%w: %s", ErrNarrationFailed, msg)
}

func (s *NarrationService) emit(n *models.UserNarracao) {
	if s.notifier == nil {
		return
	}
	s.notifier.Emit(UserRoom(n.UserID), EventNarrationStatus, NarrationEvent{
		ID:              n.ID,
		Status:          n.Status,
		AudioURL:        n.AudioURL,
		DuracaoSegundos: n.DuracaoSegundos,
		Erro:            n.Erro,
	})
}

// Delete soft-deletes the narration and removes its file once no other
// active row points at it.
func (s *NarrationService) Delete(ctx context.Context, userID, id uint) error {
	db := s.db.WithContext(ctx)
	n, err := models.GetNarracao(db, userID, id)
	if err != nil {
		return apperr.From(err)
	}
	if err := models.DeactivateNarracao(db, userID, id); err != nil {
		return apperr.From(err)
	}
	if n.Arquivo == "" {
		return nil
	}
	used, err := models.ArquivoReferenced(db, n.Arquivo)
	if err != nil || used {
		return nil
	}
	if err := s.audio.Remove(n.Arquivo); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("remove narration audio failed", "arquivo", n.Arquivo, "err", err)
	}
	return nil
}

func publicMessage(err error) string {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Message
	}
	return "falha na síntese de voz"
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}

// InlineDispatcher runs jobs in goroutines when no queue is configured.
type InlineDispatcher struct {
	run func(ctx context.Context, id uint) error
	wg  sync.WaitGroup
}

func NewInlineDispatcher(run func(ctx context.Context, id uint) error) *InlineDispatcher {
	return &InlineDispatcher{run: run}
}

func (d *InlineDispatcher) Dispatch(ctx context.Context, id uint) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		if err := d.run(context.WithoutCancel(ctx), id); err != nil {
			log.Warn("inline narration job ended with error", "narracao", id, "err", err)
		}
	}()
	return nil
}

// Wait blocks until every dispatched job has returned.
func (d *InlineDispatcher) Wait() {
	d.wg.Wait()
}
