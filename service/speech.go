package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"

	"ContentStudio-server/apperr"
	"ContentStudio-server/metrics"
)

// SpeechService resolves per-user voice settings and calls the synthesizer,
// or serves canned audio in mock mode.
type SpeechService struct {
	configs *ConfigManager
	tts     SpeechSynthesizer
}

func NewSpeechService(configs *ConfigManager, tts SpeechSynthesizer) *SpeechService {
	return &SpeechService{configs: configs, tts: tts}
}

func (s *SpeechService) Voices(ctx context.Context, userID uint) ([]Voice, error) {
	if s.configs.Bool(ctx, userID, KeyMockMode) {
		return mockVoices, nil
	}
	apiKey, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	voices, err := s.tts.Voices(ctx, apiKey)
	if err != nil {
		return nil, apperr.External("falha ao listar vozes", err)
	}
	return voices, nil
}

// Synthesize returns the MP3 stream for text. An empty voiceID uses the
// configured default voice.
func (s *SpeechService) Synthesize(ctx context.Context, userID uint, text, voiceID string) (io.ReadCloser, error) {
	metrics.TTSCharactersTotal.Add(float64(len([]rune(text))))

	if s.configs.Bool(ctx, userID, KeyMockMode) {
		return io.NopCloser(bytes.NewReader(mockAudio)), nil
	}

	apiKey, err := s.apiKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	if strings.HasPrefix(voiceID, mockVoicePrefix) {
		voiceID = ""
	}
	if strings.TrimSpace(voiceID) == "" {
		voiceID, err = s.configs.Get(ctx, userID, KeyElevenLabsVoiceID)
		if err != nil {
			return nil, apperr.Validation("nenhuma voz configurada")
		}
	}
	model := s.configs.GetOr(ctx, userID, KeyElevenLabsModelID, "eleven_multilingual_v2")

	stream, err := s.tts.Synthesize(ctx, apiKey, SpeechRequest{Text: text, VoiceID: voiceID, ModelID: model})
	if err != nil {
		return nil, apperr.External("falha na síntese de voz", err)
	}
	return stream, nil
}

// DefaultVoice is the voice a narration gets when the request names none.
// In mock mode it is empty so the real default applies at synthesis time.
func (s *SpeechService) DefaultVoice(ctx context.Context, userID uint) string {
	if s.configs.Bool(ctx, userID, KeyMockMode) {
		return ""
	}
	return s.configs.GetOr(ctx, userID, KeyElevenLabsVoiceID, "")
}

func (s *SpeechService) apiKey(ctx context.Context, userID uint) (string, error) {
	key, err := s.configs.Get(ctx, userID, KeyElevenLabsAPIKey)
	if errors.Is(err, ErrConfigNotFound) {
		return "", apperr.Internal("a chave da ElevenLabs não está configurada", err)
	}
	if err != nil {
		return "", apperr.Internal("falha ao ler configurações", err)
	}
	return key, nil
}
