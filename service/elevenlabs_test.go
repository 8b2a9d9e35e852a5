package service

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"ContentStudio-server/models/modelstest"

	"github.com/haguro/elevenlabs-go"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeElevenLabs struct {
	apiKey  string
	voiceID string
	req     elevenlabs.TextToSpeechRequest
	audio   string
	err     error
}

func (f *fakeElevenLabs) stream(w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest) error {
	f.voiceID, f.req = voiceID, req
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.audio)
	return err
}

func (f *fakeElevenLabs) voices() ([]elevenlabs.Voice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []elevenlabs.Voice{{VoiceId: "voz-1", Name: "Rachel", Category: "premade"}}, nil
}

func clientWith(f *fakeElevenLabs) *ElevenLabsClient {
	return &ElevenLabsClient{
		timeout: time.Second,
		connect: func(_ context.Context, apiKey string, _ time.Duration) elevenLabsAPI {
			f.apiKey = apiKey
			return f
		},
	}
}

func TestElevenLabs_Synthesize(t *testing.T) {
	f := &fakeElevenLabs{audio: "ID3-fake-mp3"}
	c := clientWith(f)

	stream, err := c.Synthesize(context.Background(), "xi-test", SpeechRequest{
		Text: "olá mundo", VoiceID: "voz-1", ModelID: "eleven_multilingual_v2",
	})
	require.NoError(t, err)
	defer stream.Close()
	b, err := io.ReadAll(stream)
	require.NoError(t, err)

	assert.Equal(t, "ID3-fake-mp3", string(b))
	assert.Equal(t, "xi-test", f.apiKey)
	assert.Equal(t, "voz-1", f.voiceID)
	assert.Equal(t, "olá mundo", f.req.Text)
	assert.Equal(t, "eleven_multilingual_v2", f.req.ModelID)
}

func TestElevenLabs_SynthesizeErrorBeforeStream(t *testing.T) {
	c := clientWith(&fakeElevenLabs{err: errors.New("invalid api key")})

	stream, err := c.Synthesize(context.Background(), "wrong", SpeechRequest{Text: "x", VoiceID: "voz-1"})
	require.Error(t, err)
	assert.Nil(t, stream)
	assert.Contains(t, err.Error(), "invalid api key")

	_, err = clientWith(&fakeElevenLabs{}).Synthesize(context.Background(), "xi", SpeechRequest{Text: "x", VoiceID: "v"})
	assert.Error(t, err, "an empty reply is not audio")
}

func TestElevenLabs_Voices(t *testing.T) {
	c := clientWith(&fakeElevenLabs{})

	voices, err := c.Voices(context.Background(), "xi-test")
	require.NoError(t, err)
	require.Len(t, voices, 1)
	assert.Equal(t, "voz-1", voices[0].VoiceID)
	assert.Equal(t, "Rachel", voices[0].Name)
}

func TestSpeechService_DefaultVoiceAndModel(t *testing.T) {
	f := &fakeElevenLabs{audio: "mp3"}
	db := modelstest.OpenDB(t)
	m := NewConfigManager(db, map[string]string{
		KeyElevenLabsAPIKey:  "xi-test",
		KeyElevenLabsVoiceID: "voz-1",
	}, time.Minute, clockwork.NewFakeClock())
	s := NewSpeechService(m, clientWith(f))

	stream, err := s.Synthesize(context.Background(), 1, "olá mundo", "")
	require.NoError(t, err)
	stream.Close()
	assert.Equal(t, "voz-1", f.voiceID)
	assert.Equal(t, "eleven_multilingual_v2", f.req.ModelID)
	assert.Equal(t, "voz-1", s.DefaultVoice(context.Background(), 1))
}

func TestSpeechService_CannedVoiceNotSentToProvider(t *testing.T) {
	f := &fakeElevenLabs{audio: "mp3"}
	db := modelstest.OpenDB(t)
	m := NewConfigManager(db, map[string]string{
		KeyElevenLabsAPIKey:  "xi-test",
		KeyElevenLabsVoiceID: "voz-real",
	}, time.Minute, clockwork.NewFakeClock())
	s := NewSpeechService(m, clientWith(f))

	stream, err := s.Synthesize(context.Background(), 1, "olá", mockVoices[0].VoiceID)
	require.NoError(t, err)
	stream.Close()
	assert.Equal(t, "voz-real", f.voiceID)
}

func TestSpeechService_MockMode(t *testing.T) {
	db := modelstest.OpenDB(t)
	m := NewConfigManager(db, map[string]string{KeyMockMode: "true"}, time.Minute, clockwork.NewFakeClock())
	s := NewSpeechService(m, nil)

	voices, err := s.Voices(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, voices, 2)
	assert.Empty(t, s.DefaultVoice(context.Background(), 1))

	stream, err := s.Synthesize(context.Background(), 1, "texto", "")
	require.NoError(t, err)
	b, _ := io.ReadAll(stream)
	assert.Equal(t, mockAudio, b)
}
