package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/haguro/elevenlabs-go"
)

type SpeechRequest struct {
	Text    string
	VoiceID string
	ModelID string
}

type Voice struct {
	VoiceID    string `json:"voice_id"`
	Name       string `json:"name"`
	Category   string `json:"category"`
	PreviewURL string `json:"preview_url"`
}

// SpeechSynthesizer converts text to an MP3 stream. Callers close the stream.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, apiKey string, req SpeechRequest) (io.ReadCloser, error)
	Voices(ctx context.Context, apiKey string) ([]Voice, error)
}

// elevenLabsAPI is the subset of the SDK client used here.
type elevenLabsAPI interface {
	stream(w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest) error
	voices() ([]elevenlabs.Voice, error)
}

type sdkClient struct {
	c *elevenlabs.Client
}

func (s sdkClient) stream(w io.Writer, voiceID string, req elevenlabs.TextToSpeechRequest) error {
	return s.c.TextToSpeechStream(w, voiceID, req)
}

func (s sdkClient) voices() ([]elevenlabs.Voice, error) {
	return s.c.GetVoices()
}

func connectSDK(ctx context.Context, apiKey string, timeout time.Duration) elevenLabsAPI {
	return sdkClient{c: elevenlabs.NewClient(ctx, apiKey, timeout)}
}

// ElevenLabsClient calls ElevenLabs through the SDK. The API key is resolved
// per call, so a client is built for each request.
type ElevenLabsClient struct {
	timeout time.Duration
	connect func(ctx context.Context, apiKey string, timeout time.Duration) elevenLabsAPI
}

func NewElevenLabsClient(timeout time.Duration) *ElevenLabsClient {
	return &ElevenLabsClient{timeout: timeout, connect: connectSDK}
}

// Synthesize starts the TTS stream and waits for the first audio byte, so
// provider errors surface here instead of while the caller reads.
func (c *ElevenLabsClient) Synthesize(ctx context.Context, apiKey string, req SpeechRequest) (io.ReadCloser, error) {
	api := c.connect(ctx, apiKey, c.timeout)
	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(api.stream(pw, req.VoiceID, elevenlabs.TextToSpeechRequest{
			Text:    req.Text,
			ModelID: req.ModelID,
		}))
	}()

	br := bufio.NewReader(pr)
	if _, err := br.Peek(1); err != nil {
		pr.Close()
		if err == io.EOF {
			return nil, fmt.Errorf("elevenlabs tts: empty audio")
		}
		return nil, fmt.Errorf("elevenlabs tts: %w", err)
	}
	return &pipeStream{Reader: br, pipe: pr}, nil
}

type pipeStream struct {
	*bufio.Reader
	pipe *io.PipeReader
}

// Close unblocks the writer goroutine if the caller stops early.
func (s *pipeStream) Close() error {
	return s.pipe.Close()
}

func (c *ElevenLabsClient) Voices(ctx context.Context, apiKey string) ([]Voice, error) {
	list, err := c.connect(ctx, apiKey, c.timeout).voices()
	if err != nil {
		return nil, fmt.Errorf("elevenlabs voices: %w", err)
	}
	out := make([]Voice, len(list))
	for i, v := range list {
		out[i] = Voice{VoiceID: v.VoiceId, Name: v.Name, Category: v.Category, PreviewURL: v.PreviewUrl}
	}
	return out, nil
}
