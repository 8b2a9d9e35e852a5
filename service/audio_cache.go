package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/tcolgate/mp3"
	"gopkg.in/vansante/go-ffprobe.v2"
)

// AudioExtensions are the files the audio directory serves.
var AudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".ogg": true,
	".m4a": true,
}

var ErrInvalidAudioName = errors.New("nome de arquivo inválido")

// AudioFile describes one file in the audio directory.
type AudioFile struct {
	Nome            string    `json:"nome"`
	Tamanho         int64     `json:"tamanho"`
	ModificadoEm    time.Time `json:"modificadoEm"`
	DuracaoSegundos float64   `json:"duracaoSegundos"`
}

// ProbeFunc returns the duration in seconds of the audio file at path.
type ProbeFunc func(ctx context.Context, path string) (float64, error)

type durationKey struct {
	name    string
	size    int64
	modTime int64
}

// AudioCache owns the local audio directory and memoizes probed durations
// per (name, size, mod time).
type AudioCache struct {
	dir   string
	probe ProbeFunc

	mu        sync.Mutex
	durations map[durationKey]float64
}

// NewAudioCache creates dir if needed. A nil probe uses ProbeDuration.
func NewAudioCache(dir string, probe ProbeFunc) (*AudioCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	if probe == nil {
		probe = ProbeDuration
	}
	return &AudioCache{dir: dir, probe: probe, durations: make(map[durationKey]float64)}, nil
}

// ValidAudioName accepts a bare file name with a known audio extension.
func ValidAudioName(name string) bool {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
		return false
	}
	return AudioExtensions[strings.ToLower(filepath.Ext(name))]
}

func (a *AudioCache) Path(name string) (string, error) {
	if !ValidAudioName(name) {
		return "", ErrInvalidAudioName
	}
	return filepath.Join(a.dir, name), nil
}

// Save writes r to a new uuid-named file and returns its name and size.
func (a *AudioCache) Save(r io.Reader, ext string) (string, int64, error) {
	name := uuid.NewString() + ext
	path, err := a.Path(name)
	if err != nil {
		return "", 0, err
	}

	tmp, err := os.CreateTemp(a.dir, ".upload-*")
	if err != nil {
		return "", 0, fmt.Errorf("create temp audio: %w", err)
	}
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("write audio: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return "", 0, fmt.Errorf("rename audio: %w", err)
	}
	return name, size, nil
}

func (a *AudioCache) Open(name string) (*os.File, error) {
	path, err := a.Path(name)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (a *AudioCache) Remove(name string) error {
	path, err := a.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return err
	}
	a.forget(name)
	return nil
}

// Duration probes name, reusing a cached value while the file is unchanged.
// A failed probe yields 0.
func (a *AudioCache) Duration(ctx context.Context, name string) (float64, error) {
	path, err := a.Path(name)
	if err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return a.duration(ctx, path, info), nil
}

// List returns the audio files sorted newest first.
func (a *AudioCache) List(ctx context.Context) ([]AudioFile, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		return nil, fmt.Errorf("read audio dir: %w", err)
	}

	files := make([]AudioFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !ValidAudioName(e.Name()) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, AudioFile{
			Nome:            e.Name(),
			Tamanho:         info.Size(),
			ModificadoEm:    info.ModTime(),
			DuracaoSegundos: a.duration(ctx, filepath.Join(a.dir, e.Name()), info),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].ModificadoEm.After(files[j].ModificadoEm)
	})
	return files, nil
}

// duration caches successful probes and the "no ffprobe" case. Other failures,
// including a cancelled ctx, return 0 without caching so the next call retries.
func (a *AudioCache) duration(ctx context.Context, path string, info os.FileInfo) float64 {
	key := durationKey{name: info.Name(), size: info.Size(), modTime: info.ModTime().UnixNano()}

	a.mu.Lock()
	d, ok := a.durations[key]
	a.mu.Unlock()
	if ok {
		return d
	}

	d, err := a.probe(ctx, path)
	switch {
	case err == nil:
	case ctx.Err() != nil:
		return 0
	case errors.Is(err, exec.ErrNotFound):
		d = 0
	default:
		log.Debug("audio probe failed", "file", info.Name(), "err", err)
		return 0
	}

	a.mu.Lock()
	a.durations[key] = d
	a.mu.Unlock()
	return d
}

func (a *AudioCache) forget(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for k := range a.durations {
		if k.name == name {
			delete(a.durations, k)
		}
	}
}

// ProbeDuration reads MP3 frame headers directly and falls back to ffprobe
// for other containers or MP3 files the frame decoder cannot walk.
func ProbeDuration(ctx context.Context, path string) (float64, error) {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		if d, err := mp3Duration(path); err == nil && d > 0 {
			return d, nil
		}
	}
	return FFProbe(ctx, path)
}

func mp3Duration(path string) (float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec := mp3.NewDecoder(f)
	var (
		frame   mp3.Frame
		skipped int
		total   time.Duration
	)
	for {
		if err := dec.Decode(&frame, &skipped); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, fmt.Errorf("decode mp3 frame: %w", err)
		}
		total += frame.Duration()
	}
	return total.Seconds(), nil
}

// FFProbe reads the container duration with ffprobe. A missing binary is
// reported as exec.ErrNotFound.
func FFProbe(ctx context.Context, path string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return 0, fmt.Errorf("ffprobe: %w", err)
	}
	if data.Format == nil {
		return 0, errors.New("ffprobe: no format section")
	}
	return data.Format.DurationSeconds, nil
}
