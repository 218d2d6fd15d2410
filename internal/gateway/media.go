package gateway

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"codeberg.org/snonux/poplingo/internal/audio"
)

// ImageResult is the outcome of GenerateVisualization. On failure Data is
// nil and Err says why; callers are free to ignore Err.
type ImageResult struct {
	Data     []byte
	MIMEType string
	Err      error
}

// OK reports whether an image was produced.
func (r ImageResult) OK() bool { return len(r.Data) > 0 }

// Base64 returns the image as standard base64, or "" when there is none.
func (r ImageResult) Base64() string {
	if !r.OK() {
		return ""
	}
	return base64.StdEncoding.EncodeToString(r.Data)
}

// SpeechResult is the outcome of SpeakText.
type SpeechResult struct {
	Played bool
	Cached bool
	Err    error
}

type imagePayload struct {
	data []byte
	mime string
}

func imagePrompt(term string) string {
	return fmt.Sprintf(`A bright, fun, flat vector art style illustration representing the concept of "%s". Simple shapes, vibrant pop colors (pink, yellow, cyan). White background.`, term)
}

// GenerateVisualization creates an illustration for term. It never fails
// loudly: any problem yields an empty result.
func (g *Gateway) GenerateVisualization(ctx context.Context, term string) ImageResult {
	prompt := imagePrompt(strings.TrimSpace(term))

	p, err := execute(ctx, g, CapabilityImage, func(ctx context.Context, b Backend) (imagePayload, error) {
		data, mime, err := b.GenerateImage(ctx, prompt)
		if err != nil {
			return imagePayload{}, err
		}
		if len(data) == 0 {
			return imagePayload{}, ErrEmptyResponse
		}
		return imagePayload{data: data, mime: mime}, nil
	})
	if err != nil {
		g.log.Warn("image generation failed", slog.String("term", term), slog.Any("error", err))
		return ImageResult{Err: err}
	}
	return ImageResult{Data: p.data, MIMEType: p.mime}
}

// SpeakText synthesizes text and plays it to completion. Failures are
// logged and reported in the result, never returned as errors.
func (g *Gateway) SpeakText(ctx context.Context, text, voice string) SpeechResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return SpeechResult{Err: errors.New("nothing to speak")}
	}
	if g.player == nil {
		return SpeechResult{Err: audio.ErrNoPlayer}
	}

	pcm, cached, err := g.synthesize(ctx, text, voice)
	if err != nil {
		g.log.Warn("speech synthesis failed", slog.String("text", text), slog.Any("error", err))
		return SpeechResult{Err: err}
	}

	if err := audio.PlayPCM(ctx, g.player, pcm, g.config.SampleRate); err != nil {
		g.log.Warn("audio playback failed", slog.Any("error", err))
		return SpeechResult{Cached: cached, Err: err}
	}
	return SpeechResult{Played: true, Cached: cached}
}

func (g *Gateway) synthesize(ctx context.Context, text, voice string) ([]byte, bool, error) {
	type speech struct {
		pcm    []byte
		cached bool
	}

	s, err := execute(ctx, g, CapabilitySpeech, func(ctx context.Context, b Backend) (speech, error) {
		if voice == "" {
			voice = b.DefaultVoice()
		}
		cacheFile := g.cacheFilePath(b, text, voice)
		if cacheFile != "" {
			if data, err := os.ReadFile(cacheFile); err == nil && len(data) > 0 {
				return speech{pcm: data, cached: true}, nil
			}
		}

		pcm, err := b.Synthesize(ctx, text, voice)
		if err != nil {
			return speech{}, err
		}
		if len(pcm) == 0 {
			return speech{}, ErrEmptyResponse
		}

		if cacheFile != "" {
			if err := writeCacheFile(cacheFile, pcm); err != nil {
				g.log.Debug("could not cache speech", slog.String("file", cacheFile), slog.Any("error", err))
			}
		}
		return speech{pcm: pcm}, nil
	})
	if err != nil {
		return nil, false, err
	}
	return s.pcm, s.cached, nil
}

// cacheFilePath returns "" when caching is disabled.
func (g *Gateway) cacheFilePath(b Backend, text, voice string) string {
	if !g.config.EnableCache || g.config.CacheDir == "" {
		return ""
	}
	h := md5.New()
	h.Write([]byte(b.Name()))
	h.Write([]byte(b.Model(CapabilitySpeech)))
	h.Write([]byte(voice))
	h.Write([]byte(text))
	hash := hex.EncodeToString(h.Sum(nil))

	// First two hex chars as a subdirectory keep directories small.
	return filepath.Join(g.config.CacheDir, hash[:2], hash[2:]+".pcm")
}

func writeCacheFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ClearCache removes all cached speech.
func (g *Gateway) ClearCache() error {
	if g.config.CacheDir == "" {
		return nil
	}
	return os.RemoveAll(g.config.CacheDir)
}
