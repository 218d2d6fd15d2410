// Package gateway talks to generative AI backends: dictionary lookups,
// illustrations, speech and short stories.
package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"codeberg.org/snonux/poplingo/internal/audio"
)

// Config routes capabilities to providers and tunes call behaviour.
type Config struct {
	TextProvider   string
	ImageProvider  string
	SpeechProvider string

	// Timeout bounds each backend call. Zero disables it.
	Timeout time.Duration

	SampleRate  int
	CacheDir    string
	EnableCache bool

	// BreakerFailures consecutive failures open a capability's breaker
	// for BreakerCooldown.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// DefaultConfig routes everything to Gemini.
func DefaultConfig() Config {
	return Config{
		TextProvider:    ProviderGemini,
		ImageProvider:   ProviderGemini,
		SpeechProvider:  ProviderGemini,
		Timeout:         60 * time.Second,
		SampleRate:      audio.DefaultSampleRate,
		BreakerFailures: 5,
		BreakerCooldown: 30 * time.Second,
	}
}

// Gateway performs the four AI operations.
type Gateway struct {
	config    Config
	connector Connector
	player    audio.Player
	log       *slog.Logger
	breakers  map[Capability]*gobreaker.CircuitBreaker
}

// New creates a gateway. player may be nil when speech is never used.
func New(config Config, connector Connector, player audio.Player, log *slog.Logger) *Gateway {
	def := DefaultConfig()
	if config.TextProvider == "" {
		config.TextProvider = def.TextProvider
	}
	if config.ImageProvider == "" {
		config.ImageProvider = def.ImageProvider
	}
	if config.SpeechProvider == "" {
		config.SpeechProvider = def.SpeechProvider
	}
	if config.SampleRate <= 0 {
		config.SampleRate = def.SampleRate
	}
	if config.BreakerFailures == 0 {
		config.BreakerFailures = def.BreakerFailures
	}
	if config.BreakerCooldown <= 0 {
		config.BreakerCooldown = def.BreakerCooldown
	}
	if log == nil {
		log = slog.Default()
	}

	g := &Gateway{
		config:    config,
		connector: connector,
		player:    player,
		log:       log,
		breakers:  make(map[Capability]*gobreaker.CircuitBreaker),
	}
	for _, c := range []Capability{CapabilityText, CapabilityImage, CapabilitySpeech} {
		g.breakers[c] = g.newBreaker(c)
	}
	return g
}

func (g *Gateway) newBreaker(c Capability) *gobreaker.CircuitBreaker {
	failures := g.config.BreakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(c),
		MaxRequests: 1,
		Timeout:     g.config.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.log.Warn("AI backend circuit changed state",
				slog.String("capability", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	})
}

// BreakerState reports the circuit state of a capability.
func (g *Gateway) BreakerState(c Capability) gobreaker.State {
	return g.breakers[c].State()
}

func (g *Gateway) provider(c Capability) string {
	switch c {
	case CapabilityImage:
		return g.config.ImageProvider
	case CapabilitySpeech:
		return g.config.SpeechProvider
	default:
		return g.config.TextProvider
	}
}

func (g *Gateway) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.config.Timeout > 0 {
		return context.WithTimeout(ctx, g.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// execute connects to the capability's provider and runs fn behind its
// circuit breaker. Credentials are resolved on every call.
func execute[T any](ctx context.Context, g *Gateway, c Capability, fn func(context.Context, Backend) (T, error)) (T, error) {
	var zero T

	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	backend, err := g.connector.Connect(ctx, g.provider(c))
	if err != nil {
		return zero, err
	}

	out, err := g.breakers[c].Execute(func() (interface{}, error) {
		return fn(ctx, backend)
	})
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected %s result type %T", c, out)
	}
	return v, nil
}
