package forecast

import (
	"context"
	"errors"
	"time"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
	"github.com/bikebuddy/bikebuddy-service/internal/weatherapi"
	"go.uber.org/zap"
)

const (
	// MaxAttempts is the total number of provider calls per acquisition
	// (initial try plus retries).
	MaxAttempts = 3

	// RetryDelay is the base backoff unit; attempt n waits n*RetryDelay.
	RetryDelay = 1000 * time.Millisecond

	// attemptTimeout bounds each individual provider call.
	attemptTimeout = 5000 * time.Millisecond

	// MockLocationName labels results built from synthetic data.
	MockLocationName = "Your Location (Mock Data)"
)

// Provider is the weather source the pipeline pulls from.
type Provider interface {
	Forecast(ctx context.Context, loc t.Location) ([]t.DailyForecast, string, error)
}

// outcome is the three-way classification of one provider attempt; the
// retry loop is driven entirely off this value.
type outcome int

const (
	outcomeSuccess outcome = iota
	outcomeRetryable
	outcomeTerminal
)

// classify buckets a provider failure. Client errors other than 429 are
// terminal; network failures, 5xx, 429 and malformed success bodies are
// retryable.
func classify(err error) outcome {
	if err == nil {
		return outcomeSuccess
	}
	var statusErr *weatherapi.StatusError
	if errors.As(err, &statusErr) {
		code := statusErr.Code
		if code >= 400 && code < 500 && code != 429 {
			return outcomeTerminal
		}
	}
	return outcomeRetryable
}

type PipelineOption func(*Pipeline)

// ProviderOption sets the weather provider. Leaving it unset means no
// API credential is configured and every acquisition goes synthetic.
func ProviderOption(p Provider) PipelineOption {
	return func(pl *Pipeline) {
		pl.provider = p
	}
}

func LoggerOption(logger *zap.SugaredLogger) PipelineOption {
	return func(pl *Pipeline) {
		pl.logger = logger
	}
}

// SleepOption replaces the backoff sleep, so tests can record delays
// instead of waiting them out.
func SleepOption(sleep func(time.Duration)) PipelineOption {
	return func(pl *Pipeline) {
		pl.sleep = sleep
	}
}

// Pipeline acquires a week's forecast for a location. It absorbs all
// provider-side failures and always resolves with usable data, real or
// synthetic.
type Pipeline struct {
	provider Provider
	synth    *Synthesizer
	logger   *zap.SugaredLogger
	sleep    func(time.Duration)
}

func NewPipeline(synth *Synthesizer, opts ...PipelineOption) *Pipeline {
	pl := &Pipeline{synth: synth}
	for _, opt := range opts {
		opt(pl)
	}
	if pl.logger == nil {
		pl.logger = zap.NewNop().Sugar()
	}
	if pl.sleep == nil {
		pl.sleep = time.Sleep
	}
	return pl
}

// Fetch runs the acquisition for one location: configuration gate,
// bounded retry loop with linear backoff, then synthetic fallback. It
// never returns an error.
func (pl *Pipeline) Fetch(ctx context.Context, loc t.Location) t.AcquisitionResult {
	if pl.provider == nil {
		pl.logger.Infow("weather api key not configured, using synthetic forecast",
			"lat", loc.Lat, "lng", loc.Lng)
		return pl.fallback(loc)
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		pl.logger.Infow("fetching 7-day forecast",
			"attempt", attempt, "lat", loc.Lat, "lng", loc.Lng)

		callCtx, cancel := context.WithTimeout(ctx, attemptTimeout)
		days, name, err := pl.provider.Forecast(callCtx, loc)
		cancel()

		switch classify(err) {
		case outcomeSuccess:
			return t.AcquisitionResult{Forecast: days, LocationName: name}
		case outcomeTerminal:
			pl.logger.Errorw("terminal client error from weather provider, not retrying",
				"attempt", attempt, "error", err)
			return pl.fallback(loc)
		case outcomeRetryable:
			pl.logger.Warnw("retryable weather provider failure",
				"attempt", attempt, "error", err)
			if attempt == MaxAttempts {
				pl.logger.Error("weather provider attempts exhausted, using synthetic forecast")
				return pl.fallback(loc)
			}
			pl.sleep(RetryDelay * time.Duration(attempt))
		}
	}

	// Unreachable with the loop bounds above.
	pl.logger.Error("exited retry loop unexpectedly, using synthetic forecast")
	return pl.fallback(loc)
}

func (pl *Pipeline) fallback(loc t.Location) t.AcquisitionResult {
	return t.AcquisitionResult{
		Forecast:     pl.synth.WeekForecast(loc),
		LocationName: MockLocationName,
	}
}
