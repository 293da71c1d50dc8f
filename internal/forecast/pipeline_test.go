package forecast

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/bikebuddy/bikebuddy-service/internal/types"
	"github.com/bikebuddy/bikebuddy-service/internal/weatherapi"
)

var testDays = []types.DailyForecast{
	{Date: "2025-06-02", WeatherSample: types.WeatherSample{TemperatureCelsius: 21, PrecipitationMm: 0, WindSpeedKmh: 10}},
	{Date: "2025-06-03", WeatherSample: types.WeatherSample{TemperatureCelsius: 19, PrecipitationMm: 0.2, WindSpeedKmh: 14}},
}

// scriptedProvider returns its canned results in order and records how
// often it was called.
type scriptedProvider struct {
	errs  []error
	name  string
	calls int
}

func (p *scriptedProvider) Forecast(_ context.Context, _ types.Location) ([]types.DailyForecast, string, error) {
	err := p.errs[p.calls]
	p.calls++
	if err != nil {
		return nil, "", err
	}
	return testDays, p.name, nil
}

func newTestPipeline(p Provider, sleeps *[]time.Duration) *Pipeline {
	synth := NewSynthesizer(
		RandOption(rand.New(rand.NewSource(1))),
		ClockOption(fixedClock),
	)
	opts := []PipelineOption{
		SleepOption(func(d time.Duration) { *sleeps = append(*sleeps, d) }),
	}
	if p != nil {
		opts = append(opts, ProviderOption(p))
	}
	return NewPipeline(synth, opts...)
}

func TestFetchNoProviderFallsBack(t *testing.T) {
	var sleeps []time.Duration
	pl := newTestPipeline(nil, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{Lat: 1, Lng: 2})

	if result.LocationName != MockLocationName {
		t.Errorf("locationName = %q, want %q", result.LocationName, MockLocationName)
	}
	if len(result.Forecast) != 7 {
		t.Fatalf("expected 7 synthetic days, got %d", len(result.Forecast))
	}
	for i, day := range result.Forecast {
		want := fixedClock().AddDate(0, 0, i).Format("2006-01-02")
		if day.Date != want {
			t.Errorf("day %d date = %q, want %q", i, day.Date, want)
		}
	}
	if len(sleeps) != 0 {
		t.Errorf("no backoff expected on the configuration-gate path, got %v", sleeps)
	}
}

func TestFetchRetriesThenSucceeds(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{
			&weatherapi.StatusError{Code: 503},
			&weatherapi.StatusError{Code: 503},
			nil,
		},
		name: "Berlin",
	}
	var sleeps []time.Duration
	pl := newTestPipeline(provider, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{})

	if provider.calls != 3 {
		t.Errorf("expected 3 provider calls, got %d", provider.calls)
	}
	if result.LocationName != "Berlin" {
		t.Errorf("locationName = %q, want %q", result.LocationName, "Berlin")
	}
	if len(result.Forecast) != len(testDays) || result.Forecast[0] != testDays[0] {
		t.Errorf("expected provider forecast to pass through, got %+v", result.Forecast)
	}
	want := []time.Duration{1 * time.Second, 2 * time.Second}
	if len(sleeps) != 2 || sleeps[0] != want[0] || sleeps[1] != want[1] {
		t.Errorf("backoff delays = %v, want %v", sleeps, want)
	}
}

func TestFetchClientErrorDoesNotRetry(t *testing.T) {
	provider := &scriptedProvider{errs: []error{&weatherapi.StatusError{Code: 404}}}
	var sleeps []time.Duration
	pl := newTestPipeline(provider, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{})

	if provider.calls != 1 {
		t.Errorf("expected exactly 1 provider call for a 404, got %d", provider.calls)
	}
	if len(sleeps) != 0 {
		t.Errorf("no backoff expected for a terminal failure, got %v", sleeps)
	}
	if result.LocationName != MockLocationName {
		t.Errorf("locationName = %q, want %q", result.LocationName, MockLocationName)
	}
}

func TestFetchRateLimitIsRetryable(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{
			&weatherapi.StatusError{Code: 429},
			&weatherapi.StatusError{Code: 429},
			&weatherapi.StatusError{Code: 429},
		},
	}
	var sleeps []time.Duration
	pl := newTestPipeline(provider, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{})

	if provider.calls != 3 {
		t.Errorf("429 should consume the attempt budget, got %d calls", provider.calls)
	}
	if result.LocationName != MockLocationName {
		t.Errorf("expected synthetic fallback after exhaustion, got %q", result.LocationName)
	}
}

func TestFetchMalformedBodyIsRetryable(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{weatherapi.ErrMalformedResponse, nil},
		name: "Oslo",
	}
	var sleeps []time.Duration
	pl := newTestPipeline(provider, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{})

	if provider.calls != 2 {
		t.Errorf("expected a retry after a malformed body, got %d calls", provider.calls)
	}
	if result.LocationName != "Oslo" {
		t.Errorf("locationName = %q, want %q", result.LocationName, "Oslo")
	}
}

func TestFetchNetworkErrorIsRetryable(t *testing.T) {
	provider := &scriptedProvider{
		errs: []error{errors.New("connection refused"), nil},
		name: "Lisbon",
	}
	var sleeps []time.Duration
	pl := newTestPipeline(provider, &sleeps)

	result := pl.Fetch(context.Background(), types.Location{})

	if provider.calls != 2 {
		t.Errorf("expected a retry after a network error, got %d calls", provider.calls)
	}
	if result.LocationName != "Lisbon" {
		t.Errorf("locationName = %q, want %q", result.LocationName, "Lisbon")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want outcome
	}{
		{"nil", nil, outcomeSuccess},
		{"400", &weatherapi.StatusError{Code: 400}, outcomeTerminal},
		{"404", &weatherapi.StatusError{Code: 404}, outcomeTerminal},
		{"429", &weatherapi.StatusError{Code: 429}, outcomeRetryable},
		{"500", &weatherapi.StatusError{Code: 500}, outcomeRetryable},
		{"503", &weatherapi.StatusError{Code: 503}, outcomeRetryable},
		{"malformed", weatherapi.ErrMalformedResponse, outcomeRetryable},
		{"network", errors.New("dial tcp: timeout"), outcomeRetryable},
	}
	for _, c := range cases {
		if got := classify(c.err); got != c.want {
			t.Errorf("classify(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}
