package forecast

import (
	"math"
	"math/rand"
	"time"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
)

// baseConditions are the seven canonical days a synthetic week cycles
// through: three rideable days, one too cold, one too hot, one rainy and
// one windy, so fallback data always shows a mix of verdicts.
var baseConditions = []t.WeatherSample{
	{TemperatureCelsius: 22, PrecipitationMm: 0, WindSpeedKmh: 12},
	{TemperatureCelsius: 18, PrecipitationMm: 0.2, WindSpeedKmh: 8},
	{TemperatureCelsius: 25, PrecipitationMm: 0, WindSpeedKmh: 15},
	{TemperatureCelsius: 5, PrecipitationMm: 0, WindSpeedKmh: 10},
	{TemperatureCelsius: 35, PrecipitationMm: 0, WindSpeedKmh: 5},
	{TemperatureCelsius: 18, PrecipitationMm: 2, WindSpeedKmh: 15},
	{TemperatureCelsius: 20, PrecipitationMm: 0, WindSpeedKmh: 30},
}

const forecastDays = 7

type SynthesizerOption func(*Synthesizer)

// RandOption injects the random source used for daily perturbation, so
// tests can seed it and assert exact output.
func RandOption(rng *rand.Rand) SynthesizerOption {
	return func(s *Synthesizer) {
		s.rng = rng
	}
}

// ClockOption overrides the notion of "today".
func ClockOption(now func() time.Time) SynthesizerOption {
	return func(s *Synthesizer) {
		s.now = now
	}
}

// Synthesizer produces plausible fallback forecasts when the real
// provider is unusable. Shape is deterministic; magnitudes are
// perturbed per call.
type Synthesizer struct {
	rng *rand.Rand
	now func() time.Time
}

func NewSynthesizer(opts ...SynthesizerOption) *Synthesizer {
	s := &Synthesizer{}
	for _, opt := range opts {
		opt(s)
	}
	if s.rng == nil {
		s.rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// WeekForecast generates seven days of synthetic weather starting today,
// cycling the base conditions with small random variation. Precipitation
// and wind speed never go below zero.
func (s *Synthesizer) WeekForecast(_ t.Location) []t.DailyForecast {
	today := s.now()

	forecast := make([]t.DailyForecast, 0, forecastDays)
	for i := 0; i < forecastDays; i++ {
		base := baseConditions[i%len(baseConditions)]

		temp := round1(base.TemperatureCelsius + s.rng.Float64()*4 - 2)
		precip := round1(base.PrecipitationMm + s.rng.Float64()*0.5 - 0.1)
		wind := round1(base.WindSpeedKmh + s.rng.Float64()*5 - 2.5)

		forecast = append(forecast, t.DailyForecast{
			Date: today.AddDate(0, 0, i).Format("2006-01-02"),
			WeatherSample: t.WeatherSample{
				TemperatureCelsius: temp,
				PrecipitationMm:    math.Max(0, precip),
				WindSpeedKmh:       math.Max(0, wind),
			},
		})
	}
	return forecast
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
