package types

// Location is a geographical point. It has no identity beyond its coordinates.
type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// WeatherSample is a single daily-aggregate weather reading.
// PrecipitationMm and WindSpeedKmh are never negative.
type WeatherSample struct {
	TemperatureCelsius float64 `json:"temperatureCelsius"`
	PrecipitationMm    float64 `json:"precipitationMm"`
	WindSpeedKmh       float64 `json:"windSpeedKmh"`
}

// DailyForecast is a WeatherSample stamped with its calendar date (YYYY-MM-DD).
type DailyForecast struct {
	Date string `json:"date"`
	WeatherSample
}

// AcquisitionResult is what one forecast acquisition resolves to: seven
// chronologically ordered days plus a best-effort location label.
// LocationName is empty when the provider response carried none.
type AcquisitionResult struct {
	Forecast     []DailyForecast `json:"forecast"`
	LocationName string          `json:"locationName,omitempty"`
}

// RideDecision is the evaluator's verdict for one day's weather.
// Reason is set only when IsGoodDay is false.
type RideDecision struct {
	IsGoodDay      bool   `json:"isGoodDay"`
	Message        string `json:"message"`
	Reason         string `json:"reason,omitempty"`
	WeatherSummary string `json:"weatherSummary"`
}

// External Objects

// EventTime is a Google Calendar event boundary. Timed events use
// DateTime (ISO 8601); all-day events use Date (YYYY-MM-DD). Date and
// TimeZone are accepted on the wire but not produced by this service.
type EventTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

// CalendarEvent mirrors the Google Calendar v3 event resource, reduced
// to the fields this service reads and writes.
type CalendarEvent struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Start       EventTime `json:"start"`
	End         EventTime `json:"end"`
	HTMLLink    string    `json:"htmlLink,omitempty"`
	Description string    `json:"description,omitempty"`
}
