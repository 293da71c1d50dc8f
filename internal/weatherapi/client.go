package weatherapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
	"golang.org/x/time/rate"
)

// requestTimeout bounds each forecast call to the provider.
const requestTimeout = 5000 * time.Millisecond

// Response is the subset of the WeatherAPI.com forecast.json body we read.
type Response struct {
	Location *LocationInfo `json:"location,omitempty"`
	Forecast *Forecast     `json:"forecast,omitempty"`
}

type LocationInfo struct {
	Name string `json:"name"`
}

type Forecast struct {
	ForecastDay []ForecastDay `json:"forecastday"`
}

type ForecastDay struct {
	Date string `json:"date"`
	Day  Day    `json:"day"`
}

type Day struct {
	AvgTempC      float64 `json:"avgtemp_c"`
	TotalPrecipMm float64 `json:"totalprecip_mm"`
	MaxWindKph    float64 `json:"maxwind_kph"`
}

// StatusError reports a non-2xx provider response. Callers branch on
// Code to decide whether the failure is worth retrying.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weatherapi returned status %d", e.Code)
}

// ErrMalformedResponse marks a 2xx response missing the expected
// forecast structure.
var ErrMalformedResponse = errors.New("weatherapi response missing forecast data")

type ClientOption func(*Client)

type Client struct {
	apiKey  string
	baseUrl string
	hc      *http.Client
	limiter *rate.Limiter
}

func ApiKeyOption(apiKey string) ClientOption {
	return func(c *Client) {
		c.apiKey = apiKey
	}
}

func BaseUrlOption(baseUrl string) ClientOption {
	return func(c *Client) {
		c.baseUrl = baseUrl
	}
}

func HTTPClientOption(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.hc = hc
	}
}

// RateLimitOption throttles outbound calls to rps requests per second
// with the given burst.
func RateLimitOption(rps float64, burst int) ClientOption {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func New(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		panic("Missing apikey in weatherapi client")
	}
	if c.baseUrl == "" {
		panic("Missing baseUrl in weatherapi client")
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: requestTimeout}
	}
	return c
}

// Forecast fetches a seven-day forecast for the location. It returns the
// transformed days plus the provider's human-readable location name, which
// may be empty.
func (c *Client) Forecast(ctx context.Context, loc t.Location) ([]t.DailyForecast, string, error) {
	req, err := url.Parse(fmt.Sprintf("%v/forecast.json", c.baseUrl))
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse weatherapi baseUrl %s: %w", c.baseUrl, err)
	}

	q := req.Query()
	q.Add("key", c.apiKey)
	q.Add("q", fmt.Sprintf("%v,%v",
		strconv.FormatFloat(loc.Lat, 'f', -1, 64),
		strconv.FormatFloat(loc.Lng, 'f', -1, 64)))
	q.Add("days", "7")
	q.Add("aqi", "no")
	q.Add("alerts", "no")
	req.RawQuery = q.Encode()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, "", err
		}
	}

	ctxReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	resp, err := c.hc.Do(ctxReq)
	if err != nil {
		return nil, "", fmt.Errorf("error on weatherapi request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", &StatusError{Code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("error reading weatherapi response body: %w", err)
	}

	var respObj Response
	if err := json.Unmarshal(body, &respObj); err != nil {
		return nil, "", fmt.Errorf("error unmarshalling response from weatherapi: %w", err)
	}
	if respObj.Forecast == nil || len(respObj.Forecast.ForecastDay) == 0 {
		return nil, "", ErrMalformedResponse
	}

	var name string
	if respObj.Location != nil {
		name = respObj.Location.Name
	}
	return forecastFromWeatherAPI(respObj.Forecast.ForecastDay), name, nil
}

// forecastFromWeatherAPI is a pure mapping from raw provider day records
// to the internal forecast shape. Malformed payloads are caught upstream,
// not here.
func forecastFromWeatherAPI(days []ForecastDay) []t.DailyForecast {
	var forecast []t.DailyForecast
	for _, d := range days {
		forecast = append(forecast, t.DailyForecast{
			Date: d.Date,
			WeatherSample: t.WeatherSample{
				TemperatureCelsius: d.Day.AvgTempC,
				PrecipitationMm:    d.Day.TotalPrecipMm,
				WindSpeedKmh:       d.Day.MaxWindKph,
			},
		})
	}
	return forecast
}
