package bikebuddy

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/bikebuddy/bikebuddy-service/internal/forecast"
	"github.com/bikebuddy/bikebuddy-service/internal/gcal"
	"github.com/bikebuddy/bikebuddy-service/internal/ride"
	"github.com/bikebuddy/bikebuddy-service/internal/tokenstore"
	t "github.com/bikebuddy/bikebuddy-service/internal/types"
	"github.com/bikebuddy/bikebuddy-service/internal/weatherapi"
	"github.com/go-playground/validator/v10"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWeatherBaseUrl = "https://api.weatherapi.com/v1"
	defaultGcalBaseUrl    = "https://www.googleapis.com/calendar/v3"

	accessTokenKey   = "google_access_token"
	forecastCacheTTL = 10 * time.Minute
)

// DayPlan is one forecast day annotated with its ride decision.
type DayPlan struct {
	t.DailyForecast
	Decision t.RideDecision `json:"decision"`
}

// ForecastResponse is the payload for /forecast.
type ForecastResponse struct {
	LocationName string    `json:"locationName,omitempty"`
	Days         []DayPlan `json:"days"`
}

// PlanResponse is the payload for /plan: the annotated forecast plus the
// user's upcoming calendar events. EventsError carries a calendar
// failure without failing the whole response.
type PlanResponse struct {
	LocationName string            `json:"locationName,omitempty"`
	Days         []DayPlan         `json:"days"`
	Events       []t.CalendarEvent `json:"events,omitempty"`
	EventsError  string            `json:"eventsError,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type CodeError struct {
	code int
	msg  string
}

func (c CodeError) Error() string {
	return c.msg
}

type Service struct {
	pipeline     *forecast.Pipeline
	cal          gcal.Calendar
	tokens       tokenstore.Store
	rc           *redis.Client
	disableRedis bool
	validate     *validator.Validate

	Logger *zap.SugaredLogger
}

func New() *Service {
	s := &Service{}

	baseLogger, _ := zap.NewProduction()
	defer baseLogger.Sync()
	s.Logger = baseLogger.Sugar()

	s.validate = validator.New()

	synth := forecast.NewSynthesizer()
	pipelineOpts := []forecast.PipelineOption{
		forecast.LoggerOption(s.Logger),
	}
	if apiKey := os.Getenv("weatherapi_apikey"); apiKey != "" {
		provider := weatherapi.New(
			weatherapi.ApiKeyOption(apiKey),
			weatherapi.BaseUrlOption(getenvDefault("weatherapi_baseurl", defaultWeatherBaseUrl)),
			weatherapi.RateLimitOption(1.0, 5),
		)
		pipelineOpts = append(pipelineOpts, forecast.ProviderOption(provider))
	} else {
		s.Logger.Warn("weatherapi_apikey not set, all forecasts will use synthetic data")
	}
	s.pipeline = forecast.NewPipeline(synth, pipelineOpts...)

	if os.Getenv("google_clientid") != "" {
		s.cal = gcal.New(
			gcal.BaseUrlOption(getenvDefault("gcal_baseurl", defaultGcalBaseUrl)),
		)
	} else {
		s.Logger.Warn("google_clientid not set, using in-memory mock calendar")
		s.cal = gcal.NewMock(nil)
	}

	s.rc = redis.NewClient(&redis.Options{
		Addr: os.Getenv("redis_address"),
	})

	disableRedis, err := strconv.ParseBool(os.Getenv("disable_redis"))
	if err == nil {
		s.disableRedis = disableRedis
	}

	if s.disableRedis {
		s.tokens = tokenstore.NewMemory()
	} else {
		s.tokens = tokenstore.NewRedis(s.rc)
	}

	return s
}

func (s *Service) Start() {
	mux := http.NewServeMux()
	mux.HandleFunc("/forecast", s.ForecastHandler)
	mux.HandleFunc("/plan", s.PlanHandler)
	mux.HandleFunc("/calendar/events", s.CalendarEventsHandler)
	mux.HandleFunc("/session/token", s.SessionTokenHandler)
	mux.HandleFunc("/health", s.HealthHandler)

	addr := ":" + getenvDefault("port", "8080")
	s.Logger.Infof("bikebuddy-service listening on %v", addr)
	_ = http.ListenAndServe(addr, mux)
}

func (s *Service) ForecastHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, CodeError{code: 405, msg: "Method not allowed"})
		return
	}
	loc, err := parseLocation(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	resp := s.forecastForLocation(r.Context(), *loc)
	s.writeResponse(w, resp)
}

func (s *Service) PlanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, CodeError{code: 405, msg: "Method not allowed"})
		return
	}
	loc, err := parseLocation(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	maxResults := parseMaxResults(r)

	var (
		fc       *ForecastResponse
		events   []t.CalendarEvent
		eventErr error
	)
	g := new(errgroup.Group)

	g.Go(func() error {
		fc = s.forecastForLocation(r.Context(), *loc)
		return nil
	})
	g.Go(func() error {
		// Calendar failures degrade the plan instead of failing it.
		events, eventErr = s.cal.UpcomingEvents(r.Context(), s.accessToken(r), maxResults)
		return nil
	})
	_ = g.Wait()

	resp := &PlanResponse{
		LocationName: fc.LocationName,
		Days:         fc.Days,
		Events:       events,
	}
	if eventErr != nil {
		s.Logger.Warnf("Error listing calendar events for plan: %v", eventErr.Error())
		resp.EventsError = "Could not load calendar events."
	}
	s.writeResponse(w, resp)
}

func (s *Service) CalendarEventsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listEvents(w, r)
	case http.MethodPost:
		s.createEvent(w, r)
	default:
		s.writeError(w, CodeError{code: 405, msg: "Method not allowed"})
	}
}

type createEventRequest struct {
	Summary       string `json:"summary" validate:"required"`
	StartDateTime string `json:"startDateTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	EndDateTime   string `json:"endDateTime" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
	Description   string `json:"description"`
}

func (s *Service) createEvent(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		s.writeError(w, CodeError{code: 400, msg: "Unable to read request body"})
		return
	}
	var req createEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		s.writeError(w, CodeError{code: 400, msg: "Request body must be valid JSON"})
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.writeError(w, CodeError{code: 400, msg: err.Error()})
		return
	}

	event, err := s.cal.CreateEvent(r.Context(), s.accessToken(r), gcal.EventInput{
		Summary:       req.Summary,
		StartDateTime: req.StartDateTime,
		EndDateTime:   req.EndDateTime,
		Description:   req.Description,
	})
	if err != nil {
		// Writes are not retried; the failure goes straight back to the user.
		s.Logger.Errorw("Error creating calendar event",
			"summary", req.Summary, "error", err.Error())
		s.writeError(w, CodeError{code: 502, msg: "Failed to add event to calendar."})
		return
	}
	s.writeResponse(w, event)
}

func (s *Service) listEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.cal.UpcomingEvents(r.Context(), s.accessToken(r), parseMaxResults(r))
	if err != nil {
		s.Logger.Errorf("Error listing calendar events: %v", err.Error())
		s.writeError(w, CodeError{code: 502, msg: "Failed to list calendar events."})
		return
	}
	s.writeResponse(w, events)
}

type sessionTokenRequest struct {
	AccessToken string `json:"accessToken" validate:"required"`
}

func (s *Service) SessionTokenHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			s.writeError(w, CodeError{code: 400, msg: "Unable to read request body"})
			return
		}
		var req sessionTokenRequest
		if err := json.Unmarshal(body, &req); err != nil {
			s.writeError(w, CodeError{code: 400, msg: "Request body must be valid JSON"})
			return
		}
		if err := s.validate.Struct(req); err != nil {
			s.writeError(w, CodeError{code: 400, msg: err.Error()})
			return
		}
		if err := s.tokens.Set(r.Context(), accessTokenKey, req.AccessToken); err != nil {
			s.Logger.Errorf("Error storing access token: %v", err.Error())
			s.writeError(w, CodeError{code: 500, msg: "Failed to store access token."})
			return
		}
		w.WriteHeader(204)
	case http.MethodDelete:
		if err := s.tokens.Remove(r.Context(), accessTokenKey); err != nil {
			s.Logger.Errorf("Error removing access token: %v", err.Error())
			s.writeError(w, CodeError{code: 500, msg: "Failed to remove access token."})
			return
		}
		w.WriteHeader(204)
	default:
		s.writeError(w, CodeError{code: 405, msg: "Method not allowed"})
	}
}

func (s *Service) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	s.writeResponse(w, map[string]string{"status": "ok", "service": "bikebuddy-service"})
}

// forecastForLocation runs the acquisition pipeline with a short-lived
// redis cache in front of it. Synthetic results are never cached so a
// recovered provider is picked up on the next call.
func (s *Service) forecastForLocation(ctx context.Context, loc t.Location) *ForecastResponse {
	cacheKey := fmt.Sprintf("forecast:%v,%v", loc.Lat, loc.Lng)

	if !s.disableRedis {
		cached, err := s.rc.Get(ctx, cacheKey).Result()
		if err != nil && !errors.Is(err, redis.Nil) {
			s.Logger.Errorf("Redis error fetching cached forecast for (%v, %v): %v",
				loc.Lat, loc.Lng, err.Error())
		}
		if err == nil {
			var resp ForecastResponse
			if err := json.Unmarshal([]byte(cached), &resp); err != nil {
				s.Logger.Errorf("Error unmarshalling cached forecast for (%v, %v): %v",
					loc.Lat, loc.Lng, err.Error())
			} else {
				return &resp
			}
		}
	}

	result := s.pipeline.Fetch(ctx, loc)

	resp := &ForecastResponse{
		LocationName: result.LocationName,
		Days:         make([]DayPlan, 0, len(result.Forecast)),
	}
	for _, day := range result.Forecast {
		resp.Days = append(resp.Days, DayPlan{
			DailyForecast: day,
			Decision:      ride.Analyze(day.WeatherSample),
		})
	}

	if !s.disableRedis && result.LocationName != forecast.MockLocationName {
		if payload, err := json.Marshal(resp); err == nil {
			if err := s.rc.Set(ctx, cacheKey, payload, forecastCacheTTL).Err(); err != nil {
				s.Logger.Errorf("Redis error caching forecast for (%v, %v): %v",
					loc.Lat, loc.Lng, err.Error())
			}
		}
	}
	return resp
}

// accessToken resolves the Google access token for a request: an
// explicit bearer header wins, otherwise the stored session token.
func (s *Service) accessToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if len(auth) > 7 && auth[:7] == "Bearer " {
		return auth[7:]
	}
	token, ok, err := s.tokens.Get(r.Context(), accessTokenKey)
	if err != nil {
		s.Logger.Warnf("Error reading stored access token: %v", err.Error())
		return ""
	}
	if !ok {
		return ""
	}
	return token
}

func parseLocation(r *http.Request) (*t.Location, error) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")
	if latStr == "" || lngStr == "" {
		return nil, CodeError{code: 400, msg: "Missing 'lat' or 'lng' query parameter in request"}
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, CodeError{code: 400, msg: "'lat' parameter must be a number"}
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, CodeError{code: 400, msg: "'lng' parameter must be a number"}
	}
	return &t.Location{Lat: lat, Lng: lng}, nil
}

func parseMaxResults(r *http.Request) int {
	maxResults := 5
	if v := r.URL.Query().Get("maxResults"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			maxResults = n
		}
	}
	return maxResults
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	codeErr, ok := err.(CodeError)
	if ok {
		bodyBytes, _ := json.Marshal(errorResponse{Error: codeErr.Error()})
		w.WriteHeader(codeErr.code)
		io.WriteString(w, string(bodyBytes))
	} else {
		w.WriteHeader(500)
		io.WriteString(w, `{"error":"Internal server error"}`)
	}
}

func (s *Service) writeResponse(w http.ResponseWriter, resp interface{}) {
	bodyBytes, _ := json.Marshal(resp)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(200)
	io.WriteString(w, string(bodyBytes))
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
