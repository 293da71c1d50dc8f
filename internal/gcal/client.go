package gcal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	t "github.com/bikebuddy/bikebuddy-service/internal/types"
)

// EventInput describes a calendar write. Start and end are ISO 8601
// datetimes.
type EventInput struct {
	Summary       string
	StartDateTime string
	EndDateTime   string
	Description   string
}

// Calendar is the calendar collaborator the service talks to, satisfied
// by the real Google Calendar client and by the in-memory mock.
type Calendar interface {
	CreateEvent(ctx context.Context, accessToken string, in EventInput) (*t.CalendarEvent, error)
	UpcomingEvents(ctx context.Context, accessToken string, maxResults int) ([]t.CalendarEvent, error)
}

// StatusError reports a non-2xx calendar API response. Calendar writes
// are not retried; the failure surfaces to the caller.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("google calendar returned status %d: %s", e.Code, e.Body)
}

type ClientOption func(*Client)

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

// Client calls the Google Calendar v3 API for the user's primary
// calendar, authorized per call with an OAuth access token.
type Client struct {
	baseUrl string
	hc      *http.Client
}

func New(opts ...ClientOption) *Client {
	c := &Client{}
	for _, opt := range opts {
		opt(c)
	}

	if c.baseUrl == "" {
		panic("Missing baseUrl in gcal client")
	}
	if c.hc == nil {
		c.hc = &http.Client{Timeout: 10 * time.Second}
	}
	return c
}

func (c *Client) CreateEvent(ctx context.Context, accessToken string, in EventInput) (*t.CalendarEvent, error) {
	event := t.CalendarEvent{
		Summary:     in.Summary,
		Start:       t.EventTime{DateTime: in.StartDateTime},
		End:         t.EventTime{DateTime: in.EndDateTime},
		Description: in.Description,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("error marshalling calendar event: %w", err)
	}

	reqUrl := fmt.Sprintf("%v/calendars/primary/events", c.baseUrl)
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, reqUrl, bytes.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var created t.CalendarEvent
	if err := json.Unmarshal(body, &created); err != nil {
		return nil, fmt.Errorf("error unmarshalling created calendar event: %w", err)
	}
	return &created, nil
}

func (c *Client) UpcomingEvents(ctx context.Context, accessToken string, maxResults int) ([]t.CalendarEvent, error) {
	req, err := url.Parse(fmt.Sprintf("%v/calendars/primary/events", c.baseUrl))
	if err != nil {
		return nil, fmt.Errorf("failed to parse gcal baseUrl %s: %w", c.baseUrl, err)
	}

	q := req.Query()
	q.Add("maxResults", strconv.Itoa(maxResults))
	q.Add("orderBy", "startTime")
	q.Add("singleEvents", "true")
	q.Add("timeMin", time.Now().UTC().Format(time.RFC3339))
	req.RawQuery = q.Encode()

	ctxReq, _ := http.NewRequestWithContext(ctx, http.MethodGet, req.String(), nil)
	ctxReq.Header.Set("Authorization", "Bearer "+accessToken)

	body, err := c.do(ctxReq)
	if err != nil {
		return nil, err
	}

	var respObj struct {
		Items []t.CalendarEvent `json:"items"`
	}
	if err := json.Unmarshal(body, &respObj); err != nil {
		return nil, fmt.Errorf("error unmarshalling calendar events: %w", err)
	}
	return respObj.Items, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error on google calendar request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading google calendar response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
