package calendar

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultBaseURL  = "https://www.googleapis.com/calendar/v3"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	tokenLifetime   = 55 * time.Minute // Refresh before 1 hour expiry
	calendarScope   = "https://www.googleapis.com/auth/calendar"
)

// Client is a Google Calendar API client using service account authentication.
// It implements Store.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	tokenURL    string
	calendarID  string
	readOnly    []string // extra calendars merged into listings (holidays, course feeds)
	credentials *serviceAccountCredentials
	signingKey  *rsa.PrivateKey

	// Token caching
	mu          sync.RWMutex
	accessToken string
	tokenExpiry time.Time
}

// serviceAccountCredentials holds the service account JSON key
type serviceAccountCredentials struct {
	Type         string `json:"type"`
	ProjectID    string `json:"project_id"`
	PrivateKeyID string `json:"private_key_id"`
	PrivateKey   string `json:"private_key"`
	ClientEmail  string `json:"client_email"`
	TokenURI     string `json:"token_uri"`
}

// Config holds calendar client configuration
type Config struct {
	CredentialsFile string   // Path to service account JSON file
	CalendarID      string   // Calendar to write to (usually an email address)
	ExtraCalendars  []string // Additional calendars to read
	BaseURL         string   // Override for tests
	TokenURL        string   // Override for tests; defaults to the key's token_uri
	HTTPClient      *http.Client
}

// NewClientWithConfig creates a new client with explicit configuration
func NewClientWithConfig(cfg Config) (*Client, error) {
	data, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("read credentials file: %w", err)
	}

	var creds serviceAccountCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	if creds.Type != "service_account" {
		return nil, fmt.Errorf("credentials file must be a service account key (got %s)", creds.Type)
	}

	key, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(creds.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("parse private key: %w", err)
	}

	c := &Client{
		httpClient:  cfg.HTTPClient,
		baseURL:     cfg.BaseURL,
		tokenURL:    cfg.TokenURL,
		calendarID:  cfg.CalendarID,
		readOnly:    cfg.ExtraCalendars,
		credentials: &creds,
		signingKey:  key,
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.tokenURL == "" {
		c.tokenURL = creds.TokenURI
	}
	if c.tokenURL == "" {
		c.tokenURL = defaultTokenURL
	}
	if c.calendarID == "" {
		c.calendarID = "primary"
	}
	return c, nil
}

// getAccessToken returns a valid access token, refreshing if needed
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.RLock()
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		token := c.accessToken
		c.mu.RUnlock()
		return token, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	// Double-check after acquiring write lock
	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   c.credentials.ClientEmail,
		"scope": calendarScope,
		"aud":   c.tokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(c.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign JWT: %w", err)
	}

	// Exchange JWT for access token
	form := url.Values{}
	form.Set("grant_type", "urn:ietf:params:oauth:grant-type:jwt-bearer")
	form.Set("assertion", assertion)

	req, err := http.NewRequestWithContext(ctx, "POST", c.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token request failed (%d): %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("parse token response: %w", err)
	}

	c.accessToken = tokenResp.AccessToken
	c.tokenExpiry = now.Add(tokenLifetime)

	return c.accessToken, nil
}

// apiError is a non-2xx response from the Calendar API
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("calendar API error (%d): %s", e.Status, e.Message)
}

// request makes an authenticated request to the Calendar API
func (c *Client) request(ctx context.Context, method, path string, body any) ([]byte, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("get access token: %w", err)
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			return nil, ErrNotFound
		}
		var errResp struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error.Message != "" {
			return nil, &apiError{Status: resp.StatusCode, Message: errResp.Error.Message}
		}
		return nil, &apiError{Status: resp.StatusCode, Message: string(respBody)}
	}

	return respBody, nil
}

// googleEvent represents the Google Calendar API event format
type googleEvent struct {
	ID               string          `json:"id,omitempty"`
	Summary          string          `json:"summary"`
	Description      string          `json:"description,omitempty"`
	Location         string          `json:"location,omitempty"`
	Status           string          `json:"status,omitempty"`
	Recurrence       []string        `json:"recurrence,omitempty"`
	RecurringEventID string          `json:"recurringEventId,omitempty"`
	Start            *googleDateTime `json:"start,omitempty"`
	End              *googleDateTime `json:"end,omitempty"`
}

type googleDateTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
	TimeZone string `json:"timeZone,omitempty"`
}

type eventsResponse struct {
	Summary string        `json:"summary"` // calendar title
	Items   []googleEvent `json:"items"`
}

func (c *Client) calendars() []string {
	return append([]string{c.calendarID}, c.readOnly...)
}

func eventsPath(calendarID string) string {
	return "/calendars/" + url.PathEscape(calendarID) + "/events"
}

func eventPath(calendarID, eventID string) string {
	return eventsPath(calendarID) + "/" + url.PathEscape(eventID)
}

// ListEvents retrieves events in the specified time range from every
// configured calendar, with recurring events expanded into instances
func (c *Client) ListEvents(ctx context.Context, params ListEventsParams) ([]Event, error) {
	if params.MaxResults == 0 {
		params.MaxResults = 250
	}

	queryParams := url.Values{}
	queryParams.Set("timeMin", params.TimeMin.Format(time.RFC3339))
	queryParams.Set("timeMax", params.TimeMax.Format(time.RFC3339))
	queryParams.Set("maxResults", strconv.Itoa(params.MaxResults))
	queryParams.Set("singleEvents", "true")
	queryParams.Set("orderBy", "startTime")
	if params.Query != "" {
		queryParams.Set("q", params.Query)
	}

	var events []Event
	for i, calID := range c.calendars() {
		data, err := c.request(ctx, "GET", eventsPath(calID)+"?"+queryParams.Encode(), nil)
		if err != nil {
			if i == 0 {
				return nil, err
			}
			continue // secondary calendars are best effort
		}

		var resp eventsResponse
		if err := json.Unmarshal(data, &resp); err != nil {
			return nil, fmt.Errorf("parse events response: %w", err)
		}

		for _, item := range resp.Items {
			event, err := convertEvent(&item)
			if err != nil {
				continue // Skip malformed events
			}
			event.CalendarID = calID
			event.CalendarName = resp.Summary
			events = append(events, event)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	return events, nil
}

// GetEvent retrieves a specific event by ID
func (c *Client) GetEvent(ctx context.Context, calendarID, eventID string) (*Event, error) {
	calendarID = c.orPrimary(calendarID)
	data, err := c.request(ctx, "GET", eventPath(calendarID, eventID), nil)
	if err != nil {
		return nil, err
	}

	var item googleEvent
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parse event: %w", err)
	}

	event, err := convertEvent(&item)
	if err != nil {
		return nil, err
	}
	event.CalendarID = calendarID

	return &event, nil
}

// CreateEvent creates a new calendar event
func (c *Client) CreateEvent(ctx context.Context, params CreateEventParams) (*Event, error) {
	calendarID := c.orPrimary(params.CalendarID)
	item := googleEvent{
		Summary:     params.Summary,
		Description: params.Description,
		Location:    params.Location,
		Recurrence:  params.Recurrence,
		Start:       toGoogleDateTime(params.Start, params.AllDay),
		End:         toGoogleDateTime(params.End, params.AllDay),
	}

	data, err := c.request(ctx, "POST", eventsPath(calendarID), item)
	if err != nil {
		return nil, err
	}

	var created googleEvent
	if err := json.Unmarshal(data, &created); err != nil {
		return nil, fmt.Errorf("parse created event: %w", err)
	}

	result, err := convertEvent(&created)
	if err != nil {
		return nil, err
	}
	result.CalendarID = calendarID

	return &result, nil
}

// UpdateEvent patches the given fields of an event
func (c *Client) UpdateEvent(ctx context.Context, calendarID, eventID string, patch EventPatch) (*Event, error) {
	calendarID = c.orPrimary(calendarID)
	body := map[string]any{}
	if patch.Summary != nil {
		body["summary"] = *patch.Summary
	}
	if patch.Description != nil {
		body["description"] = *patch.Description
	}
	if patch.Location != nil {
		body["location"] = *patch.Location
	}
	if patch.Start != nil {
		body["start"] = toGoogleDateTime(*patch.Start, false)
	}
	if patch.End != nil {
		body["end"] = toGoogleDateTime(*patch.End, false)
	}

	data, err := c.request(ctx, "PATCH", eventPath(calendarID, eventID), body)
	if err != nil {
		return nil, err
	}

	var item googleEvent
	if err := json.Unmarshal(data, &item); err != nil {
		return nil, fmt.Errorf("parse updated event: %w", err)
	}

	event, err := convertEvent(&item)
	if err != nil {
		return nil, err
	}
	event.CalendarID = calendarID

	return &event, nil
}

// DeleteEvent deletes an event (or a whole series when given the series id)
func (c *Client) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	_, err := c.request(ctx, "DELETE", eventPath(c.orPrimary(calendarID), eventID), nil)
	return err
}

func (c *Client) orPrimary(calendarID string) string {
	if calendarID == "" {
		return c.calendarID
	}
	return calendarID
}

func toGoogleDateTime(t time.Time, allDay bool) *googleDateTime {
	if allDay {
		return &googleDateTime{Date: t.Format(DateLayout)}
	}
	return &googleDateTime{
		DateTime: t.Format(time.RFC3339),
		TimeZone: t.Location().String(),
	}
}

// convertEvent converts a Google Calendar event to our Event type
func convertEvent(item *googleEvent) (Event, error) {
	event := Event{
		ID:               item.ID,
		Summary:          item.Summary,
		Description:      item.Description,
		Location:         item.Location,
		Status:           item.Status,
		Recurrence:       item.Recurrence,
		RecurringEventID: item.RecurringEventID,
	}

	if item.Start != nil {
		t, allDay, err := parseGoogleDateTime(item.Start)
		if err != nil {
			return Event{}, fmt.Errorf("parse start time: %w", err)
		}
		event.Start = t
		event.AllDay = allDay
	}

	if item.End != nil {
		t, _, err := parseGoogleDateTime(item.End)
		if err != nil {
			return Event{}, fmt.Errorf("parse end time: %w", err)
		}
		event.End = t
	}

	return event, nil
}

func parseGoogleDateTime(dt *googleDateTime) (time.Time, bool, error) {
	if dt.DateTime != "" {
		t, err := time.Parse(time.RFC3339, dt.DateTime)
		return t, false, err
	}
	if dt.Date != "" {
		t, err := time.Parse(DateLayout, dt.Date)
		return t, true, err
	}
	return time.Time{}, false, nil
}
