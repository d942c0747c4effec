// Package weather fetches current conditions from OpenWeather
package weather

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"time"
)

const defaultBaseURL = "https://api.openweathermap.org"

// ErrUnknownLocation is returned when the provider does not recognise a place
var ErrUnknownLocation = errors.New("unknown location")

// Report is a current-conditions snapshot in Fahrenheit
type Report struct {
	Location    string
	Temp        float64
	High        float64
	Low         float64
	Description string
}

// Summary is the short form used in prompts: "72°F, light rain"
func (r *Report) Summary() string {
	return fmt.Sprintf("%d°F, %s", round(r.Temp), r.Description)
}

// Message is the user-facing sentence
func (r *Report) Message() string {
	return fmt.Sprintf("Weather in %s: %d°F, %s. High %d°, low %d°.",
		r.Location, round(r.Temp), r.Description, round(r.High), round(r.Low))
}

func round(f float64) int {
	return int(math.Round(f))
}

// Provider returns current weather for a named location
type Provider interface {
	Current(ctx context.Context, location string) (*Report, error)
}

// OpenWeather implements Provider over the OpenWeather current-weather API
type OpenWeather struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Config holds OpenWeather client settings
type Config struct {
	APIKey     string
	BaseURL    string // Override for tests
	HTTPClient *http.Client
}

// NewOpenWeather creates a client; an API key is required
func NewOpenWeather(cfg Config) (*OpenWeather, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenWeather API key not set")
	}
	c := &OpenWeather{apiKey: cfg.APIKey, baseURL: cfg.BaseURL, httpClient: cfg.HTTPClient}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return c, nil
}

type currentResponse struct {
	Cod     any    `json:"cod"` // number on success, string on error
	Message string `json:"message"`
	Name    string `json:"name"`
	Main    struct {
		Temp    float64 `json:"temp"`
		TempMin float64 `json:"temp_min"`
		TempMax float64 `json:"temp_max"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
}

// Current fetches current conditions for location
func (c *OpenWeather) Current(ctx context.Context, location string) (*Report, error) {
	q := url.Values{}
	q.Set("q", location)
	q.Set("appid", c.apiKey)
	q.Set("units", "imperial")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/data/2.5/weather?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrUnknownLocation, location)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API error (status %d): %s", resp.StatusCode, string(body))
	}

	var cr currentResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("failed to parse weather: %w", err)
	}
	r := &Report{
		Location: cr.Name,
		Temp:     cr.Main.Temp,
		High:     cr.Main.TempMax,
		Low:      cr.Main.TempMin,
	}
	if r.Location == "" {
		r.Location = location
	}
	if len(cr.Weather) > 0 {
		r.Description = cr.Weather[0].Description
	}
	return r, nil
}
