// Package weather fetches the latest observation of a National Weather
// Service station from api.weather.gov.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mklimuk/airmon/metrics"
)

const DefaultBaseURL = "https://api.weather.gov"

// Observation is a station reading in SI units.
type Observation struct {
	Temperature        float64 // °C
	RelativeHumidity   float64 // %
	BarometricPressure float64 // Pa
}

func (o Observation) String() string {
	return fmt.Sprintf("temp=%.1f°C rh=%.1f%% pressure=%.0fPa", o.Temperature, o.RelativeHumidity, o.BarometricPressure)
}

// Publish sets the weather gauges of station once.
func (o Observation) Publish(sink metrics.Sink, station string) error {
	labels := metrics.Labels{"station": station}
	values := []struct {
		name, help string
		value      float64
	}{
		{"weather_temp_degc", "Outdoor temperature reported by the weather station.", o.Temperature},
		{"weather_rh_percent", "Outdoor relative humidity reported by the weather station.", o.RelativeHumidity},
		{"weather_pressure_pa", "Barometric pressure reported by the weather station.", o.BarometricPressure},
	}
	for _, v := range values {
		g, err := sink.Gauge(v.name, v.help, labels)
		if err != nil {
			return fmt.Errorf("could not register %s: %w", v.name, err)
		}
		g.Set(v.value)
	}
	return nil
}

// StatusError is a non 2xx answer of the API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("weather api returned %d: %s", e.Code, e.Body)
}

type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// NewClient creates a client. The API rejects requests without a User-Agent.
func NewClient(baseURL, userAgent string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

type quantity struct {
	UnitCode string   `json:"unitCode"`
	Value    *float64 `json:"value"`
}

type observationResponse struct {
	Properties struct {
		Timestamp          string   `json:"timestamp"`
		Temperature        quantity `json:"temperature"`
		RelativeHumidity   quantity `json:"relativeHumidity"`
		BarometricPressure quantity `json:"barometricPressure"`
	} `json:"properties"`
}

// Latest fetches the latest observation of station. Missing values are an
// error: stations report null while an instrument is out of service.
func (c *Client) Latest(ctx context.Context, station string) (Observation, error) {
	endpoint := fmt.Sprintf("%s/stations/%s/observations/latest", c.baseURL, url.PathEscape(station))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Observation{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/geo+json")
	res, err := c.http.Do(req)
	if err != nil {
		return Observation{}, fmt.Errorf("could not fetch observation of %s: %w", station, err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 512))
		return Observation{}, &StatusError{Code: res.StatusCode, Body: string(body)}
	}
	var data observationResponse
	if err := json.NewDecoder(res.Body).Decode(&data); err != nil {
		return Observation{}, fmt.Errorf("could not decode observation of %s: %w", station, err)
	}
	p := data.Properties
	missing := func(name string) error {
		return fmt.Errorf("observation of %s at %q has no %s value", station, p.Timestamp, name)
	}
	switch {
	case p.Temperature.Value == nil:
		return Observation{}, missing("temperature")
	case p.RelativeHumidity.Value == nil:
		return Observation{}, missing("relativeHumidity")
	case p.BarometricPressure.Value == nil:
		return Observation{}, missing("barometricPressure")
	}
	return Observation{
		Temperature:        *p.Temperature.Value,
		RelativeHumidity:   *p.RelativeHumidity.Value,
		BarometricPressure: *p.BarometricPressure.Value,
	}, nil
}
