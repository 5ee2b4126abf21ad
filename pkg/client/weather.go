package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kristyson/DGK-Restaurante/pkg/types"
)

// open-meteo reports local times without a zone in ISO 8601 minute precision.
const forecastTimeLayout = "2006-01-02T15:04"

type forecastResponse struct {
	Latitude       float64         `json:"latitude"`
	Longitude      float64         `json:"longitude"`
	CurrentWeather *currentWeather `json:"current_weather"`
}

type currentWeather struct {
	Temperature float64 `json:"temperature"`
	WindSpeed   float64 `json:"windspeed"`
	WeatherCode int     `json:"weathercode"`
	Time        string  `json:"time"`
}

// FetchForecast returns the current conditions at the given coordinates.
//
// A response without current conditions fails with *DataUnavailableError.
func (c *Client) FetchForecast(ctx context.Context, latitude, longitude float64) (types.WeatherSnapshot, error) {
	logger := log.Ctx(ctx).With().Str("component", "gateway").Logger()

	endpoint, err := url.Parse(c.weatherURL)
	if err != nil {
		return types.WeatherSnapshot{}, fmt.Errorf("parsing weather url: %w", err)
	}
	query := endpoint.Query()
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("current_weather", "true")
	query.Set("timezone", c.cfg.Timezone)
	endpoint.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return types.WeatherSnapshot{}, fmt.Errorf("building weather request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return types.WeatherSnapshot{}, &TransportError{Op: "fetching forecast", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return types.WeatherSnapshot{}, &TransportError{Op: "fetching forecast", Err: fmt.Errorf("reading response body: %w", err)}
	}

	logger.Debug().
		Float64("latitude", latitude).
		Float64("longitude", longitude).
		Int("status", resp.StatusCode).
		Msg("forecast request completed")

	if resp.StatusCode != http.StatusOK {
		return types.WeatherSnapshot{}, &TransportError{
			Op:  "fetching forecast",
			Err: &ServerError{Status: resp.StatusCode, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)},
		}
	}

	var payload forecastResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return types.WeatherSnapshot{}, &TransportError{Op: "fetching forecast", Err: fmt.Errorf("decoding response: %w", err)}
	}
	if payload.CurrentWeather == nil {
		return types.WeatherSnapshot{}, &DataUnavailableError{
			Message: "current weather is unavailable for the selected location",
		}
	}

	snapshot := types.WeatherSnapshot{
		Latitude:    latitude,
		Longitude:   longitude,
		Temperature: payload.CurrentWeather.Temperature,
		WindSpeed:   payload.CurrentWeather.WindSpeed,
		WeatherCode: payload.CurrentWeather.WeatherCode,
		Time:        payload.CurrentWeather.Time,
	}
	if observed, err := time.ParseInLocation(forecastTimeLayout, payload.CurrentWeather.Time, c.location); err == nil {
		snapshot.ObservedAt = observed
	}
	return snapshot, nil
}
