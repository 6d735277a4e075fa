package services

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

const (
	DefaultGeocodingURL = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL  = "https://api.open-meteo.com/v1/forecast"
)

type geocodingResponse struct {
	Results []struct {
		Name      string  `json:"name"`
		Country   string  `json:"country"`
		Latitude  float64 `json:"latitude"`
		Longitude float64 `json:"longitude"`
	} `json:"results"`
}

type forecastResponse struct {
	CurrentWeather *struct {
		Temperature *float64 `json:"temperature"`
		WindSpeed   *float64 `json:"windspeed"`
	} `json:"current_weather"`
}

// WeatherClient resolves a city name and reports its current weather.
type WeatherClient struct {
	geocodingURL string
	forecastURL  string
	http         *http.Client
	logger       *zap.Logger
}

// NewWeatherClient creates a WeatherClient.
func NewWeatherClient(geocodingURL, forecastURL string, hc *http.Client, logger *zap.Logger) *WeatherClient {
	return &WeatherClient{
		geocodingURL: geocodingURL,
		forecastURL:  forecastURL,
		http:         hc,
		logger:       logger.Named("weather"),
	}
}

// Weather returns a one-line weather report for city.
func (w *WeatherClient) Weather(ctx context.Context, city string) string {
	city = strings.TrimSpace(city)
	if city == "" {
		return "Bitte: bot sag wetter in <stadt>"
	}

	geoParams := url.Values{
		"name":     {city},
		"count":    {"1"},
		"language": {"de"},
		"format":   {"json"},
	}
	var geo geocodingResponse
	if err := getJSON(ctx, w.http, w.geocodingURL+"?"+geoParams.Encode(), &geo); err != nil {
		w.logger.Warn("Geocoding failed", zap.String("city", city), zap.Error(err))
		return "Wetter-API gerade nicht erreichbar."
	}
	if len(geo.Results) == 0 {
		return "Ort nicht gefunden: " + city
	}

	hit := geo.Results[0]
	where := hit.Name
	if where == "" {
		where = city
	}
	if hit.Country != "" {
		where += ", " + hit.Country
	}

	fcParams := url.Values{
		"latitude":        {strconv.FormatFloat(hit.Latitude, 'f', -1, 64)},
		"longitude":       {strconv.FormatFloat(hit.Longitude, 'f', -1, 64)},
		"current_weather": {"true"},
	}
	var fc forecastResponse
	if err := getJSON(ctx, w.http, w.forecastURL+"?"+fcParams.Encode(), &fc); err != nil {
		w.logger.Warn("Forecast failed", zap.String("city", city), zap.Error(err))
		return "Wetter-API gerade nicht erreichbar."
	}

	if fc.CurrentWeather == nil || fc.CurrentWeather.Temperature == nil {
		return where + ": Wetter aktuell nicht verfügbar, zieh zur Sicherheit eine Hose an!"
	}
	temp := formatDecimal(*fc.CurrentWeather.Temperature)
	if fc.CurrentWeather.WindSpeed == nil {
		return fmt.Sprintf("%s: %s°C", where, temp)
	}
	return fmt.Sprintf("%s: %s°C, Wind %s km/h", where, temp, formatDecimal(*fc.CurrentWeather.WindSpeed))
}

// formatDecimal renders v with at least one fractional digit ("12.0", "3.5").
func formatDecimal(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}
