package providers

import (
	"context"
	"net/url"
	"strings"

	"github.com/kickoffai/predictions-api/internal/logic"
	"github.com/kickoffai/predictions-api/internal/models"
)

type OpenWeatherConfig struct {
	ClientConfig
	Key string
}

// OpenWeather reports current conditions by city name.
type OpenWeather struct {
	c   *client
	key string
}

var _ logic.WeatherProvider = (*OpenWeather)(nil)

func NewOpenWeather(cfg OpenWeatherConfig) *OpenWeather {
	return &OpenWeather{c: newClient("openweather", cfg.ClientConfig, nil, nil), key: cfg.Key}
}

type openWeatherReply struct {
	Name    string `json:"name"`
	Weather []struct {
		Main        string `json:"main"`
		Description string `json:"description"`
	} `json:"weather"`
	Main struct {
		Temp     float64 `json:"temp"`
		Humidity int     `json:"humidity"`
	} `json:"main"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current returns the conditions now at city. Country narrows the lookup when set.
func (w *OpenWeather) Current(ctx context.Context, city, country string) (*models.Weather, error) {
	if w.key == "" {
		return nil, logic.ErrProviderUnavailable
	}
	loc := strings.TrimSpace(city)
	if c := strings.TrimSpace(country); c != "" {
		loc += "," + c
	}
	q := url.Values{}
	q.Set("q", loc)
	q.Set("units", "metric")
	q.Set("appid", w.key)

	var reply openWeatherReply
	if err := w.c.getJSON(ctx, "/weather", q, &reply); err != nil {
		return nil, err
	}

	out := &models.Weather{
		TempC:     reply.Main.Temp,
		WindSpeed: reply.Wind.Speed,
		Humidity:  reply.Main.Humidity,
		City:      reply.Name,
	}
	if len(reply.Weather) > 0 {
		out.Main = reply.Weather[0].Main
		out.Description = reply.Weather[0].Description
	}
	return out, nil
}
