// Package spaceweather adapts the NOAA SWPC public products. Composite
// operations fan out in parallel and succeed only when every part does.
package spaceweather

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/adeilh/spacedash/cache"
	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/fetch"
	"github.com/adeilh/spacedash/logger"
)

const (
	Source         = "swpc"
	DefaultBaseURL = "https://services.swpc.noaa.gov"

	plasmaPath   = "/products/solar-wind/plasma-5-minute.json"
	magPath      = "/products/solar-wind/mag-5-minute.json"
	kpPath       = "/json/planetary_k_index_1m.json"
	auroraNorth  = "/products/animations/ovation_north_24h.json"
	auroraSouth  = "/products/animations/ovation_south_24h.json"
	forecastPath = "/text/3-day-forecast.txt"

	// recentReadings caps the Kp history returned with the current value.
	recentReadings = 60
	issuedLayout   = "2006 Jan 02 1504 MST"
)

type TTLs struct {
	SolarWind   time.Duration
	Geomagnetic time.Duration
	Aurora      time.Duration
	Forecast    time.Duration
}

type Client struct {
	getter  fetch.Getter
	baseURL *url.URL
	ttl     TTLs
	log     *logger.Logger
	now     func() time.Time
}

type Option func(*Client)

// WithBaseURL sets the origin aurora frame paths are resolved against.
func WithBaseURL(raw string) Option {
	return func(c *Client) {
		if u, err := url.Parse(raw); err == nil && raw != "" {
			c.baseURL = u
		}
	}
}

// WithTTLs overrides cache lifetimes; zero fields keep their defaults.
func WithTTLs(ttl TTLs) Option {
	return func(c *Client) {
		if ttl.SolarWind > 0 {
			c.ttl.SolarWind = ttl.SolarWind
		}
		if ttl.Geomagnetic > 0 {
			c.ttl.Geomagnetic = ttl.Geomagnetic
		}
		if ttl.Aurora > 0 {
			c.ttl.Aurora = ttl.Aurora
		}
		if ttl.Forecast > 0 {
			c.ttl.Forecast = ttl.Forecast
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.log = log
		}
	}
}

func NewClient(getter fetch.Getter, opts ...Option) *Client {
	base, _ := url.Parse(DefaultBaseURL)
	c := &Client{
		getter:  getter,
		baseURL: base,
		ttl: TTLs{
			SolarWind:   time.Minute,
			Geomagnetic: 5 * time.Minute,
			Aurora:      5 * time.Minute,
			Forecast:    30 * time.Minute,
		},
		log: logger.Nop(),
		now: time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) request(path, key string, ttl time.Duration) fetch.Request {
	return fetch.Request{Path: path, Key: cache.Key("swpc", key), TTL: ttl}
}

// GetSolarWind joins the latest plasma and magnetic field readings.
func (c *Client) GetSolarWind(ctx context.Context) envelope.Response[SolarWind] {
	var plasma, mag envelope.Response[[]float64]
	var plasmaTag string

	var g errgroup.Group
	g.Go(func() error {
		res := fetch.Get(ctx, c.getter, Source, c.request(plasmaPath, "plasma", c.ttl.SolarWind), func(body []byte) ([]float64, error) {
			t, err := decodeTable(body)
			if err != nil {
				return nil, err
			}
			tag, vals, err := t.latest("speed", "density", "temperature")
			plasmaTag = tag
			return vals, err
		})
		plasma = res
		return res.Err()
	})
	g.Go(func() error {
		res := fetch.Get(ctx, c.getter, Source, c.request(magPath, "mag", c.ttl.SolarWind), func(body []byte) ([]float64, error) {
			t, err := decodeTable(body)
			if err != nil {
				return nil, err
			}
			_, vals, err := t.latest("bt", "bz_gsm")
			return vals, err
		})
		mag = res
		return res.Err()
	})
	_ = g.Wait()

	if !plasma.Success {
		return envelope.Response[SolarWind]{Error: plasma.Error, Metadata: plasma.Metadata}
	}
	if !mag.Success {
		return envelope.Response[SolarWind]{Error: mag.Error, Metadata: mag.Metadata}
	}
	wind := SolarWind{
		TimeTag:     plasmaTag,
		Speed:       plasma.Data[0],
		Density:     plasma.Data[1],
		Temperature: plasma.Data[2],
		Bt:          mag.Data[0],
		Bz:          mag.Data[1],
	}
	return envelope.OK(wind, mergeMeta(plasma.Metadata, mag.Metadata))
}

// GetGeomagneticActivity returns the latest Kp reading, its storm level and
// the recent history.
func (c *Client) GetGeomagneticActivity(ctx context.Context) envelope.Response[GeomagneticActivity] {
	res := fetch.Get(ctx, c.getter, Source, c.request(kpPath, "kp", c.ttl.Geomagnetic), func(body []byte) (GeomagneticActivity, error) {
		var readings []KpReading
		if err := json.Unmarshal(body, &readings); err != nil {
			return GeomagneticActivity{}, err
		}
		if len(readings) == 0 {
			return GeomagneticActivity{}, fmt.Errorf("spaceweather: no kp readings")
		}
		if len(readings) > recentReadings {
			readings = readings[len(readings)-recentReadings:]
		}
		current := readings[len(readings)-1]
		return GeomagneticActivity{
			Current:    current,
			StormLevel: StormLevel(current.KpIndex),
			Readings:   readings,
		}, nil
	})
	return res
}

func (c *Client) hemisphere(ctx context.Context, path, key string) envelope.Response[[]AuroraFrame] {
	return fetch.Get(ctx, c.getter, Source, c.request(path, key, c.ttl.Aurora), func(body []byte) ([]AuroraFrame, error) {
		var frames []AuroraFrame
		if err := json.Unmarshal(body, &frames); err != nil {
			return nil, err
		}
		for i := range frames {
			frames[i].URL = c.resolve(frames[i].URL)
		}
		return frames, nil
	})
}

func (c *Client) resolve(ref string) string {
	u, err := url.Parse(ref)
	if err != nil || c.baseURL == nil {
		return ref
	}
	return c.baseURL.ResolveReference(u).String()
}

// GetAuroraForecast fetches both hemispheres in parallel. Either failing
// fails the whole forecast with AURORA_FORECAST_ERROR.
func (c *Client) GetAuroraForecast(ctx context.Context) envelope.Response[AuroraForecast] {
	var north, south envelope.Response[[]AuroraFrame]

	var g errgroup.Group
	g.Go(func() error {
		north = c.hemisphere(ctx, auroraNorth, "aurora:north")
		return north.Err()
	})
	g.Go(func() error {
		south = c.hemisphere(ctx, auroraSouth, "aurora:south")
		return south.Err()
	})
	_ = g.Wait()

	failed, err := collect(part{"north", north.Err()}, part{"south", south.Err()})
	if err != nil {
		return aggregateFailure[AuroraForecast](ctx, c, envelope.CodeAuroraForecast, "aurora forecast unavailable", failed, err)
	}
	forecast := AuroraForecast{North: north.Data, South: south.Data}
	latestNorth, latestSouth := forecast.Latest()
	c.log.Debug(c.log.WithFields(ctx, map[string]any{
		"north_frames": len(forecast.North),
		"north_latest": latestNorth.TimeTag,
		"south_frames": len(forecast.South),
		"south_latest": latestSouth.TimeTag,
	}), "spaceweather.aurora_resolved")
	return envelope.OK(forecast, mergeMeta(north.Metadata, south.Metadata))
}

// GetThreeDayForecast returns the plain-text SWPC forecast and its issue time.
func (c *Client) GetThreeDayForecast(ctx context.Context) envelope.Response[ThreeDayForecast] {
	return fetch.Get(ctx, c.getter, Source, c.request(forecastPath, "forecast:3day", c.ttl.Forecast), func(body []byte) (ThreeDayForecast, error) {
		text := string(body)
		return ThreeDayForecast{Issued: parseIssued(text), Text: text}, nil
	})
}

func parseIssued(text string) time.Time {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, ":Issued:") {
			continue
		}
		t, err := time.Parse(issuedLayout, strings.TrimSpace(strings.TrimPrefix(line, ":Issued:")))
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	return time.Time{}
}

// GetSpaceWeatherSummary runs the four constituent fetches in parallel. A
// failure does not cancel the others, but any failure discards all data and
// yields SPACE_WEATHER_ERROR.
func (c *Client) GetSpaceWeatherSummary(ctx context.Context) envelope.Response[Summary] {
	var (
		wind     envelope.Response[SolarWind]
		geo      envelope.Response[GeomagneticActivity]
		aurora   envelope.Response[AuroraForecast]
		forecast envelope.Response[ThreeDayForecast]
	)

	var g errgroup.Group
	g.Go(func() error { wind = c.GetSolarWind(ctx); return wind.Err() })
	g.Go(func() error { geo = c.GetGeomagneticActivity(ctx); return geo.Err() })
	g.Go(func() error { aurora = c.GetAuroraForecast(ctx); return aurora.Err() })
	g.Go(func() error { forecast = c.GetThreeDayForecast(ctx); return forecast.Err() })
	_ = g.Wait()

	failed, err := collect(
		part{"solar_wind", wind.Err()},
		part{"geomagnetic", geo.Err()},
		part{"aurora", aurora.Err()},
		part{"forecast", forecast.Err()},
	)
	if err != nil {
		return aggregateFailure[Summary](ctx, c, envelope.CodeSpaceWeather, "space weather summary unavailable", failed, err)
	}
	summary := Summary{
		SolarWind:   wind.Data,
		Geomagnetic: geo.Data,
		Aurora:      aurora.Data,
		Forecast:    forecast.Data,
	}
	return envelope.OK(summary, mergeMeta(wind.Metadata, geo.Metadata, aurora.Metadata, forecast.Metadata))
}

type part struct {
	name string
	err  error
}

// collect names the failed parts in order and combines their errors.
func collect(parts ...part) ([]string, error) {
	var failed []string
	var err error
	for _, p := range parts {
		if p.err != nil {
			failed = append(failed, p.name)
			err = multierr.Append(err, fmt.Errorf("%s: %w", p.name, p.err))
		}
	}
	return failed, err
}

func aggregateFailure[T any](ctx context.Context, c *Client, code envelope.Code, msg string, failed []string, err error) envelope.Response[T] {
	logCtx := c.log.WithFields(ctx, map[string]any{"code": string(code), "failed": failed})
	c.log.Error(logCtx, "spaceweather.aggregate_failed", err)
	meta := envelope.Metadata{Source: Source, Timestamp: c.now().UTC()}
	return envelope.FailWithDetails[T](code, msg, map[string]any{"failed": failed}, meta)
}

// mergeMeta reports the oldest part's fetch time; the result is cached only
// if every part was.
func mergeMeta(parts ...envelope.Metadata) envelope.Metadata {
	out := envelope.Metadata{Source: Source, Cached: len(parts) > 0}
	for i, m := range parts {
		if i == 0 || m.Timestamp.Before(out.Timestamp) {
			out.Timestamp = m.Timestamp
		}
		out.Cached = out.Cached && m.Cached
	}
	return out
}
