// Package nasa is a thin adapter over api.nasa.gov: each method builds the
// path, query and cache key for one resource and delegates to a fetch.Getter.
package nasa

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/adeilh/spacedash/cache"
	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/fetch"
)

const (
	Source = "nasa"

	DefaultAPIKey = "DEMO_KEY"
	DefaultRover  = "curiosity"
	DefaultSol    = 1000
	DefaultDim    = 0.15

	dateLayout = "2006-01-02"
	donkiRange = 30 * 24 * time.Hour
)

// DONKI event types accepted by GetDONKI.
var donkiTypes = map[string]struct{}{
	"FLR": {}, "CME": {}, "GST": {}, "IPS": {}, "SEP": {},
	"MPC": {}, "RBE": {}, "HSS": {}, "WSA": {},
}

// NormalizeDONKIType upper-cases t and falls back to FLR for unknown types.
func NormalizeDONKIType(t string) string {
	up := strings.ToUpper(strings.TrimSpace(t))
	if _, ok := donkiTypes[up]; ok {
		return up
	}
	return "FLR"
}

// TTLs is the cache lifetime per resource.
type TTLs struct {
	APOD  time.Duration
	Mars  time.Duration
	NEO   time.Duration
	Earth time.Duration
	DONKI time.Duration
}

func defaultTTLs() TTLs {
	return TTLs{
		APOD:  time.Hour,
		Mars:  6 * time.Hour,
		NEO:   time.Hour,
		Earth: 24 * time.Hour,
		DONKI: 30 * time.Minute,
	}
}

type Client struct {
	getter fetch.Getter
	apiKey string
	ttl    TTLs
	now    func() time.Time
}

type Option func(*Client)

func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithTTLs overrides cache lifetimes; zero fields keep their defaults.
func WithTTLs(ttl TTLs) Option {
	return func(c *Client) {
		if ttl.APOD > 0 {
			c.ttl.APOD = ttl.APOD
		}
		if ttl.Mars > 0 {
			c.ttl.Mars = ttl.Mars
		}
		if ttl.NEO > 0 {
			c.ttl.NEO = ttl.NEO
		}
		if ttl.Earth > 0 {
			c.ttl.Earth = ttl.Earth
		}
		if ttl.DONKI > 0 {
			c.ttl.DONKI = ttl.DONKI
		}
	}
}

func NewClient(getter fetch.Getter, opts ...Option) *Client {
	c := &Client{
		getter: getter,
		apiKey: DefaultAPIKey,
		ttl:    defaultTTLs(),
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

func (c *Client) params(extra map[string]string) map[string]string {
	out := make(map[string]string, len(extra)+1)
	for k, v := range extra {
		out[k] = v
	}
	out["api_key"] = c.apiKey
	return out
}

func (c *Client) today() string {
	return c.now().UTC().Format(dateLayout)
}

// GetAPOD fetches the picture of the day for date, or today's when date is empty.
func (c *Client) GetAPOD(ctx context.Context, date string) envelope.Response[APOD] {
	query := map[string]string{}
	keyDate := "today"
	if date != "" {
		query["date"] = date
		keyDate = date
	}
	return fetch.Get(ctx, c.getter, Source, fetch.Request{
		Path:  "/planetary/apod",
		Query: c.params(query),
		Key:   cache.Key("apod", keyDate),
		TTL:   c.ttl.APOD,
	}, fetch.JSON[APOD]())
}

// MarsPhotoQuery selects rover photos. Sol wins over EarthDate; with neither
// set the query asks for sol 1000.
type MarsPhotoQuery struct {
	Rover     string
	Sol       *int
	EarthDate string
	Camera    string
}

func (c *Client) GetMarsPhotos(ctx context.Context, q MarsPhotoQuery) envelope.Response[[]RoverPhoto] {
	rover := strings.ToLower(strings.TrimSpace(q.Rover))
	if rover == "" {
		rover = DefaultRover
	}

	query := map[string]string{}
	var when string
	switch {
	case q.Sol != nil:
		when = strconv.Itoa(*q.Sol)
		query["sol"] = when
	case q.EarthDate != "":
		when = q.EarthDate
		query["earth_date"] = when
	default:
		when = strconv.Itoa(DefaultSol)
		query["sol"] = when
	}

	camera := "all"
	if q.Camera != "" {
		camera = q.Camera
		query["camera"] = q.Camera
	}

	res := fetch.Get(ctx, c.getter, Source, fetch.Request{
		Path:  "/mars-photos/api/v1/rovers/" + rover + "/photos",
		Query: c.params(query),
		Key:   cache.Key("mars", rover, when, camera),
		TTL:   c.ttl.Mars,
	}, fetch.JSON[marsPhotosResponse]())
	return envelope.Map(res, func(r marsPhotosResponse) []RoverPhoto { return r.Photos })
}

// GetNearEarthObjects fetches the NEO feed between start and end. start
// defaults to today (UTC) and end to start.
func (c *Client) GetNearEarthObjects(ctx context.Context, start, end string) envelope.Response[NEOFeed] {
	if start == "" {
		start = c.today()
	}
	if end == "" {
		end = start
	}
	return fetch.Get(ctx, c.getter, Source, fetch.Request{
		Path:  "/neo/rest/v1/feed",
		Query: c.params(map[string]string{"start_date": start, "end_date": end}),
		Key:   cache.Key("neo", start, end),
		TTL:   c.ttl.NEO,
	}, fetch.JSON[NEOFeed]())
}

type EarthImageryQuery struct {
	Lat  float64
	Lon  float64
	Date string
	// Dim is the tile width in degrees; zero means DefaultDim.
	Dim float64
}

func (c *Client) GetEarthImagery(ctx context.Context, q EarthImageryQuery) envelope.Response[EarthImagery] {
	dim := q.Dim
	if dim <= 0 {
		dim = DefaultDim
	}
	lat := formatFloat(q.Lat)
	lon := formatFloat(q.Lon)
	dimStr := formatFloat(dim)

	query := map[string]string{"lat": lat, "lon": lon, "dim": dimStr}
	keyDate := "latest"
	if q.Date != "" {
		query["date"] = q.Date
		keyDate = q.Date
	}
	return fetch.Get(ctx, c.getter, Source, fetch.Request{
		Path:  "/planetary/earth/assets",
		Query: c.params(query),
		Key:   cache.Key("earth", lat, lon, keyDate, dimStr),
		TTL:   c.ttl.Earth,
	}, fetch.JSON[EarthImagery]())
}

// GetDONKI returns raw DONKI events of eventType. Unknown types fall back to
// FLR. Missing dates default to the 30 days ending today.
func (c *Client) GetDONKI(ctx context.Context, eventType, start, end string) envelope.Response[[]json.RawMessage] {
	return getDONKI(ctx, c, NormalizeDONKIType(eventType), start, end, fetch.JSON[[]json.RawMessage]())
}

func (c *Client) GetSolarFlares(ctx context.Context, start, end string) envelope.Response[[]SolarFlare] {
	return getDONKI(ctx, c, "FLR", start, end, fetch.JSON[[]SolarFlare]())
}

func (c *Client) GetCoronalMassEjections(ctx context.Context, start, end string) envelope.Response[[]CoronalMassEjection] {
	return getDONKI(ctx, c, "CME", start, end, fetch.JSON[[]CoronalMassEjection]())
}

func getDONKI[T any](ctx context.Context, c *Client, eventType, start, end string, decode fetch.Decoder[T]) envelope.Response[T] {
	if end == "" {
		end = c.today()
	}
	if start == "" {
		if t, err := time.Parse(dateLayout, end); err == nil {
			start = t.Add(-donkiRange).Format(dateLayout)
		} else {
			start = c.now().UTC().Add(-donkiRange).Format(dateLayout)
		}
	}
	return fetch.Get(ctx, c.getter, Source, fetch.Request{
		Path:  "/DONKI/" + eventType,
		Query: c.params(map[string]string{"startDate": start, "endDate": end}),
		Key:   cache.Key("donki", eventType, start, end),
		TTL:   c.ttl.DONKI,
	}, decode)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
