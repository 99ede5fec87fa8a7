// Package api exposes the vendor clients as the backend's JSON surface.
// Every response body is an envelope; failures carry the status from
// envelope.StatusFor.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/iss"
	"github.com/adeilh/spacedash/logger"
	"github.com/adeilh/spacedash/nasa"
	"github.com/adeilh/spacedash/spaceweather"
)

// Source labels envelopes produced by the API itself rather than a vendor.
const Source = "spacedash"

type NASA interface {
	GetAPOD(ctx context.Context, date string) envelope.Response[nasa.APOD]
	GetMarsPhotos(ctx context.Context, q nasa.MarsPhotoQuery) envelope.Response[[]nasa.RoverPhoto]
	GetNearEarthObjects(ctx context.Context, start, end string) envelope.Response[nasa.NEOFeed]
	GetEarthImagery(ctx context.Context, q nasa.EarthImageryQuery) envelope.Response[nasa.EarthImagery]
	GetDONKI(ctx context.Context, eventType, start, end string) envelope.Response[[]json.RawMessage]
	GetSolarFlares(ctx context.Context, start, end string) envelope.Response[[]nasa.SolarFlare]
	GetCoronalMassEjections(ctx context.Context, start, end string) envelope.Response[[]nasa.CoronalMassEjection]
}

type SpaceWeather interface {
	GetSolarWind(ctx context.Context) envelope.Response[spaceweather.SolarWind]
	GetGeomagneticActivity(ctx context.Context) envelope.Response[spaceweather.GeomagneticActivity]
	GetAuroraForecast(ctx context.Context) envelope.Response[spaceweather.AuroraForecast]
	GetThreeDayForecast(ctx context.Context) envelope.Response[spaceweather.ThreeDayForecast]
	GetSpaceWeatherSummary(ctx context.Context) envelope.Response[spaceweather.Summary]
}

type ISS interface {
	GetPosition(ctx context.Context) envelope.Response[iss.Position]
	GetAstronauts(ctx context.Context) envelope.Response[iss.Crew]
}

// HealthCheck checks a dependency such as the cache backend.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	NASA         NASA
	SpaceWeather SpaceWeather
	ISS          ISS
	Health       HealthCheck
	Gatherer     prometheus.Gatherer
	Logger       *logger.Logger
}

type Handler struct {
	nasa     NASA
	weather  SpaceWeather
	iss      ISS
	health   HealthCheck
	gatherer prometheus.Gatherer
	log      *logger.Logger
	now      func() time.Time
}

func NewHandler(d Deps) *Handler {
	log := d.Logger
	if log == nil {
		log = logger.Nop()
	}
	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		nasa:     d.NASA,
		weather:  d.SpaceWeather,
		iss:      d.ISS,
		health:   d.Health,
		gatherer: gatherer,
		log:      log,
		now:      time.Now,
	}
}

// Register mounts every route on a.
func (h *Handler) Register(a *httpx.App) {
	a.GET("/healthz", h.healthz)
	a.GET("/metrics", httpx.WrapHandler(promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{})))

	httpx.NewRouter(a, "/api/iss").
		GET("/position", h.issPosition).
		GET("/astronauts", h.issAstronauts)

	httpx.NewRouter(a, "/api/nasa").
		GET("/apod", h.apod).
		GET("/mars-photos", h.marsPhotos).
		GET("/neo", h.neo).
		GET("/earth-imagery", h.earthImagery).
		GET("/donki/:type", h.donki).
		GET("/solar-flares", h.solarFlares).
		GET("/cme", h.coronalMassEjections)

	httpx.NewRouter(a, "/api/space-weather").
		GET("/solar-wind", h.solarWind).
		GET("/geomagnetic", h.geomagnetic).
		GET("/aurora", h.aurora).
		GET("/forecast", h.forecast).
		GET("/summary", h.summary)
}

func write[T any](h *Handler, c httpx.Context, res envelope.Response[T]) error {
	if !res.Success {
		code := envelope.CodeInternal
		if res.Error != nil {
			code = res.Error.Code
		}
		ctx := h.log.WithFields(c.Request().Context(), map[string]any{
			"code":   string(code),
			"source": res.Metadata.Source,
			"path":   c.Path(),
		})
		h.log.Warn(ctx, "api.failure_envelope")
		return c.JSON(envelope.StatusFor(code), res)
	}
	return c.JSON(httpx.StatusOK, res)
}

func (h *Handler) fail(c httpx.Context, err error) error {
	var e *envelope.Error
	if !errors.As(err, &e) {
		e = &envelope.Error{Code: envelope.CodeInternal, Message: err.Error()}
	}
	meta := envelope.Metadata{Source: Source, Timestamp: h.now().UTC()}
	return write(h, c, envelope.FailWithDetails[any](e.Code, e.Message, e.Details, meta))
}

func (h *Handler) healthz(c httpx.Context) error {
	meta := envelope.Metadata{Source: Source, Timestamp: h.now().UTC()}
	if h.health != nil {
		if err := h.health(c.Request().Context()); err != nil {
			h.log.Error(c.Request().Context(), "api.health_failed", err)
			return write(h, c, envelope.Fail[map[string]string](envelope.CodeCache, "cache backend unavailable", meta))
		}
	}
	return write(h, c, envelope.OK(map[string]string{"status": "ok"}, meta))
}

func (h *Handler) issPosition(c httpx.Context) error {
	return write(h, c, h.iss.GetPosition(c.Request().Context()))
}

func (h *Handler) issAstronauts(c httpx.Context) error {
	return write(h, c, h.iss.GetAstronauts(c.Request().Context()))
}

func (h *Handler) apod(c httpx.Context) error {
	var q apodQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	return write(h, c, h.nasa.GetAPOD(c.Request().Context(), q.Date))
}

func (h *Handler) marsPhotos(c httpx.Context) error {
	var q marsQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	query := nasa.MarsPhotoQuery{Rover: q.Rover, EarthDate: q.EarthDate, Camera: strings.ToUpper(q.Camera)}
	if q.Sol != "" {
		sol, err := strconv.Atoi(q.Sol)
		if err != nil {
			return h.fail(c, &envelope.Error{Code: envelope.CodeValidation, Message: "validation failed", Details: map[string]string{"sol": "must be a non-negative integer"}})
		}
		query.Sol = &sol
	}
	return write(h, c, h.nasa.GetMarsPhotos(c.Request().Context(), query))
}

func (h *Handler) neo(c httpx.Context) error {
	var q rangeQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	return write(h, c, h.nasa.GetNearEarthObjects(c.Request().Context(), q.StartDate, q.EndDate))
}

func (h *Handler) earthImagery(c httpx.Context) error {
	var q earthQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	// validated above
	lat, _ := strconv.ParseFloat(q.Lat, 64)
	lon, _ := strconv.ParseFloat(q.Lon, 64)
	var dim float64
	if q.Dim != "" {
		dim, _ = strconv.ParseFloat(q.Dim, 64)
	}
	return write(h, c, h.nasa.GetEarthImagery(c.Request().Context(), nasa.EarthImageryQuery{Lat: lat, Lon: lon, Date: q.Date, Dim: dim}))
}

func (h *Handler) donki(c httpx.Context) error {
	var q rangeQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	return write(h, c, h.nasa.GetDONKI(c.Request().Context(), c.Param("type"), q.StartDate, q.EndDate))
}

func (h *Handler) solarFlares(c httpx.Context) error {
	var q rangeQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	return write(h, c, h.nasa.GetSolarFlares(c.Request().Context(), q.StartDate, q.EndDate))
}

func (h *Handler) coronalMassEjections(c httpx.Context) error {
	var q rangeQuery
	if err := bindQuery(c, &q); err != nil {
		return h.fail(c, err)
	}
	return write(h, c, h.nasa.GetCoronalMassEjections(c.Request().Context(), q.StartDate, q.EndDate))
}

func (h *Handler) solarWind(c httpx.Context) error {
	return write(h, c, h.weather.GetSolarWind(c.Request().Context()))
}

func (h *Handler) geomagnetic(c httpx.Context) error {
	return write(h, c, h.weather.GetGeomagneticActivity(c.Request().Context()))
}

func (h *Handler) aurora(c httpx.Context) error {
	return write(h, c, h.weather.GetAuroraForecast(c.Request().Context()))
}

func (h *Handler) forecast(c httpx.Context) error {
	return write(h, c, h.weather.GetThreeDayForecast(c.Request().Context()))
}

func (h *Handler) summary(c httpx.Context) error {
	return write(h, c, h.weather.GetSpaceWeatherSummary(c.Request().Context()))
}

// ErrorHandler renders router and middleware errors (unknown routes,
// recovered panics) as failure envelopes.
func (h *Handler) ErrorHandler(err error, c httpx.Context) {
	if c.Response().Committed {
		return
	}
	status, msg := httpx.ErrorStatus(err)
	code := envelope.CodeInternal
	switch status {
	case httpx.StatusNotFound, httpx.StatusMethodNotAllowed:
		code = envelope.CodeNotFound
	case httpx.StatusBadRequest:
		code = envelope.CodeValidation
	}
	if code == envelope.CodeInternal {
		h.log.Error(c.Request().Context(), "api.unhandled_error", err)
	}
	meta := envelope.Metadata{Source: Source, Timestamp: h.now().UTC()}
	_ = c.JSON(status, envelope.Fail[any](code, msg, meta))
}
