package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/iss"
	"github.com/adeilh/spacedash/metrics"
	"github.com/adeilh/spacedash/nasa"
	"github.com/adeilh/spacedash/spaceweather"
)

var meta = envelope.Metadata{Source: "test", Timestamp: time.Date(2024, 3, 15, 22, 0, 0, 0, time.UTC)}

type fakeNASA struct {
	apodDate  string
	mars      nasa.MarsPhotoQuery
	earth     nasa.EarthImageryQuery
	donkiType string
}

func (f *fakeNASA) GetAPOD(_ context.Context, date string) envelope.Response[nasa.APOD] {
	f.apodDate = date
	return envelope.OK(nasa.APOD{Title: "M31", Date: date}, meta)
}

func (f *fakeNASA) GetMarsPhotos(_ context.Context, q nasa.MarsPhotoQuery) envelope.Response[[]nasa.RoverPhoto] {
	f.mars = q
	return envelope.OK([]nasa.RoverPhoto{{ID: 1}}, meta)
}

func (f *fakeNASA) GetNearEarthObjects(context.Context, string, string) envelope.Response[nasa.NEOFeed] {
	return envelope.OK(nasa.NEOFeed{ElementCount: 1}, meta)
}

func (f *fakeNASA) GetEarthImagery(_ context.Context, q nasa.EarthImageryQuery) envelope.Response[nasa.EarthImagery] {
	f.earth = q
	return envelope.OK(nasa.EarthImagery{URL: "http://img"}, meta)
}

func (f *fakeNASA) GetDONKI(_ context.Context, eventType, _, _ string) envelope.Response[[]json.RawMessage] {
	f.donkiType = eventType
	return envelope.OK([]json.RawMessage{json.RawMessage(`{"id":1}`)}, meta)
}

func (f *fakeNASA) GetSolarFlares(context.Context, string, string) envelope.Response[[]nasa.SolarFlare] {
	return envelope.OK([]nasa.SolarFlare{{ClassType: "X1.1"}}, meta)
}

func (f *fakeNASA) GetCoronalMassEjections(context.Context, string, string) envelope.Response[[]nasa.CoronalMassEjection] {
	return envelope.OK([]nasa.CoronalMassEjection{}, meta)
}

type fakeWeather struct{ failSummary bool }

func (fakeWeather) GetSolarWind(context.Context) envelope.Response[spaceweather.SolarWind] {
	return envelope.OK(spaceweather.SolarWind{Speed: 400}, meta)
}

func (fakeWeather) GetGeomagneticActivity(context.Context) envelope.Response[spaceweather.GeomagneticActivity] {
	return envelope.OK(spaceweather.GeomagneticActivity{StormLevel: "G0"}, meta)
}

func (fakeWeather) GetAuroraForecast(context.Context) envelope.Response[spaceweather.AuroraForecast] {
	return envelope.Fail[spaceweather.AuroraForecast](envelope.CodeAuroraForecast, "aurora forecast unavailable", meta)
}

func (fakeWeather) GetThreeDayForecast(context.Context) envelope.Response[spaceweather.ThreeDayForecast] {
	return envelope.OK(spaceweather.ThreeDayForecast{Text: "forecast"}, meta)
}

func (f fakeWeather) GetSpaceWeatherSummary(context.Context) envelope.Response[spaceweather.Summary] {
	if f.failSummary {
		return envelope.FailWithDetails[spaceweather.Summary](envelope.CodeSpaceWeather, "space weather summary unavailable",
			map[string]any{"failed": []string{"aurora"}}, meta)
	}
	return envelope.OK(spaceweather.Summary{}, meta)
}

type fakeISS struct{}

func (fakeISS) GetPosition(context.Context) envelope.Response[iss.Position] {
	return envelope.OK(iss.Position{Latitude: 51.6, Longitude: -12.25, Altitude: 418, Velocity: 27600, Timestamp: 1710540000}, meta)
}

func (fakeISS) GetAstronauts(context.Context) envelope.Response[iss.Crew] {
	return envelope.OK(iss.Crew{Number: 1, People: []iss.Person{{Name: "Oleg Kononenko", Craft: "ISS"}}}, meta)
}

type testAPI struct {
	handler http.Handler
	nasa    *fakeNASA
	reg     *prometheus.Registry
}

func newTestAPI(t *testing.T, weather fakeWeather, health HealthCheck) *testAPI {
	t.Helper()
	reg := prometheus.NewRegistry()
	metrics.NewFetchMetrics(reg).IncCacheHit("nasa")
	n := &fakeNASA{}
	h := NewHandler(Deps{NASA: n, SpaceWeather: weather, ISS: fakeISS{}, Health: health, Gatherer: reg})
	srv := httpx.NewServer(httpx.WithErrorHandler(h.ErrorHandler))
	srv.RegisterRoutes(h.Register)
	return &testAPI{handler: srv.Handler(), nasa: n, reg: reg}
}

func (a *testAPI) get(t *testing.T, target string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if !strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		return rec, nil
	}
	var body map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func errorCode(t *testing.T, body map[string]json.RawMessage) envelope.Code {
	t.Helper()
	var e envelope.Error
	require.NoError(t, json.Unmarshal(body["error"], &e))
	return e.Code
}

func TestISSPositionShape(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, body := a.get(t, "/api/iss/position")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "true", string(body["success"]))
	assert.JSONEq(t, `{"latitude":51.6,"longitude":-12.25,"altitude":418,"velocity":27600,"timestamp":1710540000}`, string(body["data"]))
	_, hasErr := body["error"]
	assert.False(t, hasErr)
}

func TestISSAstronautsShape(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, body := a.get(t, "/api/iss/astronauts")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"number":1,"people":[{"name":"Oleg Kononenko","craft":"ISS"}]}`, string(body["data"]))
}

func TestAPODPassesDate(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, _ := a.get(t, "/api/nasa/apod?date=2024-01-01")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2024-01-01", a.nasa.apodDate)
}

func TestValidationFailures(t *testing.T) {
	cases := []struct {
		target string
		field  string
	}{
		{"/api/nasa/apod?date=01-01-2024", "date"},
		{"/api/nasa/mars-photos?sol=-1", "sol"},
		{"/api/nasa/mars-photos?rover=voyager", "rover"},
		{"/api/nasa/mars-photos?earth_date=yesterday", "earth_date"},
		{"/api/nasa/neo?start_date=2024/01/01", "start_date"},
		{"/api/nasa/earth-imagery?lat=91&lon=0", "lat"},
		{"/api/nasa/earth-imagery?lat=10", "lon"},
		{"/api/nasa/earth-imagery?lat=10&lon=20&dim=wide", "dim"},
	}
	for _, tc := range cases {
		t.Run(tc.target, func(t *testing.T) {
			a := newTestAPI(t, fakeWeather{}, nil)
			rec, body := a.get(t, tc.target)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, envelope.CodeValidation, errorCode(t, body))

			var e struct {
				Details map[string]string `json:"details"`
			}
			require.NoError(t, json.Unmarshal(body["error"], &e))
			assert.Contains(t, e.Details, tc.field)
			_, hasData := body["data"]
			assert.False(t, hasData)
		})
	}
}

func TestMarsPhotosQueryMapping(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, _ := a.get(t, "/api/nasa/mars-photos?rover=curiosity&sol=0&earth_date=2015-06-03&camera=mast")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, a.nasa.mars.Sol)
	assert.Equal(t, 0, *a.nasa.mars.Sol)
	assert.Equal(t, "2015-06-03", a.nasa.mars.EarthDate)
	assert.Equal(t, "MAST", a.nasa.mars.Camera)

	rec, _ = a.get(t, "/api/nasa/mars-photos")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Nil(t, a.nasa.mars.Sol)
}

func TestEarthImageryParsesCoordinates(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, _ := a.get(t, "/api/nasa/earth-imagery?lat=29.78&lon=-95.33&dim=0.1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, nasa.EarthImageryQuery{Lat: 29.78, Lon: -95.33, Dim: 0.1}, a.nasa.earth)
}

func TestDONKIPassesTypeSegment(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, _ := a.get(t, "/api/nasa/donki/cme")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cme", a.nasa.donkiType)
}

func TestAggregateFailureStatus(t *testing.T) {
	a := newTestAPI(t, fakeWeather{failSummary: true}, nil)
	rec, body := a.get(t, "/api/space-weather/summary")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, envelope.CodeSpaceWeather, errorCode(t, body))
	assert.JSONEq(t, `{"code":"SPACE_WEATHER_ERROR","message":"space weather summary unavailable","details":{"failed":["aurora"]}}`, string(body["error"]))

	rec, body = a.get(t, "/api/space-weather/aurora")
	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, envelope.CodeAuroraForecast, errorCode(t, body))
}

func TestSpaceWeatherRoutes(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	for _, path := range []string{"solar-wind", "geomagnetic", "forecast", "summary"} {
		rec, _ := a.get(t, "/api/space-weather/"+path)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestUnknownRouteIsNotFoundEnvelope(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, body := a.get(t, "/api/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, envelope.CodeNotFound, errorCode(t, body))
}

func TestHealthz(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, func(context.Context) error { return nil })
	rec, body := a.get(t, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, string(body["data"]))

	a = newTestAPI(t, fakeWeather{}, func(context.Context) error { return errors.New("connection refused") })
	rec, body = a.get(t, "/healthz")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, envelope.CodeCache, errorCode(t, body))
}

func TestMetricsEndpoint(t *testing.T) {
	a := newTestAPI(t, fakeWeather{}, nil)
	rec, _ := a.get(t, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `spacedash_cache_lookups_total{result="hit",source="nasa"} 1`)
}
