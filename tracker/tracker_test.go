package tracker

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/iss"
)

type fakeBackend struct {
	mu       sync.Mutex
	calls    atomic.Int64
	failPos  bool
	failCrew bool
}

func (f *fakeBackend) setFailures(pos, crew bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPos, f.failCrew = pos, crew
}

func (f *fakeBackend) Position(context.Context) (iss.Position, error) {
	n := f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPos {
		return iss.Position{}, errors.New("position unavailable")
	}
	return iss.Position{Latitude: float64(n), Timestamp: 1710540000}, nil
}

func (f *fakeBackend) Astronauts(context.Context) (iss.Crew, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCrew {
		return iss.Crew{}, errors.New("crew unavailable")
	}
	return iss.Crew{Number: 2, People: []iss.Person{{Name: "A", Craft: "ISS"}, {Name: "B", Craft: "Tiangong"}}}, nil
}

func waitUpdate(t *testing.T, ch <-chan State) State {
	t.Helper()
	select {
	case s := <-ch:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for update")
		return State{}
	}
}

func TestPollerFetchesImmediatelyThenOnInterval(t *testing.T) {
	backend := &fakeBackend{}
	updates := make(chan State, 16)
	p := NewPoller(backend, WithInterval(20*time.Millisecond), WithOnUpdate(func(s State) { updates <- s }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	first := waitUpdate(t, updates)
	if first.Position == nil || first.Crew == nil || first.Err != nil {
		t.Fatalf("unexpected first state %+v", first)
	}
	second := waitUpdate(t, updates)
	if second.Position.Latitude <= first.Position.Latitude {
		t.Fatalf("expected a newer position on the next tick")
	}
}

func TestPollerErrorIsSticky(t *testing.T) {
	backend := &fakeBackend{}
	backend.setFailures(true, false)
	updates := make(chan State, 16)
	p := NewPoller(backend, WithInterval(20*time.Millisecond), WithOnUpdate(func(s State) { updates <- s }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	failed := waitUpdate(t, updates)
	if failed.Err == nil || failed.Position != nil {
		t.Fatalf("expected error without position, got %+v", failed)
	}
	if failed.Crew == nil {
		t.Fatalf("crew should still populate when only position fails")
	}

	backend.setFailures(false, false)
	var recovered State
	for i := 0; i < 10; i++ {
		recovered = waitUpdate(t, updates)
		if recovered.Position != nil {
			break
		}
	}
	if recovered.Position == nil {
		t.Fatalf("later tick should repopulate position")
	}
	if recovered.Err == nil {
		t.Fatalf("error must not be cleared automatically")
	}
}

func TestPollerStopHaltsTicks(t *testing.T) {
	backend := &fakeBackend{}
	updates := make(chan State, 64)
	p := NewPoller(backend, WithInterval(10*time.Millisecond), WithOnUpdate(func(s State) { updates <- s }))

	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUpdate(t, updates)
	p.Stop()

	calls := backend.calls.Load()
	time.Sleep(50 * time.Millisecond)
	if got := backend.calls.Load(); got != calls {
		t.Fatalf("poller kept fetching after Stop: %d -> %d", calls, got)
	}
	p.Stop()
}

func TestPollerStartTwice(t *testing.T) {
	p := NewPoller(&fakeBackend{}, WithInterval(time.Hour))
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPollerRestartsAfterParentContextEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan State, 8)
	p := NewPoller(&fakeBackend{}, WithInterval(time.Hour), WithOnUpdate(func(s State) { updates <- s }))

	if err := p.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	waitUpdate(t, updates)
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for {
		err := p.Start(context.Background())
		if err == nil {
			break
		}
		if !errors.Is(err, ErrAlreadyStarted) {
			t.Fatalf("unexpected start error: %v", err)
		}
		if time.Now().After(deadline) {
			t.Fatalf("poller still marked running after its context ended")
		}
		time.Sleep(5 * time.Millisecond)
	}
	defer p.Stop()
	waitUpdate(t, updates)
}

func TestStopLeavesRunAlone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan State, 4)
	p := NewPoller(&fakeBackend{}, WithInterval(time.Hour), WithOnUpdate(func(s State) { updates <- s }))

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	waitUpdate(t, updates)

	p.Stop()
	if err := p.Start(context.Background()); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted while Run is active, got %v", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
}

func TestRunReturnsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan State, 4)
	p := NewPoller(&fakeBackend{}, WithInterval(time.Hour), WithOnUpdate(func(s State) { updates <- s }))

	errCh := make(chan error, 1)
	go func() { errCh <- p.Run(ctx) }()
	waitUpdate(t, updates)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}
	if p.State().Position == nil {
		t.Fatalf("state should hold the fetched position")
	}
}

func TestOnISS(t *testing.T) {
	people := []iss.Person{{Name: "A", Craft: "ISS"}, {Name: "B", Craft: "Tiangong"}, {Name: "C", Craft: "ISS"}}
	got := OnISS(people)
	if len(got) != 2 || got[0].Name != "A" || got[1].Name != "C" {
		t.Fatalf("unexpected filter result %+v", got)
	}
	if got := OnISS(nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice")
	}
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	state := State{
		Position:  &iss.Position{Latitude: 51.6, Longitude: -12.25, Altitude: 418.2, Velocity: 27600, Timestamp: 1710540000},
		Crew:      &iss.Crew{People: []iss.Person{{Name: "Oleg Kononenko", Craft: "ISS"}, {Name: "Tang Hongbo", Craft: "Tiangong"}}},
		Err:       errors.New("crew unavailable"),
		UpdatedAt: time.Date(2024, 3, 15, 22, 0, 5, 0, time.UTC),
	}
	if err := Render(&buf, state); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"51.6000", "-12.2500", "418.2 km", "CREW ABOARD ISS (1)", "Oleg Kononenko", "crew unavailable", "22:00:05"} {
		if !strings.Contains(out, want) {
			t.Fatalf("render output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Tang Hongbo") {
		t.Fatalf("render should only list ISS crew:\n%s", out)
	}
}

func TestRenderLoading(t *testing.T) {
	var buf bytes.Buffer
	if err := Render(&buf, State{}); err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Count(buf.String(), "loading...") != 2 {
		t.Fatalf("expected loading placeholders:\n%s", buf.String())
	}
}

func TestBackendClientUnwrapsEnvelopes(t *testing.T) {
	ts := httpx.NewTestServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/iss/position":
			_, _ = w.Write([]byte(`{"success":true,"data":{"latitude":1.5,"longitude":2.5,"altitude":400,"velocity":27000,"timestamp":1},"metadata":{"source":"wheretheiss","cached":false}}`))
		case "/api/iss/astronauts":
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"success":false,"error":{"code":"UPSTREAM_ERROR","message":"open-notify down"},"metadata":{"source":"open-notify"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	b := NewBackendClient(httpx.NewClient(httpx.WithBaseURL(ts.BaseURL())))
	pos, err := b.Position(context.Background())
	if err != nil {
		t.Fatalf("position: %v", err)
	}
	if pos.Latitude != 1.5 || pos.Longitude != 2.5 {
		t.Fatalf("unexpected position %+v", pos)
	}

	_, err = b.Astronauts(context.Background())
	var envErr *envelope.Error
	if !errors.As(err, &envErr) || envErr.Code != envelope.CodeUpstream {
		t.Fatalf("expected upstream envelope error, got %v", err)
	}
}
