// Package tracker polls the backend for the ISS position and crew on a fixed
// interval and renders the latest state.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/adeilh/spacedash/iss"
	"github.com/adeilh/spacedash/logger"
)

const DefaultInterval = 5 * time.Second

var ErrAlreadyStarted = errors.New("tracker: poller already started")

// State is a snapshot of what the poller has seen. Err is sticky: once a
// fetch fails it stays set, while later successful ticks still refresh the data.
type State struct {
	Position  *iss.Position
	Crew      *iss.Crew
	Err       error
	UpdatedAt time.Time
}

type Poller struct {
	backend  Backend
	interval time.Duration
	log      *logger.Logger
	onUpdate func(State)
	now      func() time.Time

	mu      sync.Mutex
	state   State
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

type Option func(*Poller)

func WithInterval(d time.Duration) Option {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(p *Poller) {
		if log != nil {
			p.log = log
		}
	}
}

// WithOnUpdate registers a callback invoked with a snapshot after every tick.
func WithOnUpdate(fn func(State)) Option {
	return func(p *Poller) { p.onUpdate = fn }
}

func NewPoller(backend Backend, opts ...Option) *Poller {
	p := &Poller{
		backend:  backend,
		interval: DefaultInterval,
		log:      logger.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Start runs the poller in the background until ctx is cancelled or Stop is called.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.running = true
	p.cancel = cancel
	p.done = done
	go func() {
		defer close(done)
		defer p.finish(done)
		defer cancel()
		_ = p.loop(ctx)
	}()
	return nil
}

// finish releases the running slot held by the background loop owning done.
func (p *Poller) finish(done chan struct{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.done != done {
		return
	}
	p.running = false
	p.cancel, p.done = nil, nil
}

// Stop cancels a poller launched by Start and waits for its goroutine to
// exit. A poller driven by Run is stopped through its context instead.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run polls in the calling goroutine until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return ErrAlreadyStarted
	}
	p.running = true
	p.mu.Unlock()
	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()
	return p.loop(ctx)
}

func (p *Poller) loop(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	pos, posErr := p.backend.Position(ctx)
	crew, crewErr := p.backend.Astronauts(ctx)
	if ctx.Err() != nil {
		return
	}

	p.mu.Lock()
	if posErr == nil {
		p.state.Position = &pos
	} else {
		p.state.Err = posErr
	}
	if crewErr == nil {
		p.state.Crew = &crew
	} else {
		p.state.Err = crewErr
	}
	p.state.UpdatedAt = p.now()
	snapshot := p.state
	p.mu.Unlock()

	if posErr != nil {
		p.log.Error(ctx, "tracker.position_failed", posErr)
	}
	if crewErr != nil {
		p.log.Error(ctx, "tracker.astronauts_failed", crewErr)
	}
	if p.onUpdate != nil {
		p.onUpdate(snapshot)
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// OnISS keeps the people whose craft is the ISS.
func OnISS(people []iss.Person) []iss.Person {
	out := make([]iss.Person, 0, len(people))
	for _, person := range people {
		if person.Craft == "ISS" {
			out = append(out, person)
		}
	}
	return out
}
