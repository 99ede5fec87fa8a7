// Package iss reports the station's live position and the people in orbit.
package iss

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/adeilh/spacedash/cache"
	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/fetch"
)

const (
	PositionSource = "wheretheiss"
	CrewSource     = "open-notify"

	// NORADID is the ISS catalogue number used by wheretheiss.at.
	NORADID = 25544
)

// Position is the sub-satellite point. Altitude is km and Velocity km/h.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude"`
	Velocity  float64 `json:"velocity"`
	Timestamp int64   `json:"timestamp"`
}

type Person struct {
	Name  string `json:"name"`
	Craft string `json:"craft"`
}

type Crew struct {
	Number int      `json:"number"`
	People []Person `json:"people"`
}

type astrosResponse struct {
	Message string   `json:"message"`
	Number  int      `json:"number"`
	People  []Person `json:"people"`
}

type TTLs struct {
	Position   time.Duration
	Astronauts time.Duration
}

type Client struct {
	position fetch.Getter
	crew     fetch.Getter
	ttl      TTLs
}

// NewClient takes one getter per upstream: position comes from
// wheretheiss.at and crew from open-notify.
func NewClient(position, crew fetch.Getter, ttl TTLs) *Client {
	if ttl.Position <= 0 {
		ttl.Position = 4 * time.Second
	}
	if ttl.Astronauts <= 0 {
		ttl.Astronauts = time.Hour
	}
	return &Client{position: position, crew: crew, ttl: ttl}
}

func (c *Client) GetPosition(ctx context.Context) envelope.Response[Position] {
	return fetch.Get(ctx, c.position, PositionSource, fetch.Request{
		Path: fmt.Sprintf("/v1/satellites/%d", NORADID),
		Key:  cache.Key("iss", "position"),
		TTL:  c.ttl.Position,
	}, fetch.JSON[Position]())
}

func (c *Client) GetAstronauts(ctx context.Context) envelope.Response[Crew] {
	return fetch.Get(ctx, c.crew, CrewSource, fetch.Request{
		Path: "/astros.json",
		Key:  cache.Key("iss", "astronauts"),
		TTL:  c.ttl.Astronauts,
	}, decodeCrew)
}

func decodeCrew(body []byte) (Crew, error) {
	var resp astrosResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Crew{}, err
	}
	if resp.Message != "" && resp.Message != "success" {
		return Crew{}, fmt.Errorf("iss: astros message %q", resp.Message)
	}
	people := resp.People
	if people == nil {
		people = []Person{}
	}
	return Crew{Number: resp.Number, People: people}, nil
}
