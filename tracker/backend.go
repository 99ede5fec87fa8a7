package tracker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/adeilh/spacedash/envelope"
	"github.com/adeilh/spacedash/httpx"
	"github.com/adeilh/spacedash/iss"
)

// Backend is the pair of endpoints the poller reads.
type Backend interface {
	Position(ctx context.Context) (iss.Position, error)
	Astronauts(ctx context.Context) (iss.Crew, error)
}

// BackendClient reads the spacedash API over HTTP.
type BackendClient struct {
	client *httpx.Client
}

func NewBackendClient(client *httpx.Client) *BackendClient {
	return &BackendClient{client: client}
}

func (b *BackendClient) Position(ctx context.Context) (iss.Position, error) {
	return getEnvelope[iss.Position](ctx, b.client, "/api/iss/position")
}

func (b *BackendClient) Astronauts(ctx context.Context) (iss.Crew, error) {
	return getEnvelope[iss.Crew](ctx, b.client, "/api/iss/astronauts")
}

type wireEnvelope[T any] struct {
	Success bool            `json:"success"`
	Data    T               `json:"data"`
	Error   *envelope.Error `json:"error"`
}

// getEnvelope unwraps the backend envelope. A failure envelope is returned
// as its *envelope.Error even when the HTTP status is not 2xx.
func getEnvelope[T any](ctx context.Context, client *httpx.Client, path string) (T, error) {
	var zero T
	resp, err := client.Get(ctx, path, nil)
	if resp == nil || len(resp.Body()) == 0 {
		if err == nil {
			err = fmt.Errorf("tracker: empty response from %s", path)
		}
		return zero, err
	}
	var env wireEnvelope[T]
	if decodeErr := json.Unmarshal(resp.Body(), &env); decodeErr != nil {
		if err != nil {
			return zero, err
		}
		return zero, fmt.Errorf("tracker: decode %s: %w", path, decodeErr)
	}
	if !env.Success {
		if env.Error != nil {
			return zero, env.Error
		}
		return zero, fmt.Errorf("tracker: %s failed without error", path)
	}
	return env.Data, nil
}
