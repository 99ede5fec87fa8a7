package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"time"

	"github.com/adeilh/spacedash/envelope"
)

// Decoder turns a raw upstream body into a typed payload.
type Decoder[T any] func([]byte) (T, error)

// JSON decodes a JSON body. An empty body decodes to the zero value, which
// some upstreams (DONKI) send instead of an empty array.
func JSON[T any]() Decoder[T] {
	return func(body []byte) (T, error) {
		var v T
		if len(bytes.TrimSpace(body)) == 0 {
			return v, nil
		}
		err := json.Unmarshal(body, &v)
		return v, err
	}
}

// Text returns the body verbatim.
func Text(body []byte) (string, error) {
	return string(body), nil
}

// Get runs req through g and decodes the body into an envelope. Transport
// failures become UPSTREAM_ERROR and decode failures DECODE_ERROR.
func Get[T any](ctx context.Context, g Getter, source string, req Request, decode Decoder[T]) envelope.Response[T] {
	res, err := g.CachedGet(ctx, req)
	if err != nil {
		meta := envelope.Metadata{Source: source, Timestamp: time.Now().UTC()}
		return envelope.Fail[T](envelope.CodeUpstream, err.Error(), meta)
	}
	meta := envelope.Metadata{Source: source, Timestamp: res.FetchedAt, Cached: res.Cached}
	v, err := decode(res.Body)
	if err != nil {
		return envelope.Fail[T](envelope.CodeDecode, "decode "+req.Path+": "+err.Error(), meta)
	}
	return envelope.OK(v, meta)
}
