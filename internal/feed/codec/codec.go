// Package codec decodes invoice lifecycle events from feed message bodies.
package codec

import (
	"fmt"
	"mime"
	"strings"

	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
)

const (
	ContentTypeJSON     = "application/json"
	ContentTypeProtobuf = "application/x-protobuf"
)

// Codec converts between message bodies and lifecycle events.
// Decode failures are *revenue.ValidationError, so the message is never redelivered.
type Codec interface {
	ContentType() string
	Decode(body []byte) (revenue.LifecycleEvent, error)
	Encode(evt revenue.LifecycleEvent) ([]byte, error)
}

// Registry picks a codec by content type. An empty content type selects the default.
type Registry struct {
	codecs   map[string]Codec
	fallback Codec
}

// NewRegistry registers codecs; the first one is the default.
func NewRegistry(def Codec, others ...Codec) *Registry {
	r := &Registry{codecs: make(map[string]Codec), fallback: def}
	for _, c := range append([]Codec{def}, others...) {
		r.codecs[c.ContentType()] = c
	}
	return r
}

// For returns the codec registered for contentType. Parameters such as
// "; charset=utf-8" are ignored.
func (r *Registry) For(contentType string) (Codec, error) {
	if strings.TrimSpace(contentType) == "" {
		return r.fallback, nil
	}

	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return nil, revenue.NewValidationError("content_type", fmt.Sprintf("malformed %q", contentType))
	}
	c, ok := r.codecs[mediaType]
	if !ok {
		return nil, revenue.NewValidationError("content_type", fmt.Sprintf("unsupported %q", mediaType))
	}
	return c, nil
}

// Decode is For followed by Decode.
func (r *Registry) Decode(contentType string, body []byte) (revenue.LifecycleEvent, error) {
	c, err := r.For(contentType)
	if err != nil {
		return revenue.LifecycleEvent{}, err
	}
	return c.Decode(body)
}
