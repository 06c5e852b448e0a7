package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	v1 "github.com/aevon-lab/revenue-engine/internal/api/v1"
	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
)

// JSON handles the v1.InvoiceEvent wire shape.
type JSON struct{}

func (JSON) ContentType() string { return ContentTypeJSON }

func (JSON) Decode(body []byte) (revenue.LifecycleEvent, error) {
	var wire v1.InvoiceEvent
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return revenue.LifecycleEvent{}, revenue.NewValidationError("body", fmt.Sprintf("malformed JSON: %v", err))
	}
	return wire.ToDomain()
}

func (JSON) Encode(evt revenue.LifecycleEvent) ([]byte, error) {
	return json.Marshal(v1.FromDomain(evt))
}
