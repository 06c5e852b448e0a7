package codec

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/revenue-engine/internal/api/v1"
	"github.com/aevon-lab/revenue-engine/internal/core/revenue"
	"github.com/bufbuild/protocompile"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"
)

const (
	protoFileName    = "invoice_event.proto"
	protoMessageName = "revenue.v1.InvoiceEvent"
)

//go:embed invoice_event.proto
var invoiceEventProto string

// Protobuf decodes revenue.v1.InvoiceEvent messages. The descriptor is compiled
// from the embedded .proto at construction, so no generated code is needed.
type Protobuf struct {
	event protoreflect.MessageDescriptor
}

// NewProtobuf compiles the embedded schema.
func NewProtobuf(ctx context.Context) (*Protobuf, error) {
	compiler := protocompile.Compiler{
		Resolver: protocompile.WithStandardImports(&protocompile.SourceResolver{
			Accessor: protocompile.SourceAccessorFromMap(map[string]string{
				protoFileName: invoiceEventProto,
			}),
		}),
		SourceInfoMode: protocompile.SourceInfoNone,
	}

	files, err := compiler.Compile(ctx, protoFileName)
	if err != nil {
		return nil, fmt.Errorf("failed to compile %s: %w", protoFileName, err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no files compiled")
	}

	desc := files[0].Messages().ByName(protoreflect.FullName(protoMessageName).Name())
	if desc == nil {
		return nil, fmt.Errorf("%s not found in %s", protoMessageName, protoFileName)
	}
	return &Protobuf{event: desc}, nil
}

func (p *Protobuf) ContentType() string { return ContentTypeProtobuf }

func (p *Protobuf) Decode(body []byte) (revenue.LifecycleEvent, error) {
	msg := dynamicpb.NewMessage(p.event)
	if err := proto.Unmarshal(body, msg); err != nil {
		return revenue.LifecycleEvent{}, revenue.NewValidationError("body", fmt.Sprintf("malformed protobuf: %v", err))
	}

	fields := p.event.Fields()
	wire := v1.InvoiceEvent{
		EventID:   msg.Get(fields.ByName("event_id")).String(),
		Operation: msg.Get(fields.ByName("operation")).String(),
	}

	if fd := fields.ByName("occurred_at"); msg.Has(fd) {
		ts := msg.Get(fd).Message()
		tf := ts.Descriptor().Fields()
		at := time.Unix(ts.Get(tf.ByName("seconds")).Int(), ts.Get(tf.ByName("nanos")).Int()).UTC()
		wire.OccurredAt = &at
	}
	if fd := fields.ByName("current"); msg.Has(fd) {
		wire.Current = snapshotFromMessage(msg.Get(fd).Message())
	}
	if fd := fields.ByName("previous"); msg.Has(fd) {
		wire.Previous = snapshotFromMessage(msg.Get(fd).Message())
	}

	return wire.ToDomain()
}

func (p *Protobuf) Encode(evt revenue.LifecycleEvent) ([]byte, error) {
	msg := dynamicpb.NewMessage(p.event)
	fields := p.event.Fields()

	msg.Set(fields.ByName("event_id"), protoreflect.ValueOfString(evt.EventID))
	msg.Set(fields.ByName("operation"), protoreflect.ValueOfString(string(evt.Operation)))

	if !evt.OccurredAt.IsZero() {
		fd := fields.ByName("occurred_at")
		ts := msg.NewField(fd).Message()
		tf := ts.Descriptor().Fields()
		ts.Set(tf.ByName("seconds"), protoreflect.ValueOfInt64(evt.OccurredAt.Unix()))
		ts.Set(tf.ByName("nanos"), protoreflect.ValueOfInt32(int32(evt.OccurredAt.Nanosecond())))
		msg.Set(fd, protoreflect.ValueOfMessage(ts))
	}

	setSnapshot(msg, fields.ByName("current"), evt.Current)
	if evt.Previous != nil {
		setSnapshot(msg, fields.ByName("previous"), *evt.Previous)
	}

	return proto.Marshal(msg)
}

func snapshotFromMessage(m protoreflect.Message) *v1.InvoiceSnapshot {
	f := m.Descriptor().Fields()
	return &v1.InvoiceSnapshot{
		ID:     m.Get(f.ByName("id")).String(),
		Amount: json.Number(strconv.FormatInt(m.Get(f.ByName("amount")).Int(), 10)),
		Status: m.Get(f.ByName("status")).String(),
		Date:   strings.TrimSpace(m.Get(f.ByName("date")).String()),
	}
}

func setSnapshot(msg *dynamicpb.Message, fd protoreflect.FieldDescriptor, s revenue.InvoiceSnapshot) {
	sm := msg.NewField(fd).Message()
	f := sm.Descriptor().Fields()
	sm.Set(f.ByName("id"), protoreflect.ValueOfString(s.ID))
	sm.Set(f.ByName("amount"), protoreflect.ValueOfInt64(s.Amount))
	sm.Set(f.ByName("status"), protoreflect.ValueOfString(string(s.Status)))
	sm.Set(f.ByName("date"), protoreflect.ValueOfString(s.Period.String()))
	msg.Set(fd, protoreflect.ValueOfMessage(sm))
}
