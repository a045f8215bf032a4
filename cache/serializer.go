package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts values to and from the payload stored in a Backend.
type Serializer interface {
	Name() string
	Marshal(v any) ([]byte, error)
	Unmarshal(data []byte, v any) error
}

const (
	SerializerJSON    = "json"
	SerializerMsgpack = "msgpack"
	SerializerCBOR    = "cbor"
)

// NewSerializer returns the serializer registered under name. An empty name
// selects JSON.
func NewSerializer(name string) (Serializer, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SerializerJSON:
		return JSONSerializer{}, nil
	case SerializerMsgpack:
		return MsgpackSerializer{}, nil
	case SerializerCBOR:
		return NewCBORSerializer()
	default:
		return nil, fmt.Errorf("cache: unknown serializer %q", name)
	}
}

// JSONSerializer stores values as JSON using the struct json tags.
type JSONSerializer struct{}

func (JSONSerializer) Name() string { return SerializerJSON }

func (JSONSerializer) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (JSONSerializer) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// MsgpackSerializer stores values as MessagePack. Field names follow the json
// tags so payloads stay readable across serializers. Timestamps decode in UTC,
// the zone every other serializer and the store hand back.
type MsgpackSerializer struct{}

func init() {
	msgpack.Register(time.Time{}, nil, decodeUTCTime)
}

func decodeUTCTime(d *msgpack.Decoder, v reflect.Value) error {
	tm, err := d.DecodeTime()
	if err != nil {
		return err
	}
	v.Set(reflect.ValueOf(tm.UTC()))
	return nil
}

func (MsgpackSerializer) Name() string { return SerializerMsgpack }

func (MsgpackSerializer) Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (MsgpackSerializer) Unmarshal(data []byte, v any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	if err := dec.Decode(v); err != nil {
		return err
	}
	// A bare *time.Time skips the registered decoder.
	if tm, ok := v.(*time.Time); ok {
		*tm = tm.UTC()
	}
	return nil
}

// CBORSerializer stores values as deterministic CBOR with RFC 3339 timestamps.
type CBORSerializer struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

func NewCBORSerializer() (*CBORSerializer, error) {
	eo := cbor.CoreDetEncOptions()
	eo.Time = cbor.TimeRFC3339Nano
	enc, err := eo.EncMode()
	if err != nil {
		return nil, fmt.Errorf("cache: cbor encoder: %w", err)
	}
	dec, err := cbor.DecOptions{}.DecMode()
	if err != nil {
		return nil, fmt.Errorf("cache: cbor decoder: %w", err)
	}
	return &CBORSerializer{enc: enc, dec: dec}, nil
}

func (s *CBORSerializer) Name() string { return SerializerCBOR }

func (s *CBORSerializer) Marshal(v any) ([]byte, error) { return s.enc.Marshal(v) }

func (s *CBORSerializer) Unmarshal(data []byte, v any) error { return s.dec.Unmarshal(data, v) }
