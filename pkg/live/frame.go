package live

import (
	"bytes"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/vango-dev/terse/pkg/surface"
)

// FrameType identifies a server frame.
type FrameType uint8

const (
	// FrameInit is the first frame of a session.
	FrameInit FrameType = 0x01
	// FramePatches answers an event.
	FramePatches FrameType = 0x02
	// FrameError reports a failed event or an uncaught update error.
	FrameError FrameType = 0x03
)

func (t FrameType) String() string {
	switch t {
	case FrameInit:
		return "init"
	case FramePatches:
		return "patches"
	case FrameError:
		return "error"
	default:
		return fmt.Sprintf("Unknown(%d)", t)
	}
}

// Frame is a server-to-client message.
type Frame struct {
	Type    FrameType       `msgpack:"t"`
	Session string          `msgpack:"s,omitempty"`
	Seq     uint64          `msgpack:"q"`
	Patches []surface.Patch `msgpack:"p,omitempty"`
	Error   *FrameErr       `msgpack:"e,omitempty"`
}

// FrameErr is the error payload of a frame.
type FrameErr struct {
	Code    string `msgpack:"c,omitempty"`
	Message string `msgpack:"m"`
}

// Event is a client-to-server message.
type Event struct {
	Node     uint64 `msgpack:"n"`
	Type     string `msgpack:"t"`
	Value    any    `msgpack:"v,omitempty"`
	HasValue bool   `msgpack:"h,omitempty"`
	Key      string `msgpack:"k,omitempty"`
}

// EncodeFrame encodes f for the wire.
func EncodeFrame(f Frame) ([]byte, error) {
	return msgpack.Marshal(&f)
}

// DecodeFrame decodes a server frame.
func DecodeFrame(b []byte) (Frame, error) {
	var f Frame
	err := msgpack.Unmarshal(b, &f)
	return f, err
}

// EncodeEvent encodes ev for the wire.
func EncodeEvent(ev Event) ([]byte, error) {
	return msgpack.Marshal(&ev)
}

// DecodeEvent decodes a client event. Numbers in the value decode as
// float64, matching store values.
func DecodeEvent(b []byte) (Event, error) {
	var ev Event
	dec := msgpack.NewDecoder(bytes.NewReader(b))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&ev); err != nil {
		return Event{}, err
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event has no type")
	}
	ev.Value = floats(ev.Value)
	return ev, nil
}

func floats(v any) any {
	switch x := v.(type) {
	case int64:
		return float64(x)
	case uint64:
		return float64(x)
	case float32:
		return float64(x)
	case []any:
		for i := range x {
			x[i] = floats(x[i])
		}
	case map[string]any:
		for k := range x {
			x[k] = floats(x[k])
		}
	}
	return v
}
