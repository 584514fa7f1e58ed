// Package message builds the Header/Message wire records and the
// parcel/reply protocol that applications use to originate and answer
// traffic on the fabric.
package message

import (
	"github.com/google/uuid"

	"github.com/tundish/turbo-ipc/internal/types"
	"github.com/tundish/turbo-ipc/internal/wire"
)

// DefaultHMax is the default hop-count ceiling for a new message.
const DefaultHMax = 3

// Header carries routing metadata: source, destination, the most recent
// forwarder (Via), and the hop accounting (Hop/HMax) used for loop-free
// forwarding. ID is stable across forwards; Src and Dst are never
// rewritten in transit; Via is overwritten by each forwarder with its own
// address.
type Header struct {
	ID   string
	Src  types.Address
	Dst  types.Address
	HMax int
	Via  *types.Address
	Hop  int
}

// Message pairs a Header with an arbitrary payload of Assembly-registered
// records.
type Message struct {
	Header  Header
	Payload []interface{}
}

func init() {
	wire.Register(Header{})
}

// options collects the optional parcel/reply parameters.
type options struct {
	dst  *types.Address
	via  *types.Address
	hMax int
}

// Option configures Parcel or Reply.
type Option func(*options)

// WithDst overrides the destination address.
func WithDst(dst types.Address) Option {
	return func(o *options) { o.dst = &dst }
}

// WithVia sets a source-routing override for the first hop.
func WithVia(via types.Address) Option {
	return func(o *options) { o.via = &via }
}

// WithHMax overrides the default hop-count ceiling.
func WithHMax(hMax int) Option {
	return func(o *options) { o.hMax = hMax }
}

func resolve(opts []Option) options {
	o := options{hMax: DefaultHMax}
	for _, fn := range opts {
		fn(&o)
	}
	return o
}

// Parcel constructs a Message addressed from the endpoint src. Dst
// defaults to Src (loopback) when WithDst is not given; Via is absent
// unless WithVia is given; a fresh ID is minted and Hop starts at zero.
func Parcel(src types.Address, payload []interface{}, opts ...Option) Message {
	o := resolve(opts)
	dst := src
	if o.dst != nil {
		dst = *o.dst
	}
	return Message{
		Header: Header{
			ID:   uuid.NewString(),
			Src:  src,
			Dst:  dst,
			HMax: o.hMax,
			Via:  o.via,
			Hop:  0,
		},
		Payload: payload,
	}
}

// Reply constructs a Message answering hdr: it carries the same ID, and
// by default swaps Src/Dst (Src becomes hdr.Dst, Dst becomes hdr.Src).
func Reply(hdr Header, payload []interface{}, opts ...Option) Message {
	o := resolve(opts)
	src := hdr.Dst
	dst := hdr.Src
	if o.dst != nil {
		dst = *o.dst
	}
	return Message{
		Header: Header{
			ID:   hdr.ID,
			Src:  src,
			Dst:  dst,
			HMax: o.hMax,
			Via:  o.via,
			Hop:  0,
		},
		Payload: payload,
	}
}

// Dumps encodes a Message as a newline-joined sequence of Assembly
// records: the header first, then each payload record, matching the wire
// shape of turberfield.ipc.message.dumps.
func Dumps(msg Message) (string, error) {
	parts := make([]string, 0, len(msg.Payload)+1)
	hdr, err := wire.Dumps(msg.Header)
	if err != nil {
		return "", err
	}
	parts = append(parts, hdr)
	for _, item := range msg.Payload {
		enc, err := wire.Dumps(item)
		if err != nil {
			return "", err
		}
		parts = append(parts, enc)
	}
	out := parts[0]
	for _, p := range parts[1:] {
		out += "\n" + p
	}
	return out, nil
}

// Loads decodes a newline-joined sequence of Assembly records back into a
// Message. The first record must decode to a Header.
func Loads(data string) (Message, error) {
	lines := splitLines(data)
	if len(lines) == 0 {
		return Message{}, &wire.FieldMismatch{Name: "Message", Err: errEmpty}
	}
	first, err := wire.Loads(lines[0])
	if err != nil {
		return Message{}, err
	}
	hdr, ok := first.(Header)
	if !ok {
		return Message{}, &wire.FieldMismatch{Name: "Header", Err: errNotHeader}
	}
	payload := make([]interface{}, 0, len(lines)-1)
	for _, line := range lines[1:] {
		obj, err := wire.Loads(line)
		if err != nil {
			return Message{}, err
		}
		payload = append(payload, obj)
	}
	return Message{Header: hdr, Payload: payload}, nil
}

func splitLines(data string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' {
			lines = append(lines, data[start:i])
			start = i + 1
		}
	}
	lines = append(lines, data[start:])
	return lines
}
