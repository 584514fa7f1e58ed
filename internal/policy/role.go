package policy

import "github.com/tundish/turbo-ipc/internal/wire"

// RX and TX carry the transport-timing parameters for future reliability
// logic: the maximum PDU gap, acknowledgement wait, and retransmission
// window. Both variants share the same shape as the Python original, which
// keeps RX and TX distinct despite identical fields so that receive-side
// and transmit-side timing can diverge later without a wire-format change.
type RX struct {
	TMaxPdu float64
	TMaxAck float64
	TMaxRtx float64
}

type TX struct {
	TMaxPdu float64
	TMaxAck float64
	TMaxRtx float64
}

func init() {
	wire.Register(RX{}, TX{})
}

// Default timing values, matching Role.RX/Role.TX in policy.py.
const (
	defaultTMaxPdu = 5.0
	defaultTMaxAck = 0.5
	defaultTMaxRtx = 11.0
)

// NewRX returns an RX policy with the default timing parameters.
func NewRX() RX {
	return RX{TMaxPdu: defaultTMaxPdu, TMaxAck: defaultTMaxAck, TMaxRtx: defaultTMaxRtx}
}

// NewTX returns a TX policy with the default timing parameters.
func NewTX() TX {
	return TX{TMaxPdu: defaultTMaxPdu, TMaxAck: defaultTMaxAck, TMaxRtx: defaultTMaxRtx}
}
