package policy

import (
	"math/rand"

	"github.com/tundish/turbo-ipc/internal/wire"
)

// DefaultPool is the UDP ephemeral port range used for pooled allocation,
// matching the Python policy.py default of slice(49152, 65535).
var DefaultPool = [2]int{49152, 65535}

// UDP is the archetypal point-of-attachment policy: a transport binding
// consisting of an address and a port. Mechanism names the transport
// implementation this POA activates (see package node), the Go stand-in
// for the Python original's dynamic mixin ("mechanism =
// turberfield.ipc.node.UDPService").
type UDP struct {
	Addr      string
	Port      int
	Mechanism string
}

func init() {
	wire.Register(UDP{})
}

// NewUDP default-constructs a UDP POA at the low end of pool, used only
// when no allocation is required (the catalogue always calls AllocateUDP
// in practice, but New must exist for the Constructor contract).
func NewUDP(pool [2]int) UDP {
	return UDP{Addr: "127.0.0.1", Port: pool[0], Mechanism: "udp"}
}

// AllocateUDP returns a UDP value whose (Addr, Port) pair does not collide
// with any policy in existing, picking an arbitrary free port from pool.
func AllocateUDP(existing []Policy, pool [2]int) Policy {
	taken := make(map[int]bool, len(existing))
	for _, p := range existing {
		if u, ok := p.(UDP); ok {
			taken[u.Port] = true
		}
	}
	span := pool[1] - pool[0] + 1
	if span <= 0 {
		span = 1
	}
	start := rand.Intn(span)
	for i := 0; i < span; i++ {
		port := pool[0] + (start+i)%span
		if !taken[port] {
			return UDP{Addr: "127.0.0.1", Port: port, Mechanism: "udp"}
		}
	}
	// Pool exhausted: return the start port anyway; the caller's socket
	// bind will surface the collision (spec.md §5: "duplicates are
	// detected at socket-bind time").
	return UDP{Addr: "127.0.0.1", Port: pool[0], Mechanism: "udp"}
}
