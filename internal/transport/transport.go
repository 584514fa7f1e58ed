// Package transport provides the network transport abstraction a POA
// policy activates (spec.md §9's "dynamic mixin composition", recast as
// interface composition): one implementation per Mechanism field a POA
// policy can carry. The UDP POA (internal/policy.UDP) activates
// UDPTransport.
package transport

import (
	"context"
	"net"
)

// Transport abstracts the unicast datagram operations a Node needs: send
// a netstring-framed, Assembly-encoded payload to a peer, and receive
// whatever arrives on the bound local socket.
type Transport interface {
	// Send transmits packet to dest.
	Send(ctx context.Context, packet []byte, dest net.Addr) error

	// Receive waits for an incoming packet, respecting context
	// cancellation and any deadline set on ctx.
	Receive(ctx context.Context) (packet []byte, src net.Addr, err error)

	// LocalAddr reports the address the transport is bound to.
	LocalAddr() net.Addr

	// Close releases the underlying socket.
	Close() error
}

// NetworkError wraps a transport-layer fault with the operation that
// produced it.
type NetworkError struct {
	Operation string
	Err       error
}

func (e *NetworkError) Error() string {
	return e.Operation + ": " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}
