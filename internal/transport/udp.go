package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
)

// bufferSize bounds one UDP datagram; the netstring decoder re-frames
// whatever arrives, so this only needs to exceed any practical parcel.
const bufferSize = 65536

var bufferPool = sync.Pool{
	New: func() interface{} {
		b := make([]byte, bufferSize)
		return &b
	},
}

// UDPTransport implements Transport over a unicast UDP socket bound to
// one local (addr, port) pair — the mechanism a policy.UDP POA activates
// (spec.md §4.7's "bind, mix in the transport named by the activated POA
// policy's Mechanism field").
type UDPTransport struct {
	conn net.PacketConn
}

// NewUDPTransport binds a unicast UDP socket at addr:port.
func NewUDPTransport(addr string, port int) (*UDPTransport, error) {
	laddr := &net.UDPAddr{IP: net.ParseIP(addr), Port: port}
	conn, err := net.ListenUDP("udp4", laddr)
	if err != nil {
		return nil, &NetworkError{Operation: "bind socket", Err: err}
	}
	return &UDPTransport{conn: conn}, nil
}

// Send transmits packet to dest, honouring ctx cancellation.
func (t *UDPTransport) Send(ctx context.Context, packet []byte, dest net.Addr) error {
	select {
	case <-ctx.Done():
		return &NetworkError{Operation: "send", Err: ctx.Err()}
	default:
	}

	n, err := t.conn.WriteTo(packet, dest)
	if err != nil {
		return &NetworkError{Operation: "send", Err: err}
	}
	if n != len(packet) {
		return &NetworkError{Operation: "send", Err: fmt.Errorf("partial write: %d/%d bytes", n, len(packet))}
	}
	return nil
}

// Receive waits for one datagram, respecting ctx's deadline and
// cancellation.
func (t *UDPTransport) Receive(ctx context.Context) ([]byte, net.Addr, error) {
	select {
	case <-ctx.Done():
		return nil, nil, &NetworkError{Operation: "receive", Err: ctx.Err()}
	default:
	}

	if deadline, ok := ctx.Deadline(); ok {
		if err := t.conn.SetReadDeadline(deadline); err != nil {
			return nil, nil, &NetworkError{Operation: "set read deadline", Err: err}
		}
	}

	bufPtr := bufferPool.Get().(*[]byte)
	defer bufferPool.Put(bufPtr)
	buffer := *bufPtr

	n, src, err := t.conn.ReadFrom(buffer)
	if err != nil {
		return nil, nil, &NetworkError{Operation: "receive", Err: err}
	}

	result := make([]byte, n)
	copy(result, buffer[:n])
	return result, src, nil
}

// LocalAddr reports the bound local address.
func (t *UDPTransport) LocalAddr() net.Addr {
	return t.conn.LocalAddr()
}

// Close releases the socket.
func (t *UDPTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	if err := t.conn.Close(); err != nil {
		return &NetworkError{Operation: "close socket", Err: err}
	}
	return nil
}
