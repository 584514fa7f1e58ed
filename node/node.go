// Package node implements the UDP endpoint actor of spec.md §4.7: a
// cooperative, event-driven owner of one POA that decodes inbound
// datagrams, asks the router for the next hop, and either re-emits the
// result or surfaces it to the owning application. Modelled on
// joshuafuller/beacon's goroutine-per-concern responder architecture,
// replacing node.py's asyncio DatagramProtocol with an
// errgroup-supervised pair of goroutines.
package node

import (
	"context"
	"net"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/tundish/turbo-ipc/internal/flow"
	"github.com/tundish/turbo-ipc/internal/log"
	"github.com/tundish/turbo-ipc/internal/message"
	"github.com/tundish/turbo-ipc/internal/netstring"
	"github.com/tundish/turbo-ipc/internal/policy"
	"github.com/tundish/turbo-ipc/internal/router"
	"github.com/tundish/turbo-ipc/internal/transport"
	"github.com/tundish/turbo-ipc/internal/types"
)

// queueDepth bounds the down/up channels; a node that can't keep pace
// with its application or its network applies backpressure rather than
// growing without bound.
const queueDepth = 64

// poaPolicyName is the only POA mechanism this package implements.
const poaPolicyName = "udp"

// Node owns one UDP POA and the forwarding decisions that flow across
// it. Up surfaces messages addressed to this endpoint; Down accepts
// messages this endpoint originates or is asked to relay.
type Node struct {
	token     flow.Resource
	transport transport.Transport
	up        chan message.Message
	down      chan message.Message
}

// CreateUDPNode implements the construction sequence of spec.md §4.7:
// find the endpoint's udp POA policy, or create a flow holding a udp POA
// and an application routing policy when there is none, bind a UDP
// transport to the POA, and return a Node ready to Run.
func CreateUDPNode(token flow.Resource) (*Node, error) {
	ref, err := findOrCreateUDP(token)
	if err != nil {
		return nil, err
	}
	value, err := flow.Inspect(*ref)
	if err != nil {
		return nil, err
	}
	udp, ok := value.(policy.UDP)
	if !ok {
		return nil, &ErrNoPOA{Application: token.Application}
	}

	t, err := transport.NewUDPTransport(udp.Addr, udp.Port)
	if err != nil {
		return nil, err
	}

	return &Node{
		token:     token,
		transport: t,
		up:        make(chan message.Message, queueDepth),
		down:      make(chan message.Message, queueDepth),
	}, nil
}

// ErrNoPOA is returned when a udp POA policy could not be found or
// created for an application.
type ErrNoPOA struct {
	Application string
}

func (e *ErrNoPOA) Error() string {
	return "node: no udp POA available for application " + e.Application
}

func findOrCreateUDP(token flow.Resource) (*flow.Resource, error) {
	refs, err := flow.Find(token, token.Application, poaPolicyName)
	if err != nil {
		return nil, err
	}
	if len(refs) > 0 {
		return &refs[0], nil
	}
	created, err := flow.Create(token, flow.Request{
		POA:     []string{poaPolicyName},
		Routing: []string{"application"},
	})
	if err != nil {
		return nil, err
	}
	if len(created) == 0 || created[0] == nil {
		return nil, &ErrNoPOA{Application: token.Application}
	}
	return created[0], nil
}

// Up returns the channel of messages delivered to this endpoint.
func (n *Node) Up() <-chan message.Message {
	return n.up
}

// Send enqueues msg for hop evaluation and onward transmission or local
// delivery.
func (n *Node) Send(ctx context.Context, msg message.Message) error {
	select {
	case n.down <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run drives the node's inbound and outbound loops until ctx is
// cancelled, then closes the transport and the up channel.
func (n *Node) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return n.inbound(ctx) })
	g.Go(func() error { return n.outbound(ctx) })

	err := g.Wait()
	close(n.up)
	_ = n.transport.Close()
	return err
}

func (n *Node) inbound(ctx context.Context) error {
	dec := netstring.NewDecoder()
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		packet, _, err := n.transport.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.WithComponent("node").Warn().Err(err).Msg("receive failed")
			continue
		}

		data := packet
		for {
			text, ok, ferr := dec.Feed(data)
			data = nil
			if ferr != nil {
				log.WithComponent("node").Warn().Err(ferr).Msg("framing fault")
				continue
			}
			if !ok {
				break
			}
			n.handle(ctx, text)
		}
	}
}

func (n *Node) handle(ctx context.Context, text string) {
	msg, err := message.Loads(text)
	if err != nil {
		log.WithComponent("node").Warn().Err(err).Msg("failed to decode message")
		return
	}
	n.route(ctx, msg)
}

func (n *Node) outbound(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-n.down:
			n.route(ctx, msg)
		}
	}
}

// route applies the hop decision to msg and either transmits the
// rewritten message, surfaces it to Up, or drops it, per spec.md §4.6/§9.
func (n *Node) route(ctx context.Context, msg message.Message) {
	poa, next, err := router.Hop(n.token, msg, poaPolicyName)
	if err != nil {
		log.WithComponent("node").Warn().Err(err).Msg("hop failed")
		return
	}
	if next == nil {
		return // expired, already logged by router.Hop
	}
	if poa == nil {
		here := types.Address{
			Namespace: n.token.Namespace, User: n.token.User,
			Service: n.token.Service, Application: n.token.Application,
		}
		if next.Header.Dst != here {
			return // no route, already logged by router.Hop
		}
		select {
		case n.up <- *next:
		case <-ctx.Done():
		}
		return
	}

	encoded, err := message.Dumps(*next)
	if err != nil {
		log.WithComponent("node").Warn().Err(err).Msg("failed to encode message")
		return
	}
	dest := &net.UDPAddr{IP: net.ParseIP(poa.Addr), Port: poa.Port}
	if err := n.transport.Send(ctx, netstring.Encode(encoded), dest); err != nil {
		log.WithComponent("node").Warn().Err(err).
			Str("dest", net.JoinHostPort(poa.Addr, strconv.Itoa(poa.Port))).
			Msg("send failed")
	}
}
