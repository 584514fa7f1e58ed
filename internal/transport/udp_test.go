package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendReceiveRoundTrip(t *testing.T) {
	a, err := NewUDPTransport("127.0.0.1", 0)
	require.NoError(t, err)
	defer a.Close()

	b, err := NewUDPTransport("127.0.0.1", 0)
	require.NoError(t, err)
	defer b.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	require.NoError(t, a.Send(ctx, []byte("hello"), b.LocalAddr()))

	packet, _, err := b.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(packet))
}

func TestReceiveRespectsDeadline(t *testing.T) {
	a, err := NewUDPTransport("127.0.0.1", 0)
	require.NoError(t, err)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, _, err = a.Receive(ctx)
	require.Error(t, err)
	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)
}

func TestCloseOnNilConnIsNoop(t *testing.T) {
	var tr UDPTransport
	assert.NoError(t, tr.Close())
}
