package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundish/turbo-ipc/internal/types"
)

func TestParcelDefaultsLoopback(t *testing.T) {
	src := types.Address{Namespace: "ns", User: "u", Service: "svc", Application: "app"}
	msg := Parcel(src, []interface{}{"hello"})

	assert.Equal(t, src, msg.Header.Src)
	assert.Equal(t, src, msg.Header.Dst)
	assert.Nil(t, msg.Header.Via)
	assert.Equal(t, 0, msg.Header.Hop)
	assert.Equal(t, DefaultHMax, msg.Header.HMax)
	assert.NotEmpty(t, msg.Header.ID)
}

func TestDumpsLoadsRoundTrip(t *testing.T) {
	src := types.Address{Namespace: "ns", User: "u", Service: "svc", Application: "sender"}
	dst := types.Address{Namespace: "ns", User: "u", Service: "svc", Application: "receiver"}
	original := Parcel(src, []interface{}{"payload text"}, WithDst(dst), WithHMax(5))

	text, err := Dumps(original)
	require.NoError(t, err)

	decoded, err := Loads(text)
	require.NoError(t, err)

	assert.Equal(t, original.Header, decoded.Header)
	require.Len(t, decoded.Payload, 1)
	assert.Equal(t, "payload text", decoded.Payload[0])
}

func TestReplySwapsSrcDst(t *testing.T) {
	src := types.Address{Namespace: "ns", User: "u", Service: "svc", Application: "a"}
	dst := types.Address{Namespace: "ns", User: "u", Service: "svc", Application: "b"}
	original := Parcel(src, nil, WithDst(dst))

	reply := Reply(original.Header, []interface{}{"ack"})
	assert.Equal(t, dst, reply.Header.Src)
	assert.Equal(t, src, reply.Header.Dst)
	assert.Equal(t, original.Header.ID, reply.Header.ID)
}

func TestLoadsRejectsEmpty(t *testing.T) {
	_, err := Loads("")
	require.Error(t, err)
}
