package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tundish/turbo-ipc/internal/policy"
)

func newTestToken(t *testing.T) Resource {
	t.Helper()
	root := t.TempDir()
	tok, err := NewToken(fmt.Sprintf("file://%s", root), "test", "demo.web")
	require.NoError(t, err)
	return tok
}

func TestNewTokenCreatesEndpointDirectory(t *testing.T) {
	tok := newTestToken(t)
	assert.DirExists(t, endpointDir(tok))
	assert.Equal(t, "turberfield", tok.Namespace)
}

func TestNewTokenRejectsNonFileScheme(t *testing.T) {
	_, err := NewToken("http://example.invalid", "test", "demo.web")
	require.Error(t, err)
	var scheme *ErrUnsupportedScheme
	assert.ErrorAs(t, err, &scheme)
}

func TestCreateAllocatesUDPPOA(t *testing.T) {
	tok := newTestToken(t)

	refs, err := Create(tok, Request{POA: []string{"udp"}})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.NotNil(t, refs[0])

	value, err := Inspect(*refs[0])
	require.NoError(t, err)
	udp, ok := value.(policy.UDP)
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", udp.Addr)
	assert.GreaterOrEqual(t, udp.Port, policy.DefaultPool[0])
	assert.LessOrEqual(t, udp.Port, policy.DefaultPool[1])

	second, err := Create(tok, Request{POA: []string{"udp"}})
	require.NoError(t, err)
	require.NotNil(t, second[0])
	secondValue, err := Inspect(*second[0])
	require.NoError(t, err)
	secondUDP := secondValue.(policy.UDP)
	assert.NotEqual(t, udp.Port, secondUDP.Port)
}

func TestCreateUnknownPolicyYieldsNilSlot(t *testing.T) {
	tok := newTestToken(t)
	refs, err := Create(tok, Request{POA: []string{"nonesuch"}})
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Nil(t, refs[0])
}

func TestFindWidensWithWildcard(t *testing.T) {
	tok := newTestToken(t)
	_, err := Create(tok, Request{POA: []string{"udp"}})
	require.NoError(t, err)

	other := tok
	other.Application = "demo.other"
	_, err = Create(other, Request{POA: []string{"udp"}})
	require.NoError(t, err)

	hits, err := Find(tok, "*", "udp")
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestRoutingApplicationRoundTrip(t *testing.T) {
	tok := newTestToken(t)
	refs, err := Create(tok, Request{Routing: []string{"application"}})
	require.NoError(t, err)
	require.NotNil(t, refs[0])

	value, err := Inspect(*refs[0])
	require.NoError(t, err)
	table, ok := value.(policy.Application)
	require.True(t, ok)
	assert.Len(t, table, 0)
}

func TestWritePolicyIsAtomic(t *testing.T) {
	tok := newTestToken(t)
	refs, err := Create(tok, Request{POA: []string{"udp"}})
	require.NoError(t, err)

	ref := *refs[0]
	entries, err := os.ReadDir(filepath.Dir(policyPath(ref)))
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp-")
	}
}
