package registry

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/herocast/herocast/domain"
)

type stubClient struct {
	id     string
	closed bool
}

func (c *stubClient) ID() string { return c.id }

func (c *stubClient) Send(_ context.Context, _ []byte) error { return nil }

func (c *stubClient) Close() error { c.closed = true; return nil }

var _ domain.Client = (*stubClient)(nil)

func TestAddAndLen(t *testing.T) {
	r := New()

	assert.True(t, r.Add(&stubClient{id: "a"}))
	assert.True(t, r.Add(&stubClient{id: "b"}))
	assert.False(t, r.Add(&stubClient{id: "a"}), "duplicate session id must be rejected")

	assert.Equal(t, 2, r.Len())
}

func TestBindRequiresUnnamedSession(t *testing.T) {
	r := New()
	r.Add(&stubClient{id: "a"})

	assert.False(t, r.Bind("missing", "alice"))
	assert.True(t, r.Bind("a", "alice"))
	assert.False(t, r.Bind("a", "bob"), "a session is named at most once")

	assert.Equal(t, []string{"alice"}, r.Nicknames())
}

func TestRemoveReturnsBoundNickname(t *testing.T) {
	r := New()
	c := &stubClient{id: "a"}
	r.Add(c)
	r.Bind("a", "alice")

	removed, ok := r.Remove("a")
	require.True(t, ok)
	assert.Equal(t, "alice", removed.Nickname)
	assert.Equal(t, "alice", removed.DisplayName())
	assert.Equal(t, c.id, removed.Client.ID())
	assert.Equal(t, 0, r.Len())
}

func TestRemoveUnnamedUsesPlaceholder(t *testing.T) {
	r := New()
	r.Add(&stubClient{id: "abc123"})

	removed, ok := r.Remove("abc123")
	require.True(t, ok)
	assert.Empty(t, removed.Nickname)
	assert.Equal(t, "Client abc123", removed.DisplayName())
}

func TestRemoveIsIdempotent(t *testing.T) {
	r := New()
	r.Add(&stubClient{id: "a"})

	_, ok := r.Remove("a")
	require.True(t, ok)

	_, ok = r.Remove("a")
	assert.False(t, ok, "second removal must report the session as gone")
}

func TestClientsPreserveRegistrationOrder(t *testing.T) {
	r := New()

	for i := 0; i < 5; i++ {
		r.Add(&stubClient{id: fmt.Sprintf("c%d", i)})
	}
	r.Remove("c2")

	var ids []string
	for _, c := range r.Clients() {
		ids = append(ids, c.ID())
	}

	assert.Equal(t, []string{"c0", "c1", "c3", "c4"}, ids)
}

func TestNicknamesExcludeUnnamedSessions(t *testing.T) {
	r := New()
	r.Add(&stubClient{id: "a"})
	r.Add(&stubClient{id: "b"})
	r.Add(&stubClient{id: "c"})
	r.Bind("a", "alice")
	r.Bind("c", "carol")

	assert.Equal(t, []string{"alice", "carol"}, r.Nicknames())
	assert.Equal(t, 3, r.Len(), "unnamed sessions still count as connected")
}
