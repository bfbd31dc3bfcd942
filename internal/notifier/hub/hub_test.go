package hub

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub(bufferSize int) *Hub {
	return New(bufferSize, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestHub_SendToSubscribedUser(t *testing.T) {
	h := newTestHub(4)

	s := h.Subscribe("citizen-1", false)
	defer h.Unsubscribe(s)

	require.True(t, h.Send("citizen-1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-s.Ch)
}

func TestHub_SendReachesAllUserSessions(t *testing.T) {
	h := newTestHub(4)

	s1 := h.Subscribe("citizen-1", false)
	s2 := h.Subscribe("citizen-1", false)
	defer h.Unsubscribe(s1)
	defer h.Unsubscribe(s2)

	require.True(t, h.Send("citizen-1", []byte("hello")))
	assert.Equal(t, []byte("hello"), <-s1.Ch)
	assert.Equal(t, []byte("hello"), <-s2.Ch)
}

func TestHub_SendToOfflineUser(t *testing.T) {
	h := newTestHub(4)

	assert.False(t, h.Send("nobody", []byte("hello")))
}

func TestHub_SendSkipsFullBuffer(t *testing.T) {
	h := newTestHub(1)

	slow := h.Subscribe("citizen-1", false)
	defer h.Unsubscribe(slow)

	require.True(t, h.Send("citizen-1", []byte("first")))
	// Buffer is full now; the second send is dropped for this session.
	assert.False(t, h.Send("citizen-1", []byte("second")))

	assert.Equal(t, []byte("first"), <-slow.Ch)
}

func TestHub_BroadcastReachesElectriciansOnly(t *testing.T) {
	h := newTestHub(4)

	electrician := h.Subscribe("electrician-1", true)
	citizen := h.Subscribe("citizen-1", false)
	defer h.Unsubscribe(electrician)
	defer h.Unsubscribe(citizen)

	assert.Equal(t, 1, h.Broadcast([]byte("job posted")))
	assert.Equal(t, []byte("job posted"), <-electrician.Ch)
	assert.Empty(t, citizen.Ch)
}

func TestHub_BroadcastCountsDeliveredSessions(t *testing.T) {
	h := newTestHub(1)

	fresh := h.Subscribe("electrician-1", true)
	stuck := h.Subscribe("electrician-2", true)
	defer h.Unsubscribe(fresh)
	defer h.Unsubscribe(stuck)

	stuck.Ch <- []byte("backlog")

	assert.Equal(t, 1, h.Broadcast([]byte("job posted")))
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := newTestHub(4)

	s := h.Subscribe("electrician-1", true)
	h.Unsubscribe(s)

	_, open := <-s.Ch
	assert.False(t, open)
	assert.False(t, h.Online("electrician-1"))
	assert.Equal(t, 0, h.Broadcast([]byte("job posted")))

	// A second unsubscribe of the same session is harmless.
	h.Unsubscribe(s)
}

func TestHub_Online(t *testing.T) {
	h := newTestHub(4)

	assert.False(t, h.Online("citizen-1"))

	s := h.Subscribe("citizen-1", false)
	assert.True(t, h.Online("citizen-1"))

	h.Unsubscribe(s)
	assert.False(t, h.Online("citizen-1"))
}

func TestHub_ConcurrentSubscribeSendUnsubscribe(t *testing.T) {
	h := newTestHub(64)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			userID := fmt.Sprintf("user-%d", n%4)
			s := h.Subscribe(userID, n%2 == 0)
			h.Send(userID, []byte("ping"))
			h.Broadcast([]byte("ping"))
			h.Unsubscribe(s)
		}(i)
	}
	wg.Wait()

	for i := 0; i < 4; i++ {
		assert.False(t, h.Online(fmt.Sprintf("user-%d", i)))
	}
	assert.Equal(t, 0, h.Broadcast([]byte("ping")))
}
