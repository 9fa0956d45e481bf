package api

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cuemby/tracething/pkg/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sugawarayuuta/sonnet"
)

func TestEventsHandlerDisabled(t *testing.T) {
	as, _ := newTestAdmin(t)

	w := serve(as, http.MethodGet, "/events")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEventsStream(t *testing.T) {
	as, _ := newTestAdmin(t)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	as.SetEvents(broker)

	srv := httptest.NewServer(as.GetHandler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/events", nil)
	require.NoError(t, err)
	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	broker.Publish(&events.Event{
		Type:     events.EventSlotAllocated,
		Message:  "allocated slot 3",
		Metadata: map[string]string{"slot": "3"},
	})

	reader := bufio.NewReader(resp.Body)
	var lines []string
	for len(lines) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		lines = append(lines, strings.TrimSuffix(line, "\n"))
	}

	assert.True(t, strings.HasPrefix(lines[0], "id: "))
	assert.Equal(t, "event: slot.allocated", lines[1])
	require.True(t, strings.HasPrefix(lines[2], "data: "))

	var ev events.Event
	require.NoError(t, sonnet.Unmarshal([]byte(strings.TrimPrefix(lines[2], "data: ")), &ev))
	assert.Equal(t, "3", ev.Metadata["slot"])
	assert.Equal(t, events.EventSlotAllocated, ev.Type)

	// Closing the client releases the subscription
	cancel()
	assert.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStreamEndsOnShutdown(t *testing.T) {
	as, _ := newTestAdmin(t)
	broker := events.NewBroker()
	broker.Start()
	defer broker.Stop()
	as.SetEvents(broker)

	srv := httptest.NewServer(as.GetHandler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/events")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Eventually(t, func() bool {
		return broker.SubscriberCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	// No http.Server was started; Shutdown still closes the streams
	require.NoError(t, as.Shutdown(context.Background()))
	assert.Eventually(t, func() bool {
		return broker.SubscriberCount() == 0
	}, 2*time.Second, 10*time.Millisecond)
}
