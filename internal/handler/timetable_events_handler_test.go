package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/jobs"
)

func newEventsServer(t *testing.T, bus *events.Bus, origins []string) *httptest.Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	manager := &timetableManagerMock{timetable: draftTimetable()}
	h := NewTimetableEventsHandler(manager, bus, nil, EventStreamConfig{AllowedOrigins: origins})
	router := gin.New()
	router.GET("/timetables/:id/events", h.Stream)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)
	return server
}

func wsURL(server *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(server.URL, "http") + path
}

func TestTimetableEventsStreamDeliversScopedEvents(t *testing.T) {
	bus := events.NewBus(jobs.QueueConfig{})
	server := newEventsServer(t, bus, nil)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/timetables/tt-1/events"), nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello map[string]interface{}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "connected", hello["type"])
	assert.Equal(t, 1, bus.Subscribers("tt-1"))

	ctx := context.Background()
	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.TimetableStatusChanged, TimetableID: "tt-other"}))
	require.NoError(t, bus.Publish(ctx, events.Event{
		Type:        events.TimetableSlotsGenerated,
		TimetableID: "tt-1",
		Data:        map[string]interface{}{"slots_created": 28},
	}))

	var evt events.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, events.TimetableSlotsGenerated, evt.Type)
	assert.Equal(t, "tt-1", evt.TimetableID)
	assert.NotEmpty(t, evt.ID)

	require.NoError(t, bus.Publish(ctx, events.Event{Type: events.TimetableDeleted, TimetableID: "tt-1"}))
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, events.TimetableDeleted, evt.Type)

	_, _, err = conn.ReadMessage()
	require.Error(t, err)
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))

	require.Eventually(t, func() bool { return bus.Subscribers("tt-1") == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestTimetableEventsStreamUnknownTimetable(t *testing.T) {
	bus := events.NewBus(jobs.QueueConfig{})
	server := newEventsServer(t, bus, nil)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/timetables/missing/events"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, 0, bus.Subscribers("missing"))
}

func TestTimetableEventsStreamRejectsForeignOrigin(t *testing.T) {
	bus := events.NewBus(jobs.QueueConfig{})
	server := newEventsServer(t, bus, []string{"https://schedule.example.edu"})

	header := http.Header{"Origin": []string{"https://evil.example.com"}}
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(server, "/timetables/tt-1/events"), header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	header = http.Header{"Origin": []string{"https://schedule.example.edu"}}
	conn, _, err := websocket.DefaultDialer.Dial(wsURL(server, "/timetables/tt-1/events"), header)
	require.NoError(t, err)
	conn.Close()
}
