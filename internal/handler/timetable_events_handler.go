package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/AltamashPatel/edu-schedule-wiz/internal/models"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/events"
	"github.com/AltamashPatel/edu-schedule-wiz/pkg/response"
)

const (
	eventStreamBuffer      = 16
	defaultPingInterval    = 30 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	eventStreamReadMaxSize = 512
)

type eventSubscriber interface {
	Subscribe(scope string, h events.Handler) func()
}

type timetableFinder interface {
	Get(ctx context.Context, id string) (*models.TimetableWithBatch, error)
}

// EventStreamConfig tunes websocket sessions.
type EventStreamConfig struct {
	AllowedOrigins []string
	PingInterval   time.Duration
	WriteTimeout   time.Duration
}

// TimetableEventsHandler streams the events of one timetable to a websocket
// client. Each connection is its own subscription scope.
type TimetableEventsHandler struct {
	timetables timetableFinder
	bus        eventSubscriber
	logger     *zap.Logger
	upgrader   websocket.Upgrader
	cfg        EventStreamConfig
}

// NewTimetableEventsHandler constructs the handler. An empty origin list
// accepts every origin.
func NewTimetableEventsHandler(timetables timetableFinder, bus eventSubscriber, logger *zap.Logger, cfg EventStreamConfig) *TimetableEventsHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	return &TimetableEventsHandler{
		timetables: timetables,
		bus:        bus,
		logger:     logger,
		upgrader:   buildUpgrader(cfg.AllowedOrigins),
		cfg:        cfg,
	}
}

func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if allowed == "*" || strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// Stream godoc
// @Summary Stream timetable events
// @Description Upgrades to a websocket and pushes created, updated, slots_generated, status_changed and deleted events of the timetable. Browsers may pass the access token as ?token=.
// @Tags Timetables
// @Param id path string true "Timetable ID"
// @Param token query string false "Access token"
// @Success 101
// @Router /timetables/{id}/events [get]
func (h *TimetableEventsHandler) Stream(c *gin.Context) {
	timetableID := c.Param("id")
	if _, err := h.timetables.Get(c.Request.Context(), timetableID); err != nil {
		response.Error(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", zap.String("timetable_id", timetableID), zap.Error(err))
		return
	}
	defer conn.Close()

	log := h.logger.With(zap.String("timetable_id", timetableID), zap.String("actor_id", actorFromContext(c)))
	log.Debug("timetable event stream opened")

	outbox := make(chan events.Event, eventStreamBuffer)
	unsubscribe := h.bus.Subscribe(timetableID, func(ctx context.Context, evt events.Event) {
		select {
		case outbox <- evt:
		default:
			log.Warn("event stream too slow, dropping event", zap.String("event_id", evt.ID))
		}
	})
	defer unsubscribe()

	closed := make(chan struct{})
	go h.readPump(conn, closed)

	if err := h.write(conn, gin.H{"type": "connected", "timetable_id": timetableID}); err != nil {
		return
	}

	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			log.Debug("timetable event stream closed")
			return
		case evt := <-outbox:
			if err := h.write(conn, evt); err != nil {
				log.Debug("event stream write failed", zap.Error(err))
				return
			}
			if evt.Type == events.TimetableDeleted {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "timetable deleted"),
					time.Now().Add(h.cfg.WriteTimeout))
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames and closes done when the peer goes away.
func (h *TimetableEventsHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(eventStreamReadMaxSize)
	deadline := func() time.Time { return time.Now().Add(2 * h.cfg.PingInterval) }
	_ = conn.SetReadDeadline(deadline())
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(deadline())
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("unexpected websocket close", zap.Error(err))
			}
			return
		}
	}
}

func (h *TimetableEventsHandler) write(conn *websocket.Conn, payload interface{}) error {
	_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
	return conn.WriteJSON(payload)
}
