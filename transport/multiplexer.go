package transport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// SessionEvent is one out-of-band notification fanned out to every
// connected observer: partial transcripts, state transitions, barge-in
// notices. The voice path itself never goes over this channel.
type SessionEvent struct {
	SessionID string `json:"session_id"`
	Type      string `json:"type"`
	State     string `json:"state,omitempty"`
	Text      string `json:"text,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// EventMultiplexer fans SessionEvents out to any number of connected
// websocket observers, dropping the oldest buffered event for a slow
// observer rather than blocking the whole session on it.
type EventMultiplexer struct {
	mu        sync.Mutex
	observers map[*observer]struct{}
	log       *slog.Logger
}

type observer struct {
	conn  *websocket.Conn
	queue chan SessionEvent
}

const observerQueueSize = 64

// NewEventMultiplexer constructs an empty multiplexer.
func NewEventMultiplexer(logger *slog.Logger) *EventMultiplexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventMultiplexer{observers: map[*observer]struct{}{}, log: logger}
}

// ServeHTTP upgrades the connection to a websocket and registers it as
// an observer until the client disconnects.
func (m *EventMultiplexer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		m.log.Warn("transport: websocket upgrade failed", "error", err)
		return
	}
	obs := &observer{conn: conn, queue: make(chan SessionEvent, observerQueueSize)}

	m.mu.Lock()
	m.observers[obs] = struct{}{}
	m.mu.Unlock()

	go m.writeLoop(obs)
}

func (m *EventMultiplexer) writeLoop(obs *observer) {
	defer func() {
		m.mu.Lock()
		delete(m.observers, obs)
		m.mu.Unlock()
		_ = obs.conn.Close()
	}()
	for ev := range obs.queue {
		payload, err := json.Marshal(ev)
		if err != nil {
			continue
		}
		if err := obs.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// Broadcast pushes ev to every connected observer. For an observer
// whose queue is already full it drops the oldest queued event to make
// room for ev instead of blocking.
func (m *EventMultiplexer) Broadcast(ev SessionEvent) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for obs := range m.observers {
		select {
		case obs.queue <- ev:
		default:
			select {
			case <-obs.queue:
			default:
			}
			select {
			case obs.queue <- ev:
			default:
			}
			m.log.Warn("transport: observer queue full, dropped oldest event")
		}
	}
}

// ObserverCount returns the number of currently connected observers.
func (m *EventMultiplexer) ObserverCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.observers)
}

// Close disconnects every observer.
func (m *EventMultiplexer) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for obs := range m.observers {
		close(obs.queue)
	}
	m.observers = map[*observer]struct{}{}
}
