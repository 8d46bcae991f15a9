package ws

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/chickenjockey/sitestatus/server/internal/api"
)

// EventSnapshot tags every frame pushed to viewers.
const EventSnapshot = "snapshot"

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// outboxSize is how many frames a viewer may fall behind before it is
	// dropped.
	outboxSize = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Status pages are public; origin checks belong to the reverse proxy.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Message is one frame on the stream.
type Message struct {
	Event string               `json:"event"`
	Data  api.SnapshotResponse `json:"data"`
}

// Source builds the status page. *api.Handler implements it.
type Source interface {
	Snapshot() api.SnapshotResponse
}

// Hub pushes the status page to every connected viewer: once on connect,
// then on each interval tick and after every Notify.
type Hub struct {
	src      Source
	interval time.Duration
	wake     chan struct{}

	mu      sync.RWMutex
	viewers map[*viewer]struct{}
}

// viewer is one open status page. target narrows the cards it receives; the
// banner and legend are always included.
type viewer struct {
	conn   *websocket.Conn
	target string
	outbox chan []byte
}

// New returns a Hub serving pages built by src.
func New(src Source, interval time.Duration) *Hub {
	return &Hub{
		src:      src,
		interval: interval,
		wake:     make(chan struct{}, 1),
		viewers:  make(map[*viewer]struct{}),
	}
}

// Notify requests an immediate push, e.g. after an ingest. Requests that
// arrive while one is pending are merged.
func (h *Hub) Notify() {
	select {
	case h.wake <- struct{}{}:
	default:
	}
}

// Run pushes the page until ctx is cancelled, then disconnects all viewers.
func (h *Hub) Run(ctx context.Context) {
	t := time.NewTicker(h.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case <-t.C:
		case <-h.wake:
		}
		h.push()
	}
}

// ServeHTTP upgrades the request and streams the page until the viewer
// goes away. ?target=<id> limits the cards to one target.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	v := &viewer{
		conn:   conn,
		target: r.URL.Query().Get("target"),
		outbox: make(chan []byte, outboxSize),
	}
	// The first frame is queued before the viewer is visible to push, so
	// it is always delivered first.
	if frame, err := encode(h.src.Snapshot(), v.target); err == nil {
		v.outbox <- frame
	} else {
		slog.Error("ws: encode snapshot", "target", v.target, "err", err)
	}
	h.add(v)
	defer h.remove(v)

	slog.Debug("ws: viewer connected", "remote", r.RemoteAddr, "target", v.target)
	go v.writeLoop()
	v.readLoop()
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

func (h *Hub) add(v *viewer) {
	h.mu.Lock()
	h.viewers[v] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	if _, ok := h.viewers[v]; ok {
		delete(h.viewers, v)
		close(v.outbox)
	}
	h.mu.Unlock()
}

// push sends the current page to every viewer. Each distinct target filter
// is encoded once per push.
func (h *Hub) push() {
	page := h.src.Snapshot()
	frames := make(map[string][]byte)

	var lagging []*viewer
	h.mu.RLock()
	for v := range h.viewers {
		frame, seen := frames[v.target]
		if !seen {
			var err error
			if frame, err = encode(page, v.target); err != nil {
				slog.Error("ws: encode snapshot", "target", v.target, "err", err)
			}
			frames[v.target] = frame
		}
		if frame == nil {
			continue
		}
		select {
		case v.outbox <- frame:
		default:
			lagging = append(lagging, v)
		}
	}
	h.mu.RUnlock()

	for _, v := range lagging {
		slog.Warn("ws: dropping lagging viewer", "remote", v.conn.RemoteAddr().String())
		h.remove(v)
		v.conn.Close()
	}
}

func (h *Hub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for v := range h.viewers {
		delete(h.viewers, v)
		close(v.outbox)
	}
}

// encode wraps page in a Message, keeping only the card for target when it
// is set.
func encode(page api.SnapshotResponse, target string) ([]byte, error) {
	if target != "" {
		cards := make([]api.TargetView, 0, 1)
		for _, tv := range page.Targets {
			if tv.TargetID == target {
				cards = append(cards, tv)
			}
		}
		page.Targets = cards
	}
	return json.Marshal(Message{Event: EventSnapshot, Data: page})
}

// writeLoop owns all writes to the connection: queued frames and pings.
func (v *viewer) writeLoop() {
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ping.Stop()
		v.conn.Close()
	}()

	for {
		select {
		case frame, open := <-v.outbox:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !open {
				v.conn.WriteMessage(websocket.CloseMessage, []byte{}) //nolint:errcheck
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ping.C:
			v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop discards anything the page sends and returns once the
// connection stops answering pings.
func (v *viewer) readLoop() {
	defer v.conn.Close()
	v.conn.SetReadLimit(512)
	v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			return
		}
	}
}
