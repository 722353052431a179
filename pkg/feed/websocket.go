package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"JevanRaksha/pkg/errors"
	"JevanRaksha/pkg/metrics"
)

// frame is the wire envelope in both directions.
type frame struct {
	Topic   string          `json:"topic"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// changePayload is the body of a row-change frame.
type changePayload struct {
	Table    string          `json:"table"`
	New      json.RawMessage `json:"new,omitempty"`
	Old      json.RawMessage `json:"old,omitempty"`
	CommitAt time.Time       `json:"commit_at,omitempty"`
}

const (
	frameSubscribe   = "subscribe"
	frameUnsubscribe = "unsubscribe"
)

// wsFeed maintains one websocket to the feed service and fans frames out to
// channel subscriptions. The connection is owned by the run loop; it redials
// with backoff and replays every subscribe frame after a reconnect.
type wsFeed struct {
	url     string
	apiKey  string
	config  *Config
	metrics *metrics.Metrics

	mu      sync.RWMutex
	subs    map[string]*wsSubscription
	conn    *websocket.Conn
	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc
}

type wsSubscription struct {
	feed    *wsFeed
	channel string
	filter  ChangeFilter
	handler Handler
	once    sync.Once
}

func (s *wsSubscription) Channel() string { return s.channel }

func (s *wsSubscription) Unsubscribe() error {
	s.once.Do(func() {
		s.feed.removeSubscription(s)
	})
	return nil
}

// NewWebsocketFeed connects to the change feed service at url. The dial is
// performed by the run loop, so construction never blocks.
func NewWebsocketFeed(url, apiKey string, config *Config) Feed {
	ctx, cancel := context.WithCancel(context.Background())
	f := &wsFeed{
		url:     url,
		apiKey:  apiKey,
		config:  config.withDefaults(),
		metrics: metrics.Default(),
		subs:    make(map[string]*wsSubscription),
		ctx:     ctx,
		cancel:  cancel,
	}
	go f.run()
	return f
}

func (f *wsFeed) Subscribe(channel string, filter ChangeFilter, handler Handler) (Subscription, error) {
	if channel == "" {
		return nil, errors.WithCode(errors.CodeFeed, "empty channel name")
	}
	if filter.Event == "" {
		filter.Event = EventAll
	}

	sub := &wsSubscription{feed: f, channel: channel, filter: filter, handler: handler}

	f.mu.Lock()
	if _, exists := f.subs[channel]; exists {
		f.mu.Unlock()
		return nil, errors.WithCode(errors.CodeFeed, "channel already subscribed: "+channel)
	}
	f.subs[channel] = sub
	conn := f.conn
	f.mu.Unlock()

	f.metrics.IncSubscriptions()

	// if the transport is up, join now; otherwise the run loop joins on
	// (re)connect
	if conn != nil {
		if err := f.writeSubscribe(conn, sub); err != nil {
			logrus.Warnf("feed: join for %s deferred to reconnect: %v", channel, err)
		}
	}
	return sub, nil
}

func (f *wsFeed) removeSubscription(s *wsSubscription) {
	f.mu.Lock()
	if f.subs[s.channel] != s {
		f.mu.Unlock()
		return
	}
	delete(f.subs, s.channel)
	conn := f.conn
	f.mu.Unlock()

	f.metrics.DecSubscriptions()

	if conn != nil {
		leave := frame{Topic: s.channel, Event: frameUnsubscribe}
		if err := f.writeFrame(conn, leave); err != nil {
			logrus.Debugf("feed: leave frame for %s not sent: %v", s.channel, err)
		}
	}
}

func (f *wsFeed) Close() error {
	f.cancel()
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

// run owns the connection: dial, replay subscriptions, pump reads, redial.
func (f *wsFeed) run() {
	backoff := f.config.ReconnectInterval
	firstAttempt := true

	for {
		if f.ctx.Err() != nil {
			return
		}

		conn, err := f.dial()
		if err != nil {
			logrus.Warnf("feed: dial failed: %v", err)
			select {
			case <-f.ctx.Done():
				return
			case <-time.After(backoff):
			}
			backoff = minDuration(backoff*2, f.config.MaxReconnectInterval)
			continue
		}
		backoff = f.config.ReconnectInterval

		f.mu.Lock()
		f.conn = conn
		pending := make([]*wsSubscription, 0, len(f.subs))
		for _, sub := range f.subs {
			pending = append(pending, sub)
		}
		f.mu.Unlock()

		for _, sub := range pending {
			if err := f.writeSubscribe(conn, sub); err != nil {
				logrus.Warnf("feed: rejoin %s failed: %v", sub.channel, err)
			}
		}

		if !firstAttempt {
			f.metrics.IncFeedReconnect()
			// subscribers re-fetch rather than trusting a gap-free stream
			for _, sub := range pending {
				f.dispatch(sub, Event{Type: EventResync, Table: sub.filter.Table, At: time.Now()})
			}
		}
		firstAttempt = false

		stopPing := make(chan struct{})
		go f.pingLoop(conn, stopPing)

		f.readPump(conn)

		close(stopPing)
		f.mu.Lock()
		if f.conn == conn {
			f.conn = nil
		}
		f.mu.Unlock()
		_ = conn.Close()
	}
}

func (f *wsFeed) dial() (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		ReadBufferSize:    f.config.ReadBufferSize,
		WriteBufferSize:   f.config.WriteBufferSize,
		EnableCompression: f.config.EnableCompression,
		HandshakeTimeout:  10 * time.Second,
	}
	header := http.Header{}
	if f.apiKey != "" {
		header.Set("Authorization", "Bearer "+f.apiKey)
	}
	conn, _, err := dialer.DialContext(f.ctx, f.url, header)
	return conn, err
}

func (f *wsFeed) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(f.config.MaxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(f.config.ConnectionTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(f.config.ConnectionTimeout))
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logrus.Errorf("feed: read error: %v", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(f.config.ConnectionTimeout))

		var fr frame
		if err := json.Unmarshal(message, &fr); err != nil {
			logrus.Warnf("feed: malformed frame dropped: %v", err)
			continue
		}
		f.handleFrame(fr)
	}
}

func (f *wsFeed) handleFrame(fr frame) {
	evt := EventType(fr.Event)
	switch evt {
	case EventInsert, EventUpdate, EventDelete:
	default:
		// heartbeat replies and join acks carry nothing actionable
		return
	}

	f.mu.RLock()
	sub := f.subs[fr.Topic]
	f.mu.RUnlock()
	if sub == nil {
		return
	}

	var payload changePayload
	if err := json.Unmarshal(fr.Payload, &payload); err != nil {
		logrus.Warnf("feed: malformed change payload on %s: %v", fr.Topic, err)
		return
	}

	if sub.filter.Event != EventAll && sub.filter.Event != evt {
		return
	}

	f.metrics.IncFeedEvent(payload.Table, string(evt))
	f.dispatch(sub, Event{
		Type:  evt,
		Table: payload.Table,
		New:   payload.New,
		Old:   payload.Old,
		At:    payload.CommitAt,
	})
}

func (f *wsFeed) dispatch(sub *wsSubscription, event Event) {
	defer func() {
		if r := recover(); r != nil {
			logrus.Errorf("feed: handler panic on %s: %v", sub.channel, r)
		}
	}()
	sub.handler(event)
}

func (f *wsFeed) pingLoop(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(f.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-f.ctx.Done():
			return
		case <-ticker.C:
			deadline := time.Now().Add(10 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}

func (f *wsFeed) writeSubscribe(conn *websocket.Conn, sub *wsSubscription) error {
	payload, err := json.Marshal(sub.filter)
	if err != nil {
		return err
	}
	return f.writeFrame(conn, frame{Topic: sub.channel, Event: frameSubscribe, Payload: payload})
}

func (f *wsFeed) writeFrame(conn *websocket.Conn, fr frame) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return conn.WriteJSON(fr)
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}
