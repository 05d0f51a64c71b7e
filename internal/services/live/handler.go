package live

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/doosr/doosr/internal/platform/timeouts"
	"golang.org/x/net/websocket"
)

// Frame types.
const (
	FrameSubscribe    = "live.subscribe"
	FrameUnsubscribe  = "live.unsubscribe"
	FrameSubscribed   = "live.subscribed"
	FrameUnsubscribed = "live.unsubscribed"
	FrameEvent        = "live.event"
	FrameError        = "error"
)

// Error codes sent in error frames.
const (
	CodeInvalidFrame   = "invalid_frame"
	CodeInvalidChannel = "invalid_channel"
	CodeTooLarge       = "payload_too_large"
	CodeRateLimited    = "rate_limited"
	CodeTooManyChans   = "too_many_channels"
)

const (
	maxFrameBytes          = 4 * 1024
	maxFramesPerSecond     = 20
	maxDecodeErrorsPerConn = 3
	sendQueueSize          = 64
)

// Frame is the envelope of every websocket message.
type Frame struct {
	Type      string          `json:"type"`
	RequestID string          `json:"request_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// ChannelPayload is the payload of subscribe and unsubscribe frames.
type ChannelPayload struct {
	Channel string `json:"channel"`
}

// ErrorPayload is the payload of error frames.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Authenticate resolves the signed-in user of an upgrade request.
type Authenticate func(*http.Request) (userID string, ok bool)

type peer struct {
	userID   string
	channels map[string]struct{}
	send     chan Frame
	done     chan struct{}
	once     sync.Once
}

func newPeer(userID string) *peer {
	return &peer{
		userID:   userID,
		channels: make(map[string]struct{}),
		send:     make(chan Frame, sendQueueSize),
		done:     make(chan struct{}),
	}
}

func (p *peer) enqueue(frame Frame) bool {
	select {
	case <-p.done:
		return true
	default:
	}
	select {
	case p.send <- frame:
		return true
	default:
		return false
	}
}

func (p *peer) close() {
	p.once.Do(func() { close(p.done) })
}

// Handler serves the live websocket endpoint. Requests without a signed-in
// user get 401; cross-origin upgrades are refused.
func Handler(hub *Hub, authenticate Authenticate) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if hub == nil || authenticate == nil {
			http.Error(w, "live updates are not configured", http.StatusServiceUnavailable)
			return
		}
		userID, ok := authenticate(r)
		if !ok || strings.TrimSpace(userID) == "" {
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		server := websocket.Server{
			Handshake: sameOrigin,
			Handler: func(conn *websocket.Conn) {
				serveConn(conn, hub, userID)
			},
		}
		server.ServeHTTP(w, r)
	})
}

func sameOrigin(config *websocket.Config, r *http.Request) error {
	origin, err := websocket.Origin(config, r)
	if err != nil {
		return err
	}
	if origin == nil || !strings.EqualFold(origin.Host, r.Host) {
		return errors.New("cross-origin websocket refused")
	}
	config.Origin = &url.URL{Scheme: origin.Scheme, Host: origin.Host}
	return nil
}

func serveConn(conn *websocket.Conn, hub *Hub, userID string) {
	conn.MaxPayloadBytes = maxFrameBytes
	p := newPeer(userID)
	hub.observer.ConnectionOpened()
	defer func() {
		hub.drop(p)
		p.close()
		_ = conn.Close()
		hub.observer.ConnectionClosed()
	}()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		writeLoop(conn, p)
	}()
	readLoop(conn, hub, p)
	p.close()
	<-writerDone
}

// writeLoop sends queued frames until the peer closes, then flushes what
// is still queued so a final error frame reaches the client.
func writeLoop(conn *websocket.Conn, p *peer) {
	for {
		select {
		case <-p.done:
			flush(conn, p)
			_ = conn.Close()
			return
		case frame := <-p.send:
			if err := writeFrame(conn, frame); err != nil {
				p.close()
				_ = conn.Close()
				return
			}
		}
	}
}

func flush(conn *websocket.Conn, p *peer) {
	for {
		select {
		case frame := <-p.send:
			if writeFrame(conn, frame) != nil {
				return
			}
		default:
			return
		}
	}
}

func writeFrame(conn *websocket.Conn, frame Frame) error {
	_ = conn.SetWriteDeadline(time.Now().Add(timeouts.WebsocketWrite))
	return websocket.JSON.Send(conn, frame)
}

func readLoop(conn *websocket.Conn, hub *Hub, p *peer) {
	windowStart := time.Now()
	framesInWindow := 0
	decodeErrors := 0
	for {
		var frame Frame
		if err := websocket.JSON.Receive(conn, &frame); err != nil {
			switch {
			case errors.Is(err, io.EOF), isClosed(p):
				return
			case errors.Is(err, websocket.ErrFrameTooLarge):
				sendError(p, "", CodeTooLarge, "frame too large")
				continue
			}
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &syntaxErr) && !errors.As(err, &typeErr) {
				return
			}
			decodeErrors++
			sendError(p, "", CodeInvalidFrame, "invalid frame")
			if decodeErrors >= maxDecodeErrorsPerConn {
				return
			}
			continue
		}
		decodeErrors = 0

		now := time.Now()
		if now.Sub(windowStart) >= time.Second {
			windowStart = now
			framesInWindow = 0
		}
		framesInWindow++
		if framesInWindow > maxFramesPerSecond {
			sendError(p, frame.RequestID, CodeRateLimited, "rate limit exceeded")
			return
		}
		handleFrame(hub, p, frame)
	}
}

func handleFrame(hub *Hub, p *peer, frame Frame) {
	switch frame.Type {
	case FrameSubscribe, FrameUnsubscribe:
	default:
		sendError(p, frame.RequestID, CodeInvalidFrame, "unsupported frame type")
		return
	}
	var payload ChannelPayload
	if err := json.Unmarshal(frame.Payload, &payload); err != nil {
		sendError(p, frame.RequestID, CodeInvalidFrame, "invalid payload")
		return
	}
	channel := strings.TrimSpace(payload.Channel)
	if !ValidChannel(channel) {
		sendError(p, frame.RequestID, CodeInvalidChannel, "unknown channel")
		return
	}
	reply := FrameUnsubscribed
	if frame.Type == FrameSubscribe {
		if !hub.subscribe(p, channel) {
			sendError(p, frame.RequestID, CodeTooManyChans, "too many channels")
			return
		}
		reply = FrameSubscribed
	} else {
		hub.unsubscribe(p, channel)
	}
	p.enqueue(Frame{Type: reply, RequestID: frame.RequestID, Payload: mustJSON(ChannelPayload{Channel: channel})})
}

func sendError(p *peer, requestID, code, message string) {
	p.enqueue(Frame{Type: FrameError, RequestID: requestID, Payload: mustJSON(ErrorPayload{Code: code, Message: message})})
}

func isClosed(p *peer) bool {
	select {
	case <-p.done:
		return true
	default:
		return false
	}
}
