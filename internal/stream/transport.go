package stream

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Transport is an open duplex channel.
type Transport interface {
	// Listen starts delivering inbound messages. onClose is called once when
	// the channel ends, including after Close.
	Listen(onMessage func([]byte), onClose func(error))
	Close() error
}

// Dialer opens transports.
type Dialer interface {
	Dial(ctx context.Context, url string) (Transport, error)
}

// TransportError wraps a failed dial or an unexpected channel loss.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Err == nil {
		return "stream " + e.Op
	}
	return fmt.Sprintf("stream %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// WebsocketDialer dials gorilla websocket connections.
type WebsocketDialer struct {
	HandshakeTimeout time.Duration
	Header           http.Header
}

func (d WebsocketDialer) Dial(ctx context.Context, url string) (Transport, error) {
	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: d.HandshakeTimeout,
	}
	if dialer.HandshakeTimeout <= 0 {
		dialer.HandshakeTimeout = 10 * time.Second
	}
	conn, resp, err := dialer.DialContext(ctx, url, d.Header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}
	return &wsTransport{conn: conn}, nil
}

type wsTransport struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closed    chan struct{}
	mu        sync.Mutex
}

const (
	writeWait  = 5 * time.Second
	maxMessage = 1 << 20
)

func (t *wsTransport) Listen(onMessage func([]byte), onClose func(error)) {
	t.mu.Lock()
	if t.closed == nil {
		t.closed = make(chan struct{})
	}
	t.mu.Unlock()

	t.conn.SetReadLimit(maxMessage)
	go func() {
		var err error
		for {
			var data []byte
			_, data, err = t.conn.ReadMessage()
			if err != nil {
				break
			}
			onMessage(data)
		}
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			err = nil
		}
		select {
		case <-t.closedChan():
			err = nil
		default:
		}
		onClose(err)
	}()
}

func (t *wsTransport) closedChan() chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed == nil {
		t.closed = make(chan struct{})
	}
	return t.closed
}

func (t *wsTransport) Close() error {
	var err error
	t.closeOnce.Do(func() {
		close(t.closedChan())
		_ = t.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait))
		err = t.conn.Close()
		if errors.Is(err, websocket.ErrCloseSent) {
			err = nil
		}
	})
	return err
}
