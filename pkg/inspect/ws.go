package inspect

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/go-pink/pink/pkg/pink"
)

const (
	wsWriteWait = 10 * time.Second
	wsPongWait  = 60 * time.Second
	wsPingEvery = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		return true
	},
}

type inbound struct {
	Type  string `json:"type"`
	Node  uint64 `json:"node,omitempty"`
	Event string `json:"event,omitempty"`
	Data  any    `json:"data,omitempty"`
}

type outbound struct {
	Type    string `json:"type"`
	Session string `json:"session,omitempty"`
	HTML    string `json:"html,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

type session struct {
	id      string
	writeCh chan outbound
	cancel  context.CancelFunc
}

// push queues out without blocking. A client that cannot keep up misses
// intermediate snapshots; the next change sends the full document again.
func (s *session) push(out outbound) {
	select {
	case s.writeCh <- out:
	default:
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sess := &session{id: newSessionID(), writeCh: make(chan outbound, 32), cancel: cancel}
	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.sessions, sess.id)
		s.mu.Unlock()
	}()

	if err := conn.SetReadDeadline(time.Now().Add(wsPongWait)); err != nil {
		s.logger.Warn("inspect: set read deadline failed", "error", err)
		return
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		ticker := time.NewTicker(wsPingEvery)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case out := <-sess.writeCh:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteJSON(out); err != nil {
					return
				}
			case <-ticker.C:
				if err := conn.SetWriteDeadline(time.Now().Add(wsWriteWait)); err != nil {
					return
				}
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	var off func()
	err = s.call(r, func() {
		html, _ := s.rt.HTML()
		sess.push(outbound{Type: "subscribed", Session: sess.id, HTML: html})
		off = s.rt.On(pink.EventChanged, func(pink.Event) {
			html, _ := s.rt.HTML()
			sess.push(outbound{Type: "html", HTML: html})
		})
	})
	if err != nil {
		sess.push(outbound{Type: "error", Code: "unavailable", Message: err.Error()})
		cancel()
		<-writerDone
		return
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), callTimeout)
		defer cancel()
		_ = s.rt.Call(ctx, off)
	}()
	s.logger.Debug("inspect: session opened", "session", sess.id)

	for {
		var in inbound
		if err := conn.ReadJSON(&in); err != nil {
			cancel()
			<-writerDone
			s.logger.Debug("inspect: session closed", "session", sess.id)
			return
		}
		switch strings.ToLower(strings.TrimSpace(in.Type)) {
		case "ping":
			sess.push(outbound{Type: "pong"})
		case "event":
			s.dispatchEvent(r, sess, in)
		case "":
			sess.push(outbound{Type: "error", Code: "invalid_argument", Message: "type is required"})
		default:
			sess.push(outbound{Type: "error", Code: "invalid_argument", Message: "unknown type " + in.Type})
		}
	}
}

// dispatchEvent delivers a client event to the node's hub, as if the host
// had raised it.
func (s *Server) dispatchEvent(r *http.Request, sess *session, in inbound) {
	name := strings.TrimSpace(in.Event)
	if name == "" {
		sess.push(outbound{Type: "error", Code: "invalid_argument", Message: "event is required"})
		return
	}
	found := false
	err := s.call(r, func() {
		n := s.rt.Document().NodeByID(in.Node)
		if n == nil || n.IsDestroyed() {
			return
		}
		found = true
		n.Emit(name, in.Data)
	})
	switch {
	case err != nil:
		sess.push(outbound{Type: "error", Code: "unavailable", Message: err.Error()})
	case !found:
		sess.push(outbound{Type: "error", Code: "not_found", Message: "no such node"})
	}
}
