// Package inspect serves a running runtime over HTTP for debugging.
//
// Endpoints:
//
//	/tree    JSON render tree with scope locals and directive kinds
//	/html    the current host document
//	/health  liveness probe
//	/ws      live session: rendered HTML after every change; clients may
//	         send {"type":"event","node":12,"event":"click"}
//
// Every read of the tree is performed on the runtime's owning goroutine
// through Runtime.Call, so some goroutine must be running Runtime.Run.
package inspect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/go-pink/pink/pkg/logging"
	"github.com/go-pink/pink/pkg/pink"
	"github.com/go-pink/pink/pkg/reactive"
	"github.com/go-pink/pink/pkg/vdom"
)

// maxTreeDepth limits recursion depth to prevent stack overflow from malformed trees.
const maxTreeDepth = 500

// callTimeout bounds a single trip to the owning goroutine.
const callTimeout = 5 * time.Second

// Server exposes one runtime.
type Server struct {
	rt     *pink.Runtime
	logger *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	sessions map[string]*session
}

// TreeNode is a node in the serialized render tree.
type TreeNode struct {
	ID         uint64            `json:"id"`
	Kind       string            `json:"kind"`
	Tag        string            `json:"tag,omitempty"`
	Value      string            `json:"value,omitempty"`
	Attrs      map[string]string `json:"attrs,omitempty"`
	Visible    bool              `json:"visible"`
	Template   bool              `json:"template,omitempty"`
	Dynamic    bool              `json:"dynamic,omitempty"`
	Component  bool              `json:"component,omitempty"`
	Ref        string            `json:"ref,omitempty"`
	Slot       string            `json:"slot,omitempty"`
	Directives []string          `json:"directives,omitempty"`
	Locals     map[string]any    `json:"locals,omitempty"`
	Children   []TreeNode        `json:"children,omitempty"`
}

// New returns a server for rt. A nil logger discards.
func New(rt *pink.Runtime, logger *slog.Logger) *Server {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Server{rt: rt, logger: logger, sessions: make(map[string]*session)}
}

// Handler returns the server's routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tree", s.handleTree)
	mux.HandleFunc("/html", s.handleHTML)
	mux.HandleFunc("/health", handleHealth)
	mux.HandleFunc("/ws", s.handleWS)
	return mux
}

// Start listens on addr and serves in the background. It returns the bound
// address, which is useful when addr asks for an ephemeral port.
func (s *Server) Start(addr string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return s.listener.Addr().String(), nil
	}

	// Bind listener first to fail fast on port conflicts
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("inspect server listen: %w", err)
	}
	server := &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 10 * time.Second}
	s.server = server
	s.listener = listener

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.mu.Lock()
			s.server = nil
			s.listener = nil
			s.mu.Unlock()
			s.logger.Error("inspect: serve failed", "error", err)
		}
	}()
	s.logger.Info("inspect: listening", "addr", listener.Addr().String())
	return listener.Addr().String(), nil
}

// Stop shuts the server down and closes live sessions.
func (s *Server) Stop() {
	s.mu.Lock()
	server := s.server
	s.server = nil
	s.listener = nil
	sessions := s.sessions
	s.sessions = make(map[string]*session)
	s.mu.Unlock()

	for _, sess := range sessions {
		sess.cancel()
	}
	if server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = server.Shutdown(ctx)
}

func (s *Server) call(r *http.Request, fn func()) error {
	ctx, cancel := context.WithTimeout(r.Context(), callTimeout)
	defer cancel()
	return s.rt.Call(ctx, fn)
}

func (s *Server) handleTree(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var (
		tree    TreeNode
		hasRoot bool
	)
	err := s.call(r, func() {
		// Recover from panics during serialization
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("inspect: tree serialization panicked", "panic", rec)
			}
		}()
		root := s.rt.Root()
		if root == nil {
			return
		}
		hasRoot = true
		tree = Serialize(root, 0)
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if !hasRoot {
		http.Error(w, "no render tree", http.StatusServiceUnavailable)
		return
	}

	// Encode to buffer first so we can catch errors
	data, err := json.MarshalIndent(tree, "", "  ")
	if err != nil {
		http.Error(w, fmt.Sprintf("json encode error: %v", err), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(data)
}

func (s *Server) handleHTML(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var (
		html      string
		renderErr error
	)
	if err := s.call(r, func() { html, renderErr = s.rt.HTML() }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if renderErr != nil {
		http.Error(w, renderErr.Error(), http.StatusNotImplemented)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(html))
}

// handleHealth returns a simple health check response.
func handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// Serialize converts the subtree at n. It reads scope locals without
// tracking, so it is safe to call while a watcher runs.
func Serialize(n *vdom.Node, depth int) TreeNode {
	out := TreeNode{
		ID:        n.ID(),
		Kind:      n.Kind().String(),
		Visible:   n.IsVisible(),
		Template:  n.IsTemplate(),
		Dynamic:   n.IsDynamic(),
		Component: n.IsComponent(),
		Ref:       n.RefName(),
		Slot:      n.SlotName(),
	}
	if n.IsElement() {
		out.Tag = n.Tag()
	} else {
		out.Value = n.Value()
	}
	if attrs := n.Attrs(); len(attrs) > 0 {
		out.Attrs = make(map[string]string, len(attrs))
		for _, a := range attrs {
			out.Attrs[a.Name] = a.Value
		}
	}
	for _, d := range n.Directives() {
		out.Directives = append(out.Directives, d.Kind())
	}
	if raw, ok := reactive.Raw(n.Scope().Locals()).(map[string]any); ok && len(raw) > 0 {
		out.Locals = make(map[string]any, len(raw))
		for k, v := range raw {
			out.Locals[k] = safeValue(v)
		}
	}

	// Recurse into children (with depth limit)
	if depth < maxTreeDepth {
		for _, c := range n.Children() {
			out.Children = append(out.Children, Serialize(c, depth+1))
		}
	}
	return out
}

// safeValue converts a local to a JSON-safe value.
// Non-serializable types (funcs, chans, nodes) are converted to their string representation.
func safeValue(v any) any {
	switch x := v.(type) {
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return v
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = safeValue(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			out[k] = safeValue(item)
		}
		return out
	default:
		return fmt.Sprintf("%T", v)
	}
}

func newSessionID() string {
	return uuid.Must(uuid.NewV7()).String()
}
