package vdom

import "github.com/go-pink/pink/pkg/host"

// Registry maps render tree ids to nodes and host handles to the nodes they
// represent. Framework state is never attached to host objects; lookups in
// both directions go through the registry.
type Registry struct {
	nodes   map[uint64]*Node
	handles map[host.Handle]*Node
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		nodes:   make(map[uint64]*Node),
		handles: make(map[host.Handle]*Node),
	}
}

func (r *Registry) register(n *Node) {
	r.nodes[n.id] = n
}

func (r *Registry) unregister(n *Node) {
	delete(r.nodes, n.id)
	if n.handle != nil && r.handles[n.handle] == n {
		delete(r.handles, n.handle)
	}
}

func (r *Registry) bind(n *Node, h host.Handle) {
	r.handles[h] = n
}

func (r *Registry) unbind(h host.Handle) {
	delete(r.handles, h)
}

// Node returns the node registered under id, or nil.
func (r *Registry) Node(id uint64) *Node {
	return r.nodes[id]
}

// NodeFor returns the node currently represented by h, or nil.
func (r *Registry) NodeFor(h host.Handle) *Node {
	if h == nil {
		return nil
	}
	return r.handles[h]
}

// Handle returns the host handle of the node registered under id.
func (r *Registry) Handle(id uint64) host.Handle {
	if n := r.nodes[id]; n != nil {
		return n.handle
	}
	return nil
}

// Len returns the number of live nodes.
func (r *Registry) Len() int { return len(r.nodes) }
