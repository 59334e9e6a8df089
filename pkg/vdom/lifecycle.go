package vdom

// Lifecycle notifications dispatched on a node's hub.
const (
	EventCreated          = "created"
	EventMounted          = "mounted"
	EventBeforeInitialize = "beforeInitialize"
	EventInitialized      = "initialized"
	EventBeforeUpdate     = "beforeUpdate"
	EventUpdated          = "updated"
	EventBeforeDestroy    = "beforeDestroy"
	EventDestroyed        = "destroyed"
)

var lifecycleEvents = map[string]bool{
	EventCreated:          true,
	EventMounted:          true,
	EventBeforeInitialize: true,
	EventInitialized:      true,
	EventBeforeUpdate:     true,
	EventUpdated:          true,
	EventBeforeDestroy:    true,
	EventDestroyed:        true,
}

// IsLifecycle reports whether name is a lifecycle notification rather than a
// host event.
func IsLifecycle(name string) bool {
	return lifecycleEvents[name]
}

// Event is delivered to node hub handlers.
type Event struct {
	Name string
	Node *Node
	// Data is the host payload of host events and nil for lifecycle
	// notifications.
	Data any
}

// On subscribes fn to name on n. Names that are not lifecycle notifications
// are host events: a host listener forwarding to the hub is installed on the
// current host representation and on every later one.
func (n *Node) On(name string, fn func(Event)) (off func()) {
	off = n.hub.On(name, fn)
	if !IsLifecycle(name) && name != "any" {
		n.installListener(name)
	}
	return off
}

// Emit dispatches a notification on n's hub.
func (n *Node) Emit(name string, data any) {
	n.emit(name, data)
}

func (n *Node) emit(name string, data any) {
	n.hub.Dispatch(name, Event{Name: name, Node: n, Data: data})
}

// Update brackets fn with beforeUpdate and updated notifications.
func (n *Node) Update(fn func()) {
	n.emit(EventBeforeUpdate, nil)
	fn()
	n.emit(EventUpdated, nil)
}

func (n *Node) installListeners() {
	for _, name := range n.hub.Names() {
		if !IsLifecycle(name) && name != "any" {
			n.installListener(name)
		}
	}
}

func (n *Node) installListener(name string) {
	if n.handle == nil || !n.visible || n.kind != KindElement {
		return
	}
	if _, ok := n.hostOffs[name]; ok {
		return
	}
	if n.hostOffs == nil {
		n.hostOffs = make(map[string]func())
	}
	n.hostOffs[name] = n.doc.host.AddListener(n.handle, name, func(data any) {
		n.emit(name, data)
	})
}

// OnDispose registers cleanup to run when n is destroyed. Cleanups run in
// reverse registration order, once. The returned function unregisters
// cleanup. Registering on a destroyed node runs cleanup immediately.
func (n *Node) OnDispose(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}
	if n.destroyed {
		cleanup()
		return func() {}
	}
	index := len(n.disposers)
	n.disposers = append(n.disposers, cleanup)
	return func() {
		if index < len(n.disposers) {
			n.disposers[index] = nil
		}
	}
}

func (n *Node) runDisposers() {
	for i := len(n.disposers) - 1; i >= 0; i-- {
		if n.disposers[i] != nil {
			n.disposers[i]()
		}
	}
	n.disposers = nil
}
