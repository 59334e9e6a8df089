package directive

import (
	"fmt"

	"github.com/go-pink/pink/pkg/vdom"
)

// Directive kind names of the default registry.
const (
	KindComponent     = "component"
	KindRepeat        = "repeat"
	KindRef           = "ref"
	KindBind          = "bind"
	KindEvent         = "event"
	KindConditional   = "conditional"
	KindInterpolation = "interpolation"
)

// ClaimFunc offers n to a directive kind. It reports whether the kind
// attached a directive to n.
type ClaimFunc func(e *Engine, n *vdom.Node) (bool, error)

// Kind is a registered directive kind.
type Kind struct {
	Name string
	// Structural kinds claim their node exclusively.
	Structural bool
	Claim      ClaimFunc
}

// Registry is the ordered list of directive kinds the engine consults.
type Registry struct {
	kinds []Kind
}

// NewRegistry returns a registry holding kinds in order.
func NewRegistry(kinds ...Kind) *Registry {
	return &Registry{kinds: append([]Kind(nil), kinds...)}
}

// Default returns the built-in registry: component, repeat, ref, bind,
// event, conditional, interpolation.
func Default() *Registry {
	return NewRegistry(
		Kind{Name: KindComponent, Structural: true, Claim: claimComponent},
		Kind{Name: KindRepeat, Structural: true, Claim: claimRepeat},
		Kind{Name: KindRef, Claim: claimRef},
		Kind{Name: KindBind, Claim: claimBind},
		Kind{Name: KindEvent, Claim: claimEvent},
		Kind{Name: KindConditional, Claim: claimConditional},
		Kind{Name: KindInterpolation, Claim: claimInterpolation},
	)
}

// Register appends k after the existing kinds.
func (r *Registry) Register(k Kind) {
	r.kinds = append(r.kinds, k)
}

// InsertBefore places k ahead of the kind named before.
func (r *Registry) InsertBefore(before string, k Kind) error {
	for i, existing := range r.kinds {
		if existing.Name == before {
			r.kinds = append(r.kinds[:i], append([]Kind{k}, r.kinds[i:]...)...)
			return nil
		}
	}
	return fmt.Errorf("directive: no kind named %q", before)
}

// Names lists the kind names in priority order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.kinds))
	for i, k := range r.kinds {
		names[i] = k.Name
	}
	return names
}
