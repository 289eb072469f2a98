package phase

import (
	"github.com/pkg/errors"
	"k8s.io/apimachinery/pkg/util/sets"

	"github.com/Azure/azure-io500/pkg/config"
)

// Registry is the ordered, immutable list of phases of a benchmark. Order is
// significant: later phases rely on the side effects of earlier ones.
type Registry struct {
	phases []Descriptor
}

// NewRegistry returns a registry with the phases in the given order.
func NewRegistry(phases ...Descriptor) (*Registry, error) {
	names := sets.NewString()
	for _, p := range phases {
		if p.Name == "" {
			return nil, errors.New("phase name is required")
		}
		if names.Has(p.Name) {
			return nil, errors.Errorf("phase %s is registered more than once", p.Name)
		}
		names.Insert(p.Name)

		if !p.Group.valid() {
			return nil, errors.Errorf("phase %s has an invalid group %s", p.Name, p.Group)
		}
		// a scoring phase that never runs would leave a hole in its group
		if p.Group != NoScore && !p.Runnable() {
			return nil, errors.Errorf("phase %s contributes to %s but cannot run", p.Name, p.Group)
		}
	}

	r := &Registry{phases: make([]Descriptor, len(phases))}
	copy(r.phases, phases)
	return r, nil
}

// Phases returns the phases in registry order.
func (r *Registry) Phases() []Descriptor {
	out := make([]Descriptor, len(r.phases))
	copy(out, r.phases)
	return out
}

// Len returns the number of phases.
func (r *Registry) Len() int {
	return len(r.phases)
}

// Names returns the names of the phases in registry order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.phases))
	for _, p := range r.phases {
		names = append(names, p.Name)
	}
	return names
}

// Lookup returns the phase with the given name.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	for _, p := range r.phases {
		if p.Name == name {
			return p, true
		}
	}
	return Descriptor{}, false
}

// InGroup returns the phases of a group, in registry order.
func (r *Registry) InGroup(g Group) []Descriptor {
	var out []Descriptor
	for _, p := range r.phases {
		if p.Group == g {
			out = append(out, p)
		}
	}
	return out
}

// Schema returns the configuration schema made of the options of every
// phase. Phases without options have no section.
func (r *Registry) Schema() config.Schema {
	schema := config.Schema{}
	for _, p := range r.phases {
		if len(p.Options) == 0 {
			continue
		}
		schema = append(schema, config.Section{Name: p.Name, Options: p.Options})
	}
	return schema
}
