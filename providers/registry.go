package providers

// Registry holds the configured adapter per provider ID.
type Registry struct {
	adapters map[ID]Adapter
}

// NewRegistry builds a registry with every built-in adapter.
func NewRegistry() *Registry {
	r := &Registry{adapters: make(map[ID]Adapter)}
	r.Register(NewOpenAI(""))
	r.Register(NewTogetherAI())
	r.Register(NewGroq())
	r.Register(NewAnthropic())
	r.Register(NewBedrock(""))
	r.Register(NewGemini(""))
	r.Register(NewMistralAI())
	r.Register(NewMistralCodestral())
	return r
}

// NewEmptyRegistry builds a registry with no adapters. Tests register fakes.
func NewEmptyRegistry() *Registry {
	return &Registry{adapters: make(map[ID]Adapter)}
}

// Register adds or replaces the adapter for its provider ID.
func (r *Registry) Register(a Adapter) {
	r.adapters[a.ID()] = a
}

// Get returns the adapter for the given provider ID.
func (r *Registry) Get(id ID) (Adapter, bool) {
	a, ok := r.adapters[id]
	return a, ok
}

// IDs returns the registered provider IDs.
func (r *Registry) IDs() []ID {
	ids := make([]ID, 0, len(r.adapters))
	for id := range r.adapters {
		ids = append(ids, id)
	}
	return ids
}
