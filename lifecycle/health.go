package lifecycle

import (
	"github.com/goccy/go-json"
)

// ModuleHealth is a point-in-time snapshot of one module, shaped for
// external monitoring and CLI tooling.
type ModuleHealth struct {
	State      string `json:"state"`
	Active     bool   `json:"active"`
	HasError   bool   `json:"has_error"`
	LastError  string `json:"last_error,omitempty"`
	StackDepth int    `json:"stack_depth"`
}

// HealthStatus returns a snapshot for every registered module, keyed by
// module name. Active reports whether the module is the registry's
// current module.
func (r *Registry) HealthStatus() map[string]ModuleHealth {
	r.mu.RLock()
	current := r.current
	modules := make([]*Module, 0, r.modules.Len())
	for pair := r.modules.Oldest(); pair != nil; pair = pair.Next() {
		modules = append(modules, pair.Value)
	}
	r.mu.RUnlock()

	status := make(map[string]ModuleHealth, len(modules))
	for _, m := range modules {
		h := ModuleHealth{
			State:      m.State().String(),
			Active:     m == current,
			StackDepth: m.StackDepth(),
		}
		if err := m.LastError(); err != nil {
			h.HasError = true
			h.LastError = err.Error()
		}
		status[m.name] = h
	}
	return status
}

// HealthJSON serializes the health snapshot for monitoring consumers.
func (r *Registry) HealthJSON() ([]byte, error) {
	return json.Marshal(r.HealthStatus())
}
