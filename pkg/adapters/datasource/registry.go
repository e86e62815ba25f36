package datasource

import (
	"sort"
	"sync"

	"github.com/ekaya-inc/ekaya-checkpoint/pkg/models"
)

// DatasourceAdapterInfo describes a registered engine.
type DatasourceAdapterInfo struct {
	Type        models.DBType `json:"type"`         // "oracle", "mssql"
	DisplayName string        `json:"display_name"` // "Oracle", "SQL Server"
	Description string        `json:"description"`
	DefaultPort int           `json:"default_port"`
}

// DatasourceAdapterRegistration pairs engine info with its connector.
type DatasourceAdapterRegistration struct {
	Info      DatasourceAdapterInfo
	Connector Connector
}

// Registry maps engine types to connectors. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	regs map[models.DBType]DatasourceAdapterRegistration
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{regs: make(map[models.DBType]DatasourceAdapterRegistration)}
}

var defaultRegistry = NewRegistry()

// DefaultRegistry returns the registry populated by each engine package's init().
func DefaultRegistry() *Registry {
	return defaultRegistry
}

// Register is called by each engine package's init() function.
// Thread-safe for concurrent init() calls.
func Register(reg DatasourceAdapterRegistration) {
	defaultRegistry.Register(reg)
}

// Register adds or replaces the registration for reg.Info.Type.
func (r *Registry) Register(reg DatasourceAdapterRegistration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.regs[reg.Info.Type] = reg
}

// Lookup returns the registration for an engine type.
func (r *Registry) Lookup(dbType models.DBType) (DatasourceAdapterRegistration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.regs[dbType]
	return reg, ok
}

// IsRegistered checks if an engine type has a connector.
func (r *Registry) IsRegistered(dbType models.DBType) bool {
	_, ok := r.Lookup(dbType)
	return ok
}

// RegisteredAdapters returns info for all registered engines, ordered by type.
func (r *Registry) RegisteredAdapters() []DatasourceAdapterInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]DatasourceAdapterInfo, 0, len(r.regs))
	for _, reg := range r.regs {
		result = append(result, reg.Info)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Type < result[j].Type })
	return result
}
