package core

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
)

// registry holds every compiled-in module, keyed by ID. Modules add
// themselves from init(), so the set is fixed before main runs.
type registry struct {
	mu    sync.RWMutex
	infos map[ModuleID]ModuleInfo
}

var defaultRegistry = &registry{infos: make(map[ModuleID]ModuleInfo)}

func (r *registry) add(info ModuleInfo) error {
	switch {
	case info.ID == "":
		return fmt.Errorf("core: module ID must not be empty")
	case info.New == nil:
		return fmt.Errorf("core: module %s: New must not be nil", info.ID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.infos[info.ID]; exists {
		return fmt.Errorf("core: module already registered: %s", info.ID)
	}
	r.infos[info.ID] = info
	return nil
}

// sorted returns the modules keep accepts, ordered by ID.
func (r *registry) sorted(keep func(ModuleInfo) bool) []ModuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]ModuleInfo, 0, len(r.infos))
	for _, info := range r.infos {
		if keep == nil || keep(info) {
			out = append(out, info)
		}
	}
	slices.SortFunc(out, func(a, b ModuleInfo) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// RegisterModule records instance's ModuleInfo in the global registry. It
// panics on an empty ID, a nil constructor, or a duplicate ID, since all
// three are programming errors caught at process start.
func RegisterModule(instance Module) {
	if err := defaultRegistry.add(instance.ModuleInfo()); err != nil {
		panic(err)
	}
}

// GetModule returns the ModuleInfo for the given ID, or false if not found.
func GetModule(id string) (ModuleInfo, bool) {
	defaultRegistry.mu.RLock()
	defer defaultRegistry.mu.RUnlock()
	info, ok := defaultRegistry.infos[ModuleID(id)]
	return info, ok
}

// GetModules returns all registered modules sorted by ID.
func GetModules() []ModuleInfo {
	return defaultRegistry.sorted(nil)
}

// GetModulesByNamespace returns the modules under namespace, sorted by ID:
// "ledger" yields ledger.memory, ledger.redis and ledger.sqlite.
func GetModulesByNamespace(namespace string) []ModuleInfo {
	return defaultRegistry.sorted(func(info ModuleInfo) bool {
		return info.ID.Namespace() == namespace && string(info.ID) != namespace
	})
}

// resetRegistry clears the registry. Only for testing.
func resetRegistry() {
	defaultRegistry.mu.Lock()
	defer defaultRegistry.mu.Unlock()
	defaultRegistry.infos = make(map[ModuleID]ModuleInfo)
}
