// Package core provides the module system foundation for slackapprove.
package core

import "strings"

// ModuleID is a dotted, namespaced module identifier such as
// "channel.slack" or "ledger.redis".
type ModuleID string

// Namespace returns the part of the ID before the first dot: "ledger" for
// "ledger.redis". An ID without a dot is its own namespace.
func (id ModuleID) Namespace() string {
	ns, _, _ := strings.Cut(string(id), ".")
	return ns
}

// ModuleInfo describes a registered module.
type ModuleInfo struct {
	// ID uniquely identifies the module.
	ID ModuleID

	// New returns a fresh, unconfigured instance of the module.
	New func() Module
}

// Module is implemented by every loadable component.
type Module interface {
	ModuleInfo() ModuleInfo
}
