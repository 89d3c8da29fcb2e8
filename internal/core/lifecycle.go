package core

import (
	"context"

	"gopkg.in/yaml.v3"
)

// The lifecycle interfaces below are optional; App and AppContext check for
// each one by type assertion. Order:
//
//	New → Configure → Provision → Validate → Start … Stop
//
// Everything up to Validate happens in LoadModules and must not touch the
// network: "config check" runs it to vet a file. Start is where channel.slack
// calls auth.test and the gateway binds its port.

// Configurable modules decode their section of the "modules" map. Modules
// without a section are not configured at all and must default in Provision.
type Configurable interface {
	Configure(node *yaml.Node) error
}

// Provisioner modules build clients and publish services on the shared
// AppContext (the webhook dispatcher, the decision ledger). Services
// published here are visible to every module loaded after this one and to
// all modules at Start.
type Provisioner interface {
	Provision(ctx *AppContext) error
}

// Validator modules check their configuration. Read-only.
type Validator interface {
	Validate() error
}

// Starter modules launch listeners, connections and goroutines. A failed
// Start stops every module started before it.
type Starter interface {
	Start() error
}

// Stopper modules release resources. Stop runs in reverse start order and
// receives a context carrying the shutdown deadline.
type Stopper interface {
	Stop(ctx context.Context) error
}
