package core

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

// lifecycleModule records which lifecycle steps LoadModule ran and what
// configuration it was handed.
type lifecycleModule struct {
	id    ModuleID
	steps *[]string

	bind         string
	configErr    error
	provisionErr error
	validateErr  error
}

func (m *lifecycleModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{
		ID: m.id,
		New: func() Module {
			cp := *m
			return &cp
		},
	}
}

func (m *lifecycleModule) Configure(node *yaml.Node) error {
	*m.steps = append(*m.steps, "configure")
	if m.configErr != nil {
		return m.configErr
	}
	var cfg struct {
		Bind string `yaml:"bind"`
	}
	if err := node.Decode(&cfg); err != nil {
		return err
	}
	m.bind = cfg.Bind
	return nil
}

func (m *lifecycleModule) Provision(ctx *AppContext) error {
	*m.steps = append(*m.steps, "provision")
	if m.provisionErr == nil {
		ctx.RegisterService("probe:"+string(m.id), m)
	}
	return m.provisionErr
}

func (m *lifecycleModule) Validate() error {
	*m.steps = append(*m.steps, "validate")
	return m.validateErr
}

// plainModule implements none of the optional lifecycle interfaces.
type plainModule struct{ id ModuleID }

func (m plainModule) ModuleInfo() ModuleInfo {
	return ModuleInfo{ID: m.id, New: func() Module { return m }}
}

func configs(t *testing.T, entries map[string]string) map[string]yaml.Node {
	t.Helper()
	out := make(map[string]yaml.Node, len(entries))
	for id, src := range entries {
		var doc yaml.Node
		if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
			t.Fatalf("yaml for %s: %v", id, err)
		}
		out[id] = *doc.Content[0]
	}
	return out
}

func TestAppContext_LoadModule(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name      string
		mod       lifecycleModule
		config    map[string]string
		wantSteps []string
		wantErr   string
		wantBind  string
	}{
		{
			name:      "configured",
			mod:       lifecycleModule{id: "gateway.http"},
			config:    map[string]string{"gateway.http": "bind: 127.0.0.1:3000"},
			wantSteps: []string{"configure", "provision", "validate"},
			wantBind:  "127.0.0.1:3000",
		},
		{
			name:      "no entry skips configure",
			mod:       lifecycleModule{id: "ledger.memory"},
			wantSteps: []string{"provision", "validate"},
		},
		{
			name:      "configure error",
			mod:       lifecycleModule{id: "gateway.http", configErr: boom},
			config:    map[string]string{"gateway.http": "bind: x"},
			wantSteps: []string{"configure"},
			wantErr:   "configuring module gateway.http",
		},
		{
			name:      "provision error",
			mod:       lifecycleModule{id: "ledger.redis", provisionErr: boom},
			wantSteps: []string{"provision"},
			wantErr:   "provisioning module ledger.redis",
		},
		{
			name:      "validate error",
			mod:       lifecycleModule{id: "channel.slack", validateErr: boom},
			wantSteps: []string{"provision", "validate"},
			wantErr:   "validating module channel.slack",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Cleanup(resetRegistry)

			var steps []string
			proto := tt.mod
			proto.steps = &steps
			RegisterModule(&proto)

			ctx := NewAppContext(nil, "/data").WithModuleConfigs(configs(t, tt.config))
			mod, err := ctx.LoadModule(string(tt.mod.id))

			if strings.Join(steps, ",") != strings.Join(tt.wantSteps, ",") {
				t.Errorf("steps = %v, want %v", steps, tt.wantSteps)
			}
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want %q", err, tt.wantErr)
				}
				if !errors.Is(err, boom) {
					t.Errorf("err should wrap the module error: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadModule: %v", err)
			}
			if got := mod.(*lifecycleModule).bind; got != tt.wantBind {
				t.Errorf("bind = %q, want %q", got, tt.wantBind)
			}
			if _, ok := ctx.Service("probe:" + string(tt.mod.id)); !ok {
				t.Error("service registered during Provision should be visible on the root context")
			}
		})
	}
}

func TestAppContext_LoadModule_UnknownID(t *testing.T) {
	t.Cleanup(resetRegistry)

	if _, err := NewAppContext(nil, "/data").LoadModule("ledger.etcd"); err == nil {
		t.Fatal("expected error for unknown module")
	}
}

func TestAppContext_LoadModule_ConfigIgnoredWhenNotConfigurable(t *testing.T) {
	t.Cleanup(resetRegistry)
	RegisterModule(plainModule{id: "router"})

	ctx := NewAppContext(nil, "/data").WithModuleConfigs(configs(t, map[string]string{"router": "workers: 4"}))
	if _, err := ctx.LoadModule("router"); err != nil {
		t.Fatalf("LoadModule: %v", err)
	}
}

func TestAppContext_ForModule(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	root := NewAppContext(logger, "/data").WithModuleConfigs(configs(t, map[string]string{"channel.slack": "mode: socket"}))
	child := root.ForModule("channel.slack")
	child.Logger.Info("connected")

	if !strings.Contains(buf.String(), "module=channel.slack") {
		t.Errorf("child logger should carry the module ID: %s", buf.String())
	}
	if _, ok := child.ModuleConfig("channel.slack"); !ok {
		t.Error("child context should keep the module configs")
	}
	if child.DataDir != "/data" {
		t.Errorf("DataDir = %q", child.DataDir)
	}
}

func TestServiceAs(t *testing.T) {
	root := NewAppContext(nil, "/data")
	root.ForModule("gateway.http").RegisterService("gateway.webhook_dispatcher", 42)
	reader := root.ForModule("channel.slack")

	if got, ok := ServiceAs[int](reader, "gateway.webhook_dispatcher"); !ok || got != 42 {
		t.Errorf("ServiceAs[int] = %d, %v; want 42, true", got, ok)
	}
	if _, ok := ServiceAs[string](reader, "gateway.webhook_dispatcher"); ok {
		t.Error("ServiceAs should fail on type mismatch")
	}
	if _, ok := ServiceAs[int](reader, "workflow.ledger"); ok {
		t.Error("ServiceAs should fail on missing service")
	}
}
