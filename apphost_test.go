package apphost

import (
	"context"
	"testing"

	"github.com/bft-labs/apphost/pkg/host"
	"github.com/bft-labs/apphost/pkg/lifecycle"
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

type facadeEnv struct{ token *shutdown.Token }

func (e facadeEnv) Log() log.Logger                { return log.NewNoopLogger() }
func (e facadeEnv) Identity() Identity             { return Identity{Application: "facade"} }
func (e facadeEnv) Beacon() host.Beacon            { return nil }
func (e facadeEnv) ShutdownToken() *shutdown.Token { return e.token }
func (e facadeEnv) Close() error                   { return nil }

func TestNew_RunsApplication(t *testing.T) {
	ran := false
	h, err := New(Settings{
		Application: ApplicationFuncs{
			RunFunc: func(ctx context.Context, env Environment) error {
				ran = true
				return nil
			},
		},
		EnvironmentFactory: func(token *shutdown.Token) (Environment, error) {
			return facadeEnv{token: token}, nil
		},
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	result, err := h.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Status != lifecycle.ApplicationExited {
		t.Errorf("Status = %v, want ApplicationExited", result.Status)
	}
	if !ran {
		t.Error("application did not run")
	}
}

func TestModuleVersions(t *testing.T) {
	versions := ModuleVersions()
	for _, name := range []string{"host", "lifecycle", "environment"} {
		if versions[name] == "" {
			t.Errorf("ModuleVersions()[%q] is empty", name)
		}
	}
}
