package host

import (
	"github.com/bft-labs/apphost/pkg/log"
	"github.com/bft-labs/apphost/pkg/shutdown"
)

// Environment is the bundle of constructed dependencies handed to the
// application. The host owns it and closes it exactly once after the run
// result is determined.
type Environment interface {
	Log() log.Logger
	Identity() Identity
	Beacon() Beacon
	ShutdownToken() *shutdown.Token

	// Close releases every resource the environment owns.
	Close() error
}

// EnvironmentFactory builds an Environment around the host's shutdown token.
type EnvironmentFactory func(token *shutdown.Token) (Environment, error)

// Beacon announces the running instance to other processes.
// The host starts it on entering Running and stops it before leaving.
type Beacon interface {
	Start()
	Stop()
}

// Identity names the hosted application instance.
type Identity struct {
	Project     string `json:"project" validate:"required"`
	Subproject  string `json:"subproject,omitempty"`
	Environment string `json:"environment" validate:"required"`
	Application string `json:"application" validate:"required"`
	Instance    string `json:"instance" validate:"required"`
}

// ServiceName returns the name the instance is announced under.
func (id Identity) ServiceName() string {
	if id.Subproject == "" {
		return id.Application
	}
	return id.Subproject + "." + id.Application
}

// Fields returns the identity as log fields.
func (id Identity) Fields() []log.Field {
	fields := []log.Field{
		log.String("project", id.Project),
		log.String("environment", id.Environment),
		log.String("application", id.Application),
		log.String("instance", id.Instance),
	}
	if id.Subproject != "" {
		fields = append(fields, log.String("subproject", id.Subproject))
	}
	return fields
}

type noopBeacon struct{}

func (noopBeacon) Start() {}
func (noopBeacon) Stop()  {}
