package environment

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/bft-labs/apphost/pkg/host"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ResolveIdentity fills the instance name and validates the identity.
// The instance defaults to the hostname, or a random UUID when the hostname
// cannot be read.
func ResolveIdentity(id host.Identity) (host.Identity, error) {
	if id.Instance == "" {
		id.Instance = defaultInstance()
	}
	if err := validate.Struct(id); err != nil {
		return host.Identity{}, fmt.Errorf("invalid identity: %w", err)
	}
	return id, nil
}

func defaultInstance() string {
	if name, err := os.Hostname(); err == nil && name != "" {
		return name
	}
	return uuid.NewString()
}
