// Package config resolves the enroller's runtime configuration from the
// environment. Flags may override individual values in the cmd layer.
package config

import (
	"fmt"
	"os"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
)

// Defaults used when the corresponding environment variable is unset.
const (
	DefaultArgoCDNamespace = "argocd"
	DefaultLabelSelector   = "app=vcluster"
)

// Config carries the operator-wide settings.
type Config struct {
	// ArgoCDNamespace is where cluster registration secrets are written.
	ArgoCDNamespace string

	// VClusterLabelSelector identifies the StatefulSets backing vCluster
	// instances, in standard label selector syntax.
	VClusterLabelSelector string
}

// FromEnvironment builds a Config from environment variables, falling back to
// the documented defaults.
func FromEnvironment() Config {
	cfg := Config{
		ArgoCDNamespace:       os.Getenv(constants.EnvArgoCDNamespace),
		VClusterLabelSelector: os.Getenv(constants.EnvVClusterLabelSelector),
	}
	if cfg.ArgoCDNamespace == "" {
		cfg.ArgoCDNamespace = DefaultArgoCDNamespace
	}
	if cfg.VClusterLabelSelector == "" {
		cfg.VClusterLabelSelector = DefaultLabelSelector
	}
	return cfg
}

// Selector parses the configured vCluster label selector.
func (c Config) Selector() (labels.Selector, error) {
	selector, err := labels.Parse(c.VClusterLabelSelector)
	if err != nil {
		return nil, fmt.Errorf("invalid vcluster label selector %q: %w", c.VClusterLabelSelector, err)
	}
	return selector, nil
}
