package config

import (
	"testing"

	"k8s.io/apimachinery/pkg/labels"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
)

func TestFromEnvironment_Defaults(t *testing.T) {
	t.Setenv(constants.EnvArgoCDNamespace, "")
	t.Setenv(constants.EnvVClusterLabelSelector, "")

	cfg := FromEnvironment()

	if cfg.ArgoCDNamespace != DefaultArgoCDNamespace {
		t.Errorf("ArgoCDNamespace = %q, want %q", cfg.ArgoCDNamespace, DefaultArgoCDNamespace)
	}
	if cfg.VClusterLabelSelector != DefaultLabelSelector {
		t.Errorf("VClusterLabelSelector = %q, want %q", cfg.VClusterLabelSelector, DefaultLabelSelector)
	}
}

func TestFromEnvironment_Overrides(t *testing.T) {
	t.Setenv(constants.EnvArgoCDNamespace, "gitops")
	t.Setenv(constants.EnvVClusterLabelSelector, "release=vcluster,env=prod")

	cfg := FromEnvironment()

	if cfg.ArgoCDNamespace != "gitops" {
		t.Errorf("ArgoCDNamespace = %q, want gitops", cfg.ArgoCDNamespace)
	}
	if cfg.VClusterLabelSelector != "release=vcluster,env=prod" {
		t.Errorf("VClusterLabelSelector = %q, want the override", cfg.VClusterLabelSelector)
	}
}

func TestSelector_Parses(t *testing.T) {
	cfg := Config{VClusterLabelSelector: DefaultLabelSelector}

	selector, err := cfg.Selector()
	if err != nil {
		t.Fatalf("Selector() error = %v", err)
	}

	if !selector.Matches(labels.Set{"app": "vcluster"}) {
		t.Error("default selector should match app=vcluster")
	}
	if selector.Matches(labels.Set{"app": "postgres"}) {
		t.Error("default selector should not match app=postgres")
	}
}

func TestSelector_Invalid(t *testing.T) {
	cfg := Config{VClusterLabelSelector: "app==&&bad"}

	if _, err := cfg.Selector(); err == nil {
		t.Error("Selector() should reject invalid selector syntax")
	}
}
