// Package enroll contains the core enrollment pipeline: extract a vCluster's
// access configuration from its credential secret, synthesize the ArgoCD
// cluster registration secret, and write it idempotently into the ArgoCD
// namespace. Deletion of the workload removes the registration again.
package enroll

import (
	"context"
	"strings"

	"github.com/go-logr/logr"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
)

// Enroller performs enrollment operations against a single target namespace.
// It holds no per-instance state; all methods are safe for concurrent use as
// long as the workqueue serializes reconciliations per instance.
type Enroller struct {
	client          client.Client
	targetNamespace string
	logger          logr.Logger
}

// New creates an Enroller writing cluster secrets into targetNamespace.
func New(c client.Client, targetNamespace string, logger logr.Logger) *Enroller {
	return &Enroller{
		client:          c,
		targetNamespace: targetNamespace,
		logger:          logger,
	}
}

// TargetNamespace returns the namespace cluster secrets are written to.
func (e *Enroller) TargetNamespace() string {
	return e.targetNamespace
}

// Enroll runs the full pipeline for one vCluster instance: read and parse the
// source credential secret, build the ArgoCD cluster secret, and create or
// replace it. Returned errors are classified (see internal/errors); the
// cluster secret is never written unless extraction and synthesis succeeded.
func (e *Enroller) Enroll(ctx context.Context, instanceName, namespace string) error {
	access, err := e.ExtractAccessConfig(ctx, instanceName, namespace)
	if err != nil {
		return err
	}

	desired, err := SynthesizeClusterSecret(access, instanceName, e.targetNamespace)
	if err != nil {
		return err
	}

	return e.WriteClusterSecret(ctx, desired)
}

// InstanceName recovers the vCluster instance name from its StatefulSet name.
// The vCluster chart names the workload "vcluster-<instance>"; bare names are
// passed through unchanged.
func InstanceName(statefulSetName string) string {
	if rest, ok := strings.CutPrefix(statefulSetName, constants.PrefixStatefulSet); ok && rest != "" {
		return rest
	}
	return statefulSetName
}

// SourceSecretName returns the name of the secret vCluster writes for an
// instance. A pure function of the instance name.
func SourceSecretName(instanceName string) string {
	return constants.PrefixSourceSecret + instanceName
}

// ClusterSecretName returns the name of the ArgoCD cluster secret for an
// instance. A pure function of the instance name.
func ClusterSecretName(instanceName string) string {
	return constants.PrefixClusterSecret + instanceName
}
