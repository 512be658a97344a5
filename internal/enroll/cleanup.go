package enroll

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	enrollerrors "github.com/dc-tec/vcluster-argocd-enroller/internal/errors"
)

// Unenroll deletes the instance's cluster secret from the target namespace.
// Absence is success: the caller is completing a workload deletion and must
// be able to release the workload's finalizer whether or not the derived
// secret still exists. Any other failure is classified retryable, never
// permanent, so the deletion workflow keeps making forward progress.
func (e *Enroller) Unenroll(ctx context.Context, instanceName string) error {
	name := ClusterSecretName(instanceName)

	secret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: e.targetNamespace,
		},
	}

	if err := e.client.Delete(ctx, secret); err != nil {
		if apierrors.IsNotFound(err) {
			e.logger.Info("Cluster secret already absent", "namespace", e.targetNamespace, "name", name)
			return nil
		}
		return enrollerrors.WrapCleanup(
			fmt.Errorf("failed to delete cluster secret %s/%s: %w", e.targetNamespace, name, err))
	}

	e.logger.Info("Deleted cluster secret", "namespace", e.targetNamespace, "name", name)
	return nil
}
