package enroll

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
	enrollerrors "github.com/dc-tec/vcluster-argocd-enroller/internal/errors"
)

// WriteClusterSecret creates the cluster secret, or fully replaces it when an
// object of that name already exists. The replace carries the current
// resourceVersion so the API server's optimistic-concurrency check linearizes
// concurrent writers; on conflict the read-replace path is retried a small
// fixed number of times before the error is handed back for workqueue backoff.
//
// Replacement is a full overwrite, not a merge, so data keys from a previous
// schema version do not linger.
func (e *Enroller) WriteClusterSecret(ctx context.Context, desired *corev1.Secret) error {
	err := e.client.Create(ctx, desired.DeepCopy())
	if err == nil {
		e.logger.Info("Created cluster secret", "namespace", desired.Namespace, "name", desired.Name)
		return nil
	}
	if !apierrors.IsAlreadyExists(err) {
		return enrollerrors.ClassifyAPIError(
			fmt.Errorf("failed to create cluster secret %s/%s: %w", desired.Namespace, desired.Name, err))
	}

	for attempt := 0; attempt < constants.ConflictRetryAttempts; attempt++ {
		existing := &corev1.Secret{}
		if err := e.client.Get(ctx, client.ObjectKeyFromObject(desired), existing); err != nil {
			if apierrors.IsNotFound(err) {
				// Deleted between our create and read; take the create path again.
				if err := e.client.Create(ctx, desired.DeepCopy()); err != nil {
					if apierrors.IsAlreadyExists(err) {
						continue
					}
					return enrollerrors.ClassifyAPIError(
						fmt.Errorf("failed to create cluster secret %s/%s: %w", desired.Namespace, desired.Name, err))
				}
				e.logger.Info("Created cluster secret", "namespace", desired.Namespace, "name", desired.Name)
				return nil
			}
			return enrollerrors.ClassifyAPIError(
				fmt.Errorf("failed to get cluster secret %s/%s: %w", desired.Namespace, desired.Name, err))
		}

		replacement := desired.DeepCopy()
		replacement.ResourceVersion = existing.ResourceVersion
		err := e.client.Update(ctx, replacement)
		if err == nil {
			e.logger.Info("Replaced cluster secret", "namespace", desired.Namespace, "name", desired.Name)
			return nil
		}
		if apierrors.IsConflict(err) {
			continue
		}
		return enrollerrors.ClassifyAPIError(
			fmt.Errorf("failed to replace cluster secret %s/%s: %w", desired.Namespace, desired.Name, err))
	}

	return enrollerrors.WrapConflictExhausted(
		fmt.Errorf("kept losing write races for cluster secret %s/%s", desired.Namespace, desired.Name))
}
