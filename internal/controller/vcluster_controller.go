/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package controller

import (
	"context"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/client-go/util/workqueue"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/enroll"
	enrollerrors "github.com/dc-tec/vcluster-argocd-enroller/internal/errors"
)

// VClusterReconciler reconciles vCluster StatefulSets into ArgoCD cluster
// registration secrets. A live, label-matching StatefulSet maps to exactly
// one cluster secret in the ArgoCD namespace; a removed or unlabeled one
// maps to its absence.
//
// The workqueue serializes reconciliations per StatefulSet key, so the
// enrollment pipeline never runs concurrently for the same instance even
// with MaxConcurrentReconciles > 1.
type VClusterReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Enroller *enroll.Enroller
	Recorder record.EventRecorder

	// Selector identifies vCluster StatefulSets (default app=vcluster).
	Selector labels.Selector
}

// +kubebuilder:rbac:groups=apps,resources=statefulsets,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=secrets,verbs=get;create;update;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch

// Reconcile drives a single vCluster instance toward its desired registration
// state: appeared/resumed/updated runs extract-synthesize-write, removal runs
// cleanup. All failures pass through the classifier before deciding requeue
// behavior.
func (r *VClusterReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx).WithValues(
		"statefulset", req.NamespacedName,
		"controller", "vcluster-enroller",
	)
	instanceName := enroll.InstanceName(req.Name)
	start := time.Now()
	defer func() {
		reconcileDurationHistogram.WithLabelValues(req.Namespace, instanceName).Observe(time.Since(start).Seconds())
	}()

	sts := &appsv1.StatefulSet{}
	if err := r.Get(ctx, req.NamespacedName, sts); err != nil {
		if apierrors.IsNotFound(err) {
			logger.Info("StatefulSet gone; removing cluster secret", "instance", instanceName)
			return r.finish(ctx, logger, nil, instanceName, "unenroll", r.Enroller.Unenroll(ctx, instanceName))
		}
		return ctrl.Result{}, fmt.Errorf("failed to get StatefulSet %s: %w", req.NamespacedName, err)
	}

	if !sts.DeletionTimestamp.IsZero() {
		logger.Info("StatefulSet terminating; removing cluster secret", "instance", instanceName)
		return r.finish(ctx, logger, sts, instanceName, "unenroll", r.Enroller.Unenroll(ctx, instanceName))
	}

	if !r.Selector.Matches(labels.Set(sts.Labels)) {
		// Label removed after a previous enrollment. Treat like deletion.
		logger.Info("StatefulSet no longer matches selector; removing cluster secret", "instance", instanceName)
		return r.finish(ctx, logger, sts, instanceName, "unenroll", r.Enroller.Unenroll(ctx, instanceName))
	}

	logger.Info("Enrolling vCluster instance", "instance", instanceName)
	return r.finish(ctx, logger, sts, instanceName, "enroll", r.Enroller.Enroll(ctx, instanceName, sts.Namespace))
}

// finish maps a classified pipeline error onto the workqueue contract:
// retryable with delay -> RequeueAfter, retryable without -> error (workqueue
// backoff), permanent -> terminal error plus a warning Event so the reason is
// visible to operators.
func (r *VClusterReconciler) finish(ctx context.Context, logger logr.Logger, obj client.Object, instanceName, action string, err error) (ctrl.Result, error) {
	if err == nil {
		enrollmentsTotal.WithLabelValues(action).Inc()
		return ctrl.Result{}, nil
	}

	enrollmentErrorsTotal.WithLabelValues(action, errorClass(err)).Inc()

	if requeue, after := enrollerrors.ShouldRequeue(err); requeue {
		if after > 0 {
			logger.Info("Retryable failure; requeueing", "instance", instanceName, "after", after, "error", err.Error())
			return ctrl.Result{RequeueAfter: after}, nil
		}
		return ctrl.Result{}, err
	}

	logger.Error(err, "Permanent enrollment failure; waiting for intervention", "instance", instanceName)
	if obj != nil && r.Recorder != nil {
		r.Recorder.Event(obj, corev1.EventTypeWarning, "EnrollmentFailed", enrollerrors.Reason(err))
	}
	return ctrl.Result{}, reconcile.TerminalError(err)
}

// errorClass renders the classification for the error metric label.
func errorClass(err error) string {
	if enrollerrors.IsPermanent(err) {
		return "permanent"
	}
	return "retryable"
}

// SetupWithManager sets up the controller with the Manager.
func (r *VClusterReconciler) SetupWithManager(mgr ctrl.Manager) error {
	if r.Selector == nil {
		return fmt.Errorf("selector must be set before registering the controller")
	}

	return ctrl.NewControllerManagedBy(mgr).
		For(&appsv1.StatefulSet{}, builder.WithPredicates(VClusterPredicate(r.Selector))).
		WithOptions(controller.Options{
			MaxConcurrentReconciles: 3,
			RateLimiter:             workqueue.NewTypedItemExponentialFailureRateLimiter[ctrl.Request](1*time.Second, 60*time.Second),
		}).
		Named("vcluster-enroller").
		Complete(r)
}
