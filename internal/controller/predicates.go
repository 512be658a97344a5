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
	appsv1 "k8s.io/api/apps/v1"
	"k8s.io/apimachinery/pkg/api/equality"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/predicate"
)

// VClusterPredicate filters StatefulSet events down to the ones that can
// change enrollment state.
//
// The predicate allows reconciliation when:
//   - A matching StatefulSet is created or deleted
//   - An update touches a StatefulSet that matches the selector before or
//     after the change (the "after" case covers newly labeled workloads,
//     the "before" case covers label removal, which must unenroll)
//   - The Spec changes (detected via Generation change)
//   - DeletionTimestamp is set (triggers cleanup before the object is gone)
//   - ReadyReplicas changes (a restarted vCluster may have rotated its
//     certificates, so the cluster secret is re-derived)
//
// Status-only updates other than ReadyReplicas are filtered out; the
// controller derives the cluster secret from the source secret, not from
// workload status.
func VClusterPredicate(selector labels.Selector) predicate.Predicate {
	matches := func(l map[string]string) bool {
		return selector.Matches(labels.Set(l))
	}

	return predicate.Funcs{
		CreateFunc: func(e event.CreateEvent) bool {
			return matches(e.Object.GetLabels())
		},
		DeleteFunc: func(e event.DeleteEvent) bool {
			return matches(e.Object.GetLabels())
		},
		UpdateFunc: func(e event.UpdateEvent) bool {
			oldMatch := matches(e.ObjectOld.GetLabels())
			newMatch := matches(e.ObjectNew.GetLabels())
			if !oldMatch && !newMatch {
				return false
			}
			if oldMatch != newMatch {
				// Selector membership changed; enroll or unenroll.
				return true
			}

			oldSts, ok := e.ObjectOld.(*appsv1.StatefulSet)
			if !ok {
				return true // If type assertion fails, allow reconciliation to be safe
			}
			newSts, ok := e.ObjectNew.(*appsv1.StatefulSet)
			if !ok {
				return true // If type assertion fails, allow reconciliation to be safe
			}

			// Reconcile if Generation changed (indicates Spec change)
			if oldSts.Generation != newSts.Generation {
				return true
			}

			// Reconcile if DeletionTimestamp changed
			if !oldSts.DeletionTimestamp.Equal(newSts.DeletionTimestamp) {
				return true
			}

			// Reconcile if labels changed (selector membership was already
			// compared, but other label changes may matter downstream)
			if !equality.Semantic.DeepEqual(oldSts.Labels, newSts.Labels) {
				return true
			}

			// Reconcile if ReadyReplicas changed (possible cert rotation)
			if oldSts.Status.ReadyReplicas != newSts.Status.ReadyReplicas {
				return true
			}

			// Filter out other status-only updates
			return false
		},
		GenericFunc: func(e event.GenericEvent) bool {
			return matches(e.Object.GetLabels())
		},
	}
}
