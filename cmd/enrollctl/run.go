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

// Package enrollctl implements the manual entry points: one-shot enrollment,
// unenrollment, and a status listing of vCluster instances. These commands
// run outside the controller manager against the ambient kubeconfig.
package enrollctl

import (
	"context"
	"flag"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/config"
	"github.com/dc-tec/vcluster-argocd-enroller/internal/enroll"
	"github.com/dc-tec/vcluster-argocd-enroller/internal/kube"
)

// RunEnroll performs a one-shot enrollment of a single vCluster instance.
func RunEnroll(args []string) error {
	fs := flag.NewFlagSet("enroll", flag.ExitOnError)
	namespace := fs.String("namespace", "default", "Namespace where the vCluster is deployed.")
	force := fs.Bool("force", false, "Re-enroll even if the cluster secret already exists.")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: enroll [flags] <vcluster-name>")
	}
	instanceName := fs.Arg(0)

	c, err := kube.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.FromEnvironment()
	enroller := enroll.New(c, cfg.ArgoCDNamespace, logr.Discard())

	if !*force {
		existing := &corev1.Secret{}
		err := c.Get(ctx, types.NamespacedName{
			Namespace: cfg.ArgoCDNamespace,
			Name:      enroll.ClusterSecretName(instanceName),
		}, existing)
		if err == nil {
			fmt.Printf("vCluster %s already enrolled in ArgoCD (use --force to re-enroll)\n", instanceName)
			return nil
		}
		if !apierrors.IsNotFound(err) {
			return fmt.Errorf("failed to check existing cluster secret: %w", err)
		}
	}

	if err := enroller.Enroll(ctx, instanceName, *namespace); err != nil {
		return fmt.Errorf("failed to enroll vCluster %s: %w", instanceName, err)
	}

	fmt.Printf("Enrolled vCluster %s in ArgoCD namespace %s\n", instanceName, cfg.ArgoCDNamespace)
	return nil
}

// RunUnenroll removes a vCluster's registration from ArgoCD. Tolerant of
// absence, like the operator's cleanup path.
func RunUnenroll(args []string) error {
	fs := flag.NewFlagSet("unenroll", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: unenroll <vcluster-name>")
	}
	instanceName := fs.Arg(0)

	c, err := kube.GetClient()
	if err != nil {
		return err
	}

	cfg := config.FromEnvironment()
	enroller := enroll.New(c, cfg.ArgoCDNamespace, logr.Discard())

	if err := enroller.Unenroll(context.Background(), instanceName); err != nil {
		return fmt.Errorf("failed to unenroll vCluster %s: %w", instanceName, err)
	}

	fmt.Printf("Removed vCluster %s from ArgoCD namespace %s\n", instanceName, cfg.ArgoCDNamespace)
	return nil
}

// RunCheck lists vCluster StatefulSets and their enrollment status.
func RunCheck(args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	namespace := fs.String("namespace", "", "Namespace to check (default: all namespaces).")
	if err := fs.Parse(args); err != nil {
		return err
	}

	c, err := kube.GetClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	cfg := config.FromEnvironment()
	selector, err := cfg.Selector()
	if err != nil {
		return err
	}

	list := &appsv1.StatefulSetList{}
	listOpts := []client.ListOption{client.MatchingLabelsSelector{Selector: selector}}
	if *namespace != "" {
		listOpts = append(listOpts, client.InNamespace(*namespace))
	}
	if err := c.List(ctx, list, listOpts...); err != nil {
		return fmt.Errorf("failed to list vCluster StatefulSets: %w", err)
	}

	if len(list.Items) == 0 {
		fmt.Println("No vClusters found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	fmt.Fprintln(w, "NAMESPACE\tVCLUSTER\tREADY\tSOURCE SECRET\tARGOCD SECRET")
	for i := range list.Items {
		sts := &list.Items[i]
		instanceName := enroll.InstanceName(sts.Name)

		replicas := int32(1)
		if sts.Spec.Replicas != nil {
			replicas = *sts.Spec.Replicas
		}

		fmt.Fprintf(w, "%s\t%s\t%d/%d\t%s\t%s\n",
			sts.Namespace,
			instanceName,
			sts.Status.ReadyReplicas,
			replicas,
			secretStatus(ctx, c, sts.Namespace, enroll.SourceSecretName(instanceName)),
			secretStatus(ctx, c, cfg.ArgoCDNamespace, enroll.ClusterSecretName(instanceName)),
		)
	}
	return w.Flush()
}

func secretStatus(ctx context.Context, c client.Client, namespace, name string) string {
	secret := &corev1.Secret{}
	if err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, secret); err != nil {
		return "missing"
	}
	return "present"
}
