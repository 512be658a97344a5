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
	"errors"
	"reflect"
	"testing"

	"github.com/go-logr/logr"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"k8s.io/client-go/tools/clientcmd"
	clientcmdapi "k8s.io/client-go/tools/clientcmd/api"
	"k8s.io/client-go/tools/record"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/reconcile"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
	"github.com/dc-tec/vcluster-argocd-enroller/internal/enroll"
	enrollerrors "github.com/dc-tec/vcluster-argocd-enroller/internal/errors"
)

var testScheme = func() *runtime.Scheme {
	scheme := runtime.NewScheme()
	_ = clientgoscheme.AddToScheme(scheme)
	return scheme
}()

var testSelector = labels.SelectorFromSet(labels.Set{
	constants.LabelVClusterApp: constants.LabelValueVClusterApp,
})

func newTestClient(t *testing.T, objs ...client.Object) client.Client {
	t.Helper()
	builder := fake.NewClientBuilder().WithScheme(testScheme)
	if len(objs) > 0 {
		builder = builder.WithObjects(objs...)
	}
	return builder.Build()
}

func newTestReconciler(c client.Client) *VClusterReconciler {
	return &VClusterReconciler{
		Client:   c,
		Scheme:   testScheme,
		Enroller: enroll.New(c, "argocd", logr.Discard()),
		Recorder: record.NewFakeRecorder(8),
		Selector: testSelector,
	}
}

func vclusterStatefulSet(instanceName, namespace string) *appsv1.StatefulSet {
	return &appsv1.StatefulSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "vcluster-" + instanceName,
			Namespace: namespace,
			Labels: map[string]string{
				constants.LabelVClusterApp: constants.LabelValueVClusterApp,
			},
		},
	}
}

func vclusterSourceSecret(t *testing.T, instanceName, namespace, server string) *corev1.Secret {
	t.Helper()
	cfg := clientcmdapi.NewConfig()
	cfg.Clusters["my-vcluster"] = &clientcmdapi.Cluster{
		Server:                   server,
		CertificateAuthorityData: []byte("ca-pem"),
	}
	cfg.AuthInfos["my-vcluster"] = &clientcmdapi.AuthInfo{
		ClientCertificateData: []byte("cert-pem"),
		ClientKeyData:         []byte("key-pem"),
	}
	cfg.Contexts["my-vcluster"] = &clientcmdapi.Context{Cluster: "my-vcluster", AuthInfo: "my-vcluster"}
	cfg.CurrentContext = "my-vcluster"

	raw, err := clientcmd.Write(*cfg)
	if err != nil {
		t.Fatalf("failed to serialize kubeconfig: %v", err)
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "vc-" + instanceName,
			Namespace: namespace,
		},
		Data: map[string][]byte{
			constants.SourceKeyKubeConfig: raw,
		},
	}
}

func requestFor(sts *appsv1.StatefulSet) reconcile.Request {
	return reconcile.Request{
		NamespacedName: types.NamespacedName{
			Namespace: sts.Namespace,
			Name:      sts.Name,
		},
	}
}

func TestVClusterReconcile_EnrollsInstance(t *testing.T) {
	ctx := context.Background()
	sts := vclusterStatefulSet("demo", "vcluster-system")
	source := vclusterSourceSecret(t, "demo", "vcluster-system", "https://vc-demo.svc:443")

	c := newTestClient(t, sts, source)
	reconciler := newTestReconciler(c)

	result, err := reconciler.Reconcile(ctx, requestFor(sts))
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.RequeueAfter != 0 {
		t.Errorf("Reconcile() should not request a delayed requeue, got %v", result.RequeueAfter)
	}

	clusterSecret := &corev1.Secret{}
	err = c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, clusterSecret)
	if err != nil {
		t.Fatalf("expected cluster secret to exist: %v", err)
	}
	if got := clusterSecret.Labels[constants.LabelArgoCDSecretType]; got != "cluster" {
		t.Errorf("cluster secret label %s = %q, want %q", constants.LabelArgoCDSecretType, got, "cluster")
	}
	if got := string(clusterSecret.Data[constants.ClusterSecretKeyServer]); got != "https://vc-demo.svc:443" {
		t.Errorf("cluster secret server = %q, want https://vc-demo.svc:443", got)
	}
}

func TestVClusterReconcile_Idempotent(t *testing.T) {
	ctx := context.Background()
	sts := vclusterStatefulSet("demo", "vcluster-system")
	source := vclusterSourceSecret(t, "demo", "vcluster-system", "https://vc-demo.svc:443")

	c := newTestClient(t, sts, source)
	reconciler := newTestReconciler(c)
	req := requestFor(sts)

	if _, err := reconciler.Reconcile(ctx, req); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	first := &corev1.Secret{}
	if err := c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, first); err != nil {
		t.Fatalf("expected cluster secret after first reconcile: %v", err)
	}

	if _, err := reconciler.Reconcile(ctx, req); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}
	second := &corev1.Secret{}
	if err := c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, second); err != nil {
		t.Fatalf("expected cluster secret after second reconcile: %v", err)
	}

	if !reflect.DeepEqual(first.Data, second.Data) {
		t.Error("repeated reconciliation changed the cluster secret payload")
	}
	if !reflect.DeepEqual(first.Labels, second.Labels) {
		t.Error("repeated reconciliation changed the cluster secret labels")
	}
}

func TestVClusterReconcile_SourceSecretNotYetWritten(t *testing.T) {
	ctx := context.Background()
	sts := vclusterStatefulSet("demo", "vcluster-system")

	c := newTestClient(t, sts)
	reconciler := newTestReconciler(c)

	result, err := reconciler.Reconcile(ctx, requestFor(sts))
	if err != nil {
		t.Fatalf("Reconcile() error = %v, want requeue without error", err)
	}
	if result.RequeueAfter != constants.RequeueShort {
		t.Errorf("Reconcile() RequeueAfter = %v, want %v", result.RequeueAfter, constants.RequeueShort)
	}

	err = c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, &corev1.Secret{})
	if err == nil {
		t.Error("no cluster secret should be written while the source is missing")
	}
}

func TestVClusterReconcile_MalformedSourceIsTerminal(t *testing.T) {
	ctx := context.Background()
	sts := vclusterStatefulSet("demo", "vcluster-system")
	source := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "vc-demo",
			Namespace: "vcluster-system",
		},
		Data: map[string][]byte{
			constants.SourceKeyKubeConfig: []byte("{{{not a kubeconfig"),
		},
	}

	c := newTestClient(t, sts, source)
	reconciler := newTestReconciler(c)

	result, err := reconciler.Reconcile(ctx, requestFor(sts))
	if err == nil {
		t.Fatal("Reconcile() should surface a terminal error for malformed source config")
	}
	if !errors.Is(err, reconcile.TerminalError(nil)) {
		t.Errorf("Reconcile() error should be terminal, got %v", err)
	}
	if !errors.Is(err, enrollerrors.ErrMalformedSourceConfig) {
		t.Errorf("Reconcile() error should carry the malformed-source classification, got %v", err)
	}
	if result.RequeueAfter != 0 {
		t.Errorf("Reconcile() should not schedule a requeue for permanent failures, got %v", result.RequeueAfter)
	}

	getErr := c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, &corev1.Secret{})
	if getErr == nil {
		t.Error("the writer must never run when extraction fails")
	}
}

func TestVClusterReconcile_StatefulSetDeleted(t *testing.T) {
	ctx := context.Background()
	clusterSecret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "vcluster-demo", Namespace: "argocd"},
	}

	c := newTestClient(t, clusterSecret)
	reconciler := newTestReconciler(c)

	result, err := reconciler.Reconcile(ctx, reconcile.Request{
		NamespacedName: types.NamespacedName{Namespace: "vcluster-system", Name: "vcluster-demo"},
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if result.RequeueAfter != 0 {
		t.Errorf("Reconcile() should not requeue after cleanup, got %v", result.RequeueAfter)
	}

	err = c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, &corev1.Secret{})
	if err == nil {
		t.Error("cluster secret should be removed when the StatefulSet is gone")
	}
}

func TestVClusterReconcile_StatefulSetDeletedNoSecret(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)
	reconciler := newTestReconciler(c)

	_, err := reconciler.Reconcile(ctx, reconcile.Request{
		NamespacedName: types.NamespacedName{Namespace: "vcluster-system", Name: "vcluster-demo"},
	})
	if err != nil {
		t.Fatalf("Reconcile() must tolerate cleanup of an absent secret, got %v", err)
	}
}

func TestVClusterReconcile_LabelRemovedUnenrolls(t *testing.T) {
	ctx := context.Background()
	sts := vclusterStatefulSet("demo", "vcluster-system")
	sts.Labels = map[string]string{}
	clusterSecret := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: "vcluster-demo", Namespace: "argocd"},
	}

	c := newTestClient(t, sts, clusterSecret)
	reconciler := newTestReconciler(c)

	if _, err := reconciler.Reconcile(ctx, requestFor(sts)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	err := c.Get(ctx, types.NamespacedName{Namespace: "argocd", Name: "vcluster-demo"}, &corev1.Secret{})
	if err == nil {
		t.Error("cluster secret should be removed when the vcluster label is gone")
	}
}
