package enroll

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/tools/clientcmd"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
	enrollerrors "github.com/dc-tec/vcluster-argocd-enroller/internal/errors"
)

// AccessConfig is the parsed access configuration of a vCluster instance.
// Ephemeral: recomputed on every reconciliation, never persisted.
type AccessConfig struct {
	// ServerURL is the API endpoint of the virtual cluster.
	ServerURL string

	// PEM-encoded TLS material.
	CAData   []byte
	CertData []byte
	KeyData  []byte

	// Token is a bearer token, usable instead of a client certificate.
	Token string
}

// HasClientCert reports whether the config carries a usable client cert/key pair.
func (a AccessConfig) HasClientCert() bool {
	return len(a.CertData) > 0 && len(a.KeyData) > 0
}

// Validate checks that the config is complete enough to register a cluster:
// a server endpoint plus either a client certificate pair or a bearer token.
func (a AccessConfig) Validate() error {
	if a.ServerURL == "" {
		return enrollerrors.WrapMalformedSourceConfig(fmt.Errorf("access configuration has no server endpoint"))
	}
	if !a.HasClientCert() && a.Token == "" {
		return enrollerrors.WrapMalformedSourceConfig(fmt.Errorf("access configuration has neither client certificate nor token"))
	}
	return nil
}

// ExtractAccessConfig reads the instance's source credential secret and parses
// the embedded kubeconfig out of it. No side effects.
//
// A missing secret is classified as retryable: vCluster writes it only after
// finishing its own certificate bootstrap, so during startup the secret
// routinely trails the StatefulSet by a few seconds.
func (e *Enroller) ExtractAccessConfig(ctx context.Context, instanceName, namespace string) (AccessConfig, error) {
	secretName := SourceSecretName(instanceName)

	secret := &corev1.Secret{}
	err := e.client.Get(ctx, types.NamespacedName{Namespace: namespace, Name: secretName}, secret)
	if err != nil {
		if apierrors.IsNotFound(err) {
			return AccessConfig{}, enrollerrors.WrapSourceSecretMissing(
				fmt.Errorf("secret %s/%s not found", namespace, secretName))
		}
		return AccessConfig{}, enrollerrors.ClassifyAPIError(
			fmt.Errorf("failed to get source secret %s/%s: %w", namespace, secretName, err))
	}

	if raw, ok := secret.Data[constants.SourceKeyKubeConfig]; ok {
		access, err := parseKubeConfig(raw)
		if err != nil {
			return AccessConfig{}, enrollerrors.WrapMalformedSourceConfig(
				fmt.Errorf("secret %s/%s: %w", namespace, secretName, err))
		}
		if err := access.Validate(); err != nil {
			return AccessConfig{}, fmt.Errorf("secret %s/%s: %w", namespace, secretName, err)
		}
		return access, nil
	}

	// Older vCluster releases wrote flat certificate keys instead of an
	// embedded kubeconfig. The endpoint is the in-cluster service DNS name.
	access := AccessConfig{
		ServerURL: fmt.Sprintf("https://%s.%s.svc.cluster.local", instanceName, namespace),
		CAData:    secret.Data[constants.SourceKeyCertificateAuthority],
		CertData:  secret.Data[constants.SourceKeyClientCertificate],
		KeyData:   secret.Data[constants.SourceKeyClientKey],
	}
	if err := access.Validate(); err != nil {
		return AccessConfig{}, fmt.Errorf("secret %s/%s: %w", namespace, secretName, err)
	}
	return access, nil
}

// parseKubeConfig decodes an embedded kubeconfig document and extracts the
// endpoint and credential material of its current (or sole) context.
func parseKubeConfig(raw []byte) (AccessConfig, error) {
	cfg, err := clientcmd.Load(raw)
	if err != nil {
		return AccessConfig{}, fmt.Errorf("failed to decode kubeconfig: %w", err)
	}

	clusterName := ""
	userName := ""
	if kubeContext, ok := cfg.Contexts[cfg.CurrentContext]; ok {
		clusterName = kubeContext.Cluster
		userName = kubeContext.AuthInfo
	}

	cluster, ok := cfg.Clusters[clusterName]
	if !ok {
		// Single-cluster documents frequently omit contexts entirely.
		if len(cfg.Clusters) != 1 {
			return AccessConfig{}, fmt.Errorf("kubeconfig does not identify a cluster")
		}
		for name, c := range cfg.Clusters {
			clusterName, cluster = name, c
		}
	}

	user, ok := cfg.AuthInfos[userName]
	if !ok {
		if len(cfg.AuthInfos) != 1 {
			return AccessConfig{}, fmt.Errorf("kubeconfig does not identify a user")
		}
		for name, u := range cfg.AuthInfos {
			userName, user = name, u
		}
	}

	access := AccessConfig{
		ServerURL: cluster.Server,
		CAData:    cluster.CertificateAuthorityData,
		CertData:  user.ClientCertificateData,
		KeyData:   user.ClientKeyData,
		Token:     user.Token,
	}
	if access.ServerURL == "" {
		return AccessConfig{}, fmt.Errorf("kubeconfig cluster %q has no server", clusterName)
	}
	return access, nil
}
