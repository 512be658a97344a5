package enroll

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
)

// tlsClientConfig mirrors the TLS block of ArgoCD's cluster secret config
// document. Certificate material is base64-encoded PEM.
type tlsClientConfig struct {
	Insecure bool   `json:"insecure"`
	CAData   string `json:"caData,omitempty"`
	CertData string `json:"certData,omitempty"`
	KeyData  string `json:"keyData,omitempty"`
}

// clusterConfig is the JSON document ArgoCD reads from the "config" data key.
type clusterConfig struct {
	BearerToken     string          `json:"bearerToken,omitempty"`
	TLSClientConfig tlsClientConfig `json:"tlsClientConfig"`
}

// SynthesizeClusterSecret maps a parsed access configuration into the cluster
// secret ArgoCD expects. Pure function: no I/O, deterministic output for
// identical input, name derived from the instance name alone.
func SynthesizeClusterSecret(access AccessConfig, instanceName, targetNamespace string) (*corev1.Secret, error) {
	// Extraction already validated; re-check so a caller bypassing the
	// pipeline cannot register a half-formed cluster.
	if err := access.Validate(); err != nil {
		return nil, err
	}

	config := clusterConfig{
		BearerToken: access.Token,
		TLSClientConfig: tlsClientConfig{
			Insecure: false,
			CAData:   base64.StdEncoding.EncodeToString(access.CAData),
			CertData: base64.StdEncoding.EncodeToString(access.CertData),
			KeyData:  base64.StdEncoding.EncodeToString(access.KeyData),
		},
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cluster config: %w", err)
	}

	return &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{
			Name:      ClusterSecretName(instanceName),
			Namespace: targetNamespace,
			Labels: map[string]string{
				constants.LabelArgoCDSecretType: constants.LabelValueArgoCDSecretTypeCluster,
				constants.LabelAppManagedBy:     constants.LabelValueAppManagedByEnroller,
				constants.LabelEnrolledBy:       constants.LabelValueEnrolledBy,
			},
		},
		Type: corev1.SecretTypeOpaque,
		Data: map[string][]byte{
			constants.ClusterSecretKeyName:   []byte(instanceName),
			constants.ClusterSecretKeyServer: []byte(access.ServerURL),
			constants.ClusterSecretKeyConfig: configJSON,
		},
	}, nil
}
