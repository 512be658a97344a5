package constants

// Deterministic name prefixes tying derived objects to a vCluster instance.
const (
	// PrefixSourceSecret is prepended to the instance name to form the name
	// of the secret vCluster itself writes (endpoint + TLS material).
	PrefixSourceSecret = "vc-"

	// PrefixClusterSecret is prepended to the instance name to form the name
	// of the ArgoCD cluster registration secret.
	PrefixClusterSecret = "vcluster-"

	// PrefixStatefulSet is the prefix the vCluster helm chart gives the
	// workload StatefulSet. Stripped to recover the instance name.
	PrefixStatefulSet = "vcluster-"
)

// Well-known data keys inside the source secret.
const (
	// SourceKeyKubeConfig holds the embedded kubeconfig document.
	SourceKeyKubeConfig = "config"

	// Flat keys written by older vCluster releases, consumed when no
	// embedded kubeconfig is present.
	SourceKeyCertificateAuthority = "certificate-authority"
	SourceKeyClientCertificate    = "client-certificate"
	SourceKeyClientKey            = "client-key"
)

// Data keys of the ArgoCD cluster secret.
const (
	ClusterSecretKeyName   = "name"
	ClusterSecretKeyServer = "server"
	ClusterSecretKeyConfig = "config"
)
