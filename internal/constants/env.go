package constants

// Environment variable keys shared between the operator and the CLI commands.
const (
	// EnvArgoCDNamespace overrides the namespace cluster secrets are written to.
	EnvArgoCDNamespace = "ARGOCD_NAMESPACE"

	// EnvVClusterLabelSelector overrides the label selector used to identify
	// vCluster StatefulSets.
	EnvVClusterLabelSelector = "VCLUSTER_LABEL_SELECTOR"
)
