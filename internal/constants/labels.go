package constants

// Common Kubernetes label keys used by the enroller.
const (
	LabelAppName      = "app.kubernetes.io/name"
	LabelAppManagedBy = "app.kubernetes.io/managed-by"

	// LabelArgoCDSecretType is the label ArgoCD uses to discover cluster
	// registration secrets in its own namespace.
	LabelArgoCDSecretType = "argocd.argoproj.io/secret-type"

	// LabelVClusterApp selects the StatefulSets that back vCluster instances.
	LabelVClusterApp = "app"

	// LabelEnrolledBy marks cluster secrets written by this operator so they
	// can be distinguished from manually registered clusters.
	LabelEnrolledBy = "vcluster-operator"
)

// Common label values used by the enroller.
const (
	LabelValueArgoCDSecretTypeCluster = "cluster"
	LabelValueVClusterApp             = "vcluster"
	LabelValueEnrolledBy              = "true"
	LabelValueAppManagedByEnroller    = "vcluster-argocd-enroller"
)
