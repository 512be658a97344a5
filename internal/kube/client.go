// Package kube provides Kubernetes client plumbing shared by the CLI
// commands, which run outside a controller manager.
package kube

import (
	"fmt"
	"sync"

	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"
)

var scheme = runtime.NewScheme()

func init() {
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
}

var (
	clientMu     sync.Mutex
	cachedClient client.Client
)

// GetClient returns a process-wide API client, initialized on first use from
// the ambient configuration (in-cluster when available, kubeconfig otherwise).
// The first caller performs setup; concurrent callers wait for and reuse the
// result. Setup never re-runs once it has succeeded.
func GetClient() (client.Client, error) {
	clientMu.Lock()
	defer clientMu.Unlock()

	if cachedClient != nil {
		return cachedClient, nil
	}

	cfg, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load kubernetes configuration: %w", err)
	}

	c, err := client.New(cfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("failed to create kubernetes client: %w", err)
	}

	cachedClient = c
	return cachedClient, nil
}

// SetClient overrides the process-wide client. Tests use this to substitute a
// fake; passing nil resets the handle so the next GetClient re-initializes.
func SetClient(c client.Client) {
	clientMu.Lock()
	defer clientMu.Unlock()
	cachedClient = c
}
