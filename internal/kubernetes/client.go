// Package kubernetes implements cluster.Client on top of client-go.
package kubernetes

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mitchellh/go-homedir"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"

	oerrors "github.com/opmodel/hal/internal/errors"
)

// ClientOptions configures Kubernetes client creation.
type ClientOptions struct {
	// Kubeconfig is the path to the kubeconfig file.
	// Precedence: this field > HAL_KUBECONFIG env > KUBECONFIG env > ~/.kube/config
	Kubeconfig string

	// Context is the kubeconfig context; empty uses current-context.
	Context string

	// WarningLevel is "warn", "debug" or "suppress".
	WarningLevel string
}

// Cluster is a cluster.Client backed by a typed clientset.
type Cluster struct {
	Clientset  kubernetes.Interface
	RestConfig *rest.Config
}

var (
	cachedClusters = map[ClientOptions]*Cluster{}
	clusterMu      sync.Mutex
)

// NewCluster connects to the cluster described by opts. Clusters are cached
// per options for the lifetime of the process.
func NewCluster(opts ClientOptions) (*Cluster, error) {
	clusterMu.Lock()
	defer clusterMu.Unlock()

	if c, ok := cachedClusters[opts]; ok {
		return c, nil
	}

	restConfig, err := buildRestConfig(opts)
	if err != nil {
		return nil, oerrors.NewConnectivityError("unable to load kubeconfig: "+err.Error(),
			map[string]string{"context": opts.Context},
			"Check --kubeconfig and --context, or set HAL_KUBECONFIG")
	}
	restConfig.WarningHandler = &halWarningHandler{level: opts.WarningLevel}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("creating clientset: %w",
			oerrors.Wrap(oerrors.ErrConnectivity, err.Error()))
	}

	c := &Cluster{Clientset: clientset, RestConfig: restConfig}
	cachedClusters[opts] = c
	return c, nil
}

// NewClusterForClientset wraps an existing clientset. OpenProxy needs a
// RestConfig and fails without one.
func NewClusterForClientset(cs kubernetes.Interface, restConfig *rest.Config) *Cluster {
	return &Cluster{Clientset: cs, RestConfig: restConfig}
}

// ResetClusters clears the cache.
func ResetClusters() {
	clusterMu.Lock()
	defer clusterMu.Unlock()
	cachedClusters = map[ClientOptions]*Cluster{}
}

func buildRestConfig(opts ClientOptions) (*rest.Config, error) {
	loadingRules := &clientcmd.ClientConfigLoadingRules{
		ExplicitPath: resolveKubeconfig(opts.Kubeconfig),
	}
	overrides := &clientcmd.ConfigOverrides{}
	if opts.Context != "" {
		overrides.CurrentContext = opts.Context
	}
	return clientcmd.NewNonInteractiveDeferredLoadingClientConfig(loadingRules, overrides).ClientConfig()
}

// resolveKubeconfig applies flag > HAL_KUBECONFIG > KUBECONFIG > ~/.kube/config.
func resolveKubeconfig(flagValue string) string {
	path := flagValue
	if path == "" {
		path = os.Getenv("HAL_KUBECONFIG")
	}
	if path == "" {
		path = os.Getenv("KUBECONFIG")
	}
	if path == "" {
		home, err := homedir.Dir()
		if err != nil {
			return ""
		}
		return filepath.Join(home, ".kube", "config")
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return path
	}
	return expanded
}
