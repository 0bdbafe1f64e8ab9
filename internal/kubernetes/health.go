package kubernetes

import (
	"context"
	"sort"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"

	"github.com/opmodel/hal/internal/cluster"
)

// ListInstances returns the pods of one service version. Terminating pods
// are skipped.
func (c *Cluster) ListInstances(ctx context.Context, namespace, service string, version int) ([]cluster.Instance, error) {
	selector := labels.SelectorFromSet(cluster.VersionSelector(service, version))
	pods, err := c.Clientset.CoreV1().Pods(namespace).List(ctx,
		metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, translate(err, "list pods", namespace, cluster.VersionName(service, version))
	}

	instances := make([]cluster.Instance, 0, len(pods.Items))
	for i := range pods.Items {
		pod := &pods.Items[i]
		if pod.DeletionTimestamp != nil {
			continue
		}
		instances = append(instances, instanceFor(pod, version))
	}
	sort.Slice(instances, func(i, j int) bool { return instances[i].Name < instances[j].Name })
	return instances, nil
}

// instanceFor converts a pod. A container counts as running only while the
// pod phase is Running.
func instanceFor(pod *corev1.Pod, version int) cluster.Instance {
	inst := cluster.Instance{Name: pod.Name, Version: version}
	podRunning := pod.Status.Phase == corev1.PodRunning
	for _, cs := range pod.Status.ContainerStatuses {
		inst.Containers = append(inst.Containers, cluster.ContainerStatus{
			Name:    cs.Name,
			Ready:   cs.Ready,
			Running: podRunning && cs.State.Running != nil,
		})
	}
	return inst
}
