package kubernetes

import (
	"context"
	"fmt"
	"sort"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/opmodel/hal/internal/cluster"
	oerrors "github.com/opmodel/hal/internal/errors"
)

// ListVersions returns the versions of service's replica sets, ascending.
func (c *Cluster) ListVersions(ctx context.Context, namespace, service string) ([]int, error) {
	selector := labels.SelectorFromSet(map[string]string{
		cluster.LabelApp:       service,
		cluster.LabelManagedBy: cluster.LabelManagedByValue,
	})
	list, err := c.Clientset.AppsV1().ReplicaSets(namespace).List(ctx,
		metav1.ListOptions{LabelSelector: selector.String()})
	if err != nil {
		return nil, translate(err, "list replica sets", namespace, service)
	}
	var versions []int
	for _, rs := range list.Items {
		if v, ok := cluster.ParseVersion(service, rs.Name); ok {
			versions = append(versions, v)
		}
	}
	sort.Ints(versions)
	return versions, nil
}

// CreateReplicaSet creates one version of a service. Existing replica sets
// are never modified.
func (c *Cluster) CreateReplicaSet(ctx context.Context, spec cluster.ReplicaSetSpec) error {
	rs, err := buildReplicaSet(spec)
	if err != nil {
		return err
	}
	_, err = c.Clientset.AppsV1().ReplicaSets(spec.Namespace).Create(ctx, rs, metav1.CreateOptions{})
	return translate(err, "create replica set", spec.Namespace, spec.Name())
}

// DeleteReplicaSet deletes one version and, in the background, its pods.
func (c *Cluster) DeleteReplicaSet(ctx context.Context, namespace, service string, version int) error {
	policy := metav1.DeletePropagationBackground
	name := cluster.VersionName(service, version)
	err := c.Clientset.AppsV1().ReplicaSets(namespace).Delete(ctx, name,
		metav1.DeleteOptions{PropagationPolicy: &policy})
	return translate(err, "delete replica set", namespace, name)
}

func buildReplicaSet(spec cluster.ReplicaSetSpec) (*appsv1.ReplicaSet, error) {
	selector := cluster.VersionSelector(spec.Service, spec.Version)
	podLabels := cluster.Merge(spec.Labels, selector)

	requests, err := resourceList(spec.Requests)
	if err != nil {
		return nil, err
	}
	limits, err := resourceList(spec.Limits)
	if err != nil {
		return nil, err
	}

	env := make(map[string]string, len(spec.Env))
	for k, v := range spec.Env {
		env[k] = v
	}
	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount
	for i, src := range spec.ConfigSources {
		for k, v := range src.Env {
			env[k] = v
		}
		name := fmt.Sprintf("config-%d", i)
		volumes = append(volumes, corev1.Volume{
			Name: name,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: src.ID},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{Name: name, MountPath: src.MountPath})
	}
	var envVars []corev1.EnvVar
	for _, k := range cluster.SortedEnv(env) {
		envVars = append(envVars, corev1.EnvVar{Name: k, Value: env[k]})
	}

	container := corev1.Container{
		Name:         spec.Service,
		Image:        spec.Image,
		Ports:        []corev1.ContainerPort{{ContainerPort: int32(spec.Port), Protocol: corev1.ProtocolTCP}},
		Env:          envVars,
		VolumeMounts: mounts,
		Resources:    corev1.ResourceRequirements{Requests: requests, Limits: limits},
		ReadinessProbe: &corev1.Probe{
			ProbeHandler:        probeHandler(spec),
			InitialDelaySeconds: 10,
			PeriodSeconds:       5,
		},
	}

	replicas := spec.Replicas
	return &appsv1.ReplicaSet{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.Name(),
			Namespace: spec.Namespace,
			Labels:    podLabels,
		},
		Spec: appsv1.ReplicaSetSpec{
			Replicas: &replicas,
			Selector: &metav1.LabelSelector{MatchLabels: selector},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: podLabels},
				Spec: corev1.PodSpec{
					Containers: []corev1.Container{container},
					Volumes:    volumes,
				},
			},
		},
	}, nil
}

// probeHandler checks the health endpoint when there is one and the port
// otherwise.
func probeHandler(spec cluster.ReplicaSetSpec) corev1.ProbeHandler {
	port := intstr.FromInt32(int32(spec.Port))
	if spec.HealthEndpoint == "" {
		return corev1.ProbeHandler{TCPSocket: &corev1.TCPSocketAction{Port: port}}
	}
	return corev1.ProbeHandler{HTTPGet: &corev1.HTTPGetAction{Path: spec.HealthEndpoint, Port: port}}
}

func resourceList(r cluster.Resources) (corev1.ResourceList, error) {
	out := corev1.ResourceList{}
	for name, value := range map[corev1.ResourceName]string{
		corev1.ResourceCPU:    r.CPU,
		corev1.ResourceMemory: r.Memory,
	} {
		if value == "" {
			continue
		}
		q, err := resource.ParseQuantity(value)
		if err != nil {
			return nil, &oerrors.DetailError{
				Type:    "invalid quantity",
				Message: fmt.Sprintf("%s %q: %v", name, value, err),
				Cause:   oerrors.ErrValidation,
			}
		}
		out[name] = q
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
