package kubernetes

import (
	"context"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/opmodel/hal/internal/cluster"
	"github.com/opmodel/hal/internal/output"
)

var _ cluster.Client = (*Cluster)(nil)

// EnsureNamespace creates namespace unless it exists.
func (c *Cluster) EnsureNamespace(ctx context.Context, namespace string) error {
	_, err := c.Clientset.CoreV1().Namespaces().Get(ctx, namespace, metav1.GetOptions{})
	if err == nil {
		return nil
	}
	if !apierrors.IsNotFound(err) {
		return translate(err, "get namespace", namespace, namespace)
	}
	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{
		Name:   namespace,
		Labels: map[string]string{cluster.LabelManagedBy: cluster.LabelManagedByValue},
	}}
	_, err = c.Clientset.CoreV1().Namespaces().Create(ctx, ns, metav1.CreateOptions{})
	if apierrors.IsAlreadyExists(err) {
		return nil
	}
	if err == nil {
		output.Debug("created namespace", "namespace", namespace)
	}
	return translate(err, "create namespace", namespace, namespace)
}

// UpsertSecret creates the secret or replaces its labels and data.
func (c *Cluster) UpsertSecret(ctx context.Context, s cluster.Secret) error {
	secrets := c.Clientset.CoreV1().Secrets(s.Namespace)
	existing, err := secrets.Get(ctx, s.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		obj := &corev1.Secret{
			ObjectMeta: metav1.ObjectMeta{Name: s.Name, Namespace: s.Namespace, Labels: s.Labels},
			Type:       corev1.SecretTypeOpaque,
			Data:       s.Data,
		}
		_, err = secrets.Create(ctx, obj, metav1.CreateOptions{})
		return translate(err, "create secret", s.Namespace, s.Name)
	case err != nil:
		return translate(err, "get secret", s.Namespace, s.Name)
	}

	existing.Labels = s.Labels
	existing.Data = s.Data
	_, err = secrets.Update(ctx, existing, metav1.UpdateOptions{})
	return translate(err, "update secret", s.Namespace, s.Name)
}

// GetSecret reads a secret.
func (c *Cluster) GetSecret(ctx context.Context, namespace, name string) (*cluster.Secret, error) {
	obj, err := c.Clientset.CoreV1().Secrets(namespace).Get(ctx, name, metav1.GetOptions{})
	if err != nil {
		return nil, translate(err, "get secret", namespace, name)
	}
	return &cluster.Secret{
		Name:      obj.Name,
		Namespace: obj.Namespace,
		Labels:    obj.Labels,
		Data:      obj.Data,
	}, nil
}

// DeleteSecrets deletes each secret matching labels. Secrets that vanish
// concurrently are ignored.
func (c *Cluster) DeleteSecrets(ctx context.Context, namespace string, selector map[string]string) error {
	secrets := c.Clientset.CoreV1().Secrets(namespace)
	list, err := secrets.List(ctx, metav1.ListOptions{LabelSelector: labels.SelectorFromSet(selector).String()})
	if err != nil {
		return translate(err, "list secrets", namespace, "")
	}
	for _, s := range list.Items {
		err := secrets.Delete(ctx, s.Name, metav1.DeleteOptions{})
		if err != nil && !apierrors.IsNotFound(err) {
			return translate(err, "delete secret", namespace, s.Name)
		}
		output.Debug("deleted secret", "namespace", namespace, "name", s.Name)
	}
	return nil
}

// UpsertService points the service at spec.Selector, keeping the allocated
// cluster IP of an existing service.
func (c *Cluster) UpsertService(ctx context.Context, spec cluster.ServiceSpec) error {
	services := c.Clientset.CoreV1().Services(spec.Namespace)
	desired := corev1.ServiceSpec{
		Selector: spec.Selector,
		Ports: []corev1.ServicePort{{
			Name:       "http",
			Port:       int32(spec.Port),
			TargetPort: intstr.FromInt32(int32(spec.Port)),
			Protocol:   corev1.ProtocolTCP,
		}},
	}

	existing, err := services.Get(ctx, spec.Name, metav1.GetOptions{})
	switch {
	case apierrors.IsNotFound(err):
		obj := &corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: spec.Name, Namespace: spec.Namespace, Labels: spec.Labels},
			Spec:       desired,
		}
		_, err = services.Create(ctx, obj, metav1.CreateOptions{})
		return translate(err, "create service", spec.Namespace, spec.Name)
	case err != nil:
		return translate(err, "get service", spec.Namespace, spec.Name)
	}

	desired.ClusterIP = existing.Spec.ClusterIP
	desired.ClusterIPs = existing.Spec.ClusterIPs
	desired.Type = existing.Spec.Type
	existing.Labels = spec.Labels
	existing.Spec = desired
	_, err = services.Update(ctx, existing, metav1.UpdateOptions{})
	return translate(err, "update service", spec.Namespace, spec.Name)
}

// DeleteService deletes a service; a missing service is not an error.
func (c *Cluster) DeleteService(ctx context.Context, namespace, name string) error {
	err := c.Clientset.CoreV1().Services(namespace).Delete(ctx, name, metav1.DeleteOptions{})
	if apierrors.IsNotFound(err) {
		return nil
	}
	return translate(err, "delete service", namespace, name)
}
