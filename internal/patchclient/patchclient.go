// Package patchclient issues the single outbound mutation the
// controller ever performs: patching an autoscaler's minReplicas. It
// is adapted from the teacher's HPA target scaler, retargeted from the
// scale subresource of an HPA's scale target to the HPA object's own
// spec: this controller sets a floor on the HPA itself, it does not
// directly touch whatever the HPA in turn scales.
package patchclient

import (
	"context"
	"encoding/json"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/kubernetes"
)

// PatchClient issues idempotent partial updates to an autoscaler's
// minReplicas. Implementations must never update local state on
// failure; the caller's idempotence gate is the only source of truth
// for whether a retry is needed.
type PatchClient interface {
	SetMinReplicas(ctx context.Context, namespace, name string, value int64) error
}

// minReplicasPatch is the wire payload for the strategic merge patch,
// {"spec":{"minReplicas": value}}.
type minReplicasPatch struct {
	Spec minReplicasPatchSpec `json:"spec"`
}

type minReplicasPatchSpec struct {
	MinReplicas int32 `json:"minReplicas"`
}

// kubeClient is the real PatchClient, backed by a client-go clientset.
type kubeClient struct {
	client kubernetes.Interface
}

// New constructs a PatchClient backed by the given clientset.
func New(client kubernetes.Interface) PatchClient {
	return &kubeClient{client: client}
}

// SetMinReplicas patches the named HorizontalPodAutoscaler's
// spec.minReplicas to value via a strategic merge patch.
func (k *kubeClient) SetMinReplicas(ctx context.Context, namespace, name string, value int64) error {
	payload, err := json.Marshal(minReplicasPatch{
		Spec: minReplicasPatchSpec{MinReplicas: int32(value)},
	})
	if err != nil {
		return fmt.Errorf("patchclient: failed to marshal patch payload: %w", err)
	}

	_, err = k.client.AutoscalingV2().HorizontalPodAutoscalers(namespace).Patch(
		ctx, name, types.StrategicMergePatchType, payload, metav1.PatchOptions{},
	)
	if err != nil {
		return fmt.Errorf("patchclient: failed to patch %s/%s: %w", namespace, name, err)
	}

	return nil
}

// IsTransient reports whether err is a connection, 5xx, or throttling
// error that is worth retrying on the next reconciliation tick.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case apierrors.IsServerTimeout(err),
		apierrors.IsTimeout(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsInternalError(err):
		return true
	default:
		return false
	}
}

// IsPermanent reports whether err is a not-found, forbidden, or
// malformed-request error: retrying without an operator fixing the
// underlying declaration or RBAC will never succeed.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case apierrors.IsNotFound(err),
		apierrors.IsForbidden(err),
		apierrors.IsUnauthorized(err),
		apierrors.IsInvalid(err),
		apierrors.IsBadRequest(err):
		return true
	default:
		return false
	}
}
