// Package errors classifies enrollment failures into retryable and permanent
// outcomes. Controllers consult this package to decide whether an error should
// requeue with a delay or stop until the operator (human) intervenes.
package errors

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"

	"github.com/dc-tec/vcluster-argocd-enroller/internal/constants"
)

// Retryable errors indicate temporary conditions. These result in a requeue
// with a delay; the workqueue owns backoff between attempts.

// ErrSourceSecretMissing indicates the vCluster's own credential secret does
// not exist yet. Expected during the window between StatefulSet creation and
// vCluster finishing its certificate bootstrap.
var ErrSourceSecretMissing = errors.New("source credential secret missing")

// ErrTransientWrite indicates a transient API failure while writing the
// cluster secret (timeouts, rate limiting, server errors, connection resets).
var ErrTransientWrite = errors.New("transient write failure")

// ErrConflictExhausted indicates the create-or-replace sequence kept losing
// optimistic-concurrency races. Retryable, but handed back to the workqueue
// rather than busy-looping inside the reconciler.
var ErrConflictExhausted = errors.New("conflict retries exhausted")

// Permanent errors indicate state that will not self-correct. These must not
// requeue automatically; the reason is surfaced to the operator verbatim.

// ErrMalformedSourceConfig indicates the source secret exists but its embedded
// access configuration cannot be parsed or lacks required material.
var ErrMalformedSourceConfig = errors.New("malformed source configuration")

// ErrPermissionDenied indicates the enroller's RBAC does not permit the write.
// Retrying will not help until the RBAC is fixed.
var ErrPermissionDenied = errors.New("permission denied")

// WrapSourceSecretMissing wraps an error as a missing-source-secret failure.
func WrapSourceSecretMissing(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrSourceSecretMissing, err)
}

// WrapMalformedSourceConfig wraps an error as a malformed-source failure.
func WrapMalformedSourceConfig(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrMalformedSourceConfig, err)
}

// WrapTransientWrite wraps an error as a transient write failure.
// If the error is already classified it is returned as-is.
func WrapTransientWrite(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrTransientWrite) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrTransientWrite, err)
}

// WrapPermissionDenied wraps an error as a permanent authorization failure.
func WrapPermissionDenied(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrPermissionDenied, err)
}

// WrapConflictExhausted wraps an error raised after the inline conflict retry
// budget is spent.
func WrapConflictExhausted(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrConflictExhausted, err)
}

// WrapCleanup classifies a cleanup failure. Cleanup errors are always
// retryable, never permanent: reporting a permanent failure on the deletion
// path would stall removal of the source workload's finalizer.
func WrapCleanup(err error) error {
	if err == nil {
		return nil
	}
	if IsPermanent(err) {
		// Strip the permanent classification by rewrapping under the
		// transient sentinel. The original text is preserved.
		return fmt.Errorf("%w: cleanup: %v", ErrTransientWrite, err)
	}
	return WrapTransientWrite(err)
}

// ClassifyAPIError maps a raw Kubernetes API error from a write or delete
// into the enroller's taxonomy. nil and NotFound pass through untouched so
// callers can handle absence themselves.
func ClassifyAPIError(err error) error {
	switch {
	case err == nil:
		return nil
	case apierrors.IsNotFound(err):
		return err
	case apierrors.IsForbidden(err) || apierrors.IsUnauthorized(err):
		return WrapPermissionDenied(err)
	case apierrors.IsTimeout(err),
		apierrors.IsServerTimeout(err),
		apierrors.IsServiceUnavailable(err),
		apierrors.IsTooManyRequests(err),
		apierrors.IsInternalError(err):
		return WrapTransientWrite(err)
	case isTransientConnection(err):
		return WrapTransientWrite(err)
	default:
		return WrapTransientWrite(err)
	}
}

// isTransientConnection checks for network-level failures that never reach
// the API server (connection refused, DNS, deadline exceeded).
func isTransientConnection(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection refused",
		"connection reset",
		"context deadline exceeded",
		"i/o timeout",
		"no such host",
		"network is unreachable",
		"broken pipe",
	}
	for _, pattern := range transientPatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

// IsRetryable checks if an error should be retried by the workqueue.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrSourceSecretMissing) ||
		errors.Is(err, ErrTransientWrite) ||
		errors.Is(err, ErrConflictExhausted)
}

// IsPermanent checks if an error requires user intervention.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrMalformedSourceConfig) || errors.Is(err, ErrPermissionDenied)
}

// ShouldRequeue determines if an error should trigger a requeue.
// Returns (shouldRequeue, requeueAfter).
func ShouldRequeue(err error) (bool, time.Duration) {
	switch {
	case err == nil:
		return false, 0
	case errors.Is(err, ErrSourceSecretMissing):
		// The source secret usually appears shortly after the workload.
		return true, constants.RequeueShort
	case errors.Is(err, ErrConflictExhausted):
		return true, constants.RequeueShort
	case errors.Is(err, ErrTransientWrite):
		return true, constants.RequeueStandard
	case IsPermanent(err):
		return false, 0
	default:
		// Unknown errors requeue with the workqueue's own backoff.
		return true, 0
	}
}

// Reason renders a permanent error for operator-facing status and events.
func Reason(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
