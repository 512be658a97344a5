package constants

import "time"

// Requeue intervals used by the controller.
const (
	RequeueShort    = 5 * time.Second
	RequeueStandard = 1 * time.Minute
)

// ConflictRetryAttempts bounds the inline read-modify-replace loop in the
// writer before the conflict is handed back to the workqueue for backoff.
const ConflictRetryAttempts = 3
