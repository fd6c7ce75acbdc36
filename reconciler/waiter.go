package reconciler

import (
	"context"
	"fmt"
	"time"

	"github.com/vmsops/vmsctl/faults"
)

const (
	taskStatePending   = "PENDING"
	taskStateRunning   = "RUNNING"
	taskStateCompleted = "COMPLETED"
	taskStateSuccess   = "SUCCESS"
	taskStateFailed    = "FAILED"
	taskStateError     = "ERROR"
	taskStateCancelled = "CANCELLED"
)

// extractTaskID pulls an asynchronous task marker out of a mutation response.
// The appliance uses several shapes; a response without a marker means the
// operation completed synchronously.
func extractTaskID(payload map[string]any) (string, bool) {
	if payload == nil {
		return "", false
	}

	if raw, ok := payload["task_id"]; ok {
		return stringValue(raw)
	}

	if nested, ok := payload["async_task"].(map[string]any); ok {
		if raw, ok := nested["id"]; ok {
			return stringValue(raw)
		}
		if raw, ok := nested["task_id"]; ok {
			return stringValue(raw)
		}
	}

	if kind, ok := payload["type"].(string); ok && kind == "async_task" {
		if raw, ok := payload["id"]; ok {
			return stringValue(raw)
		}
	}

	return "", false
}

func stringValue(raw any) (string, bool) {
	switch typed := raw.(type) {
	case string:
		return typed, typed != ""
	case int64:
		return fmt.Sprintf("%d", typed), true
	case float64:
		return fmt.Sprintf("%d", int64(typed)), true
	default:
		return "", false
	}
}

// awaitTask polls the task collection until the task reaches a terminal
// state or the wait timeout passes. Bounded polling replaces the fixed-delay
// wait the appliance's asynchronous joins used to need.
func (r *Reconciler) awaitTask(ctx context.Context, taskID string) error {
	deadline := r.now().Add(r.waitTimeout)
	var lastState string

	for {
		if r.now().After(deadline) {
			return faults.NewTypedError(
				faults.TransportError,
				fmt.Sprintf("task %s did not finish within %s, last state %q", taskID, r.waitTimeout, lastState),
				nil,
			)
		}

		task, err := r.fetchTask(ctx, taskID)
		if err != nil {
			return err
		}

		state := taskState(task)
		lastState = state

		switch state {
		case taskStateCompleted, taskStateSuccess:
			return nil
		case taskStateFailed, taskStateError, taskStateCancelled:
			return faults.NewTypedError(
				faults.InternalError,
				fmt.Sprintf("task %s finished in state %s: %s", taskID, state, taskMessage(task)),
				nil,
			)
		}

		select {
		case <-ctx.Done():
			return faults.NewTypedError(faults.TransportError, "task wait cancelled", ctx.Err())
		case <-r.sleep(r.pollInterval):
		}
	}
}

func (r *Reconciler) fetchTask(ctx context.Context, taskID string) (map[string]any, error) {
	value, err := r.remote.Request(ctx, "GET", "vtasks", map[string]string{"id": taskID}, nil)
	if err != nil {
		return nil, err
	}

	switch typed := value.(type) {
	case map[string]any:
		return typed, nil
	case []any:
		if len(typed) == 0 {
			return nil, faults.NewTypedError(faults.NotFoundError, "task "+taskID+" not found", nil)
		}
		first, ok := typed[0].(map[string]any)
		if !ok {
			return nil, faults.NewTypedError(faults.InternalError, "task listing entry is not an object", nil)
		}
		return first, nil
	default:
		return nil, faults.NewTypedError(faults.InternalError, "task response has unexpected shape", nil)
	}
}

func taskState(task map[string]any) string {
	if state, ok := task["state"].(string); ok && state != "" {
		return state
	}
	if status, ok := task["status"].(string); ok && status != "" {
		return status
	}
	return "UNKNOWN"
}

func taskMessage(task map[string]any) string {
	if message, ok := task["error"].(string); ok && message != "" {
		return message
	}
	if message, ok := task["message"].(string); ok && message != "" {
		return message
	}
	return "unknown error"
}

func (r *Reconciler) sleep(interval time.Duration) <-chan time.Time {
	if r.timerFn != nil {
		return r.timerFn(interval)
	}
	return time.After(interval)
}

func (r *Reconciler) now() time.Time {
	if r.nowFn != nil {
		return r.nowFn()
	}
	return time.Now()
}
