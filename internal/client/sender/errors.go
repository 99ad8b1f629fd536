package sender

import (
	"fmt"
	"slices"
	"strings"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageUpload   Stage = "upload"
	StageDelivery Stage = "delivery"
)

// SendError reports a failed send attempt. For StageUpload, Failures holds
// the upload error under the empty key; for StageDelivery one entry per
// failed recipient.
type SendError struct {
	MessageID string
	Stage     Stage
	Failures  map[string]error
}

func (e *SendError) Error() string {
	keys := make([]string, 0, len(e.Failures))
	for k := range e.Failures {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			parts = append(parts, e.Failures[k].Error())
			continue
		}
		parts = append(parts, fmt.Sprintf("%s: %v", k, e.Failures[k]))
	}
	return fmt.Sprintf("send %s failed at %s: %s", e.MessageID, e.Stage, strings.Join(parts, "; "))
}

// Unwrap exposes every underlying failure to errors.Is and errors.As.
func (e *SendError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, err := range e.Failures {
		out = append(out, err)
	}
	return out
}
