package task

import (
	"encoding/json"
	"fmt"
)

// Task is a unit of work carried on a Redis stream.
type Task interface {
	TaskType() string
	TaskValue() ([]byte, error)
}

// DefaultTaskValue provides a common implementation for TaskValue
func DefaultTaskValue(task any) ([]byte, error) {
	return json.Marshal(task)
}

// UnmarshalTask decodes a stream payload into a freshly allocated T.
func UnmarshalTask[T any](payload []byte) (*T, error) {
	t := new(T)
	if err := json.Unmarshal(payload, t); err != nil {
		return nil, fmt.Errorf("failed to decode task: %w", err)
	}
	return t, nil
}
