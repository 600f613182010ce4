package model

import (
	"errors"
	"fmt"
)

var ErrEmptyDataset = errors.New("no annotations in dataset")

// EmptyDatasetError reports that thresholds were requested over no boxes.
type EmptyDatasetError struct{}

func (e *EmptyDatasetError) Error() string { return ErrEmptyDataset.Error() }

func (e *EmptyDatasetError) Unwrap() error { return ErrEmptyDataset }

type MalformedAnnotationError struct {
	TaskID string
	UUID   string
	Field  string

	// Invalid is set when the field is present but has the wrong type.
	Invalid bool
}

func (e *MalformedAnnotationError) Error() string {
	id := e.UUID
	if id == "" {
		id = "<no uuid>"
	}
	if e.TaskID != "" {
		return fmt.Sprintf("malformed annotation %s in task %s: %s %s", id, e.TaskID, problem(e.Invalid), e.Field)
	}
	return fmt.Sprintf("malformed annotation %s: %s %s", id, problem(e.Invalid), e.Field)
}

type MalformedTaskError struct {
	TaskID  string
	Field   string
	Invalid bool
}

func (e *MalformedTaskError) Error() string {
	if e.TaskID == "" {
		return fmt.Sprintf("malformed task: %s %s", problem(e.Invalid), e.Field)
	}
	return fmt.Sprintf("malformed task %s: %s %s", e.TaskID, problem(e.Invalid), e.Field)
}

func problem(invalid bool) string {
	if invalid {
		return "invalid"
	}
	return "missing"
}
