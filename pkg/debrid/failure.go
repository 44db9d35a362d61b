package debrid

import (
	"errors"
	"fmt"
)

// Kind classifies why an unrestriction attempt stopped.
type Kind string

const (
	SubmissionFailed    Kind = "SubmissionFailed"
	SelectionFailed     Kind = "SelectionFailed"
	NotReadyYet         Kind = "NotReadyYet"
	TaskDead            Kind = "TaskDead"
	UnrestrictionFailed Kind = "UnrestrictionFailed"
)

// Recoverable reports whether re-running the whole pipeline later may succeed.
func (k Kind) Recoverable() bool {
	return k == NotReadyYet
}

// Failure is the typed error produced by a pipeline step.
type Failure struct {
	Kind   Kind   `json:"kind"`
	Step   State  `json:"step"`
	TaskID string `json:"task_id,omitempty"`
	Detail string `json:"detail"`
	Err    error  `json:"-"`
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("%s at %s", f.Kind, f.Step)
	if f.TaskID != "" {
		msg += " (task " + f.TaskID + ")"
	}
	if f.Detail != "" {
		msg += ": " + f.Detail
	}
	if f.Err != nil {
		msg += ": " + f.Err.Error()
	}
	return msg
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// KindOf extracts the failure kind from an error chain.
func KindOf(err error) (Kind, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind, true
	}
	return "", false
}
