package debrid

import (
	"fmt"

	"github.com/samber/mo"
)

// State is a step of the unrestriction lifecycle. A task records a state once
// the corresponding step has succeeded.
type State int

const (
	StatePending State = iota
	StateSubmitted
	StateFilesSelected
	StateReady
	StateUnrestricted
)

var stateNames = map[State]string{
	StatePending:       "Pending",
	StateSubmitted:     "Submitted",
	StateFilesSelected: "FilesSelected",
	StateReady:         "Ready",
	StateUnrestricted:  "Unrestricted",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Task is one attempt to turn a magnet reference into a direct URL.
// It belongs to the pipeline run that created it and is never shared.
type Task struct {
	SourceReference string   `json:"source_reference"`
	DisplayName     string   `json:"display_name,omitempty"`
	InfoHash        string   `json:"info_hash,omitempty"`
	ExternalTaskID  string   `json:"external_task_id,omitempty"`
	State           State    `json:"state"`
	History         []State  `json:"history"`
	ServiceStatus   string   `json:"service_status,omitempty"`
	SelectedLinks   []string `json:"selected_links,omitempty"`
	Filename        string   `json:"filename,omitempty"`
	Bytes           int64    `json:"bytes,omitempty"`
	ResultURL       string   `json:"result_url,omitempty"`
	Attempt         int      `json:"attempt"`
	Failure         *Failure `json:"failure,omitempty"`
}

func newTask(source string) *Task {
	return &Task{SourceReference: source, History: []State{}}
}

// advance moves to the next state. States may not be skipped or revisited.
func (t *Task) advance(next State) error {
	if t.Failure != nil {
		return fmt.Errorf("task already failed with %s", t.Failure.Kind)
	}
	if next != t.State+1 || next > StateUnrestricted {
		return fmt.Errorf("illegal transition %s -> %s", t.State, next)
	}
	t.State = next
	t.History = append(t.History, next)
	return nil
}

func (t *Task) fail(kind Kind, step State, detail string, err error) *Task {
	t.Failure = &Failure{
		Kind:   kind,
		Step:   step,
		TaskID: t.ExternalTaskID,
		Detail: detail,
		Err:    err,
	}
	return t
}

// Result is Ok(url) once Unrestricted, otherwise Err(*Failure).
func (t *Task) Result() mo.Result[string] {
	if t.Failure != nil {
		return mo.Err[string](t.Failure)
	}
	if t.State != StateUnrestricted || t.ResultURL == "" {
		return mo.Err[string](fmt.Errorf("task incomplete in state %s", t.State))
	}
	return mo.Ok(t.ResultURL)
}
