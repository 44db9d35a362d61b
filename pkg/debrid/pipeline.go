// Package debrid drives a magnet reference through the Real-Debrid lifecycle
// (submit, select files, status, unrestrict) and reports a typed outcome.
package debrid

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/mo"

	"epstream/pkg/logger"
)

// DefaultRequestTimeout bounds a single external call when none is configured.
const DefaultRequestTimeout = 10 * time.Second

// Pipeline runs unrestriction tasks. It holds no per-request state and is safe
// for concurrent use; every Run creates its own Task.
type Pipeline struct {
	svc     Service
	timeout time.Duration
}

// NewPipeline creates a pipeline bounding every external call by timeout.
func NewPipeline(svc Service, timeout time.Duration) *Pipeline {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Pipeline{svc: svc, timeout: timeout}
}

// Unrestrict runs the pipeline once and returns Ok(url) or Err(*Failure).
func (p *Pipeline) Unrestrict(ctx context.Context, magnet, token string) mo.Result[string] {
	return p.Run(ctx, magnet, token).Result()
}

// Run executes the four steps in order and returns the finished task.
// A failing step stops the run; later steps are never attempted.
// When multiple links are ready, only the first one in service order is
// unrestricted.
func (p *Pipeline) Run(ctx context.Context, magnet, token string) *Task {
	log := logger.FromContext(ctx)
	task := newTask(magnet)
	task.Attempt = 1

	parsed, err := ParseMagnet(magnet)
	if err != nil {
		return task.fail(SubmissionFailed, StateSubmitted, "malformed magnet reference", err)
	}
	task.InfoHash = parsed.InfoHash
	task.DisplayName = parsed.DisplayName

	if token == "" {
		return task.fail(SubmissionFailed, StateSubmitted, "missing debrid credentials", nil)
	}

	// Submitted
	if err := ctx.Err(); err != nil {
		return task.fail(SubmissionFailed, StateSubmitted, "request abandoned", err)
	}
	added, err := call(ctx, p.timeout, func(ctx context.Context) (*AddTorrentResponse, error) {
		return p.svc.AddMagnet(ctx, token, parsed.URI)
	})
	if err != nil {
		return task.fail(SubmissionFailed, StateSubmitted, "service rejected magnet", err)
	}
	if added == nil || added.ID == "" {
		return task.fail(SubmissionFailed, StateSubmitted, "service returned no task id", nil)
	}
	task.ExternalTaskID = added.ID
	if err := task.advance(StateSubmitted); err != nil {
		return task.fail(SubmissionFailed, StateSubmitted, "state machine", err)
	}
	log.Debug("Magnet submitted", "task_id", task.ExternalTaskID, "info_hash", task.InfoHash)

	// FilesSelected
	if err := ctx.Err(); err != nil {
		return task.fail(SelectionFailed, StateFilesSelected, "request abandoned", err)
	}
	_, err = call(ctx, p.timeout, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, p.svc.SelectFiles(ctx, token, task.ExternalTaskID)
	})
	if err != nil {
		return task.fail(SelectionFailed, StateFilesSelected, "file selection failed", err)
	}
	if err := task.advance(StateFilesSelected); err != nil {
		return task.fail(SelectionFailed, StateFilesSelected, "state machine", err)
	}
	log.Debug("Files selected", "task_id", task.ExternalTaskID)

	// Ready
	if err := ctx.Err(); err != nil {
		return task.fail(NotReadyYet, StateReady, "request abandoned", err)
	}
	info, err := call(ctx, p.timeout, func(ctx context.Context) (*TorrentInfo, error) {
		return p.svc.TorrentInfo(ctx, token, task.ExternalTaskID)
	})
	if err != nil {
		return task.fail(NotReadyYet, StateReady, "status unavailable", err)
	}
	if info == nil {
		return task.fail(NotReadyYet, StateReady, "service returned no status", nil)
	}
	task.ServiceStatus = info.Status
	task.Bytes = info.Bytes
	if IsDeadStatus(info.Status) {
		return task.fail(TaskDead, StateReady, fmt.Sprintf("service gave up on torrent (status %s)", info.Status), nil)
	}
	if len(info.Links) == 0 {
		return task.fail(NotReadyYet, StateReady, fmt.Sprintf("no links yet (status %s, progress %.0f%%)", info.Status, info.Progress), nil)
	}
	task.SelectedLinks = append([]string(nil), info.Links...)
	if err := task.advance(StateReady); err != nil {
		return task.fail(NotReadyYet, StateReady, "state machine", err)
	}
	log.Debug("Torrent ready", "task_id", task.ExternalTaskID, "links", len(task.SelectedLinks))

	// Unrestricted
	if err := ctx.Err(); err != nil {
		return task.fail(UnrestrictionFailed, StateUnrestricted, "request abandoned", err)
	}
	link := task.SelectedLinks[0]
	unrestricted, err := call(ctx, p.timeout, func(ctx context.Context) (*UnrestrictedLink, error) {
		return p.svc.UnrestrictLink(ctx, token, link)
	})
	if err != nil {
		return task.fail(UnrestrictionFailed, StateUnrestricted, "unrestrict failed", err)
	}
	if unrestricted == nil || unrestricted.Download == "" {
		return task.fail(UnrestrictionFailed, StateUnrestricted, "service returned no download url", nil)
	}
	if err := task.advance(StateUnrestricted); err != nil {
		return task.fail(UnrestrictionFailed, StateUnrestricted, "state machine", err)
	}
	task.Filename = unrestricted.Filename
	task.ResultURL = unrestricted.Download
	log.Debug("Link unrestricted", "task_id", task.ExternalTaskID, "filename", task.Filename)

	return task
}

// call runs fn under its own deadline so a slow step cannot exceed timeout.
func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	v, err := fn(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		err = fmt.Errorf("timed out after %s: %w", timeout, err)
	}
	return v, err
}
