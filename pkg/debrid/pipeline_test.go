package debrid

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

const testMagnet = "magnet:?xt=urn:btih:c12fe1c06bba254a9dc9f519b335aa7c1367a88a&dn=Some.Movie.2020.1080p.WEB-DL.x264-GRP"

// fakeService scripts the four debrid endpoints and records every call.
type fakeService struct {
	mu    sync.Mutex
	calls []string

	addResp *AddTorrentResponse
	addErr  error

	selectErr error

	infos   []*TorrentInfo // consumed in order, last one repeats
	infoErr error

	unrestrictErr error
	unrestricted  []string

	blockOn string // step name that waits for ctx cancellation
}

func newFakeService() *fakeService {
	return &fakeService{
		addResp: &AddTorrentResponse{ID: "RD123"},
		infos:   []*TorrentInfo{{ID: "RD123", Status: StatusDownloaded, Progress: 100, Links: []string{"L1", "L2"}}},
	}
}

func (f *fakeService) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func (f *fakeService) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeService) block(ctx context.Context, name string) error {
	if f.blockOn != name {
		return nil
	}
	<-ctx.Done()
	return ctx.Err()
}

func (f *fakeService) AddMagnet(ctx context.Context, token, magnet string) (*AddTorrentResponse, error) {
	f.record("add")
	if err := f.block(ctx, "add"); err != nil {
		return nil, err
	}
	if f.addErr != nil {
		return nil, f.addErr
	}
	return f.addResp, nil
}

func (f *fakeService) SelectFiles(ctx context.Context, token, torrentID string) error {
	f.record("select")
	if err := f.block(ctx, "select"); err != nil {
		return err
	}
	return f.selectErr
}

func (f *fakeService) TorrentInfo(ctx context.Context, token, torrentID string) (*TorrentInfo, error) {
	f.record("info")
	if err := f.block(ctx, "info"); err != nil {
		return nil, err
	}
	if f.infoErr != nil {
		return nil, f.infoErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	info := f.infos[0]
	if len(f.infos) > 1 {
		f.infos = f.infos[1:]
	}
	return info, nil
}

func (f *fakeService) UnrestrictLink(ctx context.Context, token, link string) (*UnrestrictedLink, error) {
	f.record("unrestrict")
	if err := f.block(ctx, "unrestrict"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.unrestricted = append(f.unrestricted, link)
	f.mu.Unlock()
	if f.unrestrictErr != nil {
		return nil, f.unrestrictErr
	}
	return &UnrestrictedLink{Download: "https://dl.example/" + link, Filename: "Some.Movie.2020.1080p.mkv"}, nil
}

var lifecycle = []State{StateSubmitted, StateFilesSelected, StateReady, StateUnrestricted}

func assertStrictPrefix(t *testing.T, history []State) {
	t.Helper()
	if len(history) > len(lifecycle) {
		t.Fatalf("history too long: %v", history)
	}
	for i, s := range history {
		if s != lifecycle[i] {
			t.Fatalf("history %v is not a prefix of %v", history, lifecycle)
		}
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestPipelineSuccess(t *testing.T) {
	svc := newFakeService()
	task := NewPipeline(svc, time.Second).Run(context.Background(), testMagnet, "token")

	if task.Failure != nil {
		t.Fatalf("unexpected failure: %v", task.Failure)
	}
	if task.State != StateUnrestricted {
		t.Errorf("State = %s, want Unrestricted", task.State)
	}
	if len(task.History) != len(lifecycle) {
		t.Errorf("History = %v, want %v", task.History, lifecycle)
	}
	assertStrictPrefix(t, task.History)

	if task.ResultURL != "https://dl.example/L1" {
		t.Errorf("ResultURL = %q", task.ResultURL)
	}
	if task.ExternalTaskID != "RD123" {
		t.Errorf("ExternalTaskID = %q", task.ExternalTaskID)
	}
	if task.DisplayName != "Some.Movie.2020.1080p.WEB-DL.x264-GRP" {
		t.Errorf("DisplayName = %q", task.DisplayName)
	}
	if got := svc.Calls(); !equalStrings(got, []string{"add", "select", "info", "unrestrict"}) {
		t.Errorf("calls = %v", got)
	}

	url, err := task.Result().Get()
	if err != nil || url != "https://dl.example/L1" {
		t.Errorf("Result() = %q, %v", url, err)
	}
}

func TestPipelineUnrestrictsFirstLinkOnly(t *testing.T) {
	svc := newFakeService()
	NewPipeline(svc, time.Second).Run(context.Background(), testMagnet, "token")

	if !equalStrings(svc.unrestricted, []string{"L1"}) {
		t.Errorf("unrestricted links = %v, want [L1]", svc.unrestricted)
	}
}

func TestPipelineFailures(t *testing.T) {
	tests := []struct {
		name      string
		magnet    string
		token     string
		setup     func(*fakeService)
		wantKind  Kind
		wantStep  State
		wantCalls []string
		wantTask  string
	}{
		{
			name:      "malformed magnet never reaches the service",
			magnet:    "http://not-a-magnet",
			token:     "token",
			wantKind:  SubmissionFailed,
			wantStep:  StateSubmitted,
			wantCalls: nil,
		},
		{
			name:      "missing credentials",
			magnet:    testMagnet,
			token:     "",
			wantKind:  SubmissionFailed,
			wantStep:  StateSubmitted,
			wantCalls: nil,
		},
		{
			name:      "submission error short-circuits",
			magnet:    testMagnet,
			token:     "token",
			setup:     func(f *fakeService) { f.addErr = errors.New("boom") },
			wantKind:  SubmissionFailed,
			wantStep:  StateSubmitted,
			wantCalls: []string{"add"},
		},
		{
			name:      "empty task id is a submission failure",
			magnet:    testMagnet,
			token:     "token",
			setup:     func(f *fakeService) { f.addResp = &AddTorrentResponse{} },
			wantKind:  SubmissionFailed,
			wantStep:  StateSubmitted,
			wantCalls: []string{"add"},
		},
		{
			name:      "selection failure",
			magnet:    testMagnet,
			token:     "token",
			setup:     func(f *fakeService) { f.selectErr = &APIError{StatusCode: 503} },
			wantKind:  SelectionFailed,
			wantStep:  StateFilesSelected,
			wantCalls: []string{"add", "select"},
			wantTask:  "RD123",
		},
		{
			name:   "no links yet is not ready",
			magnet: testMagnet,
			token:  "token",
			setup: func(f *fakeService) {
				f.infos = []*TorrentInfo{{Status: StatusDownloading, Progress: 42}}
			},
			wantKind:  NotReadyYet,
			wantStep:  StateReady,
			wantCalls: []string{"add", "select", "info"},
			wantTask:  "RD123",
		},
		{
			name:      "status call error is not ready",
			magnet:    testMagnet,
			token:     "token",
			setup:     func(f *fakeService) { f.infoErr = errors.New("connection reset") },
			wantKind:  NotReadyYet,
			wantStep:  StateReady,
			wantCalls: []string{"add", "select", "info"},
			wantTask:  "RD123",
		},
		{
			name:   "empty status response is not ready",
			magnet: testMagnet,
			token:  "token",
			setup: func(f *fakeService) {
				f.infos = []*TorrentInfo{nil}
			},
			wantKind:  NotReadyYet,
			wantStep:  StateReady,
			wantCalls: []string{"add", "select", "info"},
			wantTask:  "RD123",
		},
		{
			name:   "dead torrent is terminal",
			magnet: testMagnet,
			token:  "token",
			setup: func(f *fakeService) {
				f.infos = []*TorrentInfo{{Status: StatusMagnetError}}
			},
			wantKind:  TaskDead,
			wantStep:  StateReady,
			wantCalls: []string{"add", "select", "info"},
			wantTask:  "RD123",
		},
		{
			name:      "unrestriction failure",
			magnet:    testMagnet,
			token:     "token",
			setup:     func(f *fakeService) { f.unrestrictErr = errors.New("hoster unavailable") },
			wantKind:  UnrestrictionFailed,
			wantStep:  StateUnrestricted,
			wantCalls: []string{"add", "select", "info", "unrestrict"},
			wantTask:  "RD123",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newFakeService()
			if tt.setup != nil {
				tt.setup(svc)
			}

			task := NewPipeline(svc, time.Second).Run(context.Background(), tt.magnet, tt.token)

			if task.Failure == nil {
				t.Fatalf("expected failure, got state %s", task.State)
			}
			if task.Failure.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", task.Failure.Kind, tt.wantKind)
			}
			if task.Failure.Step != tt.wantStep {
				t.Errorf("Step = %s, want %s", task.Failure.Step, tt.wantStep)
			}
			if task.Failure.TaskID != tt.wantTask {
				t.Errorf("TaskID = %q, want %q", task.Failure.TaskID, tt.wantTask)
			}
			if got := svc.Calls(); !equalStrings(got, tt.wantCalls) {
				t.Errorf("calls = %v, want %v", got, tt.wantCalls)
			}
			if task.ResultURL != "" {
				t.Errorf("ResultURL set on failure: %q", task.ResultURL)
			}
			assertStrictPrefix(t, task.History)
			if len(task.History) != int(tt.wantStep)-1 {
				t.Errorf("History = %v, want %d states", task.History, int(tt.wantStep)-1)
			}

			if _, err := task.Result().Get(); err == nil {
				t.Error("Result() should be an error")
			} else if kind, ok := KindOf(err); !ok || kind != tt.wantKind {
				t.Errorf("KindOf(Result error) = %s, %v", kind, ok)
			}
		})
	}
}

func TestPipelineTimeoutClassifiedByStep(t *testing.T) {
	tests := []struct {
		step string
		want Kind
	}{
		{"add", SubmissionFailed},
		{"select", SelectionFailed},
		{"info", NotReadyYet},
		{"unrestrict", UnrestrictionFailed},
	}

	for _, tt := range tests {
		t.Run(tt.step, func(t *testing.T) {
			svc := newFakeService()
			svc.blockOn = tt.step

			task := NewPipeline(svc, 20*time.Millisecond).Run(context.Background(), testMagnet, "token")

			if task.Failure == nil || task.Failure.Kind != tt.want {
				t.Fatalf("Failure = %v, want kind %s", task.Failure, tt.want)
			}
			if !strings.Contains(task.Failure.Error(), "timed out") {
				t.Errorf("expected timeout detail, got %q", task.Failure.Error())
			}
			if !errors.Is(task.Failure, context.DeadlineExceeded) {
				t.Errorf("expected deadline exceeded in chain")
			}
		})
	}
}

func TestPipelineAbandonedRequestRunsNoFurtherSteps(t *testing.T) {
	svc := newFakeService()
	svc.blockOn = "select"

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	task := NewPipeline(svc, time.Second).Run(ctx, testMagnet, "token")

	if task.Failure == nil || task.Failure.Kind != SelectionFailed {
		t.Fatalf("Failure = %v, want SelectionFailed", task.Failure)
	}
	if got := svc.Calls(); !equalStrings(got, []string{"add", "select"}) {
		t.Errorf("calls = %v", got)
	}
}

func TestPipelineCancelledBeforeStart(t *testing.T) {
	svc := newFakeService()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	task := NewPipeline(svc, time.Second).Run(ctx, testMagnet, "token")

	if task.Failure == nil || task.Failure.Kind != SubmissionFailed {
		t.Fatalf("Failure = %v, want SubmissionFailed", task.Failure)
	}
	if len(svc.Calls()) != 0 {
		t.Errorf("no call expected, got %v", svc.Calls())
	}
}

func TestTaskAdvance(t *testing.T) {
	task := newTask(testMagnet)

	if err := task.advance(StateFilesSelected); err == nil {
		t.Error("skipping Submitted should fail")
	}
	if err := task.advance(StateSubmitted); err != nil {
		t.Fatalf("advance(Submitted): %v", err)
	}
	if err := task.advance(StateSubmitted); err == nil {
		t.Error("revisiting Submitted should fail")
	}
	if err := task.advance(StateReady); err == nil {
		t.Error("skipping FilesSelected should fail")
	}
	for _, s := range []State{StateFilesSelected, StateReady, StateUnrestricted} {
		if err := task.advance(s); err != nil {
			t.Fatalf("advance(%s): %v", s, err)
		}
	}
	if err := task.advance(StateUnrestricted + 1); err == nil {
		t.Error("advancing past Unrestricted should fail")
	}
	assertStrictPrefix(t, task.History)
}

func TestTaskAdvanceAfterFailure(t *testing.T) {
	task := newTask(testMagnet)
	task.fail(SubmissionFailed, StateSubmitted, "x", nil)
	if err := task.advance(StateSubmitted); err == nil {
		t.Error("failed task must not advance")
	}
}

func TestStateMarshalText(t *testing.T) {
	b, err := StateFilesSelected.MarshalText()
	if err != nil || string(b) != "FilesSelected" {
		t.Errorf("MarshalText() = %q, %v", b, err)
	}
	if State(42).String() != "State(42)" {
		t.Errorf("unexpected String() for unknown state: %s", State(42))
	}
}
