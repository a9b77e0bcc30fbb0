package summarize

import (
	"context"
	"errors"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/poll"
)

var errInjected = errors.New("injected failure")

// fakeAssistants records every resource it creates and deletes. failAt names
// the call that returns errInjected.
type fakeAssistants struct {
	mu        sync.Mutex
	failAt    string
	runs      []openai.RunStatus
	retrieves int
	created   []string
	deleted   []string
	uploaded  string
	reply     []openai.Message
	deleteErr error
}

func (f *fakeAssistants) step(name, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAt == name {
		return errInjected
	}
	if id != "" {
		f.created = append(f.created, id)
	}
	return nil
}

func (f *fakeAssistants) remove(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, id)
	return f.deleteErr
}

func (f *fakeAssistants) CreateFile(_ context.Context, req openai.FileRequest) (openai.File, error) {
	b, err := os.ReadFile(req.FilePath)
	if err != nil {
		return openai.File{}, err
	}
	f.uploaded = string(b)
	return openai.File{ID: "file-1"}, f.step("CreateFile", "file-1")
}

func (f *fakeAssistants) DeleteFile(_ context.Context, id string) error { return f.remove(id) }

func (f *fakeAssistants) CreateVectorStore(_ context.Context, req openai.VectorStoreRequest) (openai.VectorStore, error) {
	if len(req.FileIDs) != 1 || req.FileIDs[0] != "file-1" {
		return openai.VectorStore{}, errors.New("vector store not bound to file")
	}
	return openai.VectorStore{ID: "vs-1"}, f.step("CreateVectorStore", "vs-1")
}

func (f *fakeAssistants) DeleteVectorStore(_ context.Context, id string) (openai.VectorStoreDeleteResponse, error) {
	return openai.VectorStoreDeleteResponse{}, f.remove(id)
}

func (f *fakeAssistants) CreateAssistant(_ context.Context, req openai.AssistantRequest) (openai.Assistant, error) {
	if req.ToolResources == nil || req.ToolResources.FileSearch == nil || req.ToolResources.FileSearch.VectorStoreIDs[0] != "vs-1" {
		return openai.Assistant{}, errors.New("assistant not bound to vector store")
	}
	return openai.Assistant{ID: "asst-1"}, f.step("CreateAssistant", "asst-1")
}

func (f *fakeAssistants) DeleteAssistant(_ context.Context, id string) (openai.AssistantDeleteResponse, error) {
	return openai.AssistantDeleteResponse{}, f.remove(id)
}

func (f *fakeAssistants) CreateThread(context.Context, openai.ThreadRequest) (openai.Thread, error) {
	return openai.Thread{ID: "thread-1"}, f.step("CreateThread", "thread-1")
}

func (f *fakeAssistants) DeleteThread(_ context.Context, id string) (openai.ThreadDeleteResponse, error) {
	return openai.ThreadDeleteResponse{}, f.remove(id)
}

func (f *fakeAssistants) CreateMessage(_ context.Context, _ string, req openai.MessageRequest) (openai.Message, error) {
	return openai.Message{ID: "msg-1"}, f.step("CreateMessage", "")
}

func (f *fakeAssistants) CreateRun(_ context.Context, _ string, req openai.RunRequest) (openai.Run, error) {
	return openai.Run{ID: "run-1", Status: openai.RunStatusQueued}, f.step("CreateRun", "")
}

func (f *fakeAssistants) RetrieveRun(_ context.Context, _, runID string) (openai.Run, error) {
	if err := f.step("RetrieveRun", ""); err != nil {
		return openai.Run{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	status := openai.RunStatusCompleted
	if f.retrieves < len(f.runs) {
		status = f.runs[f.retrieves]
	}
	f.retrieves++
	run := openai.Run{ID: runID, Status: status}
	if status == openai.RunStatusFailed {
		run.LastError = &openai.RunLastError{Message: "vector store unavailable"}
	}
	return run, nil
}

func (f *fakeAssistants) ListMessage(context.Context, string, *int, *string, *string, *string, *string) (openai.MessagesList, error) {
	if err := f.step("ListMessage", ""); err != nil {
		return openai.MessagesList{}, err
	}
	return openai.MessagesList{Messages: f.reply}, nil
}

func assistantMessage(texts ...string) openai.Message {
	m := openai.Message{Role: string(openai.ThreadMessageRoleAssistant)}
	for _, t := range texts {
		m.Content = append(m.Content, openai.MessageContent{Type: "text", Text: &openai.MessageText{Value: t}})
	}
	return m
}

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newTestAssistant(t *testing.T, client AssistantClient) (*Assistant, string) {
	t.Helper()
	dir := t.TempDir()
	p := poll.New(poll.Config{Interval: time.Millisecond, MaxAttempts: 5}, noSleep)
	return NewAssistant(client, p, "", dir, zerolog.Nop()), dir
}

func sameResources(a, b []string) bool {
	a, b = append([]string(nil), a...), append([]string(nil), b...)
	sort.Strings(a)
	sort.Strings(b)
	return strings.Join(a, ",") == strings.Join(b, ",")
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("upload dir still holds %d artifacts", len(entries))
	}
}

func TestAssistantSummarizeText(t *testing.T) {
	client := &fakeAssistants{
		runs:  []openai.RunStatus{openai.RunStatusInProgress, openai.RunStatusCompleted},
		reply: []openai.Message{{Role: string(openai.ThreadMessageRoleUser)}, assistantMessage("part one", "part two")},
	}
	a, dir := newTestAssistant(t, client)

	got, err := a.SummarizeText(context.Background(), "a very long lecture")
	if err != nil {
		t.Fatal(err)
	}
	if got != "part one\npart two" {
		t.Errorf("got %q", got)
	}
	if client.uploaded != "a very long lecture" {
		t.Errorf("uploaded %q", client.uploaded)
	}
	want := []string{"thread-1", "asst-1", "vs-1", "file-1"}
	if strings.Join(client.deleted, ",") != strings.Join(want, ",") {
		t.Errorf("deleted %v, want %v (newest first)", client.deleted, want)
	}
	assertEmptyDir(t, dir)
}

func TestAssistantReleasesOnFailure(t *testing.T) {
	steps := []string{
		"CreateFile", "CreateVectorStore", "CreateAssistant", "CreateThread",
		"CreateMessage", "CreateRun", "RetrieveRun", "ListMessage",
	}
	for _, step := range steps {
		t.Run(step, func(t *testing.T) {
			client := &fakeAssistants{failAt: step, runs: []openai.RunStatus{openai.RunStatusInProgress}}
			a, dir := newTestAssistant(t, client)

			_, err := a.SummarizeText(context.Background(), "text")
			if !errors.Is(err, errInjected) {
				t.Fatalf("err = %v, want injected failure", err)
			}
			if !apperr.Is(err, apperr.KindProvider) {
				t.Errorf("err = %v, want provider error", err)
			}
			if !sameResources(client.created, client.deleted) {
				t.Errorf("created %v but deleted %v", client.created, client.deleted)
			}
			assertEmptyDir(t, dir)
		})
	}
}

func TestAssistantRunFailed(t *testing.T) {
	client := &fakeAssistants{runs: []openai.RunStatus{openai.RunStatusFailed}}
	a, _ := newTestAssistant(t, client)

	_, err := a.SummarizeText(context.Background(), "text")
	if !apperr.Is(err, apperr.KindProvider) {
		t.Fatalf("err = %v, want provider error", err)
	}
	if !strings.Contains(err.Error(), "vector store unavailable") {
		t.Errorf("err = %v, want run error message", err)
	}
	if len(client.deleted) != 4 {
		t.Errorf("deleted %v, want all four resources", client.deleted)
	}
}

func TestAssistantRunNeverFinishes(t *testing.T) {
	client := &fakeAssistants{runs: []openai.RunStatus{
		openai.RunStatusInProgress, openai.RunStatusInProgress, openai.RunStatusInProgress,
		openai.RunStatusInProgress, openai.RunStatusInProgress, openai.RunStatusInProgress,
	}}
	a, _ := newTestAssistant(t, client)

	_, err := a.SummarizeText(context.Background(), "text")
	if !errors.Is(err, poll.ErrExhausted) {
		t.Fatalf("err = %v, want exhausted", err)
	}
	if e := apperr.From(err); e.Kind != apperr.KindTimeout {
		t.Errorf("kind = %s, want timeout", e.Kind)
	}
	if len(client.deleted) != 4 {
		t.Errorf("deleted %v, want all four resources", client.deleted)
	}
}

func TestAssistantReleasesAfterCancel(t *testing.T) {
	client := &fakeAssistants{runs: []openai.RunStatus{openai.RunStatusInProgress}}
	a, _ := newTestAssistant(t, client)

	ctx, cancel := context.WithCancel(context.Background())
	a.poller = poll.New(poll.Config{Interval: time.Millisecond, MaxAttempts: 5}, func(ctx context.Context, _ time.Duration) error {
		cancel()
		return ctx.Err()
	})

	_, err := a.SummarizeText(ctx, "text")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want canceled", err)
	}
	if !sameResources(client.created, client.deleted) {
		t.Errorf("created %v but deleted %v", client.created, client.deleted)
	}
}

// stallingRuns hangs in RetrieveRun until the context ends and then fails
// without wrapping ctx.Err(), like an HTTP client cut off mid-request.
type stallingRuns struct {
	*fakeAssistants
}

func (s stallingRuns) RetrieveRun(ctx context.Context, _, _ string) (openai.Run, error) {
	<-ctx.Done()
	return openai.Run{}, errors.New("Get \"https://api.openai.com/v1/threads/thread-1/runs/run-1\": context deadline exceeded")
}

func TestAssistantDeadlineDuringRetrieveIsTimeout(t *testing.T) {
	client := &fakeAssistants{}
	a, _ := newTestAssistant(t, stallingRuns{client})
	a.poller = poll.New(poll.Config{Interval: time.Millisecond, Timeout: 20 * time.Millisecond}, noSleep)

	_, err := a.SummarizeText(context.Background(), "text")
	if e := apperr.From(err); e.Kind != apperr.KindTimeout {
		t.Fatalf("err = %v, want timeout", err)
	}
	if !sameResources(client.created, client.deleted) {
		t.Errorf("created %v but deleted %v", client.created, client.deleted)
	}
}

func TestAssistantDeleteFailuresAreLogged(t *testing.T) {
	client := &fakeAssistants{deleteErr: errors.New("already gone"), reply: []openai.Message{assistantMessage("summary")}}
	a, _ := newTestAssistant(t, client)

	got, err := a.SummarizeText(context.Background(), "text")
	if err != nil {
		t.Fatalf("release failure surfaced: %v", err)
	}
	if got != "summary" {
		t.Errorf("got %q", got)
	}
	if len(client.deleted) != 4 {
		t.Errorf("deleted %v, want every resource attempted", client.deleted)
	}
}

func TestAssistantNoReply(t *testing.T) {
	client := &fakeAssistants{reply: []openai.Message{{Role: string(openai.ThreadMessageRoleUser)}}}
	a, _ := newTestAssistant(t, client)

	_, err := a.SummarizeText(context.Background(), "text")
	if !apperr.Is(err, apperr.KindProvider) {
		t.Errorf("err = %v, want provider error", err)
	}
}

func TestStageNamesArtifacts(t *testing.T) {
	dir := t.TempDir()
	path, err := stage(dir, strings.NewReader("body"), ".pdf")
	if err != nil {
		t.Fatal(err)
	}
	name := path[len(dir)+1:]
	if !regexp.MustCompile(`^[A-Za-z0-9]{12}\.pdf$`).MatchString(name) {
		t.Errorf("artifact name %q", name)
	}
	b, err := os.ReadFile(path)
	if err != nil || string(b) != "body" {
		t.Errorf("artifact content %q, %v", b, err)
	}
}
