package summarize

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"example.com/mediascribe/internal/apperr"
	"example.com/mediascribe/internal/poll"
)

const releaseTimeout = 30 * time.Second

// AssistantClient is the subset of *openai.Client used by a session.
type AssistantClient interface {
	CreateFile(ctx context.Context, request openai.FileRequest) (openai.File, error)
	DeleteFile(ctx context.Context, fileID string) error
	CreateVectorStore(ctx context.Context, request openai.VectorStoreRequest) (openai.VectorStore, error)
	DeleteVectorStore(ctx context.Context, vectorStoreID string) (openai.VectorStoreDeleteResponse, error)
	CreateAssistant(ctx context.Context, request openai.AssistantRequest) (openai.Assistant, error)
	DeleteAssistant(ctx context.Context, assistantID string) (openai.AssistantDeleteResponse, error)
	CreateThread(ctx context.Context, request openai.ThreadRequest) (openai.Thread, error)
	DeleteThread(ctx context.Context, threadID string) (openai.ThreadDeleteResponse, error)
	CreateMessage(ctx context.Context, threadID string, request openai.MessageRequest) (openai.Message, error)
	CreateRun(ctx context.Context, threadID string, request openai.RunRequest) (openai.Run, error)
	RetrieveRun(ctx context.Context, threadID string, runID string) (openai.Run, error)
	ListMessage(ctx context.Context, threadID string, limit *int, order *string, after *string, before *string, runID *string) (openai.MessagesList, error)
}

// Assistant summarizes a file by staging a throwaway assistant session
// around it: file, vector store, assistant, thread and run. Everything the
// session creates is deleted before the call returns, whatever the outcome.
type Assistant struct {
	client    AssistantClient
	poller    *poll.Poller
	model     string
	uploadDir string
	log       zerolog.Logger
}

func NewAssistant(client AssistantClient, poller *poll.Poller, model, uploadDir string, log zerolog.Logger) *Assistant {
	if model == "" {
		model = openai.GPT4o
	}
	return &Assistant{
		client:    client,
		poller:    poller,
		model:     model,
		uploadDir: uploadDir,
		log:       log,
	}
}

func (a *Assistant) SummarizeText(ctx context.Context, text string) (string, error) {
	return a.SummarizeReader(ctx, strings.NewReader(text), ".txt")
}

// SummarizeReader stages r as a local artifact with the given extension,
// summarizes it and removes the artifact.
func (a *Assistant) SummarizeReader(ctx context.Context, r io.Reader, ext string) (string, error) {
	if ext == "" {
		ext = ".txt"
	}
	path, err := stage(a.uploadDir, r, ext)
	if err != nil {
		return "", err
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			a.log.Warn().Err(err).Str("path", path).Msg("failed to remove artifact")
		}
	}()
	return a.SummarizeFile(ctx, path)
}

// SummarizeFile summarizes an existing local file. The file itself is left
// in place.
func (a *Assistant) SummarizeFile(ctx context.Context, path string) (string, error) {
	s := &session{log: a.log}
	defer s.release(ctx)

	file, err := a.client.CreateFile(ctx, openai.FileRequest{
		FileName: filepath.Base(path),
		FilePath: path,
		Purpose:  string(openai.PurposeAssistants),
	})
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("upload file: %w", err))
	}
	s.track("file", file.ID, func(ctx context.Context) error {
		return a.client.DeleteFile(ctx, file.ID)
	})

	store, err := a.client.CreateVectorStore(ctx, openai.VectorStoreRequest{
		Name:    "summarization-" + file.ID,
		FileIDs: []string{file.ID},
		ExpiresAfter: &openai.VectorStoreExpires{
			Anchor: "last_active_at",
			Days:   1,
		},
	})
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("create vector store: %w", err))
	}
	s.track("vector_store", store.ID, func(ctx context.Context) error {
		_, err := a.client.DeleteVectorStore(ctx, store.ID)
		return err
	})

	name, instructions := "Summarization", fileInstructions
	asst, err := a.client.CreateAssistant(ctx, openai.AssistantRequest{
		Model:        a.model,
		Name:         &name,
		Instructions: &instructions,
		Tools:        []openai.AssistantTool{{Type: openai.AssistantToolTypeFileSearch}},
		ToolResources: &openai.AssistantToolResource{
			FileSearch: &openai.AssistantToolFileSearch{VectorStoreIDs: []string{store.ID}},
		},
	})
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("create assistant: %w", err))
	}
	s.track("assistant", asst.ID, func(ctx context.Context) error {
		_, err := a.client.DeleteAssistant(ctx, asst.ID)
		return err
	})

	thread, err := a.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("create thread: %w", err))
	}
	// Deleting the thread also disposes of its runs and messages.
	s.track("thread", thread.ID, func(ctx context.Context) error {
		_, err := a.client.DeleteThread(ctx, thread.ID)
		return err
	})

	if _, err := a.client.CreateMessage(ctx, thread.ID, openai.MessageRequest{
		Role:    string(openai.ThreadMessageRoleUser),
		Content: fileRequest,
	}); err != nil {
		return "", apperr.Provider(fmt.Errorf("create message: %w", err))
	}

	run, err := a.client.CreateRun(ctx, thread.ID, openai.RunRequest{AssistantID: asst.ID})
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("create run: %w", err))
	}
	if err := a.awaitRun(ctx, thread.ID, run); err != nil {
		return "", err
	}

	return a.reply(ctx, thread.ID)
}

func (a *Assistant) awaitRun(ctx context.Context, threadID string, run openai.Run) error {
	done, err := runDone(run)
	if err != nil || done {
		return err
	}
	err = a.poller.Wait(ctx, func(ctx context.Context) (bool, error) {
		current, err := a.client.RetrieveRun(ctx, threadID, run.ID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return false, fmt.Errorf("%w: retrieve run: %v", ctxErr, err)
			}
			return false, apperr.Provider(fmt.Errorf("retrieve run: %w", err))
		}
		a.log.Debug().Str("run", run.ID).Str("status", string(current.Status)).Msg("polled run")
		return runDone(current)
	})
	if err != nil {
		return fmt.Errorf("summarize: waiting for run %s: %w", run.ID, err)
	}
	return nil
}

func runDone(run openai.Run) (bool, error) {
	switch run.Status {
	case openai.RunStatusCompleted:
		return true, nil
	case openai.RunStatusQueued, openai.RunStatusInProgress, openai.RunStatusCancelling, "":
		return false, nil
	}
	msg := string(run.Status)
	if run.LastError != nil && run.LastError.Message != "" {
		msg += ": " + run.LastError.Message
	}
	return false, apperr.Provider(fmt.Errorf("assistant run %s ended %s", run.ID, msg))
}

func (a *Assistant) reply(ctx context.Context, threadID string) (string, error) {
	limit, order := 10, "desc"
	list, err := a.client.ListMessage(ctx, threadID, &limit, &order, nil, nil, nil)
	if err != nil {
		return "", apperr.Provider(fmt.Errorf("list messages: %w", err))
	}
	for _, m := range list.Messages {
		if m.Role != string(openai.ThreadMessageRoleAssistant) {
			continue
		}
		var parts []string
		for _, c := range m.Content {
			if c.Text != nil {
				parts = append(parts, c.Text.Value)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "\n"), nil
		}
	}
	return "", apperr.Provider(errors.New("assistant produced no reply"))
}

type tracked struct {
	kind string
	id   string
	fn   func(ctx context.Context) error
}

// session is the release stack for one summarization.
type session struct {
	log      zerolog.Logger
	releases []tracked
}

func (s *session) track(kind, id string, fn func(ctx context.Context) error) {
	s.releases = append(s.releases, tracked{kind: kind, id: id, fn: fn})
}

// release deletes every tracked resource, newest first. It runs even when
// ctx is already cancelled, and failures are only logged.
func (s *session) release(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for i := len(s.releases) - 1; i >= 0; i-- {
		r := s.releases[i]
		if err := r.fn(ctx); err != nil {
			s.log.Warn().Err(err).Str("resource", r.kind).Str("id", r.id).Msg("failed to release assistant resource")
			continue
		}
		s.log.Debug().Str("resource", r.kind).Str("id", r.id).Msg("released assistant resource")
	}
}
