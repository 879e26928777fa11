package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

func imageDeps(repo *fakeRepo, f *fakeFetcher, s *fakeImageStore, n *fakeNotifier) Deps {
	return Deps{
		Repo:     repo,
		Fetcher:  f,
		Images:   s,
		Notifier: n,
		Log:      quietLogger(),
		Retry:    fastRetry(),
	}
}

func imageContext() *pipeline.ActionContext {
	return &pipeline.ActionContext{
		JobID:     uuid.New(),
		Queue:     QueueImage,
		Operation: OpImportImage,
		Worker:    "test-worker",
		Attempt:   1,
	}
}

func TestImagePipelineStoresAndAttaches(t *testing.T) {
	repo := &fakeRepo{}
	fetcher := &fakeFetcher{imageData: []byte("jpeg-bytes"), contentType: "image/jpeg"}
	store := &fakeImageStore{key: "notes/n1/image.jpg"}
	n := &fakeNotifier{}
	deps := imageDeps(repo, fetcher, store, n)

	reg := pipeline.NewRegistry[Deps]()
	RegisterImageActions(reg)

	payload := ImagePayload{ImportID: uuid.New(), NoteID: uuid.New(), URL: "https://example.com/soup.jpg"}
	actions, err := BuildImagePipeline(reg, deps, payload)
	require.NoError(t, err)
	require.Len(t, actions, 4)

	out, err := testExecutor().Run(context.Background(), imageContext(), actions, payload)
	require.NoError(t, err)

	stored := out.(StoredImage)
	assert.Equal(t, "notes/n1/image.jpg", stored.Key)
	assert.Equal(t, []byte("jpeg-bytes"), store.data)
	assert.Equal(t, "notes/n1/image.jpg", repo.imageKey)

	require.Len(t, n.events, 1)
	assert.Equal(t, types.ImportImageComplete, n.events[0].Status)
}

func TestImagePipelineReducesToStatusWithoutURL(t *testing.T) {
	n := &fakeNotifier{}
	deps := imageDeps(&fakeRepo{}, &fakeFetcher{}, &fakeImageStore{}, n)

	reg := pipeline.NewRegistry[Deps]()
	RegisterImageActions(reg)

	payload := ImagePayload{ImportID: uuid.New(), NoteID: uuid.New()}
	actions, err := BuildImagePipeline(reg, deps, payload)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, ActionImageSkippedStatus, pipeline.DisplayName(actions[0]))

	out, err := testExecutor().Run(context.Background(), imageContext(), actions, payload)
	require.NoError(t, err)
	assert.Equal(t, payload, out)

	require.Len(t, n.events, 1)
	assert.Equal(t, "image skipped", n.events[0].Message)
}

func TestImagePipelineRetriesFetch(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	deps := imageDeps(&fakeRepo{}, fetcher, &fakeImageStore{}, &fakeNotifier{})

	reg := pipeline.NewRegistry[Deps]()
	RegisterImageActions(reg)

	payload := ImagePayload{ImportID: uuid.New(), NoteID: uuid.New(), URL: "https://example.com/x.jpg"}
	actions, err := BuildImagePipeline(reg, deps, payload)
	require.NoError(t, err)

	_, err = testExecutor().Run(context.Background(), imageContext(), actions, payload)
	require.Error(t, err)
	// fastRetry allows one retry: two fetch attempts, then the pipeline fails.
	assert.Equal(t, 2, fetcher.imageCalls)
}
