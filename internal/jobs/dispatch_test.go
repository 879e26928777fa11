package jobs

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueFor(t *testing.T) {
	for op, queue := range map[string]string{
		OpImportNote:         QueueNote,
		OpImportImage:        QueueImage,
		OpImportIngredients:  QueueIngredient,
		OpImportInstructions: QueueInstruction,
		OpCategorizeNote:     QueueCategorize,
	} {
		got, err := QueueFor(op)
		require.NoError(t, err)
		assert.Equal(t, queue, got)
	}

	_, err := QueueFor("resize_thumbnails")
	assert.ErrorContains(t, err, "unknown operation")
}

func TestPipelinesBuild(t *testing.T) {
	p := NewPipelines(Deps{Log: quietLogger()})

	payload, err := json.Marshal(NotePayload{ImportID: uuid.New(), Content: "<h1>Soup</h1>"})
	require.NoError(t, err)

	actions, initial, err := p.Build(OpImportNote, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, actions)

	got, ok := initial.(NotePayload)
	require.True(t, ok)
	assert.Equal(t, "<h1>Soup</h1>", got.Content)
}

func TestPipelinesBuildRejectsBadInput(t *testing.T) {
	p := NewPipelines(Deps{Log: quietLogger()})

	_, _, err := p.Build(OpImportNote, []byte("{not json"))
	assert.ErrorContains(t, err, "bad import_note payload")

	_, _, err = p.Build("resize_thumbnails", []byte("{}"))
	assert.ErrorContains(t, err, "unknown operation")
}
