package jobs

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonathan/recipe-importer/internal/pipeline"
	"github.com/jonathan/recipe-importer/internal/types"
)

// Image pipeline action names.
const (
	ActionFetchImage           = "fetch_image"
	ActionStoreImage           = "store_image"
	ActionAttachImage          = "attach_image"
	ActionImageCompletedStatus = "image_completed_status"
	ActionImageSkippedStatus   = "image_skipped_status"
)

// RegisterImageActions fills a registry with the image pipeline's actions.
func RegisterImageActions(reg *pipeline.Registry[Deps]) {
	reg.Register(ActionFetchImage, newFetchImage)
	reg.Register(ActionStoreImage, newStoreImage)
	reg.Register(ActionAttachImage, newAttachImage)
	reg.Register(ActionImageCompletedStatus, newImageCompletedStatus)
	reg.Register(ActionImageSkippedStatus, newImageSkippedStatus)
}

// BuildImagePipeline composes the image import pipeline. A payload with no
// image URL, or a worker without image storage configured, reduces to a
// single status step so the import still records that the image stage ran.
func BuildImagePipeline(reg *pipeline.Registry[Deps], deps Deps, payload ImagePayload) ([]pipeline.Action, error) {
	if payload.URL == "" || deps.Images == nil {
		a, err := reg.Create(ActionImageSkippedStatus, deps)
		if err != nil {
			return nil, err
		}
		return []pipeline.Action{bestEffort(a, deps)}, nil
	}

	actions := make([]pipeline.Action, 0, 4)
	for _, name := range []string{ActionFetchImage, ActionStoreImage, ActionAttachImage} {
		a, err := reg.Create(name, deps)
		if err != nil {
			return nil, err
		}
		actions = append(actions, retried(a, deps))
	}
	status, err := reg.Create(ActionImageCompletedStatus, deps)
	if err != nil {
		return nil, err
	}
	return append(actions, bestEffort(status, deps)), nil
}

func newFetchImage(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[ImagePayload, FetchedImage]{
		Name:      ActionFetchImage,
		Retryable: true,
		Validate: func(p ImagePayload) error {
			if p.URL == "" {
				return errors.New("image url is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p ImagePayload) (FetchedImage, error) {
			data, contentType, err := d.Fetcher.FetchImage(ctx, p.URL)
			if err != nil {
				return FetchedImage{}, fmt.Errorf("failed to fetch image %s: %w", p.URL, err)
			}
			return FetchedImage{ImagePayload: p, Data: data, ContentType: contentType}, nil
		},
	})
}

func newStoreImage(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[FetchedImage, StoredImage]{
		Name:      ActionStoreImage,
		Retryable: true,
		Validate: func(p FetchedImage) error {
			if len(p.Data) == 0 {
				return errors.New("image data is empty")
			}
			return nil
		},
		Run: func(ctx context.Context, p FetchedImage) (StoredImage, error) {
			key, err := d.Images.Put(ctx, p.NoteID, p.URL, p.ContentType, p.Data)
			if err != nil {
				return StoredImage{}, fmt.Errorf("failed to store image: %w", err)
			}
			return StoredImage{FetchedImage: p, Key: key}, nil
		},
	})
}

func newAttachImage(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[StoredImage, StoredImage]{
		Name:      ActionAttachImage,
		Retryable: true,
		Validate: func(p StoredImage) error {
			if p.Key == "" {
				return errors.New("image key is required")
			}
			return nil
		},
		Run: func(ctx context.Context, p StoredImage) (StoredImage, error) {
			if err := d.Repo.SetNoteImage(ctx, p.NoteID, p.Key); err != nil {
				return StoredImage{}, fmt.Errorf("failed to attach image to note %s: %w", p.NoteID, err)
			}
			return p, nil
		},
	})
}

func newImageCompletedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[StoredImage, StoredImage]{
		Name: ActionImageCompletedStatus,
		Run: func(ctx context.Context, p StoredImage) (StoredImage, error) {
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportImageComplete, "image stored", 1); err != nil {
				return StoredImage{}, err
			}
			return p, nil
		},
	})
}

func newImageSkippedStatus(d Deps) pipeline.Action {
	return pipeline.New(pipeline.Spec[ImagePayload, ImagePayload]{
		Name: ActionImageSkippedStatus,
		Run: func(ctx context.Context, p ImagePayload) (ImagePayload, error) {
			if err := notify(ctx, d, p.ImportID, &p.NoteID, types.ImportImageComplete, "image skipped", 0); err != nil {
				return ImagePayload{}, err
			}
			return p, nil
		},
	})
}
