package groups

import (
	"context"
	"errors"
	"fmt"
)

// ScopeResolver walks the chapter -> comic -> group hierarchy
type ScopeResolver struct {
	store Store
}

// NewScopeResolver creates a resolver over the given store
func NewScopeResolver(store Store) *ScopeResolver {
	return &ScopeResolver{store: store}
}

// FromComic returns the id of the group that owns the comic
func (r *ScopeResolver) FromComic(ctx context.Context, comicID int64) (int64, error) {
	comic, err := r.store.GetComic(ctx, comicID)
	if err != nil {
		return 0, err
	}
	return comic.GroupID, nil
}

// FromChapter returns the id of the group that owns the chapter's comic.
// A chapter whose comic is missing is reported as ErrResourceNotFound.
func (r *ScopeResolver) FromChapter(ctx context.Context, chapterID int64) (int64, error) {
	chapter, err := r.store.GetChapter(ctx, chapterID)
	if err != nil {
		return 0, err
	}

	groupID, err := r.FromComic(ctx, chapter.ComicID)
	if errors.Is(err, ErrResourceNotFound) {
		return 0, fmt.Errorf("chapter %d references missing comic %d: %w", chapterID, chapter.ComicID, ErrResourceNotFound)
	}
	return groupID, err
}
