package usecase

import (
	"context"

	"cinelist/internal/store"
)

// MarksUsecase stores the per-list overlay of user-hidden film ids. The
// ids are opaque here: stored and returned verbatim, no interpretation.
type MarksUsecase struct {
	st    store.Store
	lists *ListUsecase
}

func NewMarksUsecase(st store.Store, lists *ListUsecase) *MarksUsecase {
	return &MarksUsecase{st: st, lists: lists}
}

func (u *MarksUsecase) Get(ctx context.Context, sourceURL string) ([]string, error) {
	normalized, err := u.lists.ValidateSourceURL(sourceURL)
	if err != nil {
		return nil, err
	}
	return u.st.GetMarks(ctx, store.ListKey(normalized))
}

// Save replaces the full mark set for the list.
func (u *MarksUsecase) Save(ctx context.Context, sourceURL string, marks []string) error {
	normalized, err := u.lists.ValidateSourceURL(sourceURL)
	if err != nil {
		return err
	}
	if marks == nil {
		marks = []string{}
	}
	return u.st.SaveMarks(ctx, store.ListKey(normalized), marks)
}
