package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"cinelist/internal/domain/film"
	"cinelist/internal/store"
)

const testBaseURL = "https://films.example.com"

func TestValidateSourceURL(t *testing.T) {
	u := NewListUsecase(store.NewMemory(), testBaseURL)

	cases := []struct {
		name string
		raw  string
		ok   bool
	}{
		{"valid", testBaseURL + "/best/", true},
		{"valid with query", testBaseURL + "/best/?sort=rating", true},
		{"trims whitespace", "  " + testBaseURL + "/best/  ", true},
		{"host case-insensitive", "https://FILMS.example.com/best/", true},
		{"empty", "", false},
		{"relative", "/best/", false},
		{"no scheme", "films.example.com/best/", false},
		{"wrong host", "https://other.example.com/best/", false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := u.ValidateSourceURL(c.raw)
			if c.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !c.ok {
				if err == nil {
					t.Fatal("expected error")
				}
				if !errors.Is(err, ErrInvalidInput) {
					t.Fatalf("error not tagged invalid input: %v", err)
				}
			}
		})
	}
}

func TestValidateSourceURL_NoConfiguredHost(t *testing.T) {
	// Without a configured source site any well-formed absolute URL passes.
	u := NewListUsecase(store.NewMemory(), "")
	if _, err := u.ValidateSourceURL("https://anything.example.com/x/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestListGet_EmptyWithoutSnapshot(t *testing.T) {
	st := store.NewMemory()
	u := NewListUsecase(st, testBaseURL)

	view, err := u.Get(context.Background(), testBaseURL+"/best/")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if view.Snapshot == nil {
		t.Fatal("nil snapshot")
	}
	if len(view.Snapshot.Films) != 0 {
		t.Errorf("expected empty films, got %d", len(view.Snapshot.Films))
	}
	if view.Key == "" {
		t.Error("empty key")
	}
}

func TestListGet_ReturnsCachedSnapshotAndMarks(t *testing.T) {
	st := store.NewMemory()
	u := NewListUsecase(st, testBaseURL)

	src := testBaseURL + "/best/"
	key := store.ListKey(src)
	snap := &film.ListSnapshot{
		Key:        key,
		SourceURL:  src,
		Films:      []film.Record{{ID: "10001", Title: "Blue Moon"}},
		CapturedAt: time.Now(),
	}
	if err := st.SaveList(context.Background(), key, snap); err != nil {
		t.Fatalf("SaveList: %v", err)
	}
	if err := st.SaveMarks(context.Background(), key, []string{"10001"}); err != nil {
		t.Fatalf("SaveMarks: %v", err)
	}

	view, err := u.Get(context.Background(), src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(view.Snapshot.Films) != 1 || view.Snapshot.Films[0].ID != "10001" {
		t.Errorf("snapshot: %+v", view.Snapshot)
	}
	if len(view.Marks) != 1 || view.Marks[0] != "10001" {
		t.Errorf("marks: %v", view.Marks)
	}
}

func TestMarksRoundtrip(t *testing.T) {
	st := store.NewMemory()
	lists := NewListUsecase(st, testBaseURL)
	u := NewMarksUsecase(st, lists)

	src := testBaseURL + "/best/"
	ctx := context.Background()

	marks, err := u.Get(ctx, src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("expected no marks, got %v", marks)
	}

	if err := u.Save(ctx, src, []string{"10001", "10002"}); err != nil {
		t.Fatalf("Save: %v", err)
	}
	marks, err = u.Get(ctx, src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(marks) != 2 {
		t.Fatalf("marks: %v", marks)
	}

	// Saving nil clears the set instead of erroring.
	if err := u.Save(ctx, src, nil); err != nil {
		t.Fatalf("Save nil: %v", err)
	}
	marks, err = u.Get(ctx, src)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(marks) != 0 {
		t.Errorf("marks after clear: %v", marks)
	}

	if err := u.Save(ctx, "not-a-url", []string{"x"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("expected invalid input, got %v", err)
	}
}
