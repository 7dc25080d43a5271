package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/docstore"
	"github.com/starford/promptpad/internal/index"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/testutil"
)

type fakeIndex struct{ ix models.PromptIndex }

func (f fakeIndex) Get() (models.PromptIndex, error) { return f.ix.Clone(), nil }

type fakeBodies struct {
	bodies   map[string]string
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (f *fakeBodies) Content(id string) (string, error) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	b, ok := f.bodies[id]
	if !ok {
		return "", fmt.Errorf("%w: prompt %s", apperr.ErrNotFound, id)
	}
	return b, nil
}

func entries(ids ...string) []models.PromptMetadata {
	out := make([]models.PromptMetadata, len(ids))
	for i, id := range ids {
		out[i] = models.PromptMetadata{ID: id, Name: id, Tags: []string{}}
	}
	return out
}

func ids(ms []models.PromptMetadata) []string {
	out := []string{}
	for _, m := range ms {
		out = append(out, m.ID)
	}
	return out
}

func TestSearchContent_CaseInsensitiveAndSkipsMissing(t *testing.T) {
	bodies := &fakeBodies{bodies: map[string]string{
		"a": "alpha beta",
		"b": "gamma",
		"d": "ALSO BETA HERE",
	}}
	s := New(fakeIndex{models.PromptIndex{Prompts: entries("a", "b", "c", "d")}}, bodies, 2, testutil.Logger())

	got, err := s.SearchContent(context.Background(), "BeTa")
	if err != nil {
		t.Fatalf("SearchContent: %v", err)
	}
	if diff := cmp.Diff([]string{"a", "d"}, ids(got)); diff != "" {
		t.Errorf("hits (-want +got):\n%s", diff)
	}
}

func TestSearchContent_MetacharactersAreLiteral(t *testing.T) {
	bodies := &fakeBodies{bodies: map[string]string{
		"a": "price is $5 (approx.)",
		"b": "price is 5 approx",
	}}
	s := New(fakeIndex{models.PromptIndex{Prompts: entries("a", "b")}}, bodies, 0, testutil.Logger())

	for _, q := range []string{"$5 (approx.)", "(", ".*"} {
		got, err := s.SearchContent(context.Background(), q)
		if err != nil {
			t.Fatalf("SearchContent(%q): %v", q, err)
		}
		want := []string{"a"}
		if q == ".*" {
			want = []string{}
		}
		if diff := cmp.Diff(want, ids(got)); diff != "" {
			t.Errorf("SearchContent(%q) (-want +got):\n%s", q, diff)
		}
	}
}

func TestSearchContent_EmptyQueryMatchesAll(t *testing.T) {
	bodies := &fakeBodies{bodies: map[string]string{"a": "x", "b": ""}}
	s := New(fakeIndex{models.PromptIndex{Prompts: entries("a", "b")}}, bodies, 0, testutil.Logger())
	got, err := s.SearchContent(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"a", "b"}, ids(got)); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestSearchContent_BoundedAndOrdered(t *testing.T) {
	var list []string
	bodies := &fakeBodies{bodies: map[string]string{}}
	for i := 0; i < 40; i++ {
		id := fmt.Sprintf("p%02d", i)
		list = append(list, id)
		bodies.bodies[id] = "needle"
	}
	s := New(fakeIndex{models.PromptIndex{Prompts: entries(list...)}}, bodies, 3, testutil.Logger())

	got, err := s.SearchContent(context.Background(), "needle")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(list, ids(got)); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
	if peak := bodies.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency = %d, want <= 3", peak)
	}
}

func TestSearchContent_Cancelled(t *testing.T) {
	bodies := &fakeBodies{bodies: map[string]string{"a": "x"}}
	s := New(fakeIndex{models.PromptIndex{Prompts: entries("a")}}, bodies, 0, testutil.Logger())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := s.SearchContent(ctx, "x"); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestSearchContent_OverStore(t *testing.T) {
	_, files := testutil.TestRoot(t)
	store := docstore.New(files, testutil.Logger())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	cache := index.NewCache(files, store, testutil.Logger())

	first, _ := store.Create(models.CreateInput{Name: "First", Content: "alpha beta"})
	second, _ := store.Create(models.CreateInput{Name: "Second", Content: "gamma"})
	_ = cache.Upsert(first)
	_ = cache.Upsert(second)

	s := New(cache, store, 0, testutil.Logger())
	got, err := s.SearchContent(context.Background(), "BETA")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]models.PromptMetadata{first}, got); diff != "" {
		t.Errorf("hits (-want +got):\n%s", diff)
	}

	// Deleted after indexing: skipped, not an error.
	_ = store.Delete(first.ID)
	got, err = s.SearchContent(context.Background(), "beta")
	if err != nil || len(got) != 0 {
		t.Errorf("after delete = %+v, %v", got, err)
	}
}

func TestListPrompts(t *testing.T) {
	ix := models.PromptIndex{Prompts: []models.PromptMetadata{
		{ID: "1", Name: "bravo", Folder: "work", Tags: []string{"Email"}, UseCount: 1},
		{ID: "2", Name: "Alpha", Folder: "work", Tags: []string{"code"}, UseCount: 1},
		{ID: "3", Name: "charlie", Folder: "home", Tags: []string{"email"}, UseCount: 5},
		{ID: "4", Name: "delta", Description: "Weekly REPORT", Folder: "work", Tags: []string{}},
	}}
	s := New(fakeIndex{ix}, &fakeBodies{}, 0, testutil.Logger())

	cases := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all by usage then name", Filter{}, []string{"3", "2", "1", "4"}},
		{"folder", Filter{Folder: "work"}, []string{"2", "1", "4"}},
		{"tag case-insensitive", Filter{Tag: "EMAIL"}, []string{"3", "1"}},
		{"query matches description", Filter{Query: "report"}, []string{"4"}},
		{"query matches name", Filter{Query: "ALP"}, []string{"2"}},
		{"combined", Filter{Folder: "work", Tag: "email"}, []string{"1"}},
		{"no match", Filter{Folder: "none"}, []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := s.ListPrompts(tc.filter)
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tc.want, ids(got)); diff != "" {
				t.Errorf("(-want +got):\n%s", diff)
			}
		})
	}
}
