package docstore

import (
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/starford/promptpad/internal/apperr"
	"github.com/starford/promptpad/internal/locator"
	"github.com/starford/promptpad/internal/models"
	"github.com/starford/promptpad/internal/storage"
	"github.com/starford/promptpad/internal/testutil"
)

var _ PathHints = (*locator.DB)(nil)

// fakeClock hands out strictly increasing timestamps.
type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, opts ...Option) (*Store, string, storage.Provider) {
	t.Helper()
	root, files := testutil.TestRoot(t)
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s := New(files, testutil.Logger(), opts...)
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s, root, files
}

func ptr[T any](v T) *T { return &v }

func TestCreate_DefaultFolder(t *testing.T) {
	s, root, _ := newTestStore(t)

	meta, err := s.Create(models.CreateInput{
		Name:    "Daily Standup",
		Content: "Agenda: ...",
		Tags:    []string{"work"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if meta.FilePath != "prompts/uncategorized/daily-standup.md" {
		t.Errorf("file path = %q", meta.FilePath)
	}
	if meta.Folder != models.DefaultFolder {
		t.Errorf("folder = %q", meta.Folder)
	}
	if meta.ID == "" || meta.UseCount != 0 || meta.LastUsedAt != nil {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if _, err := os.Stat(filepath.Join(root, "prompts", "uncategorized", "daily-standup.md")); err != nil {
		t.Errorf("file not written: %v", err)
	}

	p, loc, err := s.Read(meta.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p.Content != "Agenda: ..." || p.Name != "Daily Standup" {
		t.Errorf("read back %+v", p)
	}
	if loc.Path != meta.FilePath || loc.Checksum == "" {
		t.Errorf("location = %+v", loc)
	}
}

func TestCreate_Validation(t *testing.T) {
	s, _, _ := newTestStore(t)
	cases := []models.CreateInput{
		{Name: "   ", Content: "x"},
		{Name: "ok", Folder: "../escape"},
		{Name: "ok", Folder: "a/b"},
		{Name: "ok", Folder: ".."},
	}
	for _, in := range cases {
		if _, err := s.Create(in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Create(%+v) err = %v, want ErrInvalidInput", in, err)
		}
	}
}

func TestCreate_CollidingNamesGetSuffix(t *testing.T) {
	s, _, _ := newTestStore(t)

	a, err := s.Create(models.CreateInput{Name: "Same Name", Content: "first"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := s.Create(models.CreateInput{Name: "same/name", Content: "second"})
	if err != nil {
		t.Fatal(err)
	}
	if a.FilePath != "prompts/uncategorized/same-name.md" {
		t.Errorf("first path = %q", a.FilePath)
	}
	if b.FilePath != "prompts/uncategorized/same-name-2.md" {
		t.Errorf("second path = %q", b.FilePath)
	}

	for id, want := range map[string]string{a.ID: "first", b.ID: "second"} {
		got, err := s.Content(id)
		if err != nil || got != want {
			t.Errorf("Content(%s) = %q, %v, want %q", id, got, err, want)
		}
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Daily Standup":          "daily-standup",
		"../../etc/passwd":       "------etc-passwd",
		"snake_case-and-dash":    "snake_case-and-dash",
		"Ünïcödé Näme":           "ünïcödé-näme",
		"":                       "untitled",
		strings.Repeat("a", 80):  strings.Repeat("a", 50),
		"What? Why! (really)...": "what--why---really----",
	}
	for in, want := range cases {
		if got := slugify(in); got != want {
			t.Errorf("slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRead_NotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, _, err := s.Read("8d1f7a4e-0000-4000-8000-000000000000")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestUpdate_PartialFields(t *testing.T) {
	s, _, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Orig", Description: "d", Content: "body", Tags: []string{"a"}})

	updated, err := s.Update(meta.ID, models.UpdateInput{Content: ptr("new body")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Orig" || updated.Description != "d" || len(updated.Tags) != 1 {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !updated.CreatedAt.Equal(meta.CreatedAt) {
		t.Errorf("created changed: %v -> %v", meta.CreatedAt, updated.CreatedAt)
	}

	updated, err = s.Update(meta.ID, models.UpdateInput{Name: ptr("Renamed"), Tags: &[]string{"x", "y"}})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Renaming keeps the file name.
	if updated.FilePath != meta.FilePath || updated.Name != "Renamed" {
		t.Errorf("rename result %+v", updated)
	}
	body, _ := s.Content(meta.ID)
	if body != "new body" {
		t.Errorf("body = %q", body)
	}
}

func TestUpdate_FolderMove(t *testing.T) {
	s, root, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Mover", Content: "payload"})

	updated, err := s.Update(meta.ID, models.UpdateInput{Folder: ptr("archive")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FilePath != "prompts/archive/mover.md" || updated.Folder != "archive" {
		t.Errorf("moved metadata = %+v", updated)
	}
	if _, err := os.Stat(filepath.Join(root, "prompts", "uncategorized", "mover.md")); !os.IsNotExist(err) {
		t.Errorf("old file still present: %v", err)
	}
	p, loc, err := s.Read(meta.ID)
	if err != nil || loc.Path != "prompts/archive/mover.md" || p.Content != "payload" {
		t.Errorf("Read after move = %+v, %+v, %v", p, loc, err)
	}
}

func TestUpdate_FolderMoveAvoidsOverwrite(t *testing.T) {
	s, _, _ := newTestStore(t)
	inArchive, _ := s.Create(models.CreateInput{Name: "Clash", Content: "archived", Folder: "archive"})
	mover, _ := s.Create(models.CreateInput{Name: "Clash", Content: "moving"})

	updated, err := s.Update(mover.ID, models.UpdateInput{Folder: ptr("archive")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.FilePath != "prompts/archive/clash-2.md" {
		t.Errorf("path = %q", updated.FilePath)
	}
	if got, _ := s.Content(inArchive.ID); got != "archived" {
		t.Errorf("existing prompt overwritten: %q", got)
	}
}

func TestUpdate_EmptyFolderMeansDefault(t *testing.T) {
	s, _, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Back", Content: "x", Folder: "work"})
	updated, err := s.Update(meta.ID, models.UpdateInput{Folder: ptr("")})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Folder != models.DefaultFolder {
		t.Errorf("folder = %q", updated.Folder)
	}
}

func TestUpdate_WriteFailureAfterMoveKeepsPromptReadable(t *testing.T) {
	_, files := testutil.TestRoot(t)
	faulty := testutil.NewFaultFS(files)
	s := New(faulty, testutil.Logger())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	meta, err := s.Create(models.CreateInput{Name: "Fragile", Content: "original"})
	if err != nil {
		t.Fatal(err)
	}

	faulty.FailWrites("prompts/archive/fragile.md", true)
	_, err = s.Update(meta.ID, models.UpdateInput{Folder: ptr("archive"), Content: ptr("changed")})
	if !errors.Is(err, apperr.ErrIO) {
		t.Fatalf("err = %v, want ErrIO", err)
	}

	p, loc, err := s.Read(meta.ID)
	if err != nil {
		t.Fatalf("Read after failed update: %v", err)
	}
	if loc.Path != "prompts/archive/fragile.md" || p.Content != "original" {
		t.Errorf("got %q at %s", p.Content, loc.Path)
	}
	all, _ := s.ScanAll()
	if len(all) != 1 {
		t.Errorf("prompt exists at %d locations", len(all))
	}
}

func TestUpdate_IfMatch(t *testing.T) {
	s, _, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Locked", Content: "v1"})
	_, loc, _ := s.Read(meta.ID)

	if _, err := s.Update(meta.ID, models.UpdateInput{Content: ptr("v2"), IfMatch: loc.Checksum}); err != nil {
		t.Fatalf("update with fresh checksum: %v", err)
	}
	_, err := s.Update(meta.ID, models.UpdateInput{Content: ptr("v3"), IfMatch: loc.Checksum})
	if !errors.Is(err, apperr.ErrConflict) {
		t.Errorf("stale checksum err = %v, want ErrConflict", err)
	}
}

func TestUpdate_NotFound(t *testing.T) {
	s, _, _ := newTestStore(t)
	_, err := s.Update("8d1f7a4e-0000-4000-8000-000000000000", models.UpdateInput{Name: ptr("x")})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDelete(t *testing.T) {
	s, _, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Gone", Content: "x"})
	if err := s.Delete(meta.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(meta.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestRecordUsage(t *testing.T) {
	s, _, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Used", Content: "x"})

	first, err := s.RecordUsage(meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.RecordUsage(meta.ID)
	if err != nil {
		t.Fatal(err)
	}
	if second.UseCount != 2 {
		t.Errorf("use count = %d, want 2", second.UseCount)
	}
	if second.LastUsedAt == nil || !second.LastUsedAt.After(*first.LastUsedAt) {
		t.Errorf("last used not advanced: %v -> %v", first.LastUsedAt, second.LastUsedAt)
	}
	p, _, _ := s.Read(meta.ID)
	if p.UseCount != 2 || !p.LastUsedAt.Equal(*second.LastUsedAt) {
		t.Errorf("file usage = %d at %v", p.UseCount, p.LastUsedAt)
	}
}

func TestScanAll_SkipsMalformedAndStray(t *testing.T) {
	s, root, _ := newTestStore(t)
	valid, _ := s.Create(models.CreateInput{Name: "Valid", Content: "ok"})

	bad := filepath.Join(root, "prompts", "uncategorized", "broken.md")
	if err := os.WriteFile(bad, []byte("---\nname: no id\nbody without closing"), 0o644); err != nil {
		t.Fatal(err)
	}
	stray := filepath.Join(root, "prompts", "stray.md")
	if err := os.WriteFile(stray, []byte("not in a folder"), 0o644); err != nil {
		t.Fatal(err)
	}
	notes := filepath.Join(root, "prompts", "uncategorized", "notes.txt")
	_ = os.WriteFile(notes, []byte("ignored"), 0o644)

	all, err := s.ScanAll()
	if err != nil {
		t.Fatalf("ScanAll: %v", err)
	}
	if len(all) != 1 || all[0].ID != valid.ID {
		t.Errorf("ScanAll = %+v, want only %s", all, valid.ID)
	}
}

func TestScanAll_DuplicateIDKeepsFirst(t *testing.T) {
	s, root, _ := newTestStore(t)
	meta, _ := s.Create(models.CreateInput{Name: "Orig", Content: "x", Folder: "b"})
	data, _ := os.ReadFile(filepath.Join(root, "prompts", "b", "orig.md"))
	_ = os.MkdirAll(filepath.Join(root, "prompts", "a"), 0o755)
	_ = os.WriteFile(filepath.Join(root, "prompts", "a", "copy.md"), data, 0o644)

	all, err := s.ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != meta.ID || all[0].FilePath != "prompts/a/copy.md" {
		t.Errorf("ScanAll = %+v", all)
	}
}

func TestScanAll_ReflectsSequence(t *testing.T) {
	s, _, _ := newTestStore(t)
	want := map[string]models.PromptMetadata{}

	for _, name := range []string{"One", "Two", "Three", "Four"} {
		m, err := s.Create(models.CreateInput{Name: name, Content: "body " + name, Tags: []string{"t"}})
		if err != nil {
			t.Fatal(err)
		}
		want[m.ID] = m
	}
	var ids []string
	for id := range want {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	m, err := s.Update(ids[0], models.UpdateInput{Name: ptr("Renamed"), Folder: ptr("work")})
	if err != nil {
		t.Fatal(err)
	}
	want[m.ID] = m
	if err := s.Delete(ids[1]); err != nil {
		t.Fatal(err)
	}
	delete(want, ids[1])
	m, err = s.RecordUsage(ids[2])
	if err != nil {
		t.Fatal(err)
	}
	want[m.ID] = m

	all, err := s.ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	got := map[string]models.PromptMetadata{}
	for _, m := range all {
		got[m.ID] = m
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("scan mismatch (-want +got):\n%s", diff)
	}
}

func TestFolders(t *testing.T) {
	s, _, _ := newTestStore(t)
	if err := s.CreateFolder("work"); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateFolder("work"); err != nil {
		t.Errorf("creating an existing folder: %v", err)
	}
	if err := s.CreateFolder("../x"); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("err = %v, want ErrInvalidInput", err)
	}
	if err := s.CreateFolder(""); !errors.Is(err, apperr.ErrInvalidInput) {
		t.Errorf("empty name err = %v, want ErrInvalidInput", err)
	}
	folders, err := s.ListFolders()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"uncategorized", "work"}, folders); diff != "" {
		t.Errorf("folders (-want +got):\n%s", diff)
	}
}

func TestPathHints_StaleHintFallsBackToScan(t *testing.T) {
	hints := testutil.TestLocator(t)
	s, root, _ := newTestStore(t, WithPathHints(hints))
	meta, _ := s.Create(models.CreateInput{Name: "Hinted", Content: "x"})

	if p, ok := hints.Lookup(meta.ID); !ok || p != meta.FilePath {
		t.Fatalf("hint after create = %q, %v", p, ok)
	}

	// Move the file behind the store's back.
	_ = os.MkdirAll(filepath.Join(root, "prompts", "elsewhere"), 0o755)
	if err := os.Rename(filepath.Join(root, filepath.FromSlash(meta.FilePath)),
		filepath.Join(root, "prompts", "elsewhere", "hinted.md")); err != nil {
		t.Fatal(err)
	}

	_, loc, err := s.Read(meta.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if loc.Path != "prompts/elsewhere/hinted.md" {
		t.Errorf("loc = %+v", loc)
	}
	if p, _ := hints.Lookup(meta.ID); p != "prompts/elsewhere/hinted.md" {
		t.Errorf("hint not refreshed: %q", p)
	}

	if err := s.Delete(meta.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := hints.Lookup(meta.ID); ok {
		t.Error("hint survived delete")
	}
}

func TestCreate_UnusualTextSurvives(t *testing.T) {
	s, _, _ := newTestStore(t)

	in := models.CreateInput{
		Name:        "A",
		Description: "\nline two",
		Content:     "body",
		Tags:        []string{"\nwork", " spaced ", "tab\there"},
	}
	meta, err := s.Create(in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	p, _, err := s.Read(meta.ID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if p.Description != in.Description {
		t.Errorf("description = %q, want %q", p.Description, in.Description)
	}
	if diff := cmp.Diff(in.Tags, p.Tags); diff != "" {
		t.Errorf("tags (-want +got):\n%s", diff)
	}

	all, err := s.ScanAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 || all[0].ID != meta.ID {
		t.Errorf("scan = %+v", all)
	}

	if _, err := s.Update(meta.ID, models.UpdateInput{Tags: ptr([]string{"\n\nnext"})}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if p, _, err = s.Read(meta.ID); err != nil || len(p.Tags) != 1 || p.Tags[0] != "\n\nnext" {
		t.Errorf("after update: %+v, %v", p.Tags, err)
	}
}

func TestCreate_InvalidUTF8Rejected(t *testing.T) {
	s, root, _ := newTestStore(t)

	cases := []models.CreateInput{
		{Name: "bad\xff", Content: "x"},
		{Name: "ok", Description: "\xfe", Content: "x"},
		{Name: "ok", Content: "x", Tags: []string{"\xc3"}},
	}
	for _, in := range cases {
		if _, err := s.Create(in); !errors.Is(err, apperr.ErrInvalidInput) {
			t.Errorf("Create(%q) err = %v, want ErrInvalidInput", in.Name, err)
		}
	}
	entries, err := os.ReadDir(filepath.Join(root, "prompts", models.DefaultFolder))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("rejected creates left %d files", len(entries))
	}
}
