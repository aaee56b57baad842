package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vector76/forum_server/internal/model"
)

var ctx = context.Background()

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "forum.json")
}

// seeded returns a store with group "test" already created.
func seeded(t *testing.T) (*Store, string) {
	t.Helper()
	path := tempPath(t)
	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, _, err := s.GetOrCreateGroup(ctx, model.NewGroup("test", "Test Group")); err != nil {
		t.Fatalf("GetOrCreateGroup: %v", err)
	}
	return s, path
}

func mustTopic(t *testing.T, s *Store, title string, tags ...string) model.Topic {
	t.Helper()
	tp, err := s.CreateTopic(ctx, model.NewTopic("test", "alice", title, "body of "+title, tags))
	if err != nil {
		t.Fatalf("CreateTopic: %v", err)
	}
	return tp
}

func TestLoadMissingFileCreatesEmptyStore(t *testing.T) {
	s, err := Load(tempPath(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	groups, _ := s.ListGroups(ctx)
	if len(groups) != 0 {
		t.Errorf("expected empty store, got %d groups", len(groups))
	}
}

func TestLoadInvalidJSONReturnsError(t *testing.T) {
	path := tempPath(t)
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected error loading invalid JSON")
	}
}

func TestLoadRecomputesCounters(t *testing.T) {
	path := tempPath(t)
	fd := fileData{
		Groups:   []model.Group{{Name: "test", Title: "T"}},
		Topics:   []model.Topic{{ID: 7, Group: "test", Title: "x", Body: "y"}},
		Comments: []model.Comment{{ID: 12, TopicID: 7, Body: "c"}},
	}
	data, _ := json.Marshal(fd)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	tp := mustTopic(t, s, "next")
	if tp.ID != 8 {
		t.Errorf("expected next topic ID 8, got %d", tp.ID)
	}
	c, err := s.AddReply(ctx, 7, nil, model.Comment{Author: "bob", Body: "hi"})
	if err != nil {
		t.Fatalf("AddReply: %v", err)
	}
	if c.ID != 13 {
		t.Errorf("expected next comment ID 13, got %d", c.ID)
	}
}

// --- Group tests ---

func TestGetOrCreateGroup(t *testing.T) {
	s, _ := Load(tempPath(t))

	g, created, err := s.GetOrCreateGroup(ctx, model.NewGroup("golang", "Go"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !created || g.Title != "Go" {
		t.Errorf("expected new group 'Go', got %+v created=%v", g, created)
	}

	again, created, err := s.GetOrCreateGroup(ctx, model.NewGroup("golang", "Other title"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created {
		t.Error("expected existing group to be returned, not created")
	}
	if again.Title != "Go" {
		t.Errorf("expected first title to win, got %q", again.Title)
	}
}

func TestGetOrCreateGroupRejectsInvalidName(t *testing.T) {
	s, _ := Load(tempPath(t))
	_, _, err := s.GetOrCreateGroup(ctx, model.NewGroup("My Group!", "x"))
	var ve *model.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestGetGroupNotFound(t *testing.T) {
	s, _ := Load(tempPath(t))
	_, err := s.GetGroup(ctx, "nope")
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestListGroupsSorted(t *testing.T) {
	s, _ := Load(tempPath(t))
	for _, n := range []string{"zeta", "alpha", "mid"} {
		s.GetOrCreateGroup(ctx, model.NewGroup(n, n))
	}
	groups, _ := s.ListGroups(ctx)
	if len(groups) != 3 || groups[0].Name != "alpha" || groups[2].Name != "zeta" {
		t.Errorf("unexpected order: %+v", groups)
	}
}

// --- Topic tests ---

func TestCreateTopicAssignsSequentialIDs(t *testing.T) {
	s, _ := seeded(t)
	a := mustTopic(t, s, "first")
	b := mustTopic(t, s, "second")
	if a.ID != 1 || b.ID != 2 {
		t.Errorf("expected IDs 1 and 2, got %d and %d", a.ID, b.ID)
	}
}

func TestCreateTopicUnknownGroup(t *testing.T) {
	s, _ := seeded(t)
	_, err := s.CreateTopic(ctx, model.NewTopic("missing", "a", "t", "b", nil))
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestCreateTopicRequiresTitle(t *testing.T) {
	s, _ := seeded(t)
	_, err := s.CreateTopic(ctx, model.NewTopic("test", "a", "  ", "b", nil))
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "title" {
		t.Fatalf("expected title ValidationError, got %v", err)
	}
}

func TestGetTopicNotFound(t *testing.T) {
	s, _ := seeded(t)
	_, err := s.GetTopic(ctx, 99)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestRecentTopicsNewestFirstAndLimited(t *testing.T) {
	s, _ := seeded(t)
	s.GetOrCreateGroup(ctx, model.NewGroup("other", "Other"))
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		tp := model.NewTopic("test", "a", "t", "b", nil)
		tp.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if _, err := s.CreateTopic(ctx, tp); err != nil {
			t.Fatalf("CreateTopic: %v", err)
		}
	}
	s.CreateTopic(ctx, model.NewTopic("other", "a", "elsewhere", "b", nil))

	got, err := s.RecentTopics(ctx, "test", 3)
	if err != nil {
		t.Fatalf("RecentTopics: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 topics, got %d", len(got))
	}
	if got[0].ID != 5 || got[1].ID != 4 || got[2].ID != 3 {
		t.Errorf("expected IDs 5,4,3, got %d,%d,%d", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestRecentTopicsEmptyGroup(t *testing.T) {
	s, _ := seeded(t)
	got, err := s.RecentTopics(ctx, "test", 0)
	if err != nil {
		t.Fatalf("RecentTopics: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", got)
	}
}

func TestUpdateTopic(t *testing.T) {
	s, _ := seeded(t)
	tp := mustTopic(t, s, "before", "x")
	time.Sleep(time.Millisecond)

	title := "after"
	tags := []string{"y", "z"}
	updated, err := s.UpdateTopic(ctx, tp.ID, TopicFields{Title: &title, Tags: &tags})
	if err != nil {
		t.Fatalf("UpdateTopic: %v", err)
	}
	if updated.Title != "after" || len(updated.Tags) != 2 {
		t.Errorf("unexpected update result: %+v", updated)
	}
	if updated.Body != tp.Body {
		t.Errorf("expected body unchanged, got %q", updated.Body)
	}
	if !updated.UpdatedAt.After(tp.UpdatedAt) {
		t.Error("expected updated_at to advance")
	}
}

func TestUpdateTopicRejectsEmptyTitle(t *testing.T) {
	s, _ := seeded(t)
	tp := mustTopic(t, s, "keep")
	empty := ""
	if _, err := s.UpdateTopic(ctx, tp.ID, TopicFields{Title: &empty}); err == nil {
		t.Fatal("expected error for empty title")
	}
	got, _ := s.GetTopic(ctx, tp.ID)
	if got.Title != "keep" {
		t.Errorf("expected title unchanged, got %q", got.Title)
	}
}

// --- Comment tests ---

func TestAddReplyToTopicAndComment(t *testing.T) {
	s, _ := seeded(t)
	tp := mustTopic(t, s, "thread")

	root, err := s.AddReply(ctx, tp.ID, nil, model.Comment{Author: "bob", Body: "first"})
	if err != nil {
		t.Fatalf("AddReply root: %v", err)
	}
	if root.ParentID != nil || root.TopicID != tp.ID {
		t.Errorf("unexpected root comment: %+v", root)
	}

	child, err := s.AddReply(ctx, tp.ID, &root.ID, model.Comment{Author: "carol", Body: "second"})
	if err != nil {
		t.Fatalf("AddReply child: %v", err)
	}
	if child.ParentID == nil || *child.ParentID != root.ID {
		t.Errorf("expected parent %d, got %v", root.ID, child.ParentID)
	}

	comments, err := s.Comments(ctx, tp.ID)
	if err != nil {
		t.Fatalf("Comments: %v", err)
	}
	if len(comments) != 2 || comments[0].ID != root.ID {
		t.Errorf("unexpected comments: %+v", comments)
	}
}

func TestAddReplyParentFromOtherTopic(t *testing.T) {
	s, _ := seeded(t)
	a := mustTopic(t, s, "a")
	b := mustTopic(t, s, "b")
	c, _ := s.AddReply(ctx, a.ID, nil, model.Comment{Author: "x", Body: "on a"})

	_, err := s.AddReply(ctx, b.ID, &c.ID, model.Comment{Author: "y", Body: "on b"})
	var ve *model.ValidationError
	if !errors.As(err, &ve) || ve.Field != "parent_id" {
		t.Fatalf("expected parent_id ValidationError, got %v", err)
	}
}

func TestAddReplyMissingParent(t *testing.T) {
	s, _ := seeded(t)
	tp := mustTopic(t, s, "a")
	missing := int64(404)
	if _, err := s.AddReply(ctx, tp.ID, &missing, model.Comment{Body: "x"}); err == nil {
		t.Fatal("expected error for missing parent")
	}
}

func TestAddReplyUnknownTopic(t *testing.T) {
	s, _ := seeded(t)
	_, err := s.AddReply(ctx, 42, nil, model.Comment{Body: "x"})
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestAddReplyRequiresBody(t *testing.T) {
	s, _ := seeded(t)
	tp := mustTopic(t, s, "a")
	if _, err := s.AddReply(ctx, tp.ID, nil, model.Comment{Body: " "}); err == nil {
		t.Fatal("expected error for empty body")
	}
}

// --- Tag tests ---

func TestTopTags(t *testing.T) {
	s, _ := seeded(t)
	mustTopic(t, s, "1", "go", "web")
	mustTopic(t, s, "2", "go", "db")
	mustTopic(t, s, "3", "go", "web")

	tags, err := s.TopTags(ctx, 2)
	if err != nil {
		t.Fatalf("TopTags: %v", err)
	}
	if len(tags) != 2 {
		t.Fatalf("expected 2 tags, got %d", len(tags))
	}
	if tags[0] != (model.TagCount{Name: "go", Count: 3}) {
		t.Errorf("unexpected first tag: %+v", tags[0])
	}
	if tags[1] != (model.TagCount{Name: "web", Count: 2}) {
		t.Errorf("unexpected second tag: %+v", tags[1])
	}
}

func TestTopTagsTieBrokenByName(t *testing.T) {
	s, _ := seeded(t)
	mustTopic(t, s, "1", "beta", "alpha")
	tags, _ := s.TopTags(ctx, 0)
	if len(tags) != 2 || tags[0].Name != "alpha" {
		t.Errorf("expected alpha first, got %+v", tags)
	}
}

// --- Persistence tests ---

func TestPersistenceRoundTrip(t *testing.T) {
	s, path := seeded(t)
	tp := mustTopic(t, s, "persisted", "a", "b")
	c, _ := s.AddReply(ctx, tp.ID, nil, model.Comment{Author: "bob", Body: "hello"})
	s.AddReply(ctx, tp.ID, &c.ID, model.Comment{Author: "eve", Body: "nested"})

	s2, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	got, err := s2.GetTopic(ctx, tp.ID)
	if err != nil {
		t.Fatalf("GetTopic after reload: %v", err)
	}
	if got.Title != "persisted" || len(got.Tags) != 2 {
		t.Errorf("unexpected topic after reload: %+v", got)
	}
	comments, _ := s2.Comments(ctx, tp.ID)
	if len(comments) != 2 || comments[1].ParentID == nil || *comments[1].ParentID != c.ID {
		t.Errorf("unexpected comments after reload: %+v", comments)
	}
	if _, err := s2.GetGroup(ctx, "test"); err != nil {
		t.Errorf("expected group after reload: %v", err)
	}
}

func TestAtomicWriteFileExists(t *testing.T) {
	s, path := seeded(t)
	mustTopic(t, s, "on disk")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		t.Fatalf("file contains invalid JSON: %v", err)
	}
	if len(fd.Topics) != 1 || len(fd.Groups) != 1 {
		t.Errorf("expected 1 topic and 1 group in file, got %d and %d", len(fd.Topics), len(fd.Groups))
	}
	if fd.NextTopicID != 2 {
		t.Errorf("expected next_topic_id 2, got %d", fd.NextTopicID)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("expected no leftover temp files, got %v", matches)
	}
}
