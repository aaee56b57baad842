package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/vector76/forum_server/internal/model"
)

// Store holds forum data in memory and persists it to a JSON file.
type Store struct {
	mu            sync.RWMutex
	groups        map[string]model.Group
	topics        map[int64]model.Topic
	comments      map[int64]model.Comment
	nextTopicID   int64
	nextCommentID int64
	filePath      string
}

var _ Repository = (*Store)(nil)

// fileData is the on-disk JSON format.
type fileData struct {
	Groups        []model.Group   `json:"groups"`
	Topics        []model.Topic   `json:"topics"`
	Comments      []model.Comment `json:"comments"`
	NextTopicID   int64           `json:"next_topic_id"`
	NextCommentID int64           `json:"next_comment_id"`
}

// Load reads forum data from the given file path, or initializes an empty
// store if the file does not exist. Missing id counters are recomputed from
// the highest stored id.
func Load(path string) (*Store, error) {
	s := &Store{
		groups:        make(map[string]model.Group),
		topics:        make(map[int64]model.Topic),
		comments:      make(map[int64]model.Comment),
		nextTopicID:   1,
		nextCommentID: 1,
		filePath:      path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("reading data file: %w", err)
	}

	var fd fileData
	if err := json.Unmarshal(data, &fd); err != nil {
		return nil, fmt.Errorf("parsing data file: %w", err)
	}

	for _, g := range fd.Groups {
		s.groups[g.Name] = g
	}
	for _, t := range fd.Topics {
		if t.Tags == nil {
			t.Tags = []string{}
		}
		s.topics[t.ID] = t
		if t.ID >= s.nextTopicID {
			s.nextTopicID = t.ID + 1
		}
	}
	for _, c := range fd.Comments {
		s.comments[c.ID] = c
		if c.ID >= s.nextCommentID {
			s.nextCommentID = c.ID + 1
		}
	}
	if fd.NextTopicID > s.nextTopicID {
		s.nextTopicID = fd.NextTopicID
	}
	if fd.NextCommentID > s.nextCommentID {
		s.nextCommentID = fd.NextCommentID
	}

	return s, nil
}

// save writes all data to disk atomically (temp file + rename).
// Caller must hold s.mu.
func (s *Store) save() error {
	fd := fileData{
		Groups:        make([]model.Group, 0, len(s.groups)),
		Topics:        make([]model.Topic, 0, len(s.topics)),
		Comments:      make([]model.Comment, 0, len(s.comments)),
		NextTopicID:   s.nextTopicID,
		NextCommentID: s.nextCommentID,
	}
	for _, g := range s.groups {
		fd.Groups = append(fd.Groups, g)
	}
	for _, t := range s.topics {
		fd.Topics = append(fd.Topics, t)
	}
	for _, c := range s.comments {
		fd.Comments = append(fd.Comments, c)
	}
	sort.Slice(fd.Groups, func(i, j int) bool { return fd.Groups[i].Name < fd.Groups[j].Name })
	sort.Slice(fd.Topics, func(i, j int) bool { return fd.Topics[i].ID < fd.Topics[j].ID })
	sort.Slice(fd.Comments, func(i, j int) bool { return fd.Comments[i].ID < fd.Comments[j].ID })

	data, err := json.MarshalIndent(fd, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling data: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	tmp, err := os.CreateTemp(dir, "forum-*.json.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// GetOrCreateGroup returns the existing group or creates it.
func (s *Store) GetOrCreateGroup(_ context.Context, g model.Group) (model.Group, bool, error) {
	if err := model.ValidateGroupName(g.Name); err != nil {
		return model.Group{}, false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.groups[g.Name]; ok {
		return existing, false, nil
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now().UTC()
	}
	s.groups[g.Name] = g
	if err := s.save(); err != nil {
		delete(s.groups, g.Name)
		return model.Group{}, false, err
	}
	return g, true, nil
}

// GetGroup returns a group by name.
func (s *Store) GetGroup(_ context.Context, name string) (model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[name]
	if !ok {
		return model.Group{}, groupNotFound(name)
	}
	return g, nil
}

// ListGroups returns all groups ordered by name.
func (s *Store) ListGroups(_ context.Context) ([]model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Group, 0, len(s.groups))
	for _, g := range s.groups {
		result = append(result, g)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// CreateTopic assigns the next topic ID, stores the topic and persists.
// The topic's group must exist.
func (s *Store) CreateTopic(_ context.Context, t model.Topic) (model.Topic, error) {
	if err := checkTopic(t); err != nil {
		return model.Topic{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[t.Group]; !ok {
		return model.Topic{}, groupNotFound(t.Group)
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}

	t.ID = s.nextTopicID
	s.nextTopicID++
	s.topics[t.ID] = t
	if err := s.save(); err != nil {
		delete(s.topics, t.ID)
		s.nextTopicID--
		return model.Topic{}, err
	}
	return t, nil
}

// GetTopic returns a topic by ID.
func (s *Store) GetTopic(_ context.Context, id int64) (model.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.topics[id]
	if !ok {
		return model.Topic{}, topicNotFound(id)
	}
	return t, nil
}

// RecentTopics returns up to limit topics in group, newest first.
// A limit below 1 means DefaultRecentTopics.
func (s *Store) RecentTopics(_ context.Context, group string, limit int) ([]model.Topic, error) {
	if limit < 1 {
		limit = DefaultRecentTopics
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.groups[group]; !ok {
		return nil, groupNotFound(group)
	}

	var matched []model.Topic
	for _, t := range s.topics {
		if t.Group == group {
			matched = append(matched, t)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[j].CreatedAt.Before(matched[i].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})
	if len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		matched = []model.Topic{}
	}
	return matched, nil
}

// UpdateTopic applies partial updates to a topic, sets updated_at, and persists.
func (s *Store) UpdateTopic(_ context.Context, id int64, fields TopicFields) (model.Topic, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.topics[id]
	if !ok {
		return model.Topic{}, topicNotFound(id)
	}

	if fields.Title != nil {
		t.Title = *fields.Title
	}
	if fields.Body != nil {
		t.Body = *fields.Body
	}
	if fields.Tags != nil {
		t.Tags = *fields.Tags
		if t.Tags == nil {
			t.Tags = []string{}
		}
	}
	if err := checkTopic(t); err != nil {
		return model.Topic{}, err
	}
	t.UpdatedAt = time.Now().UTC()

	old := s.topics[id]
	s.topics[id] = t
	if err := s.save(); err != nil {
		s.topics[id] = old
		return model.Topic{}, err
	}
	return t, nil
}

// AddReply stores a comment on a topic or under a parent comment and persists.
func (s *Store) AddReply(_ context.Context, topicID int64, parentID *int64, c model.Comment) (model.Comment, error) {
	if err := checkComment(c); err != nil {
		return model.Comment{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.topics[topicID]; !ok {
		return model.Comment{}, topicNotFound(topicID)
	}
	if parentID != nil {
		parent, ok := s.comments[*parentID]
		if !ok || parent.TopicID != topicID {
			return model.Comment{}, badParent(*parentID, topicID)
		}
		pid := *parentID
		c.ParentID = &pid
	} else {
		c.ParentID = nil
	}

	c.TopicID = topicID
	c.CreatedAt = time.Now().UTC()
	c.ID = s.nextCommentID
	s.nextCommentID++
	s.comments[c.ID] = c
	if err := s.save(); err != nil {
		delete(s.comments, c.ID)
		s.nextCommentID--
		return model.Comment{}, err
	}
	return c, nil
}

// Comments returns a topic's comments ordered by creation time, then ID.
func (s *Store) Comments(_ context.Context, topicID int64) ([]model.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.topics[topicID]; !ok {
		return nil, topicNotFound(topicID)
	}

	result := []model.Comment{}
	for _, c := range s.comments {
		if c.TopicID == topicID {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.Before(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// TopTags counts tag usage across all topics and returns the most used,
// ties broken by name.
func (s *Store) TopTags(_ context.Context, limit int) ([]model.TagCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]int)
	for _, t := range s.topics {
		for _, tag := range t.Tags {
			counts[tag]++
		}
	}
	return rankTags(counts, limit), nil
}

func rankTags(counts map[string]int, limit int) []model.TagCount {
	result := make([]model.TagCount, 0, len(counts))
	for name, n := range counts {
		result = append(result, model.TagCount{Name: name, Count: n})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Name < result[j].Name
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result
}

// Close is a no-op; every write is already on disk.
func (s *Store) Close() error {
	return nil
}
