package store

import (
	"context"

	"github.com/vector76/forum_server/internal/model"
)

// DefaultRecentTopics is the listing size used by the topics page.
const DefaultRecentTopics = 50

// TopicFields specifies which fields to update on a topic.
// Nil pointer fields are left unchanged.
type TopicFields struct {
	Title *string
	Body  *string
	Tags  *[]string
}

// Repository is the persistence contract shared by the JSON file store
// and the PostgreSQL store.
type Repository interface {
	// GetOrCreateGroup returns the group named g.Name, creating it from g
	// if absent. The bool reports whether it was created.
	GetOrCreateGroup(ctx context.Context, g model.Group) (model.Group, bool, error)
	GetGroup(ctx context.Context, name string) (model.Group, error)
	ListGroups(ctx context.Context) ([]model.Group, error)

	CreateTopic(ctx context.Context, t model.Topic) (model.Topic, error)
	GetTopic(ctx context.Context, id int64) (model.Topic, error)
	// RecentTopics returns up to limit topics of a group, newest first.
	RecentTopics(ctx context.Context, group string, limit int) ([]model.Topic, error)
	UpdateTopic(ctx context.Context, id int64, fields TopicFields) (model.Topic, error)

	// AddReply attaches c to the topic, or to the comment parentID when
	// non-nil. The parent must belong to the same topic.
	AddReply(ctx context.Context, topicID int64, parentID *int64, c model.Comment) (model.Comment, error)
	// Comments returns a topic's comments ordered by creation.
	Comments(ctx context.Context, topicID int64) ([]model.Comment, error)

	// TopTags ranks tags by the number of topics carrying them.
	TopTags(ctx context.Context, limit int) ([]model.TagCount, error)

	Close() error
}
