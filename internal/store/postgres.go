package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vector76/forum_server/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS groups (
    name TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS topics (
    id BIGSERIAL PRIMARY KEY,
    group_name TEXT NOT NULL REFERENCES groups(name) ON DELETE CASCADE,
    author TEXT NOT NULL,
    title TEXT NOT NULL,
    body TEXT NOT NULL,
    tags TEXT[] NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS comments (
    id BIGSERIAL PRIMARY KEY,
    topic_id BIGINT NOT NULL REFERENCES topics(id) ON DELETE CASCADE,
    parent_id BIGINT REFERENCES comments(id) ON DELETE CASCADE,
    author TEXT NOT NULL,
    body TEXT NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_topics_group_created ON topics(group_name, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_comments_topic ON comments(topic_id);
`

const topicColumns = `id, group_name, author, title, body, tags, created_at, updated_at`

// PGStore is a Repository backed by PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

var _ Repository = (*PGStore)(nil)

// OpenPostgres connects to the database, verifies the connection and
// creates the schema if needed.
func OpenPostgres(ctx context.Context, connString string) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &PGStore{pool: pool}, nil
}

// Close releases the connection pool.
func (p *PGStore) Close() error {
	p.pool.Close()
	return nil
}

func (p *PGStore) GetOrCreateGroup(ctx context.Context, g model.Group) (model.Group, bool, error) {
	if err := model.ValidateGroupName(g.Name); err != nil {
		return model.Group{}, false, err
	}

	var out model.Group
	err := p.pool.QueryRow(ctx,
		`INSERT INTO groups (name, title) VALUES ($1, $2)
         ON CONFLICT (name) DO NOTHING
         RETURNING name, title, created_at`,
		g.Name, g.Title,
	).Scan(&out.Name, &out.Title, &out.CreatedAt)
	if err == nil {
		return out, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, false, fmt.Errorf("inserting group: %w", err)
	}

	existing, err := p.GetGroup(ctx, g.Name)
	if err != nil {
		return model.Group{}, false, err
	}
	return existing, false, nil
}

func (p *PGStore) GetGroup(ctx context.Context, name string) (model.Group, error) {
	var g model.Group
	err := p.pool.QueryRow(ctx,
		`SELECT name, title, created_at FROM groups WHERE name = $1`, name,
	).Scan(&g.Name, &g.Title, &g.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Group{}, groupNotFound(name)
	}
	if err != nil {
		return model.Group{}, fmt.Errorf("querying group: %w", err)
	}
	return g, nil
}

func (p *PGStore) ListGroups(ctx context.Context) ([]model.Group, error) {
	rows, err := p.pool.Query(ctx, `SELECT name, title, created_at FROM groups ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing groups: %w", err)
	}
	defer rows.Close()

	groups := []model.Group{}
	for rows.Next() {
		var g model.Group
		if err := rows.Scan(&g.Name, &g.Title, &g.CreatedAt); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

func (p *PGStore) CreateTopic(ctx context.Context, t model.Topic) (model.Topic, error) {
	if err := checkTopic(t); err != nil {
		return model.Topic{}, err
	}
	if _, err := p.GetGroup(ctx, t.Group); err != nil {
		return model.Topic{}, err
	}
	if t.Tags == nil {
		t.Tags = []string{}
	}

	err := p.pool.QueryRow(ctx,
		`INSERT INTO topics (group_name, author, title, body, tags)
         VALUES ($1, $2, $3, $4, $5)
         RETURNING id, created_at, updated_at`,
		t.Group, t.Author, t.Title, t.Body, t.Tags,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return model.Topic{}, fmt.Errorf("inserting topic: %w", err)
	}
	return t, nil
}

func scanTopic(row pgx.Row) (model.Topic, error) {
	var t model.Topic
	err := row.Scan(&t.ID, &t.Group, &t.Author, &t.Title, &t.Body, &t.Tags, &t.CreatedAt, &t.UpdatedAt)
	if t.Tags == nil {
		t.Tags = []string{}
	}
	return t, err
}

func (p *PGStore) GetTopic(ctx context.Context, id int64) (model.Topic, error) {
	t, err := scanTopic(p.pool.QueryRow(ctx,
		`SELECT `+topicColumns+` FROM topics WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Topic{}, topicNotFound(id)
	}
	if err != nil {
		return model.Topic{}, fmt.Errorf("querying topic: %w", err)
	}
	return t, nil
}

func (p *PGStore) RecentTopics(ctx context.Context, group string, limit int) ([]model.Topic, error) {
	if limit < 1 {
		limit = DefaultRecentTopics
	}
	if _, err := p.GetGroup(ctx, group); err != nil {
		return nil, err
	}

	rows, err := p.pool.Query(ctx,
		`SELECT `+topicColumns+` FROM topics
         WHERE group_name = $1
         ORDER BY created_at DESC, id DESC
         LIMIT $2`, group, limit)
	if err != nil {
		return nil, fmt.Errorf("listing topics: %w", err)
	}
	defer rows.Close()

	topics := []model.Topic{}
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, err
		}
		topics = append(topics, t)
	}
	return topics, rows.Err()
}

func (p *PGStore) UpdateTopic(ctx context.Context, id int64, fields TopicFields) (model.Topic, error) {
	t, err := p.GetTopic(ctx, id)
	if err != nil {
		return model.Topic{}, err
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

	err = p.pool.QueryRow(ctx,
		`UPDATE topics SET title = $2, body = $3, tags = $4, updated_at = NOW()
         WHERE id = $1 RETURNING updated_at`,
		id, t.Title, t.Body, t.Tags,
	).Scan(&t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.Topic{}, topicNotFound(id)
	}
	if err != nil {
		return model.Topic{}, fmt.Errorf("updating topic: %w", err)
	}
	return t, nil
}

func (p *PGStore) AddReply(ctx context.Context, topicID int64, parentID *int64, c model.Comment) (model.Comment, error) {
	if err := checkComment(c); err != nil {
		return model.Comment{}, err
	}
	if _, err := p.GetTopic(ctx, topicID); err != nil {
		return model.Comment{}, err
	}
	if parentID != nil {
		var parentTopic int64
		err := p.pool.QueryRow(ctx, `SELECT topic_id FROM comments WHERE id = $1`, *parentID).Scan(&parentTopic)
		if errors.Is(err, pgx.ErrNoRows) || (err == nil && parentTopic != topicID) {
			return model.Comment{}, badParent(*parentID, topicID)
		}
		if err != nil {
			return model.Comment{}, fmt.Errorf("querying parent comment: %w", err)
		}
	}

	c.TopicID = topicID
	c.ParentID = parentID
	err := p.pool.QueryRow(ctx,
		`INSERT INTO comments (topic_id, parent_id, author, body)
         VALUES ($1, $2, $3, $4)
         RETURNING id, created_at`,
		topicID, parentID, c.Author, c.Body,
	).Scan(&c.ID, &c.CreatedAt)
	if err != nil {
		return model.Comment{}, fmt.Errorf("inserting comment: %w", err)
	}
	return c, nil
}

func (p *PGStore) Comments(ctx context.Context, topicID int64) ([]model.Comment, error) {
	if _, err := p.GetTopic(ctx, topicID); err != nil {
		return nil, err
	}
	rows, err := p.pool.Query(ctx,
		`SELECT id, topic_id, parent_id, author, body, created_at FROM comments
         WHERE topic_id = $1
         ORDER BY created_at, id`, topicID)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}
	defer rows.Close()

	comments := []model.Comment{}
	for rows.Next() {
		var c model.Comment
		if err := rows.Scan(&c.ID, &c.TopicID, &c.ParentID, &c.Author, &c.Body, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func (p *PGStore) TopTags(ctx context.Context, limit int) ([]model.TagCount, error) {
	query := `SELECT tag, COUNT(*) FROM topics, unnest(tags) AS tag
              GROUP BY tag ORDER BY COUNT(*) DESC, tag`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting tags: %w", err)
	}
	defer rows.Close()

	tags := []model.TagCount{}
	for rows.Next() {
		var tc model.TagCount
		if err := rows.Scan(&tc.Name, &tc.Count); err != nil {
			return nil, err
		}
		tags = append(tags, tc)
	}
	return tags, rows.Err()
}
