package model

import (
	"strconv"
	"strings"
	"time"
)

// Topic is a post in a group. ID is assigned by the store.
type Topic struct {
	ID        int64     `json:"id"`
	Group     string    `json:"group"`
	Author    string    `json:"author"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewTopic creates a Topic with defaults. The ID is left zero.
func NewTopic(group, author, title, body string, tags []string) Topic {
	now := time.Now().UTC()
	if tags == nil {
		tags = []string{}
	}
	return Topic{
		Group:     group,
		Author:    author,
		Title:     title,
		Body:      body,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Path returns the topic's page path, /<group>/<id>.
func (t Topic) Path() string {
	return TopicPath(t.Group, t.ID)
}

// TopicPath builds the page path for a topic in a group.
func TopicPath(group string, id int64) string {
	return GroupPath(group) + "/" + strconv.FormatInt(id, 10)
}

// GroupPath builds the topic listing path for a group.
func GroupPath(group string) string {
	return "/" + group
}

// ParseTags splits a comma-separated tag list and slugifies each entry.
// Empty entries and duplicates are dropped; order of first appearance is kept.
func ParseTags(raw string) []string {
	tags := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := Slugify(part)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}

// TagCount is a tag with the number of topics carrying it.
type TagCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
