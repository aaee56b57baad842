package model

import (
	"sort"
	"time"
)

// Comment is a reply on a topic. A nil ParentID attaches the comment
// directly to the topic.
type Comment struct {
	ID        int64     `json:"id"`
	TopicID   int64     `json:"topic_id"`
	ParentID  *int64    `json:"parent_id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentNode is a comment with its nested replies.
type CommentNode struct {
	Comment
	Replies []*CommentNode `json:"replies"`
}

// BuildCommentTree arranges a topic's comments into a forest of root nodes.
// Siblings are ordered by creation time, then ID. A comment whose parent is
// not in the list is treated as a root.
func BuildCommentTree(comments []Comment) []*CommentNode {
	sorted := make([]Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
		}
		return sorted[i].ID < sorted[j].ID
	})

	nodes := make(map[int64]*CommentNode, len(sorted))
	for _, c := range sorted {
		nodes[c.ID] = &CommentNode{Comment: c, Replies: []*CommentNode{}}
	}

	roots := []*CommentNode{}
	for _, c := range sorted {
		n := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok && parent != n {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}
	return roots
}
