package feed

import (
	"encoding/json"
	"time"
)

// Topic is a post in the external feed.
type Topic struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	Comments  int       `json:"comments"`
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

// Comment is a reply in an external thread.
type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
	Replies   []Comment `json:"replies"`
}

// Thread is a feed topic with its comment tree.
type Thread struct {
	Topic    Topic     `json:"topic"`
	Comments []Comment `json:"comments"`
}

// listing mirrors the Reddit "Listing" envelope.
type listing struct {
	Data struct {
		Children []thing `json:"children"`
	} `json:"data"`
}

type thing struct {
	Kind string    `json:"kind"`
	Data thingData `json:"data"`
}

type thingData struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Author      string          `json:"author"`
	Selftext    string          `json:"selftext"`
	Body        string          `json:"body"`
	Score       int             `json:"score"`
	NumComments int             `json:"num_comments"`
	URL         string          `json:"url"`
	CreatedUTC  float64         `json:"created_utc"`
	Replies     json.RawMessage `json:"replies"`
}

func unixTime(f float64) time.Time {
	sec := int64(f)
	return time.Unix(sec, int64((f-float64(sec))*1e9)).UTC()
}

func (d thingData) topic() Topic {
	return Topic{
		ID:        d.ID,
		Title:     d.Title,
		Author:    d.Author,
		Body:      d.Selftext,
		Score:     d.Score,
		Comments:  d.NumComments,
		URL:       d.URL,
		CreatedAt: unixTime(d.CreatedUTC),
	}
}

// comments converts t1 children to Comments, recursing into replies.
// Reddit sends replies as "" when there are none; "more" stubs are skipped.
func (l listing) comments() []Comment {
	out := []Comment{}
	for _, child := range l.Data.Children {
		if child.Kind != "t1" {
			continue
		}
		c := Comment{
			ID:        child.Data.ID,
			Author:    child.Data.Author,
			Body:      child.Data.Body,
			Score:     child.Data.Score,
			CreatedAt: unixTime(child.Data.CreatedUTC),
			Replies:   []Comment{},
		}
		if len(child.Data.Replies) > 0 && child.Data.Replies[0] == '{' {
			var nested listing
			if err := json.Unmarshal(child.Data.Replies, &nested); err == nil {
				c.Replies = nested.comments()
			}
		}
		out = append(out, c)
	}
	return out
}
