package proposal

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Comment is either a ReviewerComment or a ProposerComment.
type Comment interface {
	CommentText() string
	CommentTime() time.Time
	Author() string
	comment()
}

type ReviewerComment struct {
	ReviewerName string    `json:"reviewerName"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	// Status is the decision the reviewer submitted with this comment.
	Status Status `json:"status,omitempty"`
}

func (c ReviewerComment) CommentText() string    { return c.Text }
func (c ReviewerComment) CommentTime() time.Time { return c.Timestamp }
func (c ReviewerComment) Author() string         { return c.ReviewerName }
func (ReviewerComment) comment()                 {}

type ProposerComment struct {
	AuthorName string    `json:"authorName"`
	AuthorType string    `json:"authorType"`
	Text       string    `json:"text"`
	Timestamp  time.Time `json:"timestamp"`
}

func (c ProposerComment) CommentText() string    { return c.Text }
func (c ProposerComment) CommentTime() time.Time { return c.Timestamp }
func (c ProposerComment) Author() string         { return c.AuthorName }
func (ProposerComment) comment()                 {}

// Comments serializes a mixed comment list. On the wire a reviewer comment
// carries reviewerName and a proposer comment carries authorName and
// authorType; never both.
type Comments []Comment

type commentWire struct {
	ReviewerName string    `json:"reviewerName,omitempty"`
	AuthorName   string    `json:"authorName,omitempty"`
	AuthorType   string    `json:"authorType,omitempty"`
	Text         string    `json:"text"`
	Timestamp    time.Time `json:"timestamp"`
	Status       Status    `json:"status,omitempty"`
}

var errCommentAuthor = errors.New("comment must carry either reviewerName or authorName")

func (c Comments) MarshalJSON() ([]byte, error) {
	wires := make([]commentWire, 0, len(c))
	for i, item := range c {
		switch v := item.(type) {
		case ReviewerComment:
			if v.ReviewerName == "" {
				return nil, fmt.Errorf("comment %d: %w", i, errCommentAuthor)
			}
			wires = append(wires, commentWire{ReviewerName: v.ReviewerName, Text: v.Text, Timestamp: v.Timestamp, Status: v.Status})
		case ProposerComment:
			if v.AuthorName == "" {
				return nil, fmt.Errorf("comment %d: %w", i, errCommentAuthor)
			}
			wires = append(wires, commentWire{AuthorName: v.AuthorName, AuthorType: v.AuthorType, Text: v.Text, Timestamp: v.Timestamp})
		default:
			return nil, fmt.Errorf("comment %d: unsupported type %T", i, item)
		}
	}
	return json.Marshal(wires)
}

func (c *Comments) UnmarshalJSON(data []byte) error {
	var wires []commentWire
	if err := json.Unmarshal(data, &wires); err != nil {
		return err
	}
	if wires == nil {
		*c = nil
		return nil
	}
	out := make(Comments, 0, len(wires))
	for i, w := range wires {
		switch {
		case w.ReviewerName != "" && w.AuthorName == "":
			out = append(out, ReviewerComment{ReviewerName: w.ReviewerName, Text: w.Text, Timestamp: w.Timestamp, Status: w.Status})
		case w.AuthorName != "" && w.ReviewerName == "":
			out = append(out, ProposerComment{AuthorName: w.AuthorName, AuthorType: w.AuthorType, Text: w.Text, Timestamp: w.Timestamp})
		default:
			return fmt.Errorf("comment %d: %w", i, errCommentAuthor)
		}
	}
	*c = out
	return nil
}
