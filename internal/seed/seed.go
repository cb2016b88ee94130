// ABOUTME: Writes sample accounts and records into the fake backend store.
// ABOUTME: Creates users with tokens, then posts and comments linked by post id.

package seed

import (
	"context"

	"github.com/pkg/errors"

	"github.com/2389/restadmin/internal/store"
)

// UserData is an account to create with its plain-text password.
type UserData struct {
	store.User
	Password string
}

// Summary counts what Run created.
type Summary struct {
	Users    int
	Posts    int
	Comments int
}

// Total is the number of records created across resources.
func (s Summary) Total() int {
	return s.Users + s.Posts + s.Comments
}

// Run creates the default users and numPosts posts with their comments.
// Seeding is not idempotent; existing usernames make it fail.
func Run(ctx context.Context, s *store.Store, g *Generator, numPosts int) (*Summary, error) {
	summary := &Summary{}

	var authorIDs []int64
	for _, data := range defaultUsers {
		u := data.User
		if err := s.CreateUser(&u, data.Password); err != nil {
			return summary, errors.Wrapf(err, "create user %s", u.Username)
		}
		if _, err := s.TokenForUser(u.ID); err != nil {
			return summary, err
		}
		authorIDs = append(authorIDs, u.ID)
		summary.Users++
	}

	for i, post := range g.GeneratePosts(ctx, numPosts) {
		author := authorIDs[i%len(authorIDs)]
		tags := post.Tags
		if tags == nil {
			tags = []string{}
		}
		rec, err := s.CreateRecord("posts", store.Record{
			"title":     post.Title,
			"body":      post.Body,
			"tags":      tags,
			"published": post.Published,
			"views":     post.Views,
			"author":    author,
		})
		if err != nil {
			return summary, errors.Wrap(err, "create post")
		}
		summary.Posts++

		for j, comment := range post.Comments {
			_, err := s.CreateRecord("comments", store.Record{
				"post":   rec["id"],
				"author": authorIDs[(i+j+1)%len(authorIDs)],
				"body":   comment.Body,
			})
			if err != nil {
				return summary, errors.Wrap(err, "create comment")
			}
			summary.Comments++
		}
	}

	return summary, nil
}
