// ABOUTME: Static fallback data when no OpenAI API key is available.
// ABOUTME: Provides sample accounts plus posts with comments for the fake backend.

package seed

import "github.com/2389/restadmin/internal/store"

// Default accounts. Passwords are only meant for local testing.
var defaultUsers = []UserData{
	{
		User: store.User{
			Username:    "admin",
			FullName:    "Site Admin",
			Avatar:      "https://example.com/avatars/admin.png",
			IsSuperuser: true,
			Groups:      []string{"admins"},
		},
		Password: "admin",
	},
	{
		User: store.User{
			Username: "alice",
			FullName: "Alice Chen",
			Avatar:   "https://example.com/avatars/alice.png",
			Groups:   []string{"editors"},
			UserPermissions: []string{
				"view_posts", "add_posts", "change_posts",
				"view_comments", "add_comments", "change_comments", "delete_comments",
			},
		},
		Password: "secret",
	},
	{
		User: store.User{
			Username:        "bob",
			FullName:        "Bob Martinez",
			Avatar:          "https://example.com/avatars/bob.png",
			Groups:          []string{"readers"},
			UserPermissions: []string{"view_posts", "view_comments"},
		},
		Password: "secret",
	},
}

var staticPosts = []PostData{
	{
		Title:     "Welcome to the admin",
		Body:      "This install comes with a handful of sample posts so every list, filter, and form has something to show.",
		Tags:      []string{"announcements"},
		Published: true,
		Views:     120,
		Comments: []CommentData{
			{Body: "Thanks, the sample data makes it easy to try things out."},
			{Body: "Is there a way to reset everything? Found it: restadmin reset."},
		},
	},
	{
		Title:     "Q4 planning notes",
		Body:      "Budget forecasts are ready for review. Please add comments before Friday's planning session.",
		Tags:      []string{"planning", "internal"},
		Published: false,
		Views:     14,
		Comments: []CommentData{
			{Body: "Added the infrastructure line items."},
		},
	},
	{
		Title:     "Why SQLite is everywhere",
		Body:      "A look at the architecture that made SQLite the most deployed database in the world.",
		Tags:      []string{"engineering"},
		Published: true,
		Views:     342,
		Comments: []CommentData{
			{Body: "Great write-up. The WAL section was especially clear."},
			{Body: "Would love a follow-up on busy timeouts."},
			{Body: "Shared with the team."},
		},
	},
	{
		Title:     "Release 2.1 checklist",
		Body:      "Changelog drafted, migrations tested, docs updated. Remaining: screenshots and the upgrade guide.",
		Tags:      []string{"release"},
		Published: true,
		Views:     57,
	},
	{
		Title:     "Team lunch Friday",
		Body:      "A few of us are heading to the new Thai place around noon. Everyone is welcome.",
		Tags:      []string{"social"},
		Published: true,
		Views:     33,
		Comments: []CommentData{
			{Body: "Count me in!"},
		},
	},
	{
		Title:     "Draft: API rate limits",
		Body:      "Proposal for per-token rate limits on the public endpoints. Numbers are placeholders for now.",
		Tags:      []string{"engineering", "draft"},
		Published: false,
		Views:     2,
	},
}

// generateStatic returns count posts, cycling through the templates.
func generateStatic(count int) []PostData {
	posts := make([]PostData, count)
	for i := range count {
		posts[i] = staticPosts[i%len(staticPosts)]
	}
	return posts
}
