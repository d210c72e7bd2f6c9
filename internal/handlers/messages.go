package handlers

import (
	"context"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

// inboxChild is the flat shape Reddit's /message/unread listing uses for
// each entry, mixing private messages and comment replies in one stream
// distinguished by was_comment.
type inboxChild struct {
	WasComment bool    `json:"was_comment"`
	Name       string  `json:"name"`
	Subject    string  `json:"subject"`
	Body       string  `json:"body"`
	Author     string  `json:"author"`
	Subreddit  string  `json:"subreddit"`
	CreatedUTC float64 `json:"created_utc"`
}

type inboxListing struct {
	Data struct {
		Children []inboxChild `json:"children"`
	} `json:"data"`
}

func inboxHandler() Handler {
	return Handler{
		Verb:          "inbox",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, _ map[string]interface{}) (packet.Status, interface{}, error) {
			res, err := rc.Unread(ctx, auth, 25, "", "")
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var listing inboxListing
				if err := decodeJSON(res.Body, &listing); err != nil {
					return nil, err
				}

				var messages, comments []map[string]interface{}
				for _, c := range listing.Data.Children {
					if c.WasComment {
						comments = append(comments, map[string]interface{}{
							"fullname":    c.Name,
							"body":        c.Body,
							"author":      c.Author,
							"subreddit":   c.Subreddit,
							"created_utc": c.CreatedUTC,
						})
					} else {
						messages = append(messages, map[string]interface{}{
							"fullname":    c.Name,
							"subject":     c.Subject,
							"body":        c.Body,
							"author":      c.Author,
							"created_utc": c.CreatedUTC,
						})
					}
				}
				return map[string]interface{}{"messages": messages, "comments": comments}, nil
			})
		},
	}
}

func composeHandler() Handler {
	return Handler{
		Verb:          "compose",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			recipient := requireString(args, "recipient")
			subject := requireString(args, "subject")
			body := requireString(args, "body")
			res, err := rc.Compose(ctx, auth, recipient, subject, body)
			return mutationResult(res, err)
		},
	}
}

func markAllReadHandler() Handler {
	return Handler{
		Verb:          "mark_all_read",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, _ map[string]interface{}) (packet.Status, interface{}, error) {
			res, err := rc.MarkAllRead(ctx, auth)
			return mutationResult(res, err)
		},
	}
}
