package handlers

import (
	"context"
	"fmt"
	"sort"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

type thingChild struct {
	Kind string `json:"kind"`
	Data struct {
		Name       string  `json:"name"`
		Body       string  `json:"body"`
		Author     string  `json:"author"`
		LinkID     string  `json:"link_id"`
		LinkAuthor string  `json:"link_author"`
		Subreddit  string  `json:"subreddit"`
		CreatedUTC float64 `json:"created_utc"`
	} `json:"data"`
}

type thingListing struct {
	Data struct {
		After    *string      `json:"after"`
		Dist     *int         `json:"dist"`
		Children []thingChild `json:"children"`
	} `json:"data"`
}

func commentRecord(c thingChild) map[string]interface{} {
	return map[string]interface{}{
		"fullname":      c.Data.Name,
		"body":          c.Data.Body,
		"author":        c.Data.Author,
		"link_fullname": c.Data.LinkID,
		"link_author":   c.Data.LinkAuthor,
		"subreddit":     c.Data.Subreddit,
		"created_utc":   c.Data.CreatedUTC,
	}
}

func subredditCommentsHandler() Handler {
	return Handler{
		Verb:          "subreddit_comments",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subs := subredditList(args)
			limit, hasLimit := argInt(args, "limit")
			after, _ := argString(args, "after")

			res, err := rc.SubredditComments(ctx, auth, subs, limit, after)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var listing thingListing
				if err := decodeJSON(res.Body, &listing); err != nil {
					return nil, err
				}

				comments := make([]map[string]interface{}, 0, len(listing.Data.Children))
				for _, child := range listing.Data.Children {
					comments = append(comments, commentRecord(child))
				}
				sort.Slice(comments, func(i, j int) bool {
					return comments[i]["created_utc"].(float64) > comments[j]["created_utc"].(float64)
				})
				if hasLimit && len(comments) > limit {
					comments = comments[:limit]
				}

				return map[string]interface{}{"comments": comments, "after": listing.Data.After}, nil
			})
		},
	}
}

func postCommentHandler() Handler {
	return Handler{
		Verb:          "post_comment",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			parent := requireString(args, "parent")
			text := requireString(args, "text")
			res, err := rc.PostComment(ctx, auth, parent, text)
			return mutationResult(res, err)
		},
	}
}

func lookupCommentHandler() Handler {
	return Handler{
		Verb:          "lookup_comment",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			linkFullname := requireString(args, "link_fullname")
			commentFullname := requireString(args, "comment_fullname")

			res, err := rc.LookupComment(ctx, auth, linkFullname, commentFullname)
			if err != nil {
				return packet.Status{}, nil, err
			}
			if res.Status > 299 {
				return packet.HTTPStatus(res.Status), nil, nil
			}

			var pair [2]thingListing
			if err := decodeJSON(res.Body, &pair); err != nil {
				return packet.Status{}, nil, fmt.Errorf("decoding lookup_comment response: %w", err)
			}

			var linkListing, commentListing thingListing
			if pair[0].Data.Dist != nil {
				linkListing, commentListing = pair[0], pair[1]
			} else {
				commentListing, linkListing = pair[0], pair[1]
			}
			if commentListing.Data.Dist != nil {
				return packet.HTTPStatus(404), nil, nil
			}
			if len(commentListing.Data.Children) == 0 {
				return packet.HTTPStatus(404), nil, nil
			}

			commentChild := commentListing.Data.Children[0]
			if commentChild.Kind != "t1" {
				return packet.Status{}, nil, fmt.Errorf("unexpected child kind %q in comment listing, expected t1", commentChild.Kind)
			}
			if len(linkListing.Data.Children) == 0 || linkListing.Data.Children[0].Kind != "t3" {
				return packet.Status{}, nil, fmt.Errorf("unexpected or missing child in link listing, expected t3")
			}
			linkChild := linkListing.Data.Children[0]

			return packet.HTTPStatus(res.Status), map[string]interface{}{
				"fullname":      commentChild.Data.Name,
				"body":          commentChild.Data.Body,
				"author":        commentChild.Data.Author,
				"link_fullname": linkChild.Data.Name,
				"link_author":   linkChild.Data.Author,
				"subreddit":     commentChild.Data.Subreddit,
				"created_utc":   commentChild.Data.CreatedUTC,
			}, nil
		},
	}
}
