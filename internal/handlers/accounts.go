package handlers

import (
	"context"
	"strings"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

type userAbout struct {
	Data struct {
		LinkKarma    int     `json:"link_karma"`
		CommentKarma int     `json:"comment_karma"`
		CreatedUTC   float64 `json:"created_utc"`
	} `json:"data"`
}

func showUserHandler() Handler {
	return Handler{
		Verb:          "show_user",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			username := requireString(args, "username")
			res, err := rc.ShowUser(ctx, auth, username)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var body userAbout
				if err := decodeJSON(res.Body, &body); err != nil {
					return nil, err
				}
				return map[string]interface{}{
					"cumulative_karma":      body.Data.LinkKarma + body.Data.CommentKarma,
					"link_karma":            body.Data.LinkKarma,
					"comment_karma":         body.Data.CommentKarma,
					"created_at_utc_seconds": body.Data.CreatedUTC,
				}, nil
			})
		},
	}
}

// relationshipChild is the flat shape Reddit's moderator/contributor/banned
// listings use for each entry — unlike thing listings, there is no
// kind/data wrapper here.
type relationshipChild struct {
	Name string `json:"name"`
}

type relationshipListing struct {
	Data struct {
		Children []relationshipChild `json:"children"`
	} `json:"data"`
}

func relationshipContains(res redditclient.Result, username string) (bool, error) {
	var listing relationshipListing
	if err := decodeJSON(res.Body, &listing); err != nil {
		return false, err
	}
	for _, child := range listing.Data.Children {
		if strings.EqualFold(child.Name, username) {
			return true, nil
		}
	}
	return false, nil
}

func userIsModeratorHandler() Handler {
	return Handler{
		Verb:          "user_is_moderator",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.UserIsModerator(ctx, auth, subreddit)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				found, err := relationshipContains(res, username)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"moderator": found}, nil
			})
		},
	}
}

func userIsApprovedHandler() Handler {
	return Handler{
		Verb:          "user_is_approved",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.UserIsApproved(ctx, auth, subreddit)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				found, err := relationshipContains(res, username)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"approved": found}, nil
			})
		},
	}
}

func userIsBannedHandler() Handler {
	return Handler{
		Verb:          "user_is_banned",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.UserIsBanned(ctx, auth, subreddit)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				found, err := relationshipContains(res, username)
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"banned": found}, nil
			})
		},
	}
}
