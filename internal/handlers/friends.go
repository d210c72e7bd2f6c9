package handlers

import (
	"context"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

func banUserHandler() Handler {
	return Handler{
		Verb:          "ban_user",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			message, _ := argString(args, "message")
			note, _ := argString(args, "note")
			res, err := rc.SubredditFriend(ctx, auth, subreddit, username, "banned", message, note)
			return mutationResult(res, err)
		},
	}
}

func unbanUserHandler() Handler {
	return Handler{
		Verb:          "unban_user",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.SubredditUnfriend(ctx, auth, subreddit, username, "banned")
			return mutationResult(res, err)
		},
	}
}

// approveUserHandler and disapproveUserHandler round out ban/unban by
// symmetry: the same friend/unfriend relationship machinery, applied to the
// "contributor" relationship instead of "banned".
func approveUserHandler() Handler {
	return Handler{
		Verb:          "approve_user",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.SubredditFriend(ctx, auth, subreddit, username, "contributor", "", "")
			return mutationResult(res, err)
		},
	}
}

func disapproveUserHandler() Handler {
	return Handler{
		Verb:          "disapprove_user",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			username := requireString(args, "username")
			res, err := rc.SubredditUnfriend(ctx, auth, subreddit, username, "contributor")
			return mutationResult(res, err)
		},
	}
}
