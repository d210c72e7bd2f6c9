package handlers

import (
	"context"
	"sort"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

type modLogChild struct {
	TargetFullname *string `json:"target_fullname"`
	TargetAuthor   *string `json:"target_author"`
	Mod            string  `json:"mod"`
	Action         string  `json:"action"`
	Details        *string `json:"details"`
	Subreddit      string  `json:"subreddit"`
	CreatedUTC     float64 `json:"created_utc"`
}

type modLogListing struct {
	Data struct {
		After    *string       `json:"after"`
		Children []modLogChild `json:"children"`
	} `json:"data"`
}

// modLogHandler answers the "modlog" verb. The Python original registered
// this handler under the name "subreddit_comments" by mistake, colliding
// with the actual subreddit_comments verb; it is registered here under its
// real name.
func modLogHandler() Handler {
	return Handler{
		Verb:          "modlog",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subs := subredditList(args)
			limit, hasLimit := argInt(args, "limit")
			after, _ := argString(args, "after")

			res, err := rc.ModLog(ctx, auth, subs, limit, after, "")
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var listing modLogListing
				if err := decodeJSON(res.Body, &listing); err != nil {
					return nil, err
				}

				actions := make([]map[string]interface{}, 0, len(listing.Data.Children))
				for _, c := range listing.Data.Children {
					actions = append(actions, map[string]interface{}{
						"target_fullname": c.TargetFullname,
						"target_author":   c.TargetAuthor,
						"mod":             c.Mod,
						"action":          c.Action,
						"details":         c.Details,
						"subreddit":       c.Subreddit,
						"created_utc":     c.CreatedUTC,
					})
				}
				sort.Slice(actions, func(i, j int) bool {
					return actions[i]["created_utc"].(float64) > actions[j]["created_utc"].(float64)
				})
				if hasLimit && len(actions) > limit {
					actions = actions[:limit]
				}

				return map[string]interface{}{"actions": actions, "after": listing.Data.After}, nil
			})
		},
	}
}
