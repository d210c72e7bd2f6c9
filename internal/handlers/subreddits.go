package handlers

import (
	"context"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

type moderatorChild struct {
	Name           string   `json:"name"`
	ModPermissions []string `json:"mod_permissions"`
}

type moderatorListing struct {
	Data struct {
		Children []moderatorChild `json:"children"`
	} `json:"data"`
}

func subredditModeratorsHandler() Handler {
	return Handler{
		Verb:          "subreddit_moderators",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			res, err := rc.SubredditModerators(ctx, auth, subreddit)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var listing moderatorListing
				if err := decodeJSON(res.Body, &listing); err != nil {
					return nil, err
				}
				mods := make([]map[string]interface{}, 0, len(listing.Data.Children))
				for _, c := range listing.Data.Children {
					mods = append(mods, map[string]interface{}{
						"username":       c.Name,
						"mod_permissions": c.ModPermissions,
					})
				}
				return map[string]interface{}{"mods": mods}, nil
			})
		},
	}
}
