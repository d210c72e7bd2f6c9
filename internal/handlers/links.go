package handlers

import (
	"context"
	"sort"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

type linkChild struct {
	Data struct {
		Name         string  `json:"name"`
		Title        string  `json:"title"`
		Author       string  `json:"author"`
		Subreddit    string  `json:"subreddit"`
		CreatedUTC   float64 `json:"created_utc"`
		IsSelf       bool    `json:"is_self"`
		SelfText     string  `json:"selftext"`
		URL          string  `json:"url"`
		BannedAtUTC  *float64 `json:"banned_at_utc"`
		Removed      bool    `json:"removed"`
	} `json:"data"`
}

type linkListing struct {
	Data struct {
		After    *string     `json:"after"`
		Children []linkChild `json:"children"`
	} `json:"data"`
}

func subredditLinksHandler() Handler {
	return Handler{
		Verb:          "subreddit_links",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subs := subredditList(args)
			limit, hasLimit := argInt(args, "limit")
			after, _ := argString(args, "after")

			res, err := rc.SubredditLinks(ctx, auth, subs, limit, after)
			return passthroughOrInvoke(res, err, func() (interface{}, error) {
				var listing linkListing
				if err := decodeJSON(res.Body, &listing); err != nil {
					return nil, err
				}

				var self, urls []map[string]interface{}
				for _, child := range listing.Data.Children {
					d := child.Data
					if d.BannedAtUTC != nil || d.Removed {
						continue
					}
					genInfo := map[string]interface{}{
						"fullname":    d.Name,
						"title":       d.Title,
						"author":      d.Author,
						"subreddit":   d.Subreddit,
						"created_utc": d.CreatedUTC,
					}
					if d.IsSelf {
						record := map[string]interface{}{"body": d.SelfText}
						for k, v := range genInfo {
							record[k] = v
						}
						self = append(self, record)
					} else {
						record := map[string]interface{}{"url": d.URL}
						for k, v := range genInfo {
							record[k] = v
						}
						urls = append(urls, record)
					}
				}

				byCreatedDesc := func(s []map[string]interface{}) func(i, j int) bool {
					return func(i, j int) bool {
						return s[i]["created_utc"].(float64) > s[j]["created_utc"].(float64)
					}
				}
				sort.Slice(self, byCreatedDesc(self))
				sort.Slice(urls, byCreatedDesc(urls))

				if hasLimit {
					for len(self)+len(urls) > limit {
						if len(self) > 0 && (len(urls) == 0 || self[len(self)-1]["created_utc"].(float64) < urls[len(urls)-1]["created_utc"].(float64)) {
							self = self[:len(self)-1]
						} else {
							urls = urls[:len(urls)-1]
						}
					}
				}

				return map[string]interface{}{"self": self, "url": urls, "after": listing.Data.After}, nil
			})
		},
	}
}

func flairLinkHandler() Handler {
	return Handler{
		Verb:          "flair_link",
		RequiresDelay: true,
		Invoke: func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error) {
			subreddit := requireString(args, "subreddit")
			linkFullname := requireString(args, "link_fullname")
			cssClass := requireString(args, "css_class")
			text := requireString(args, "text")
			res, err := rc.FlairLink(ctx, auth, subreddit, linkFullname, cssClass, text)
			return mutationResult(res, err)
		},
	}
}
