package handlers

import (
	"context"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

// pingHandler answers liveness probes with a bare success, spending no
// Reddit quota and requiring no auth.
func pingHandler() Handler {
	return Handler{
		Verb:          "_ping",
		RequiresDelay: false,
		Invoke: func(_ context.Context, _ *redditclient.Client, _ *token.Token, _ map[string]interface{}) (packet.Status, interface{}, error) {
			return packet.SuccessStatus(), nil, nil
		},
	}
}
