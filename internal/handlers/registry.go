// Package handlers is the Handler Registry (C1): a finite, statically
// registered map from verb name to the logic that turns a Reddit response
// into a canonical reply payload.
package handlers

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/token"
)

// Invoke is a handler's body: given the Reddit client, a valid token, and
// the packet's args, it returns a status (numeric or sentinel) and the
// canonical info payload. Handlers are pure over args modulo the Reddit
// client — they never touch the ledger, token cache, or rate clock.
type Invoke func(ctx context.Context, rc *redditclient.Client, auth *token.Token, args map[string]interface{}) (packet.Status, interface{}, error)

// Handler is one registered verb.
type Handler struct {
	Verb          string
	RequiresDelay bool
	Invoke        Invoke
}

// Registry is the O(1) verb lookup table built once at startup.
type Registry struct {
	handlers map[string]Handler
}

// NewRegistry builds and populates the registry with every canonical verb.
func NewRegistry() *Registry {
	r := &Registry{handlers: make(map[string]Handler)}
	for _, h := range []Handler{
		pingHandler(),
		showUserHandler(),
		userIsModeratorHandler(),
		userIsApprovedHandler(),
		userIsBannedHandler(),
		subredditCommentsHandler(),
		postCommentHandler(),
		lookupCommentHandler(),
		subredditLinksHandler(),
		flairLinkHandler(),
		modLogHandler(),
		subredditModeratorsHandler(),
		inboxHandler(),
		composeHandler(),
		markAllReadHandler(),
		banUserHandler(),
		unbanUserHandler(),
		approveUserHandler(),
		disapproveUserHandler(),
	} {
		r.handlers[h.Verb] = h
	}
	return r
}

// Lookup finds the handler registered for a verb.
func (r *Registry) Lookup(verb string) (Handler, bool) {
	h, ok := r.handlers[verb]
	return h, ok
}

// passthroughOrInvoke propagates err when the upstream call failed outright
// (transport error), and returns (status, nil) unchanged when it returned a
// status above 299, matching §4.1's "on upstream status > 299, return
// (http_status, null) unchanged" rule. The caller supplies the
// decode+transform step for 2xx.
func passthroughOrInvoke(res redditclient.Result, err error, onSuccess func() (interface{}, error)) (packet.Status, interface{}, error) {
	if err != nil {
		return packet.Status{}, nil, err
	}
	if res.Status > 299 {
		return packet.HTTPStatus(res.Status), nil, nil
	}
	info, decodeErr := onSuccess()
	if decodeErr != nil {
		return packet.Status{}, nil, fmt.Errorf("decoding reddit response: %w", decodeErr)
	}
	return packet.HTTPStatus(res.Status), info, nil
}

// mutationResult is the shared shape for verbs whose only meaningful result
// is success/failure with no data payload (§4.1's short-circuit sentinel).
func mutationResult(res redditclient.Result, err error) (packet.Status, interface{}, error) {
	if err != nil {
		return packet.Status{}, nil, err
	}
	if res.Status > 299 {
		return packet.HTTPStatus(res.Status), nil, nil
	}
	return packet.SuccessStatus(), nil, nil
}

func decodeJSON(body json.RawMessage, v interface{}) error {
	return json.Unmarshal(body, v)
}
