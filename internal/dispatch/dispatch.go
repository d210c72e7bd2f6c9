// Package dispatch is the Dispatch Loop (C6): the core state machine that
// pulls packets off the inbound queue, validates them, enforces the token
// and rate-clock lifecycles, routes to a handler, resolves the client's
// response style, and publishes the reply.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/riverglen/reddit-broker/internal/errorreporting"
	"github.com/riverglen/reddit-broker/internal/handlers"
	"github.com/riverglen/reddit-broker/internal/ledger"
	"github.com/riverglen/reddit-broker/internal/logger"
	"github.com/riverglen/reddit-broker/internal/metrics"
	"github.com/riverglen/reddit-broker/internal/packet"
	"github.com/riverglen/reddit-broker/internal/queue"
	"github.com/riverglen/reddit-broker/internal/ratepacer"
	"github.com/riverglen/reddit-broker/internal/redditclient"
	"github.com/riverglen/reddit-broker/internal/style"
	"github.com/riverglen/reddit-broker/internal/token"
	"github.com/riverglen/reddit-broker/internal/tracing"
	"github.com/riverglen/reddit-broker/internal/validate"
)

// inactivityTimeout is how long the loop blocks on an empty inbound queue
// before emitting a heartbeat and looping again (§4.6.a).
const inactivityTimeout = 10 * time.Minute

// Loop owns everything the dispatch state machine touches: the queue, the
// token manager, the rate clock, and the ledger. Only the loop's own
// goroutine writes this state, so the loop takes no locks of its own; the
// ready flag is atomic and the ledger has its own mutex because the admin
// server reads both from another goroutine.
type Loop struct {
	q           queue.Queue
	inboundName string
	registry    *handlers.Registry
	reddit      *redditclient.Client
	auth        *token.Manager
	pacer       *ratepacer.Pacer
	ledger      *ledger.Ledger
	nowFunc     func() time.Time
	ready       atomic.Bool
}

// New builds a Loop from its collaborators. nowFunc defaults to time.Now;
// tests override it for deterministic sweep/freshness behavior.
func New(q queue.Queue, inboundQueueName string, registry *handlers.Registry, reddit *redditclient.Client, auth *token.Manager, pacer *ratepacer.Pacer, ledg *ledger.Ledger, nowFunc func() time.Time) *Loop {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Loop{q: q, inboundName: inboundQueueName, registry: registry, reddit: reddit, auth: auth, pacer: pacer, ledger: ledg, nowFunc: nowFunc}
}

// Ready reports whether the loop has successfully attached to the inbound
// queue and is processing deliveries; the admin server's /readyz uses this.
func (l *Loop) Ready() bool {
	return l.ready.Load()
}

// Run blocks, processing deliveries until ctx is canceled.
func (l *Loop) Run(ctx context.Context) error {
	deliveries, err := l.q.Consume(ctx)
	if err != nil {
		return err
	}
	l.ready.Store(true)
	defer l.ready.Store(false)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			l.ledger.MaybeSweep()
			l.processDelivery(ctx, d)
		case <-time.After(inactivityTimeout):
			logger.Trace("dispatch loop idle heartbeat")
			l.ledger.MaybeSweep()
		}
	}
}

// processDelivery runs one full iteration of §4.6 against a single delivery.
func (l *Loop) processDelivery(ctx context.Context, d queue.Delivery) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.step")
	defer span.End()

	p, err := validate.Validate(ctx, d.Body)
	if err != nil {
		metrics.PacketsRejectedTotal.WithLabelValues("invalid").Inc()
		d.Nack(false)
		return
	}

	outcome := l.ledger.Check(p.ResponseQueue, p.VersionUTCSeconds, p.IgnoreVersion)
	if outcome.Stale {
		metrics.PacketsRejectedTotal.WithLabelValues("stale").Inc()
		logger.DebugContext(ctx, "dropping stale packet", "response_queue", p.ResponseQueue, "version", p.VersionUTCSeconds)
		d.Nack(false)
		return
	}
	if outcome.ShouldDeclare {
		if err := l.q.Declare(ctx, p.ResponseQueue); err != nil {
			logger.WarnContext(ctx, "declaring response queue failed", "response_queue", p.ResponseQueue, "err", err)
		}
	}

	h, ok := l.registry.Lookup(p.Type)
	if !ok {
		metrics.PacketsRejectedTotal.WithLabelValues("unknown_verb").Inc()
		logger.WarnContext(ctx, "unknown verb", "type", p.Type, "uuid", p.UUID)
		d.Nack(false)
		return
	}

	if err := l.ensureFreshToken(ctx); err != nil {
		logger.WarnContext(ctx, "token refresh failed, requeueing", "err", err)
		d.Nack(true)
		return
	}

	status, info, invokeErr := l.invoke(ctx, h, p)

	entry, matchKind := style.ResolveStatus(p.Style, status)
	metrics.StyleResolutionsTotal.WithLabelValues(string(matchKind)).Inc()
	if entry.LogLevel != "" {
		logger.LogAt(ctx, entry.LogLevel, "dispatch outcome",
			"verb", p.Type, "uuid", p.UUID, "operation", entry.Operation, "invoke_err", invokeErr)
	}

	if status.Code == 401 {
		l.auth.Invalidate(ctx)
	}

	l.publish(ctx, d, p, entry, status, info)
}

// ensureFreshToken implements §4.3's refresh triggers: no cached token, or
// a cached token inside the freshness window.
func (l *Loop) ensureFreshToken(ctx context.Context) error {
	cur := l.auth.CurrentAuth()
	if cur.IsFresh(l.nowFunc()) {
		return nil
	}

	ctx, span := tracing.StartSpan(ctx, "dispatch.auth_refresh")
	defer span.End()

	tok, err := l.auth.Refresh(ctx)
	if err != nil {
		return err
	}
	if tok == nil {
		return errNoToken
	}
	return nil
}

var errNoToken = errors.New("token refresh rejected by reddit")

// invoke runs the handler, pacing it against the rate clock first when it
// requires a quota slot, and maps a handler-level error or panic to the
// fixed (failure, nil) result per §4.6.g / §7 ("Handler exception").
func (l *Loop) invoke(ctx context.Context, h handlers.Handler, p *packet.Typed) (status packet.Status, info interface{}, invokeErr error) {
	ctx, span := tracing.StartSpan(ctx, "dispatch.handler_invoke")
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			logger.WarnContext(ctx, "handler panicked", "verb", p.Type, "uuid", p.UUID, "panic", r, "stack", string(debug.Stack()))
			metrics.PacketsDispatchedTotal.WithLabelValues(p.Type, "handler_panic").Inc()
			panicErr := fmt.Errorf("handler panic: verb=%s uuid=%s: %v", p.Type, p.UUID, r)
			errorreporting.CaptureError(panicErr)
			status, info, invokeErr = packet.FailureStatus(), nil, panicErr
		}
	}()

	if h.RequiresDelay {
		l.pacer.Wait(ctx)
		defer l.pacer.Done()
	}

	auth := l.auth.CurrentAuth()
	status, info, invokeErr = h.Invoke(ctx, l.reddit, auth, p.Args)
	if invokeErr != nil {
		logger.WarnContext(ctx, "handler invocation failed", "verb", p.Type, "uuid", p.UUID, "err", invokeErr)
		metrics.PacketsDispatchedTotal.WithLabelValues(p.Type, "handler_error").Inc()
		return packet.FailureStatus(), nil, invokeErr
	}
	metrics.PacketsDispatchedTotal.WithLabelValues(p.Type, "ok").Inc()
	return status, info, nil
}

// publish implements §4.6.k: branch on the resolved operation and either
// publish a reply (copy/success/failure) or republish the original packet
// for retry, then ack/nack the current delivery accordingly.
func (l *Loop) publish(ctx context.Context, d queue.Delivery, p *packet.Typed, entry packet.StyleEntry, status packet.Status, info interface{}) {
	switch entry.Operation {
	case packet.OpCopy:
		l.deliverReply(ctx, p, packet.CopyReply(p.UUID, status.Code, info))
		d.Ack()
	case packet.OpSuccess:
		l.deliverReply(ctx, p, packet.SuccessReply(p.UUID))
		d.Ack()
	case packet.OpRetry:
		l.requeue(ctx, p, entry)
		d.Nack(false)
	case packet.OpFailure:
		l.deliverReply(ctx, p, packet.FailureReply(p.UUID))
		d.Nack(false)
	default:
		logger.WarnContext(ctx, "unrecognized style operation, treating as failure", "operation", entry.Operation)
		l.deliverReply(ctx, p, packet.FailureReply(p.UUID))
		d.Nack(false)
	}
}

// deliverReply publishes a reply unless the response queue is void (§4.6, last line).
func (l *Loop) deliverReply(ctx context.Context, p *packet.Typed, reply packet.Reply) {
	if p.IsVoid() {
		return
	}
	body, err := json.Marshal(reply)
	if err != nil {
		logger.ErrorContext(ctx, "marshaling reply failed", "err", err)
		return
	}
	if err := l.q.Publish(ctx, p.ResponseQueue, body); err != nil {
		logger.ErrorContext(ctx, "publishing reply failed", "response_queue", p.ResponseQueue, "err", err)
	}
}

// requeue republishes the original packet onto the inbound queue for a
// retry, honoring the style entry's ignore_version override (§4.6.k).
func (l *Loop) requeue(ctx context.Context, p *packet.Typed, entry packet.StyleEntry) {
	ignoreVersion := false
	if entry.IgnoreVersion != nil {
		ignoreVersion = *entry.IgnoreVersion
	}

	retryPacket := packet.Packet{
		ResponseQueue:     p.ResponseQueue,
		VersionUTCSeconds: p.VersionUTCSeconds,
		Type:              p.Type,
		UUID:              p.UUID,
		SentAt:            p.SentAt,
		Args:              p.Args,
		Style:             p.Style,
		IgnoreVersion:     ignoreVersion,
	}
	body, err := json.Marshal(retryPacket)
	if err != nil {
		logger.ErrorContext(ctx, "marshaling retry packet failed", "err", err)
		return
	}
	if err := l.q.Publish(ctx, l.inboundName, body); err != nil {
		logger.ErrorContext(ctx, "republishing retry packet failed", "err", err)
	}
}
