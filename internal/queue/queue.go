// Package queue is the AMQP transport the dispatch loop consumes requests
// from and publishes replies to.
package queue

import (
	"context"
	"fmt"

	"github.com/riverglen/reddit-broker/internal/config"
	"github.com/streadway/amqp"
)

// Delivery is one inbound message, carrying the ack/nack callbacks bound to
// its own delivery tag.
type Delivery struct {
	Body []byte

	ack  func(multiple bool) error
	nack func(multiple, requeue bool) error
}

// Ack acknowledges successful processing.
func (d Delivery) Ack() error { return d.ack(false) }

// Nack rejects the delivery, optionally asking the broker to requeue it.
func (d Delivery) Nack(requeue bool) error { return d.nack(false, requeue) }

// Queue is the transport contract the dispatch loop depends on.
type Queue interface {
	Consume(ctx context.Context) (<-chan Delivery, error)
	Publish(ctx context.Context, queueName string, body []byte) error
	// Declare ensures queueName exists, without publishing to it. The
	// dispatch loop calls this the first time it sees a (non-void)
	// response queue (§4.6.d), ahead of ever needing to publish a reply.
	Declare(ctx context.Context, queueName string) error
	Close() error
}

// AMQPQueue is the RabbitMQ-backed Queue.
type AMQPQueue struct {
	conn      *amqp.Connection
	ch        *amqp.Channel
	queueName string
}

// Connect dials RabbitMQ, opens a channel, and declares the inbound queue.
func Connect(cfg *config.Config) (*AMQPQueue, error) {
	url := fmt.Sprintf("amqp://%s:%s@%s:%d%s",
		cfg.AMQPUsername, cfg.AMQPPassword, cfg.AMQPHost, cfg.AMQPPort, cfg.AMQPVHost)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing amqp broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(cfg.AMQPQueue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", cfg.AMQPQueue, err)
	}

	return &AMQPQueue{conn: conn, ch: ch, queueName: cfg.AMQPQueue}, nil
}

// Consume starts delivering messages off the inbound queue. The returned
// channel closes when ctx is canceled or the underlying connection drops;
// the dispatch loop is responsible for noticing inactivity (no delivery
// within its configured window) since that is a dispatch-level concern, not
// a transport one.
func (q *AMQPQueue) Consume(ctx context.Context) (<-chan Delivery, error) {
	raw, err := q.ch.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		return nil, fmt.Errorf("consuming queue %s: %w", q.queueName, err)
	}

	out := make(chan Delivery)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-raw:
				if !ok {
					return
				}
				select {
				case out <- Delivery{Body: d.Body, ack: d.Ack, nack: d.Nack}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Publish declares the destination queue (response queues are named by
// clients and may not exist yet) and publishes body to it.
func (q *AMQPQueue) Publish(ctx context.Context, queueName string, body []byte) error {
	if _, err := q.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring response queue %s: %w", queueName, err)
	}
	return q.ch.Publish("", queueName, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

// Declare ensures queueName exists without publishing to it (§4.6.d: a
// response queue is declared the first time the ledger sees it).
func (q *AMQPQueue) Declare(ctx context.Context, queueName string) error {
	if _, err := q.ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring response queue %s: %w", queueName, err)
	}
	return nil
}

// Close tears down the channel and connection.
func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}
