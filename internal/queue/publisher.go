package queue

import (
    "context"
    "encoding/json"
    "log"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/live-event-sessions/internal/config"
)

// Publisher sends LiveEvent messages to a durable queue.  Each publish
// opens its own connection; live events are rare enough (a handful per
// broadcast) that a pooled channel is not worth the reconnect handling.
type Publisher struct {
    url   string
    queue string
}

// defaultDialTimeout bounds the TCP and AMQP handshake when ctx carries no
// deadline of its own.
const defaultDialTimeout = 5 * time.Second

// NewPublisher returns a Publisher for cfg.
func NewPublisher(cfg config.QueueConfig) *Publisher {
    return &Publisher{url: cfg.URL, queue: cfg.Queue}
}

// Publish marshals ev and publishes it as a persistent message.  Errors
// are logged and returned so the caller can decide to ignore them.
func (p *Publisher) Publish(ctx context.Context, ev LiveEvent) error {
    timeout := defaultDialTimeout
    if deadline, ok := ctx.Deadline(); ok {
        timeout = time.Until(deadline)
    }
    if err := ctx.Err(); err != nil {
        return err
    }
    if timeout <= 0 {
        return context.DeadlineExceeded
    }

    // DefaultDial also sets a deadline on the handshake, so a broker that
    // accepts the socket but never answers cannot stall the caller.
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Dial:      amqp.DefaultDial(timeout),
        Heartbeat: 10 * time.Second,
        Locale:    "en_US",
    })
    if err != nil {
        log.Printf("rabbitmq: dial failed: %v", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        log.Printf("rabbitmq: channel open failed: %v", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    if _, err := ch.QueueDeclare(
        p.queue, // name
        true,    // durable
        false,   // autoDelete
        false,   // exclusive
        false,   // noWait
        nil,     // args
    ); err != nil {
        log.Printf("rabbitmq: queue declare failed: %v", err)
        return err
    }

    body, err := json.Marshal(ev)
    if err != nil {
        log.Printf("rabbitmq: marshal event failed: %v", err)
        return err
    }

    pub := amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        Type:         ev.Type,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }
    if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
        log.Printf("rabbitmq: publish %s failed: %v", ev.Type, err)
        return err
    }
    return nil
}
