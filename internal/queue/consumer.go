package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/live-event-sessions/internal/config"
)

// StartConsumer connects to RabbitMQ, declares the live events queue and
// appends each message to <LogDir>/live.log as one line.  It reconnects
// with backoff until ctx is cancelled, rejecting (without requeue) any
// message it cannot handle so a poison message cannot stall the queue.
func StartConsumer(ctx context.Context, cfg config.QueueConfig) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(cfg.URL)
        if err != nil {
            log.Printf("live-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = consumeLoop(ctx, conn, cfg)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Printf("live-consumer: consume loop ended: %v; reconnecting", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, cfg config.QueueConfig) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        log.Printf("live-consumer: set QoS failed: %v", err)
    }
    if _, err := ch.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    msgs, err := ch.Consume(cfg.Queue, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := handleMessage(cfg.LogDir, d.Body); err != nil {
                log.Printf("live-consumer: handle message failed: %v", err)
                _ = d.Nack(false, false)
                continue
            }
            _ = d.Ack(false)
        }
    }
}

func handleMessage(dir string, body []byte) error {
    var ev LiveEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    if ev.Type == "" {
        return errors.New("missing event type")
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        return fmt.Errorf("mkdir %s: %w", dir, err)
    }
    f, err := os.OpenFile(filepath.Join(dir, "live.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    if _, err := f.WriteString(formatLine(ev)); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}

func formatLine(ev LiveEvent) string {
    switch ev.Type {
    case TypeSessionStarted:
        return fmt.Sprintf("[%s] Session started | event_id=%d | session_id=%s | room=%q | provider_backed=%t | actor_id=%d\n",
            ev.OccurredAt, ev.EventID, ev.SessionID, ev.RoomID, ev.ProviderBacked, ev.ActorID)
    case TypeSessionEnded:
        return fmt.Sprintf("[%s] Session ended | event_id=%d | session_id=%s | room=%q | actor_id=%d\n",
            ev.OccurredAt, ev.EventID, ev.SessionID, ev.RoomID, ev.ActorID)
    case TypePhaseChanged:
        return fmt.Sprintf("[%s] Phase changed | event_id=%d | phase=%s | status=%s | actor_id=%d\n",
            ev.OccurredAt, ev.EventID, ev.Phase, ev.Status, ev.ActorID)
    }
    return fmt.Sprintf("[%s] %s | event_id=%d\n", ev.OccurredAt, ev.Type, ev.EventID)
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}
