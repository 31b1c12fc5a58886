package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationLogName is the file the consumer appends to inside its log dir.
const NotificationLogName = "notifications.log"

// StartNotificationConsumer connects to RabbitMQ, declares every event
// queue (durable) and appends one line per message to
// <logDir>/notifications.log. It reconnects with backoff until ctx is
// cancelled, then returns ctx.Err(). Messages that cannot be handled are
// rejected without requeue so the loop keeps draining.
func StartNotificationConsumer(ctx context.Context, url, logDir string) error {
	w := &lineWriter{path: filepath.Join(logDir, NotificationLogName)}
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Printf("notification-consumer: failed to dial broker: %v; retrying in %s", err, backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, w)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("notification-consumer: consume loop ended: %v; reconnecting", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
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

type delivery struct {
	queue string
	amqp.Delivery
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, w *lineWriter) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("notification-consumer: set QoS failed: %v", err)
	}

	merged := make(chan delivery)
	done := make(chan struct{})
	defer close(done)
	var wg sync.WaitGroup
	for _, name := range Queues {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		wg.Add(1)
		go func(name string, msgs <-chan amqp.Delivery) {
			defer wg.Done()
			for d := range msgs {
				select {
				case merged <- delivery{queue: name, Delivery: d}:
				case <-done:
					return
				}
			}
		}(name, msgs)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			line, err := FormatLine(d.queue, d.Body)
			if err == nil {
				err = w.write(line)
			}
			if err != nil {
				log.Printf("notification-consumer: handle message failed: %v", err)
				_ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// FormatLine renders a message from queue as a single log line.
func FormatLine(queue string, body []byte) (string, error) {
	switch queue {
	case PlanSharedQueue:
		var ev PlanSharedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		return fmt.Sprintf("[%s] Plan shared | owner_id=%d | owner=%q | with=%q | permission=%s\n",
			ev.SharedAt, ev.OwnerID, ev.OwnerEmail, ev.SharedWithEmail, ev.Permission), nil
	case ImportCompletedQueue:
		var ev ImportCompletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		return fmt.Sprintf("[%s] Import completed | user_id=%d | tasks=%d skipped=%d duplicates=%d | strategies=%d skipped=%d\n",
			ev.CompletedAt, ev.UserID, ev.TasksImported, ev.TasksSkipped, ev.TasksDuplicate,
			ev.StrategiesImported, ev.StrategiesSkipped), nil
	case DailyBriefingQueue:
		var ev DailyBriefingEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", fmt.Errorf("unmarshal %s: %w", queue, err)
		}
		items := make([]string, len(ev.Tasks))
		for i, t := range ev.Tasks {
			items[i] = fmt.Sprintf("#%d %s (%s)", t.ID, t.Description, t.Priority)
		}
		return fmt.Sprintf("[%s] Daily briefing | user_id=%d | email=%q | open=%d | tasks=[%s]\n",
			ev.Date, ev.UserID, ev.Email, len(ev.Tasks), strings.Join(items, "; ")), nil
	default:
		return "", fmt.Errorf("unknown queue %q", queue)
	}
}

// lineWriter appends lines to one file, creating its directory on demand.
type lineWriter struct {
	mu   sync.Mutex
	path string
}

func (w *lineWriter) write(line string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
