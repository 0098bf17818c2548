package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

var (
	ErrBufferFull = errors.New("notify: kafka buffer full")
	ErrClosed     = errors.New("notify: kafka notifier closed")
)

// Envelope is the message value published for every order event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     EventType       `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier publishes events through a buffered channel drained by one
// goroutine, so Notify never waits on the broker. Messages are keyed by
// order id to keep one order's events in partition order.
type KafkaNotifier struct {
	w        messageWriter
	producer string
	log      *logrus.Logger
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	inbox  chan kafka.Message
	done   chan struct{}
}

func NewKafkaNotifier(brokers []string, topic, producer string, buf int, log *logrus.Logger) *KafkaNotifier {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaNotifier(w, producer, buf, log)
}

func newKafkaNotifier(w messageWriter, producer string, buf int, log *logrus.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		w:        w,
		producer: producer,
		log:      log,
		timeout:  10 * time.Second,
		inbox:    make(chan kafka.Message, buf),
		done:     make(chan struct{}),
	}
}

// Start launches the publishing loop. It returns once Close has drained the
// buffer.
func (n *KafkaNotifier) Start() {
	go func() {
		defer close(n.done)
		for m := range n.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), n.timeout)
			err := n.w.WriteMessages(ctx, m)
			cancel()
			if err != nil {
				n.log.WithFields(logrus.Fields{
					"key":   string(m.Key),
					"error": err.Error(),
				}).Error("Failed to publish order event")
			}
		}
	}()
}

func (n *KafkaNotifier) Notify(_ context.Context, ev Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	value, err := json.Marshal(Envelope{
		EventID:       uuid.NewString(),
		EventType:     ev.Type,
		EventVersion:  1,
		OccurredAt:    ev.OccurredAt.UTC(),
		Producer:      n.producer,
		CorrelationID: ev.OrderID,
		Payload:       payload,
	})
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Key:   []byte(ev.OrderID),
		Value: value,
		Time:  time.Now(),
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(ev.Type)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	if n.closed {
		return ErrClosed
	}
	select {
	case n.inbox <- msg:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting events, flushes what is buffered and closes the
// writer. Start must have been called.
func (n *KafkaNotifier) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	close(n.inbox)
	n.mu.Unlock()

	<-n.done
	return n.w.Close()
}
