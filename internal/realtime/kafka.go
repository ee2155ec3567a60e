package realtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/colonyops/casetrack/internal/core/config"
	"github.com/colonyops/casetrack/internal/core/eventbus"
	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"
)

// HeaderEvent is the record header carrying the bus event name.
const HeaderEvent = "event"

const produceTimeout = 5 * time.Second

// Producer is the subset of *kgo.Client used to publish change records.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Poller is the subset of *kgo.Client used to consume change records.
type Poller interface {
	PollFetches(ctx context.Context) kgo.Fetches
}

// NewKafkaClient creates a client that produces to the configured topic and
// consumes every partition of it directly, starting at the end. No consumer
// group is joined: each process must see every change record, not a share of
// the partitions.
func NewKafkaClient(cfg config.KafkaConfig) (*kgo.Client, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(cfg.Brokers...),
		kgo.ConsumeTopics(cfg.Topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtEnd()),
		kgo.DefaultProduceTopic(cfg.Topic),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	return client, nil
}

// KafkaPublisher forwards task events from the local bus to a Kafka topic so
// other processes can observe them.
type KafkaPublisher struct {
	producer Producer
	topic    string
	log      zerolog.Logger
}

// NewKafkaPublisher creates a publisher producing to topic.
func NewKafkaPublisher(producer Producer, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, log: log}
}

// Register subscribes to the task events on bus and returns a func that
// removes the subscriptions.
func (p *KafkaPublisher) Register(bus *eventbus.EventBus) func() {
	unsubs := []func(){
		bus.SubscribeTaskCreated(func(e eventbus.TaskCreatedPayload) {
			p.publishLogged(eventbus.EventTaskCreated, e.Task.ID)
		}),
		bus.SubscribeTaskUpdated(func(e eventbus.TaskUpdatedPayload) {
			p.publishLogged(eventbus.EventTaskUpdated, e.Task.ID)
		}),
		bus.SubscribeTaskDeleted(func(e eventbus.TaskDeletedPayload) {
			p.publishLogged(eventbus.EventTaskDeleted, e.TaskID)
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (p *KafkaPublisher) publishLogged(event eventbus.Event, taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), produceTimeout)
	defer cancel()
	if err := p.Publish(ctx, event, taskID); err != nil {
		p.log.Error().Err(err).Str("event", string(event)).Str("task_id", taskID).Msg("publish change record")
	}
}

// Publish produces one change record keyed by task id.
func (p *KafkaPublisher) Publish(ctx context.Context, event eventbus.Event, taskID string) error {
	record := &kgo.Record{
		Topic:   p.topic,
		Key:     []byte(taskID),
		Value:   []byte(taskID),
		Headers: []kgo.RecordHeader{{Key: HeaderEvent, Value: []byte(event)}},
	}
	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", event, err)
	}
	return nil
}

// KafkaNotifier signals subscribers for every polled batch of change records.
// Run must be started for subscribers to receive anything.
type KafkaNotifier struct {
	poller Poller
	log    zerolog.Logger
	subs   fanout
}

// NewKafkaNotifier creates a notifier consuming from poller.
func NewKafkaNotifier(poller Poller, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{poller: poller, log: log}
}

func (n *KafkaNotifier) Subscribe(ctx context.Context, fn func()) (func(), error) {
	return bindContext(ctx, n.subs.add(fn)), nil
}

// Run polls until ctx is cancelled or the client is closed. A batch with at
// least one record produces a single signal.
func (n *KafkaNotifier) Run(ctx context.Context) {
	for {
		fetches := n.poller.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			n.log.Debug().Msg("kafka consumer stopped")
			return
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			if errors.Is(err, context.Canceled) {
				return
			}
			n.log.Warn().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch error")
		})

		count := 0
		for record := range fetches.RecordsAll() {
			count++
			n.log.Debug().
				Str("task_id", string(record.Key)).
				Str("event", headerValue(record, HeaderEvent)).
				Msg("task change record")
		}
		if count > 0 {
			n.subs.notify()
		}
	}
}

func headerValue(rec *kgo.Record, key string) string {
	for _, h := range rec.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
