package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	appoutbox "stayfinder/internal/app/outbox"
	"stayfinder/internal/infra/storage/memory"
)

type publishedMessage struct {
	Topic   string
	Key     string
	Payload []byte
	Headers map[string]string
}

type fakeProducer struct {
	mu        sync.Mutex
	published []publishedMessage
	failures  int
}

func (p *fakeProducer) Publish(ctx context.Context, topic, key string, payload []byte, headers map[string]string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, publishedMessage{Topic: topic, Key: key, Payload: payload, Headers: headers})
	return nil
}

func (p *fakeProducer) Published() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]publishedMessage, len(p.published))
	copy(out, p.published)
	return out
}

func stageRecord(t *testing.T, box *memory.Outbox, rec appoutbox.EventRecord) {
	t.Helper()
	ctx := context.Background()
	if err := box.Add(ctx, rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := box.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
}

func createdRecord() appoutbox.EventRecord {
	payload, _ := json.Marshal(map[string]any{
		"BookingID":  "bk-1",
		"PropertyID": "prop-1",
	})
	return appoutbox.EventRecord{
		ID:         "rec-1",
		Name:       "booking.created",
		Payload:    payload,
		OccurredAt: time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		Aggregate:  "bk-1",
		Headers:    map[string]string{},
	}
}

func TestWorker_PublishesCloudEvent(t *testing.T) {
	box := memory.NewOutbox()
	queue := NewMemoryQueue(box)
	producer := &fakeProducer{}
	worker := &Worker{Queue: queue, Producer: producer, ID: "w-1"}

	stageRecord(t, box, createdRecord())

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}

	msgs := producer.Published()
	if len(msgs) != 1 {
		t.Fatalf("published %d messages, want 1", len(msgs))
	}
	msg := msgs[0]
	if msg.Topic != "booking.events.v1" {
		t.Fatalf("topic = %q", msg.Topic)
	}
	if msg.Key != "bk-1" {
		t.Fatalf("key = %q, want aggregate id", msg.Key)
	}
	if ct := msg.Headers["content-type"]; ct != "application/cloudevents+json" {
		t.Fatalf("content-type = %q", ct)
	}

	var evt map[string]any
	if err := json.Unmarshal(msg.Payload, &evt); err != nil {
		t.Fatalf("payload not JSON: %v", err)
	}
	if evt["specversion"] != "1.0" {
		t.Fatalf("specversion = %v", evt["specversion"])
	}
	if evt["type"] != "booking.created.v1" {
		t.Fatalf("type = %v", evt["type"])
	}
	if evt["source"] != "app://stayfinder" {
		t.Fatalf("source = %v", evt["source"])
	}
	data, ok := evt["data"].(map[string]any)
	if !ok || data["BookingID"] != "bk-1" {
		t.Fatalf("data = %v", evt["data"])
	}

	// the record is gone once sent
	doc, err := queue.Claim(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if doc != nil {
		t.Fatalf("sent record still claimable: %+v", doc)
	}
}

func TestWorker_RetriesFailedPublish(t *testing.T) {
	box := memory.NewOutbox()
	queue := NewMemoryQueue(box)
	producer := &fakeProducer{failures: 1}
	worker := &Worker{Queue: queue, Producer: producer, ID: "w-1", Backoff: []time.Duration{0}}

	stageRecord(t, box, createdRecord())

	// first pass fails at the broker; the record stays queued
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if got := len(producer.Published()); got != 0 {
		t.Fatalf("published %d messages after failure, want 0", got)
	}

	// second pass redelivers
	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce retry: %v", err)
	}
	if got := len(producer.Published()); got != 1 {
		t.Fatalf("published %d messages after retry, want 1", got)
	}
}

func TestWorker_EmptyQueueIsIdle(t *testing.T) {
	box := memory.NewOutbox()
	worker := &Worker{Queue: NewMemoryQueue(box), Producer: &fakeProducer{}, ID: "w-1"}

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce on empty queue: %v", err)
	}
}

func TestWorker_MalformedPayloadIsParked(t *testing.T) {
	box := memory.NewOutbox()
	queue := NewMemoryQueue(box)
	producer := &fakeProducer{}
	worker := &Worker{Queue: queue, Producer: producer, ID: "w-1", Backoff: []time.Duration{time.Hour}}

	rec := createdRecord()
	rec.Payload = []byte("not-json")
	stageRecord(t, box, rec)

	if err := worker.processOnce(context.Background()); err != nil {
		t.Fatalf("processOnce: %v", err)
	}
	if got := len(producer.Published()); got != 0 {
		t.Fatalf("published %d messages, want 0", got)
	}
	// parked for an hour, not immediately reclaimed
	doc, err := queue.Claim(context.Background(), "w-1")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if doc != nil {
		t.Fatalf("failed record claimable before backoff: %+v", doc)
	}
}

func TestTopicFor(t *testing.T) {
	cases := []struct {
		name   string
		prefix string
		event  string
		want   string
	}{
		{"default", "", "booking.created", "booking.events.v1"},
		{"accepted shares topic", "", "booking.accepted", "booking.events.v1"},
		{"prefixed", "staging.", "booking.cancelled", "staging.booking.events.v1"},
		{"no dot in name", "", "heartbeat", "heartbeat.events.v1"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := &Worker{TopicPrefix: tc.prefix}
			if got := w.topicFor(tc.event); got != tc.want {
				t.Fatalf("topicFor(%q) = %q, want %q", tc.event, got, tc.want)
			}
		})
	}
}
