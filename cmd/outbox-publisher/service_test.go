package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/enums"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/outbox"
)

func TestServiceProcessBatchContinuesAfterFailure(t *testing.T) {
	repo := &fakeRepo{
		events: []models.OutboxEvent{
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelopePayload(t, "event-one", ""),
			},
			{
				ID:            uuid.New(),
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   uuid.New(),
				Payload:       mustEnvelopePayload(t, "event-two", ""),
			},
		},
	}
	pub := &fakePublisher{
		results: []publishResult{
			fakePublishResult{err: errors.New("transient")},
			fakePublishResult{},
		},
	}
	service := newTestService(t, repo, pub, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if !processed {
		t.Fatalf("expected batch to report processed")
	}
	if got := len(repo.failed); got != 1 {
		t.Fatalf("unexpected number of failed rows: %d", got)
	}
	if got := len(repo.published); got != 1 {
		t.Fatalf("unexpected number of published rows: %d", got)
	}
	if repo.failed[0] != repo.events[0].ID {
		t.Fatalf("failed row recorded wrong ID")
	}
	if repo.published[0] != repo.events[1].ID {
		t.Fatalf("published row recorded wrong ID")
	}
}

func TestServiceProcessBatchEmptyFetch(t *testing.T) {
	service := newTestService(t, &fakeRepo{}, &fakePublisher{}, nil)

	processed, err := service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if processed {
		t.Fatalf("empty fetch must report nothing processed")
	}
}

func TestServiceProcessBatchPassesAttemptCap(t *testing.T) {
	repo := &fakeRepo{}
	service := newTestService(t, repo, &fakePublisher{}, &config.OutboxConfig{
		BatchSize:      7,
		PollIntervalMS: 100,
		MaxAttempts:    3,
	})

	if _, err := service.processBatch(context.Background()); err != nil {
		t.Fatalf("process batch returned error: %v", err)
	}
	if repo.lastLimit != 7 {
		t.Fatalf("expected batch size 7, got %d", repo.lastLimit)
	}
	if repo.lastMaxAttempts != 3 {
		t.Fatalf("expected attempt cap 3, got %d", repo.lastMaxAttempts)
	}
}

func TestMessageAttributesExtractEnvelopeMetadata(t *testing.T) {
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       mustEnvelopePayload(t, "evt-123", "guest:sess-pub"),
	}

	attrs := messageAttributes(event)
	if attrs["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type %q", attrs["event_type"])
	}
	if attrs["aggregate_id"] != event.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id %q", attrs["aggregate_id"])
	}
	if attrs["event_id"] != "evt-123" {
		t.Fatalf("unexpected event_id %q", attrs["event_id"])
	}
	if attrs["owner_key"] != "guest:sess-pub" {
		t.Fatalf("unexpected owner_key %q", attrs["owner_key"])
	}
}

func TestMessageAttributesToleratesOpaquePayload(t *testing.T) {
	event := models.OutboxEvent{
		ID:          uuid.New(),
		EventType:   enums.EventOrderCreated,
		AggregateID: uuid.New(),
		Payload:     json.RawMessage(`not-json`),
	}

	attrs := messageAttributes(event)
	if attrs["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type %q", attrs["event_type"])
	}
	if _, ok := attrs["event_id"]; ok {
		t.Fatalf("event_id must be absent for opaque payloads")
	}
}

func TestNextBackoff(t *testing.T) {
	floor := 500 * time.Millisecond
	ceiling := 10 * time.Second

	if got := nextBackoff(floor, floor, ceiling); got != time.Second {
		t.Fatalf("expected doubling, got %v", got)
	}
	if got := nextBackoff(8*time.Second, floor, ceiling); got != ceiling {
		t.Fatalf("expected cap at ceiling, got %v", got)
	}
	if got := nextBackoff(100*time.Millisecond, floor, ceiling); got != floor {
		t.Fatalf("expected floor, got %v", got)
	}
}

func TestNewServiceValidation(t *testing.T) {
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	cfg := &config.Config{}

	if _, err := NewService(ServiceParams{Logger: logg, DB: &fakeDB{}, PubSub: &fakePubSubClient{}, Repository: &fakeRepo{}, Publisher: &fakePublisher{}}); err == nil {
		t.Fatal("expected error for missing config")
	}
	if _, err := NewService(ServiceParams{Config: cfg, DB: &fakeDB{}, PubSub: &fakePubSubClient{}, Repository: &fakeRepo{}, Publisher: &fakePublisher{}}); err == nil {
		t.Fatal("expected error for missing logger")
	}
	if _, err := NewService(ServiceParams{Config: cfg, Logger: logg, DB: &fakeDB{}, PubSub: &fakePubSubClient{}, Publisher: &fakePublisher{}}); err == nil {
		t.Fatal("expected error for missing repository")
	}
}

func newTestService(t *testing.T, repo outboxRepository, pub publisher, outboxCfgOverride *config.OutboxConfig) *Service {
	t.Helper()
	outboxCfg := config.OutboxConfig{
		BatchSize:      2,
		PollIntervalMS: 100,
		MaxAttempts:    5,
	}
	if outboxCfgOverride != nil {
		outboxCfg = *outboxCfgOverride
	}
	cfg := &config.Config{
		Outbox: outboxCfg,
	}
	logg := logger.New(logger.Options{
		ServiceName: "outbox-publisher-test",
		Output:      io.Discard,
	})
	service, err := NewService(ServiceParams{
		Config:     cfg,
		Logger:     logg,
		DB:         &fakeDB{},
		PubSub:     &fakePubSubClient{},
		Repository: repo,
		Publisher:  pub,
	})
	if err != nil {
		t.Fatalf("failed to construct service: %v", err)
	}
	return service
}

func mustEnvelopePayload(tb testing.TB, eventID, ownerKey string) json.RawMessage {
	tb.Helper()
	env := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    eventID,
		OccurredAt: time.Now(),
		Data:       json.RawMessage(`{}`),
	}
	if ownerKey != "" {
		env.Owner = &outbox.OwnerRef{OwnerKey: ownerKey}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		tb.Fatalf("marshal envelope: %v", err)
	}
	return payload
}

type fakeRepo struct {
	events          []models.OutboxEvent
	published       []uuid.UUID
	failed          []uuid.UUID
	lastLimit       int
	lastMaxAttempts int
}

func (f *fakeRepo) FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error) {
	f.lastLimit = limit
	f.lastMaxAttempts = maxAttempts
	return f.events, nil
}

func (f *fakeRepo) MarkPublished(id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeRepo) MarkFailed(id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

type fakeDB struct{}

func (f *fakeDB) Ping(context.Context) error {
	return nil
}

type fakePubSubClient struct{}

func (f *fakePubSubClient) Ping(context.Context) error {
	return nil
}

func (f *fakePubSubClient) OrdersPublisher() *gcppubsub.Publisher {
	return nil
}

type fakePublisher struct {
	results []publishResult
}

func (f *fakePublisher) Publish(context.Context, *gcppubsub.Message) publishResult {
	if len(f.results) == 0 {
		return fakePublishResult{}
	}
	result := f.results[0]
	f.results = f.results[1:]
	return result
}

type fakePublishResult struct {
	err error
}

func (f fakePublishResult) Get(context.Context) (string, error) {
	return "", f.err
}
