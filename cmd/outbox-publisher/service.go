package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/bluewud/storefront-backend/pkg/config"
	"github.com/bluewud/storefront-backend/pkg/db/models"
	"github.com/bluewud/storefront-backend/pkg/logger"
	"github.com/bluewud/storefront-backend/pkg/outbox"
)

const (
	defaultBatchSize      = 50
	defaultPollMs         = 500
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

type pubSubClient interface {
	Ping(context.Context) error
	OrdersPublisher() *gcppubsub.Publisher
}

type outboxRepository interface {
	FetchUnpublished(limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublished(id uuid.UUID) error
	MarkFailed(id uuid.UUID, err error) error
}

type dbPinger interface {
	Ping(context.Context) error
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	pub *gcppubsub.Publisher
}

func (g gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return g.pub.Publish(ctx, msg)
}

type ServiceParams struct {
	Config     *config.Config
	Logger     *logger.Logger
	DB         dbPinger
	PubSub     pubSubClient
	Repository outboxRepository
	Publisher  publisher
}

// Service drains the outbox table into Pub/Sub. At-least-once delivery:
// a row is marked published only after the broker acknowledges it, so a
// crash between publish and mark replays the event.
type Service struct {
	cfg          *config.Config
	logg         *logger.Logger
	db           dbPinger
	repo         outboxRepository
	pubsub       pubSubClient
	pub          publisher
	batchSize    int
	maxAttempts  int
	pollInterval time.Duration
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Repository == nil {
		return nil, errors.New("outbox repository is required")
	}

	pub := params.Publisher
	if pub == nil {
		ordersPub := params.PubSub.OrdersPublisher()
		if ordersPub == nil {
			return nil, errors.New("orders publisher is not configured")
		}
		pub = gcpPublisher{pub: ordersPub}
	}

	batch := params.Config.Outbox.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}
	pollMs := params.Config.Outbox.PollIntervalMS
	if pollMs <= 0 {
		pollMs = defaultPollMs
	}
	maxAttempts := params.Config.Outbox.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	return &Service{
		cfg:          params.Config,
		logg:         params.Logger,
		db:           params.DB,
		repo:         params.Repository,
		pubsub:       params.PubSub,
		pub:          pub,
		batchSize:    batch,
		maxAttempts:  maxAttempts,
		pollInterval: time.Duration(pollMs) * time.Millisecond,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	if err := pingDependency(ctx, s.logg, "database", s.db.Ping); err != nil {
		return err
	}
	if err := pingDependency(ctx, s.logg, "pubsub", s.pubsub.Ping); err != nil {
		return err
	}
	return nil
}

func pingDependency(ctx context.Context, logg *logger.Logger, name string, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		logg.Error(ctx, fmt.Sprintf("%s ping failed", name), err)
		return fmt.Errorf("%s ping failed: %w", name, err)
	}
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	interval := s.pollInterval
	if interval <= 0 {
		interval = time.Duration(defaultPollMs) * time.Millisecond
	}
	backoff := interval

	for {
		select {
		case <-ctx.Done():
			s.logg.Info(ctx, "outbox publisher context canceled")
			return ctx.Err()
		default:
		}

		processed, err := s.processBatch(ctx)
		if err != nil {
			s.logg.Error(ctx, "outbox publisher batch error", err)
			backoff = nextBackoff(backoff, interval, maxBackoff)
			if err := s.sleep(ctx, withJitter(backoff)); err != nil {
				return err
			}
			continue
		}

		backoff = interval

		if processed {
			continue
		}

		if err := s.sleep(ctx, withJitter(interval)); err != nil {
			return err
		}
	}
}

func (s *Service) processBatch(ctx context.Context) (bool, error) {
	events, err := s.repo.FetchUnpublished(s.batchSize, s.maxAttempts)
	if err != nil {
		return false, err
	}
	if len(events) == 0 {
		return false, nil
	}

	for _, event := range events {
		fields := s.eventFields(event)
		if err := s.publishEvent(ctx, event); err != nil {
			logCtx := s.logg.WithFields(ctx, fields)
			logCtx = s.logg.WithField(logCtx, "error", err.Error())
			s.logg.Warn(logCtx, "outbox publish failed")
			if markErr := s.repo.MarkFailed(event.ID, err); markErr != nil {
				return true, fmt.Errorf("mark failure %s: %w", event.ID, markErr)
			}
			continue
		}

		if markErr := s.repo.MarkPublished(event.ID); markErr != nil {
			return true, fmt.Errorf("mark published %s: %w", event.ID, markErr)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "outbox event published")
	}
	return true, nil
}

func (s *Service) publishEvent(ctx context.Context, event models.OutboxEvent) error {
	publishCtx, cancel := context.WithTimeout(ctx, defaultPublishTimeout)
	defer cancel()

	msg := &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: messageAttributes(event),
	}
	_, err := s.pub.Publish(publishCtx, msg).Get(publishCtx)
	return err
}

func messageAttributes(event models.OutboxEvent) map[string]string {
	attrs := map[string]string{
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
	}
	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err == nil {
		attrs["event_id"] = envelope.EventID
		if envelope.Owner != nil {
			attrs["owner_key"] = envelope.Owner.OwnerKey
		}
	}
	return attrs
}

func (s *Service) eventFields(event models.OutboxEvent) map[string]any {
	return map[string]any{
		"event_type":     event.EventType,
		"aggregate_type": event.AggregateType,
		"aggregate_id":   event.AggregateID.String(),
		"attempt_count":  event.AttemptCount,
	}
}

func (s *Service) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func nextBackoff(current, floor, ceiling time.Duration) time.Duration {
	doubled := current * 2
	if doubled < floor {
		return floor
	}
	if doubled > ceiling {
		return ceiling
	}
	return doubled
}

func withJitter(d time.Duration) time.Duration {
	return d + time.Duration(jitterSource.Int63n(int64(jitterWindow)))
}
