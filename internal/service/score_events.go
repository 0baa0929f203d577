package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-crosscheck-api/internal/dto"
	"github.com/noah-isme/gema-crosscheck-api/internal/observability"
)

const scoreEventBufferSize = 16

// ScoreEventPublisher fans published task scores out to other instances and local listeners.
type ScoreEventPublisher interface {
	Publish(ctx context.Context, result dto.TaskResultResponse) error
	Subscribe(courseTaskID uint) (<-chan dto.TaskResultResponse, func())
	Start(ctx context.Context)
}

type scoreEvent struct {
	Source string                 `json:"source"`
	Result dto.TaskResultResponse `json:"result"`
	SentAt time.Time              `json:"sent_at"`
}

type scoreEventBus struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	logger       zerolog.Logger
	nodeID       string

	mu          sync.RWMutex
	subscribers map[uint]map[chan dto.TaskResultResponse]struct{}
}

// NewScoreEventPublisher constructs the score event bus. Either broker may be nil.
func NewScoreEventPublisher(redisClient *redis.Client, channelBase string, natsConn *nats.Conn, logger zerolog.Logger) ScoreEventPublisher {
	channel := ""
	subject := ""
	if channelBase != "" {
		channel = channelBase + ":scores"
		subject = strings.ReplaceAll(channelBase, ":", ".") + ".scores"
	}

	return &scoreEventBus{
		redis:        redisClient,
		redisChannel: channel,
		nats:         natsConn,
		natsSubject:  subject,
		logger:       logger.With().Str("component", "score_events").Logger(),
		nodeID:       uuid.NewString(),
		subscribers:  make(map[uint]map[chan dto.TaskResultResponse]struct{}),
	}
}

func (b *scoreEventBus) Start(ctx context.Context) {
	if b.redis != nil && b.redisChannel != "" {
		go b.consumeRedis(ctx)
	}
	if b.nats != nil && b.natsSubject != "" {
		go b.consumeNATS(ctx)
	}
}

func (b *scoreEventBus) Publish(ctx context.Context, result dto.TaskResultResponse) error {
	b.broadcast(result)

	payload, err := json.Marshal(scoreEvent{
		Source: b.nodeID,
		Result: result,
		SentAt: time.Now().UTC(),
	})
	if err != nil {
		return err
	}

	var errs []error
	if b.redis != nil && b.redisChannel != "" {
		if err := b.redis.Publish(ctx, b.redisChannel, payload).Err(); err != nil {
			observability.EventsDropped().WithLabelValues("redis").Inc()
			errs = append(errs, err)
		}
	}

	if b.nats != nil && b.natsSubject != "" {
		if err := b.nats.Publish(b.natsSubject, payload); err != nil {
			observability.EventsDropped().WithLabelValues("nats").Inc()
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (b *scoreEventBus) Subscribe(courseTaskID uint) (<-chan dto.TaskResultResponse, func()) {
	channel := make(chan dto.TaskResultResponse, scoreEventBufferSize)

	b.mu.Lock()
	if _, exists := b.subscribers[courseTaskID]; !exists {
		b.subscribers[courseTaskID] = make(map[chan dto.TaskResultResponse]struct{})
	}
	b.subscribers[courseTaskID][channel] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cleanup := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if subscribers, ok := b.subscribers[courseTaskID]; ok {
				delete(subscribers, channel)
				if len(subscribers) == 0 {
					delete(b.subscribers, courseTaskID)
				}
			}
			close(channel)
		})
	}

	return channel, cleanup
}

func (b *scoreEventBus) broadcast(result dto.TaskResultResponse) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for ch := range b.subscribers[result.CourseTaskID] {
		select {
		case ch <- result:
		default:
		}
	}
}

func (b *scoreEventBus) consumeRedis(ctx context.Context) {
	pubsub := b.redis.Subscribe(ctx, b.redisChannel)
	defer func() { _ = pubsub.Close() }()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			b.logger.Error().Err(err).Msg("score event redis subscription closed")
			return
		}
		b.handleEvent([]byte(msg.Payload))
	}
}

func (b *scoreEventBus) consumeNATS(ctx context.Context) {
	// Each instance needs every event, so no queue group.
	sub, err := b.nats.Subscribe(b.natsSubject, func(msg *nats.Msg) {
		b.handleEvent(msg.Data)
	})
	if err != nil {
		b.logger.Error().Err(err).Msg("failed to subscribe to nats score subject")
		return
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			b.logger.Warn().Err(err).Msg("failed to drain score nats subscription")
		}
	}()
}

func (b *scoreEventBus) handleEvent(payload []byte) {
	var event scoreEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		b.logger.Warn().Err(err).Msg("invalid score event payload")
		return
	}

	if event.Source == b.nodeID {
		return
	}

	b.broadcast(event.Result)
}
