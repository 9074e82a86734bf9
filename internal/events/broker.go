package events

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog/log"

	redisclient "github.com/omnipushdigital/smartretail/internal/redis"
)

const (
	TypeDevicePaired         = "device.paired"
	TypeDeviceOnline         = "device.online"
	TypePublicationPublished = "publication.published"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type Client struct {
	TenantID string
	Events   chan Event
	Done     chan struct{}
}

// Broker fans device lifecycle events out to back-office SSE clients. Events
// travel through redis pub/sub so every server instance sees them.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // tenantID -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(tenantID string) *Client {
	client := &Client{
		TenantID: tenantID,
		Events:   make(chan Event, 100),
		Done:     make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[tenantID] == nil {
		b.clients[tenantID] = make(map[*Client]bool)
		go b.subscribeToRedis(tenantID)
	}
	b.clients[tenantID][client] = true
	clientCount := len(b.clients[tenantID])
	b.mu.Unlock()

	log.Info().
		Str("tenantId", tenantID).
		Int("clientCount", clientCount).
		Msg("event client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.TenantID]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.TenantID)
		}

		log.Info().
			Str("tenantId", client.TenantID).
			Int("clientCount", len(clients)).
			Msg("event client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, tenantID string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.DeviceEventChannel(tenantID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(tenantID string) {
	channel := redisclient.DeviceEventChannel(tenantID)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("tenantId", tenantID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(tenantID, event)
		}
	}
}

func (b *Broker) broadcast(tenantID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[tenantID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("tenantId", tenantID).
				Msg("event client buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for tenantID, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
		delete(b.clients, tenantID)
	}
}
