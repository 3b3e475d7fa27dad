package usecase

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/input"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/adapters/memory"
)

// testEnv - полный стек над хранилищем в памяти.
type testEnv struct {
	channelRepo *memory.ChannelRepository
	messageRepo *memory.MessageRepository
	hub         *broker.Hub
	broker      *broker.Broker
	gate        *Gate

	channels ChannelUsecase
	messages MessageUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	channelRepo := memory.NewChannelRepository()
	messageRepo := memory.NewMessageRepository(channelRepo, 2000)
	hub := broker.NewHub()
	gate := NewGate(channelRepo)
	b := broker.NewBroker(hub, hub, gate)

	return &testEnv{
		channelRepo: channelRepo,
		messageRepo: messageRepo,
		hub:         hub,
		broker:      b,
		gate:        gate,
		channels:    NewChannelUsecase(channelRepo, gate, b, 20, 100),
		messages:    NewMessageUsecase(channelRepo, messageRepo, gate, b, 50, 100),
	}
}

func (e *testEnv) createChannel(t *testing.T, owner models.Principal, name string, visibility models.Visibility) *models.Channel {
	t.Helper()

	channel, err := e.channels.CreateChannel(context.Background(), owner, &input.CreateChannelInput{
		Name:       name,
		Visibility: string(visibility),
	})
	require.NoError(t, err)

	return channel
}

func newPrincipal(name string) models.Principal {
	return models.Principal{ID: uuid.New(), DisplayName: name}
}

// testConn - соединение, которое складывает кадры в память.
type testConn struct {
	id        string
	principal models.Principal

	mu     sync.Mutex
	frames []events.Message
}

func newTestConn(p models.Principal) *testConn {
	return &testConn{id: uuid.NewString(), principal: p}
}

func (c *testConn) ID() string                  { return c.id }
func (c *testConn) Principal() models.Principal { return c.principal }

func (c *testConn) Deliver(data []byte) bool {
	var frame events.Message
	if err := json.Unmarshal(data, &frame); err != nil {
		return false
	}

	c.mu.Lock()
	c.frames = append(c.frames, frame)
	c.mu.Unlock()

	return true
}

func (c *testConn) messages(t *testing.T) []events.MessageSentEvent {
	t.Helper()

	c.mu.Lock()
	defer c.mu.Unlock()

	var out []events.MessageSentEvent
	for _, frame := range c.frames {
		if frame.Type != events.TypeMessageSent {
			continue
		}

		var event events.MessageSentEvent
		require.NoError(t, json.Unmarshal(frame.Data, &event))
		out = append(out, event)
	}

	return out
}

func (c *testConn) received(eventType string) []events.Message {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []events.Message
	for _, frame := range c.frames {
		if frame.Type == eventType {
			out = append(out, frame)
		}
	}

	return out
}

// fanOut доставляет событие в hub каждого инстанса, как это делает relay.
type fanOut []*broker.Hub

func (f fanOut) Publish(ctx context.Context, topic string, env events.Envelope) error {
	for _, hub := range f {
		if err := hub.Publish(ctx, topic, env); err != nil {
			return err
		}
	}

	return nil
}

var (
	_ broker.Subscriber = (*testConn)(nil)
	_ broker.Publisher  = fanOut(nil)
)
