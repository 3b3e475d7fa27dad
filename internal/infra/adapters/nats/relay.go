package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	natsio "github.com/nats-io/nats.go"

	"github.com/qrave1/RoomChat/internal/application/constant"
	"github.com/qrave1/RoomChat/internal/application/metric"
	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain/events"
)

// Бесконечные попытки переподключения: relay живёт столько же, сколько процесс.
const maxReconnects = -1

var (
	ErrEmptyTopic = errors.New("empty topic")

	_ broker.Publisher = (*Relay)(nil)
)

// Connect открывает соединение с NATS с логированием разрывов.
func Connect(url string) (*natsio.Conn, error) {
	conn, err := natsio.Connect(
		url,
		natsio.Name("roomchat"),
		natsio.MaxReconnects(maxReconnects),
		natsio.ReconnectWait(2*time.Second),
		natsio.DisconnectErrHandler(func(_ *natsio.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", slog.Any(constant.Error, err))
			}
		}),
		natsio.ReconnectHandler(func(c *natsio.Conn) {
			slog.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}

	return conn, nil
}

// Relay - Publisher, который рассылает события через NATS всем инстансам.
// Каждый инстанс подписан на все топики и передаёт полученное в свой Hub.
type Relay struct {
	conn   *natsio.Conn
	prefix string
	local  broker.Publisher

	sub *natsio.Subscription
}

func NewRelay(conn *natsio.Conn, prefix string, local broker.Publisher) *Relay {
	return &Relay{
		conn:   conn,
		prefix: prefix,
		local:  local,
	}
}

func (r *Relay) Publish(_ context.Context, topic string, env events.Envelope) error {
	if topic == "" {
		return ErrEmptyTopic
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	if err = r.conn.Publish(r.subject(topic), data); err != nil {
		return fmt.Errorf("nats publish: %w", err)
	}

	return nil
}

// Start подписывает инстанс на все топики.
func (r *Relay) Start() error {
	sub, err := r.conn.Subscribe(r.prefix+".>", r.handle)
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	r.sub = sub

	return nil
}

func (r *Relay) Close() error {
	if r.sub != nil {
		if err := r.sub.Unsubscribe(); err != nil && !errors.Is(err, natsio.ErrConnectionClosed) {
			return fmt.Errorf("nats unsubscribe: %w", err)
		}
	}

	return r.conn.Drain()
}

func (r *Relay) handle(msg *natsio.Msg) {
	topic, ok := strings.CutPrefix(msg.Subject, r.prefix+".")
	if !ok || topic == "" {
		return
	}

	var env events.Envelope
	if err := json.Unmarshal(msg.Data, &env); err != nil {
		slog.Warn(
			"unmarshal relayed event",
			slog.Any(constant.Error, err),
			slog.String(constant.Topic, topic),
		)

		return
	}

	if err := r.local.Publish(context.Background(), topic, env); err != nil {
		metric.IncrementPublishErrors()
		slog.Error(
			"deliver relayed event",
			slog.Any(constant.Error, err),
			slog.String(constant.Topic, topic),
		)
	}
}

func (r *Relay) subject(topic string) string {
	return r.prefix + "." + topic
}
