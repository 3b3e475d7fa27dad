package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/qrave1/RoomChat/internal/application/config"
	"github.com/qrave1/RoomChat/internal/broker"
	"github.com/qrave1/RoomChat/internal/domain/events"
	"github.com/qrave1/RoomChat/internal/domain/models"
	"github.com/qrave1/RoomChat/internal/infra/adapters/memory"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/dto"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/handlers"
	"github.com/qrave1/RoomChat/internal/infra/ports/http/middleware"
	"github.com/qrave1/RoomChat/internal/usecase"
)

const testSecret = "test-secret"

type testClient struct {
	t      *testing.T
	srv    *httptest.Server
	token  string
	member models.Principal
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.Config{
		Debug:     true,
		JWTSecret: testSecret,
		Chat: config.ChatConfig{
			MaxContentLength: 2000,
			ChannelPageSize:  20,
			MessagePageSize:  50,
			MaxPageSize:      100,
			SubscriberBuffer: 16,
		},
	}

	channelRepo := memory.NewChannelRepository()
	messageRepo := memory.NewMessageRepository(channelRepo, cfg.Chat.MaxContentLength)
	hub := broker.NewHub()
	gate := usecase.NewGate(channelRepo)
	chatBroker := broker.NewBroker(hub, hub, gate)

	channelUsecase := usecase.NewChannelUsecase(channelRepo, gate, chatBroker, cfg.Chat.ChannelPageSize, cfg.Chat.MaxPageSize)
	messageUsecase := usecase.NewMessageUsecase(channelRepo, messageRepo, gate, chatBroker, cfg.Chat.MessagePageSize, cfg.Chat.MaxPageSize)

	e := New(
		cfg,
		handlers.NewChannelHandler(channelUsecase),
		handlers.NewMessageHandler(messageUsecase),
		handlers.NewBroadcastingHandler(chatBroker),
		handlers.NewWebSocketHandler(cfg, chatBroker, messageUsecase, memory.NewWSConnectionRepository()),
	)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server, name string) *testClient {
	t.Helper()

	p := models.Principal{ID: uuid.New(), DisplayName: name}
	token, err := middleware.IssueToken(testSecret, p, time.Hour)
	require.NoError(t, err)

	return &testClient{t: t, srv: srv, token: token, member: p}
}

func (c *testClient) do(method, path string, body any, headers ...string) (int, []byte) {
	c.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(c.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	r, err := http.NewRequest(method, c.srv.URL+path, reader)
	require.NoError(c.t, err)
	r.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		r.Header.Set("Authorization", "Bearer "+c.token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		r.Header.Set(headers[i], headers[i+1])
	}

	resp, err := http.DefaultClient.Do(r)
	require.NoError(c.t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(c.t, err)

	return resp.StatusCode, buf.Bytes()
}

func (c *testClient) dial() *websocket.Conn {
	c.t.Helper()

	url := "ws" + strings.TrimPrefix(c.srv.URL, "http") + "/api/v1/ws?token=" + c.token

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(c.t, err)
	c.t.Cleanup(func() { conn.Close() })

	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) events.Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))

	var frame events.Message
	require.NoError(t, conn.ReadJSON(&frame))

	return frame
}

func sendFrame(t *testing.T, conn *websocket.Conn, msgType, ref string, data any) {
	t.Helper()

	frame, err := events.NewMessage(msgType, data)
	require.NoError(t, err)
	frame.Ref = ref

	require.NoError(t, conn.WriteJSON(frame))
}

func TestServer_GeneralChannel(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	alice := newTestClient(t, srv, "alice")
	bob := newTestClient(t, srv, "bob")

	// Given alice creates a public channel
	status, body := alice.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "General"})
	req.Equal(http.StatusCreated, status, string(body))

	var channel dto.ChannelResponse
	req.NoError(json.Unmarshal(body, &channel))
	req.Equal("general", channel.Slug)
	req.Equal(1, channel.MembersCount)

	// And bob finds it by slug and joins
	status, _ = bob.do(http.MethodGet, "/api/v1/channels/general", nil)
	req.Equal(http.StatusOK, status)

	status, body = bob.do(http.MethodPost, "/api/v1/channels/"+channel.ID.String()+"/join", nil)
	req.Equal(http.StatusOK, status)

	var joined dto.JoinChannelResponse
	req.NoError(json.Unmarshal(body, &joined))
	req.Equal(channel.ID, joined.ID)
	req.Equal(2, joined.MembersCount)
	req.NotEmpty(joined.JoinedAt)

	// And bob listens on a websocket
	ws := bob.dial()

	connected := readFrame(t, ws)
	req.Equal(events.TypeConnected, connected.Type)

	var hello events.ConnectedEvent
	req.NoError(json.Unmarshal(connected.Data, &hello))
	req.NotEmpty(hello.SocketID)
	req.Equal(bob.member.ID, hello.Me.ID)

	channelID := channel.ID
	sendFrame(t, ws, events.CommandSubscribe, "1", events.ChannelEvent{ChannelID: channelID})

	subscribed := readFrame(t, ws)
	req.Equal(events.TypeSubscribed, subscribed.Type)
	req.Equal("1", subscribed.Ref)

	// When alice posts over REST
	status, body = alice.do(http.MethodPost, "/api/v1/channels/"+channel.ID.String()+"/messages", dto.SendMessageRequest{Content: "hello"})
	req.Equal(http.StatusCreated, status, string(body))

	// Then bob receives it live
	delivered := readFrame(t, ws)
	req.Equal(events.TypeMessageSent, delivered.Type)

	var sent events.MessageSentEvent
	req.NoError(json.Unmarshal(delivered.Data, &sent))
	req.Equal("hello", sent.Content)
	req.Equal("alice", sent.Sender.DisplayName)
	req.Equal(int64(1), sent.Position)

	// When bob replies over the websocket
	sendFrame(t, ws, events.CommandSend, "2", events.SendEvent{ChannelID: channelID, Content: "hi alice"})

	// Then only the acknowledgement comes back to him
	stored := readFrame(t, ws)
	req.Equal(events.TypeMessageStored, stored.Type)
	req.Equal("2", stored.Ref)

	// And the history holds both messages in order
	status, body = alice.do(http.MethodGet, "/api/v1/channels/"+channel.ID.String()+"/messages", nil)
	req.Equal(http.StatusOK, status)

	var history dto.PageResponse[dto.MessageResponse]
	req.NoError(json.Unmarshal(body, &history))
	req.Equal(2, history.Total)
	req.Equal("hello", history.Items[0].Content)
	req.Equal("hi alice", history.Items[1].Content)
}

func TestServer_RestSendSkipsOwnSocket(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	alice := newTestClient(t, srv, "alice")

	status, body := alice.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "solo"})
	req.Equal(http.StatusCreated, status)

	var channel dto.ChannelResponse
	req.NoError(json.Unmarshal(body, &channel))

	ws := alice.dial()

	var hello events.ConnectedEvent
	req.NoError(json.Unmarshal(readFrame(t, ws).Data, &hello))

	sendFrame(t, ws, events.CommandSubscribe, "", events.ChannelEvent{ChannelID: channel.ID})
	req.Equal(events.TypeSubscribed, readFrame(t, ws).Type)

	// Сообщение от имени своего сокета не возвращается эхом
	status, _ = alice.do(
		http.MethodPost,
		"/api/v1/channels/"+channel.ID.String()+"/messages",
		dto.SendMessageRequest{Content: "quiet"},
		middleware.SocketIDHeader, hello.SocketID,
	)
	req.Equal(http.StatusCreated, status)

	sendFrame(t, ws, events.CommandPing, "p", nil)

	pong := readFrame(t, ws)
	req.Equal(events.TypePong, pong.Type)
	req.Equal("p", pong.Ref)
}

func TestServer_WebsocketErrors(t *testing.T) {
	req := require.New(t)
	srv := newTestServer(t)
	owner := newTestClient(t, srv, "owner")
	stranger := newTestClient(t, srv, "stranger")

	status, body := owner.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "staff", Visibility: "private"})
	req.Equal(http.StatusCreated, status)

	var channel dto.ChannelResponse
	req.NoError(json.Unmarshal(body, &channel))

	ws := stranger.dial()
	readFrame(t, ws)

	expectError := func(ref, code string) {
		t.Helper()

		frame := readFrame(t, ws)
		req.Equal(events.TypeError, frame.Type)
		req.Equal(ref, frame.Ref)

		var event events.ErrorEvent
		req.NoError(json.Unmarshal(frame.Data, &event))
		req.Equal(code, event.Code)
	}

	sendFrame(t, ws, events.CommandSubscribe, "1", events.ChannelEvent{ChannelID: channel.ID})
	expectError("1", "forbidden")

	sendFrame(t, ws, events.CommandSend, "2", events.SendEvent{ChannelID: channel.ID, Content: "hi"})
	expectError("2", "forbidden")

	sendFrame(t, ws, "dance", "3", nil)
	expectError("3", "unknown_command")

	req.NoError(ws.WriteMessage(websocket.TextMessage, []byte("not json")))
	expectError("", "bad_request")
}

func TestServer_RestErrors(t *testing.T) {
	srv := newTestServer(t)
	owner := newTestClient(t, srv, "owner")
	stranger := newTestClient(t, srv, "stranger")

	status, body := owner.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "staff", Visibility: "private"})
	require.Equal(t, http.StatusCreated, status)

	var private dto.ChannelResponse
	require.NoError(t, json.Unmarshal(body, &private))

	status, body = owner.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "lobby"})
	require.Equal(t, http.StatusCreated, status)

	var public dto.ChannelResponse
	require.NoError(t, json.Unmarshal(body, &public))

	t.Run("should require a token", func(t *testing.T) {
		req := require.New(t)
		anonymous := &testClient{t: t, srv: srv}

		status, _ := anonymous.do(http.MethodGet, "/api/v1/channels", nil)
		req.Equal(http.StatusUnauthorized, status)
	})

	t.Run("should report validation errors by field", func(t *testing.T) {
		req := require.New(t)

		status, body := owner.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "lobby"})
		req.Equal(http.StatusUnprocessableEntity, status)

		var resp dto.ValidationErrorResponse
		req.NoError(json.Unmarshal(body, &resp))
		req.Equal([]string{"has already been taken"}, resp.Errors["name"])
	})

	t.Run("should forbid joining a private channel", func(t *testing.T) {
		req := require.New(t)

		status, _ := stranger.do(http.MethodPost, "/api/v1/channels/"+private.ID.String()+"/join", nil)
		req.Equal(http.StatusForbidden, status)
	})

	t.Run("should forbid posting without membership", func(t *testing.T) {
		req := require.New(t)

		status, body := stranger.do(http.MethodPost, "/api/v1/channels/"+public.ID.String()+"/messages", dto.SendMessageRequest{Content: "hi"})
		req.Equal(http.StatusForbidden, status)
		req.JSONEq(`{"error":"forbidden"}`, string(body))
	})

	t.Run("should hide private channels", func(t *testing.T) {
		req := require.New(t)

		status, _ := stranger.do(http.MethodGet, "/api/v1/channels/"+private.ID.String(), nil)
		req.Equal(http.StatusNotFound, status)
	})

	t.Run("should reject malformed ids", func(t *testing.T) {
		req := require.New(t)

		status, _ := stranger.do(http.MethodPost, "/api/v1/channels/nope/join", nil)
		req.Equal(http.StatusBadRequest, status)

		status, _ = stranger.do(http.MethodGet, "/api/v1/messages/abc", nil)
		req.Equal(http.StatusBadRequest, status)
	})

	t.Run("should list only public channels", func(t *testing.T) {
		req := require.New(t)

		status, body := stranger.do(http.MethodGet, "/api/v1/channels?per_page=10", nil)
		req.Equal(http.StatusOK, status)

		var page dto.PageResponse[dto.ChannelResponse]
		req.NoError(json.Unmarshal(body, &page))
		req.Equal(1, page.Total)
		req.Equal("lobby", page.Items[0].Name)
		req.Equal(1, page.Items[0].MembersCount)
	})
}

func TestServer_BroadcastingAuth(t *testing.T) {
	srv := newTestServer(t)
	owner := newTestClient(t, srv, "owner")
	stranger := newTestClient(t, srv, "stranger")

	status, body := owner.do(http.MethodPost, "/api/v1/channels", dto.CreateChannelRequest{Name: "lobby"})
	require.Equal(t, http.StatusCreated, status)

	var channel dto.ChannelResponse
	require.NoError(t, json.Unmarshal(body, &channel))

	t.Run("should admit members with their presence", func(t *testing.T) {
		req := require.New(t)

		status, body := owner.do(http.MethodPost, "/api/v1/broadcasting/auth", dto.BroadcastAuthRequest{ChannelName: events.ChannelTopic(channel.ID)})
		req.Equal(http.StatusOK, status)

		var resp dto.BroadcastAuthResponse
		req.NoError(json.Unmarshal(body, &resp))
		req.Equal(owner.member.ID.String(), resp.ID)
		req.Equal("owner", resp.DisplayName)
	})

	t.Run("should deny non members and foreign user topics", func(t *testing.T) {
		req := require.New(t)

		status, _ := stranger.do(http.MethodPost, "/api/v1/broadcasting/auth", dto.BroadcastAuthRequest{ChannelName: events.ChannelTopic(channel.ID)})
		req.Equal(http.StatusForbidden, status)

		status, _ = stranger.do(http.MethodPost, "/api/v1/broadcasting/auth", dto.BroadcastAuthRequest{ChannelName: "user." + owner.member.ID.String()})
		req.Equal(http.StatusForbidden, status)

		status, _ = stranger.do(http.MethodPost, "/api/v1/broadcasting/auth", dto.BroadcastAuthRequest{ChannelName: "user." + stranger.member.ID.String()})
		req.Equal(http.StatusOK, status)
	})

	t.Run("should reject an empty channel name", func(t *testing.T) {
		req := require.New(t)

		status, _ := owner.do(http.MethodPost, "/api/v1/broadcasting/auth", dto.BroadcastAuthRequest{})
		req.Equal(http.StatusBadRequest, status)
	})
}
