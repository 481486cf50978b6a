package realtime

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"gamelink/protocol"
)

type stompFrame struct {
	command string
	headers map[string]string
	body    string
}

func parseFrames(buf *bytes.Buffer) []stompFrame {
	var out []stompFrame
	for {
		data := buf.Bytes()
		i := bytes.IndexByte(data, 0)
		if i < 0 {
			return out
		}
		raw := strings.TrimLeft(string(data[:i]), "\r\n")
		buf.Next(i + 1)
		if raw == "" {
			continue
		}
		head, body, _ := strings.Cut(raw, "\n\n")
		lines := strings.Split(head, "\n")
		f := stompFrame{command: strings.TrimSpace(lines[0]), headers: map[string]string{}, body: body}
		for _, l := range lines[1:] {
			if k, v, ok := strings.Cut(strings.TrimRight(l, "\r"), ":"); ok {
				if _, seen := f.headers[k]; !seen {
					f.headers[k] = v
				}
			}
		}
		out = append(out, f)
	}
}

func writeFrame(ws *websocket.Conn, command string, headers [][2]string, body string) error {
	var b strings.Builder
	b.WriteString(command + "\n")
	for _, h := range headers {
		b.WriteString(h[0] + ":" + h[1] + "\n")
	}
	b.WriteString("\n" + body + "\x00")
	return ws.WriteMessage(websocket.TextMessage, []byte(b.String()))
}

// stompServer 最小 STOMP over WebSocket 服务端：应答握手与回执，订阅后推送一条消息
type stompServer struct {
	handshake chan http.Header
	query     chan string
	connect   chan stompFrame
	sends     chan stompFrame
	push      string
}

func (s *stompServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handshake <- r.Header.Clone()
	s.query <- r.URL.Query().Get("token")

	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ws, err := up.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer ws.Close()

	var buf bytes.Buffer
	for {
		_, msg, err := ws.ReadMessage()
		if err != nil {
			return
		}
		buf.Write(msg)
		for _, f := range parseFrames(&buf) {
			switch f.command {
			case "CONNECT", "STOMP":
				s.connect <- f
				_ = writeFrame(ws, "CONNECTED", [][2]string{{"version", "1.2"}, {"heart-beat", "0,0"}}, "")
			case "SUBSCRIBE":
				_ = writeFrame(ws, "MESSAGE", [][2]string{
					{"destination", f.headers["destination"]},
					{"subscription", f.headers["id"]},
					{"message-id", "m-1"},
					{"content-type", "application/json"},
				}, s.push)
			case "SEND":
				s.sends <- f
			}
			if r := f.headers["receipt"]; r != "" {
				_ = writeFrame(ws, "RECEIPT", [][2]string{{"receipt-id", r}}, "")
			}
			if f.command == "DISCONNECT" {
				return
			}
		}
	}
}

func TestStompDialer_EndToEnd(t *testing.T) {
	srv := &stompServer{
		handshake: make(chan http.Header, 4),
		query:     make(chan string, 4),
		connect:   make(chan stompFrame, 4),
		sends:     make(chan stompFrame, 16),
		push:      `{"type":"TURN_CHANGED","gameId":5,"data":{"currentTurn":2,"currentPlayerId":9}}`,
	}
	hs := httptest.NewServer(srv)
	defer hs.Close()

	dialer := &StompDialer{URL: "ws" + strings.TrimPrefix(hs.URL, "http") + "/ws/game/websocket"}
	sock := NewGameSocket(dialer, WithHeartbeat(0))
	defer sock.Disconnect()

	got := make(chan protocol.Event, 4)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sock.Connect(ctx, "tok", Callbacks{
		OnMessage: func(_ protocol.Envelope, ev protocol.Event) { got <- ev },
	}))

	require.Equal(t, "Bearer tok", (<-srv.handshake).Get("Authorization"))
	require.Equal(t, "tok", <-srv.query)
	connect := <-srv.connect
	require.Equal(t, "Bearer tok", connect.headers["Authorization"])
	require.Equal(t, "tok", connect.headers["token"])

	require.NoError(t, sock.SubscribeToGame(5))

	select {
	case f := <-srv.sends:
		require.Equal(t, "/app/game/5/sync", f.headers["destination"])
		require.Equal(t, "{}", f.body)
	case <-time.After(5 * time.Second):
		t.Fatal("sync request not received")
	}

	select {
	case ev := <-got:
		require.Equal(t, protocol.TurnChanged{CurrentTurn: 2, CurrentPlayerID: 9}, ev)
	case <-time.After(5 * time.Second):
		t.Fatal("topic message not delivered")
	}

	sock.RollDice(5)
	select {
	case f := <-srv.sends:
		require.Equal(t, "/app/game/5/roll-dice", f.headers["destination"])
	case <-time.After(5 * time.Second):
		t.Fatal("roll-dice not received")
	}
}
