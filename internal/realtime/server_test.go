package realtime

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhusein-alt/BookShelvz-sub001/internal/config"
	"github.com/hhusein-alt/BookShelvz-sub001/internal/logging"
	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

func startServer(t *testing.T) (*Server, string) {
	t.Helper()

	s := NewServer(config.Default().Realtime, testLogger(), nil)
	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})

	return s, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialWS(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { ws.Close() })
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) protocol.Frame {
	t.Helper()

	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)

	frame, err := protocol.DecodeOutbound(data)
	require.NoError(t, err)
	return frame
}

func readAck(t *testing.T, ws *websocket.Conn) string {
	t.Helper()

	ack, ok := readFrame(t, ws).(protocol.Connection)
	require.True(t, ok, "first frame must be the connection ack")
	require.Equal(t, protocol.StatusConnected, ack.Status)
	require.NotEmpty(t, ack.ClientID)
	return ack.ClientID
}

func sendJSON(t *testing.T, ws *websocket.Conn, payload string) {
	t.Helper()
	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(payload)))
}

func TestServer_ConnectionAck(t *testing.T) {
	s, url := startServer(t)
	ws := dialWS(t, url)

	id := readAck(t, ws)
	assert.NotEmpty(t, id)

	rooms, connections := s.Stats()
	assert.Equal(t, 0, rooms)
	assert.Equal(t, 1, connections)
}

func TestServer_JoinThenMessageEndToEnd(t *testing.T) {
	_, url := startServer(t)

	first := dialWS(t, url)
	firstID := readAck(t, first)

	second := dialWS(t, url)
	secondID := readAck(t, second)

	sendJSON(t, first, `{"type":"join","room":"book:42"}`)
	notice, ok := readFrame(t, first).(protocol.Room)
	require.True(t, ok)
	assert.Equal(t, protocol.ActionJoin, notice.Action)
	assert.Equal(t, firstID, notice.ClientID)
	assert.Positive(t, notice.Timestamp)

	sendJSON(t, second, `{"type":"join","room":"book:42"}`)

	// Both members see the second join, the joiner included.
	for _, ws := range []*websocket.Conn{first, second} {
		notice, ok := readFrame(t, ws).(protocol.Room)
		require.True(t, ok)
		assert.Equal(t, protocol.ActionJoin, notice.Action)
		assert.Equal(t, secondID, notice.ClientID)
	}

	sendJSON(t, second, `{"type":"message","room":"book:42","message":"hi"}`)

	for _, ws := range []*websocket.Conn{first, second} {
		msg, ok := readFrame(t, ws).(protocol.Message)
		require.True(t, ok)
		assert.Equal(t, secondID, msg.ClientID)
		assert.Equal(t, json.RawMessage(`"hi"`), msg.Message)
		assert.Positive(t, msg.Timestamp)
	}
}

func TestServer_MalformedPayloadAnsweredOnce(t *testing.T) {
	_, url := startServer(t)

	sender := dialWS(t, url)
	readAck(t, sender)

	witness := dialWS(t, url)
	witnessID := readAck(t, witness)
	sendJSON(t, witness, `{"type":"join","room":"r1"}`)
	readFrame(t, witness) // own join notice

	sendJSON(t, sender, `this is not json`)

	errFrame, ok := readFrame(t, sender).(protocol.Error)
	require.True(t, ok)
	assert.Equal(t, "Invalid message format", errFrame.Message)

	// The connection survives; a valid join still works and nothing was
	// broadcast to the witness beyond its own membership notices.
	sendJSON(t, sender, `{"type":"join","room":"r1"}`)
	joinNotice, ok := readFrame(t, sender).(protocol.Room)
	require.True(t, ok)
	assert.Equal(t, protocol.ActionJoin, joinNotice.Action)

	witnessNotice, ok := readFrame(t, witness).(protocol.Room)
	require.True(t, ok)
	assert.NotEqual(t, witnessID, witnessNotice.ClientID)
}

func TestServer_DisconnectSweepsRooms(t *testing.T) {
	s, url := startServer(t)

	doomed := dialWS(t, url)
	doomedID := readAck(t, doomed)

	survivor := dialWS(t, url)
	survivorID := readAck(t, survivor)

	sendJSON(t, doomed, `{"type":"join","room":"a"}`)
	sendJSON(t, doomed, `{"type":"join","room":"b"}`)
	sendJSON(t, survivor, `{"type":"join","room":"a"}`)

	require.Eventually(t, func() bool {
		rooms, _ := s.Stats()
		return rooms == 2 && len(s.directory.MembersOf("a")) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// Abrupt close, no leave frames sent.
	doomed.Close()

	require.Eventually(t, func() bool {
		_, connections := s.Stats()
		return connections == 1
	}, 2*time.Second, 10*time.Millisecond)

	assert.ElementsMatch(t, []string{survivorID}, s.directory.MembersOf("a"))
	assert.Empty(t, s.directory.MembersOf("b"))

	rooms, _ := s.Stats()
	assert.Equal(t, 1, rooms, "room b is removed once empty")

	assert.Empty(t, s.directory.RoomsOf(doomedID))

	_, ok := s.registry.Get(doomedID)
	assert.False(t, ok)
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServer_UsesRequestScopedLogger(t *testing.T) {
	var out syncBuffer
	ctxLogger := &logging.Logger{
		Logger: slog.New(slog.NewTextHandler(&out, nil)),
	}

	s := NewServer(config.Default().Realtime, testLogger(), nil)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.ServeHTTP(w, r.WithContext(logging.WithLogger(r.Context(), ctxLogger)))
	}))
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})

	ws := dialWS(t, "ws"+strings.TrimPrefix(ts.URL, "http"))
	id := readAck(t, ws)
	ws.Close()

	// Connection lifecycle logs land on the context logger, tagged with the
	// minted client id.
	require.Eventually(t, func() bool {
		logs := out.String()
		return strings.Contains(logs, "client connected") &&
			strings.Contains(logs, "client_id="+id)
	}, 2*time.Second, 10*time.Millisecond)
}
