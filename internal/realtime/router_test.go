package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hhusein-alt/BookShelvz-sub001/pkg/protocol"
)

type routerFixture struct {
	registry  *Registry
	directory *Directory
	router    *Router
}

func newRouterFixture() *routerFixture {
	registry := NewRegistry()
	directory := NewDirectory()
	logger := testLogger()
	broadcaster := NewBroadcaster(registry, directory, logger)

	return &routerFixture{
		registry:  registry,
		directory: directory,
		router:    NewRouter(directory, broadcaster, nil, logger),
	}
}

func (f *routerFixture) connect() (string, *mockHandle) {
	h := newMockHandle()
	return register(f.registry, h), h
}

func decodeSent(t *testing.T, data []byte) protocol.Frame {
	t.Helper()
	frame, err := protocol.DecodeOutbound(data)
	require.NoError(t, err)
	return frame
}

func TestRouter_MalformedFrame(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "not json at all"},
		{name: "json array", raw: `[1,2,3]`},
		{name: "missing type", raw: `{"room":"r1"}`},
		{name: "join without room", raw: `{"type":"join"}`},
		{name: "message without room", raw: `{"type":"message","message":"hi"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newRouterFixture()
			senderID, sender := f.connect()
			otherID, other := f.connect()
			f.directory.Join(otherID, "r1")

			f.router.Handle(senderID, []byte(tt.raw))

			sent := sender.getSent()
			require.Len(t, sent, 1, "sender gets exactly one error frame")

			frame := decodeSent(t, sent[0])
			errFrame, ok := frame.(protocol.Error)
			require.True(t, ok)
			assert.Equal(t, "Invalid message format", errFrame.Message)

			assert.Empty(t, other.getSent(), "no broadcast to anyone else")
			assert.True(t, sender.IsOpen(), "connection stays open")
		})
	}
}

func TestRouter_UnknownTypeSilentlyDropped(t *testing.T) {
	f := newRouterFixture()
	senderID, sender := f.connect()

	f.router.Handle(senderID, []byte(`{"type":"teleport","room":"r1"}`))

	assert.Empty(t, sender.getSent(), "no error frame for unknown types")
}

func TestRouter_JoinNotifiesRoomIncludingJoiner(t *testing.T) {
	f := newRouterFixture()
	firstID, first := f.connect()
	secondID, second := f.connect()

	f.router.Handle(firstID, []byte(`{"type":"join","room":"book:42"}`))
	f.router.Handle(secondID, []byte(`{"type":"join","room":"book:42"}`))

	assert.ElementsMatch(t, []string{firstID, secondID}, f.directory.MembersOf("book:42"))

	// First member saw both join notices, the second only its own.
	require.Len(t, first.getSent(), 2)
	require.Len(t, second.getSent(), 1)

	notice, ok := decodeSent(t, second.getSent()[0]).(protocol.Room)
	require.True(t, ok)
	assert.Equal(t, protocol.ActionJoin, notice.Action)
	assert.Equal(t, secondID, notice.ClientID)
	assert.Positive(t, notice.Timestamp)
}

func TestRouter_DuplicateJoinNotifiesOnce(t *testing.T) {
	f := newRouterFixture()
	id, h := f.connect()

	f.router.Handle(id, []byte(`{"type":"join","room":"r1"}`))
	f.router.Handle(id, []byte(`{"type":"join","room":"r1"}`))

	assert.Len(t, h.getSent(), 1)
	assert.ElementsMatch(t, []string{id}, f.directory.MembersOf("r1"))
}

func TestRouter_LeaveNotifiesRemainingMembers(t *testing.T) {
	f := newRouterFixture()
	leaverID, leaver := f.connect()
	stayerID, stayer := f.connect()

	f.router.Join(leaverID, "r1")
	f.router.Join(stayerID, "r1")

	f.router.Handle(leaverID, []byte(`{"type":"leave","room":"r1"}`))

	assert.ElementsMatch(t, []string{stayerID}, f.directory.MembersOf("r1"))

	// leaver: own join notice + stayer's join notice, nothing for the leave.
	assert.Len(t, leaver.getSent(), 2)

	// stayer: own join notice + leave notice.
	sent := stayer.getSent()
	require.Len(t, sent, 2)
	notice, ok := decodeSent(t, sent[1]).(protocol.Room)
	require.True(t, ok)
	assert.Equal(t, protocol.ActionLeave, notice.Action)
	assert.Equal(t, leaverID, notice.ClientID)
}

func TestRouter_MessageFansOutToMembersIncludingSender(t *testing.T) {
	f := newRouterFixture()
	senderID, sender := f.connect()
	memberID, member := f.connect()
	_, outsider := f.connect()

	f.router.Join(senderID, "book:42")
	f.router.Join(memberID, "book:42")

	f.router.Handle(senderID, []byte(`{"type":"message","room":"book:42","message":"hi"}`))

	for name, h := range map[string]*mockHandle{"sender": sender, "member": member} {
		sent := h.getSent()
		require.NotEmpty(t, sent, name)
		msg, ok := decodeSent(t, sent[len(sent)-1]).(protocol.Message)
		require.True(t, ok, name)
		assert.Equal(t, senderID, msg.ClientID, name)
		assert.Equal(t, json.RawMessage(`"hi"`), msg.Message, name)
		assert.Positive(t, msg.Timestamp, name)
	}

	assert.Empty(t, outsider.getSent())
}

func TestRouter_MessageToUnjoinedRoomReachesNobody(t *testing.T) {
	f := newRouterFixture()
	senderID, sender := f.connect()

	f.router.Handle(senderID, []byte(`{"type":"message","room":"empty","message":"hi"}`))

	assert.Empty(t, sender.getSent())
}
