package chathub_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"pairchat/backend/internal/chathub"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func createTestHub(t *testing.T, store *MockStore) *chathub.ManagerService {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	hub := chathub.NewManagerService(log)
	engine := chathub.NewEngine(store, hub, chathub.Options{Log: log})
	hub.SetEngine(engine)

	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)
	t.Cleanup(func() {
		cancel()
		engine.Shutdown()
	})
	return hub
}

func receive(t *testing.T, c *MockClient) models.ChatMessage {
	t.Helper()
	select {
	case msg := <-c.RecvChannel:
		return msg
	case <-time.After(time.Second):
		t.Fatalf("client %s received nothing", c.GetUserID())
		return models.ChatMessage{}
	}
}

// pairedClients registers two compatible clients and consumes their match events.
func pairedClients(t *testing.T, hub *chathub.ManagerService, store *MockStore) (*MockClient, *MockClient) {
	t.Helper()
	store.expectUser("user_A", models.GenderMale, models.GenderFemale)
	store.expectUser("user_B", models.GenderFemale, models.GenderMale)
	clientA := newMockClient("conn_A", "user_A")
	clientB := newMockClient("conn_B", "user_B")

	hub.RegisterCh <- clientA
	assert.Equal(t, models.TypeSearching, receive(t, clientA).Type)
	hub.RegisterCh <- clientB

	startedA := receive(t, clientA)
	startedB := receive(t, clientB)
	require.Equal(t, models.TypeSessionStarted, startedA.Type)
	require.Equal(t, models.TypeSessionStarted, startedB.Type)
	require.Equal(t, startedA.RoomID, startedB.RoomID)
	return clientA, clientB
}

// TestManager_RegisterPairsClients verifies that connecting enqueues the user.
func TestManager_RegisterPairsClients(t *testing.T) {
	// Arrange
	store := new(MockStore)
	hub := createTestHub(t, store)

	// Act
	pairedClients(t, hub, store)

	// Assert
	assert.Equal(t, 1, hub.Engine.Stats().Sessions)
	store.AssertExpectations(t)
}

func TestManager_RelaysIncomingText(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	_, clientB := pairedClients(t, hub, store)

	hub.IncomingCh <- models.ChatMessage{Type: models.TypeMessage, SenderID: "user_A", Content: "hi"}

	got := receive(t, clientB)
	assert.Equal(t, models.TypeMessage, got.Type)
	assert.Equal(t, "hi", got.Content)
	assert.Equal(t, "user_A", got.SenderID)
}

func TestManager_BlankTextIsIgnored(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	_, clientB := pairedClients(t, hub, store)

	hub.IncomingCh <- models.ChatMessage{Type: models.TypeMessage, SenderID: "user_A", Content: "   "}
	hub.IncomingCh <- models.ChatMessage{Type: models.TypeMessage, SenderID: "user_A", Content: "after"}

	assert.Equal(t, "after", receive(t, clientB).Content)
}

func TestManager_CloseChatRoom(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	clientA, clientB := pairedClients(t, hub, store)

	hub.IncomingCh <- models.ChatMessage{Type: models.TypeCloseChatRoom, SenderID: "user_B"}

	for _, c := range []*MockClient{clientA, clientB} {
		got := receive(t, c)
		assert.Equal(t, models.TypeSessionClosed, got.Type)
		assert.Equal(t, "user_B", got.SenderID)
	}

	// A message after close is acknowledged, not relayed.
	hub.IncomingCh <- models.ChatMessage{Type: models.TypeMessage, SenderID: "user_A", Content: "still there?"}
	ack := receive(t, clientA)
	assert.Equal(t, models.TypeSystemInfo, ack.Type)
	assert.Equal(t, chathub.NoticeNotInChat, ack.Content)
	assert.Empty(t, clientB.drain())
}

func TestManager_UnregisterNotifiesPartner(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	clientA, clientB := pairedClients(t, hub, store)

	hub.UnregisterCh <- clientA

	got := receive(t, clientB)
	assert.Equal(t, models.TypePartnerDisconnected, got.Type)
	assert.Equal(t, 1, clientA.CloseCount())
	_, stillThere := hub.Client("conn_A")
	assert.False(t, stillThere)
	assert.Equal(t, chathub.StateGraceWindow, hub.Engine.State("user_B"))
}

func TestManager_RejectsUnregisteredUser(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	store.On("GetPreferences", mock.Anything, "ghost").Return(nil, storage.ErrNotFound)
	client := newMockClient("conn_ghost", "ghost")

	hub.RegisterCh <- client

	got := receive(t, client)
	assert.Equal(t, models.TypeError, got.Type)
	assert.Equal(t, chathub.NoticeNotRegistered, got.Content)
	assert.Eventually(t, func() bool { return client.CloseCount() == 1 }, time.Second, 10*time.Millisecond)
	_, ok := hub.Client("conn_ghost")
	assert.False(t, ok)
}

func TestManager_RejectsSecondConnection(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	pairedClients(t, hub, store)
	dup := newMockClient("conn_A2", "user_A")

	hub.RegisterCh <- dup

	got := receive(t, dup)
	assert.Equal(t, chathub.NoticeAlreadyConnected, got.Content)
	assert.Equal(t, chathub.StateInSession, hub.Engine.State("user_A"))
}

func TestManager_UnsupportedType(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	clientA, _ := pairedClients(t, hub, store)

	hub.IncomingCh <- models.ChatMessage{Type: "typing", SenderID: "user_A"}

	got := receive(t, clientA)
	assert.Equal(t, models.TypeError, got.Type)
	assert.Equal(t, chathub.NoticeUnsupportedAction, got.Content)
}

func TestManager_Deliver(t *testing.T) {
	store := new(MockStore)
	hub := createTestHub(t, store)
	_, clientB := pairedClients(t, hub, store)

	err := hub.Deliver("user_A", chathub.PictureMessage([]byte("img")))

	require.NoError(t, err)
	got := receive(t, clientB)
	assert.Equal(t, models.TypePicture, got.Type)
	assert.Equal(t, []byte("img"), got.Picture)
}

func TestManager_SendIsNonBlocking(t *testing.T) {
	hub := chathub.NewManagerService(logs.GetLoggerFromLevel(slog.LevelDebug))
	client := newMockClient("conn_1", "user_1")
	require.True(t, hub.AddClient(client))
	assert.False(t, hub.AddClient(client))

	for i := 0; i < cap(client.RecvChannel); i++ {
		require.NoError(t, hub.Send("conn_1", models.ChatMessage{Type: models.TypeMessage}))
	}

	assert.ErrorIs(t, hub.Send("conn_1", models.ChatMessage{Type: models.TypeMessage}), chathub.ErrSendBufferFull)
	assert.ErrorIs(t, hub.Send("conn_missing", models.ChatMessage{}), chathub.ErrUnknownConnection)
}
