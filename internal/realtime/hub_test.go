package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/stats"
	"github.com/go-multichat/server/internal/testutil"
	"github.com/go-multichat/server/internal/types"
)

func newTestHub(t *testing.T, repo *database.MockChatRepository) *Hub {
	t.Helper()

	st := &stats.MockStatsUpdater{}
	st.On("Incr", mock.Anything).Maybe()
	st.On("Decr", mock.Anything).Maybe()

	h := NewHub(testutil.TestLogger(t), repo, st)
	go h.Run()
	t.Cleanup(h.Shutdown)

	return h
}

func receiveMessage(t *testing.T, c *Client) *ServerMessage {
	t.Helper()

	select {
	case msg := <-c.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server message")
		return nil
	}
}

func TestSubscribeRequiresMembership(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)

	repo.On("IsChatMember", 1, 7).Return(false).Once()

	h := newTestHub(t, repo)

	client := NewClient(types.User{Id: 7, Username: "user"}, nil, h, testutil.TestLogger(t))
	h.RegisterChan <- client

	h.subscribeChan <- &ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Subscribe:   &Subscribe{ChatId: 1},
		UserId:      7,
		client:      client,
	}

	msg := receiveMessage(t, client)
	require.NotNil(t, msg.Response, "expected a response frame")
	assert.Equal(t, 403, msg.Response.ResponseCode, "expected subscription denied")
}

func TestSubscribeAndBroadcast(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)

	repo.On("IsChatMember", 1, 7).Return(true).Once()

	h := newTestHub(t, repo)

	client := NewClient(types.User{Id: 7, Username: "user"}, nil, h, testutil.TestLogger(t))
	h.RegisterChan <- client

	h.subscribeChan <- &ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Subscribe:   &Subscribe{ChatId: 1},
		UserId:      7,
		client:      client,
	}

	ack := receiveMessage(t, client)
	require.NotNil(t, ack.Response, "expected subscription ack")
	assert.Equal(t, 200, ack.Response.ResponseCode, "expected subscription granted")

	h.Broadcast(1, &Event{
		Type:    EventMessageCreated,
		ChatId:  1,
		Message: &types.Message{Id: 5, ChatId: 1, Content: "hello"},
	})

	ev := receiveMessage(t, client)
	require.NotNil(t, ev.Event, "expected an event frame")
	assert.Equal(t, EventMessageCreated, ev.Event.Type, "expected message event")
	assert.Equal(t, "hello", ev.Event.Message.Content, "expected message payload")
}

func TestBroadcastSkipsOtherChats(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)

	repo.On("IsChatMember", 1, 7).Return(true).Once()

	h := newTestHub(t, repo)

	client := NewClient(types.User{Id: 7, Username: "user"}, nil, h, testutil.TestLogger(t))
	h.RegisterChan <- client

	h.subscribeChan <- &ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Subscribe:   &Subscribe{ChatId: 1},
		UserId:      7,
		client:      client,
	}
	receiveMessage(t, client)

	h.Broadcast(2, &Event{Type: EventMessageCreated, ChatId: 2})

	select {
	case msg := <-client.send:
		t.Fatalf("expected no delivery for other chat, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestDeregisterAfterShutdown(t *testing.T) {
	repo := &database.MockChatRepository{}

	st := &stats.MockStatsUpdater{}
	st.On("Incr", mock.Anything).Maybe()
	st.On("Decr", mock.Anything).Maybe()

	h := NewHub(testutil.TestLogger(t), repo, st)
	go h.Run()

	client := NewClient(types.User{Id: 7, Username: "user"}, nil, h, testutil.TestLogger(t))
	h.RegisterChan <- client

	h.Shutdown()

	// A read pump exiting after shutdown must not hang on its
	// deregistration handoff.
	finished := make(chan struct{})
	go func() {
		h.deregister(client)
		close(finished)
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("deregistration blocked after shutdown")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	repo := &database.MockChatRepository{}
	defer repo.AssertExpectations(t)

	repo.On("IsChatMember", 1, 7).Return(true).Once()

	h := newTestHub(t, repo)

	client := NewClient(types.User{Id: 7, Username: "user"}, nil, h, testutil.TestLogger(t))
	h.RegisterChan <- client

	h.subscribeChan <- &ClientMessage{
		BaseMessage: BaseMessage{Id: 1},
		Subscribe:   &Subscribe{ChatId: 1},
		UserId:      7,
		client:      client,
	}
	receiveMessage(t, client)

	h.unsubscribeChan <- &ClientMessage{
		BaseMessage: BaseMessage{Id: 2},
		Unsubscribe: &Unsubscribe{ChatId: 1},
		UserId:      7,
		client:      client,
	}
	receiveMessage(t, client)

	h.Broadcast(1, &Event{Type: EventMessageCreated, ChatId: 1})

	select {
	case msg := <-client.send:
		t.Fatalf("expected no delivery after unsubscribe, got %+v", msg)
	case <-time.After(100 * time.Millisecond):
	}
}
