package realtime

import (
	"log"
	"sync"

	"github.com/go-multichat/server/internal/database"
	"github.com/go-multichat/server/internal/stats"
)

type broadcastReq struct {
	chatId int
	event  *Event
}

// Hub fans chat events out to subscribed websocket clients. All
// subscription state is owned by the run loop; the only shared state is
// the client set, which Shutdown reads to close connections.
type Hub struct {
	log             *log.Logger
	db              database.ChatRepository
	stats           stats.StatsProvider
	clients         map[*Client]struct{}
	clientsLock     sync.Mutex
	subscriptions   map[int]map[*Client]struct{}
	RegisterChan    chan *Client
	deRegisterChan  chan *Client
	subscribeChan   chan *ClientMessage
	unsubscribeChan chan *ClientMessage
	broadcastChan   chan *broadcastReq
	stop            chan struct{}
	done            chan struct{}
}

func NewHub(logger *log.Logger, db database.ChatRepository, st stats.StatsProvider) *Hub {
	return &Hub{
		log:             logger,
		db:              db,
		stats:           st,
		clients:         make(map[*Client]struct{}),
		subscriptions:   make(map[int]map[*Client]struct{}),
		RegisterChan:    make(chan *Client),
		deRegisterChan:  make(chan *Client),
		subscribeChan:   make(chan *ClientMessage, 256),
		unsubscribeChan: make(chan *ClientMessage, 256),
		broadcastChan:   make(chan *broadcastReq, 256),
		stop:            make(chan struct{}),
		done:            make(chan struct{}),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.RegisterChan:
			h.log.Printf("adding connection from %q", client.user.Username)
			h.addClient(client)
			h.stats.Incr(stats.ActiveConnections)
		case client := <-h.deRegisterChan:
			h.log.Printf("removing connection from %q", client.user.Username)
			h.removeClient(client)
			for _, subs := range h.subscriptions {
				delete(subs, client)
			}
			h.stats.Decr(stats.ActiveConnections)
		case msg := <-h.subscribeChan:
			h.subscribe(msg)
		case msg := <-h.unsubscribeChan:
			h.unsubscribe(msg)
		case req := <-h.broadcastChan:
			for client := range h.subscriptions[req.chatId] {
				client.queueMessage(&ServerMessage{
					BaseMessage: BaseMessage{Timestamp: Now()},
					Event:       req.event,
				})
			}
			h.stats.Incr(stats.EventsPublished)
		case <-h.stop:
			h.clientsLock.Lock()
			for client := range h.clients {
				close(client.stop)
			}
			h.clientsLock.Unlock()

			close(h.done)
			return
		}
	}
}

// Broadcast hands an event to the run loop without blocking the caller.
// Events are dropped when the hub is saturated; clients recover state
// through the history endpoints.
func (h *Hub) Broadcast(chatId int, event *Event) {
	select {
	case h.broadcastChan <- &broadcastReq{chatId: chatId, event: event}:
	default:
		h.log.Printf("broadcast channel full, dropping %s event for chat %d", event.Type, chatId)
	}
}

// deregister hands a client back to the run loop, or drops it when the
// hub has already shut down.
func (h *Hub) deregister(c *Client) {
	select {
	case h.deRegisterChan <- c:
	case <-h.done:
	}
}

func (h *Hub) subscribe(msg *ClientMessage) {
	chatId := msg.Subscribe.ChatId

	// Only members may listen in on a chat.
	if !h.db.IsChatMember(chatId, msg.UserId) {
		msg.client.queueMessage(ErrNotChatMember(msg.Id))
		return
	}

	subs, ok := h.subscriptions[chatId]
	if !ok {
		subs = make(map[*Client]struct{})
		h.subscriptions[chatId] = subs
	}
	subs[msg.client] = struct{}{}

	msg.client.queueMessage(NoErrOK(msg.Id))
}

func (h *Hub) unsubscribe(msg *ClientMessage) {
	chatId := msg.Unsubscribe.ChatId
	if subs, ok := h.subscriptions[chatId]; ok {
		delete(subs, msg.client)
		if len(subs) == 0 {
			delete(h.subscriptions, chatId)
		}
	}

	msg.client.queueMessage(NoErrOK(msg.Id))
}

func (h *Hub) addClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) removeClient(c *Client) {
	h.clientsLock.Lock()
	defer h.clientsLock.Unlock()
	delete(h.clients, c)
}

func (h *Hub) Shutdown() {
	close(h.stop)
	<-h.done
}
