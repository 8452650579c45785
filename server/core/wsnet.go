package core

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/protocol"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
	"github.com/remeh/sizedwaitgroup"
)

var ErrUnknownPeer = errors.New("unknown peer")

// WsTransport carries frames over the necs websocket router. Inbound frames
// and disconnects are queued on the inbox; sends may come from any goroutine.
type WsTransport struct {
	inbox  *protocol.Inbox
	fanOut int

	transport *transports.WsServerTransport

	mu    sync.RWMutex
	peers map[string]*router.NetworkClient
}

func NewWsTransport(inbox *protocol.Inbox, fanOut int) *WsTransport {
	if fanOut < 1 {
		fanOut = 1
	}
	return &WsTransport{
		inbox:  inbox,
		fanOut: fanOut,
		peers:  make(map[string]*router.NetworkClient),
	}
}

// Start registers the router callbacks and serves on port. It blocks.
func (t *WsTransport) Start(port uint) error {
	router.OnConnect(func(client *router.NetworkClient) {
		id := peerID(client)
		t.mu.Lock()
		t.peers[id] = client
		t.mu.Unlock()
		log.Printf("[host] client connected: %s", id)
	})

	router.OnDisconnect(func(client *router.NetworkClient, err error) {
		id := peerID(client)
		if err != nil {
			log.Printf("[host] client %s disconnected with error: %v", id, err)
		} else {
			log.Printf("[host] client %s disconnected", id)
		}
		t.mu.Lock()
		delete(t.peers, id)
		t.mu.Unlock()
		t.inbox.Leave(id)
	})

	router.On(func(client *router.NetworkClient, msg messages.WireFrame) {
		if !t.inbox.Push(peerID(client), msg.Data) {
			log.Printf("[host] inbox full, dropped frame from %s", peerID(client))
		}
	})

	router.OnError(func(client *router.NetworkClient, err error) {
		log.Printf("[host] client error: %v", err)
	})

	t.transport = transports.NewWsServerTransport(port, "", nil)
	return t.transport.Start()
}

// Send writes one frame to peer. Websockets are reliable and ordered, so the
// reliable hint needs no special handling.
func (t *WsTransport) Send(peer string, data []byte, _ bool) error {
	t.mu.RLock()
	client, ok := t.peers[peer]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%s: %w", peer, ErrUnknownPeer)
	}
	return client.SendMessage(messages.WireFrame{Data: data})
}

// Broadcast writes one frame to every connected peer, a bounded number at a
// time, and returns the first error.
func (t *WsTransport) Broadcast(data []byte, _ bool) error {
	t.mu.RLock()
	clients := make([]*router.NetworkClient, 0, len(t.peers))
	for _, c := range t.peers {
		clients = append(clients, c)
	}
	t.mu.RUnlock()

	var (
		errMu    sync.Mutex
		firstErr error
	)
	msg := messages.WireFrame{Data: data}
	swg := sizedwaitgroup.New(t.fanOut)
	for _, c := range clients {
		swg.Add()
		go func(c *router.NetworkClient) {
			defer swg.Done()
			if err := c.SendMessage(msg); err != nil {
				errMu.Lock()
				if firstErr == nil {
					firstErr = fmt.Errorf("send to %s: %w", peerID(c), err)
				}
				errMu.Unlock()
			}
		}(c)
	}
	swg.Wait()
	return firstErr
}

// Peers returns the number of connected peers.
func (t *WsTransport) Peers() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.peers)
}

func peerID(c *router.NetworkClient) string {
	return fmt.Sprint(c.Id())
}
