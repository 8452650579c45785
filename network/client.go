package network

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/automoto/kringsringen-sync/shared/messages"
	"github.com/automoto/kringsringen-sync/shared/protocol"
	"github.com/coder/websocket"
	"github.com/leap-fish/necs/router"
	"github.com/leap-fish/necs/transports"
)

type ClientState int

const (
	StateDisconnected ClientState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ClientState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	}
	return "unknown"
}

var ErrNotConnected = errors.New("not connected")

// Client is the websocket link to the host. Inbound frames are pushed into the
// inbox for the Session to apply on its next tick; Send implements Sender.
// All shared fields are protected by mu (router callbacks run on necs goroutines).
type Client struct {
	mu sync.RWMutex

	state     ClientState
	lastError error
	conn      *websocket.Conn
	inbox     *protocol.Inbox
}

func NewClient(inbox *protocol.Inbox) *Client {
	return &Client{state: StateDisconnected, inbox: inbox}
}

// Connect dials the host in a background goroutine.
func (c *Client) Connect(address string) {
	c.mu.Lock()
	c.state = StateConnecting
	c.lastError = nil
	c.mu.Unlock()

	router.OnConnect(func(_ *router.NetworkClient) {
		log.Println("[client] connected to host")
		c.mu.Lock()
		c.state = StateConnected
		c.mu.Unlock()
	})

	router.On(func(_ *router.NetworkClient, msg messages.WireFrame) {
		if !c.inbox.Push(HostPeer, msg.Data) {
			log.Printf("[client] inbox full, dropped %d bytes", len(msg.Data))
		}
	})

	router.OnDisconnect(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] disconnected: %v", err)
		c.mu.Lock()
		if c.state != StateError {
			c.state = StateDisconnected
		}
		c.conn = nil
		c.mu.Unlock()
	})

	router.OnError(func(_ *router.NetworkClient, err error) {
		log.Printf("[client] error: %v", err)
	})

	go func() {
		transport := transports.NewWsClientTransport("ws://" + address)
		err := transport.Start(func(conn *websocket.Conn) {
			c.mu.Lock()
			c.conn = conn
			c.mu.Unlock()
		})
		if err != nil {
			c.setError(fmt.Errorf("connection failed: %w", err))
		}
	}()
}

func (c *Client) Disconnect() {
	c.mu.Lock()
	conn := c.conn
	c.state = StateDisconnected
	c.conn = nil
	c.mu.Unlock()

	if conn != nil {
		_ = conn.CloseNow()
	}

	router.ResetRouter()
}

func (c *Client) State() ClientState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Client) LastError() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastError
}

// Send writes one encoded frame. The websocket is ordered and reliable, so
// the reliable hint needs no special handling.
func (c *Client) Send(data []byte, _ bool) error {
	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	payload, err := router.Serialize(messages.WireFrame{Data: data})
	if err != nil {
		return fmt.Errorf("serialize: %w", err)
	}

	return conn.Write(context.Background(), websocket.MessageBinary, payload)
}

func (c *Client) setError(err error) {
	c.mu.Lock()
	c.state = StateError
	c.lastError = err
	c.mu.Unlock()
}
