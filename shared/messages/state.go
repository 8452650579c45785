package messages

// GameState is the coarse match summary the host broadcasts about once a second.
type GameState struct {
	Level      int  `codec:"l"`
	Wave       int  `codec:"w"`
	BossActive bool `codec:"b"`
	BossIndex  int  `codec:"bi"`
}

// Coin is one collectible in a coin-sync frame.
type Coin struct {
	ID string `codec:"id"`
	X  int    `codec:"x"`
	Y  int    `codec:"y"`
}

// BossState is the payload of a boss-sync frame.
type BossState struct {
	ID        string `codec:"id"`
	X         int    `codec:"x"`
	Y         int    `codec:"y"`
	Health    int    `codec:"hp"`
	MaxHealth int    `codec:"mhp"`
	Phase     int    `codec:"ph"`
	Anim      string `codec:"an"`
	FlipX     bool   `codec:"f"`
}

// Ping is sent by a client to probe the host clock.
type Ping struct {
	ClientTime float64 `codec:"ct"`
}

// Pong answers a Ping, echoing the client time alongside the host time. Peer
// is the id the host files the sender's player under.
type Pong struct {
	ClientTime float64 `codec:"ct"`
	ServerTime float64 `codec:"st"`
	Peer       string  `codec:"p,omitempty"`
}

// WireFrame wraps one encoded frame for routing through the websocket router.
// Data is the exact byte layout produced by the protocol package.
type WireFrame struct {
	Data []byte
}
