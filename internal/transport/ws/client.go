package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/singleflight"

	"voxelcore.ai/internal/chunkserver"
	"voxelcore.ai/internal/protocol"
	"voxelcore.ai/internal/sim/terrain/source"
	"voxelcore.ai/internal/sim/voxel"
)

var ErrClosed = errors.New("chunk client closed")

// RemoteError is a CHUNK response that carried an error code.
type RemoteError struct {
	Pos     voxel.ChunkPos
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote chunk %v: %s: %s", e.Pos, e.Code, e.Message)
}

// Client is the remote server proxy: a Source that fetches chunks from a
// ws.Server over one multiplexed connection. Concurrent requests for the same
// position share one round trip.
type Client struct {
	conn    *websocket.Conn
	log     *log.Logger
	welcome protocol.WelcomeMsg
	timeout time.Duration

	wmu sync.Mutex

	mu      sync.Mutex
	pending map[uint64]chan protocol.ChunkMsg
	err     error

	nextID atomic.Uint64
	flight singleflight.Group
	done   chan struct{}
}

var _ source.Source = (*Client)(nil)

type DialOptions struct {
	Name        string
	MaxInflight int
	// Timeout bounds one request round trip. Zero means 10s.
	Timeout time.Duration
	Logger  *log.Logger
}

func Dial(ctx context.Context, url string, opts DialOptions) (*Client, error) {
	if opts.Name == "" {
		opts.Name = "client"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard, "", 0)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      opts.Name,
		MaxInflight:     opts.MaxInflight,
	}
	if err := conn.WriteJSON(hello); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(opts.Timeout))
	var welcome protocol.WelcomeMsg
	if err := conn.ReadJSON(&welcome); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	if welcome.Type != protocol.TypeWelcome || welcome.ProtocolVersion != protocol.Version {
		_ = conn.Close()
		return nil, fmt.Errorf("unexpected handshake reply type=%q version=%q", welcome.Type, welcome.ProtocolVersion)
	}
	_ = conn.SetReadDeadline(time.Time{})

	c := &Client{
		conn:    conn,
		log:     opts.Logger,
		welcome: welcome,
		timeout: opts.Timeout,
		pending: map[uint64]chan protocol.ChunkMsg{},
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }

func (c *Client) Close() error {
	c.wmu.Lock()
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	c.wmu.Unlock()
	err := c.conn.Close()
	<-c.done
	return err
}

func (c *Client) LoadChunk(ctx context.Context, ch voxel.Chunk) error {
	p, err := c.Fetch(ctx, ch.Pos())
	if err != nil {
		return err
	}
	return chunkserver.Apply(p, ch.Data())
}

// Fetch returns the encoded chunk at p. The returned payload is shared with
// other callers and must not be modified.
func (c *Client) Fetch(ctx context.Context, p voxel.ChunkPos) (chunkserver.Payload, error) {
	res := c.flight.DoChan(p.String(), func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		return c.roundTrip(rctx, p)
	})
	select {
	case r := <-res:
		if r.Err != nil {
			return chunkserver.Payload{}, r.Err
		}
		return r.Val.(chunkserver.Payload), nil
	case <-ctx.Done():
		return chunkserver.Payload{}, ctx.Err()
	}
}

func (c *Client) roundTrip(ctx context.Context, p voxel.ChunkPos) (chunkserver.Payload, error) {
	id := c.nextID.Add(1)
	reply := make(chan protocol.ChunkMsg, 1)

	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return chunkserver.Payload{}, c.err
	}
	c.pending[id] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	req := protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Pos:             [3]int{p.X, p.Y, p.Z},
	}
	c.wmu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	err := c.conn.WriteJSON(req)
	c.wmu.Unlock()
	if err != nil {
		return chunkserver.Payload{}, fmt.Errorf("send CHUNK_REQ: %w", err)
	}

	select {
	case msg := <-reply:
		if msg.Code != "" {
			return chunkserver.Payload{}, &RemoteError{Pos: p, Code: msg.Code, Message: msg.Message}
		}
		if msg.Size != len(msg.Payload) {
			return chunkserver.Payload{}, fmt.Errorf("chunk %v: size %d but %d payload bytes", p, msg.Size, len(msg.Payload))
		}
		return chunkserver.Payload{Pos: p, Data: msg.Payload, Digest: msg.Digest}, nil
	case <-c.done:
		return chunkserver.Payload{}, c.closedErr()
	case <-ctx.Done():
		return chunkserver.Payload{}, ctx.Err()
	}
}

func (c *Client) readLoop() {
	defer close(c.done)
	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrClosed, err)
			c.mu.Unlock()
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeChunk {
			continue
		}
		var chunk protocol.ChunkMsg
		if err := json.Unmarshal(msg, &chunk); err != nil {
			c.log.Printf("bad CHUNK message: %v", err)
			continue
		}
		c.mu.Lock()
		reply := c.pending[chunk.ID]
		c.mu.Unlock()
		if reply != nil {
			reply <- chunk
		}
	}
}

func (c *Client) closedErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}
