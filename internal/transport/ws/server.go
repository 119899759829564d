package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelcore.ai/internal/chunkserver"
	"voxelcore.ai/internal/protocol"
	"voxelcore.ai/internal/sim/voxel"
)

const defaultMaxInflight = 8

type Server struct {
	chunks *chunkserver.Server
	log    *log.Logger

	upgrader websocket.Upgrader
	sessions atomic.Uint64
}

func NewServer(chunks *chunkserver.Server, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		chunks: chunks,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		session, maxInflight, ok := s.handshake(conn)
		if !ok {
			return
		}
		s.log.Printf("session %s connected from %s", session, r.RemoteAddr)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, maxInflight)
		sem := make(chan struct{}, maxInflight)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeChunkReq {
				continue
			}
			var req protocol.ChunkReqMsg
			if err := json.Unmarshal(msg, &req); err != nil {
				continue
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
			go func() {
				defer func() { <-sem }()
				b, err := json.Marshal(s.serve(ctx, req))
				if err != nil {
					return
				}
				select {
				case out <- b:
				case <-ctx.Done():
				}
			}()
		}
		s.log.Printf("session %s closed", session)
	}
}

func (s *Server) serve(ctx context.Context, req protocol.ChunkReqMsg) protocol.ChunkMsg {
	resp := protocol.ChunkMsg{
		Type:            protocol.TypeChunk,
		ProtocolVersion: protocol.Version,
		ID:              req.ID,
		Pos:             req.Pos,
	}
	if req.ProtocolVersion != protocol.Version {
		resp.Code = protocol.ErrProtoVersion
		resp.Message = fmt.Sprintf("protocol_version %q, server speaks %q", req.ProtocolVersion, protocol.Version)
		return resp
	}
	p, err := s.chunks.Fetch(ctx, voxel.ChunkPos{X: req.Pos[0], Y: req.Pos[1], Z: req.Pos[2]})
	if err != nil {
		resp.Code = chunkserver.ErrorCode(err)
		resp.Message = err.Error()
		return resp
	}
	resp.Size = len(p.Data)
	resp.Payload = p.Data
	resp.Digest = p.Digest
	return resp
}

func (s *Server) handshake(conn *websocket.Conn) (session string, maxInflight int, ok bool) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", 0, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", 0, false
	}
	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", 0, false
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", 0, false
	}

	maxInflight = hello.MaxInflight
	if maxInflight <= 0 {
		maxInflight = defaultMaxInflight
	}
	if maxInflight > 64 {
		maxInflight = 64
	}

	session = fmt.Sprintf("S%d", s.sessions.Add(1))
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       session,
		WorldParams:     s.chunks.Params(),
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(welcome); err != nil {
		return "", 0, false
	}
	return session, maxInflight, true
}
