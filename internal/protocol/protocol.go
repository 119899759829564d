// Package protocol defines the JSON messages a chunk client and a chunk server
// exchange over websocket.
//
// The wider client/server packet taxonomy (login, chat, chunk transfer, entity
// updates) is an external protocol with big-endian multi-byte fields; nothing
// here parses it. Its chunk payload convention is shared with this package:
// size 0 is an empty chunk, and a size other than the uncompressed size marks
// a compressed payload (see internal/sim/encoding).
package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeHello    = "HELLO"
	TypeWelcome  = "WELCOME"
	TypeChunkReq = "CHUNK_REQ"
	TypeChunk    = "CHUNK"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
