package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ClientName      string `json:"client_name"`
	MaxInflight     int    `json:"max_inflight,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string      `json:"type"`
	ProtocolVersion string      `json:"protocol_version"`
	SessionID       string      `json:"session_id"`
	WorldParams     WorldParams `json:"world_params"`
}

type WorldParams struct {
	Seed      int64  `json:"seed"`
	ChunkSize [3]int `json:"chunk_size"`
	RawSize   int    `json:"raw_size"`
	BoundaryR int    `json:"boundary_r,omitempty"` // chunks; 0 = unbounded
}

// CHUNK_REQ (client -> server)
type ChunkReqMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              uint64 `json:"id"`
	Pos             [3]int `json:"pos"`
}

// CHUNK (server -> client). Payload follows the size convention described in
// the package doc; Size always equals len(Payload).
type ChunkMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ID              uint64 `json:"id"`
	Pos             [3]int `json:"pos"`
	Size            int    `json:"size"`
	Payload         []byte `json:"payload,omitempty"`
	Digest          string `json:"digest,omitempty"`
	Code            string `json:"code,omitempty"`
	Message         string `json:"message,omitempty"`
}
