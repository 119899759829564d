package protocol_test

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"voxelcore.ai/internal/protocol"
)

func compile(t *testing.T, name string) *jsonschema.Schema {
	t.Helper()
	p := filepath.Join("..", "..", "schemas", name)
	s, err := jsonschema.Compile(p)
	if err != nil {
		t.Fatalf("compile %s: %v", name, err)
	}
	return s
}

// asJSON round-trips v through encoding/json so the validator sees the wire form.
func asJSON(t *testing.T, v any) any {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestSchemas_ValidateMessages(t *testing.T) {
	validate := func(s *jsonschema.Schema, v any) {
		t.Helper()
		if err := s.Validate(asJSON(t, v)); err != nil {
			t.Fatalf("validate: %v", err)
		}
	}

	validate(compile(t, "hello.schema.json"), protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		ClientName:      "viewer",
		MaxInflight:     8,
	})
	validate(compile(t, "welcome.schema.json"), protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       "S1",
		WorldParams:     protocol.WorldParams{Seed: 1337, ChunkSize: [3]int{16, 16, 16}, RawSize: 16384},
	})
	validate(compile(t, "chunk_req.schema.json"), protocol.ChunkReqMsg{
		Type:            protocol.TypeChunkReq,
		ProtocolVersion: protocol.Version,
		ID:              7,
		Pos:             [3]int{-1, 0, 4},
	})

	chunk := compile(t, "chunk.schema.json")
	validate(chunk, protocol.ChunkMsg{
		Type:            protocol.TypeChunk,
		ProtocolVersion: protocol.Version,
		ID:              7,
		Pos:             [3]int{-1, 0, 4},
		Size:            3,
		Payload:         []byte{1, 2, 3},
		Digest:          "0000000000000000000000000000000000000000000000000000000000000000",
	})
	validate(chunk, protocol.ChunkMsg{
		Type:            protocol.TypeChunk,
		ProtocolVersion: protocol.Version,
		ID:              8,
		Code:            protocol.ErrOutOfBounds,
		Message:         "outside world boundary",
	})
}

func TestSchemas_RejectMalformed(t *testing.T) {
	s := compile(t, "chunk_req.schema.json")
	var bad any
	_ = json.Unmarshal([]byte(`{"type":"CHUNK_REQ","protocol_version":"1.0","id":1,"pos":[1,2]}`), &bad)
	if err := s.Validate(bad); err == nil {
		t.Fatalf("expected two-component pos to be rejected")
	}
}
