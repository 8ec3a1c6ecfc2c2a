package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/tatami-inc/eminem-sub000/internal/config"
)

// ProtocolTestSuite drives the server through JSON-RPC messages, the way a
// client on stdio would.
type ProtocolTestSuite struct {
	suite.Suite
	server *Server
	dir    string
	nextID int
}

func (s *ProtocolTestSuite) SetupTest() {
	cfg := config.Default()
	cfg.DBPath = filepath.Join(s.T().TempDir(), "mtx.db")

	server, err := NewServer(cfg, nil, nil)
	s.Require().NoError(err)
	s.server = server
	s.dir = s.T().TempDir()
}

func (s *ProtocolTestSuite) TearDownTest() {
	_ = s.server.Close()
}

// rpc sends one request and returns the decoded response envelope
func (s *ProtocolTestSuite) rpc(method string, params interface{}) map[string]interface{} {
	s.nextID++
	msg, err := json.Marshal(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      s.nextID,
		"method":  method,
		"params":  params,
	})
	s.Require().NoError(err)

	resp := s.server.mcp.HandleMessage(context.Background(), msg)
	s.Require().NotNil(resp)

	raw, err := json.Marshal(resp)
	s.Require().NoError(err)
	out := make(map[string]interface{})
	s.Require().NoError(json.Unmarshal(raw, &out))
	return out
}

// callTool invokes a tool and decodes its JSON text result
func (s *ProtocolTestSuite) callTool(name string, args map[string]interface{}) map[string]interface{} {
	resp := s.rpc("tools/call", map[string]interface{}{"name": name, "arguments": args})
	s.Require().NotContains(resp, "error", "tool %s failed: %v", name, resp["error"])

	result := resp["result"].(map[string]interface{})
	content := result["content"].([]interface{})
	s.Require().Len(content, 1)
	text := content[0].(map[string]interface{})["text"].(string)

	out := make(map[string]interface{})
	s.Require().NoError(json.Unmarshal([]byte(text), &out))
	return out
}

func (s *ProtocolTestSuite) TestInitialize() {
	resp := s.rpc("initialize", map[string]interface{}{
		"protocolVersion": "2024-11-05",
		"capabilities":    map[string]interface{}{},
		"clientInfo":      map[string]interface{}{"name": "test", "version": "0.0.1"},
	})
	result := resp["result"].(map[string]interface{})
	info := result["serverInfo"].(map[string]interface{})
	s.Equal(ServerName, info["name"])
	s.Equal(ServerVersion, info["version"])
}

func (s *ProtocolTestSuite) TestListTools() {
	resp := s.rpc("tools/list", map[string]interface{}{})
	tools := resp["result"].(map[string]interface{})["tools"].([]interface{})

	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.(map[string]interface{})["name"].(string))
	}
	s.ElementsMatch([]string{"load_matrices", "describe_matrix", "get_entries", "get_status"}, names)
}

func (s *ProtocolTestSuite) TestLoadThenQuery() {
	for i := 1; i <= 3; i++ {
		content := fmt.Sprintf("%%%%MatrixMarket matrix coordinate integer general\n%d %d 1\n%d %d %d\n", i, i, i, i, i*10)
		writeMatrix(s.T(), s.dir, fmt.Sprintf("m%d.mtx", i), content)
	}

	load := s.callTool("load_matrices", map[string]interface{}{"path": s.dir})
	s.Equal(3.0, load["files_loaded"])
	s.Equal(3.0, load["entries_loaded"])

	entries := s.callTool("get_entries", map[string]interface{}{"path": filepath.Join(s.dir, "m3.mtx")})
	s.Equal([]interface{}{map[string]interface{}{"row": 3.0, "col": 3.0, "value": "30"}}, entries["entries"])

	status := s.callTool("get_status", map[string]interface{}{})
	stats := status["statistics"].(map[string]interface{})
	s.Equal(3.0, stats["matrices_count"])
	s.Equal(0.0, stats["failed_count"])
}

func (s *ProtocolTestSuite) TestToolErrorIsReported() {
	resp := s.rpc("tools/call", map[string]interface{}{
		"name":      "describe_matrix",
		"arguments": map[string]interface{}{"path": "relative.mtx"},
	})
	s.Contains(resp, "error")
	s.NotContains(resp, "result")
}

func TestProtocolTestSuite(t *testing.T) {
	suite.Run(t, new(ProtocolTestSuite))
}
