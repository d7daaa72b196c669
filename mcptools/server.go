package mcptools

import (
	"context"
	"encoding/json"
)

// RPCRequest is one JSON-RPC 2.0 request.
type RPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCResponse is one JSON-RPC 2.0 response.
type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError follows JSON-RPC's reserved error code ranges.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Server handles the tools/list and tools/call JSON-RPC methods over a
// Registry. This is the surface this module exposes to its own callers;
// ExternalRegistry (client.go) is the modelcontextprotocol/go-sdk side,
// used to pull tools in from other MCP servers rather than to serve them.
type Server struct {
	registry *Registry
}

// NewServer constructs an MCP JSON-RPC server bound to a registry.
func NewServer(registry *Registry) *Server {
	return &Server{registry: registry}
}

// Handle dispatches one JSON-RPC request, returning its response.
func (s *Server) Handle(ctx context.Context, req RPCRequest) RPCResponse {
	resp := RPCResponse{JSONRPC: "2.0", ID: req.ID}

	if req.JSONRPC != "2.0" {
		resp.Error = &RPCError{Code: codeInvalidRequest, Message: "invalid request"}
		return resp
	}

	switch req.Method {
	case "tools/list":
		resp.Result = map[string]any{"tools": s.registry.List()}
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil || params.Name == "" {
			resp.Error = &RPCError{Code: codeInvalidParams, Message: "invalid params"}
			return resp
		}
		resp.Result = s.registry.Call(ctx, params.Name, params.Arguments)
	default:
		resp.Error = &RPCError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}
	}
	return resp
}
