package mcptools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestServerToolsListAndCall(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.Register(&echoTool{name: "echo", timeout: 5}))
	srv := NewServer(reg)

	listResp := srv.Handle(context.Background(), RPCRequest{JSONRPC: "2.0", ID: json.RawMessage(`1`), Method: "tools/list"})
	require.Nil(t, listResp.Error)

	params, _ := json.Marshal(map[string]any{"name": "echo", "arguments": map[string]any{"message": "hi"}})
	callResp := srv.Handle(context.Background(), RPCRequest{JSONRPC: "2.0", ID: json.RawMessage(`2`), Method: "tools/call", Params: params})
	require.Nil(t, callResp.Error)
	result, ok := callResp.Result.(CallResult)
	require.True(t, ok)
	require.False(t, result.IsError)
}

func TestServerRejectsWrongJSONRPCVersion(t *testing.T) {
	srv := NewServer(NewRegistry())
	resp := srv.Handle(context.Background(), RPCRequest{JSONRPC: "1.0", Method: "tools/list"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestServerUnknownMethod(t *testing.T) {
	srv := NewServer(NewRegistry())
	resp := srv.Handle(context.Background(), RPCRequest{JSONRPC: "2.0", Method: "bogus"})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)
}

func TestServerInvalidCallParams(t *testing.T) {
	srv := NewServer(NewRegistry())
	resp := srv.Handle(context.Background(), RPCRequest{JSONRPC: "2.0", Method: "tools/call", Params: json.RawMessage(`{}`)})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeInvalidParams, resp.Error.Code)
}
