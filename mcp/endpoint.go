package mcp

import (
	"context"
	"encoding/json"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/flarexio/zoningqa"
)

type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      mcp.RequestId   `json:"id"`
	Method  mcp.MCPMethod   `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

func errorResponse(id mcp.RequestId, code int, message string) mcp.JSONRPCError {
	return mcp.JSONRPCError{
		JSONRPC: mcp.JSONRPC_VERSION,
		ID:      id,
		Error: struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Data    any    `json:"data,omitempty"`
		}{
			Code:    code,
			Message: message,
		},
	}
}

func MethodNotFound(id mcp.RequestId) mcp.JSONRPCError {
	return errorResponse(id, mcp.METHOD_NOT_FOUND, "method not found")
}

func ParseError(id mcp.RequestId, err error) mcp.JSONRPCError {
	return errorResponse(id, mcp.PARSE_ERROR, err.Error())
}

type MCPEndpoint func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage

const (
	ToolAskZoning       = "ask_zoning"
	ArgumentQuestion    = "question"
	MCPSERVER_NAME      = "zoningqa"
	MCPSERVER_VERSION   = "1.0.0"
	MCPSERVER_TOOL_DESC = `Answer a question about New York City zoning.

Questions are answered from the NYC Zoning Handbook. A question of the form
"address: <street address>" returns the zoning district, commercial overlay
and borough of that property instead.`
)

const MCPSERVER_INSTRUCTIONS string = `zoningqa answers questions about New York City zoning.

Available operations:
- tools/list: Get the ask_zoning tool
- tools/call: Ask a handbook question, or look up a property with "address: <street address>"

Answers are plain text.`

// AskZoningTool describes the single tool the server exposes.
func AskZoningTool() mcp.Tool {
	return mcp.NewTool(ToolAskZoning,
		mcp.WithDescription(MCPSERVER_TOOL_DESC),
		mcp.WithString(ArgumentQuestion,
			mcp.Required(),
			mcp.Description(`A zoning question, or "address: <street address>"`),
		),
	)
}

// Endpoints maps every supported JSON-RPC method to its endpoint.
func Endpoints(svc zoningqa.Service) map[mcp.MCPMethod]MCPEndpoint {
	endpoints := make(map[mcp.MCPMethod]MCPEndpoint)
	endpoints[mcp.MethodInitialize] = InitializeEndpoint(svc)
	endpoints[mcp.MethodPing] = PingEndpoint(svc)
	endpoints[mcp.MethodToolsList] = ListToolsEndpoint(svc)
	endpoints[mcp.MethodToolsCall] = CallToolEndpoint(svc)
	return endpoints
}

func InitializeEndpoint(svc zoningqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.InitializeParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		protocolVersion := mcp.LATEST_PROTOCOL_VERSION
		if clientVersion := params.ProtocolVersion; clientVersion != "" {
			if slices.Contains(mcp.ValidProtocolVersions, clientVersion) {
				protocolVersion = clientVersion
			}
		}

		result := &mcp.InitializeResult{
			ProtocolVersion: protocolVersion,
			Capabilities: mcp.ServerCapabilities{
				Tools: &struct {
					ListChanged bool `json:"listChanged,omitempty"`
				}{},
			},
			ServerInfo: mcp.Implementation{
				Name:    MCPSERVER_NAME,
				Version: MCPSERVER_VERSION,
			},
			Instructions: MCPSERVER_INSTRUCTIONS,
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func PingEndpoint(svc zoningqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  struct{}{},
		}
	}
}

func ListToolsEndpoint(svc zoningqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		result := &mcp.ListToolsResult{
			Tools: []mcp.Tool{AskZoningTool()},
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}

func CallToolEndpoint(svc zoningqa.Service) MCPEndpoint {
	return func(ctx context.Context, req JSONRPCRequest) mcp.JSONRPCMessage {
		var params mcp.CallToolParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		if params.Name != ToolAskZoning {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, "unknown tool: "+params.Name)
		}

		callToolReq := mcp.CallToolRequest{
			Request: mcp.Request{
				Method: string(req.Method),
			},
			Params: params,
		}

		question, err := callToolReq.RequireString(ArgumentQuestion)
		if err != nil {
			return errorResponse(req.ID, mcp.INVALID_PARAMS, err.Error())
		}

		var result *mcp.CallToolResult

		answer, err := svc.Answer(ctx, question)
		if err != nil {
			result = mcp.NewToolResultError(err.Error())
		} else {
			result = mcp.NewToolResultText(answer)
		}

		return mcp.JSONRPCResponse{
			JSONRPC: mcp.JSONRPC_VERSION,
			ID:      req.ID,
			Result:  result,
		}
	}
}
