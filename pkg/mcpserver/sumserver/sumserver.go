// Package sumserver is a minimal hand-rolled MCP server exposing a single
// "get-sum" tool, used as the stdio fixture for internal/mcp's integration
// tests (spec S5: a server that answers initialize, accepts
// notifications/initialized, and lists exactly one tool).
package sumserver

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Run reads newline-delimited JSON-RPC requests from in and writes responses
// to out until in is closed. It implements just enough of MCP to satisfy
// initialize, notifications/initialized, tools/list, and tools/call for
// "get-sum".
func Run(in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req request
		if err := json.Unmarshal(line, &req); err != nil {
			continue
		}
		resp, hasResp := handle(req)
		if !hasResp {
			continue
		}
		data, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "%s\n", data); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func handle(req request) (response, bool) {
	switch req.Method {
	case "initialize":
		return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"protocolVersion": "2024-11-05",
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": "sumserver", "version": "1.0.0"},
		}}, true
	case "notifications/initialized":
		return response{}, false
	case "tools/list":
		return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
			"tools": []map[string]any{
				{
					"name":        "get-sum",
					"description": "Calculates the sum of an array of numbers",
					"inputSchema": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"numbers": map[string]any{
								"type":  "array",
								"items": map[string]any{"type": "number"},
							},
						},
						"required": []string{"numbers"},
					},
				},
			},
		}}, true
	case "tools/call":
		return handleCall(req)
	case "ping":
		return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{}}, true
	default:
		if len(req.ID) == 0 {
			return response{}, false
		}
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "method not found"}}, true
	}
}

func handleCall(req request) (response, bool) {
	var params struct {
		Name      string `json:"name"`
		Arguments struct {
			Numbers []float64 `json:"numbers"`
		} `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32602, Message: "invalid params"}}, true
	}
	if params.Name != "get-sum" {
		return response{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: -32601, Message: "unknown tool"}}, true
	}
	var sum float64
	for _, n := range params.Arguments.Numbers {
		sum += n
	}
	return response{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
		"content": []map[string]any{{"type": "text", "text": fmt.Sprintf("%g", sum)}},
	}}, true
}
