package bridge

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

type rpcRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	ID      uint64      `json:"id,omitempty"`
	Params  interface{} `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("bridge error %d: %s", e.Code, e.Message)
}

// JSON-RPC error codes per the standard reserved range (spec.md §6).
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

type contentItem struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Data string `json:"data,omitempty"`
}

type toolsCallResult struct {
	Content []contentItem `json:"content"`
	Logs    *callLogs     `json:"logs,omitempty"`
}

type callLogs struct {
	Console    []string `json:"console"`
	PageErrors []string `json:"pageErrors"`
}

// ToolResult is the unwrapped form of a tools/call response: the caller
// never sees the raw content/text envelope.
type ToolResult struct {
	// JSON is the nested payload decoded from content[0].text, when the
	// first content item was text. Callers unmarshal this into whatever
	// shape the tool produces (snapshot triple, performance metrics...).
	JSON json.RawMessage
	// ImageData is the base64-decoded bytes of content[0].data, when the
	// first content item was an image.
	ImageData []byte

	Console    []string
	PageErrors []string
}

// unwrapToolResult implements the non-negotiable envelope contract in
// spec.md §4.6: tools/call results are never consumed raw. Skipping this
// step silently yields empty metrics rather than an error, which is why
// it happens in exactly one place.
func unwrapToolResult(raw json.RawMessage) (ToolResult, error) {
	var result toolsCallResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return ToolResult{}, fmt.Errorf("decode tools/call result: %w", err)
	}
	if len(result.Content) == 0 {
		return ToolResult{}, errors.New("tools/call result has no content")
	}

	out := ToolResult{}
	if result.Logs != nil {
		out.Console = result.Logs.Console
		out.PageErrors = result.Logs.PageErrors
	}

	item := result.Content[0]
	switch item.Type {
	case "image":
		decoded, err := base64.StdEncoding.DecodeString(item.Data)
		if err != nil {
			return ToolResult{}, fmt.Errorf("decode image content: %w", err)
		}
		out.ImageData = decoded
	default:
		if item.Text == "" {
			return ToolResult{}, errors.New("tools/call text content is empty")
		}
		if json.Valid([]byte(item.Text)) {
			out.JSON = json.RawMessage(item.Text)
		} else {
			marshaled, err := json.Marshal(item.Text)
			if err != nil {
				return ToolResult{}, err
			}
			out.JSON = marshaled
		}
	}
	return out, nil
}

// snapshotPayload is the nested shape a navigate/click/etc. tool call
// returns inside ToolResult.JSON.
type snapshotPayload struct {
	Content string `json:"content"`
	URL     string `json:"url"`
	Title   string `json:"title"`
	Mode    string `json:"mode,omitempty"`
}
