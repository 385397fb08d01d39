package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/snoonote/internal/fault"
)

// Error kinds surfaced to the MCP caller. This is the only place where
// adapter failures are translated into a caller-visible shape.
const (
	kindValidation = "validation_error"
	kindUpstream   = "upstream_error"
	kindInternal   = "internal_error"
)

// toolErrorBody is the machine-readable error object returned for a
// failed tool call; callers never see a raw fault or stack trace.
type toolErrorBody struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func classify(err error) string {
	switch {
	case fault.IsValidation(err):
		return kindValidation
	case fault.IsUpstream(err):
		return kindUpstream
	default:
		return kindInternal
	}
}

// toolError shapes an adapter failure into a structured IsError result.
func toolError(err error) *mcp.CallToolResult {
	return toolErrorKind(classify(err), err.Error())
}

func toolErrorKind(kind, msg string) *mcp.CallToolResult {
	body, marshalErr := json.Marshal(toolErrorBody{Kind: kind, Message: msg})
	if marshalErr != nil {
		body = []byte(fmt.Sprintf(`{"kind":%q,"message":"error encoding failure"}`, kindInternal))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(body)},
		},
		IsError: true,
	}
}

func validationError(format string, args ...any) *mcp.CallToolResult {
	return toolErrorKind(kindValidation, fmt.Sprintf(format, args...))
}

// mcpJSON marshals a success payload into a text result.
func mcpJSON(v any) *mcp.CallToolResult {
	b, err := json.Marshal(v)
	if err != nil {
		return toolErrorKind(kindInternal, fmt.Sprintf("encoding result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(b)},
		},
	}
}

// httpError writes a structured error for the HTTP shell (auth
// rejections and anything else that never reaches the dispatcher).
func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
