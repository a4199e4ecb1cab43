package mcptool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/tools/toolbox"
)

type serverTool struct {
	name        string
	description string
	schema      json.RawMessage
	handler     func(ctx context.Context, args json.RawMessage) (*mcp.CallToolResult, error)
}

// setupTestServer creates an MCP server with the given tools, connects a
// client via in-memory transports, and returns the client. The server runs
// in a background goroutine tied to t.Cleanup.
func setupTestServer(t *testing.T, tools ...serverTool) *Client {
	t.Helper()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    "test-server",
		Version: "1.0.0",
	}, nil)

	for _, st := range tools {
		handler := st.handler
		server.AddTool(&mcp.Tool{
			Name:        st.name,
			Description: st.description,
			InputSchema: st.schema,
		}, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handler(ctx, req.Params.Arguments)
		})
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	serverDone := make(chan error, 1)
	go func() {
		serverDone <- server.Run(ctx, serverTransport)
	}()
	t.Cleanup(func() {
		cancel()
		<-serverDone
	})

	client, err := connect(ctx, clientTransport)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func TestClient_Tools(t *testing.T) {
	client := setupTestServer(t,
		serverTool{
			name:        "search",
			description: "Search the web",
			schema:      json.RawMessage(`{"type":"object","properties":{"q":{"type":"string"}}}`),
			handler: func(_ context.Context, _ json.RawMessage) (*mcp.CallToolResult, error) {
				return textResult("ok"), nil
			},
		},
	)

	fns := client.Tools()
	require.Len(t, fns, 1)
	assert.Equal(t, "search", fns[0].Name)
	assert.Equal(t, "Search the web", fns[0].Description)
	assert.Contains(t, string(fns[0].Parameters), `"q"`)
}

func TestClient_Call_InjectsCallID(t *testing.T) {
	var seen map[string]any

	client := setupTestServer(t, serverTool{
		name:   "echo",
		schema: json.RawMessage(`{"type":"object"}`),
		handler: func(_ context.Context, args json.RawMessage) (*mcp.CallToolResult, error) {
			require.NoError(t, json.Unmarshal(args, &seen))

			return textResult("done"), nil
		},
	})

	result := client.Call(context.Background(), content.ToolUse{
		ID:   "call_42",
		Name: "echo",
		Args: json.RawMessage(`{"q":"hello"}`),
	})

	assert.Equal(t, "call_42", result.ID)
	assert.Equal(t, "echo", result.Name)
	assert.False(t, toolbox.IsErrorResult(result))
	assert.Equal(t, "done", content.Texts(result.Parts, ""))

	// The server saw the original arguments plus the smuggled call id.
	assert.Equal(t, "hello", seen["q"])
	assert.Equal(t, "call_42", seen[CallIDArgument])
}

func TestClient_Call_ServerError(t *testing.T) {
	client := setupTestServer(t, serverTool{
		name:   "fail",
		schema: json.RawMessage(`{"type":"object"}`),
		handler: func(_ context.Context, _ json.RawMessage) (*mcp.CallToolResult, error) {
			return &mcp.CallToolResult{
				Content: []mcp.Content{&mcp.TextContent{Text: "disk full"}},
				IsError: true,
			}, nil
		},
	})

	result := client.Call(context.Background(), content.ToolUse{ID: "c1", Name: "fail", Args: json.RawMessage(`{}`)})

	assert.True(t, toolbox.IsErrorResult(result))
	assert.Equal(t, "disk full", content.Texts(result.Parts, ""))
}

func TestCallParams_RejectsNonObjectArgs(t *testing.T) {
	_, err := CallParams(content.ToolUse{ID: "c1", Name: "t", Args: json.RawMessage(`[1,2]`)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a JSON object")
}

func TestCallParams_RoundTrip(t *testing.T) {
	call := content.ToolUse{
		ID:   "call_7",
		Name: "lookup",
		Args: json.RawMessage(`{"key":"value"}`),
	}

	params, err := CallParams(call)
	require.NoError(t, err)

	back, err := CallToolUse(params)
	require.NoError(t, err)

	assert.Equal(t, call.ID, back.ID)
	assert.Equal(t, call.Name, back.Name)
	assert.JSONEq(t, string(call.Args), string(back.Args))
}

func TestCallToolUse_NoInjectedID(t *testing.T) {
	back, err := CallToolUse(&mcp.CallToolParams{
		Name:      "lookup",
		Arguments: map[string]any{"key": "value"},
	})
	require.NoError(t, err)
	assert.Empty(t, back.ID)
	assert.JSONEq(t, `{"key":"value"}`, string(back.Args))
}

func TestResultParts_ContentKinds(t *testing.T) {
	imgData := []byte{0x89, 0x50, 0x4e, 0x47}

	result := &mcp.CallToolResult{Content: []mcp.Content{
		&mcp.TextContent{Text: "caption"},
		&mcp.ImageContent{Data: imgData, MIMEType: "image/png"},
		&mcp.EmbeddedResource{Resource: &mcp.ResourceContents{
			URI:      "https://example.com/report.pdf",
			MIMEType: "application/pdf",
		}},
	}}

	parts, err := ResultParts(result)
	require.NoError(t, err)
	require.Len(t, parts, 3)

	assert.Equal(t, content.NewText("caption"), parts[0])

	img, ok := parts[1].(content.Blob)
	require.True(t, ok)
	assert.Equal(t, "image/png", img.MIMEType)
	assert.Equal(t, content.Base64Data{Data: base64.StdEncoding.EncodeToString(imgData)}, img.Ref)

	pdf, ok := parts[2].(content.Blob)
	require.True(t, ok)
	assert.Equal(t, content.URIData{URI: "https://example.com/report.pdf"}, pdf.Ref)
	assert.Equal(t, "application/pdf", pdf.MIMEType)
}

func TestContentFor_TextAndBlobs(t *testing.T) {
	got, err := ContentFor(content.NewText("hi"))
	require.NoError(t, err)
	assert.Equal(t, &mcp.TextContent{Text: "hi"}, got)

	raw := []byte{1, 2, 3}
	img, err := ContentFor(content.NewBlobBase64(base64.StdEncoding.EncodeToString(raw), "image/png"))
	require.NoError(t, err)
	assert.Equal(t, &mcp.ImageContent{Data: raw, MIMEType: "image/png"}, img)

	uri, err := ContentFor(content.NewBlobURI("https://example.com/a.bin", "application/octet-stream"))
	require.NoError(t, err)
	res, ok := uri.(*mcp.EmbeddedResource)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.bin", res.Resource.URI)
}

func TestContentFor_RejectsNestedResult(t *testing.T) {
	_, err := ContentFor(content.ToolResult{ID: "c1", Name: "inner"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tool_result")
}
