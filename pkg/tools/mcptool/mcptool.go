// Package mcptool bridges MCP (Model Context Protocol) servers into the
// toolbox. A connected Client lists the server's tools as function
// declarations and serves canonical tool calls over the session, converting
// between content parts and MCP content on the way.
//
// MCP tool calls carry no call id, so the bridge smuggles the canonical
// ToolUse id through a reserved argument key and strips it again on the way
// back. Servers see one extra argument they are free to ignore.
package mcptool

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os/exec"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/germanamz/lingua/pkg/chats/content"
	"github.com/germanamz/lingua/pkg/tools/tool"
	"github.com/germanamz/lingua/pkg/tools/toolbox"
)

// CallIDArgument is the reserved argument key carrying the canonical ToolUse
// id across the MCP boundary.
const CallIDArgument = "x_lingua_tool_call_id"

// Client is a connected MCP server exposed as a toolbox.Provider.
type Client struct {
	session *mcp.ClientSession
	fns     []tool.Function
}

var _ toolbox.Provider = (*Client)(nil)

// Connect spawns an MCP server process and returns a connected client. The
// SDK handles initialization during Connect.
func Connect(ctx context.Context, command string, args ...string) (*Client, error) {
	transport := &mcp.CommandTransport{
		Command: exec.Command(command, args...), //nolint:gosec // command is caller-provided by design
	}

	return connect(ctx, transport)
}

// ConnectSSE connects to an SSE-based MCP server at the given URL.
func ConnectSSE(ctx context.Context, url string) (*Client, error) {
	transport := &mcp.SSEClientTransport{Endpoint: url}

	return connect(ctx, transport)
}

// connect creates a Client over the given transport and fetches the server's
// tool list. Used by Connect and useful for testing with InMemoryTransport.
func connect(ctx context.Context, transport mcp.Transport) (*Client, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    "lingua",
		Version: "0.1.0",
	}, nil)

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return nil, fmt.Errorf("mcptool: connect: %w", err)
	}

	c := &Client{session: session}

	if err := c.refreshTools(ctx); err != nil {
		_ = session.Close()

		return nil, err
	}

	return c, nil
}

// refreshTools fetches the server's tool list and caches it as function
// declarations.
func (c *Client) refreshTools(ctx context.Context) error {
	result, err := c.session.ListTools(ctx, nil)
	if err != nil {
		return fmt.Errorf("mcptool: list tools: %w", err)
	}

	fns := make([]tool.Function, 0, len(result.Tools))
	for _, t := range result.Tools {
		schema, err := json.Marshal(t.InputSchema)
		if err != nil {
			return fmt.Errorf("mcptool: marshal schema for %q: %w", t.Name, err)
		}

		fns = append(fns, tool.Function{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schema,
		})
	}

	c.fns = fns

	return nil
}

// Tools returns the server's tools as function declarations, as cached at
// connect time.
func (c *Client) Tools() []tool.Function {
	return c.fns
}

// Call sends the tool call to the MCP server and converts the response back
// into a canonical tool result. Transport and conversion failures come back
// as error results so they can travel to the model like any other outcome.
func (c *Client) Call(ctx context.Context, call content.ToolUse) content.ToolResult {
	params, err := CallParams(call)
	if err != nil {
		return toolbox.ErrorResult(call, err.Error())
	}

	result, err := c.session.CallTool(ctx, params)
	if err != nil {
		return toolbox.ErrorResult(call, fmt.Sprintf("mcptool: call tool: %v", err))
	}

	return ResultFor(call, result)
}

// Close terminates the session. The SDK tears down any spawned subprocess.
func (c *Client) Close() error {
	return c.session.Close()
}

// CallParams converts a canonical tool call to MCP call parameters, injecting
// the call id under CallIDArgument. Arguments must be a JSON object or empty.
func CallParams(call content.ToolUse) (*mcp.CallToolParams, error) {
	args := map[string]any{}
	if len(call.Args) > 0 {
		if err := json.Unmarshal(call.Args, &args); err != nil {
			return nil, fmt.Errorf("mcptool: tool %q arguments are not a JSON object: %w", call.Name, err)
		}
	}

	if call.ID != "" {
		args[CallIDArgument] = call.ID
	}

	return &mcp.CallToolParams{
		Name:      call.Name,
		Arguments: args,
	}, nil
}

// CallToolUse converts MCP call parameters back to a canonical tool call,
// extracting the id planted under CallIDArgument. Calls arriving from
// elsewhere simply have no id.
func CallToolUse(params *mcp.CallToolParams) (content.ToolUse, error) {
	raw, err := json.Marshal(params.Arguments)
	if err != nil {
		return content.ToolUse{}, fmt.Errorf("mcptool: marshal arguments: %w", err)
	}

	args := map[string]json.RawMessage{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return content.ToolUse{}, fmt.Errorf("mcptool: tool %q arguments are not a JSON object: %w", params.Name, err)
		}
	}

	var id string
	if rawID, ok := args[CallIDArgument]; ok {
		if err := json.Unmarshal(rawID, &id); err != nil {
			return content.ToolUse{}, fmt.Errorf("mcptool: %s is not a string", CallIDArgument)
		}
		delete(args, CallIDArgument)
	}

	stripped, err := json.Marshal(args)
	if err != nil {
		return content.ToolUse{}, fmt.Errorf("mcptool: marshal arguments: %w", err)
	}

	return content.ToolUse{
		ID:   id,
		Name: params.Name,
		Args: stripped,
	}, nil
}

// ResultFor converts an MCP call result into the canonical tool result
// answering call. Server-side errors keep their content and gain the
// toolbox.is_error flag; unconvertible content collapses to an error result.
func ResultFor(call content.ToolUse, result *mcp.CallToolResult) content.ToolResult {
	parts, err := ResultParts(result)
	if err != nil {
		return toolbox.ErrorResult(call, err.Error())
	}

	tr := content.ToolResult{
		ID:    call.ID,
		Name:  call.Name,
		Parts: parts,
	}

	if result.IsError {
		tr.Ext = content.Ext{}.SetBool("toolbox", "is_error", true)
	}

	return tr
}

// ResultParts converts MCP result content into canonical parts. Text maps to
// Text; image and audio content become inline base64 blobs; embedded
// resources become URI blobs. Anything else is an error, never a silent
// drop.
func ResultParts(result *mcp.CallToolResult) ([]content.Part, error) {
	parts := make([]content.Part, 0, len(result.Content))

	for i, item := range result.Content {
		switch c := item.(type) {
		case *mcp.TextContent:
			parts = append(parts, content.NewText(c.Text))
		case *mcp.ImageContent:
			parts = append(parts, content.NewBlobBase64(base64.StdEncoding.EncodeToString(c.Data), c.MIMEType))
		case *mcp.AudioContent:
			parts = append(parts, content.NewBlobBase64(base64.StdEncoding.EncodeToString(c.Data), c.MIMEType))
		case *mcp.EmbeddedResource:
			p, err := resourcePart(c.Resource)
			if err != nil {
				return nil, fmt.Errorf("mcptool: result content %d: %w", i, err)
			}
			parts = append(parts, p)
		case *mcp.ResourceLink:
			parts = append(parts, content.NewBlobURI(c.URI, orOctetStream(c.MIMEType)))
		default:
			return nil, fmt.Errorf("mcptool: result content %d: unsupported MCP content type %T", i, item)
		}
	}

	return parts, nil
}

// ContentFor converts a canonical part into MCP result content. Only text
// and blobs can cross the boundary; tool calls, nested results, and opaque
// blocks cannot.
func ContentFor(p content.Part) (mcp.Content, error) {
	switch v := p.(type) {
	case content.Text:
		return &mcp.TextContent{Text: v.Text}, nil
	case content.Blob:
		return blobContent(v)
	default:
		return nil, fmt.Errorf("mcptool: part kind %q has no MCP content form", p.PartKind())
	}
}

func blobContent(b content.Blob) (mcp.Content, error) {
	switch ref := b.Ref.(type) {
	case content.Base64Data:
		data, err := base64.StdEncoding.DecodeString(ref.Data)
		if err != nil {
			return nil, fmt.Errorf("mcptool: invalid base64 blob: %w", err)
		}

		switch {
		case b.IsImage():
			return &mcp.ImageContent{Data: data, MIMEType: b.MIMEType}, nil
		case b.IsAudio():
			return &mcp.AudioContent{Data: data, MIMEType: b.MIMEType}, nil
		}

		return nil, fmt.Errorf("mcptool: base64 blob of type %q has no MCP content form", b.MIMEType)
	case content.URIData:
		return &mcp.EmbeddedResource{Resource: &mcp.ResourceContents{
			URI:      ref.URI,
			MIMEType: b.MIMEType,
		}}, nil
	}

	return nil, fmt.Errorf("mcptool: blob has no data reference")
}

func resourcePart(r *mcp.ResourceContents) (content.Part, error) {
	if r == nil {
		return nil, fmt.Errorf("embedded resource has no contents")
	}

	mime := orOctetStream(r.MIMEType)

	switch {
	case len(r.Blob) > 0:
		return content.NewBlobBase64(base64.StdEncoding.EncodeToString(r.Blob), mime), nil
	case r.Text != "":
		return content.NewText(r.Text), nil
	case r.URI != "":
		return content.NewBlobURI(r.URI, mime), nil
	}

	return nil, fmt.Errorf("embedded resource is empty")
}

func orOctetStream(mime string) string {
	if mime == "" {
		return "application/octet-stream"
	}

	return mime
}
