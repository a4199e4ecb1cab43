// Package tools provides tool declarations, dispatch, and MCP (Model
// Context Protocol) integration.
//
// It is organized into sub-packages:
//   - [github.com/germanamz/lingua/pkg/tools/tool] — provider-agnostic function declarations passed to model requests
//   - [github.com/germanamz/lingua/pkg/tools/toolbox] — Provider interface and the ordered Box that routes tool calls to providers
//   - [github.com/germanamz/lingua/pkg/tools/mcptool] — toolbox.Provider backed by an MCP server, using the official MCP Go SDK
//
// The tool sub-package is the foundation layer: toolbox providers expose
// tool.Function declarations, and mcptool bridges remote MCP tools into the
// same shape via the official SDK (github.com/modelcontextprotocol/go-sdk).
package tools
