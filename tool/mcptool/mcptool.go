// Package mcptool exposes tools served by a remote MCP server as framework
// tools. Specialist agents discover their tool set at startup from the MCP
// server backing their domain and invoke them over streamable HTTP.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/tool"
)

// Client wraps one MCP server connection: handshake, tool discovery and
// tool execution.
type Client struct {
	name     string
	endpoint string
	client   *mcp.Client
	logger   logging.Logger
	http     *http.Client

	mu      sync.Mutex
	session *mcp.ClientSession
	cached  []tool.Tool
}

// ClientOptions customizes a Client.
type ClientOptions struct {
	HTTPClient *http.Client
	Logger     logging.Logger
}

// NewClient creates a client for the MCP server at endpoint. Call Connect
// before discovering or invoking tools.
func NewClient(name, endpoint string, optFns ...func(o *ClientOptions)) *Client {
	opts := ClientOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Client{
		name:     name,
		endpoint: endpoint,
		logger:   opts.Logger,
		http:     opts.HTTPClient,
	}
}

// Connect performs the MCP handshake over streamable HTTP.
func (c *Client) Connect(ctx context.Context) error {
	transport := &mcp.StreamableClientTransport{Endpoint: c.endpoint}
	if c.http != nil {
		transport.HTTPClient = c.http
	}
	return c.ConnectWithTransport(ctx, transport)
}

// ConnectWithTransport performs the MCP handshake over the given transport.
func (c *Client) ConnectWithTransport(ctx context.Context, transport mcp.Transport) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client = mcp.NewClient(
		&mcp.Implementation{Name: "tripmesh", Version: "1.0.0"},
		&mcp.ClientOptions{Capabilities: &mcp.ClientCapabilities{}},
	)

	session, err := c.client.Connect(ctx, transport, nil)
	if err != nil {
		return fmt.Errorf("connecting to MCP server %q: %w", c.name, err)
	}
	c.session = session
	c.logger.Info("mcptool.connected", "server", c.name, "endpoint", c.endpoint)
	return nil
}

// Tools discovers the server's tools and wraps each as a framework tool.
// Results are cached for the lifetime of the connection.
func (c *Client) Tools(ctx context.Context) ([]tool.Tool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached != nil {
		return c.cached, nil
	}
	if c.session == nil {
		return nil, fmt.Errorf("MCP client %q not connected", c.name)
	}

	var out []tool.Tool
	for t, err := range c.session.Tools(ctx, nil) {
		if err != nil {
			return nil, fmt.Errorf("listing tools from %q: %w", c.name, err)
		}
		rt, err := c.wrap(t)
		if err != nil {
			return nil, fmt.Errorf("wrapping tool %q from %q: %w", t.Name, c.name, err)
		}
		out = append(out, rt)
	}

	c.cached = out
	c.logger.Info("mcptool.discovered", "server", c.name, "tools", len(out))
	return out, nil
}

// Close shuts the MCP session down.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	c.cached = nil
	return err
}

func (c *Client) wrap(t *mcp.Tool) (*remoteTool, error) {
	params := map[string]any{"type": "object"}
	if t.InputSchema != nil {
		data, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshaling input schema: %w", err)
		}
		if err := json.Unmarshal(data, &params); err != nil {
			return nil, fmt.Errorf("decoding input schema: %w", err)
		}
	}
	return &remoteTool{
		client:      c,
		name:        t.Name,
		description: t.Description,
		parameters:  params,
	}, nil
}

// remoteTool proxies one MCP tool through the client's session.
type remoteTool struct {
	client      *Client
	name        string
	description string
	parameters  map[string]any
}

var _ tool.Tool = (*remoteTool)(nil)

func (t *remoteTool) Name() string               { return t.name }
func (t *remoteTool) Description() string        { return t.description }
func (t *remoteTool) Parameters() map[string]any { return t.parameters }

// Call forwards the invocation to the MCP server. JSON results are returned
// decoded; plain text is wrapped under a "text" key.
func (t *remoteTool) Call(toolCtx *core.ToolContext, args map[string]any) (any, error) {
	t.client.mu.Lock()
	session := t.client.session
	t.client.mu.Unlock()
	if session == nil {
		return nil, tool.NewToolError(t.name, "MCP session closed", "EXECUTION_ERROR")
	}

	result, err := session.CallTool(toolCtx.Context(), &mcp.CallToolParams{
		Name:      t.name,
		Arguments: args,
	})
	if err != nil {
		return nil, tool.NewToolError(t.name, err.Error(), "EXECUTION_ERROR")
	}

	text := joinText(result.Content)
	if result.IsError {
		return nil, tool.NewToolError(t.name, text, "EXECUTION_ERROR")
	}

	var decoded any
	if err := json.Unmarshal([]byte(text), &decoded); err == nil {
		return decoded, nil
	}
	return map[string]any{"text": text}, nil
}

func joinText(content []mcp.Content) string {
	out := ""
	for _, c := range content {
		if tc, ok := c.(*mcp.TextContent); ok {
			if out != "" {
				out += "\n"
			}
			out += tc.Text
		}
	}
	return out
}
