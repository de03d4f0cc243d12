package lsp

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/jsonrpc2"
)

// Client manages connections to language servers, spawning one subprocess
// per (server, project root) pair on first use and reusing it for the
// lifetime of the workspace.
type Client struct {
	mu       sync.RWMutex
	clients  map[string]*languageClient
	servers  map[string]*ServerConfig
	workDir  string
	disabled bool
}

// languageClient wraps a connection to one running language server process.
type languageClient struct {
	mu        sync.Mutex
	conn      *jsonrpcConn
	cmd       *exec.Cmd
	root      string
	serverID  string
	openFiles map[string]int // URI -> version
}

// jsonrpcConn adapts sourcegraph/jsonrpc2's stream-oriented Conn to the
// small call/notify surface operations.go uses; the LSP wire format is
// exactly what jsonrpc2.VSCodeObjectCodec implements (Content-Length
// headers + JSON body), so no framing code needs to live in this package.
type jsonrpcConn struct {
	conn *jsonrpc2.Conn
}

// stdioRWC joins a spawned server's stdin/stdout pipes into the
// io.ReadWriteCloser jsonrpc2.NewBufferedStream expects.
type stdioRWC struct {
	io.ReadCloser
	io.WriteCloser
}

func (s stdioRWC) Close() error {
	werr := s.WriteCloser.Close()
	rerr := s.ReadCloser.Close()
	if werr != nil {
		return werr
	}
	return rerr
}

func newJSONRPCConn(stdin io.WriteCloser, stdout io.ReadCloser) *jsonrpcConn {
	stream := jsonrpc2.NewBufferedStream(stdioRWC{ReadCloser: stdout, WriteCloser: stdin}, jsonrpc2.VSCodeObjectCodec{})
	c := jsonrpc2.NewConn(context.Background(), stream, jsonrpc2.HandlerWithError(handleServerRequest))
	return &jsonrpcConn{conn: c}
}

// handleServerRequest answers server-to-client requests. Language servers
// occasionally ask things like workspace/configuration; none of the
// built-in servers require a real answer to proceed, so every request gets
// a nil result and every notification is dropped silently.
func handleServerRequest(ctx context.Context, conn *jsonrpc2.Conn, req *jsonrpc2.Request) (any, error) {
	return nil, nil
}

func (c *jsonrpcConn) call(ctx context.Context, method string, params, result any) error {
	return c.conn.Call(ctx, method, params, result)
}

func (c *jsonrpcConn) notify(ctx context.Context, method string, params any) error {
	return c.conn.Notify(ctx, method, params)
}

func (c *jsonrpcConn) close() error {
	return c.conn.Close()
}

// NewClient creates a new LSP client manager rooted at workDir. When
// disabled is true, GetClient refuses to spawn servers — used when no
// language-server binaries are expected to be on PATH.
func NewClient(workDir string, disabled bool) *Client {
	return &Client{
		clients:  make(map[string]*languageClient),
		servers:  builtInServers(),
		workDir:  workDir,
		disabled: disabled,
	}
}

// builtInServers returns default language server configurations.
func builtInServers() map[string]*ServerConfig {
	return map[string]*ServerConfig{
		"typescript": {
			ID:         "typescript",
			Extensions: []string{".ts", ".tsx", ".js", ".jsx"},
			Command:    []string{"typescript-language-server", "--stdio"},
		},
		"go": {
			ID:         "go",
			Extensions: []string{".go"},
			Command:    []string{"gopls"},
		},
		"python": {
			ID:         "python",
			Extensions: []string{".py"},
			Command:    []string{"pyright-langserver", "--stdio"},
		},
		"rust": {
			ID:         "rust",
			Extensions: []string{".rs"},
			Command:    []string{"rust-analyzer"},
		},
	}
}

// AddServer registers or overrides a server configuration.
func (c *Client) AddServer(config *ServerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.servers[config.ID] = config
}

// GetClient returns or lazily spawns the language server for filePath's
// extension, rooted at its nearest enclosing project directory.
func (c *Client) GetClient(ctx context.Context, filePath string) (*languageClient, error) {
	if c.disabled {
		return nil, fmt.Errorf("lsp: disabled")
	}

	ext := filepath.Ext(filePath)
	if ext == "" {
		return nil, fmt.Errorf("lsp: no extension for file: %s", filePath)
	}

	var serverConfig *ServerConfig
	c.mu.RLock()
	for _, cfg := range c.servers {
		for _, e := range cfg.Extensions {
			if e == ext {
				serverConfig = cfg
				break
			}
		}
		if serverConfig != nil {
			break
		}
	}
	c.mu.RUnlock()

	if serverConfig == nil {
		return nil, fmt.Errorf("lsp: no server registered for extension %s", ext)
	}

	root := c.findProjectRoot(filePath, serverConfig.ID)
	clientKey := serverConfig.ID + ":" + root

	c.mu.RLock()
	if client, ok := c.clients[clientKey]; ok {
		c.mu.RUnlock()
		return client, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[clientKey]; ok {
		return client, nil
	}

	client, err := c.spawnServer(ctx, serverConfig, root)
	if err != nil {
		return nil, err
	}

	c.clients[clientKey] = client
	return client, nil
}

// spawnServer starts a language server subprocess and completes its
// initialize handshake.
func (c *Client) spawnServer(ctx context.Context, config *ServerConfig, root string) (*languageClient, error) {
	if len(config.Command) == 0 {
		return nil, fmt.Errorf("lsp: empty command for server %s", config.ID)
	}

	cmd := exec.Command(config.Command[0], config.Command[1:]...)
	cmd.Dir = root

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdin pipe for %s: %w", config.ID, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("lsp: stdout pipe for %s: %w", config.ID, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("lsp: start %s: %w", config.ID, err)
	}

	client := &languageClient{
		conn:      newJSONRPCConn(stdin, stdout),
		cmd:       cmd,
		root:      root,
		serverID:  config.ID,
		openFiles: make(map[string]int),
	}

	if err := client.initialize(ctx, root); err != nil {
		client.conn.close()
		cmd.Process.Kill()
		return nil, err
	}

	return client, nil
}

// initialize sends the initialize/initialized handshake.
func (lc *languageClient) initialize(ctx context.Context, root string) error {
	params := InitializeParams{
		ProcessID: os.Getpid(),
		RootURI:   "file://" + root,
		Capabilities: ClientCapabilities{
			TextDocument: TextDocumentClientCapabilities{
				Hover: &HoverCapability{
					ContentFormat: []string{"plaintext", "markdown"},
				},
				DocumentSymbol: &DocumentSymbolCapability{
					SymbolKind: &SymbolKindCapability{
						ValueSet: AllSymbolKinds(),
					},
				},
			},
			Workspace: WorkspaceClientCapabilities{
				Symbol: &WorkspaceSymbolCapability{
					SymbolKind: &SymbolKindCapability{
						ValueSet: AllSymbolKinds(),
					},
				},
			},
		},
	}

	var result any
	if err := lc.conn.call(ctx, "initialize", params, &result); err != nil {
		return fmt.Errorf("lsp: initialize %s: %w", lc.serverID, err)
	}

	return lc.conn.notify(ctx, "initialized", struct{}{})
}

// findProjectRoot walks up from filePath looking for a project marker
// appropriate to serverID, falling back to the workspace directory.
func (c *Client) findProjectRoot(filePath, serverID string) string {
	dir := filepath.Dir(filePath)

	markers := map[string][]string{
		"typescript": {"package.json", "tsconfig.json"},
		"go":         {"go.mod"},
		"python":     {"pyproject.toml", "setup.py", "requirements.txt"},
		"rust":       {"Cargo.toml"},
	}

	fileMarkers := markers[serverID]
	if fileMarkers == nil {
		fileMarkers = []string{".git"}
	}

	for {
		for _, marker := range fileMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return dir
			}
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return c.workDir
}

// Status reports every running language server.
func (c *Client) Status() []ServerStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	status := make([]ServerStatus, 0, len(c.clients))
	for key, client := range c.clients {
		status = append(status, ServerStatus{
			ID:     client.serverID,
			Root:   client.root,
			Key:    key,
			Active: true,
		})
	}
	return status
}

// Close shuts down every running language server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx := context.Background()
	for _, client := range c.clients {
		client.conn.notify(ctx, "shutdown", nil)
		client.conn.notify(ctx, "exit", nil)
		client.conn.close()
		if client.cmd.Process != nil {
			client.cmd.Process.Kill()
		}
	}

	c.clients = make(map[string]*languageClient)
	return nil
}

// IsDisabled reports whether GetClient refuses to spawn servers.
func (c *Client) IsDisabled() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.disabled
}

// SetDisabled toggles whether GetClient may spawn servers.
func (c *Client) SetDisabled(disabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disabled = disabled
}

// GetServers returns a copy of the configured server registry.
func (c *Client) GetServers() map[string]*ServerConfig {
	c.mu.RLock()
	defer c.mu.RUnlock()

	servers := make(map[string]*ServerConfig, len(c.servers))
	for k, v := range c.servers {
		servers[k] = v
	}
	return servers
}
