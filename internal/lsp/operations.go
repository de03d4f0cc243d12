package lsp

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"
)

// toSymbolLocation converts a raw LSP Location into the flattened
// SymbolLocation shape every operation here returns.
func toSymbolLocation(loc Location) SymbolLocation {
	return SymbolLocation{
		URI: loc.URI,
		Range: Range{
			Start: Position{Line: loc.Range.Start.Line, Character: loc.Range.Start.Character},
			End:   Position{Line: loc.Range.End.Line, Character: loc.Range.End.Character},
		},
	}
}

func toSymbolLocations(locs []Location) []SymbolLocation {
	out := make([]SymbolLocation, len(locs))
	for i, loc := range locs {
		out[i] = toSymbolLocation(loc)
	}
	return out
}

func toSymbols(infos []SymbolInformation) []Symbol {
	out := make([]Symbol, len(infos))
	for i, s := range infos {
		out[i] = Symbol{
			Name:     s.Name,
			Kind:     s.Kind,
			Location: toSymbolLocation(s.Location),
		}
	}
	return out
}

// WorkspaceSymbol fans the query out to every running language server and
// merges the results. A server that errors (crashed, doesn't support the
// request) is skipped rather than failing the whole search.
func (c *Client) WorkspaceSymbol(ctx context.Context, query string) ([]Symbol, error) {
	c.mu.RLock()
	clients := make([]*languageClient, 0, len(c.clients))
	for _, client := range c.clients {
		clients = append(clients, client)
	}
	c.mu.RUnlock()

	var mu sync.Mutex
	var all []Symbol

	g, gctx := errgroup.WithContext(ctx)
	for _, client := range clients {
		client := client
		g.Go(func() error {
			symbols, err := client.workspaceSymbol(gctx, query)
			if err != nil {
				return nil // one server's failure shouldn't sink the search
			}
			mu.Lock()
			all = append(all, symbols...)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait() // errors are swallowed per-client above; Wait never returns non-nil here

	return all, nil
}

func (lc *languageClient) workspaceSymbol(ctx context.Context, query string) ([]Symbol, error) {
	params := WorkspaceSymbolParams{Query: query}

	var result []SymbolInformation
	if err := lc.conn.call(ctx, "workspace/symbol", params, &result); err != nil {
		return nil, err
	}

	return toSymbols(result), nil
}

// Hover returns hover information for a position, or nil if the server has
// nothing to say about it.
func (c *Client) Hover(ctx context.Context, file string, line, character int) (*HoverResult, error) {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return nil, err
	}

	return client.hover(ctx, file, line, character)
}

func (lc *languageClient) hover(ctx context.Context, file string, line, character int) (*HoverResult, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + file},
		Position:     Position{Line: line, Character: character},
	}

	var result struct {
		Contents any    `json:"contents"`
		Range    *Range `json:"range,omitempty"`
	}

	if err := lc.conn.call(ctx, "textDocument/hover", params, &result); err != nil {
		return nil, err
	}

	if result.Contents == nil {
		return nil, nil
	}

	return &HoverResult{
		Contents: flattenHoverContents(result.Contents),
		Range:    result.Range,
	}, nil
}

// flattenHoverContents normalizes the three shapes textDocument/hover's
// "contents" field may take (a bare string, a MarkupContent object, or a
// list of either) down to plain text.
func flattenHoverContents(contents any) string {
	switch v := contents.(type) {
	case string:
		return v
	case map[string]any:
		if value, ok := v["value"].(string); ok {
			return value
		}
		return ""
	case []any:
		var parts []string
		for _, p := range v {
			switch pv := p.(type) {
			case string:
				parts = append(parts, pv)
			case map[string]any:
				if value, ok := pv["value"].(string); ok {
					parts = append(parts, value)
				}
			}
		}
		return strings.Join(parts, "\n")
	default:
		return ""
	}
}

// DocumentSymbol returns the symbols declared in a single document.
func (c *Client) DocumentSymbol(ctx context.Context, file string) ([]Symbol, error) {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return nil, err
	}

	return client.documentSymbol(ctx, file)
}

func (lc *languageClient) documentSymbol(ctx context.Context, file string) ([]Symbol, error) {
	params := DocumentSymbolParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + file},
	}

	var result []SymbolInformation
	if err := lc.conn.call(ctx, "textDocument/documentSymbol", params, &result); err != nil {
		return nil, err
	}

	return toSymbols(result), nil
}

// TouchFile tells the owning server a file is open, opening it server-side
// on first touch and bumping its tracked version on subsequent touches.
func (c *Client) TouchFile(ctx context.Context, file string) error {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return err
	}

	return client.touchFile(ctx, file)
}

func (lc *languageClient) touchFile(ctx context.Context, file string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	uri := "file://" + file

	if _, open := lc.openFiles[uri]; open {
		lc.openFiles[uri]++
		return nil
	}

	content, err := os.ReadFile(file)
	if err != nil {
		return err
	}

	params := DidOpenTextDocumentParams{
		TextDocument: TextDocumentItem{
			URI:        uri,
			LanguageID: detectLanguageID(file),
			Version:    1,
			Text:       string(content),
		},
	}

	lc.openFiles[uri] = 1
	return lc.conn.notify(ctx, "textDocument/didOpen", params)
}

// CloseFile tells the owning server a file is no longer open. A no-op if
// the file was never touched.
func (c *Client) CloseFile(ctx context.Context, file string) error {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return err
	}

	return client.closeFile(ctx, file)
}

func (lc *languageClient) closeFile(ctx context.Context, file string) error {
	lc.mu.Lock()
	defer lc.mu.Unlock()

	uri := "file://" + file
	if _, open := lc.openFiles[uri]; !open {
		return nil
	}

	params := struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
	}{TextDocument: TextDocumentIdentifier{URI: uri}}

	delete(lc.openFiles, uri)
	return lc.conn.notify(ctx, "textDocument/didClose", params)
}

// Definition resolves the symbol at a position to its declaration site(s).
func (c *Client) Definition(ctx context.Context, file string, line, character int) ([]SymbolLocation, error) {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return nil, err
	}

	return client.definition(ctx, file, line, character)
}

func (lc *languageClient) definition(ctx context.Context, file string, line, character int) ([]SymbolLocation, error) {
	params := TextDocumentPositionParams{
		TextDocument: TextDocumentIdentifier{URI: "file://" + file},
		Position:     Position{Line: line, Character: character},
	}

	var result []Location
	if err := lc.conn.call(ctx, "textDocument/definition", params, &result); err != nil {
		// Some servers reply with a single Location instead of a list.
		var single Location
		if err := lc.conn.call(ctx, "textDocument/definition", params, &single); err != nil {
			return nil, err
		}
		result = []Location{single}
	}

	return toSymbolLocations(result), nil
}

// References finds every use of the symbol at a position, optionally
// including its own declaration.
func (c *Client) References(ctx context.Context, file string, line, character int, includeDeclaration bool) ([]SymbolLocation, error) {
	client, err := c.GetClient(ctx, file)
	if err != nil {
		return nil, err
	}

	return client.references(ctx, file, line, character, includeDeclaration)
}

func (lc *languageClient) references(ctx context.Context, file string, line, character int, includeDeclaration bool) ([]SymbolLocation, error) {
	params := struct {
		TextDocument TextDocumentIdentifier `json:"textDocument"`
		Position     Position               `json:"position"`
		Context      struct {
			IncludeDeclaration bool `json:"includeDeclaration"`
		} `json:"context"`
	}{
		TextDocument: TextDocumentIdentifier{URI: "file://" + file},
		Position:     Position{Line: line, Character: character},
	}
	params.Context.IncludeDeclaration = includeDeclaration

	var result []Location
	if err := lc.conn.call(ctx, "textDocument/references", params, &result); err != nil {
		return nil, err
	}

	return toSymbolLocations(result), nil
}

// languageIDByExt maps a lowercased file extension to its LSP languageId.
var languageIDByExt = map[string]string{
	".go":    "go",
	".ts":    "typescript",
	".tsx":   "typescriptreact",
	".js":    "javascript",
	".jsx":   "javascriptreact",
	".py":    "python",
	".rs":    "rust",
	".java":  "java",
	".c":     "c",
	".cpp":   "cpp",
	".cc":    "cpp",
	".cxx":   "cpp",
	".h":     "cpp",
	".hpp":   "cpp",
	".rb":    "ruby",
	".php":   "php",
	".cs":    "csharp",
	".swift": "swift",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".scala": "scala",
	".lua":   "lua",
	".sh":    "shellscript",
	".bash":  "shellscript",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".xml":   "xml",
	".html":  "html",
	".htm":   "html",
	".css":   "css",
	".scss":  "scss",
	".less":  "less",
	".md":    "markdown",
	".sql":   "sql",
}

func detectLanguageID(file string) string {
	if id, ok := languageIDByExt[strings.ToLower(filepath.Ext(file))]; ok {
		return id
	}
	return "plaintext"
}
