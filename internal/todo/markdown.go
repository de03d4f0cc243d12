// Package todo implements the `.anvil/TODO.md` persistence format shared
// by the todo_read/todo_write tools and the session HTTP API: four
// markdown sections holding checkbox items with stable numeric ids. It
// has no dependency on internal/session or internal/tool so both can
// import it without a cycle.
package todo

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/eibrahimli/anvil/pkg/types"
)

var sections = []struct {
	heading string
	status  string
}{
	{"## In Progress", "in_progress"},
	{"## Pending", "pending"},
	{"## Completed", "completed"},
	{"## Cancelled", "cancelled"},
}

var itemPattern = regexp.MustCompile(`^-\s*\[([ xX])\]\s*(.+?)\s*\((HIGH|MEDIUM|LOW)\)\s*-\s*ID:\s*(\d+)\s*$`)

// Path returns the per-workspace TODO.md path.
func Path(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, ".anvil", "TODO.md")
}

// Parse parses the `.anvil/TODO.md` format. Round-tripping
// Parse(Format(x)) == x is an invariant.
func Parse(data []byte) ([]types.TodoInfo, error) {
	var todos []types.TodoInfo
	status := ""

	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		trimmed := strings.TrimSpace(strings.TrimRight(scanner.Text(), "\r"))
		if trimmed == "" {
			continue
		}

		matchedHeading := false
		for _, sec := range sections {
			if trimmed == sec.heading {
				status = sec.status
				matchedHeading = true
				break
			}
		}
		if matchedHeading {
			continue
		}

		m := itemPattern.FindStringSubmatch(trimmed)
		if m == nil {
			continue
		}
		if status == "" {
			return nil, fmt.Errorf("todo item %q appears before any section heading", trimmed)
		}
		todos = append(todos, types.TodoInfo{
			ID:       m[4],
			Content:  m[2],
			Status:   status,
			Priority: strings.ToLower(m[3]),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

// Format renders todos into the `.anvil/TODO.md` shape: sections in fixed
// order (In Progress, Pending, Completed, Cancelled), items in input
// order within each section.
func Format(todos []types.TodoInfo) []byte {
	var buf bytes.Buffer
	for i, sec := range sections {
		if i > 0 {
			buf.WriteString("\n")
		}
		buf.WriteString(sec.heading)
		buf.WriteString("\n")
		for _, t := range todos {
			if t.Status != sec.status {
				continue
			}
			checkbox := " "
			if t.Status == "completed" {
				checkbox = "x"
			}
			priority := strings.ToUpper(t.Priority)
			if priority == "" {
				priority = "MEDIUM"
			}
			fmt.Fprintf(&buf, "- [%s] %s (%s) - ID: %s\n", checkbox, t.Content, priority, t.ID)
		}
	}
	return buf.Bytes()
}

// Load reads and parses the workspace's TODO.md, returning an empty list
// if the file does not yet exist.
func Load(workspaceRoot string) ([]types.TodoInfo, error) {
	data, err := os.ReadFile(Path(workspaceRoot))
	if os.IsNotExist(err) {
		return []types.TodoInfo{}, nil
	}
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Save assigns stable numeric ids to any todo missing one and writes the
// workspace's TODO.md. Returns the (possibly id-filled) slice.
func Save(workspaceRoot string, todos []types.TodoInfo) ([]types.TodoInfo, error) {
	nextID := 1
	for _, t := range todos {
		if n, err := strconv.Atoi(t.ID); err == nil && n >= nextID {
			nextID = n + 1
		}
	}
	for i := range todos {
		if todos[i].ID == "" {
			todos[i].ID = strconv.Itoa(nextID)
			nextID++
		}
	}

	path := Path(workspaceRoot)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, Format(todos), 0o644); err != nil {
		return nil, err
	}
	return todos, nil
}
