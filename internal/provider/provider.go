// Package provider provides LLM provider abstraction using Eino framework.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/eibrahimli/anvil/pkg/types"
)

// resolveConfigValue returns explicit if set, otherwise the first non-empty
// of envVars, checked in order. Every provider constructor layers config
// struct fields over environment variables this way.
func resolveConfigValue(explicit string, envVars ...string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range envVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// defaultMaxTokens returns configured when it's set, else def.
func defaultMaxTokens(configured, def int) int {
	if configured == 0 {
		return def
	}
	return configured
}

// Provider represents an LLM provider with Eino ChatModel.
type Provider interface {
	// ID returns the provider identifier.
	ID() string

	// Name returns the human-readable provider name.
	Name() string

	// Models returns the list of available models.
	Models() []types.Model

	// ChatModel returns the Eino ChatModel for this provider.
	ChatModel() model.ToolCallingChatModel

	// CreateCompletion creates a streaming completion.
	CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error)
}

// CompletionRequest represents a request to generate a completion.
type CompletionRequest struct {
	Model       string            `json:"model"`
	Messages    []*schema.Message `json:"messages"`
	Tools       []*schema.ToolInfo `json:"tools,omitempty"`
	MaxTokens   int               `json:"maxTokens,omitempty"`
	Temperature float64           `json:"temperature,omitempty"`
	TopP        float64           `json:"topP,omitempty"`
	StopWords   []string          `json:"stopWords,omitempty"`
}

// CompletionStream wraps an Eino stream reader.
type CompletionStream struct {
	reader *schema.StreamReader[*schema.Message]
}

// NewCompletionStream creates a new completion stream.
func NewCompletionStream(reader *schema.StreamReader[*schema.Message]) *CompletionStream {
	return &CompletionStream{reader: reader}
}

// Recv receives the next message chunk from the stream.
func (s *CompletionStream) Recv() (*schema.Message, error) {
	return s.reader.Recv()
}

// Close closes the stream.
func (s *CompletionStream) Close() {
	s.reader.Close()
}

// ToolInfo represents a tool definition for the LLM.
type ToolInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"` // JSON Schema
}

// ConvertToEinoTools converts internal tool definitions to Eino format.
func ConvertToEinoTools(tools []ToolInfo) []*schema.ToolInfo {
	result := make([]*schema.ToolInfo, len(tools))
	for i, t := range tools {
		// Parse parameters from JSON schema
		var params map[string]*schema.ParameterInfo
		if len(t.Parameters) > 0 {
			params = parseJSONSchemaToParams(t.Parameters)
		}

		result[i] = &schema.ToolInfo{
			Name: t.Name,
			Desc: t.Description,
			ParamsOneOf: schema.NewParamsOneOfByParams(params),
		}
	}
	return result
}

// parseJSONSchemaToParams converts JSON Schema to Eino ParameterInfo.
func parseJSONSchemaToParams(schemaJSON json.RawMessage) map[string]*schema.ParameterInfo {
	var jsonSchema struct {
		Properties map[string]struct {
			Type        string `json:"type"`
			Description string `json:"description"`
		} `json:"properties"`
		Required []string `json:"required"`
	}

	if err := json.Unmarshal(schemaJSON, &jsonSchema); err != nil {
		return nil
	}

	requiredSet := make(map[string]bool)
	for _, r := range jsonSchema.Required {
		requiredSet[r] = true
	}

	params := make(map[string]*schema.ParameterInfo)
	for name, prop := range jsonSchema.Properties {
		paramType := schema.String
		switch prop.Type {
		case "integer":
			paramType = schema.Integer
		case "number":
			paramType = schema.Number
		case "boolean":
			paramType = schema.Boolean
		case "array":
			paramType = schema.Array
		case "object":
			paramType = schema.Object
		}

		params[name] = &schema.ParameterInfo{
			Type:     paramType,
			Desc:     prop.Description,
			Required: requiredSet[name],
		}
	}

	return params
}

// ConvertFromEinoMessage converts a streamed Eino message chunk into the
// Message header the step loop persists; the caller attaches parts (text,
// reasoning, tool calls) separately as they arrive.
func ConvertFromEinoMessage(msg *schema.Message, sessionID string) *types.Message {
	role := types.RoleAssistant
	switch msg.Role {
	case schema.User:
		role = types.RoleUser
	case schema.System:
		role = types.RoleSystem
	case schema.Tool:
		role = types.RoleTool
	}

	m := &types.Message{
		SessionID: sessionID,
		Role:      role,
		Content:   msg.Content,
	}
	if msg.Role == schema.Tool {
		m.ToolCallID = msg.ToolCallID
	}
	for _, tc := range msg.ToolCalls {
		m.ToolCalls = append(m.ToolCalls, types.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return m
}

// ConvertToEinoMessages renders a conversation's messages and their parts
// back into the flattened role/content/tool-call shape every eino chat
// model consumes. Reasoning parts are folded into the visible content since
// eino's schema.Message carries no separate thinking channel; a tool
// message's single part becomes that message's Content, keyed by
// msg.ToolCallID the way each provider's wire adapter expects.
func ConvertToEinoMessages(messages []*types.Message, parts map[string][]types.Part) []*schema.Message {
	result := make([]*schema.Message, 0, len(messages))

	for _, msg := range messages {
		role := schema.Assistant
		switch msg.Role {
		case types.RoleUser:
			role = schema.User
		case types.RoleSystem:
			role = schema.System
		case types.RoleTool:
			role = schema.Tool
		}

		var content string
		var toolCalls []schema.ToolCall

		for _, part := range parts[msg.ID] {
			switch p := part.(type) {
			case *types.TextPart:
				content += p.Text
			case *types.ReasoningPart:
				content += p.Text
			case *types.FilePart:
				content += fmt.Sprintf("[attachment: %s]", p.Filename)
			case *types.ToolPart:
				if msg.Role == types.RoleTool {
					if p.State.Output != "" {
						content += p.State.Output
					} else if p.State.Error != "" {
						content += p.State.Error
					}
					continue
				}
				call := p.ToToolCall()
				toolCalls = append(toolCalls, schema.ToolCall{
					ID: call.ID,
					Function: schema.FunctionCall{
						Name:      call.Name,
						Arguments: call.Arguments,
					},
				})
			}
		}

		if content == "" {
			content = msg.Content
		}

		result = append(result, &schema.Message{
			Role:       role,
			Content:    content,
			ToolCallID: msg.ToolCallID,
			ToolCalls:  toolCalls,
		})
	}

	return result
}
