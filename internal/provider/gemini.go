package provider

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/eibrahimli/anvil/pkg/types"
)

// GeminiProvider implements Provider for Google Gemini models, talking to
// the API directly through the official google.golang.org/genai SDK rather
// than through an Eino model component (the ecosystem has none for Gemini
// at the time of writing; see DESIGN.md).
type GeminiProvider struct {
	chatModel model.ToolCallingChatModel
	models    []types.Model
	config    *GeminiConfig
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	// ID is the provider identifier (e.g. "gemini"). Defaults to "gemini".
	ID        string
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, config *GeminiConfig) (*GeminiProvider, error) {
	apiKey := config.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY not set")
	}

	modelID := config.Model
	if modelID == "" {
		modelID = "gemini-2.0-flash"
	}

	clientConfig := &genai.ClientConfig{APIKey: apiKey}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: config.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{
		chatModel: &geminiChatModel{
			client:    client,
			modelName: modelID,
			maxTokens: config.MaxTokens,
		},
		models: geminiModels(),
		config: config,
	}, nil
}

// ID returns the provider identifier.
func (p *GeminiProvider) ID() string {
	if p.config.ID != "" {
		return p.config.ID
	}
	return "gemini"
}

// Name returns the human-readable provider name.
func (p *GeminiProvider) Name() string { return "Google Gemini" }

// Models returns the list of available models.
func (p *GeminiProvider) Models() []types.Model { return p.models }

// ChatModel returns the Eino-compatible ChatModel.
func (p *GeminiProvider) ChatModel() model.ToolCallingChatModel { return p.chatModel }

// CreateCompletion creates a streaming completion.
func (p *GeminiProvider) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionStream, error) {
	chatModel := p.chatModel
	if len(req.Tools) > 0 {
		var err error
		chatModel, err = chatModel.WithTools(req.Tools)
		if err != nil {
			return nil, fmt.Errorf("failed to bind tools: %w", err)
		}
	}

	stream, err := chatModel.Stream(ctx, req.Messages,
		model.WithMaxTokens(req.MaxTokens),
		model.WithTemperature(float32(req.Temperature)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create stream: %w", err)
	}

	return NewCompletionStream(stream), nil
}

// geminiChatModel adapts the genai SDK to Eino's ToolCallingChatModel
// interface (Generate / Stream / WithTools), translating the common
// Message/ToolCall shape into Gemini's functionCall/functionResponse
// convention described in the adapter design: tool results become
// functionResponse parts whose Name is the tool_call_id (Gemini reuses the
// function name as the call id), and an optional thoughtSignature is
// round-tripped through the message's Extra map so multi-turn thought
// continuity survives a history replay.
type geminiChatModel struct {
	client    *genai.Client
	modelName string
	maxTokens int
	tools     []*genai.Tool
}

const thoughtSignatureExtraKey = "gemini_thought_signature"

func (m *geminiChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	bound := &geminiChatModel{
		client:    m.client,
		modelName: m.modelName,
		maxTokens: m.maxTokens,
		tools:     toGeminiTools(tools),
	}
	return bound, nil
}

func (m *geminiChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	contents, systemInstruction := m.buildContents(input)
	config := m.buildConfig(systemInstruction, opts)

	resp, err := m.client.Models.GenerateContent(ctx, m.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generation failed: %w", err)
	}
	return m.parseResponse(resp)
}

func (m *geminiChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	contents, systemInstruction := m.buildContents(input)
	config := m.buildConfig(systemInstruction, opts)

	resp, err := m.client.Models.GenerateContent(ctx, m.modelName, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini streaming failed: %w", err)
	}

	final, err := m.parseResponse(resp)
	if err != nil {
		return nil, err
	}

	chunks := chunkGeminiText(final)
	return schema.StreamReaderFromArray(chunks), nil
}

// chunkGeminiText splits the aggregated response's text content into a few
// deltas so downstream consumers that expect incremental chunks (see
// internal/session/stream.go) still observe progressive text, while
// carrying tool calls, usage and finish reason on the final chunk.
func chunkGeminiText(final *schema.Message) []*schema.Message {
	if final.Content == "" {
		return []*schema.Message{final}
	}

	const chunkSize = 40
	text := final.Content
	var chunks []*schema.Message
	for len(text) > chunkSize {
		chunks = append(chunks, &schema.Message{Role: schema.Assistant, Content: text[:chunkSize]})
		text = text[chunkSize:]
	}

	last := &schema.Message{
		Role:         schema.Assistant,
		Content:      text,
		ToolCalls:    final.ToolCalls,
		ResponseMeta: final.ResponseMeta,
		Extra:        final.Extra,
	}
	chunks = append(chunks, last)
	return chunks
}

func (m *geminiChatModel) buildContents(messages []*schema.Message) ([]*genai.Content, *genai.Content) {
	var contents []*genai.Content
	var systemInstruction *genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case schema.System:
			if msg.Content != "" {
				systemInstruction = &genai.Content{Parts: []*genai.Part{{Text: msg.Content}}}
			}
		case schema.Tool:
			contents = append(contents, &genai.Content{
				Role: "user",
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						Name:     msg.ToolCallID,
						Response: map[string]any{"content": msg.Content},
					},
				}},
			})
		default:
			if content := m.messageToContent(msg); content != nil {
				contents = append(contents, content)
			}
		}
	}

	return contents, systemInstruction
}

func (m *geminiChatModel) messageToContent(msg *schema.Message) *genai.Content {
	var parts []*genai.Part

	if msg.Content != "" {
		parts = append(parts, &genai.Part{Text: msg.Content})
	}

	for _, part := range msg.MultiContent {
		if part.ImageURL == nil {
			continue
		}
		if data, mime, ok := decodeDataURL(part.ImageURL.URL); ok {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mime, Data: data}})
		}
	}

	for i, tc := range msg.ToolCalls {
		var args map[string]any
		_ = json.Unmarshal([]byte(tc.Function.Arguments), &args)
		fc := &genai.Part{FunctionCall: &genai.FunctionCall{
			Name: tc.Function.Name,
			Args: args,
		}}
		if sig, ok := extraString(msg.Extra, thoughtSignatureExtraKey, i); ok {
			fc.ThoughtSignature = []byte(sig)
		}
		parts = append(parts, fc)
	}

	if len(parts) == 0 {
		return nil
	}

	role := "user"
	if msg.Role == schema.Assistant {
		role = "model"
	}
	return &genai.Content{Role: role, Parts: parts}
}

// extraString looks up a per-tool-call signature stashed at
// Extra[key][index] during parseResponse.
func extraString(extra map[string]any, key string, index int) (string, bool) {
	raw, ok := extra[key]
	if !ok {
		return "", false
	}
	sigs, ok := raw.([]string)
	if !ok || index >= len(sigs) {
		return "", false
	}
	return sigs[index], sigs[index] != ""
}

func decodeDataURL(url string) (data []byte, mime string, ok bool) {
	if !strings.HasPrefix(url, "data:") {
		return nil, "", false
	}
	rest := strings.TrimPrefix(url, "data:")
	parts := strings.SplitN(rest, ",", 2)
	if len(parts) != 2 {
		return nil, "", false
	}
	meta := parts[0]
	mime = strings.TrimSuffix(meta, ";base64")
	decoded, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, "", false
	}
	return decoded, mime, true
}

func (m *geminiChatModel) buildConfig(systemInstruction *genai.Content, opts []model.Option) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{SystemInstruction: systemInstruction}

	o := model.GetCommonOptions(&model.Options{}, opts...)
	if o.MaxTokens != nil {
		config.MaxOutputTokens = int32(*o.MaxTokens)
	} else if m.maxTokens > 0 {
		config.MaxOutputTokens = int32(m.maxTokens)
	}
	if o.Temperature != nil {
		config.Temperature = genai.Ptr(*o.Temperature)
	}
	if o.TopP != nil {
		config.TopP = genai.Ptr(*o.TopP)
	}
	if len(o.Stop) > 0 {
		config.StopSequences = o.Stop
	}

	if len(m.tools) > 0 {
		config.Tools = m.tools
	}

	return config
}

func toGeminiTools(tools []*schema.ToolInfo) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decl := &genai.FunctionDeclaration{Name: t.Name, Description: t.Desc}
		if t.ParamsOneOf != nil {
			if oapi, err := t.ParamsOneOf.ToOpenAPIV3(); err == nil && oapi != nil {
				if b, err := json.Marshal(oapi); err == nil {
					var raw map[string]any
					if json.Unmarshal(b, &raw) == nil {
						decl.Parameters = toGenaiSchema(raw)
					}
				}
			}
		}
		decls = append(decls, decl)
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

// toGenaiSchema converts a plain JSON-Schema map (as produced by
// schema.ParamsOneOf.ToOpenAPIV3) into Gemini's typed Schema.
func toGenaiSchema(s map[string]any) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{}
	if t, ok := s["type"].(string); ok {
		out.Type = genai.Type(strings.ToUpper(t))
	}
	if desc, ok := s["description"].(string); ok {
		out.Description = desc
	}
	if props, ok := s["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, prop := range props {
			if propMap, ok := prop.(map[string]any); ok {
				out.Properties[name] = toGenaiSchema(propMap)
			}
		}
	}
	if required, ok := s["required"].([]any); ok {
		for _, r := range required {
			if rs, ok := r.(string); ok {
				out.Required = append(out.Required, rs)
			}
		}
	}
	if items, ok := s["items"].(map[string]any); ok {
		out.Items = toGenaiSchema(items)
	}
	return out
}

func (m *geminiChatModel) parseResponse(resp *genai.GenerateContentResponse) (*schema.Message, error) {
	if len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("empty response from gemini")
	}
	candidate := resp.Candidates[0]

	msg := &schema.Message{Role: schema.Assistant}
	var signatures []string

	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			switch {
			case part.Text != "":
				msg.Content += part.Text
			case part.FunctionCall != nil:
				argsJSON, _ := json.Marshal(part.FunctionCall.Args)
				idx := len(msg.ToolCalls)
				msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
					// Gemini has no durable call id; the function name
					// itself stands in for one, per the adapter convention.
					ID:    part.FunctionCall.Name,
					Index: &idx,
					Function: schema.FunctionCall{
						Name:      part.FunctionCall.Name,
						Arguments: string(argsJSON),
					},
				})
				signatures = append(signatures, string(part.ThoughtSignature))
			}
		}
	}

	if len(signatures) > 0 {
		msg.Extra = map[string]any{thoughtSignatureExtraKey: signatures}
	}

	finishReason := ""
	if candidate.FinishReason != "" {
		finishReason = string(candidate.FinishReason)
	}
	meta := &schema.ResponseMeta{FinishReason: finishReason}
	if resp.UsageMetadata != nil {
		meta.Usage = &schema.TokenUsage{
			PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
			CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	msg.ResponseMeta = meta

	return msg, nil
}

func geminiModels() []types.Model {
	return []types.Model{
		{
			ID:              "gemini-2.0-flash",
			Name:            "Gemini 2.0 Flash",
			ProviderID:      "gemini",
			ContextLength:   1048576,
			MaxOutputTokens: 8192,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      0.1,
			OutputPrice:     0.4,
		},
		{
			ID:              "gemini-1.5-pro",
			Name:            "Gemini 1.5 Pro",
			ProviderID:      "gemini",
			ContextLength:   2097152,
			MaxOutputTokens: 8192,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      1.25,
			OutputPrice:     5.0,
		},
		{
			ID:              "gemini-1.5-flash",
			Name:            "Gemini 1.5 Flash",
			ProviderID:      "gemini",
			ContextLength:   1048576,
			MaxOutputTokens: 8192,
			SupportsTools:   true,
			SupportsVision:  true,
			InputPrice:      0.075,
			OutputPrice:     0.3,
		},
	}
}

var _ model.ToolCallingChatModel = (*geminiChatModel)(nil)
