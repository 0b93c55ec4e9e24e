// Package modelanthropic adapts the loop's model contract to the Anthropic
// Messages API. The remote model is the only source of nondeterminism in
// the system; everything it returns is treated as untrusted input.
package modelanthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/organize-agent/organize/internal/agent"
)

const (
	defaultBaseURL   = "https://api.anthropic.com"
	defaultEndpoint  = "/v1/messages"
	defaultTimeout   = 60 * time.Second
	defaultMaxTokens = 4096

	apiVersion = "2023-06-01"
)

type Config struct {
	APIKey     string
	Model      string
	BaseURL    string
	MaxTokens  int
	HTTPClient *http.Client
}

type Adapter struct {
	apiKey      string
	model       string
	endpointURL string
	maxTokens   int
	httpClient  *http.Client
}

var _ agent.Model = (*Adapter)(nil)

func New(cfg Config) (*Adapter, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("new model adapter: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		return nil, fmt.Errorf("new model adapter: model is required")
	}

	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}

	return &Adapter{
		apiKey:      apiKey,
		model:       model,
		endpointURL: strings.TrimRight(baseURL, "/") + defaultEndpoint,
		maxTokens:   maxTokens,
		httpClient:  httpClient,
	}, nil
}

// StatusError reports a non-2xx provider response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider response status=%d body=%s", e.StatusCode, e.Body)
}

// Retryable classifies a Generate error for the retry policy: rate limits,
// server faults, and transport failures are worth retrying; other client
// errors and cancellations are not.
func Retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return true
}

func (a *Adapter) Generate(ctx context.Context, request agent.ModelRequest) (agent.Message, error) {
	payload, err := buildRequest(a.model, a.maxTokens, request)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request encode: %w", err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpointURL, bytes.NewReader(encoded))
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request build: %w", err)
	}
	httpRequest.Header.Set("x-api-key", a.apiKey)
	httpRequest.Header.Set("anthropic-version", apiVersion)
	httpRequest.Header.Set("Content-Type", "application/json")

	response, err := a.httpClient.Do(httpRequest)
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider request execute: %w", err)
	}
	defer response.Body.Close()

	bodyBytes, err := io.ReadAll(io.LimitReader(response.Body, 2<<20))
	if err != nil {
		return agent.Message{}, fmt.Errorf("provider response read: %w", err)
	}
	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return agent.Message{}, &StatusError{
			StatusCode: response.StatusCode,
			Body:       string(bodyBytes),
		}
	}

	var parsed messagesResponse
	if err := json.Unmarshal(bodyBytes, &parsed); err != nil {
		return agent.Message{}, fmt.Errorf("provider response decode: %w", err)
	}
	return toAgentMessage(parsed)
}

type messagesRequest struct {
	Model     string        `json:"model"`
	MaxTokens int           `json:"max_tokens"`
	System    string        `json:"system,omitempty"`
	Tools     []wireTool    `json:"tools,omitempty"`
	Messages  []wireMessage `json:"messages"`
}

type wireTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

type wireMessage struct {
	Role    string      `json:"role"`
	Content []wireBlock `json:"content"`
}

type wireBlock struct {
	Type string `json:"type"`

	// text
	Text string `json:"text,omitempty"`

	// tool_use
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`
	IsError   bool   `json:"is_error,omitempty"`
}

type messagesResponse struct {
	Content    []wireBlock `json:"content"`
	StopReason string      `json:"stop_reason"`
}

// buildRequest serializes the transcript. System turns become the
// top-level system field; consecutive tool turns merge into one user
// message holding their tool_result blocks, which the API requires.
func buildRequest(model string, maxTokens int, request agent.ModelRequest) (messagesRequest, error) {
	var systemParts []string
	messages := make([]wireMessage, 0, len(request.Messages))

	for i := range request.Messages {
		message := request.Messages[i]
		switch message.Role {
		case agent.RoleSystem:
			systemParts = append(systemParts, message.Content)
		case agent.RoleUser:
			messages = append(messages, wireMessage{
				Role:    "user",
				Content: []wireBlock{{Type: "text", Text: message.Content}},
			})
		case agent.RoleAssistant:
			blocks := make([]wireBlock, 0, len(message.ToolCalls)+1)
			if message.Content != "" {
				blocks = append(blocks, wireBlock{Type: "text", Text: message.Content})
			}
			for _, call := range message.ToolCalls {
				input := call.Arguments
				if input == nil {
					input = map[string]any{}
				}
				blocks = append(blocks, wireBlock{
					Type:  "tool_use",
					ID:    call.ID,
					Name:  call.Name,
					Input: input,
				})
			}
			if len(blocks) == 0 {
				return messagesRequest{}, fmt.Errorf("assistant message at index %d has no content", i)
			}
			messages = append(messages, wireMessage{Role: "assistant", Content: blocks})
		case agent.RoleTool:
			if strings.TrimSpace(message.ToolCallID) == "" {
				return messagesRequest{}, fmt.Errorf("tool message at index %d missing tool_call_id", i)
			}
			block := wireBlock{
				Type:      "tool_result",
				ToolUseID: message.ToolCallID,
				Content:   message.Content,
				IsError:   message.IsError,
			}
			if last := len(messages) - 1; last >= 0 &&
				messages[last].Role == "user" &&
				len(messages[last].Content) > 0 &&
				messages[last].Content[0].Type == "tool_result" {
				messages[last].Content = append(messages[last].Content, block)
			} else {
				messages = append(messages, wireMessage{Role: "user", Content: []wireBlock{block}})
			}
		default:
			return messagesRequest{}, fmt.Errorf("unsupported message role %q", message.Role)
		}
	}

	tools := make([]wireTool, len(request.Tools))
	for i := range request.Tools {
		schema := request.Tools[i].InputSchema
		if schema == nil {
			schema = map[string]any{"type": "object"}
		}
		tools[i] = wireTool{
			Name:        request.Tools[i].Name,
			Description: request.Tools[i].Description,
			InputSchema: schema,
		}
	}

	return messagesRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    strings.Join(systemParts, "\n\n"),
		Tools:     tools,
		Messages:  messages,
	}, nil
}

func toAgentMessage(response messagesResponse) (agent.Message, error) {
	var textParts []string
	var toolCalls []agent.ToolCall

	for i, block := range response.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				textParts = append(textParts, block.Text)
			}
		case "tool_use":
			if block.Name == "" {
				return agent.Message{}, fmt.Errorf("provider response decode: tool_use block %d has no name", i)
			}
			input := block.Input
			if input == nil {
				input = map[string]any{}
			}
			toolCalls = append(toolCalls, agent.ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: input,
			})
		default:
			// Unknown block types are skipped rather than failing the turn.
		}
	}

	return agent.Message{
		Role:       agent.RoleAssistant,
		Content:    strings.Join(textParts, "\n"),
		ToolCalls:  toolCalls,
		StopReason: toStopReason(response.StopReason),
	}, nil
}

func toStopReason(raw string) agent.StopReason {
	switch raw {
	case "end_turn":
		return agent.StopReasonEndTurn
	case "tool_use":
		return agent.StopReasonToolUse
	default:
		return agent.StopReason(raw)
	}
}
