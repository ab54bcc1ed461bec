// Package gemini implements the Google Gemini inference provider on top of
// the official genai SDK.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/vango-go/frontdesk/pkg/core"
	"github.com/vango-go/frontdesk/pkg/core/types"
)

// Provider implements the Gemini API.
type Provider struct {
	client *genai.Client
}

// New creates a new Gemini provider. The context is used only for client
// construction, not for later requests.
func New(ctx context.Context, apiKey string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Provider{client: client}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string {
	return "gemini"
}

// Complete sends a non-streaming request to Gemini.
func (p *Provider) Complete(ctx context.Context, req *types.CompletionRequest) (*types.CompletionResponse, error) {
	contents, config := buildRequest(req)

	resp, err := p.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		return nil, core.NewProviderError("gemini", err)
	}

	text := resp.Text()
	if text == "" && len(resp.Candidates) == 0 {
		return nil, core.NewAPIError("gemini returned no candidates")
	}

	out := &types.CompletionResponse{
		Text:  text,
		Model: "gemini/" + req.Model,
	}
	if resp.UsageMetadata != nil {
		out.Usage = types.Usage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
		}
	}
	return out, nil
}

// buildRequest converts a completion request to the genai request shape.
// Gemini carries the system prompt out of band and only knows user and
// model roles, so system messages become the system instruction and tool
// notes ride along as model turns.
func buildRequest(req *types.CompletionRequest) ([]*genai.Content, *genai.GenerateContentConfig) {
	config := &genai.GenerateContentConfig{}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.Temperature != nil {
		config.Temperature = genai.Ptr(float32(*req.Temperature))
	}
	if req.TopP != nil {
		config.TopP = genai.Ptr(float32(*req.TopP))
	}

	var system []string
	contents := make([]*genai.Content, 0, len(req.Messages))
	for _, msg := range req.Messages {
		switch msg.Role {
		case types.RoleSystem:
			system = append(system, msg.Content)
		case types.RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		}
	}
	if len(system) > 0 {
		config.SystemInstruction = genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)
	}
	return contents, config
}
