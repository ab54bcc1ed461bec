package types

// CompletionRequest is a provider-agnostic, non-streaming completion call.
type CompletionRequest struct {
	// Model is the provider-local model name, without the provider prefix.
	Model string `json:"model"`

	// Messages is the conversation so far, oldest first.
	Messages []Message `json:"messages"`

	// MaxTokens caps the reply length. Zero lets the provider default apply.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature and TopP are optional sampling controls; nil keeps the
	// provider default.
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
}

// CompletionResponse is the provider-agnostic completion result.
type CompletionResponse struct {
	// Text is the assistant reply.
	Text string `json:"text"`

	// Model is the fully qualified model that produced the reply, in
	// provider/model form.
	Model string `json:"model"`

	Usage Usage `json:"usage"`
}

// Usage reports token consumption for one completion.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}
