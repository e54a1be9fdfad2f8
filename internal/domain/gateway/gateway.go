// Package gateway turns a free-form instruction into a single candidate tool
// invocation by prompting the model backend and recovering the JSON object
// from its raw text output. It owns no business logic and holds no state
// between calls; validation of the candidate belongs to the dispatch engine.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/GeorgeMargineanu/toolgate/internal/domain/tool"
	"github.com/GeorgeMargineanu/toolgate/internal/infra/llm"
)

// ErrUnparseableOutput means no valid JSON object could be recovered from the
// model text. The wrapped message carries the raw output for diagnostics.
var ErrUnparseableOutput = errors.New("model output unparseable")

// rawTextLimit bounds how much model output is echoed into error messages.
const rawTextLimit = 512

const systemPrompt = "You are an assistant that selects exactly one tool call for the user's request. " +
	"Respond with ONLY a single valid JSON object and nothing else."

const promptTemplate = `The JSON object must have these fields:
- "tool": string, the name of one tool from the list below
- "args": object, arguments matching the tool's schema
- "explain": optional string, a short justification

Available tools:
%s
User request: %q

Return the JSON object now.`

// Gateway renders the prompt, calls the backend under a hard deadline, and
// extracts the candidate invocation object.
type Gateway struct {
	provider  llm.Provider
	registry  *tool.Registry
	timeout   time.Duration
	maxTokens int
}

// New builds a Gateway. The registry is only read to render the tool list;
// it must already be sealed.
func New(provider llm.Provider, registry *tool.Registry, timeout time.Duration, maxTokens int) *Gateway {
	return &Gateway{
		provider:  provider,
		registry:  registry,
		timeout:   timeout,
		maxTokens: maxTokens,
	}
}

// Interpret asks the model which tool to run for the instruction and returns
// the raw candidate JSON object. Backend failures surface as
// llm.ErrBackendTimeout / llm.ErrBackendUnavailable; unrecoverable output as
// ErrUnparseableOutput. No default invocation is ever substituted.
func (g *Gateway) Interpret(ctx context.Context, instruction string) (json.RawMessage, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.provider.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: g.renderPrompt(instruction)},
		},
		Temperature: 0,
		MaxTokens:   g.maxTokens,
	})
	if err != nil {
		return nil, err
	}

	extracted, err := ExtractJSONObject(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: raw output %q", ErrUnparseableOutput, err, truncate(resp.Content, rawTextLimit))
	}
	if !json.Valid([]byte(extracted)) {
		return nil, fmt.Errorf("%w: malformed JSON: raw output %q", ErrUnparseableOutput, truncate(resp.Content, rawTextLimit))
	}

	return json.RawMessage(extracted), nil
}

// renderPrompt lists every registered tool with its argument schema so the
// model can only pick from the closed set.
func (g *Gateway) renderPrompt(instruction string) string {
	var b strings.Builder
	for _, c := range g.registry.Contracts() {
		fmt.Fprintf(&b, "- %s: %s\n  args schema: %s\n", c.Name, c.Description, c.Schema.JSON())
	}
	return fmt.Sprintf(promptTemplate, b.String(), instruction)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
