// Package flops estimates the computational cost of a free-text project
// request by chaining three structured OpenAI calls: estimate, restate as a
// full project description, then refine the estimate against the description.
package flops

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Analyzer runs the estimate/explain/refine chain.
type Analyzer struct {
	client openai.Client
	model  shared.ChatModel
}

// NewAnalyzer creates an analyzer. It reads the OPENAI_API_KEY environment
// variable for authentication.
func NewAnalyzer() (*Analyzer, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY environment variable not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Analyzer{
		client: client,
		model:  shared.ChatModel("gpt-4.1-mini"),
	}, nil
}

type verifyResult struct {
	Compute  float64 `json:"compute"`
	Question string  `json:"question"`
}

type explainResult struct {
	ProjectDescription string `json:"project_description"`
}

type refineResult struct {
	Compute int64 `json:"compute"`
}

// Analyze turns a request into a FLOPs estimate and a supporting project
// description. Each stage degrades to a defined default on failure instead of
// propagating, so the result is always usable.
func (a *Analyzer) Analyze(ctx context.Context, text string) (float64, string) {
	compute := 0.0
	question := text

	verify, err := a.verifyUnderstanding(ctx, text)
	if err != nil {
		log.Printf("flops: verify stage failed: %v", err)
		return 0, err.Error()
	}
	compute = verify.Compute
	question = verify.Question

	description := ""
	explain, err := a.explainQuestion(ctx, text, question)
	if err != nil {
		log.Printf("flops: explain stage failed: %v", err)
		description = err.Error()
	} else {
		description = explain.ProjectDescription
	}

	refine, err := a.refineFromDescription(ctx, text, question, description)
	if err != nil {
		log.Printf("flops: refine stage failed, keeping initial estimate: %v", err)
		return compute, description
	}

	return float64(refine.Compute), description
}

func (a *Analyzer) verifyUnderstanding(ctx context.Context, text string) (*verifyResult, error) {
	args, err := a.call(ctx, "verify_understanding",
		"Calculate computation for a user's project. Always produce a numeric answer.",
		shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"compute": map[string]any{
					"type":        "number",
					"description": "The calculated FLOPS. Hallucinate if input is unclear.",
				},
				"question": map[string]any{
					"type":        "string",
					"description": "Restate the user's question or hallucinate a plausible one.",
				},
			},
			"required": []string{"compute", "question"},
		},
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptVerify),
			openai.UserMessage(text),
		})
	if err != nil {
		return nil, err
	}

	var result verifyResult
	if err := json.Unmarshal([]byte(args), &result); err != nil {
		return nil, fmt.Errorf("parse verify arguments: %w", err)
	}
	return &result, nil
}

func (a *Analyzer) explainQuestion(ctx context.Context, text, question string) (*explainResult, error) {
	args, err := a.call(ctx, "explain_question",
		"Explain or expand the user's project request. Hallucinate if unclear.",
		shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"project_description": map[string]any{
					"type":        "string",
					"description": "A detailed, self-contained computing project description.",
				},
			},
			"required": []string{"project_description"},
		},
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptUnderstand),
			openai.UserMessage(text),
			openai.AssistantMessage(question),
		})
	if err != nil {
		return nil, err
	}

	var result explainResult
	if err := json.Unmarshal([]byte(args), &result); err != nil {
		return nil, fmt.Errorf("parse explain arguments: %w", err)
	}
	return &result, nil
}

func (a *Analyzer) refineFromDescription(ctx context.Context, text, question, description string) (*refineResult, error) {
	args, err := a.call(ctx, "refine",
		"Calculate FLOPs for a user's project. Must return an integer.",
		shared.FunctionParameters{
			"type": "object",
			"properties": map[string]any{
				"compute": map[string]any{
					"type":        "integer",
					"description": "FLOPs as integer.",
				},
			},
			"required": []string{"compute"},
		},
		[]openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPromptFewShot),
			openai.UserMessage(text),
			openai.AssistantMessage(question),
			openai.AssistantMessage(description),
		})
	if err != nil {
		return nil, err
	}

	var result refineResult
	if err := json.Unmarshal([]byte(args), &result); err != nil {
		return nil, fmt.Errorf("parse refine arguments: %w", err)
	}
	return &result, nil
}

// call performs one chat completion with a single forced function call and
// returns the raw JSON arguments of that call.
func (a *Analyzer) call(ctx context.Context, name, description string, params shared.FunctionParameters, messages []openai.ChatCompletionMessageParamUnion) (string, error) {
	resp, err := a.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    a.model,
		Messages: messages,
		Tools: []openai.ChatCompletionToolUnionParam{
			openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
				Name:        name,
				Description: openai.String(description),
				Parameters:  params,
			}),
		},
		ToolChoice: openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{Name: name},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s completion: %w", name, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: no choices returned", name)
	}
	calls := resp.Choices[0].Message.ToolCalls
	if len(calls) == 0 {
		return "", fmt.Errorf("%s: no tool call returned", name)
	}
	return calls[0].Function.Arguments, nil
}
