// Package guardrail gates incoming requests with a model-backed topic
// classifier. Only travel-related questions and greetings reach the agents;
// everything else gets a canned refusal. Classifier failures fail open so an
// unreachable model never blocks legitimate traffic.
package guardrail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tripmesh/tripmesh/core"
	"github.com/tripmesh/tripmesh/engine"
	"github.com/tripmesh/tripmesh/logging"
	"github.com/tripmesh/tripmesh/model"
)

// RefusalMessage is the reply sent for off-topic requests.
const RefusalMessage = "I can only help with travel-related questions and greetings. Please ask me about weather, accommodations, places to visit, or trip planning."

const classifierInstructions = `You are a topic classifier for a travel assistant.
Decide whether the user's message is a travel-related question or a greeting.
Travel topics include weather and forecasts, accommodations and hotels, places
to visit and attractions, and trip planning.

Respond with ONLY a JSON object, no prose and no code fences:
{"is_travel_query": <bool>, "is_greeting": <bool>, "reasoning": "<short explanation>"}`

// Classification is the classifier's verdict on one user message.
type Classification struct {
	IsTravelQuery bool   `json:"is_travel_query"`
	IsGreeting    bool   `json:"is_greeting"`
	Reasoning     string `json:"reasoning"`
}

// Allowed reports whether the message may proceed to the agents.
func (c Classification) Allowed() bool { return c.IsTravelQuery || c.IsGreeting }

// Classifier asks a model to categorize user messages. It issues a single
// non-streaming completion per message and parses the strict-JSON verdict.
type Classifier struct {
	llm    model.Model
	logger logging.Logger
}

// ClassifierOptions customizes a Classifier.
type ClassifierOptions struct {
	Logger logging.Logger
}

// NewClassifier creates a classifier backed by the given model.
func NewClassifier(llm model.Model, optFns ...func(o *ClassifierOptions)) *Classifier {
	opts := ClassifierOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Classifier{llm: llm, logger: opts.Logger}
}

// Classify categorizes one user message.
func (c *Classifier) Classify(ctx context.Context, text string) (Classification, error) {
	req := model.Request{
		Instructions: classifierInstructions,
		Contents: []core.Content{
			{Role: "user", Parts: []core.Part{core.TextPart{Text: text}}},
		},
	}

	respCh, errCh := c.llm.Generate(ctx, req)

	var raw strings.Builder
	for respCh != nil || errCh != nil {
		select {
		case resp, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if !resp.Partial {
				raw.WriteString(resp.Content.Text())
			}
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Classification{}, fmt.Errorf("classifier model: %w", err)
			}
		case <-ctx.Done():
			return Classification{}, ctx.Err()
		}
	}

	verdict, err := parseVerdict(raw.String())
	if err != nil {
		return Classification{}, err
	}

	c.logger.Debug("guardrail.classified",
		"is_travel_query", verdict.IsTravelQuery,
		"is_greeting", verdict.IsGreeting,
		"reasoning", verdict.Reasoning,
	)
	return verdict, nil
}

// parseVerdict decodes the classifier's JSON reply, tolerating code fences
// and surrounding prose some models add despite instructions.
func parseVerdict(s string) (Classification, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	// Fall back to the outermost braces when the reply embeds the object.
	if !strings.HasPrefix(s, "{") {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end < start {
			return Classification{}, fmt.Errorf("no JSON object in classifier reply")
		}
		s = s[start : end+1]
	}

	var verdict Classification
	if err := json.Unmarshal([]byte(s), &verdict); err != nil {
		return Classification{}, fmt.Errorf("decode classifier reply: %w", err)
	}
	return verdict, nil
}

// NewCallback wraps the classifier as a before-agent callback. Off-topic
// messages short-circuit the invocation with RefusalMessage; classifier
// errors are logged and the message passes through.
func NewCallback(c *Classifier) engine.Callback {
	return engine.NewCallback("travel_guardrail", func(ctx context.Context, cc *engine.CallbackContext) error {
		text := cc.RunContext.UserContent.Text()
		if text == "" {
			return nil
		}

		verdict, err := c.Classify(ctx, text)
		if err != nil {
			c.logger.Warn("guardrail.classify_failed", "error", err)
			return nil
		}
		if verdict.Allowed() {
			return nil
		}

		c.logger.Info("guardrail.refused", "reasoning", verdict.Reasoning)
		return &engine.Refusal{Message: RefusalMessage}
	})
}
