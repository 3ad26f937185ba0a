// Package llm issues structured requests to chat models and shields callers
// from provider unreliability: malformed responses are re-tried a bounded
// number of times and total failure degrades to a schema-derived default, so
// a call never errors past this package.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"hedgego/internal/progress"
)

const defaultMaxRetries = 3

// retryDelay spaces attempts out so a flapping provider is not hammered.
var retryDelay = 200 * time.Millisecond

// Request describes one structured model call. Either Model or Factory must
// be set; Model wins when both are.
type Request[T any] struct {
	Messages      []*schema.Message
	ModelName     string
	ModelProvider string
	Schema        *Schema

	AgentName  string
	MaxRetries int      // total attempts, default 3
	Default    func() T // fallback factory, overrides the schema default

	Model    model.BaseChatModel
	Factory  Factory
	Progress progress.Sink
}

// Call invokes the model and returns a value conforming to req.Schema. It
// never returns an error: after the last failed attempt the fallback factory
// or the schema-derived default is returned instead.
func Call[T any](ctx context.Context, req Request[T]) T {
	sink := req.Progress
	if sink == nil {
		sink = progress.Nop{}
	}
	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	chatModel := req.Model
	if chatModel == nil && req.Factory != nil {
		m, err := req.Factory(ctx, req.ModelName, req.ModelProvider)
		if err != nil {
			log.Printf("llm: resolving %s/%s failed: %v", req.ModelProvider, req.ModelName, err)
			report(sink, req.AgentName, "", "Failed - using default response")
			return fallback(req)
		}
		chatModel = m
	}
	if chatModel == nil {
		log.Printf("llm: no model available for %s/%s", req.ModelProvider, req.ModelName)
		report(sink, req.AgentName, "", "Failed - using default response")
		return fallback(req)
	}

	// Unknown models are assumed to speak JSON natively; known models
	// without JSON mode go through the extraction chain.
	jsonMode := true
	if info := GetModelInfo(req.ModelName, req.ModelProvider); info != nil {
		jsonMode = info.JSONMode
	}

	messages := req.Messages
	if req.Schema != nil {
		messages = append([]*schema.Message{schema.SystemMessage(req.Schema.Instruction())}, messages...)
	}

	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(retryDelay)
		}

		out, err := attemptOnce[T](ctx, chatModel, messages, req.Schema, jsonMode)
		if err == nil {
			return out
		}
		log.Printf("llm: %s attempt %d/%d failed: %v", req.AgentName, attempt+1, maxRetries, err)
		report(sink, req.AgentName, "", fmt.Sprintf("Error - retry %d/%d", attempt+1, maxRetries))
	}

	report(sink, req.AgentName, "", "Failed - using default response")
	return fallback(req)
}

func attemptOnce[T any](ctx context.Context, chatModel model.BaseChatModel, messages []*schema.Message, s *Schema, jsonMode bool) (T, error) {
	var zero T

	msg, err := chatModel.Generate(ctx, messages)
	if err != nil {
		return zero, fmt.Errorf("generate: %w", err)
	}

	var parsed map[string]any
	if jsonMode {
		if err := json.Unmarshal([]byte(msg.Content), &parsed); err != nil {
			return zero, fmt.Errorf("parse structured response: %w", err)
		}
	} else {
		parsed, err = ExtractJSON(msg.Content)
		if err != nil {
			return zero, err
		}
	}

	if s != nil {
		if err := s.Validate(parsed); err != nil {
			return zero, err
		}
	}
	return decode[T](parsed)
}

func fallback[T any](req Request[T]) T {
	if req.Default != nil {
		return req.Default()
	}
	var zero T
	if req.Schema == nil {
		return zero
	}
	out, err := decode[T](req.Schema.Default())
	if err != nil {
		log.Printf("llm: decoding schema default: %v", err)
		return zero
	}
	return out
}

func decode[T any](value map[string]any) (T, error) {
	var out T
	raw, err := json.Marshal(value)
	if err != nil {
		return out, fmt.Errorf("encode response: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("decode response: %w", err)
	}
	return out, nil
}

// report forwards a status update, swallowing any sink misbehavior. Status
// reporting is advisory and must never take down a run.
func report(sink progress.Sink, agent, ticker, status string) {
	defer func() {
		_ = recover()
	}()
	sink.UpdateStatus(agent, ticker, status)
}
