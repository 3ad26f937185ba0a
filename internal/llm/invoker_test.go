package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

func init() {
	retryDelay = time.Millisecond
}

// fakeChatModel replays canned responses (or errors) in order.
type fakeChatModel struct {
	responses []string
	errs      []error
	calls     int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	i := f.calls
	f.calls++
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i < len(f.responses) {
		return schema.AssistantMessage(f.responses[i], nil), nil
	}
	return nil, errors.New("no more canned responses")
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

type tickerSignal struct {
	Signal     string  `json:"signal"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

func signalSchema() *Schema {
	return &Schema{
		Name: "TickerSignal",
		Fields: []Field{
			{Name: "signal", Kind: KindEnum, Options: []string{"neutral", "bullish", "bearish"}},
			{Name: "confidence", Kind: KindNumber},
			{Name: "reasoning", Kind: KindString},
		},
	}
}

func TestCallAlwaysFailingProviderReturnsSchemaDefault(t *testing.T) {
	fake := &fakeChatModel{errs: []error{errors.New("boom"), errors.New("boom"), errors.New("boom")}}

	out := Call(context.Background(), Request[tickerSignal]{
		Messages:      []*schema.Message{schema.UserMessage("analyze")},
		ModelName:     "gpt-4o",
		ModelProvider: ProviderOpenAI,
		Schema:        signalSchema(),
		MaxRetries:    3,
		Model:         fake,
	})

	if fake.calls != 3 {
		t.Fatalf("expected exactly 3 attempts, got %d", fake.calls)
	}
	if out.Signal != "neutral" {
		t.Errorf("enum default should be first option, got %q", out.Signal)
	}
	if out.Confidence != 0 {
		t.Errorf("number default should be zero, got %v", out.Confidence)
	}
	if out.Reasoning != "" {
		t.Errorf("string default should be empty, got %q", out.Reasoning)
	}
}

func TestCallRecoversOnThirdAttempt(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		"not json at all",
		"still {broken",
		"```json\n{\"signal\":\"bullish\",\"confidence\":80,\"reasoning\":\"momentum\"}\n```",
	}}

	out := Call(context.Background(), Request[tickerSignal]{
		Messages:      []*schema.Message{schema.UserMessage("analyze")},
		ModelName:     "deepseek-reasoner",
		ModelProvider: ProviderDeepSeek,
		Schema:        signalSchema(),
		Model:         fake,
	})

	if fake.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", fake.calls)
	}
	if out.Signal != "bullish" || out.Confidence != 80 || out.Reasoning != "momentum" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestCallUsesFallbackFactory(t *testing.T) {
	fake := &fakeChatModel{errs: []error{errors.New("down"), errors.New("down")}}

	out := Call(context.Background(), Request[tickerSignal]{
		ModelName:     "gpt-4o",
		ModelProvider: ProviderOpenAI,
		Schema:        signalSchema(),
		MaxRetries:    2,
		Model:         fake,
		Default: func() tickerSignal {
			return tickerSignal{Signal: "neutral", Confidence: 50, Reasoning: "provider unavailable"}
		},
	})

	if out.Confidence != 50 || out.Reasoning != "provider unavailable" {
		t.Fatalf("fallback factory not used: %+v", out)
	}
}

func TestCallRejectsInvalidEnumValue(t *testing.T) {
	fake := &fakeChatModel{responses: []string{
		`{"signal":"sideways","confidence":10,"reasoning":"?"}`,
		`{"signal":"bearish","confidence":10,"reasoning":"ok"}`,
	}}

	out := Call(context.Background(), Request[tickerSignal]{
		ModelName:     "gpt-4o",
		ModelProvider: ProviderOpenAI,
		Schema:        signalSchema(),
		Model:         fake,
	})

	if fake.calls != 2 {
		t.Fatalf("invalid enum should cost one attempt, got %d calls", fake.calls)
	}
	if out.Signal != "bearish" {
		t.Fatalf("expected bearish after retry, got %q", out.Signal)
	}
}

func TestExtractJSONStripsThinkBlockAndFence(t *testing.T) {
	raw := "<think>ignored</think>```json\n{\"signal\":\"bullish\"}\n```"
	got, err := ExtractJSON(raw)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got["signal"] != "bullish" {
		t.Fatalf("expected bullish, got %v", got["signal"])
	}
}

func TestExtractJSONFallsBackToWholeText(t *testing.T) {
	got, err := ExtractJSON(`{"confidence": 42}`)
	if err != nil {
		t.Fatalf("ExtractJSON: %v", err)
	}
	if got["confidence"] != 42.0 {
		t.Fatalf("expected 42, got %v", got["confidence"])
	}
}

func TestExtractJSONRejectsGarbage(t *testing.T) {
	if _, err := ExtractJSON("nothing structured here"); err == nil {
		t.Fatal("expected error for unparseable content")
	}
}

func TestSchemaDefaultCoversEveryKind(t *testing.T) {
	s := &Schema{
		Name: "Mixed",
		Fields: []Field{
			{Name: "note", Kind: KindString},
			{Name: "score", Kind: KindNumber},
			{Name: "decisions", Kind: KindMapping},
			{Name: "action", Kind: KindEnum, Options: []string{"hold", "buy"}},
			{Name: "extra", Kind: KindOptional},
		},
	}
	d := s.Default()
	if d["note"] != "" || d["score"] != 0.0 || d["action"] != "hold" {
		t.Fatalf("unexpected defaults: %v", d)
	}
	if m, ok := d["decisions"].(map[string]any); !ok || len(m) != 0 {
		t.Fatalf("mapping default should be empty object: %v", d["decisions"])
	}
	if d["extra"] != nil {
		t.Fatalf("optional default should be null: %v", d["extra"])
	}
	if err := s.Validate(d); err != nil {
		t.Fatalf("schema default must validate: %v", err)
	}
}

// panicking sink: advisory reporting must never take down a call.
type panicSink struct{}

func (panicSink) UpdateStatus(agent, ticker, status string) { panic("sink exploded") }

func TestCallSurvivesPanickingSink(t *testing.T) {
	fake := &fakeChatModel{errs: []error{errors.New("down")}}
	out := Call(context.Background(), Request[tickerSignal]{
		ModelName:     "gpt-4o",
		ModelProvider: ProviderOpenAI,
		Schema:        signalSchema(),
		MaxRetries:    1,
		Model:         fake,
		Progress:      panicSink{},
	})
	if out.Signal != "neutral" {
		t.Fatalf("expected schema default, got %+v", out)
	}
}
