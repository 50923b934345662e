package processing

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/shahram8708/PromptX/internal/config"
)

// Script is the generated narration text plus the stock-footage search
// keywords derived from it.
type Script struct {
	Body     string
	Keywords []string
}

// ScriptResponse represents the structured JSON response from OpenAI.
type ScriptResponse struct {
	Script   string   `json:"script" jsonschema_description:"A natural, spoken-style narration script suitable for AI voiceover only. No visual instructions, camera directions, or meta descriptions."`
	Keywords []string `json:"keywords" jsonschema_description:"3-5 descriptive keywords for finding related stock footage, e.g. 'home repair' rather than just 'home'."`
}

// GenerateSchema generates a JSON schema for structured outputs
func GenerateSchema[T any]() interface{} {
	// Structured Outputs uses a subset of JSON schema
	// These flags are necessary to comply with the subset
	reflector := &jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	schema := reflector.Reflect(v)
	return schema
}

// scriptResponseSchema is the cached schema
var scriptResponseSchema = GenerateSchema[ScriptResponse]()

// Generator calls the generative-text service to turn a user prompt into a
// narration script. A failed or malformed response degrades to a
// deterministic fallback — this stage never stalls the pipeline.
type Generator struct {
	client openai.Client
	cfg    config.ScriptConfig
}

func NewGenerator(apiKey string, cfg config.ScriptConfig) *Generator {
	return &Generator{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		cfg:    cfg,
	}
}

// Generate produces a Script for the prompt. It always returns a usable
// script; upstream failures are absorbed via the templated fallback.
func (g *Generator) Generate(ctx context.Context, prompt string) *Script {
	ctx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutSec)*time.Second)
	defer cancel()

	resp, err := g.callModel(ctx, prompt)
	if err != nil {
		log.Printf("[script] generation failed: %v — using fallback script", err)
		return FallbackScript(prompt, g.cfg)
	}
	return Normalize(*resp, prompt, g.cfg)
}

func (g *Generator) callModel(ctx context.Context, prompt string) (*ScriptResponse, error) {
	userPrompt := fmt.Sprintf(`%s

You are an expert scriptwriter. Convert the input into a natural, spoken-style script suitable ONLY for AI voice narration.

Requirements for the script:
- %d-%d words long
- Clear, natural, and conversational, like something a person would say aloud in a video
- No visual instructions like 'show this' or 'use this footage'
- No camera directions or editing notes
- No meta descriptions like 'this video is about...'
- Must sound like a complete voiceover narration from start to end

Requirements for keywords:
- %d-%d entries
- Relevant to the topic
- Good for finding related stock footage
- Descriptive, not too broad (e.g., 'home repair', not just 'home')`,
		prompt, g.cfg.MinWords, g.cfg.MaxWords, g.cfg.MinKeywords, g.cfg.MaxKeywords)

	schemaParam := openai.ResponseFormatJSONSchemaJSONSchemaParam{
		Name:        "narration_script",
		Description: openai.String("A narration script and stock-footage keywords"),
		Schema:      scriptResponseSchema,
		Strict:      openai.Bool(true),
	}

	chatCompletion, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(userPrompt),
		},
		Model: openai.ChatModel(g.cfg.Model),
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: schemaParam,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(chatCompletion.Choices) == 0 {
		return nil, fmt.Errorf("no response from OpenAI")
	}

	rawResponse := chatCompletion.Choices[0].Message.Content
	if rawResponse == "" {
		return nil, fmt.Errorf("OpenAI returned empty response. Finish reason: %s", chatCompletion.Choices[0].FinishReason)
	}

	// Structured output should be clean JSON, but models occasionally wrap
	// it in prose. Decode the outermost object.
	var resp ScriptResponse
	if err := json.Unmarshal([]byte(extractJSON(rawResponse)), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI JSON response: %w", err)
	}
	return &resp, nil
}

// extractJSON returns the outermost {...} block of s, or s unchanged when no
// braces are present.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end < start {
		return s
	}
	return s[start : end+1]
}

// Normalize turns a raw service response into a valid Script: non-empty
// body, keyword list clamped to the configured bounds, lower-cased and
// deduplicated for search matching.
func Normalize(resp ScriptResponse, prompt string, cfg config.ScriptConfig) *Script {
	body := strings.TrimSpace(resp.Script)
	if body == "" {
		return FallbackScript(prompt, cfg)
	}

	keywords := cleanKeywords(resp.Keywords)
	if len(keywords) == 0 {
		// Malformed or missing keyword field: derive keywords from the
		// body itself.
		keywords = ExtractKeywords(body, cfg.MaxKeywords)
	}
	if len(keywords) == 0 {
		keywords = ExtractKeywords(prompt, cfg.MaxKeywords)
	}
	keywords = padKeywords(keywords, cfg.MinKeywords)
	if len(keywords) > cfg.MaxKeywords {
		keywords = keywords[:cfg.MaxKeywords]
	}

	return &Script{Body: body, Keywords: keywords}
}

// FallbackScript builds a deterministic templated script from the raw
// prompt so the pipeline never stalls on the generation service.
func FallbackScript(prompt string, cfg config.ScriptConfig) *Script {
	body := fmt.Sprintf("This is an engaging video about %s. "+
		"The topic covers important aspects that are relevant to modern audiences. "+
		"Through careful analysis and presentation, we explore the key concepts and their implications. "+
		"This content provides valuable insights and practical information for viewers interested in learning more about this subject.",
		strings.TrimSpace(prompt))

	keywords := ExtractKeywords(prompt, cfg.MaxKeywords)
	keywords = padKeywords(keywords, cfg.MinKeywords)
	if len(keywords) > cfg.MaxKeywords {
		keywords = keywords[:cfg.MaxKeywords]
	}
	return &Script{Body: body, Keywords: keywords}
}

func cleanKeywords(raw []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kw := range raw {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" || seen[kw] {
			continue
		}
		seen[kw] = true
		out = append(out, kw)
	}
	return out
}

// padKeywords tops up short keyword lists with generic stock-search terms
// so the footage stage always has at least min keywords to work with.
func padKeywords(keywords []string, min int) []string {
	defaults := []string{"technology", "business", "modern", "nature", "city"}
	seen := make(map[string]bool)
	for _, kw := range keywords {
		seen[kw] = true
	}
	for _, d := range defaults {
		if len(keywords) >= min {
			break
		}
		if !seen[d] {
			keywords = append(keywords, d)
			seen[d] = true
		}
	}
	return keywords
}
