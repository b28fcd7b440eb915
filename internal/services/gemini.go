package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"log"

	"github.com/google/generative-ai-go/genai"

	"google.golang.org/api/option"

	"videonotes-backend/internal/analysis"
	"videonotes-backend/internal/models"
	"videonotes-backend/internal/pipeline"
	"videonotes-backend/internal/transcript"
)

// sectionDescriptions drive the prompt; keys match models.SectionKeys.
var sectionDescriptions = map[string]string{
	"topic_breakdown":           "Main topics with details",
	"key_vocabulary":            "Important terms and definitions",
	"formulas_and_principles":   "Key formulas and principles",
	"teacher_insights":          "Instructor explanations",
	"exam_focus_points":         "Likely exam questions",
	"common_mistakes_explained": "Frequent errors and reasons",
	"key_points":                "Essential takeaways",
	"short_tricks":              "Quick methods",
	"must_remembers":            "Critical facts",
}

type GeminiService struct {
	client       *genai.Client
	defaultModel string
	allowed      map[string]bool
	rateChan     chan struct{} // Token bucket
}

// NewGeminiService builds the generation client. An empty API key is not
// an error here: every analysis call will short-circuit with a
// MissingCredential failure before reaching the provider.
func NewGeminiService(apiKey, defaultModel string, extraModels []string, concurrentReqs int) (*GeminiService, error) {
	s := &GeminiService{
		defaultModel: defaultModel,
		allowed:      map[string]bool{defaultModel: true},
	}
	for _, m := range extraModels {
		s.allowed[m] = true
	}

	if apiKey != "" {
		client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
		if err != nil {
			return nil, fmt.Errorf("failed to create Gemini client: %w", err)
		}
		s.client = client
	} else {
		log.Println("WARNING: GEMINI_API_KEY not set; note generation will fail until configured")
	}

	if concurrentReqs < 1 {
		concurrentReqs = 1
	}
	s.rateChan = make(chan struct{}, concurrentReqs)
	for i := 0; i < concurrentReqs; i++ {
		s.rateChan <- struct{}{}
	}

	return s, nil
}

func (s *GeminiService) Close() {
	if s.client != nil {
		s.client.Close()
	}
}

// acquireRate blocks until a rate slot is available
func (s *GeminiService) acquireRate(ctx context.Context) error {
	select {
	case <-s.rateChan:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(5 * time.Minute):
		return fmt.Errorf("timeout waiting for Gemini rate slot")
	}
}

func (s *GeminiService) releaseRate() {
	s.rateChan <- struct{}{}
}

// AnalyzeChunk sends one transcript chunk to the model and returns the
// raw response text. All failure paths come back as *analysis.Failure.
func (s *GeminiService) AnalyzeChunk(ctx context.Context, part string, opts pipeline.ChunkOptions) (string, error) {
	if s.client == nil {
		return "", analysis.Failuref(analysis.FailureMissingCredential, "no Gemini API key configured")
	}

	if err := s.acquireRate(ctx); err != nil {
		return "", analysis.NewFailure(analysis.FailureProvider, err)
	}
	defer s.releaseRate()

	model := s.client.GenerativeModel(s.resolveModel(opts.Model))
	model.SetTemperature(0.7)
	model.SetTopP(0.9)
	model.SetMaxOutputTokens(8192)

	prompt := buildChunkPrompt(part, opts)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", analysis.Failuref(analysis.FailureProvider, "Gemini error: %v", err)
	}

	for i, cand := range resp.Candidates {
		if cand.FinishReason != genai.FinishReasonStop {
			log.Printf("WARNING: Gemini candidate %d stopped due to %s", i, cand.FinishReason)
		}
	}

	text := extractText(resp)
	if strings.TrimSpace(text) == "" {
		return "", analysis.Failuref(analysis.FailureEmptyResponse, "model returned no text")
	}

	return text, nil
}

func (s *GeminiService) resolveModel(requested string) string {
	if requested != "" && s.allowed[requested] {
		return requested
	}
	return s.defaultModel
}

// buildChunkPrompt assembles the full prompt for one chunk: the analyst
// instructions, the requested sections, the output rules, and the
// transcript serialized as timestamped segment lines.
func buildChunkPrompt(part string, opts pipeline.ChunkOptions) string {
	var b strings.Builder

	b.WriteString("You are analyzing an educational transcript and must extract structured study notes.\n\n")

	sections := opts.Sections
	if len(sections) == 0 {
		sections = models.SectionKeys
	}

	b.WriteString("REQUIRED SECTIONS:\n")
	for _, key := range sections {
		desc, ok := sectionDescriptions[key]
		if !ok {
			desc = key
		}
		b.WriteString(fmt.Sprintf("- %s (%s)\n", key, desc))
	}

	maxWords := opts.MaxWords
	if maxWords <= 0 {
		maxWords = 3000
	}

	b.WriteString("\nRULES:\n")
	b.WriteString("1. Extract at least 3-5 items per section\n")
	b.WriteString("2. Use actual time values from the transcript, in seconds\n")
	b.WriteString(fmt.Sprintf("3. Keep total under %d words\n", maxWords))
	b.WriteString("4. Return only a valid JSON object with a \"main_subject\" string and one array per section key\n")
	if opts.EasyRead {
		b.WriteString("5. Wrap the 3-5 most important words with <hl> tags for highlights\n")
	}

	if strings.TrimSpace(opts.UserPrompt) != "" {
		b.WriteString("\nUSER PROMPT: ")
		b.WriteString(strings.TrimSpace(opts.UserPrompt))
		b.WriteString("\n")
	}

	b.WriteString("\nTRANSCRIPT:\n")
	for _, seg := range transcript.SegmentByTimestamps(part) {
		b.WriteString(fmt.Sprintf("[Time: %ds] %s\n", seg.Time, seg.Text))
	}
	b.WriteString("\nReturn JSON only.")

	return b.String()
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
