package answer

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/hyperjump/tanya/internal/models"
	"github.com/hyperjump/tanya/pkg/utils"
)

// Mode selects how the final answer is produced.
type Mode string

const (
	// ModeQA extracts a literal span from the retrieved context.
	ModeQA Mode = "qa"
	// ModeGenerative asks a language model to compose the answer.
	ModeGenerative Mode = "generative"
)

// Fixed user-facing messages. The pipeline is Indonesian end to end, so
// failure messages are too.
const (
	MsgNoAnswer      = "Jawaban tidak ditemukan."
	MsgAnswerFailed  = "Maaf, terjadi kesalahan dalam menghasilkan jawaban."
	MsgNoInformation = "Maaf, tidak dapat menemukan informasi yang relevan untuk pertanyaan Anda."
)

// GenerativeConfidence is reported for generated answers; generation gives
// no per-token score to aggregate, so the value is fixed.
const GenerativeConfidence = 0.7

// minSpanChars is the shortest extracted span accepted before falling back
// to sentence selection.
const minSpanChars = 2

// fallbackPenalty scales confidence when the extractive span was rejected
// and a whole sentence is returned instead.
const fallbackPenalty = 0.8

// sourcePreviewLen bounds the content preview attached to each source.
const sourcePreviewLen = 100

// Selector turns retrieved passages into a final answer.
type Selector struct {
	mode      Mode
	qa        QAModel
	generator Generator
	logger    *zap.Logger
}

// Option configures a Selector.
type Option func(*Selector)

// WithQAModel sets the extractive model used in ModeQA.
func WithQAModel(m QAModel) Option {
	return func(s *Selector) { s.qa = m }
}

// WithGenerator sets the generator used in ModeGenerative.
func WithGenerator(g Generator) Option {
	return func(s *Selector) { s.generator = g }
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSelector creates a selector operating in the given mode.
func NewSelector(mode Mode, opts ...Option) *Selector {
	s := &Selector{mode: mode, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Select produces the final answer from the question and retrieved passages.
// Select never returns an error: any failure becomes an apologetic answer
// with zero confidence so callers always have something to show.
func (s *Selector) Select(ctx context.Context, question string, passages []models.SearchResult) models.Answer {
	contents := make([]string, len(passages))
	for i, p := range passages {
		contents[i] = p.Content
	}
	joined := strings.Join(contents, "\n\n")
	// No passages, or passages with only whitespace, mean there is nothing to
	// answer from; no model is called.
	if strings.TrimSpace(joined) == "" {
		return models.Answer{Answer: MsgNoInformation, Confidence: 0, Sources: []models.Source{}}
	}

	var ans models.Answer
	switch s.mode {
	case ModeGenerative:
		ans = s.generate(ctx, question, joined)
	default:
		ans = s.extract(ctx, question, joined)
	}
	ans.Sources = sourcesFrom(passages)
	return ans
}

func (s *Selector) extract(ctx context.Context, question, passage string) models.Answer {
	if s.qa == nil {
		s.logger.Error("qa mode selected but no qa model configured")
		return models.Answer{Answer: MsgAnswerFailed, Confidence: 0}
	}
	out, err := s.qa.Answer(ctx, question, passage)
	if err != nil {
		s.logger.Error("span extraction failed", zap.Error(err))
		return models.Answer{Answer: MsgAnswerFailed, Confidence: 0}
	}

	confidence := utils.Clamp01((out.StartScore + out.EndScore) / 2)
	span := strings.TrimSpace(out.Span)
	if len(span) < minSpanChars {
		s.logger.Debug("extracted span too short, selecting sentence instead",
			zap.String("span", span))
		sentence := bestSentence(passage, question)
		if sentence == "" {
			return models.Answer{Answer: MsgNoAnswer, Confidence: 0}
		}
		return models.Answer{Answer: sentence, Confidence: confidence * fallbackPenalty}
	}
	return models.Answer{Answer: span, Confidence: confidence}
}

// bestSentence picks the context sentence sharing the most question words.
// Ties keep the earliest sentence; when nothing overlaps, the first sentence
// stands in so the caller still gets grounded text.
func bestSentence(passage, question string) string {
	var sentences []string
	for _, s := range strings.Split(passage, ". ") {
		s = strings.TrimSpace(s)
		if len(s) >= 10 {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return ""
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(question)) {
		w = strings.Trim(w, ".,!?;:\"'()")
		if len(w) > 2 {
			words = append(words, w)
		}
	}

	best := sentences[0]
	bestScore := 0
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		fields := strings.Fields(lower)
		score := 0
		for _, w := range words {
			for _, f := range fields {
				if strings.Trim(f, ".,!?;:\"'()") == w {
					score++
					break
				}
			}
		}
		if score > bestScore {
			bestScore = score
			best = sentence
		}
	}
	return best
}

func (s *Selector) generate(ctx context.Context, question, passage string) models.Answer {
	if s.generator == nil {
		s.logger.Error("generative mode selected but no generator configured")
		return models.Answer{Answer: MsgAnswerFailed, Confidence: 0}
	}
	prompt := buildPrompt(question, passage)
	text, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err))
		return models.Answer{Answer: MsgAnswerFailed, Confidence: 0}
	}
	return models.Answer{Answer: cleanGenerated(text, prompt), Confidence: GenerativeConfidence}
}

func buildPrompt(question, passage string) string {
	var b strings.Builder
	b.WriteString("KONTEKS:\n")
	b.WriteString(passage)
	b.WriteString("\n\nPERTANYAAN: ")
	b.WriteString(question)
	b.WriteString("\n\nINSTRUKSI: Jawab pertanyaan di atas hanya berdasarkan konteks yang diberikan. Jawab dalam bahasa Indonesia secara singkat dan jelas.\n\nJAWABAN:")
	return b.String()
}

// cleanGenerated strips an echoed prompt and keeps only the text after the
// final answer marker, since some models repeat the scaffold verbatim.
func cleanGenerated(text, prompt string) string {
	text = strings.TrimSpace(strings.TrimPrefix(text, prompt))
	if idx := strings.LastIndex(text, "JAWABAN:"); idx >= 0 {
		text = text[idx+len("JAWABAN:"):]
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return MsgNoAnswer
	}
	return text
}

func sourcesFrom(passages []models.SearchResult) []models.Source {
	sources := make([]models.Source, 0, len(passages))
	for _, p := range passages {
		name, _ := p.Metadata["source"].(string)
		if name == "" {
			name = "unknown"
		}
		sources = append(sources, models.Source{
			Source:         name,
			ContentPreview: utils.Truncate(p.Content, sourcePreviewLen),
		})
	}
	return sources
}
