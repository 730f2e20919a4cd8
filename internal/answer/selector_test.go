package answer

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/hyperjump/tanya/internal/models"
)

type fakeQA struct {
	out        QAOutput
	err        error
	gotPassage string
}

func (f *fakeQA) Answer(_ context.Context, _, passage string) (QAOutput, error) {
	f.gotPassage = passage
	return f.out, f.err
}

type fakeGenerator struct {
	reply     string
	err       error
	gotPrompt string
}

func (f *fakeGenerator) Generate(_ context.Context, prompt string) (string, error) {
	f.gotPrompt = prompt
	return f.reply, f.err
}

func passages(contents ...string) []models.SearchResult {
	var out []models.SearchResult
	for _, c := range contents {
		out = append(out, models.SearchResult{
			Content:  c,
			Metadata: map[string]interface{}{"source": "doc.txt"},
		})
	}
	return out
}

func TestSelect_EmptyContext(t *testing.T) {
	s := NewSelector(ModeQA, WithQAModel(&fakeQA{}))
	ans := s.Select(context.Background(), "siapa?", nil)
	if ans.Answer != MsgNoInformation {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
	if ans.Sources == nil || len(ans.Sources) != 0 {
		t.Errorf("sources = %#v, want empty list", ans.Sources)
	}
}

func TestSelect_WhitespaceOnlyContext(t *testing.T) {
	qa := &fakeQA{out: QAOutput{Span: "halusinasi", StartScore: 0.9, EndScore: 0.9}}
	s := NewSelector(ModeQA, WithQAModel(qa))

	ans := s.Select(context.Background(), "siapa?", passages("   \n\n", "\t"))
	if ans.Answer != MsgNoInformation {
		t.Errorf("answer = %q, want no-information message", ans.Answer)
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
	if qa.gotPassage != "" {
		t.Errorf("model was called with %q; blank context must not reach the model", qa.gotPassage)
	}
	if ans.Sources == nil || len(ans.Sources) != 0 {
		t.Errorf("sources = %#v, want empty list", ans.Sources)
	}
}

func TestSelect_QASpan(t *testing.T) {
	qa := &fakeQA{out: QAOutput{Span: "  Jakarta  ", StartScore: 0.9, EndScore: 0.7}}
	s := NewSelector(ModeQA, WithQAModel(qa))

	ans := s.Select(context.Background(), "apa ibu kota Indonesia?", passages("Jakarta adalah ibu kota Indonesia."))
	if ans.Answer != "Jakarta" {
		t.Errorf("answer = %q, want trimmed span", ans.Answer)
	}
	if math.Abs(ans.Confidence-0.8) > 1e-9 {
		t.Errorf("confidence = %f, want 0.8", ans.Confidence)
	}
	if len(ans.Sources) != 1 || ans.Sources[0].Source != "doc.txt" {
		t.Errorf("sources = %v", ans.Sources)
	}
}

func TestSelect_QAJoinsPassages(t *testing.T) {
	qa := &fakeQA{out: QAOutput{Span: "jawab", StartScore: 1, EndScore: 1}}
	s := NewSelector(ModeQA, WithQAModel(qa))
	s.Select(context.Background(), "q", passages("pertama", "kedua"))
	if qa.gotPassage != "pertama\n\nkedua" {
		t.Errorf("passage = %q", qa.gotPassage)
	}
}

func TestSelect_QAConfidenceClamped(t *testing.T) {
	qa := &fakeQA{out: QAOutput{Span: "jawab", StartScore: 1.8, EndScore: 1.6}}
	s := NewSelector(ModeQA, WithQAModel(qa))
	ans := s.Select(context.Background(), "q", passages("teks"))
	if ans.Confidence != 1 {
		t.Errorf("confidence = %f, want 1", ans.Confidence)
	}
}

func TestSelect_QAShortSpanFallsBackToSentence(t *testing.T) {
	qa := &fakeQA{out: QAOutput{Span: " a ", StartScore: 0.6, EndScore: 0.4}}
	s := NewSelector(ModeQA, WithQAModel(qa))

	ctx := "Kalimat pembuka tanpa kaitan apa pun. Ibu kota Indonesia adalah Jakarta. Kalimat penutup."
	ans := s.Select(context.Background(), "apa ibu kota Indonesia?", passages(ctx))
	if ans.Answer != "Ibu kota Indonesia adalah Jakarta" {
		t.Errorf("answer = %q", ans.Answer)
	}
	if math.Abs(ans.Confidence-0.5*0.8) > 1e-9 {
		t.Errorf("confidence = %f, want scaled by fallback penalty", ans.Confidence)
	}
}

func TestSelect_QAError(t *testing.T) {
	qa := &fakeQA{err: errors.New("service down")}
	s := NewSelector(ModeQA, WithQAModel(qa))
	ans := s.Select(context.Background(), "q", passages("teks"))
	if ans.Answer != MsgAnswerFailed {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.Confidence != 0 {
		t.Errorf("confidence = %f, want 0", ans.Confidence)
	}
}

func TestSelect_Generative(t *testing.T) {
	gen := &fakeGenerator{reply: "JAWABAN: Jakarta adalah ibu kotanya."}
	s := NewSelector(ModeGenerative, WithGenerator(gen))

	ans := s.Select(context.Background(), "apa ibu kota?", passages("Jakarta adalah ibu kota Indonesia."))
	if ans.Answer != "Jakarta adalah ibu kotanya." {
		t.Errorf("answer = %q", ans.Answer)
	}
	if ans.Confidence != GenerativeConfidence {
		t.Errorf("confidence = %f, want %f", ans.Confidence, GenerativeConfidence)
	}
	if !strings.Contains(gen.gotPrompt, "KONTEKS:") || !strings.Contains(gen.gotPrompt, "PERTANYAAN: apa ibu kota?") {
		t.Errorf("prompt = %q", gen.gotPrompt)
	}
}

func TestSelect_GenerativeEchoedPrompt(t *testing.T) {
	gen := &fakeGenerator{}
	s := NewSelector(ModeGenerative, WithGenerator(gen))

	// Reply echoes the whole prompt before the actual answer.
	gen.reply = buildPrompt("q", "konteks panjang.") + " Jawaban sebenarnya."
	ans := s.Select(context.Background(), "q", passages("konteks panjang."))
	if ans.Answer != "Jawaban sebenarnya." {
		t.Errorf("answer = %q", ans.Answer)
	}
}

func TestSelect_GenerativeError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	s := NewSelector(ModeGenerative, WithGenerator(gen))
	ans := s.Select(context.Background(), "q", passages("teks"))
	if ans.Answer != MsgAnswerFailed || ans.Confidence != 0 {
		t.Errorf("answer = %q confidence = %f", ans.Answer, ans.Confidence)
	}
}

func TestBestSentence(t *testing.T) {
	tests := []struct {
		name     string
		passage  string
		question string
		want     string
	}{
		{
			name:     "overlap wins",
			passage:  "Cuaca hari ini cerah sekali. Gunung tertinggi di Indonesia adalah Puncak Jaya. Lain-lain.",
			question: "gunung tertinggi di Indonesia?",
			want:     "Gunung tertinggi di Indonesia adalah Puncak Jaya",
		},
		{
			name:     "no overlap keeps first sentence",
			passage:  "Kalimat pertama yang cukup panjang. Kalimat kedua yang juga panjang.",
			question: "zzz xxx yyy",
			want:     "Kalimat pertama yang cukup panjang",
		},
		{
			name:     "short fragments skipped",
			passage:  "Ya. Ok. Ini kalimat panjang tentang gunung berapi.",
			question: "gunung berapi",
			want:     "Ini kalimat panjang tentang gunung berapi.",
		},
		{
			name:     "empty passage",
			passage:  "",
			question: "apa?",
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bestSentence(tt.passage, tt.question); got != tt.want {
				t.Errorf("bestSentence() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourcePreviewTruncated(t *testing.T) {
	long := strings.Repeat("a", 150)
	qa := &fakeQA{out: QAOutput{Span: "jawab", StartScore: 1, EndScore: 1}}
	s := NewSelector(ModeQA, WithQAModel(qa))
	ans := s.Select(context.Background(), "q", passages(long))
	if got := ans.Sources[0].ContentPreview; len(got) != 103 || !strings.HasSuffix(got, "...") {
		t.Errorf("preview length = %d, want 100 chars plus ellipsis", len(got))
	}
}
