package answer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPQAModel calls a local span-extraction service over HTTP. The service
// wraps the extractive model and returns the decoded span with its start and
// end scores; decoding and softmax stay on the model side of the wire.
type HTTPQAModel struct {
	baseURL string
	client  *http.Client
}

// NewHTTPQAModel creates a client for the QA service at baseURL.
func NewHTTPQAModel(baseURL string, timeout time.Duration) *HTTPQAModel {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPQAModel{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type qaRequest struct {
	Question string `json:"question"`
	Context  string `json:"context"`
}

type qaResponse struct {
	Answer     string  `json:"answer"`
	StartScore float64 `json:"start_score"`
	EndScore   float64 `json:"end_score"`
}

// Answer posts the question and passage to the service and returns its span.
func (m *HTTPQAModel) Answer(ctx context.Context, question, passage string) (QAOutput, error) {
	body, err := json.Marshal(qaRequest{Question: question, Context: passage})
	if err != nil {
		return QAOutput{}, fmt.Errorf("marshal qa request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/answer", bytes.NewReader(body))
	if err != nil {
		return QAOutput{}, fmt.Errorf("create qa request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return QAOutput{}, fmt.Errorf("qa service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return QAOutput{}, fmt.Errorf("qa service returned %d: %s", resp.StatusCode, data)
	}

	var out qaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return QAOutput{}, fmt.Errorf("decode qa response: %w", err)
	}
	return QAOutput{Span: out.Answer, StartScore: out.StartScore, EndScore: out.EndScore}, nil
}
