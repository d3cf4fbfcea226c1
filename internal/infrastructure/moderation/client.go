package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/go-review-ledger/internal/domain"
	"github.com/go-review-ledger/internal/pkg/metrics"
)

const checkPath = "/api/check"

// maxResponseBytes bounds how much of a classifier reply is read.
const maxResponseBytes = 64 << 10

type checkRequest struct {
	Text string `json:"text"`
}

type checkResponse struct {
	IsToxic *bool   `json:"is_toxic"`
	Label   string  `json:"label"`
	Score   float64 `json:"score"`
}

// Client calls the external toxicity classifier. It never returns an error:
// any failure to obtain a verdict admits the content.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Evaluate classifies text.
func (c *Client) Evaluate(ctx context.Context, text string) domain.ModerationVerdict {
	resp, err := c.check(ctx, text)
	if err != nil {
		metrics.ModerationUnavailable.Inc()
		c.logger.Warn("Moderation service unavailable, admitting content", zap.Error(err))
		return domain.ModerationVerdict{ServiceUnavailable: true}
	}

	v := domain.ModerationVerdict{IsRejected: *resp.IsToxic, Label: resp.Label, Score: resp.Score}
	if v.IsRejected {
		metrics.ModerationVerdicts.WithLabelValues("rejected").Inc()
	} else {
		metrics.ModerationVerdicts.WithLabelValues("admitted").Inc()
	}
	return v
}

func (c *Client) check(ctx context.Context, text string) (*checkResponse, error) {
	body, err := json.Marshal(checkRequest{Text: text})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+checkPath, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("classifier returned status %d", res.StatusCode)
	}
	var out checkResponse
	if err := json.NewDecoder(io.LimitReader(res.Body, maxResponseBytes)).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode classifier response: %w", err)
	}
	if out.IsToxic == nil {
		return nil, fmt.Errorf("classifier response lacks is_toxic")
	}
	return &out, nil
}
