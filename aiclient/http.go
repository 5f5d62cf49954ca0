// Package aiclient is an HTTP-backed core.AIProvider, calling out to an
// external OMR/answer-evaluation model service. It follows the same
// http.Client-with-context, JSON-request/response shape the teacher uses
// for its IPFS gateway client in core/storage.go, adapted from a pinning
// API to a set of named AI operations.
package aiclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"omrledger/core"
)

// Client implements core.AIProvider against a single HTTP endpoint that
// exposes one route per operation (<endpoint>/solve, /verify, /objection,
// /bubbles, /damage, /reconstruct).
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
}

func New(endpoint, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{endpoint: endpoint, apiKey: apiKey, http: &http.Client{Timeout: timeout}}
}

type aiResponse struct {
	Confidence float64                `json:"confidence"`
	Output     map[string]interface{} `json:"output"`
	Throttled  bool                   `json:"throttled"`
}

func (c *Client) call(ctx context.Context, route string, body interface{}) (core.AIResult, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return core.AIResult{}, fmt.Errorf("marshal ai request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/"+route, bytes.NewReader(buf))
	if err != nil {
		return core.AIResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return core.AIResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return core.AIResult{}, core.Throttled(fmt.Errorf("ai service %s rate limited", route))
	}
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return core.AIResult{}, fmt.Errorf("ai service %s returned %d: %s", route, resp.StatusCode, string(b))
	}

	var out aiResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return core.AIResult{}, fmt.Errorf("decode ai response: %w", err)
	}
	if out.Throttled {
		return core.AIResult{}, core.Throttled(fmt.Errorf("ai service %s self-reported throttling", route))
	}
	return core.AIResult{Confidence: out.Confidence, Output: out.Output}, nil
}

func (c *Client) SolveQuestion(ctx context.Context, question map[string]interface{}) (core.AIResult, error) {
	return c.call(ctx, "solve", question)
}

func (c *Client) VerifyAnswer(ctx context.Context, question, answer map[string]interface{}) (core.AIResult, error) {
	return c.call(ctx, "verify", map[string]interface{}{"question": question, "answer": answer})
}

func (c *Client) EvaluateObjection(ctx context.Context, objection map[string]interface{}) (core.AIResult, error) {
	return c.call(ctx, "objection", objection)
}

func (c *Client) DetectBubbles(ctx context.Context, img []byte) (core.AIResult, error) {
	return c.call(ctx, "bubbles", map[string]interface{}{"image": base64.StdEncoding.EncodeToString(img)})
}

func (c *Client) DetectDamage(ctx context.Context, img []byte) (core.AIResult, error) {
	return c.call(ctx, "damage", map[string]interface{}{"image": base64.StdEncoding.EncodeToString(img)})
}

func (c *Client) ReconstructSheet(ctx context.Context, img []byte, damage core.AIResult) (core.AIResult, error) {
	return c.call(ctx, "reconstruct", map[string]interface{}{
		"image":  base64.StdEncoding.EncodeToString(img),
		"damage": damage.Output,
	})
}

var _ core.AIProvider = (*Client)(nil)
