package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// ClientConfig holds configuration for the HTTP similarity client.
type ClientConfig struct {
	BaseURL string

	// ChunkSize is the number of pairs sent per batch request. Default 5.
	ChunkSize int

	// ChunkPause is the pause between consecutive chunks. Default 250ms.
	ChunkPause time.Duration

	// RequestsPerSecond caps outbound calls to the contributor. Default 10.
	RequestsPerSecond float64

	// Timeout applies per HTTP call. Default 15s.
	Timeout time.Duration
}

func (c *ClientConfig) applyDefaults() {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 5
	}
	if c.ChunkPause <= 0 {
		c.ChunkPause = 250 * time.Millisecond
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.Timeout <= 0 {
		c.Timeout = 15 * time.Second
	}
}

// Client calls an external similarity service over HTTP. Calls go through a
// circuit breaker so a degraded contributor cannot stall every scoring pass;
// while the breaker is open all results are reported as absent.
type Client struct {
	cfg     ClientConfig
	httpc   *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	logger  zerolog.Logger
}

// NewClient creates a similarity client for the given service URL.
func NewClient(cfg ClientConfig, logger zerolog.Logger) *Client {
	cfg.applyDefaults()

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "ai-similarity",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("similarity breaker state change")
		},
	})

	return &Client{
		cfg:     cfg,
		httpc:   &http.Client{Timeout: cfg.Timeout},
		breaker: breaker,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		logger:  logger,
	}
}

type scoreResponse struct {
	Score float64 `json:"score"`
}

type batchScoreResponse struct {
	Scores []float64 `json:"scores"`
}

// Similarity scores a single note/appointment pair.
func (c *Client) Similarity(ctx context.Context, noteContent, appointmentContext string) (float64, bool, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, false, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.postScore(ctx, "/v1/similarity", SimilarityRequest{
			NoteContent:        noteContent,
			AppointmentContext: appointmentContext,
		})
	})
	if err != nil {
		return 0, false, err
	}

	return clamp01(result.(float64)), true, nil
}

// BatchSimilarity scores pairs in chunks of ChunkSize with a pause between
// chunks. A chunk failure marks its items absent and does not stop later
// chunks. The returned slice is index-aligned with reqs.
func (c *Client) BatchSimilarity(ctx context.Context, reqs []SimilarityRequest) []SimilarityResult {
	results := make([]SimilarityResult, len(reqs))

	for start := 0; start < len(reqs); start += c.cfg.ChunkSize {
		end := start + c.cfg.ChunkSize
		if end > len(reqs) {
			end = len(reqs)
		}
		chunk := reqs[start:end]

		if start > 0 {
			select {
			case <-ctx.Done():
				for i := start; i < len(reqs); i++ {
					results[i] = SimilarityResult{Err: ctx.Err()}
				}
				return results
			case <-time.After(c.cfg.ChunkPause):
			}
		}

		scores, err := c.scoreChunk(ctx, chunk)
		if err != nil {
			c.logger.Warn().Err(err).
				Int("chunk_start", start).
				Int("chunk_size", len(chunk)).
				Msg("similarity chunk failed, factor absent for its items")
			for i := start; i < end; i++ {
				results[i] = SimilarityResult{Err: err}
			}
			continue
		}

		for i, s := range scores {
			results[start+i] = SimilarityResult{Score: clamp01(s), OK: true}
		}
	}

	return results
}

func (c *Client) scoreChunk(ctx context.Context, chunk []SimilarityRequest) ([]float64, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		body, err := json.Marshal(map[string]interface{}{"pairs": chunk})
		if err != nil {
			return nil, fmt.Errorf("marshal batch request: %w", err)
		}

		resp, err := c.do(ctx, "/v1/similarity/batch", body)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("similarity service returned %d", resp.StatusCode)
		}

		var parsed batchScoreResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
			return nil, fmt.Errorf("decode batch response: %w", err)
		}
		if len(parsed.Scores) != len(chunk) {
			return nil, fmt.Errorf("similarity service returned %d scores for %d pairs", len(parsed.Scores), len(chunk))
		}
		return parsed.Scores, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]float64), nil
}

func (c *Client) postScore(ctx context.Context, path string, req SimilarityRequest) (float64, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return 0, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.do(ctx, path, body)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("similarity service returned %d", resp.StatusCode)
	}

	var parsed scoreResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("decode response: %w", err)
	}
	return parsed.Score, nil
}

func (c *Client) do(ctx context.Context, path string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call similarity service: %w", err)
	}
	return resp, nil
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
