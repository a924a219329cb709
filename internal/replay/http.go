package replay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/okian/floorwatch/internal/domain/types"
	"github.com/okian/floorwatch/pkg/logger"
)

// maxBody caps how much of a response is read.
const maxBody = 1 << 20

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// Health checks GET /health reports a healthy database.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()

	var h types.Health
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(&h); err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	if resp.StatusCode != http.StatusOK || h.Status != "healthy" {
		return fmt.Errorf("%w: status %d, %s", ErrUnhealthy, resp.StatusCode, h.Status)
	}
	return nil
}

// PostBatch submits events to /api/events/batch.
func (c *HTTPClient) PostBatch(ctx context.Context, events []types.EventRequest) (types.BatchResponse, error) {
	payload, err := json.Marshal(struct {
		Events []types.EventRequest `json:"events"`
	}{events})
	if err != nil {
		return types.BatchResponse{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/events/batch", bytes.NewReader(payload))
	if err != nil {
		return types.BatchResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return types.BatchResponse{}, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return types.BatchResponse{}, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.BatchResponse{}, fmt.Errorf("%w: status %d: %s", ErrSubmit, resp.StatusCode, bytes.TrimSpace(body))
	}
	var out types.BatchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return types.BatchResponse{}, fmt.Errorf("%w: %w", ErrSubmit, err)
	}
	return out, nil
}

// submitBatches posts the chunks with cfg.Workers concurrent requests. A
// request that fails outright counts every event in it as failed.
func submitBatches(ctx context.Context, c *HTTPClient, cfg *Config, events []types.EventRequest) Stats {
	start := time.Now()
	batches := chunk(events, cfg.BatchSize)
	log := logger.Get()

	var (
		mu    sync.Mutex
		stats Stats
		wg    sync.WaitGroup
		jobs  = make(chan []types.EventRequest, max(cfg.Workers, 1)*2)
	)

	for i := 0; i < max(cfg.Workers, 1); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range jobs {
				res, err := c.PostBatch(ctx, batch)

				mu.Lock()
				stats.Submitted += len(batch)
				if err != nil {
					stats.Failed += len(batch)
					stats.Errors = append(stats.Errors, err.Error())
				} else {
					stats.Successful += res.SuccessCount
					stats.Duplicate += res.DuplicateCount
					stats.Failed += res.ErrorCount
					stats.Errors = append(stats.Errors, res.Errors...)
				}
				mu.Unlock()

				if cfg.Verbose {
					log.Info(ctx, "batch submitted",
						logger.Int("events", len(batch)),
						logger.Int("created", res.SuccessCount),
						logger.Int("duplicates", res.DuplicateCount),
						logger.Int("errors", res.ErrorCount),
					)
				}
			}
		}()
	}

	// Send batches to workers
	go func() {
		defer close(jobs)
		for _, b := range batches {
			select {
			case <-ctx.Done():
				return
			case jobs <- b:
			}
		}
	}()

	wg.Wait()
	stats.Duration = time.Since(start)
	return stats
}
