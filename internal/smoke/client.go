package smoke

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client posts candidate tables to a squadron service.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client with the given per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service returned status %d", resp.StatusCode)
	}
	return nil
}

// Teams is a parsed /teams response.
type Teams struct {
	RunID     string
	Rows      [][]string
	Leftovers int
}

// FormTeams posts data to /teams and returns the team rows without the
// header.
func (c *Client) FormTeams(ctx context.Context, data []byte, threshold float64, chunk int) (*Teams, error) {
	q := url.Values{}
	q.Set("score_threshold", strconv.FormatFloat(threshold, 'f', -1, 64))
	q.Set("chunk_size", strconv.Itoa(chunk))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/teams?"+q.Encode(), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to post candidates: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("service returned status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}

	rows, err := csv.NewReader(bytes.NewReader(body)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse team csv: %w", err)
	}
	if len(rows) > 0 {
		rows = rows[1:]
	}
	leftovers, _ := strconv.Atoi(resp.Header.Get("X-Leftover-Count"))
	return &Teams{RunID: resp.Header.Get("X-Run-ID"), Rows: rows, Leftovers: leftovers}, nil
}
