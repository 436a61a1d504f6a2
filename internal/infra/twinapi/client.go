package twinapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hydrotwin/hydrotwin-api/internal/domain/piezometry"
)

const (
	valuesPath     = "/corporate/get-piezometers-values"
	piezometerPath = "/corporate/get-piezometers"
	defaultTimeout = 15 * time.Second
)

// Client reads piezometer data from the digital twin corporate API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds an API client. A zero timeout uses the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type valuesRequest struct {
	Variables []string              `json:"variables"`
	Type      string                `json:"type"`
	Range     *piezometry.DateRange `json:"range,omitempty"`
}

type catalogRequest struct {
	Codes []string `json:"cod_chs,omitempty"`
}

// envelope is the {status, data, ok} wrapper every corporate route returns.
type envelope struct {
	Status int             `json:"status"`
	OK     bool            `json:"ok"`
	Data   json.RawMessage `json:"data"`
	Title  string          `json:"title"`
	Detail string          `json:"detail"`
}

// Fetch posts the range request body for the given variables.
func (c *Client) Fetch(ctx context.Context, variables []string, body piezometry.RequestBody) (piezometry.Series, error) {
	payload := valuesRequest{Variables: variables, Type: body.Type, Range: body.Range}
	var series piezometry.Series
	if err := c.post(ctx, valuesPath, payload, &series); err != nil {
		return nil, err
	}
	return series, nil
}

// Piezometers lists catalog entries, all of them when codes is empty.
func (c *Client) Piezometers(ctx context.Context, codes []string) ([]piezometry.Piezometer, error) {
	var catalog []piezometry.Piezometer
	if err := c.post(ctx, piezometerPath, catalogRequest{Codes: codes}, &catalog); err != nil {
		return nil, err
	}
	return catalog, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode twin request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("build twin request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twin request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return fmt.Errorf("read twin response: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("twin request error: status=%d body=%s", resp.StatusCode, truncate(body, 512))
		}
		return fmt.Errorf("decode twin response: %w", err)
	}
	if resp.StatusCode >= 300 || !env.OK {
		detail := strings.TrimSpace(env.Detail)
		if detail == "" {
			detail = env.Title
		}
		return fmt.Errorf("twin api error: status=%d detail=%s", resp.StatusCode, detail)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode twin data: %w", err)
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n])
}

var _ piezometry.ReadingSource = (*Client)(nil)
