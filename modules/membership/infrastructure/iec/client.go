// Package iec talks to the IEC voter registration API.
package iec

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-faster/errors"

	"github.com/ntsowef/eff-membership-system-sub020/modules/membership/domain/voter"
	"github.com/ntsowef/eff-membership-system-sub020/pkg/configuration"
)

const maxRetries = 3

// Client implements voter.Verifier against the IEC HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(opts configuration.IECOptions) *Client {
	return &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		apiKey:  opts.APIKey,
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        20,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// CheckRegistration looks up a voter by ID number. A 404 means the IEC has
// no record for that ID, which is reported as (nil, nil).
func (c *Client) CheckRegistration(ctx context.Context, idNumber string) (*voter.Registration, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}

		reg, retryable, err := c.lookup(ctx, idNumber)
		if err == nil {
			return reg, nil
		}
		if !retryable {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) lookup(ctx context.Context, idNumber string) (*voter.Registration, bool, error) {
	url := fmt.Sprintf("%s/api/v1/voters/%s", c.baseURL, idNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, errors.Wrap(err, "build IEC request")
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, true, errors.Wrap(err, "call IEC API")
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, true, errors.Errorf("IEC API returned status %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		return nil, false, errors.Errorf("IEC API returned status %d", resp.StatusCode)
	}

	var reg voter.Registration
	if err := json.NewDecoder(resp.Body).Decode(&reg); err != nil {
		return nil, false, errors.Wrap(err, "decode IEC response")
	}
	return &reg, false, nil
}
