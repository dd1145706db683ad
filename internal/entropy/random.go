// Package entropy supplies the unpredictable beacon that battle seeds are derived from.
// The beacon comes from random.org when an API key is configured and falls back to
// crypto/rand otherwise. Tests inject a Fixed beacon.
package entropy

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// Source provides fresh unpredictable bytes for each battle.
type Source interface {
	Beacon() [32]byte
}

// Fixed is a Source that always returns the same beacon.
type Fixed [32]byte

// Beacon implements Source.
func (f Fixed) Beacon() [32]byte {
	return f
}

// Crypto is a Source backed by crypto/rand.
type Crypto struct{}

// Beacon implements Source.
func (Crypto) Beacon() [32]byte {
	return cryptoBeacon()
}

// Client provides beacons from random.org with a local pool.
type Client struct {
	apiKey   string
	endpoint string
	client   *http.Client

	mu   sync.Mutex
	pool [][32]byte
}

// NewClient creates a random.org client. Returns nil if apiKey is empty.
func NewClient(apiKey string) *Client {
	if apiKey == "" {
		return nil
	}
	return &Client{
		apiKey:   apiKey,
		endpoint: "https://api.random.org/json-rpc/4/invoke",
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

// Beacon returns 32 random bytes. Uses the pool, refilling from random.org
// when low. Falls back to crypto/rand on API failure.
func (c *Client) Beacon() [32]byte {
	if c == nil {
		return cryptoBeacon()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pool) < 4 {
		c.refill()
	}

	if len(c.pool) == 0 {
		return cryptoBeacon()
	}

	val := c.pool[0]
	c.pool = c.pool[1:]
	return val
}

func (c *Client) refill() {
	req := map[string]any{
		"jsonrpc": "2.0",
		"method":  "generateBlobs",
		"params": map[string]any{
			"apiKey": c.apiKey,
			"n":      32,
			"size":   256,
			"format": "hex",
		},
		"id": 1,
	}

	body, err := json.Marshal(req)
	if err != nil {
		slog.Debug("random.org marshal failed", "error", err)
		return
	}

	resp, err := c.client.Post(c.endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		slog.Debug("random.org fetch failed", "error", err)
		return
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		slog.Debug("random.org read failed", "error", err)
		return
	}

	var result struct {
		Result struct {
			Random struct {
				Data []string `json:"data"`
			} `json:"random"`
		} `json:"result"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		slog.Debug("random.org parse failed", "error", err)
		return
	}

	if result.Error != nil {
		slog.Debug("random.org API error", "error", result.Error.Message)
		return
	}

	added := 0
	for _, blob := range result.Result.Random.Data {
		raw, err := hex.DecodeString(blob)
		if err != nil || len(raw) != 32 {
			continue
		}
		var b [32]byte
		copy(b[:], raw)
		c.pool = append(c.pool, b)
		added++
	}
	slog.Debug("random.org pool refilled", "count", added)
}

// Enabled returns true if the client has a valid API key.
func (c *Client) Enabled() bool {
	return c != nil && c.apiKey != ""
}

// FromClient returns the client as a Source when enabled, or crypto/rand otherwise.
func FromClient(c *Client) Source {
	if c.Enabled() {
		return c
	}
	return Crypto{}
}

func cryptoBeacon() [32]byte {
	var buf [32]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand does not fail on supported platforms; keep the
		// clock as a last resort so two battles never share a beacon.
		now := time.Now().UnixNano()
		for i := 0; i < 8; i++ {
			buf[i] = byte(now >> (8 * i))
		}
	}
	return buf
}
