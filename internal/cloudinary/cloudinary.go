// Package cloudinary talks to the Cloudinary REST API: it issues signed
// upload credentials for the admin console and removes hosted assets when
// their owning records are deleted.
package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Client encapsulates the HTTP interaction with Cloudinary.
type Client struct {
	cloudName  string
	apiKey     string
	apiSecret  string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Cloudinary client for the given account.
func NewClient(cloudName, apiKey, apiSecret string) *Client {
	return &Client{
		cloudName: cloudName,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		baseURL:   "https://api.cloudinary.com/v1_1",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Configured reports whether account credentials are present.
func (c *Client) Configured() bool {
	return c != nil && c.cloudName != "" && c.apiKey != "" && c.apiSecret != ""
}

// SignParams produces the request signature Cloudinary expects: the params
// serialized as k=v pairs sorted by key, joined with '&', with the API secret
// appended, hashed with SHA-1.
func (c *Client) SignParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, k+"="+params[k])
	}

	sum := sha1.Sum([]byte(strings.Join(pairs, "&") + c.apiSecret))
	return hex.EncodeToString(sum[:])
}

// UploadSignature is the signed credential set the browser needs to upload
// directly to Cloudinary.
type UploadSignature struct {
	Timestamp int64  `json:"timestamp"`
	Signature string `json:"signature"`
	Folder    string `json:"folder"`
	APIKey    string `json:"api_key"`
	CloudName string `json:"cloud_name"`
}

// NewUploadSignature signs an upload into the given folder at the current
// instant.
func (c *Client) NewUploadSignature(folder string, now time.Time) UploadSignature {
	ts := now.Unix()
	sig := c.SignParams(map[string]string{
		"timestamp": strconv.FormatInt(ts, 10),
		"folder":    folder,
	})
	return UploadSignature{
		Timestamp: ts,
		Signature: sig,
		Folder:    folder,
		APIKey:    c.apiKey,
		CloudName: c.cloudName,
	}
}

// Destroy removes a hosted image by public id. Callers treat failures as
// non-fatal: a stale asset is preferable to aborting the primary operation.
func (c *Client) Destroy(ctx context.Context, publicID string) error {
	if !c.Configured() {
		return fmt.Errorf("cloudinary client not configured")
	}

	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := c.SignParams(map[string]string{
		"public_id": publicID,
		"timestamp": ts,
	})

	form := url.Values{}
	form.Set("public_id", publicID)
	form.Set("timestamp", ts)
	form.Set("api_key", c.apiKey)
	form.Set("signature", sig)

	endpoint := fmt.Sprintf("%s/%s/image/destroy", c.baseURL, c.cloudName)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("destroy %s: unexpected status %d", publicID, resp.StatusCode)
	}

	return nil
}
