// Package records talks to the external inspection API: one collection per
// inspection type, created one record at a time.
package records

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ert-inspection/internal/common/errors"
	httpclient "ert-inspection/internal/common/http"
)

// maxBodyBytes bounds how much of a response we are willing to read.
const maxBodyBytes = 4 << 20

// Creator is what the submission orchestrator needs from the API.
type Creator interface {
	CreateRecord(ctx context.Context, resource string, payload map[string]interface{}) (string, error)
}

// Client is a JSON client for {base}/api/<resource>.
type Client struct {
	baseURL string
	http    *httpclient.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpclient.NewClient(timeout),
	}
}

func (c *Client) endpoint(resource string) string {
	return fmt.Sprintf("%s/api/%s", c.baseURL, strings.Trim(resource, "/"))
}

// CreateRecord posts payload and returns the server-assigned id. A response
// without an id is a failure even when the status is 2xx.
func (c *Client) CreateRecord(ctx context.Context, resource string, payload map[string]interface{}) (string, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodPost, c.endpoint(resource), payload)
	if err != nil {
		return "", errors.NewTransportFailedError(resource, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", errors.NewTransportFailedError(resource, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", errors.NewRecordRejectedError(resource, resp.StatusCode)
	}

	var obj map[string]interface{}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&obj); err != nil {
		return "", errors.NewMalformedResponseError(resource, fmt.Sprintf("invalid JSON: %v", err))
	}
	id, ok := recordID(obj["id"])
	if !ok {
		return "", errors.NewMalformedResponseError(resource, "response has no id")
	}
	return id, nil
}

// ListRecords returns every record previously created for resource.
func (c *Client) ListRecords(ctx context.Context, resource string) ([]map[string]interface{}, error) {
	resp, err := c.http.DoJSON(ctx, http.MethodGet, c.endpoint(resource), nil)
	if err != nil {
		return nil, errors.NewTransportFailedError(resource, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.NewRecordRejectedError(resource, resp.StatusCode)
	}

	var out []map[string]interface{}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		return nil, errors.NewMalformedResponseError(resource, fmt.Sprintf("invalid JSON: %v", err))
	}
	return out, nil
}

// recordID accepts numeric and string ids; empty strings and null do not count.
func recordID(v interface{}) (string, bool) {
	switch id := v.(type) {
	case string:
		return id, strings.TrimSpace(id) != ""
	case json.Number:
		return id.String(), true
	default:
		return "", false
	}
}
