package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// opResult is the API response to a submitted operation.
type opResult struct {
	Hash  string `json:"hash"`
	ID    uint64 `json:"id"`
	Error string `json:"error"`
}

// submitOp sends a signed envelope to a node via POST /ops.
func submitOp(nodeAddr string, raw []byte) (opResult, error) {
	var result opResult

	resp, err := http.Post(
		"http://"+nodeAddr+"/ops",
		"application/octet-stream",
		bytes.NewReader(raw),
	)
	if err != nil {
		return result, fmt.Errorf("post op:\n%w", err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return result, fmt.Errorf("decode response:\n%w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if result.Error != "" {
			return result, fmt.Errorf("op rejected: %s", result.Error)
		}
		return result, fmt.Errorf("op rejected: status %d", resp.StatusCode)
	}

	return result, nil
}

// httpGet performs a GET request and decodes the JSON response.
func httpGet(url string, result any) error {
	resp, err := http.Get(url)
	if err != nil {
		return fmt.Errorf("GET %s:\n%w", url, err)
	}
	defer func() { io.Copy(io.Discard, resp.Body); resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	return json.NewDecoder(resp.Body).Decode(result)
}
