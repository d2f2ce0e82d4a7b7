package commands

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"

	"glm-relay/internal/openaiadapter"
)

// newUpstreamCaller builds the minimal transport collaborator the binary
// wires into the adapter. It lives at the composition root on purpose: the
// translation layers only ever see the UpstreamCaller interface and stay
// free of transport concerns.
func newUpstreamCaller(baseURL string) openaiadapter.UpstreamCaller {
	// No Client.Timeout: SSE responses stay open until the upstream closes
	// them. Cancellation rides on the request context.
	client := &http.Client{}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/chat/completions"

	return openaiadapter.UpstreamCallerFunc(func(ctx context.Context, body []byte, runID string, credential string) (*openaiadapter.UpstreamResponse, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("build upstream request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "text/event-stream")
		req.Header.Set("Authorization", "Bearer "+credential)
		req.Header.Set("X-Request-ID", runID)

		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		return &openaiadapter.UpstreamResponse{
			StatusCode: resp.StatusCode,
			Body:       resp.Body,
		}, nil
	})
}
