package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const apiSpace = "space.json"

// SpacesClient implements kintone.SpacesClient.
type SpacesClient struct {
	httpClient *http.Client
}

// NewSpacesClient creates a new spaces client.
func NewSpacesClient(httpClient *http.Client) *SpacesClient {
	return &SpacesClient{
		httpClient: httpClient,
	}
}

// Get implements kintone.SpacesClient.Get.
func (c *SpacesClient) Get(ctx context.Context, id string) (*kintone.Space, error) {
	if id == "" {
		return nil, kintone.ErrSpaceIDRequired
	}

	resp, err := c.httpClient.Get(ctx, apiSpace, map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting space: %w", err)
	}

	var space kintone.Space

	err = json.Unmarshal(resp.Body, &space)
	if err != nil {
		return nil, fmt.Errorf("parsing space response: %w", err)
	}

	return &space, nil
}
