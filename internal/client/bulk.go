package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const apiBulkRequest = "bulkRequest.json"

// BulkClient implements kintone.BulkClient.
type BulkClient struct {
	httpClient *http.Client
	logger     kintone.Logger
}

// NewBulkClient creates a new bulk client.
func NewBulkClient(httpClient *http.Client, logger kintone.Logger) *BulkClient {
	return &BulkClient{
		httpClient: httpClient,
		logger:     logger,
	}
}

type bulkEnvelope struct {
	Requests []kintone.BulkSubRequest `json:"requests"`
}

// BulkRequest sends one envelope. Sub-request API names are expanded to full
// paths, so intents stay independent of guest spaces.
func (c *BulkClient) BulkRequest(ctx context.Context, requests []kintone.BulkSubRequest) (*kintone.BulkRequestResponse, error) {
	if len(requests) > constants.MaxBulkRequests {
		return nil, fmt.Errorf("%w: %d sub-requests, at most %d", kintone.ErrTooManyRequests, len(requests), constants.MaxBulkRequests)
	}

	envelope := bulkEnvelope{Requests: make([]kintone.BulkSubRequest, len(requests))}
	for index, request := range requests {
		request.API = c.httpClient.APIPath(request.API)
		envelope.Requests[index] = request
	}

	resp, err := c.httpClient.Post(ctx, apiBulkRequest, envelope)
	if err != nil {
		return nil, fmt.Errorf("sending bulk request: %w", err)
	}

	var result kintone.BulkRequestResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing bulk response: %w", err)
	}

	return &result, nil
}

// Execute implements kintone.BulkClient.Execute. The client logger is used
// when options carry none.
func (c *BulkClient) Execute(ctx context.Context, intents []kintone.BulkIntent, options *kintone.BulkOptions) (*kintone.BulkResponse, error) {
	opts := kintone.BulkOptions{}
	if options != nil {
		opts = *options
	}

	if opts.Logger == nil {
		opts.Logger = c.logger
	}

	return kintone.ExecuteBulk(ctx, c, intents, &opts)
}
