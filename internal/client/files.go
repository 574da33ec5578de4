package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const apiFile = "file.json"

// FilesClient implements kintone.FilesClient.
type FilesClient struct {
	httpClient *http.Client
}

// NewFilesClient creates a new files client.
func NewFilesClient(httpClient *http.Client) *FilesClient {
	return &FilesClient{
		httpClient: httpClient,
	}
}

// Upload implements kintone.FilesClient.Upload. The returned key is valid for
// three days unless attached to a record.
func (c *FilesClient) Upload(ctx context.Context, name string, content io.Reader) (*kintone.UploadFileResponse, error) {
	resp, err := c.httpClient.Upload(ctx, apiFile, "file", name, content)
	if err != nil {
		return nil, fmt.Errorf("uploading file: %w", err)
	}

	var result kintone.UploadFileResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing upload response: %w", err)
	}

	return &result, nil
}

// Download implements kintone.FilesClient.Download.
func (c *FilesClient) Download(ctx context.Context, fileKey string) ([]byte, error) {
	if fileKey == "" {
		return nil, kintone.ErrFileKeyRequired
	}

	resp, err := c.httpClient.Get(ctx, apiFile, map[string]string{"fileKey": fileKey})
	if err != nil {
		return nil, fmt.Errorf("downloading file: %w", err)
	}

	return resp.Body, nil
}
