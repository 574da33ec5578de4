package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const (
	apiRecordComment  = "record/comment.json"
	apiRecordComments = "record/comments.json"
)

// CommentsClient implements kintone.CommentsClient.
type CommentsClient struct {
	httpClient *http.Client
}

// NewCommentsClient creates a new comments client.
func NewCommentsClient(httpClient *http.Client) *CommentsClient {
	return &CommentsClient{
		httpClient: httpClient,
	}
}

func validateCommentTarget(app, record string) error {
	if app == "" {
		return kintone.ErrAppRequired
	}

	if record == "" {
		return kintone.ErrRecordIDRequired
	}

	return nil
}

// List implements kintone.CommentsClient.List.
func (c *CommentsClient) List(ctx context.Context, request *kintone.GetRecordCommentsRequest) (*kintone.GetRecordCommentsResponse, error) {
	err := validateCommentTarget(request.App, request.Record)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Get(ctx, apiRecordComments, request)
	if err != nil {
		return nil, fmt.Errorf("listing comments: %w", err)
	}

	var result kintone.GetRecordCommentsResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing comments response: %w", err)
	}

	return &result, nil
}

// Add implements kintone.CommentsClient.Add.
func (c *CommentsClient) Add(ctx context.Context, request *kintone.AddRecordCommentRequest) (*kintone.AddRecordCommentResponse, error) {
	err := validateCommentTarget(request.App, request.Record)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Post(ctx, apiRecordComment, request)
	if err != nil {
		return nil, fmt.Errorf("adding comment: %w", err)
	}

	var result kintone.AddRecordCommentResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing comment response: %w", err)
	}

	return &result, nil
}

// Delete implements kintone.CommentsClient.Delete.
func (c *CommentsClient) Delete(ctx context.Context, request *kintone.DeleteRecordCommentRequest) error {
	err := validateCommentTarget(request.App, request.Record)
	if err != nil {
		return err
	}

	_, err = c.httpClient.Delete(ctx, apiRecordComment, request)
	if err != nil {
		return fmt.Errorf("deleting comment: %w", err)
	}

	return nil
}
