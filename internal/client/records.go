package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/internal/http"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

const (
	apiRecord          = "record.json"
	apiRecords         = "records.json"
	apiRecordAssignees = "record/assignees.json"
	apiRecordStatus    = "record/status.json"
	apiRecordsStatus   = "records/status.json"
	apiRecordsCursor   = "records/cursor.json"
)

// RecordsClient implements kintone.RecordsClient.
type RecordsClient struct {
	httpClient *http.Client
	bulk       kintone.BulkRequester
	logger     kintone.Logger
}

// NewRecordsClient creates a new records client. Whole-set writes go through
// bulk.
func NewRecordsClient(httpClient *http.Client, bulk kintone.BulkRequester, logger kintone.Logger) *RecordsClient {
	return &RecordsClient{
		httpClient: httpClient,
		bulk:       bulk,
		logger:     logger,
	}
}

// GetRecord implements kintone.RecordsClient.GetRecord.
func (c *RecordsClient) GetRecord(ctx context.Context, request *kintone.GetRecordRequest) (kintone.Record, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if request.ID == "" {
		return nil, kintone.ErrRecordIDRequired
	}

	resp, err := c.httpClient.Get(ctx, apiRecord, request)
	if err != nil {
		return nil, fmt.Errorf("getting record: %w", err)
	}

	var result kintone.GetRecordResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing record response: %w", err)
	}

	return result.Record, nil
}

// GetRecords implements kintone.RecordPager.GetRecords.
func (c *RecordsClient) GetRecords(ctx context.Context, request *kintone.GetRecordsRequest) (*kintone.GetRecordsResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	resp, err := c.httpClient.Get(ctx, apiRecords, request)
	if err != nil {
		return nil, fmt.Errorf("getting records: %w", err)
	}

	var result kintone.GetRecordsResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing records response: %w", err)
	}

	return &result, nil
}

// AddRecord implements kintone.RecordUpserter.AddRecord.
func (c *RecordsClient) AddRecord(ctx context.Context, request *kintone.AddRecordRequest) (*kintone.AddRecordResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	resp, err := c.httpClient.Post(ctx, apiRecord, request)
	if err != nil {
		return nil, fmt.Errorf("adding record: %w", err)
	}

	var result kintone.AddRecordResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing add record response: %w", err)
	}

	return &result, nil
}

// UpdateRecord implements kintone.RecordUpserter.UpdateRecord.
func (c *RecordsClient) UpdateRecord(ctx context.Context, request *kintone.UpdateRecordRequest) (*kintone.UpdateRecordResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	err := kintone.ValidateUpdateTarget(request.ID, request.UpdateKey)
	if err != nil {
		return nil, err
	}

	return c.putRevision(ctx, apiRecord, request, "updating record")
}

// AddRecords implements kintone.RecordsClient.AddRecords.
func (c *RecordsClient) AddRecords(ctx context.Context, request *kintone.AddRecordsRequest) (*kintone.AddRecordsResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if len(request.Records) > constants.MaxWriteRecords {
		return nil, fmt.Errorf("%w: %d records, at most %d", kintone.ErrTooManyRecords, len(request.Records), constants.MaxWriteRecords)
	}

	resp, err := c.httpClient.Post(ctx, apiRecords, request)
	if err != nil {
		return nil, fmt.Errorf("adding records: %w", err)
	}

	var result kintone.AddRecordsResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing add records response: %w", err)
	}

	return &result, nil
}

// UpdateRecords implements kintone.RecordsClient.UpdateRecords.
func (c *RecordsClient) UpdateRecords(ctx context.Context, request *kintone.UpdateRecordsRequest) (*kintone.UpdateRecordsResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if len(request.Records) > constants.MaxWriteRecords {
		return nil, fmt.Errorf("%w: %d records, at most %d", kintone.ErrTooManyRecords, len(request.Records), constants.MaxWriteRecords)
	}

	for index, entry := range request.Records {
		err := kintone.ValidateUpdateTarget(entry.ID, entry.UpdateKey)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", index, err)
		}
	}

	resp, err := c.httpClient.Put(ctx, apiRecords, request)
	if err != nil {
		return nil, fmt.Errorf("updating records: %w", err)
	}

	var result kintone.UpdateRecordsResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing update records response: %w", err)
	}

	return &result, nil
}

// DeleteRecords implements kintone.RecordsClient.DeleteRecords.
func (c *RecordsClient) DeleteRecords(ctx context.Context, request *kintone.DeleteRecordsRequest) error {
	if request.App == "" {
		return kintone.ErrAppRequired
	}

	if len(request.IDs) > constants.MaxDeleteRecords {
		return fmt.Errorf("%w: %d ids, at most %d", kintone.ErrTooManyRecords, len(request.IDs), constants.MaxDeleteRecords)
	}

	if len(request.Revisions) > 0 && len(request.Revisions) != len(request.IDs) {
		return kintone.ErrIDsRevisionsMismatch
	}

	if len(request.IDs) == 0 {
		return nil
	}

	_, err := c.httpClient.Delete(ctx, apiRecords, request)
	if err != nil {
		return fmt.Errorf("deleting records: %w", err)
	}

	return nil
}

// UpdateRecordAssignees implements kintone.RecordsClient.UpdateRecordAssignees.
func (c *RecordsClient) UpdateRecordAssignees(ctx context.Context, request *kintone.UpdateRecordAssigneesRequest) (*kintone.UpdateRecordResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if request.ID == "" {
		return nil, kintone.ErrRecordIDRequired
	}

	return c.putRevision(ctx, apiRecordAssignees, request, "updating record assignees")
}

// UpdateRecordStatus implements kintone.RecordsClient.UpdateRecordStatus.
func (c *RecordsClient) UpdateRecordStatus(ctx context.Context, request *kintone.UpdateRecordStatusRequest) (*kintone.UpdateRecordResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if request.ID == "" {
		return nil, kintone.ErrRecordIDRequired
	}

	if request.Action == "" {
		return nil, kintone.ErrActionRequired
	}

	return c.putRevision(ctx, apiRecordStatus, request, "updating record status")
}

// UpdateRecordsStatus implements kintone.RecordsClient.UpdateRecordsStatus.
func (c *RecordsClient) UpdateRecordsStatus(ctx context.Context, request *kintone.UpdateRecordsStatusRequest) (*kintone.UpdateRecordsResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if len(request.Records) > constants.MaxStatusUpdates {
		return nil, fmt.Errorf("%w: %d status updates, at most %d", kintone.ErrTooManyRecords, len(request.Records), constants.MaxStatusUpdates)
	}

	for index, entry := range request.Records {
		if entry.ID == "" {
			return nil, fmt.Errorf("status update %d: %w", index, kintone.ErrRecordIDRequired)
		}

		if entry.Action == "" {
			return nil, fmt.Errorf("status update %d: %w", index, kintone.ErrActionRequired)
		}
	}

	resp, err := c.httpClient.Put(ctx, apiRecordsStatus, request)
	if err != nil {
		return nil, fmt.Errorf("updating record statuses: %w", err)
	}

	var result kintone.UpdateRecordsResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing record statuses response: %w", err)
	}

	return &result, nil
}

// CreateCursor implements kintone.RecordPager.CreateCursor.
func (c *RecordsClient) CreateCursor(ctx context.Context, request *kintone.CreateCursorRequest) (*kintone.CreateCursorResponse, error) {
	if request.App == "" {
		return nil, kintone.ErrAppRequired
	}

	if request.Size > constants.MaxRecordsPageSize {
		request.Size = constants.MaxRecordsPageSize
	}

	resp, err := c.httpClient.Post(ctx, apiRecordsCursor, request)
	if err != nil {
		return nil, fmt.Errorf("creating cursor: %w", err)
	}

	var result kintone.CreateCursorResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing cursor response: %w", err)
	}

	return &result, nil
}

// GetRecordsByCursor implements kintone.RecordPager.GetRecordsByCursor.
func (c *RecordsClient) GetRecordsByCursor(ctx context.Context, id string) (*kintone.GetRecordsByCursorResponse, error) {
	if id == "" {
		return nil, kintone.ErrCursorIDRequired
	}

	resp, err := c.httpClient.Get(ctx, apiRecordsCursor, map[string]string{"id": id})
	if err != nil {
		return nil, fmt.Errorf("getting records by cursor: %w", err)
	}

	var result kintone.GetRecordsByCursorResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing cursor page: %w", err)
	}

	return &result, nil
}

// DeleteCursor implements kintone.RecordPager.DeleteCursor.
func (c *RecordsClient) DeleteCursor(ctx context.Context, id string) error {
	if id == "" {
		return kintone.ErrCursorIDRequired
	}

	_, err := c.httpClient.Delete(ctx, apiRecordsCursor, map[string]string{"id": id})
	if err != nil {
		return fmt.Errorf("deleting cursor: %w", err)
	}

	return nil
}

// GetAllRecords implements kintone.RecordsClient.GetAllRecords.
func (c *RecordsClient) GetAllRecords(ctx context.Context, params *kintone.GetAllRecordsParams) ([]kintone.Record, error) {
	return kintone.GetAllRecords(ctx, c, params, &kintone.PaginationOptions{Logger: c.logger})
}

// AddAllRecords implements kintone.RecordsClient.AddAllRecords.
func (c *RecordsClient) AddAllRecords(ctx context.Context, params *kintone.AddAllRecordsParams) (*kintone.AddRecordsResponse, error) {
	return kintone.AddAllRecords(ctx, c.bulk, params)
}

// UpdateAllRecords implements kintone.RecordsClient.UpdateAllRecords.
func (c *RecordsClient) UpdateAllRecords(ctx context.Context, params *kintone.UpdateAllRecordsParams) (*kintone.UpdateRecordsResponse, error) {
	return kintone.UpdateAllRecords(ctx, c.bulk, params)
}

// DeleteAllRecords implements kintone.RecordsClient.DeleteAllRecords.
func (c *RecordsClient) DeleteAllRecords(ctx context.Context, params *kintone.DeleteAllRecordsParams) error {
	return kintone.DeleteAllRecords(ctx, c.bulk, params)
}

// UpdateAllRecordStatuses implements kintone.RecordsClient.UpdateAllRecordStatuses.
func (c *RecordsClient) UpdateAllRecordStatuses(ctx context.Context, params *kintone.UpdateAllRecordStatusesParams) (*kintone.UpdateRecordsResponse, error) {
	return kintone.UpdateAllRecordStatuses(ctx, c.bulk, params)
}

// UpsertRecord implements kintone.RecordsClient.UpsertRecord.
func (c *RecordsClient) UpsertRecord(ctx context.Context, params *kintone.UpsertRecordParams) (*kintone.UpsertResult, error) {
	return kintone.UpsertRecord(ctx, c, params)
}

func (c *RecordsClient) putRevision(ctx context.Context, api string, request interface{}, action string) (*kintone.UpdateRecordResponse, error) {
	resp, err := c.httpClient.Put(ctx, api, request)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	var result kintone.UpdateRecordResponse

	err = json.Unmarshal(resp.Body, &result)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", api, err)
	}

	return &result, nil
}
