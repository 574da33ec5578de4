package kintone

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// Bulk sub-request endpoints.
const (
	apiRecord          = "record.json"
	apiRecords         = "records.json"
	apiRecordAssignees = "record/assignees.json"
	apiRecordStatus    = "record/status.json"
	apiRecordsStatus   = "records/status.json"
)

// BulkIntent is one caller-level write operation. It expands into one or more
// sub-requests and folds their results back into a single BulkResult.
//
// The set of intents is closed: AddRecordIntent, UpdateRecordIntent,
// AddRecordsIntent, UpdateRecordsIntent, DeleteRecordsIntent,
// UpdateRecordAssigneesIntent, UpdateRecordStatusIntent, and
// UpdateRecordStatusesIntent.
type BulkIntent interface {
	validate() error
	subRequests(limits BulkLimits) []BulkSubRequest
	reduce(results []json.RawMessage) (BulkResult, error)
}

// BulkResult is the aggregate outcome of one intent. Only the fields matching
// the intent's response shape are set.
type BulkResult struct {
	ID        string           `json:"id,omitempty"        yaml:"id,omitempty"`
	Revision  string           `json:"revision,omitempty"  yaml:"revision,omitempty"`
	IDs       []string         `json:"ids,omitempty"       yaml:"ids,omitempty"`
	Revisions []string         `json:"revisions,omitempty" yaml:"revisions,omitempty"`
	Records   []RecordRevision `json:"records,omitempty"   yaml:"records,omitempty"`
}

// BulkResponse lists one result per intent, in input order.
type BulkResponse struct {
	Results []BulkResult `json:"results" yaml:"results"`
}

// BulkProgress counts sub-requests. Done never decreases and reaches Total on
// success.
type BulkProgress struct {
	Total int
	Done  int
}

// BulkLimits are the per-sub-request chunk ceilings.
type BulkLimits struct {
	Records  int
	Deletes  int
	Statuses int
}

// DefaultBulkLimits returns the provider ceilings.
func DefaultBulkLimits() BulkLimits {
	return BulkLimits{
		Records:  constants.MaxWriteRecords,
		Deletes:  constants.MaxDeleteRecords,
		Statuses: constants.MaxStatusUpdates,
	}
}

func (l BulkLimits) normalize() BulkLimits {
	return BulkLimits{
		Records:  clampLimit(l.Records, constants.MaxWriteRecords),
		Deletes:  clampLimit(l.Deletes, constants.MaxDeleteRecords),
		Statuses: clampLimit(l.Statuses, constants.MaxStatusUpdates),
	}
}

// BulkOptions tunes the batcher.
type BulkOptions struct {
	// EnvelopeSize is the sub-requests per bulkRequest call, at most 20.
	EnvelopeSize int
	// Limits overrides the chunk ceilings. Values above the provider
	// ceilings are clamped.
	Limits *BulkLimits
	// OnProgress is called after every envelope.
	OnProgress func(progress BulkProgress)
	// Logger receives per-envelope debug output.
	Logger Logger
}

// AddRecordIntent adds one record.
type AddRecordIntent struct {
	App    string
	Record Record
}

func (i AddRecordIntent) validate() error {
	return requireApp(i.App)
}

func (i AddRecordIntent) subRequests(BulkLimits) []BulkSubRequest {
	return []BulkSubRequest{{
		Method:  http.MethodPost,
		API:     apiRecord,
		Payload: &AddRecordRequest{App: i.App, Record: i.Record},
	}}
}

func (i AddRecordIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	var resp AddRecordResponse

	err := decodeSingle(results, &resp)
	if err != nil {
		return BulkResult{}, err
	}

	return BulkResult{ID: resp.ID, Revision: resp.Revision}, nil
}

// UpdateRecordIntent updates one record by ID or UpdateKey.
type UpdateRecordIntent struct {
	App       string
	ID        string
	UpdateKey *UpdateKey
	Record    Record
	Revision  string
}

func (i UpdateRecordIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	return validateTarget(i.ID, i.UpdateKey)
}

func (i UpdateRecordIntent) subRequests(BulkLimits) []BulkSubRequest {
	return []BulkSubRequest{{
		Method: http.MethodPut,
		API:    apiRecord,
		Payload: &UpdateRecordRequest{
			App: i.App, ID: i.ID, UpdateKey: i.UpdateKey, Record: i.Record, Revision: i.Revision,
		},
	}}
}

func (i UpdateRecordIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	return reduceRevision(results)
}

// AddRecordsIntent adds any number of records, 100 per sub-request.
type AddRecordsIntent struct {
	App     string
	Records []Record
}

func (i AddRecordsIntent) validate() error {
	return requireApp(i.App)
}

func (i AddRecordsIntent) subRequests(limits BulkLimits) []BulkSubRequest {
	chunks := chunk(i.Records, limits.Records)
	requests := make([]BulkSubRequest, 0, len(chunks))

	for _, records := range chunks {
		requests = append(requests, BulkSubRequest{
			Method:  http.MethodPost,
			API:     apiRecords,
			Payload: &AddRecordsRequest{App: i.App, Records: records},
		})
	}

	return requests
}

func (i AddRecordsIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	out := BulkResult{IDs: make([]string, 0, len(i.Records)), Revisions: make([]string, 0, len(i.Records))}

	for index, raw := range results {
		var resp AddRecordsResponse

		err := json.Unmarshal(raw, &resp)
		if err != nil {
			return BulkResult{}, fmt.Errorf("decoding add records result %d: %w", index, err)
		}

		out.IDs = append(out.IDs, resp.IDs...)
		out.Revisions = append(out.Revisions, resp.Revisions...)
	}

	return out, nil
}

// UpdateRecordsIntent updates any number of records, 100 per sub-request.
type UpdateRecordsIntent struct {
	App     string
	Records []UpdateRecordEntry
}

func (i UpdateRecordsIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	for index, entry := range i.Records {
		err = validateTarget(entry.ID, entry.UpdateKey)
		if err != nil {
			return fmt.Errorf("record %d: %w", index, err)
		}
	}

	return nil
}

func (i UpdateRecordsIntent) subRequests(limits BulkLimits) []BulkSubRequest {
	chunks := chunk(i.Records, limits.Records)
	requests := make([]BulkSubRequest, 0, len(chunks))

	for _, records := range chunks {
		requests = append(requests, BulkSubRequest{
			Method:  http.MethodPut,
			API:     apiRecords,
			Payload: &UpdateRecordsRequest{App: i.App, Records: records},
		})
	}

	return requests
}

func (i UpdateRecordsIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	return reduceRecordRevisions(results, len(i.Records))
}

// DeleteRecordsIntent deletes any number of records, 100 per sub-request.
// Revisions, when set, must align with IDs.
type DeleteRecordsIntent struct {
	App       string
	IDs       []string
	Revisions []string
}

func (i DeleteRecordsIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	if len(i.Revisions) > 0 && len(i.Revisions) != len(i.IDs) {
		return ErrIDsRevisionsMismatch
	}

	return nil
}

func (i DeleteRecordsIntent) subRequests(limits BulkLimits) []BulkSubRequest {
	idChunks := chunk(i.IDs, limits.Deletes)
	revisionChunks := chunk(i.Revisions, limits.Deletes)
	requests := make([]BulkSubRequest, 0, len(idChunks))

	for index, ids := range idChunks {
		payload := &DeleteRecordsRequest{App: i.App, IDs: ids}
		if index < len(revisionChunks) {
			payload.Revisions = revisionChunks[index]
		}

		requests = append(requests, BulkSubRequest{
			Method:  http.MethodDelete,
			API:     apiRecords,
			Payload: payload,
		})
	}

	return requests
}

func (i DeleteRecordsIntent) reduce([]json.RawMessage) (BulkResult, error) {
	return BulkResult{}, nil
}

// UpdateRecordAssigneesIntent replaces the assignees of one record.
type UpdateRecordAssigneesIntent struct {
	App       string
	ID        string
	Assignees []string
	Revision  string
}

func (i UpdateRecordAssigneesIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	if i.ID == "" {
		return ErrRecordIDRequired
	}

	return nil
}

func (i UpdateRecordAssigneesIntent) subRequests(BulkLimits) []BulkSubRequest {
	assignees := i.Assignees
	if assignees == nil {
		assignees = []string{}
	}

	return []BulkSubRequest{{
		Method: http.MethodPut,
		API:    apiRecordAssignees,
		Payload: &UpdateRecordAssigneesRequest{
			App: i.App, ID: i.ID, Assignees: assignees, Revision: i.Revision,
		},
	}}
}

func (i UpdateRecordAssigneesIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	return reduceRevision(results)
}

// UpdateRecordStatusIntent runs one process management action.
type UpdateRecordStatusIntent struct {
	App      string
	ID       string
	Action   string
	Assignee string
	Revision string
}

func (i UpdateRecordStatusIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	return validateStatus(i.ID, i.Action)
}

func (i UpdateRecordStatusIntent) subRequests(BulkLimits) []BulkSubRequest {
	return []BulkSubRequest{{
		Method: http.MethodPut,
		API:    apiRecordStatus,
		Payload: &UpdateRecordStatusRequest{
			App: i.App, ID: i.ID, Action: i.Action, Assignee: i.Assignee, Revision: i.Revision,
		},
	}}
}

func (i UpdateRecordStatusIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	return reduceRevision(results)
}

// UpdateRecordStatusesIntent runs actions on any number of records, 100 per
// sub-request.
type UpdateRecordStatusesIntent struct {
	App     string
	Records []RecordStatusUpdate
}

func (i UpdateRecordStatusesIntent) validate() error {
	err := requireApp(i.App)
	if err != nil {
		return err
	}

	for index, update := range i.Records {
		err = validateStatus(update.ID, update.Action)
		if err != nil {
			return fmt.Errorf("record %d: %w", index, err)
		}
	}

	return nil
}

func (i UpdateRecordStatusesIntent) subRequests(limits BulkLimits) []BulkSubRequest {
	chunks := chunk(i.Records, limits.Statuses)
	requests := make([]BulkSubRequest, 0, len(chunks))

	for _, records := range chunks {
		requests = append(requests, BulkSubRequest{
			Method:  http.MethodPut,
			API:     apiRecordsStatus,
			Payload: &UpdateRecordsStatusRequest{App: i.App, Records: records},
		})
	}

	return requests
}

func (i UpdateRecordStatusesIntent) reduce(results []json.RawMessage) (BulkResult, error) {
	return reduceRecordRevisions(results, len(i.Records))
}

// BulkExecutor dispatches intents through bulkRequest envelopes, one envelope
// at a time. Envelopes that completed before a failure stay committed.
type BulkExecutor struct {
	requester BulkRequester
	options   BulkOptions
}

// NewBulkExecutor creates an executor. A nil options uses the defaults.
func NewBulkExecutor(requester BulkRequester, options *BulkOptions) *BulkExecutor {
	executor := &BulkExecutor{requester: requester}
	if options != nil {
		executor.options = *options
	}

	executor.options.EnvelopeSize = clampLimit(executor.options.EnvelopeSize, constants.MaxBulkRequests)

	return executor
}

// Execute validates every intent, then sends the expanded sub-requests. An
// empty expansion makes no network call.
func (e *BulkExecutor) Execute(ctx context.Context, intents []BulkIntent) (*BulkResponse, error) {
	limits := DefaultBulkLimits()
	if e.options.Limits != nil {
		limits = e.options.Limits.normalize()
	}

	counts := make([]int, len(intents))
	requests := make([]BulkSubRequest, 0, len(intents))

	for index, intent := range intents {
		err := intent.validate()
		if err != nil {
			return nil, fmt.Errorf("validating bulk intent %d: %w", index, err)
		}

		expanded := intent.subRequests(limits)
		counts[index] = len(expanded)
		requests = append(requests, expanded...)
	}

	results, err := e.dispatch(ctx, requests)
	if err != nil {
		return nil, err
	}

	response := &BulkResponse{Results: make([]BulkResult, len(intents))}
	offset := 0

	for index, intent := range intents {
		result, err := intent.reduce(results[offset : offset+counts[index]])
		if err != nil {
			return nil, fmt.Errorf("reducing bulk intent %d: %w", index, err)
		}

		response.Results[index] = result
		offset += counts[index]
	}

	return response, nil
}

func (e *BulkExecutor) dispatch(ctx context.Context, requests []BulkSubRequest) ([]json.RawMessage, error) {
	total := len(requests)
	size := e.options.EnvelopeSize
	envelopes := (total + size - 1) / size
	results := make([]json.RawMessage, 0, total)

	for start, envelope := 0, 1; start < total; start, envelope = start+size, envelope+1 {
		end := min(start+size, total)

		envelopeErr := func(err error) error {
			return &BulkEnvelopeError{Envelope: envelope, Envelopes: envelopes, Completed: start, Err: err}
		}

		err := ctx.Err()
		if err != nil {
			return nil, envelopeErr(err)
		}

		resp, err := e.requester.BulkRequest(ctx, requests[start:end])
		if err != nil {
			return nil, envelopeErr(err)
		}

		if len(resp.Results) != end-start {
			return nil, envelopeErr(fmt.Errorf("%w: got %d, want %d", ErrResultCountMismatch, len(resp.Results), end-start))
		}

		results = append(results, resp.Results...)

		if e.options.Logger != nil {
			e.options.Logger.Debug("Bulk envelope committed", map[string]interface{}{
				"envelope":  envelope,
				"envelopes": envelopes,
				"done":      end,
				"total":     total,
			})
		}

		if e.options.OnProgress != nil {
			e.options.OnProgress(BulkProgress{Total: total, Done: end})
		}
	}

	return results, nil
}

// ExecuteBulk is a one-shot NewBulkExecutor(requester, options).Execute.
func ExecuteBulk(ctx context.Context, requester BulkRequester, intents []BulkIntent, options *BulkOptions) (*BulkResponse, error) {
	return NewBulkExecutor(requester, options).Execute(ctx, intents)
}

// AddAllRecordsParams adds any number of records.
type AddAllRecordsParams struct {
	App        string
	Records    []Record
	OnProgress func(progress BulkProgress)
}

// UpdateAllRecordsParams updates any number of records.
type UpdateAllRecordsParams struct {
	App        string
	Records    []UpdateRecordEntry
	OnProgress func(progress BulkProgress)
}

// DeleteAllRecordsParams deletes any number of records.
type DeleteAllRecordsParams struct {
	App        string
	IDs        []string
	Revisions  []string
	OnProgress func(progress BulkProgress)
}

// UpdateAllRecordStatusesParams runs process actions on any number of records.
type UpdateAllRecordStatusesParams struct {
	App        string
	Records    []RecordStatusUpdate
	OnProgress func(progress BulkProgress)
}

// AddAllRecords adds every record through bulk envelopes and returns ids and
// revisions in input order.
func AddAllRecords(ctx context.Context, requester BulkRequester, params *AddAllRecordsParams) (*AddRecordsResponse, error) {
	if params == nil {
		return nil, ErrAppRequired
	}

	result, err := executeOne(ctx, requester, AddRecordsIntent{App: params.App, Records: params.Records}, params.OnProgress)
	if err != nil {
		return nil, err
	}

	return &AddRecordsResponse{IDs: result.IDs, Revisions: result.Revisions}, nil
}

// UpdateAllRecords updates every record through bulk envelopes.
func UpdateAllRecords(ctx context.Context, requester BulkRequester, params *UpdateAllRecordsParams) (*UpdateRecordsResponse, error) {
	if params == nil {
		return nil, ErrAppRequired
	}

	result, err := executeOne(ctx, requester, UpdateRecordsIntent{App: params.App, Records: params.Records}, params.OnProgress)
	if err != nil {
		return nil, err
	}

	return &UpdateRecordsResponse{Records: result.Records}, nil
}

// DeleteAllRecords deletes every id through bulk envelopes.
func DeleteAllRecords(ctx context.Context, requester BulkRequester, params *DeleteAllRecordsParams) error {
	if params == nil {
		return ErrAppRequired
	}

	_, err := executeOne(ctx, requester, DeleteRecordsIntent{
		App: params.App, IDs: params.IDs, Revisions: params.Revisions,
	}, params.OnProgress)

	return err
}

// UpdateAllRecordStatuses runs every status action through bulk envelopes.
func UpdateAllRecordStatuses(ctx context.Context, requester BulkRequester, params *UpdateAllRecordStatusesParams) (*UpdateRecordsResponse, error) {
	if params == nil {
		return nil, ErrAppRequired
	}

	result, err := executeOne(ctx, requester, UpdateRecordStatusesIntent{App: params.App, Records: params.Records}, params.OnProgress)
	if err != nil {
		return nil, err
	}

	return &UpdateRecordsResponse{Records: result.Records}, nil
}

func executeOne(ctx context.Context, requester BulkRequester, intent BulkIntent, onProgress func(BulkProgress)) (BulkResult, error) {
	resp, err := ExecuteBulk(ctx, requester, []BulkIntent{intent}, &BulkOptions{OnProgress: onProgress})
	if err != nil {
		return BulkResult{}, err
	}

	return resp.Results[0], nil
}

// BulkBuilder collects intents fluently.
type BulkBuilder struct {
	intents []BulkIntent
}

// NewBulkBuilder creates an empty builder.
func NewBulkBuilder() *BulkBuilder {
	return &BulkBuilder{intents: make([]BulkIntent, 0)}
}

// AddRecord queues a single add.
func (b *BulkBuilder) AddRecord(app string, record Record) *BulkBuilder {
	return b.Add(AddRecordIntent{App: app, Record: record})
}

// UpdateRecord queues a single update by id.
func (b *BulkBuilder) UpdateRecord(app, id string, record Record, revision string) *BulkBuilder {
	return b.Add(UpdateRecordIntent{App: app, ID: id, Record: record, Revision: revision})
}

// UpdateRecordByKey queues a single update by update key.
func (b *BulkBuilder) UpdateRecordByKey(app string, key UpdateKey, record Record) *BulkBuilder {
	return b.Add(UpdateRecordIntent{App: app, UpdateKey: &key, Record: record})
}

// AddRecords queues a multi-record add.
func (b *BulkBuilder) AddRecords(app string, records []Record) *BulkBuilder {
	return b.Add(AddRecordsIntent{App: app, Records: records})
}

// UpdateRecords queues a multi-record update.
func (b *BulkBuilder) UpdateRecords(app string, records []UpdateRecordEntry) *BulkBuilder {
	return b.Add(UpdateRecordsIntent{App: app, Records: records})
}

// DeleteRecords queues a multi-record delete.
func (b *BulkBuilder) DeleteRecords(app string, ids, revisions []string) *BulkBuilder {
	return b.Add(DeleteRecordsIntent{App: app, IDs: ids, Revisions: revisions})
}

// UpdateRecordAssignees queues an assignee change.
func (b *BulkBuilder) UpdateRecordAssignees(app, id string, assignees []string) *BulkBuilder {
	return b.Add(UpdateRecordAssigneesIntent{App: app, ID: id, Assignees: assignees})
}

// UpdateRecordStatus queues one process action.
func (b *BulkBuilder) UpdateRecordStatus(app, id, action, assignee string) *BulkBuilder {
	return b.Add(UpdateRecordStatusIntent{App: app, ID: id, Action: action, Assignee: assignee})
}

// UpdateRecordStatuses queues process actions on many records.
func (b *BulkBuilder) UpdateRecordStatuses(app string, records []RecordStatusUpdate) *BulkBuilder {
	return b.Add(UpdateRecordStatusesIntent{App: app, Records: records})
}

// Add queues any intent.
func (b *BulkBuilder) Add(intent BulkIntent) *BulkBuilder {
	b.intents = append(b.intents, intent)

	return b
}

// Build returns the queued intents.
func (b *BulkBuilder) Build() []BulkIntent {
	return b.intents
}

func requireApp(app string) error {
	if app == "" {
		return ErrAppRequired
	}

	return nil
}

// ValidateUpdateTarget checks that exactly one of id and key identifies the
// record, and that a key carries both field and value.
func ValidateUpdateTarget(id string, key *UpdateKey) error {
	return validateTarget(id, key)
}

func validateTarget(id string, key *UpdateKey) error {
	switch {
	case id != "" && key != nil:
		return ErrIDAndUpdateKey
	case id == "" && key == nil:
		return ErrIDOrUpdateKeyRequired
	case key != nil && (key.Field == "" || key.Value == ""):
		return ErrInvalidUpdateKey
	}

	return nil
}

func validateStatus(id, action string) error {
	if id == "" {
		return ErrRecordIDRequired
	}

	if action == "" {
		return ErrActionRequired
	}

	return nil
}

func decodeSingle(results []json.RawMessage, out interface{}) error {
	if len(results) != 1 {
		return fmt.Errorf("%w: %d results for one sub-request", ErrUnexpectedResultShape, len(results))
	}

	err := json.Unmarshal(results[0], out)
	if err != nil {
		return fmt.Errorf("decoding bulk result: %w", err)
	}

	return nil
}

func reduceRevision(results []json.RawMessage) (BulkResult, error) {
	var resp UpdateRecordResponse

	err := decodeSingle(results, &resp)
	if err != nil {
		return BulkResult{}, err
	}

	return BulkResult{Revision: resp.Revision}, nil
}

func reduceRecordRevisions(results []json.RawMessage, capacity int) (BulkResult, error) {
	out := BulkResult{Records: make([]RecordRevision, 0, capacity)}

	for index, raw := range results {
		var resp UpdateRecordsResponse

		err := json.Unmarshal(raw, &resp)
		if err != nil {
			return BulkResult{}, fmt.Errorf("decoding records result %d: %w", index, err)
		}

		out.Records = append(out.Records, resp.Records...)
	}

	return out, nil
}

func chunk[T any](items []T, size int) [][]T {
	if len(items) == 0 {
		return nil
	}

	chunks := make([][]T, 0, (len(items)+size-1)/size)
	for start := 0; start < len(items); start += size {
		chunks = append(chunks, items[start:min(start+size, len(items))])
	}

	return chunks
}

func clampLimit(value, ceiling int) int {
	if value <= 0 || value > ceiling {
		return ceiling
	}

	return value
}
