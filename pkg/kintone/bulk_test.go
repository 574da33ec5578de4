package kintone_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// MockBulkRequester implements kintone.BulkRequester for testing
type MockBulkRequester struct {
	mock.Mock
}

func (m *MockBulkRequester) BulkRequest(ctx context.Context, requests []kintone.BulkSubRequest) (*kintone.BulkRequestResponse, error) {
	args := m.Called(ctx, requests)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*kintone.BulkRequestResponse), args.Error(1)
}

var errEnvelopeRejected = errors.New("envelope rejected")

// echoRequester answers every sub-request with a result derived from its
// payload and records the envelopes it saw.
type echoRequester struct {
	envelopes [][]kintone.BulkSubRequest
	failOn    int
}

func (r *echoRequester) BulkRequest(_ context.Context, requests []kintone.BulkSubRequest) (*kintone.BulkRequestResponse, error) {
	r.envelopes = append(r.envelopes, requests)

	if r.failOn > 0 && len(r.envelopes) == r.failOn {
		return nil, errEnvelopeRejected
	}

	results := make([]json.RawMessage, 0, len(requests))

	for _, request := range requests {
		var result interface{}

		switch payload := request.Payload.(type) {
		case *kintone.AddRecordRequest:
			result = kintone.AddRecordResponse{ID: payload.Record.StringValue("Title"), Revision: "1"}
		case *kintone.AddRecordsRequest:
			resp := kintone.AddRecordsResponse{}
			for _, record := range payload.Records {
				resp.IDs = append(resp.IDs, record.StringValue("Title"))
				resp.Revisions = append(resp.Revisions, "1")
			}

			result = resp
		case *kintone.UpdateRecordsRequest:
			resp := kintone.UpdateRecordsResponse{}
			for _, entry := range payload.Records {
				resp.Records = append(resp.Records, kintone.RecordRevision{ID: entry.ID, Revision: "2"})
			}

			result = resp
		case *kintone.UpdateRecordsStatusRequest:
			resp := kintone.UpdateRecordsResponse{}
			for _, update := range payload.Records {
				resp.Records = append(resp.Records, kintone.RecordRevision{ID: update.ID, Revision: "3"})
			}

			result = resp
		case *kintone.DeleteRecordsRequest:
			result = struct{}{}
		default:
			result = kintone.UpdateRecordResponse{Revision: "5"}
		}

		raw, _ := json.Marshal(result)
		results = append(results, raw)
	}

	return &kintone.BulkRequestResponse{Results: results}, nil
}

func titled(count int) []kintone.Record {
	records := make([]kintone.Record, count)
	for i := range records {
		records[i] = kintone.Record{"Title": {Value: strconv.Itoa(i)}}
	}

	return records
}

func TestAddAllRecords_ChunksIntoOneEnvelope(t *testing.T) {
	t.Parallel()

	requester := &echoRequester{}

	resp, err := kintone.AddAllRecords(context.Background(), requester, &kintone.AddAllRecordsParams{
		App:     "7",
		Records: titled(250),
	})
	require.NoError(t, err)

	require.Len(t, requester.envelopes, 1)
	envelope := requester.envelopes[0]
	require.Len(t, envelope, 3)

	for index, size := range []int{100, 100, 50} {
		assert.Equal(t, http.MethodPost, envelope[index].Method)
		assert.Equal(t, "records.json", envelope[index].API)

		payload, ok := envelope[index].Payload.(*kintone.AddRecordsRequest)
		require.True(t, ok)
		assert.Equal(t, "7", payload.App)
		assert.Len(t, payload.Records, size)
	}

	require.Len(t, resp.IDs, 250)
	for i, id := range resp.IDs {
		require.Equal(t, strconv.Itoa(i), id)
	}
}

func TestBulkExecutor_EnvelopesAndProgress(t *testing.T) { //nolint:funlen
	t.Parallel()

	tests := []struct {
		name      string
		intents   int
		size      int
		envelopes []int
	}{
		{name: "exact envelope", intents: 20, size: 0, envelopes: []int{20}},
		{name: "spills over", intents: 45, size: 0, envelopes: []int{20, 20, 5}},
		{name: "custom envelope size", intents: 7, size: 3, envelopes: []int{3, 3, 1}},
		{name: "oversized envelope is clamped", intents: 21, size: 50, envelopes: []int{20, 1}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			builder := kintone.NewBulkBuilder()
			for i := 0; i < tt.intents; i++ {
				builder.AddRecord("7", kintone.Record{"Title": {Value: fmt.Sprintf("r%d", i)}})
			}

			requester := &echoRequester{}

			var progress []kintone.BulkProgress

			resp, err := kintone.ExecuteBulk(context.Background(), requester, builder.Build(), &kintone.BulkOptions{
				EnvelopeSize: tt.size,
				OnProgress:   func(p kintone.BulkProgress) { progress = append(progress, p) },
			})
			require.NoError(t, err)

			sizes := make([]int, len(requester.envelopes))
			for i, envelope := range requester.envelopes {
				sizes[i] = len(envelope)
			}

			assert.Equal(t, tt.envelopes, sizes)

			require.Len(t, resp.Results, tt.intents)
			for i, result := range resp.Results {
				assert.Equal(t, fmt.Sprintf("r%d", i), result.ID)
			}

			require.Len(t, progress, len(tt.envelopes))

			done := 0
			for i, p := range progress {
				done += tt.envelopes[i]
				assert.Equal(t, tt.intents, p.Total)
				assert.Equal(t, done, p.Done)
			}
		})
	}
}

func TestBulkExecutor_MixedIntents(t *testing.T) {
	t.Parallel()

	key := kintone.UpdateKey{Field: "code", Value: "A-1"}
	intents := kintone.NewBulkBuilder().
		AddRecords("7", titled(150)).
		UpdateRecordByKey("7", key, kintone.Record{"Title": {Value: "x"}}).
		UpdateRecords("7", []kintone.UpdateRecordEntry{{ID: "1"}, {ID: "2"}}).
		DeleteRecords("7", []string{"1", "2", "3"}, []string{"4", "5", "6"}).
		UpdateRecordAssignees("7", "1", nil).
		UpdateRecordStatus("7", "1", "Start", "").
		UpdateRecordStatuses("7", []kintone.RecordStatusUpdate{{ID: "9", Action: "Done"}}).
		Build()

	requester := &echoRequester{}

	resp, err := kintone.ExecuteBulk(context.Background(), requester, intents, nil)
	require.NoError(t, err)

	require.Len(t, requester.envelopes, 1)
	apis := make([]string, 0)
	for _, request := range requester.envelopes[0] {
		apis = append(apis, request.Method+" "+request.API)
	}

	assert.Equal(t, []string{
		"POST records.json",
		"POST records.json",
		"PUT record.json",
		"PUT records.json",
		"DELETE records.json",
		"PUT record/assignees.json",
		"PUT record/status.json",
		"PUT records/status.json",
	}, apis)

	require.Len(t, resp.Results, 7)
	assert.Len(t, resp.Results[0].IDs, 150)
	assert.Equal(t, "5", resp.Results[1].Revision)
	assert.Equal(t, []kintone.RecordRevision{{ID: "1", Revision: "2"}, {ID: "2", Revision: "2"}}, resp.Results[2].Records)
	assert.Equal(t, kintone.BulkResult{}, resp.Results[3])
	assert.Equal(t, "5", resp.Results[4].Revision)
	assert.Equal(t, []kintone.RecordRevision{{ID: "9", Revision: "3"}}, resp.Results[6].Records)

	update, ok := requester.envelopes[0][2].Payload.(*kintone.UpdateRecordRequest)
	require.True(t, ok)
	assert.Equal(t, &key, update.UpdateKey)

	assignees, ok := requester.envelopes[0][5].Payload.(*kintone.UpdateRecordAssigneesRequest)
	require.True(t, ok)
	assert.NotNil(t, assignees.Assignees)

	deletes, ok := requester.envelopes[0][4].Payload.(*kintone.DeleteRecordsRequest)
	require.True(t, ok)
	assert.Equal(t, []string{"4", "5", "6"}, deletes.Revisions)
}

func TestBulkExecutor_EmptyMakesNoCalls(t *testing.T) {
	t.Parallel()

	requester := &MockBulkRequester{}

	resp, err := kintone.AddAllRecords(context.Background(), requester, &kintone.AddAllRecordsParams{App: "7"})
	require.NoError(t, err)
	assert.Empty(t, resp.IDs)

	err = kintone.DeleteAllRecords(context.Background(), requester, &kintone.DeleteAllRecordsParams{App: "7"})
	require.NoError(t, err)

	bulk, err := kintone.ExecuteBulk(context.Background(), requester, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, bulk.Results)

	requester.AssertNotCalled(t, "BulkRequest", mock.Anything, mock.Anything)
}

func TestBulkExecutor_EnvelopeFailure(t *testing.T) {
	t.Parallel()

	requester := &echoRequester{failOn: 2}

	var progress []kintone.BulkProgress

	err := kintone.DeleteAllRecords(context.Background(), requester, &kintone.DeleteAllRecordsParams{
		App:        "7",
		IDs:        make([]string, 2500),
		OnProgress: func(p kintone.BulkProgress) { progress = append(progress, p) },
	})
	require.ErrorIs(t, err, errEnvelopeRejected)

	var envelopeErr *kintone.BulkEnvelopeError
	require.ErrorAs(t, err, &envelopeErr)
	assert.Equal(t, 2, envelopeErr.Envelope)
	assert.Equal(t, 2, envelopeErr.Envelopes)
	assert.Equal(t, 20, envelopeErr.Completed)
	assert.Contains(t, err.Error(), "envelope 2 of 2")
	assert.Equal(t, []kintone.BulkProgress{{Total: 25, Done: 20}}, progress)
	assert.Len(t, requester.envelopes, 2)
}

func TestBulkExecutor_ResultCountMismatch(t *testing.T) {
	t.Parallel()

	requester := &MockBulkRequester{}
	requester.On("BulkRequest", mock.Anything, mock.MatchedBy(func(requests []kintone.BulkSubRequest) bool {
		return len(requests) == 2
	})).Return(&kintone.BulkRequestResponse{Results: []json.RawMessage{json.RawMessage(`{}`)}}, nil).Once()

	intents := kintone.NewBulkBuilder().
		UpdateRecord("7", "1", nil, "").
		UpdateRecord("7", "2", nil, "").
		Build()

	_, err := kintone.ExecuteBulk(context.Background(), requester, intents, nil)
	require.ErrorIs(t, err, kintone.ErrResultCountMismatch)
	requester.AssertExpectations(t)
}

func TestBulkExecutor_TransportError(t *testing.T) {
	t.Parallel()

	apiErr := &kintone.APIError{StatusCode: http.StatusBadRequest, Code: kintone.ErrorCodeInvalidInput, SubRequestIndex: 1}

	requester := &MockBulkRequester{}
	requester.On("BulkRequest", mock.Anything, mock.Anything).Return(nil, apiErr).Once()

	_, err := kintone.ExecuteBulk(context.Background(), requester, kintone.NewBulkBuilder().
		AddRecord("7", nil).
		AddRecord("7", nil).
		Build(), nil)

	var envelopeErr *kintone.BulkEnvelopeError
	require.ErrorAs(t, err, &envelopeErr)
	assert.Equal(t, 1, envelopeErr.Envelope)
	assert.Equal(t, 0, envelopeErr.Completed)

	var got *kintone.APIError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, 1, got.SubRequestIndex)
	requester.AssertExpectations(t)
}

func TestBulkExecutor_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	requester := &MockBulkRequester{}

	_, err := kintone.AddAllRecords(ctx, requester, &kintone.AddAllRecordsParams{App: "7", Records: titled(1)})
	require.ErrorIs(t, err, context.Canceled)
	requester.AssertNotCalled(t, "BulkRequest", mock.Anything, mock.Anything)
}

func TestBulkExecutor_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		intent kintone.BulkIntent
		err    error
	}{
		{name: "missing app", intent: kintone.AddRecordIntent{}, err: kintone.ErrAppRequired},
		{name: "no target", intent: kintone.UpdateRecordIntent{App: "7"}, err: kintone.ErrIDOrUpdateKeyRequired},
		{
			name:   "id and key",
			intent: kintone.UpdateRecordIntent{App: "7", ID: "1", UpdateKey: &kintone.UpdateKey{Field: "a", Value: "b"}},
			err:    kintone.ErrIDAndUpdateKey,
		},
		{
			name:   "half key",
			intent: kintone.UpdateRecordsIntent{App: "7", Records: []kintone.UpdateRecordEntry{{UpdateKey: &kintone.UpdateKey{Field: "a"}}}},
			err:    kintone.ErrInvalidUpdateKey,
		},
		{
			name:   "revisions misaligned",
			intent: kintone.DeleteRecordsIntent{App: "7", IDs: []string{"1", "2"}, Revisions: []string{"1"}},
			err:    kintone.ErrIDsRevisionsMismatch,
		},
		{name: "assignees without id", intent: kintone.UpdateRecordAssigneesIntent{App: "7"}, err: kintone.ErrRecordIDRequired},
		{name: "status without action", intent: kintone.UpdateRecordStatusIntent{App: "7", ID: "1"}, err: kintone.ErrActionRequired},
		{
			name:   "statuses without id",
			intent: kintone.UpdateRecordStatusesIntent{App: "7", Records: []kintone.RecordStatusUpdate{{Action: "Go"}}},
			err:    kintone.ErrRecordIDRequired,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			requester := &MockBulkRequester{}

			_, err := kintone.ExecuteBulk(context.Background(), requester, []kintone.BulkIntent{
				kintone.AddRecordIntent{App: "7"},
				tt.intent,
			}, nil)
			require.ErrorIs(t, err, tt.err)
			assert.Contains(t, err.Error(), "intent 1")
			requester.AssertNotCalled(t, "BulkRequest", mock.Anything, mock.Anything)
		})
	}
}

func TestBulkExecutor_CustomLimits(t *testing.T) {
	t.Parallel()

	requester := &echoRequester{}

	resp, err := kintone.ExecuteBulk(context.Background(), requester, kintone.NewBulkBuilder().
		UpdateRecords("7", []kintone.UpdateRecordEntry{{ID: "1"}, {ID: "2"}, {ID: "3"}}).
		Build(), &kintone.BulkOptions{Limits: &kintone.BulkLimits{Records: 2, Deletes: 1000}})
	require.NoError(t, err)

	require.Len(t, requester.envelopes, 1)
	assert.Len(t, requester.envelopes[0], 2)
	assert.Len(t, resp.Results[0].Records, 3)
}

func TestUpdateAllRecordStatuses(t *testing.T) {
	t.Parallel()

	requester := &echoRequester{}
	updates := make([]kintone.RecordStatusUpdate, 101)

	for i := range updates {
		updates[i] = kintone.RecordStatusUpdate{ID: strconv.Itoa(i + 1), Action: "Approve"}
	}

	resp, err := kintone.UpdateAllRecordStatuses(context.Background(), requester, &kintone.UpdateAllRecordStatusesParams{
		App:     "7",
		Records: updates,
	})
	require.NoError(t, err)
	require.Len(t, requester.envelopes, 1)
	assert.Len(t, requester.envelopes[0], 2)
	require.Len(t, resp.Records, 101)
	assert.Equal(t, "101", resp.Records[100].ID)

	_, err = kintone.UpdateAllRecordStatuses(context.Background(), requester, nil)
	require.ErrorIs(t, err, kintone.ErrAppRequired)
}
