package client_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/kintone/internal/client"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

func TestRecordsClient_GetRecord(t *testing.T) {
	t.Parallel()

	tests := []TestOperation{
		{
			Name:           "found",
			ExpectedMethod: "GET",
			ExpectedPath:   "/k/v1/record.json",
			StatusCode:     http.StatusOK,
			Response: map[string]interface{}{
				"record": map[string]interface{}{
					"$id":   map[string]string{"type": "__ID__", "value": "9"},
					"Title": map[string]string{"type": "SINGLE_LINE_TEXT", "value": "hello"},
				},
			},
			Inspect: func(t *testing.T, request *http.Request) {
				t.Helper()
				assert.Equal(t, "7", request.URL.Query().Get("app"))
				assert.Equal(t, "9", request.URL.Query().Get("id"))
				assert.Equal(t, "token", request.Header.Get("X-Cybozu-API-Token"))
			},
		},
		{
			Name:           "not found",
			ExpectedMethod: "GET",
			ExpectedPath:   "/k/v1/record.json",
			StatusCode:     http.StatusNotFound,
			Response:       notFoundBody(),
			WantErr:        true,
			ErrMessage:     "GAIA_RE01",
		},
	}

	RunOperationTests(t, tests, func(c *client.Client) error {
		record, err := c.Records().GetRecord(context.Background(), &kintone.GetRecordRequest{App: "7", ID: "9"})
		if err != nil {
			return err
		}

		assert.Equal(t, "9", record.ID())
		assert.Equal(t, "hello", record.StringValue("Title"))

		return nil
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRecordsClient_Validation(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, unreachable(t))
	records := c.Records()
	ctx := context.Background()

	tooMany := make([]kintone.Record, 101)

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "get record without app",
			call: func() error {
				_, err := records.GetRecord(ctx, &kintone.GetRecordRequest{ID: "1"})

				return err
			},
			want: kintone.ErrAppRequired,
		},
		{
			name: "get record without id",
			call: func() error {
				_, err := records.GetRecord(ctx, &kintone.GetRecordRequest{App: "1"})

				return err
			},
			want: kintone.ErrRecordIDRequired,
		},
		{
			name: "update without target",
			call: func() error {
				_, err := records.UpdateRecord(ctx, &kintone.UpdateRecordRequest{App: "1"})

				return err
			},
			want: kintone.ErrIDOrUpdateKeyRequired,
		},
		{
			name: "update with id and key",
			call: func() error {
				_, err := records.UpdateRecord(ctx, &kintone.UpdateRecordRequest{
					App: "1", ID: "2", UpdateKey: &kintone.UpdateKey{Field: "code", Value: "x"},
				})

				return err
			},
			want: kintone.ErrIDAndUpdateKey,
		},
		{
			name: "update key without value",
			call: func() error {
				_, err := records.UpdateRecord(ctx, &kintone.UpdateRecordRequest{
					App: "1", UpdateKey: &kintone.UpdateKey{Field: "code"},
				})

				return err
			},
			want: kintone.ErrInvalidUpdateKey,
		},
		{
			name: "too many records",
			call: func() error {
				_, err := records.AddRecords(ctx, &kintone.AddRecordsRequest{App: "1", Records: tooMany})

				return err
			},
			want: kintone.ErrTooManyRecords,
		},
		{
			name: "ids and revisions mismatch",
			call: func() error {
				return records.DeleteRecords(ctx, &kintone.DeleteRecordsRequest{
					App: "1", IDs: []string{"1", "2"}, Revisions: []string{"1"},
				})
			},
			want: kintone.ErrIDsRevisionsMismatch,
		},
		{
			name: "status without action",
			call: func() error {
				_, err := records.UpdateRecordStatus(ctx, &kintone.UpdateRecordStatusRequest{App: "1", ID: "2"})

				return err
			},
			want: kintone.ErrActionRequired,
		},
		{
			name: "cursor without id",
			call: func() error {
				_, err := records.GetRecordsByCursor(ctx, "")

				return err
			},
			want: kintone.ErrCursorIDRequired,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.ErrorIs(t, tt.call(), tt.want)
		})
	}

	t.Run("empty delete makes no call", func(t *testing.T) {
		t.Parallel()
		require.NoError(t, records.DeleteRecords(ctx, &kintone.DeleteRecordsRequest{App: "1"}))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRecordsClient_Writes(t *testing.T) {
	t.Parallel()

	t.Run("update by key", func(t *testing.T) {
		t.Parallel()

		tests := []TestOperation{{
			Name:           "update by key",
			ExpectedMethod: "PUT",
			ExpectedPath:   "/k/v1/record.json",
			StatusCode:     http.StatusOK,
			Response:       map[string]string{"revision": "4"},
			Inspect: func(t *testing.T, request *http.Request) {
				t.Helper()

				body := decodeBody(t, request)
				assert.Equal(t, "7", body["app"])
				assert.Equal(t, map[string]interface{}{"field": "code", "value": "A-1"}, body["updateKey"])
				assert.NotContains(t, body, "id")
			},
		}}

		RunOperationTests(t, tests, func(c *client.Client) error {
			resp, err := c.Records().UpdateRecord(context.Background(), &kintone.UpdateRecordRequest{
				App:       "7",
				UpdateKey: &kintone.UpdateKey{Field: "code", Value: "A-1"},
				Record:    kintone.Record{"Title": {Value: "new"}},
			})
			if err != nil {
				return err
			}

			assert.Equal(t, "4", resp.Revision)

			return nil
		})
	})

	t.Run("delete with revisions", func(t *testing.T) {
		t.Parallel()

		tests := []TestOperation{{
			Name:           "delete",
			ExpectedMethod: "DELETE",
			ExpectedPath:   "/k/v1/records.json",
			StatusCode:     http.StatusOK,
			Response:       map[string]string{},
			Inspect: func(t *testing.T, request *http.Request) {
				t.Helper()

				query := request.URL.Query()
				assert.Equal(t, "1", query.Get("ids[0]"))
				assert.Equal(t, "2", query.Get("ids[1]"))
				assert.Equal(t, "5", query.Get("revisions[1]"))
			},
		}}

		RunOperationTests(t, tests, func(c *client.Client) error {
			return c.Records().DeleteRecords(context.Background(), &kintone.DeleteRecordsRequest{
				App: "7", IDs: []string{"1", "2"}, Revisions: []string{"3", "5"},
			})
		})
	})

	t.Run("revision conflict", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			writer.WriteHeader(http.StatusConflict)
			_, _ = writer.Write([]byte(`{"code":"GAIA_CO02","id":"x","message":"The revision is not the latest."}`))
		}))
		defer server.Close()

		c := newTestClient(t, server.URL)

		_, err := c.Records().UpdateRecord(context.Background(), &kintone.UpdateRecordRequest{App: "7", ID: "1", Revision: "2"})
		require.Error(t, err)
		assert.True(t, kintone.IsRevisionConflict(err))
	})
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRecordsClient_Cursor(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		calls   []string
		deleted bool
	)

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		calls = append(calls, request.Method)
		mu.Unlock()

		assert.Equal(t, "/k/v1/records/cursor.json", request.URL.Path)

		switch request.Method {
		case "POST":
			body := decodeBody(t, request)
			assert.Equal(t, "order by Title asc", body["query"])
			assert.InDelta(t, 500, body["size"], 0)
			_, _ = writer.Write([]byte(`{"id":"cur-1","totalCount":"3"}`))
		case "GET":
			assert.Equal(t, "cur-1", request.URL.Query().Get("id"))
			_, _ = writer.Write([]byte(`{"records":[{"$id":{"value":"1"}},{"$id":{"value":"2"}},{"$id":{"value":"3"}}],"next":false}`))
		case "DELETE":
			mu.Lock()
			deleted = true
			mu.Unlock()
			writer.WriteHeader(http.StatusOK)
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	var total int

	records, err := c.Records().GetAllRecords(context.Background(), &kintone.GetAllRecordsParams{
		App:        "7",
		Query:      "order by Title asc",
		OnTotalGet: func(n int) { total = n },
	})
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, 3, total)
	assert.Equal(t, []string{"POST", "GET"}, calls)
	assert.False(t, deleted)
}

func TestRecordsClient_GetAllRecordsByID(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		query := request.URL.Query()
		assert.Equal(t, "/k/v1/records.json", request.URL.Path)
		assert.Equal(t, `Status = "open" order by $id desc limit 500`, query.Get("query"))
		assert.Equal(t, "Title", query.Get("fields[0]"))
		assert.Equal(t, "$id", query.Get("fields[1]"))

		_, _ = writer.Write([]byte(`{"records":[{"$id":{"value":"8"}},{"$id":{"value":"4"}}],"totalCount":null}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	records, err := c.Records().GetAllRecords(context.Background(), &kintone.GetAllRecordsParams{
		App:    "7",
		Query:  `Status = "open"`,
		Fields: []string{"Title"},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "8", records[0].ID())
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestRecordsClient_AddAllRecords(t *testing.T) {
	t.Parallel()

	var envelopes int

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		assert.Equal(t, "POST", request.Method)
		assert.Equal(t, "/k/v1/bulkRequest.json", request.URL.Path)

		envelopes++

		var envelope struct {
			Requests []struct {
				Method  string `json:"method"`
				API     string `json:"api"`
				Payload struct {
					App     string            `json:"app"`
					Records []json.RawMessage `json:"records"`
				} `json:"payload"`
			} `json:"requests"`
		}

		require.NoError(t, json.NewDecoder(request.Body).Decode(&envelope))
		require.Len(t, envelope.Requests, 3)

		results := make([]string, 0, len(envelope.Requests))
		next := 1

		for _, sub := range envelope.Requests {
			assert.Equal(t, "POST", sub.Method)
			assert.Equal(t, "/k/v1/records.json", sub.API)

			ids := make([]string, len(sub.Payload.Records))
			revisions := make([]string, len(sub.Payload.Records))

			for i := range sub.Payload.Records {
				ids[i] = fmt.Sprintf("%q", fmt.Sprint(next))
				revisions[i] = `"1"`
				next++
			}

			results = append(results, fmt.Sprintf(`{"ids":[%s],"revisions":[%s]}`,
				strings.Join(ids, ","), strings.Join(revisions, ",")))
		}

		_, _ = writer.Write([]byte(`{"results":[` + strings.Join(results, ",") + `]}`))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	records := make([]kintone.Record, 250)
	for i := range records {
		records[i] = kintone.Record{"Title": {Value: fmt.Sprint(i)}}
	}

	var progress []kintone.BulkProgress

	resp, err := c.Records().AddAllRecords(context.Background(), &kintone.AddAllRecordsParams{
		App:        "7",
		Records:    records,
		OnProgress: func(p kintone.BulkProgress) { progress = append(progress, p) },
	})
	require.NoError(t, err)
	assert.Equal(t, 1, envelopes)
	require.Len(t, resp.IDs, 250)
	assert.Equal(t, "1", resp.IDs[0])
	assert.Equal(t, "250", resp.IDs[249])
	assert.Equal(t, []kintone.BulkProgress{{Total: 3, Done: 3}}, progress)
}

func TestRecordsClient_UpsertRecord(t *testing.T) {
	t.Parallel()

	var methods []string

	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		methods = append(methods, request.Method+" "+request.URL.Path)

		switch request.Method {
		case "GET":
			assert.Equal(t, `code = "A-1" limit 1`, request.URL.Query().Get("query"))
			_, _ = writer.Write([]byte(`{"records":[{"$id":{"value":"12"},"$revision":{"value":"3"}}]}`))
		case "PUT":
			body := decodeBody(t, request)
			assert.Equal(t, "12", body["id"])
			assert.Equal(t, "3", body["revision"])
			_, _ = writer.Write([]byte(`{"revision":"4"}`))
		}
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	result, err := c.Records().UpsertRecord(context.Background(), &kintone.UpsertRecordParams{
		App:       "7",
		UpdateKey: kintone.UpdateKey{Field: "code", Value: "A-1"},
		Record:    kintone.Record{"Title": {Value: "x"}},
	})
	require.NoError(t, err)
	assert.Equal(t, kintone.UpsertResult{ID: "12", Revision: "4", Operation: kintone.UpsertOperationUpdate}, *result)
	assert.Equal(t, []string{"GET /k/v1/records.json", "PUT /k/v1/record.json"}, methods)
}
