package kintone

import (
	"context"
	"fmt"
	"slices"

	"github.com/fivetwenty-io/kintone/internal/constants"
)

// RecordStep is reported after every fetched page.
type RecordStep struct {
	// Records is everything fetched so far, in fetch order.
	Records []Record
	// Incremental is the page just fetched.
	Incremental []Record
}

// RecordPage is one item of a record stream. Err is set on the final item
// when the scan failed.
type RecordPage struct {
	Records []Record
	Err     error
}

// GetAllRecordsParams selects the records to read.
type GetAllRecordsParams struct {
	App    string
	Query  string
	Fields []string

	// OnStep is called after every page.
	OnStep func(step RecordStep)
	// OnTotalGet receives the total match count once, when the server reports it.
	OnTotalGet func(total int)
}

// PaginationOptions tunes the reader.
type PaginationOptions struct {
	// PageSize is the records per page. Zero or values above 500 use 500.
	PageSize int
	// Logger receives per-page debug output. Nil is silent.
	Logger Logger
}

// DefaultPaginationOptions returns the provider maximum page size.
func DefaultPaginationOptions() *PaginationOptions {
	return &PaginationOptions{PageSize: constants.MaxRecordsPageSize}
}

func (o *PaginationOptions) pageSize() int {
	if o == nil || o.PageSize <= 0 || o.PageSize > constants.MaxRecordsPageSize {
		return constants.MaxRecordsPageSize
	}

	return o.PageSize
}

func (o *PaginationOptions) debug(msg string, fields map[string]interface{}) {
	if o != nil && o.Logger != nil {
		o.Logger.Debug(msg, fields)
	}
}

// GetAllRecords reads every record matching params.Query.
//
// A query with a limit clause is sent once as is. A query with an order by
// clause is read through a server-side cursor. Any other query is read by
// walking $id downwards, which means records are returned in descending $id
// order regardless of insertion order.
func GetAllRecords(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions) ([]Record, error) {
	if params == nil || params.App == "" {
		return nil, ErrAppRequired
	}

	switch {
	case HasLimit(params.Query):
		return getRecordsOnce(ctx, pager, params)
	case HasOrderBy(params.Query):
		return GetAllRecordsWithCursor(ctx, pager, params, opts)
	default:
		return GetAllRecordsWithID(ctx, pager, params, opts)
	}
}

// GetAllRecordsWithID reads every record by paging on $id. Any order by,
// limit, or offset clause in params.Query is discarded.
func GetAllRecordsWithID(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions) ([]Record, error) {
	if params == nil || params.App == "" {
		return nil, ErrAppRequired
	}

	all := make([]Record, 0)

	err := scanWithID(ctx, pager, params, opts, func(page []Record) {
		all = append(all, page...)
		if params.OnStep != nil {
			params.OnStep(RecordStep{Records: all, Incremental: page})
		}
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

// GetAllRecordsWithCursor reads every record through a server-side cursor. The
// cursor is deleted when the scan stops before the last page.
func GetAllRecordsWithCursor(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions) ([]Record, error) {
	if params == nil || params.App == "" {
		return nil, ErrAppRequired
	}

	all := make([]Record, 0)

	err := scanWithCursor(ctx, pager, params, opts, func(page []Record) {
		all = append(all, page...)
		if params.OnStep != nil {
			params.OnStep(RecordStep{Records: all, Incremental: page})
		}
	})
	if err != nil {
		return nil, err
	}

	return all, nil
}

// StreamAllRecords runs the same strategy selection as GetAllRecords but hands
// each page to the returned channel instead of accumulating. The channel is
// closed when the scan ends; a failure is delivered as a final RecordPage with
// Err set. Cancel ctx to stop early.
func StreamAllRecords(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions) <-chan RecordPage {
	pages := make(chan RecordPage)

	go func() {
		defer close(pages)

		send := func(page RecordPage) {
			select {
			case pages <- page:
			case <-ctx.Done():
			}
		}

		if params == nil || params.App == "" {
			send(RecordPage{Err: ErrAppRequired})

			return
		}

		sink := func(page []Record) {
			send(RecordPage{Records: page})
		}

		var err error

		switch {
		case HasLimit(params.Query):
			var records []Record

			records, err = getRecordsOnce(ctx, pager, &GetAllRecordsParams{
				App: params.App, Query: params.Query, Fields: params.Fields,
			})
			if err == nil {
				sink(records)
			}
		case HasOrderBy(params.Query):
			err = scanWithCursor(ctx, pager, params, opts, sink)
		default:
			err = scanWithID(ctx, pager, params, opts, sink)
		}

		if err != nil {
			send(RecordPage{Err: err})
		}
	}()

	return pages
}

func getRecordsOnce(ctx context.Context, pager RecordPager, params *GetAllRecordsParams) ([]Record, error) {
	resp, err := pager.GetRecords(ctx, &GetRecordsRequest{
		App:    params.App,
		Fields: params.Fields,
		Query:  params.Query,
	})
	if err != nil {
		return nil, fmt.Errorf("fetching records: %w", err)
	}

	records := resp.Records
	if records == nil {
		records = make([]Record, 0)
	}

	if params.OnStep != nil {
		params.OnStep(RecordStep{Records: records, Incremental: records})
	}

	return records, nil
}

func scanWithID(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions, sink func([]Record)) error {
	pageSize := opts.pageSize()
	condition := ParseQuery(params.Query).Condition
	fields := withIDField(params.Fields)
	lastID := ""

	for page := 1; ; page++ {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("reading records page %d: %w", page, err)
		}

		resp, err := pager.GetRecords(ctx, &GetRecordsRequest{
			App:        params.App,
			Fields:     fields,
			Query:      idPageQuery(condition, lastID, pageSize),
			TotalCount: page == 1 && params.OnTotalGet != nil,
		})
		if err != nil {
			return fmt.Errorf("fetching records page %d: %w", page, err)
		}

		if page == 1 && params.OnTotalGet != nil {
			if total, ok := resp.Total(); ok {
				params.OnTotalGet(total)
			}
		}

		opts.debug("Fetched records page", map[string]interface{}{
			"app":      params.App,
			"page":     page,
			"count":    len(resp.Records),
			"after_id": lastID,
		})

		if len(resp.Records) == 0 {
			return nil
		}

		sink(resp.Records)

		if len(resp.Records) < pageSize {
			return nil
		}

		lastID = resp.Records[len(resp.Records)-1].ID()
		if lastID == "" {
			return fmt.Errorf("reading records page %d: %w", page, ErrRecordIDMissing)
		}
	}
}

func scanWithCursor(ctx context.Context, pager RecordPager, params *GetAllRecordsParams, opts *PaginationOptions, sink func([]Record)) error {
	cursor, err := pager.CreateCursor(ctx, &CreateCursorRequest{
		App:    params.App,
		Fields: params.Fields,
		Query:  params.Query,
		Size:   opts.pageSize(),
	})
	if err != nil {
		return fmt.Errorf("creating cursor: %w", err)
	}

	if params.OnTotalGet != nil {
		if total, ok := cursor.Total(); ok {
			params.OnTotalGet(total)
		}
	}

	exhausted := false

	defer func() {
		if !exhausted {
			releaseCursor(ctx, pager, cursor.ID, opts)
		}
	}()

	for page := 1; ; page++ {
		err := ctx.Err()
		if err != nil {
			return fmt.Errorf("reading cursor page %d: %w", page, err)
		}

		resp, err := pager.GetRecordsByCursor(ctx, cursor.ID)
		if err != nil {
			return fmt.Errorf("fetching cursor page %d: %w", page, err)
		}

		opts.debug("Fetched cursor page", map[string]interface{}{
			"app":    params.App,
			"cursor": cursor.ID,
			"page":   page,
			"count":  len(resp.Records),
			"next":   resp.Next,
		})

		if len(resp.Records) > 0 {
			sink(resp.Records)
		}

		if !resp.Next {
			exhausted = true

			return nil
		}
	}
}

// releaseCursor deletes an abandoned cursor. The server only frees a cursor on
// its own after the last page or a timeout, and caps open cursors per domain.
func releaseCursor(ctx context.Context, pager RecordPager, id string, opts *PaginationOptions) {
	cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.CursorCleanupTimeout)
	defer cancel()

	err := pager.DeleteCursor(cleanupCtx, id)
	if err != nil && opts != nil && opts.Logger != nil {
		opts.Logger.Warn("Failed to delete cursor", map[string]interface{}{
			"cursor": id,
			"error":  err.Error(),
		})
	}
}

func withIDField(fields []string) []string {
	if len(fields) == 0 || slices.Contains(fields, FieldID) {
		return fields
	}

	out := make([]string, 0, len(fields)+1)
	out = append(out, fields...)

	return append(out, FieldID)
}

func idPageQuery(condition, lastID string, pageSize int) string {
	query := condition

	if lastID != "" {
		bound := FieldID + " < " + lastID
		if condition == "" {
			query = bound
		} else {
			query = "(" + condition + ") and " + bound
		}
	}

	return Query{
		Condition: query,
		OrderBy:   FieldID + " " + string(Desc),
		Limit:     pageSize,
	}.String()
}
