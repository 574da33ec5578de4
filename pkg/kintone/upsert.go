package kintone

import (
	"context"
	"fmt"
)

// Upsert operations.
const (
	UpsertOperationUpdate = "UPDATE"
	UpsertOperationInsert = "INSERT"
)

// UpsertRecordParams identifies the record by a unique non-system field.
type UpsertRecordParams struct {
	App       string
	UpdateKey UpdateKey
	Record    Record
}

// UpsertResult reports which branch ran.
type UpsertResult struct {
	ID        string `json:"id"        yaml:"id"`
	Revision  string `json:"revision"  yaml:"revision"`
	Operation string `json:"operation" yaml:"operation"`
}

// UpsertRecord updates the record whose UpdateKey field matches, or adds
// Record when none does.
//
// The lookup and the write are two separate calls. A record with the same key
// added by someone else in between is not seen, so the add branch can create a
// duplicate. Make the key field unique in the app form if that matters.
func UpsertRecord(ctx context.Context, client RecordUpserter, params *UpsertRecordParams) (*UpsertResult, error) {
	if params == nil || params.App == "" {
		return nil, ErrAppRequired
	}

	if params.UpdateKey.Field == "" || params.UpdateKey.Value == "" {
		return nil, ErrInvalidUpdateKey
	}

	lookup := NewQueryBuilder().
		Where(params.UpdateKey.Field, OpEqual, params.UpdateKey.Value).
		Limit(1).
		String()

	found, err := client.GetRecords(ctx, &GetRecordsRequest{
		App:    params.App,
		Fields: []string{FieldID, FieldRevision},
		Query:  lookup,
	})
	if err != nil {
		return nil, fmt.Errorf("looking up record by %s: %w", params.UpdateKey.Field, err)
	}

	if len(found.Records) == 0 {
		added, err := client.AddRecord(ctx, &AddRecordRequest{App: params.App, Record: params.Record})
		if err != nil {
			return nil, fmt.Errorf("adding record: %w", err)
		}

		return &UpsertResult{ID: added.ID, Revision: added.Revision, Operation: UpsertOperationInsert}, nil
	}

	existing := found.Records[0]

	updated, err := client.UpdateRecord(ctx, &UpdateRecordRequest{
		App:      params.App,
		ID:       existing.ID(),
		Record:   params.Record,
		Revision: existing.Revision(),
	})
	if err != nil {
		return nil, fmt.Errorf("updating record %s: %w", existing.ID(), err)
	}

	return &UpsertResult{ID: existing.ID(), Revision: updated.Revision, Operation: UpsertOperationUpdate}, nil
}
