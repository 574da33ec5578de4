package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/kintone/internal/constants"
	"github.com/fivetwenty-io/kintone/pkg/kintone"
)

// NewRecordsCommand creates the records command group.
func NewRecordsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "records",
		Aliases: []string{"record", "rec"},
		Short:   "Read and write records",
		Long:    "Read every record matching a query and write any number of records",
	}

	cmd.AddCommand(newRecordsGetCommand())
	cmd.AddCommand(newRecordsGetAllCommand())
	cmd.AddCommand(newRecordsAddAllCommand())
	cmd.AddCommand(newRecordsUpdateAllCommand())
	cmd.AddCommand(newRecordsDeleteAllCommand())
	cmd.AddCommand(newRecordsUpsertCommand())
	cmd.AddCommand(newRecordsStatusAllCommand())

	return cmd
}

func newRecordsGetCommand() *cobra.Command {
	var app string

	cmd := &cobra.Command{
		Use:   "get RECORD_ID",
		Short: "Get a record",
		Long:  "Display a single record by id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				record, err := client.Records().GetRecord(ctx, &kintone.GetRecordRequest{App: app, ID: args[0]})
				if err != nil {
					return fmt.Errorf("failed to get record: %w", err)
				}

				return render(cmd, record, func(w io.Writer) error {
					return renderRecords(w, []kintone.Record{record}, nil)
				})
			})
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "app id")

	return cmd
}

func newRecordsGetAllCommand() *cobra.Command {
	var (
		app      string
		query    string
		fields   []string
		pageSize int
		stream   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "get-all",
		Short: "Get every record matching a query",
		Long: `Read every record matching --query, without the 10,000 record offset limit.

A query with "limit" is sent once. A query with "order by" is read through a
cursor. Any other query is read by walking $id downwards, so records come back
in descending $id order. --stream prints one JSON record per line as pages arrive.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				params := &kintone.GetAllRecordsParams{App: app, Query: query, Fields: fields}
				opts := &kintone.PaginationOptions{PageSize: pageSize}

				if progress {
					params.OnTotalGet = func(total int) {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "matching records: %d\n", total)
					}
					params.OnStep = func(step kintone.RecordStep) {
						_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "fetched %d records\n", len(step.Records))
					}
				}

				if stream {
					return streamRecords(ctx, cmd.OutOrStdout(), client.Records(), params, opts)
				}

				records, err := kintone.GetAllRecords(ctx, client.Records(), params, opts)
				if err != nil {
					return fmt.Errorf("failed to get records: %w", err)
				}

				return render(cmd, records, func(w io.Writer) error {
					return renderRecords(w, records, fields)
				})
			})
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "app id")
	cmd.Flags().StringVarP(&query, "query", "q", "", "kintone query, e.g. 'Status = \"open\"'")
	cmd.Flags().StringSliceVar(&fields, "fields", nil, "field codes to return")
	cmd.Flags().IntVar(&pageSize, "page-size", constants.MaxRecordsPageSize, "records per page (max 500)")
	cmd.Flags().BoolVar(&stream, "stream", false, "print records as JSON lines while reading")
	cmd.Flags().BoolVar(&progress, "progress", false, "report progress on stderr")

	return cmd
}

func streamRecords(ctx context.Context, w io.Writer, pager kintone.RecordPager, params *kintone.GetAllRecordsParams, opts *kintone.PaginationOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	encoder := json.NewEncoder(w)

	for page := range kintone.StreamAllRecords(ctx, pager, params, opts) {
		if page.Err != nil {
			return fmt.Errorf("failed to stream records: %w", page.Err)
		}

		for _, record := range page.Records {
			if err := encoder.Encode(record); err != nil {
				cancel()

				return fmt.Errorf("failed to write record: %w", err)
			}
		}
	}

	return nil
}

func progressReporter(cmd *cobra.Command, enabled bool) func(kintone.BulkProgress) {
	if !enabled {
		return nil
	}

	return func(progress kintone.BulkProgress) {
		_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "sub-requests %d/%d\n", progress.Done, progress.Total)
	}
}

func newRecordsAddAllCommand() *cobra.Command {
	var (
		app      string
		file     string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "add-all",
		Short: "Add records from a file",
		Long:  "Add every record in a JSON or YAML list through bulk requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			if file == "" {
				return constants.ErrFileFlagRequired
			}

			var records []kintone.Record
			if err := readInputFile(file, &records); err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Records().AddAllRecords(ctx, &kintone.AddAllRecordsParams{
					App:        app,
					Records:    records,
					OnProgress: progressReporter(cmd, progress),
				})
				if err != nil {
					return fmt.Errorf("failed to add records: %w", err)
				}

				return render(cmd, resp, func(w io.Writer) error {
					rows := make([][]string, len(resp.IDs))
					for i := range resp.IDs {
						rows[i] = []string{resp.IDs[i], resp.Revisions[i]}
					}

					return renderTable(w, []string{"ID", "Revision"}, rows)
				})
			})
		},
	}

	addWriteFlags(cmd, &app, &file, &progress)

	return cmd
}

func newRecordsUpdateAllCommand() *cobra.Command {
	var (
		app      string
		file     string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "update-all",
		Short: "Update records from a file",
		Long:  "Update every entry ({id|updateKey, record, revision}) in a JSON or YAML list through bulk requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			if file == "" {
				return constants.ErrFileFlagRequired
			}

			var entries []kintone.UpdateRecordEntry
			if err := readInputFile(file, &entries); err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Records().UpdateAllRecords(ctx, &kintone.UpdateAllRecordsParams{
					App:        app,
					Records:    entries,
					OnProgress: progressReporter(cmd, progress),
				})
				if err != nil {
					return fmt.Errorf("failed to update records: %w", err)
				}

				return renderRevisions(cmd, resp)
			})
		},
	}

	addWriteFlags(cmd, &app, &file, &progress)

	return cmd
}

func newRecordsDeleteAllCommand() *cobra.Command {
	var (
		app       string
		file      string
		ids       []string
		revisions []string
		progress  bool
	)

	cmd := &cobra.Command{
		Use:   "delete-all",
		Short: "Delete records",
		Long:  "Delete every id given by --ids or listed in --file through bulk requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			if file != "" {
				var fromFile []string
				if err := readInputFile(file, &fromFile); err != nil {
					return err
				}

				ids = append(ids, fromFile...)
			}

			if len(ids) == 0 {
				return constants.ErrIDsRequired
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				err := client.Records().DeleteAllRecords(ctx, &kintone.DeleteAllRecordsParams{
					App:        app,
					IDs:        ids,
					Revisions:  revisions,
					OnProgress: progressReporter(cmd, progress),
				})
				if err != nil {
					return fmt.Errorf("failed to delete records: %w", err)
				}

				result := map[string]interface{}{"app": app, "deleted": len(ids)}

				return render(cmd, result, func(w io.Writer) error {
					return renderProperties(w, [][]string{
						{"App", app},
						{"Deleted", fmt.Sprint(len(ids))},
					})
				})
			})
		},
	}

	addWriteFlags(cmd, &app, &file, &progress)
	cmd.Flags().StringSliceVar(&ids, "ids", nil, "record ids")
	cmd.Flags().StringSliceVar(&revisions, "revisions", nil, "expected revisions, aligned with --ids")

	return cmd
}

func newRecordsUpsertCommand() *cobra.Command {
	var (
		app      string
		file     string
		keyField string
		keyValue string
	)

	cmd := &cobra.Command{
		Use:   "upsert",
		Short: "Update or add a record by a unique field",
		Long: `Update the record whose --key-field equals --key-value, or add it when none does.

The lookup and the write are separate calls; make the key field unique in the
app form to avoid duplicates under concurrent writers.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			if keyField == "" || keyValue == "" {
				return constants.ErrUpdateKeyFlagRequired
			}

			if file == "" {
				return constants.ErrFileFlagRequired
			}

			var record kintone.Record
			if err := readInputFile(file, &record); err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				result, err := client.Records().UpsertRecord(ctx, &kintone.UpsertRecordParams{
					App:       app,
					UpdateKey: kintone.UpdateKey{Field: keyField, Value: keyValue},
					Record:    record,
				})
				if err != nil {
					return fmt.Errorf("failed to upsert record: %w", err)
				}

				return render(cmd, result, func(w io.Writer) error {
					return renderProperties(w, [][]string{
						{"Operation", result.Operation},
						{"ID", result.ID},
						{"Revision", result.Revision},
					})
				})
			})
		},
	}

	cmd.Flags().StringVar(&app, "app", "", "app id")
	cmd.Flags().StringVarP(&file, "file", "f", "", "record file (.json, .yaml)")
	cmd.Flags().StringVar(&keyField, "key-field", "", "unique field code")
	cmd.Flags().StringVar(&keyValue, "key-value", "", "value of the unique field")

	return cmd
}

func newRecordsStatusAllCommand() *cobra.Command {
	var (
		app      string
		file     string
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "status-all",
		Short: "Run process actions from a file",
		Long:  "Run every entry ({id, action, assignee, revision}) in a JSON or YAML list through bulk requests",
		RunE: func(cmd *cobra.Command, args []string) error {
			if app == "" {
				return constants.ErrAppFlagRequired
			}

			if file == "" {
				return constants.ErrFileFlagRequired
			}

			var updates []kintone.RecordStatusUpdate
			if err := readInputFile(file, &updates); err != nil {
				return err
			}

			return withClient(cmd, func(ctx context.Context, client kintone.Client) error {
				resp, err := client.Records().UpdateAllRecordStatuses(ctx, &kintone.UpdateAllRecordStatusesParams{
					App:        app,
					Records:    updates,
					OnProgress: progressReporter(cmd, progress),
				})
				if err != nil {
					return fmt.Errorf("failed to update statuses: %w", err)
				}

				return renderRevisions(cmd, resp)
			})
		},
	}

	addWriteFlags(cmd, &app, &file, &progress)

	return cmd
}

func addWriteFlags(cmd *cobra.Command, app, file *string, progress *bool) {
	cmd.Flags().StringVar(app, "app", "", "app id")
	cmd.Flags().StringVarP(file, "file", "f", "", "input file (.json, .yaml)")
	cmd.Flags().BoolVar(progress, "progress", false, "report progress on stderr")
}

func renderRevisions(cmd *cobra.Command, resp *kintone.UpdateRecordsResponse) error {
	return render(cmd, resp, func(w io.Writer) error {
		rows := make([][]string, len(resp.Records))
		for i, record := range resp.Records {
			rows[i] = []string{record.ID, record.Revision}
		}

		return renderTable(w, []string{"ID", "Revision"}, rows)
	})
}

