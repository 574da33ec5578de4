// Package kintone provides types, interfaces, and helpers for working with the
// kintone REST API.
//
// # Overview
//
// The package defines the record model (Record, Field), request and response
// types for the record, cursor, bulk, app, space, comment, and file endpoints,
// and the client interfaces (RecordsClient, BulkClient, AppsClient, ...). A
// concrete implementation is provided by the kintoneclient package, which
// wires configuration, transport, and authentication.
//
//	cli, err := kintoneclient.New(ctx, &kintone.Config{
//	  BaseURL:   "https://example.cybozu.com",
//	  APITokens: []string{os.Getenv("KINTONE_API_TOKEN")},
//	})
//	if err != nil { log.Fatal(err) }
//
//	records, err := cli.Records().GetAllRecords(ctx, &kintone.GetAllRecordsParams{
//	  App:   "42",
//	  Query: `status = "open"`,
//	})
//
// # Reading whole record sets
//
// GetAllRecords pages through any number of records. A query with a limit
// clause is sent once. A query with an order by clause is read through a
// server-side cursor, which is deleted if the scan stops early. Any other
// query is read by walking $id downwards 500 records at a time; results come
// back in descending $id order. StreamAllRecords delivers the same pages on a
// channel. All readers check ctx between pages.
//
// # Writing many records
//
// ExecuteBulk expands BulkIntent values into sub-requests of at most 100
// records, packs them into bulkRequest envelopes of at most 20 sub-requests,
// and sends the envelopes one after another. Each envelope is atomic on the
// server, but envelopes that succeeded before a failure stay committed: a
// *BulkEnvelopeError tells how many sub-requests completed. AddAllRecords,
// UpdateAllRecords, DeleteAllRecords, and UpdateAllRecordStatuses wrap a single
// intent.
//
// # Rate limiting, interceptors, and caching
//
// IntervalLimiter spaces requests and retries HTTP 429 responses; pass it as
// Config.RateLimiter. InterceptorChain runs hooks around every request. App form
// metadata can be cached in memory or in a NATS JetStream key-value bucket.
package kintone
