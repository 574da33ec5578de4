// Package kintoneclient is the entry point for building a kintone.Client.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/kintone/pkg/kintone"
//	  "github.com/fivetwenty-io/kintone/pkg/kintoneclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  cli, err := kintoneclient.New(ctx, &kintone.Config{
//	    BaseURL:     "example.cybozu.com",
//	    APITokens:   []string{"app-token"},
//	    RateLimiter: kintone.NewIntervalLimiter(),
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  records, err := cli.Records().GetAllRecords(ctx, &kintone.GetAllRecordsParams{
//	    App:   "7",
//	    Query: `Status = "open"`,
//	  })
//	  if err != nil { log.Fatal(err) }
//	  _ = records
//	}
//
// # Helpers
//
// NewWithAPIToken, NewWithPassword, and NewWithOAuthToken cover the common
// credential setups. Use New directly for guest spaces, caching, interceptors,
// or OAuth2 refresh.
package kintoneclient
