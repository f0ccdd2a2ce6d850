// Package stclient provides the entry points for constructing a Space-Track
// client that implements the spacetrack.Client interface.
//
// Quick start
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
//	  "github.com/fivetwenty-io/spacetrack/pkg/stclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//
//	  st, err := stclient.New(ctx, &spacetrack.Config{
//	    Identity: "user@example.com",
//	    Password: "password",
//	  })
//	  if err != nil { log.Fatal(err) }
//	  defer st.Close()
//
//	  result, err := st.Call(ctx, "gp", spacetrack.Args{
//	    spacetrack.A("norad_cat_id", []int{25544, 41335}),
//	    spacetrack.A("orderby", "norad_cat_id"),
//	    spacetrack.A("format", "tle"),
//	  })
//	  if err != nil { log.Fatal(err) }
//	  log.Print(result.Text())
//	}
//
// # Environment
//
// NewFromEnv reads SPACETRACK_IDENTITY, SPACETRACK_PASSWORD,
// SPACETRACK_BASE_URL and SPACETRACK_CACHE_DIR. Setting SPACETRACK_REDIS_URL
// (for example redis://localhost:6379/0) keeps the rate limit windows in
// Redis so several processes share one budget.
//
// # Asynchronous use
//
// NewAsync returns the same session as an AsyncClient. Its calls run in the
// background and return a spacetrack.Future; cancelling the call's context
// interrupts rate limit sleeps, lock waits and body reads.
package stclient
