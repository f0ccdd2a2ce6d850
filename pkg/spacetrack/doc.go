// Package spacetrack provides types, interfaces, and helpers for working with
// the Space-Track.org API.
//
// # Overview
//
// The spacetrack package defines the request and result types, the
// predicate model, the request controller table and the Client,
// AsyncClient and Controller interfaces. A concrete implementation is
// provided by the stclient package, which wires configuration, transport,
// rate limiting and the predicate cache. Most consumers should import
// stclient to construct a client and then use the interfaces exposed here.
//
// Getting a client
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
//	  cli, err := stclient.New(ctx, &spacetrack.Config{Identity: "me@example.com", Password: "secret"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  res, err := cli.Call(ctx, "gp", spacetrack.Args{
//	    spacetrack.A("norad_cat_id", []int{25544, 41335}),
//	    spacetrack.A("format", "tle"),
//	  })
//	  if err != nil { log.Fatal(err) }
//	  fmt.Print(res.Text())
//	}
//
// # Arguments
//
// Arguments are validated against the predicates of the class, fetched
// from the modeldef endpoint and cached, plus the meta predicates that
// every class accepts (format, limit, orderby, ...). Values are encoded
// with EncodeValue; the operator helpers (GreaterThan, InclusiveRange,
// Like, ...) build the Space-Track query syntax.
//
// # Results
//
// Without a format argument the body is decoded from JSON into Result.Data.
// With one it is returned as Result.Text, or Result.Bytes for binary
// classes. IterLines and IterContent return streams instead:
//
//	res, err := cli.Do(ctx, spacetrack.Request{Class: "gp", IterLines: true,
//	  Args: spacetrack.Args{spacetrack.A("format", "3le")}})
//	if err != nil { return err }
//	defer res.Close()
//	for line, err := range res.Lines() {
//	  if err != nil { return err }
//	  fmt.Println(line)
//	}
//
// # Rate limiting
//
// Space-Track allows fewer than 30 requests per minute and 300 per hour.
// The client waits before sending when a window is exhausted and retries
// once after the server reports a violation. Waits are announced through
// Config.OnRateLimit.
package spacetrack
