package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	stdhttp "net/http"
	"net/url"
	"path/filepath"
	"slices"
	"strings"

	"github.com/google/uuid"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/internal/http"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// requestState is a step of a generic request. Every request walks the
// states in declaration order and stops early in stateFailed.
type requestState int

const (
	stateIdle requestState = iota
	stateControllerResolution
	stateAuthenticating
	statePredicateResolution
	stateArgumentValidation
	stateRequestBuild
	stateRateLimitAdmission
	stateSending
	stateErrorCheck
	stateResponseDispatch
	stateDone
	stateFailed
)

var stateNames = [...]string{
	stateIdle:                 "idle",
	stateControllerResolution: "controller_resolution",
	stateAuthenticating:       "authenticating",
	statePredicateResolution:  "predicate_resolution",
	stateArgumentValidation:   "argument_validation",
	stateRequestBuild:         "request_build",
	stateRateLimitAdmission:   "rate_limit_admission",
	stateSending:              "sending",
	stateErrorCheck:           "error_check",
	stateResponseDispatch:     "response_dispatch",
	stateDone:                 "done",
	stateFailed:               "failed",
}

func (s requestState) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("requestState(%d)", int(s))
}

// requestRun carries one generic request through its states.
type requestRun struct {
	client *Client
	drv    driver
	req    spacetrack.Request
	id     string
	state  requestState

	controller string
	binary     bool
	hasFormat  bool

	// predicates is nil for offline classes and when validation is skipped.
	predicates []spacetrack.Predicate
	checkKeys  bool
	valid      map[string]bool
	params     []string

	path  string
	query url.Values
	file  *http.FilePart
}

func (r *requestRun) enter(state requestState) {
	r.state = state

	r.client.logger.Debug("Request state", map[string]interface{}{
		"request_id": r.id,
		"class":      r.req.Class,
		"state":      state.String(),
	})
}

// Do runs a generic request.
func (c *Client) Do(ctx context.Context, req spacetrack.Request) (*spacetrack.Result, error) {
	err := c.checkOpen()
	if err != nil {
		return nil, err
	}

	return c.do(ctx, newBlockingDriver(c), req)
}

// Call runs a request against class with args.
func (c *Client) Call(ctx context.Context, class string, args spacetrack.Args) (*spacetrack.Result, error) {
	return c.Do(ctx, spacetrack.Request{Class: class, Args: args})
}

func (c *Client) do(ctx context.Context, drv driver, req spacetrack.Request) (*spacetrack.Result, error) {
	run := &requestRun{
		client: c,
		drv:    drv,
		req:    req,
		id:     uuid.NewString(),
	}

	run.enter(stateIdle)

	result, err := run.execute(ctx)
	if err != nil {
		failedIn := run.state
		run.enter(stateFailed)

		c.logger.Debug("Request failed", map[string]interface{}{
			"request_id": run.id,
			"class":      req.Class,
			"state":      failedIn.String(),
			"error":      err.Error(),
		})

		return nil, err
	}

	run.enter(stateDone)

	return result, nil
}

func (r *requestRun) execute(ctx context.Context) (*spacetrack.Result, error) {
	r.enter(stateControllerResolution)

	err := r.resolve()
	if err != nil {
		return nil, err
	}

	r.enter(stateAuthenticating)

	err = r.client.authenticate(ctx, r.drv)
	if err != nil {
		return nil, err
	}

	r.enter(statePredicateResolution)

	err = r.resolvePredicates(ctx)
	if err != nil {
		return nil, err
	}

	r.enter(stateArgumentValidation)

	err = r.validateArgs()
	if err != nil {
		return nil, err
	}

	r.enter(stateRequestBuild)

	sendCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.req.Timeout > 0 {
		sendCtx, cancel = context.WithTimeout(ctx, r.req.Timeout)
	}

	resp, err := r.send(sendCtx)
	if err != nil {
		cancel()

		return nil, err
	}

	r.enter(stateErrorCheck)

	if resp.StatusCode >= stdhttp.StatusBadRequest {
		defer cancel()

		body, err := r.drv.read(sendCtx, resp.Body)
		if err != nil {
			return nil, err
		}

		return nil, http.CheckResponse(resp, body)
	}

	r.enter(stateResponseDispatch)

	return r.dispatch(sendCtx, resp, cancel)
}

// resolve runs the checks that need no network: stream modes, format and
// type parsing, controller and binary classes.
func (r *requestRun) resolve() error {
	if r.req.IterLines && r.req.IterContent {
		return spacetrack.ErrConflictingStreamModes
	}

	r.hasFormat = r.req.Args.Has("format")
	if r.hasFormat && r.req.ParseTypes {
		return spacetrack.ErrParseTypesWithFormat
	}

	controller, err := spacetrack.ResolveController(r.req.Class, r.req.Controller)
	if err != nil {
		return err
	}

	r.controller = controller
	r.binary = spacetrack.IsBinaryClass(r.req.Class)

	if r.binary && r.req.IterLines {
		return fmt.Errorf("%w: CRLF newlines split over chunk boundaries would yield extra blank lines, "+
			"use IterContent instead", spacetrack.ErrIterLinesBinary)
	}

	return nil
}

// resolvePredicates collects the argument names class accepts.
func (r *requestRun) resolvePredicates(ctx context.Context) error {
	r.valid = make(map[string]bool)
	for _, p := range spacetrack.RestPredicates() {
		r.valid[p.Name] = true
	}

	r.checkKeys = true

	if names, ok := spacetrack.OfflinePredicates(r.req.Class, r.controller); ok {
		for _, name := range names {
			r.valid[name] = true
		}

		return nil
	}

	predicates, checked, err := r.client.loadPredicates(ctx, r.drv, r.req.Class, r.controller, false)
	if err != nil {
		return err
	}

	if !checked {
		r.checkKeys = false

		return nil
	}

	r.predicates = predicates
	for _, p := range predicates {
		r.valid[p.Name] = true
	}

	return nil
}

// validateArgs checks every argument name and splits the arguments into
// path segments, query parameters and the upload file.
func (r *requestRun) validateArgs() error {
	class := r.req.Class

	if spacetrack.IsDeprecated(class, r.controller) {
		r.client.logger.Warn("Request class is deprecated", map[string]interface{}{
			"class":      class,
			"controller": r.controller,
		})
	}

	r.params = spacetrack.ParamFields(class, r.controller)
	upload := spacetrack.IsUploadClass(class)

	var path strings.Builder

	fmt.Fprintf(&path, constants.PathQueryFormat, r.controller, class)

	for _, arg := range r.req.Args {
		isParam := slices.Contains(r.params, arg.Key)

		if r.checkKeys && !r.valid[arg.Key] && !isParam {
			return &spacetrack.UnexpectedArgumentError{Class: class, Key: arg.Key}
		}

		if upload && arg.Key == "file" {
			continue
		}

		if isParam {
			if r.query == nil {
				r.query = url.Values{}
			}

			r.query.Set(arg.Key, spacetrack.EncodeValue(arg.Value))

			continue
		}

		path.WriteString("/")
		path.WriteString(arg.Key)
		path.WriteString("/")
		path.WriteString(spacetrack.EscapePathSegment(spacetrack.EncodeValue(arg.Value)))
	}

	r.path = path.String()

	if upload {
		value, ok := r.req.Args.Get("file")
		if !ok {
			return spacetrack.ErrMissingFile
		}

		file, err := filePart(value)
		if err != nil {
			return err
		}

		r.file = file
	}

	return nil
}

func (r *requestRun) send(ctx context.Context) (*stdhttp.Response, error) {
	method := stdhttp.MethodGet
	if r.file != nil {
		method = stdhttp.MethodPost
	}

	httpReq, err := r.client.httpClient.NewRequest(ctx, &http.Request{
		Method: method,
		Path:   r.path,
		Query:  r.query,
		File:   r.file,
	})
	if err != nil {
		return nil, err
	}

	r.client.logger.Debug("Space-Track query", map[string]interface{}{
		"request_id": r.id,
		"method":     method,
		"url":        httpReq.URL.Redacted(),
	})

	return r.client.ratelimitedSend(ctx, r.drv, httpReq, endpointQuery, r.enter)
}

// dispatch turns a successful response into a Result. Streams own cancel
// and the body until they are closed; every other result releases both
// before returning.
func (r *requestRun) dispatch(ctx context.Context, resp *stdhttp.Response, cancel context.CancelFunc) (*spacetrack.Result, error) {
	charset := http.Charset(resp.Header.Get("Content-Type"))

	closer := closerFunc(func() error {
		defer cancel()

		return resp.Body.Close()
	})

	switch {
	case r.req.IterLines:
		return spacetrack.NewLinesResult(
			splitLines(normalizeNewlines(textChunks(resp.Body, charset))), closer), nil
	case r.req.IterContent && r.binary:
		return spacetrack.NewChunksResult(byteChunks(resp.Body), closer), nil
	case r.req.IterContent:
		return spacetrack.NewTextChunksResult(normalizeNewlines(textChunks(resp.Body, charset)), closer), nil
	}

	defer cancel()

	body, err := r.drv.read(ctx, resp.Body)
	if err != nil {
		return nil, err
	}

	if r.hasFormat {
		if r.binary {
			return spacetrack.NewBytesResult(body), nil
		}

		text, err := normalizeText(body, charset)
		if err != nil {
			return nil, err
		}

		return spacetrack.NewTextResult(text), nil
	}

	text, err := http.DecodeString(body, charset)
	if err != nil {
		return nil, err
	}

	data, err := decodeDocument(text)
	if err != nil {
		return nil, err
	}

	if r.predicates != nil && r.req.ParseTypes {
		data, err = parseTypes(data, r.predicates)
		if err != nil {
			return nil, err
		}
	}

	return spacetrack.NewDataResult(data), nil
}

// filePart converts the "file" argument of an upload.
func filePart(value any) (*http.FilePart, error) {
	part := &http.FilePart{Field: "file"}

	switch v := value.(type) {
	case spacetrack.File:
		part.FileName, part.Reader = v.Name, v.Reader
	case *spacetrack.File:
		if v != nil {
			part.FileName, part.Reader = v.Name, v.Reader
		}
	case []byte:
		part.Reader = bytes.NewReader(v)
	case string:
		part.Reader = strings.NewReader(v)
	case io.Reader:
		part.Reader = v
	default:
		return nil, fmt.Errorf("%w: %T", spacetrack.ErrUnsupportedFileValue, value)
	}

	if part.Reader == nil {
		return nil, fmt.Errorf("%w: nil reader", spacetrack.ErrUnsupportedFileValue)
	}

	if named, ok := part.Reader.(interface{ Name() string }); ok && part.FileName == "" {
		part.FileName = filepath.Base(named.Name())
	}

	return part, nil
}
