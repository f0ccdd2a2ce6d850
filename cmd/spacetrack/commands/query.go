package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

type queryOptions struct {
	controller string
	lines      bool
	parseTypes bool
	out        string
	timeout    time.Duration
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query CLASS [PREDICATE=VALUE...]",
		Short: "Run a Space-Track query",
		Long: `Run a query against a request class. Predicates are given as key=value
pairs and sent in the order written, for example:

  spacetrack query gp norad_cat_id=25544,41335 orderby=epoch format=tle`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args[0], args[1:])
		},
	}

	cmd.Flags().StringVar(&opts.controller, "controller", "", "request controller (default resolved from the class)")
	cmd.Flags().BoolVarP(&opts.lines, "lines", "l", false, "stream the response line by line")
	cmd.Flags().BoolVar(&opts.parseTypes, "parse-types", false, "convert JSON values using the class predicates")
	cmd.Flags().StringVar(&opts.out, "out", "", "stream the response body into this file")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0, "timeout for the query request")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *queryOptions, class string, raw []string) error {
	args, err := parseArgs(raw)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	client, err := createClient(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	defer func() { _ = client.Close() }()

	result, err := client.Do(ctx, spacetrack.Request{
		Class:       class,
		Controller:  opts.controller,
		Args:        args,
		IterLines:   opts.lines,
		IterContent: opts.out != "",
		ParseTypes:  opts.parseTypes,
		Timeout:     opts.timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", class, err)
	}

	defer func() { _ = result.Close() }()

	stdout := cmd.OutOrStdout()

	switch result.Kind() {
	case spacetrack.KindLines:
		for line, err := range result.Lines() {
			if err != nil {
				return err
			}

			fmt.Fprintln(stdout, line)
		}

		return nil
	case spacetrack.KindChunks, spacetrack.KindTextChunks:
		return writeChunks(result, opts.out)
	case spacetrack.KindText:
		_, err = io.WriteString(stdout, result.Text())

		return err
	case spacetrack.KindBytes:
		_, err = stdout.Write(result.Bytes())

		return err
	default:
		return writeOutput(stdout, "records", result.Data(), renderRecords(result.Data()))
	}
}

func writeChunks(result *spacetrack.Result, path string) (err error) {
	file, err := os.Create(path) //nolint:gosec // path is chosen by the user
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}

	defer func() {
		closeErr := file.Close()
		if err == nil {
			err = closeErr
		}
	}()

	if result.Kind() == spacetrack.KindChunks {
		for chunk, err := range result.Chunks() {
			if err != nil {
				return err
			}

			if _, err := file.Write(chunk); err != nil {
				return fmt.Errorf("failed to write %s: %w", path, err)
			}
		}

		return nil
	}

	for chunk, err := range result.TextChunks() {
		if err != nil {
			return err
		}

		if _, err := io.WriteString(file, chunk); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
	}

	return nil
}
