package commands

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/internal/constants"
	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

const gpModeldef = `{"controller": "basicspacedata", "data": [
	{"Field": "NORAD_CAT_ID", "Type": "int(10) unsigned", "Null": "NO", "Default": "0", "Key": "", "Extra": ""},
	{"Field": "OBJECT_TYPE", "Type": "enum('PAYLOAD','DEBRIS')", "Null": "YES", "Default": null, "Key": "", "Extra": ""}
]}`

// fakeServer answers login, logout, the gp modeldef and queries. Requests
// after login must carry the session cookie.
func fakeServer(t *testing.T, query string) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ajaxauth/login" {
			if _, err := r.Cookie("chocolatechip"); err != nil {
				w.WriteHeader(http.StatusUnauthorized)

				return
			}
		}

		switch {
		case r.URL.Path == "/ajaxauth/login":
			http.SetCookie(w, &http.Cookie{Name: "chocolatechip", Value: "session", Path: "/"})
			_, _ = w.Write([]byte(`""`))
		case r.URL.Path == "/ajaxauth/logout":
			_, _ = w.Write([]byte(`"Successfully logged out"`))
		case strings.Contains(r.URL.Path, "/modeldef/"):
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(gpModeldef))
		default:
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(query))
		}
	}))
	t.Cleanup(server.Close)

	return server
}

// configure resets viper for one command run. Tests touching viper cannot
// run in parallel.
func configure(t *testing.T, server *httptest.Server, output string) {
	t.Helper()

	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("identity", "user@example.com")
	viper.Set("password", "secret")
	viper.Set("cache-dir", t.TempDir())
	viper.Set("output", output)

	if server != nil {
		viper.Set("base-url", server.URL)
	}
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()

	return stdout.String(), err
}

func TestParseArgs(t *testing.T) {
	args, err := parseArgs([]string{"NORAD_CAT_ID=25544,41335", "orderby=epoch desc", "epoch=>now-30"})
	require.NoError(t, err)
	assert.Equal(t, spacetrack.Args{
		spacetrack.A("norad_cat_id", "25544,41335"),
		spacetrack.A("orderby", "epoch desc"),
		spacetrack.A("epoch", ">now-30"),
	}, args)

	_, err = parseArgs([]string{"norad_cat_id"})
	require.ErrorIs(t, err, constants.ErrInvalidArgument)

	_, err = parseArgs([]string{"=1"})
	require.ErrorIs(t, err, constants.ErrInvalidArgument)
}

func TestNewQueryCommand(t *testing.T) {
	cmd := NewQueryCommand()
	assert.Equal(t, "query CLASS [PREDICATE=VALUE...]", cmd.Use)
	assert.NotNil(t, cmd.RunE)

	for _, name := range []string{"controller", "lines", "parse-types", "out", "timeout"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "Flag %s should exist", name)
	}
}

//nolint:funlen // Test functions can be longer for comprehensive testing
func TestQueryCommand(t *testing.T) {
	t.Run("json records", func(t *testing.T) {
		server := fakeServer(t, `[{"NORAD_CAT_ID": "25544", "OBJECT_TYPE": "PAYLOAD"}]`)
		configure(t, server, OutputFormatJSON)

		out, err := run(t, NewQueryCommand(), "gp", "norad_cat_id=25544", "--parse-types")
		require.NoError(t, err)

		var records []map[string]any
		require.NoError(t, json.Unmarshal([]byte(out), &records))
		require.Len(t, records, 1)
		assert.InDelta(t, 25544, records[0]["NORAD_CAT_ID"], 0)
	})

	t.Run("table records", func(t *testing.T) {
		server := fakeServer(t, `[{"NORAD_CAT_ID": "25544", "OBJECT_TYPE": "PAYLOAD"}, {"NORAD_CAT_ID": "1"}]`)
		configure(t, server, OutputFormatTable)

		out, err := run(t, NewQueryCommand(), "gp")
		require.NoError(t, err)
		assert.Contains(t, out, "25544")
		assert.Contains(t, out, "PAYLOAD")
	})

	t.Run("toml records", func(t *testing.T) {
		server := fakeServer(t, `[{"NORAD_CAT_ID": "25544", "DECAY": null}]`)
		configure(t, server, OutputFormatTOML)

		out, err := run(t, NewQueryCommand(), "gp")
		require.NoError(t, err)
		assert.Contains(t, out, "[[records]]")
		assert.Contains(t, out, "25544")
		assert.NotContains(t, out, "DECAY")
	})

	t.Run("lines", func(t *testing.T) {
		server := fakeServer(t, "1 25544U\r\n2 25544\r\n")
		configure(t, server, OutputFormatTable)

		out, err := run(t, NewQueryCommand(), "gp", "format=tle", "--lines")
		require.NoError(t, err)
		assert.Equal(t, "1 25544U\n2 25544\n", out)
	})

	t.Run("streams into a file", func(t *testing.T) {
		server := fakeServer(t, "\x00\x01\r\n")
		configure(t, server, OutputFormatTable)

		path := filepath.Join(t.TempDir(), "download.bin")

		_, err := run(t, NewQueryCommand(), "download", "file_id=1", "--out", path)
		require.NoError(t, err)

		data, err := os.ReadFile(path) //nolint:gosec // test file
		require.NoError(t, err)
		assert.Equal(t, []byte("\x00\x01\r\n"), data)
	})

	t.Run("unexpected argument", func(t *testing.T) {
		server := fakeServer(t, `[]`)
		configure(t, server, OutputFormatJSON)

		_, err := run(t, NewQueryCommand(), "gp", "banana=1")
		require.ErrorIs(t, err, spacetrack.ErrUnexpectedArgument)
	})

	t.Run("requires identity", func(t *testing.T) {
		configure(t, nil, OutputFormatJSON)
		viper.Set("identity", "")

		_, err := run(t, NewQueryCommand(), "gp")
		require.ErrorIs(t, err, constants.ErrNoIdentity)
	})

	t.Run("prompts for a missing password", func(t *testing.T) {
		configure(t, nil, OutputFormatJSON)
		viper.Set("password", "")

		saved := passwordReader
		passwordReader = func() (string, error) { return "", constants.ErrNoPassword }

		t.Cleanup(func() { passwordReader = saved })

		_, err := run(t, NewQueryCommand(), "gp")
		require.ErrorIs(t, err, constants.ErrNoPassword)
	})

	t.Run("unknown output format", func(t *testing.T) {
		server := fakeServer(t, `[]`)
		configure(t, server, "xml")

		_, err := run(t, NewQueryCommand(), "dirs")
		require.ErrorIs(t, err, constants.ErrUnknownOutputFormat)
	})
}

func TestPredicatesCommand(t *testing.T) {
	server := fakeServer(t, `[]`)
	configure(t, server, OutputFormatYAML)

	out, err := run(t, NewPredicatesCommand(), "gp")
	require.NoError(t, err)
	assert.Contains(t, out, "name: norad_cat_id")
	assert.Contains(t, out, "type: int")
	assert.Contains(t, out, "- PAYLOAD")

	configure(t, server, OutputFormatTable)

	out, err = run(t, NewPredicatesCommand(), "gp")
	require.NoError(t, err)
	assert.Contains(t, out, "norad_cat_id")
	assert.Contains(t, out, "PAYLOAD, DEBRIS")
}

func TestClassesCommand(t *testing.T) {
	configure(t, nil, OutputFormatJSON)

	out, err := run(t, NewClassesCommand(), "--controller", spacetrack.ControllerPublicFiles)
	require.NoError(t, err)

	var classes []classView
	require.NoError(t, json.Unmarshal([]byte(out), &classes))
	assert.Equal(t, []classView{
		{Controller: "publicfiles", Class: "dirs"},
		{Controller: "publicfiles", Class: "download"},
	}, classes)

	configure(t, nil, OutputFormatTable)

	out, err = run(t, NewClassesCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "tle_latest")

	_, err = run(t, NewClassesCommand(), "--controller", "fruitspacedata")
	require.ErrorIs(t, err, spacetrack.ErrUnknownController)
}

func TestVersionCommand(t *testing.T) {
	configure(t, nil, OutputFormatJSON)

	out, err := run(t, NewVersionCommand("1.2.3", "abc", "today"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"version": "1.2.3", "commit": "abc", "built": "today"}`, out)
}
