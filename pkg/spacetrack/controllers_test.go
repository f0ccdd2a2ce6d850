package spacetrack_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

func TestControllers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"basicspacedata", "expandedspacedata", "fileshare", "spephemeris", "publicfiles",
	}, spacetrack.Controllers())

	classes, ok := spacetrack.ControllerClasses("publicfiles")
	require.True(t, ok)
	assert.Equal(t, []string{"dirs", "download"}, classes)

	_, ok = spacetrack.ControllerClasses("nope")
	assert.False(t, ok)
}

func TestFindController(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"gp":           "basicspacedata",
		"cdm":          "expandedspacedata",
		"file":         "fileshare",
		"download":     "fileshare",
		"file_history": "spephemeris",
		"dirs":         "publicfiles",
	}

	for class, expected := range tests {
		controller, err := spacetrack.FindController(class)
		require.NoError(t, err)
		assert.Equal(t, expected, controller, class)
	}

	_, err := spacetrack.FindController("madeup")
	require.ErrorIs(t, err, spacetrack.ErrUnknownClass)
}

func TestResolveController(t *testing.T) {
	t.Parallel()

	controller, err := spacetrack.ResolveController("file", "spephemeris")
	require.NoError(t, err)
	assert.Equal(t, "spephemeris", controller)

	controller, err = spacetrack.ResolveController("tle", "")
	require.NoError(t, err)
	assert.Equal(t, "basicspacedata", controller)

	_, err = spacetrack.ResolveController("tle", "nope")
	require.ErrorIs(t, err, spacetrack.ErrUnknownController)

	_, err = spacetrack.ResolveController("gp", "fileshare")
	require.ErrorIs(t, err, spacetrack.ErrClassNotInController)
	assert.Contains(t, err.Error(), "'gp' for controller 'fileshare'")
}

func TestClassTables(t *testing.T) {
	t.Parallel()

	names, ok := spacetrack.OfflinePredicates("download", "fileshare")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"file_id", "folder_id", "recursive"}, names)

	names, ok = spacetrack.OfflinePredicates("dirs", "publicfiles")
	require.True(t, ok)
	assert.Empty(t, names)

	_, ok = spacetrack.OfflinePredicates("gp", "basicspacedata")
	assert.False(t, ok)

	assert.Equal(t, []string{"name"}, spacetrack.ParamFields("download", "publicfiles"))
	assert.Empty(t, spacetrack.ParamFields("download", "fileshare"))

	assert.True(t, spacetrack.IsDeprecated("tle_latest", "basicspacedata"))
	assert.False(t, spacetrack.IsDeprecated("gp", "basicspacedata"))

	assert.True(t, spacetrack.IsBinaryClass("download"))
	assert.False(t, spacetrack.IsBinaryClass("file"))
	assert.True(t, spacetrack.IsUploadClass("upload"))
}

func TestRestPredicates(t *testing.T) {
	t.Parallel()

	predicates := spacetrack.RestPredicates()

	names := make([]string, len(predicates))
	for i, p := range predicates {
		names[i] = p.Name
	}

	assert.Equal(t, []string{
		"predicates", "metadata", "limit", "orderby", "distinct", "format", "emptyresult", "favorites",
	}, names)

	predicates[1].Values[0] = "changed"
	assert.Equal(t, "true", spacetrack.RestPredicates()[1].Values[0])
}

func TestAllClasses(t *testing.T) {
	t.Parallel()

	classes := spacetrack.AllClasses()
	assert.Equal(t, "announcement", classes[0])
	assert.Equal(t, "download", classes[len(classes)-1])
	assert.Len(t, classes, 31)
}
