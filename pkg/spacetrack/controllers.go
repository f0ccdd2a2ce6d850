package spacetrack

import (
	"fmt"
	"slices"
)

// Request controllers, in resolution order.
const (
	ControllerBasicSpaceData    = "basicspacedata"
	ControllerExpandedSpaceData = "expandedspacedata"
	ControllerFileShare         = "fileshare"
	ControllerSPEphemeris       = "spephemeris"
	ControllerPublicFiles       = "publicfiles"
)

type controllerClasses struct {
	name    string
	classes []string
}

// requestControllers is ordered: a class present in several controllers
// resolves to the first one listed.
var requestControllers = []controllerClasses{
	{ControllerBasicSpaceData, []string{
		"announcement", "boxscore", "cdm_public", "decay", "gp", "gp_history",
		"launch_site", "omm", "satcat", "satcat_change", "satcat_debut", "tip",
		"tle", "tle_latest", "tle_publish",
	}},
	{ControllerExpandedSpaceData, []string{
		"car", "cdm", "maneuver", "maneuver_history", "organization", "satellite",
	}},
	{ControllerFileShare, []string{
		"delete", "download", "file", "folder", "upload",
	}},
	{ControllerSPEphemeris, []string{
		"download", "file", "file_history",
	}},
	{ControllerPublicFiles, []string{
		"dirs", "download",
	}},
}

type classKey struct {
	class      string
	controller string
}

// Classes with no modeldef. Their arguments are checked against these
// fixed sets.
var offlinePredicates = map[classKey][]string{
	{"download", ControllerFileShare}:   {"file_id", "folder_id", "recursive"},
	{"upload", ControllerFileShare}:     {"folder_id", "file"},
	{"download", ControllerSPEphemeris}: {},
	{"dirs", ControllerPublicFiles}:     {},
	{"download", ControllerPublicFiles}: {},
}

// Arguments sent as query parameters instead of path segments.
var paramFields = map[classKey][]string{
	{"download", ControllerPublicFiles}: {"name"},
}

var deprecatedClasses = map[classKey]bool{
	{"tle", ControllerBasicSpaceData}:         true,
	{"tle_latest", ControllerBasicSpaceData}:  true,
	{"tle_publish", ControllerBasicSpaceData}: true,
	{"omm", ControllerBasicSpaceData}:         true,
}

var restPredicates = []Predicate{
	{Name: "predicates", Type: TypeStr},
	{Name: "metadata", Type: TypeEnum, Values: []string{"true", "false"}},
	{Name: "limit", Type: TypeStr},
	{Name: "orderby", Type: TypeStr},
	{Name: "distinct", Type: TypeEnum, Values: []string{"true", "false"}},
	{Name: "format", Type: TypeEnum, Values: []string{"json", "xml", "html", "csv", "tle", "3le", "kvn", "stream"}},
	{Name: "emptyresult", Type: TypeEnum, Values: []string{"show"}},
	{Name: "favorites", Type: TypeStr},
}

// Controllers lists the request controllers in resolution order.
func Controllers() []string {
	names := make([]string, len(requestControllers))
	for i, c := range requestControllers {
		names[i] = c.name
	}

	return names
}

// ControllerClasses returns the classes of controller.
func ControllerClasses(controller string) ([]string, bool) {
	for _, c := range requestControllers {
		if c.name == controller {
			return slices.Clone(c.classes), true
		}
	}

	return nil, false
}

// AllClasses lists every class of every controller in order. Classes in
// several controllers appear once per controller.
func AllClasses() []string {
	var classes []string
	for _, c := range requestControllers {
		classes = append(classes, c.classes...)
	}

	return classes
}

// FindController returns the first controller that serves class.
func FindController(class string) (string, error) {
	for _, c := range requestControllers {
		if slices.Contains(c.classes, class) {
			return c.name, nil
		}
	}

	return "", fmt.Errorf("%w '%s'", ErrUnknownClass, class)
}

// ResolveController validates class against controller, or resolves the
// controller from class when controller is empty.
func ResolveController(class, controller string) (string, error) {
	if controller == "" {
		return FindController(class)
	}

	classes, ok := ControllerClasses(controller)
	if !ok {
		return "", fmt.Errorf("%w '%s'", ErrUnknownController, controller)
	}

	if !slices.Contains(classes, class) {
		return "", fmt.Errorf("%w: unknown request class '%s' for controller '%s'",
			ErrClassNotInController, class, controller)
	}

	return controller, nil
}

// OfflinePredicates returns the fixed argument names of a class that has no
// modeldef. ok is false for every other class.
func OfflinePredicates(class, controller string) (names []string, ok bool) {
	names, ok = offlinePredicates[classKey{class, controller}]

	return slices.Clone(names), ok
}

// ParamFields returns the arguments of a class sent as query parameters.
func ParamFields(class, controller string) []string {
	return slices.Clone(paramFields[classKey{class, controller}])
}

// IsDeprecated reports whether Space-Track has announced removal of class.
func IsDeprecated(class, controller string) bool {
	return deprecatedClasses[classKey{class, controller}]
}

// IsBinaryClass reports whether responses of class are raw bytes. Such
// responses are never decoded nor newline-normalised.
func IsBinaryClass(class string) bool {
	return class == "download"
}

// IsUploadClass reports whether class is sent as a multipart POST.
func IsUploadClass(class string) bool {
	return class == "upload"
}

// RestPredicates returns the meta predicates every class accepts.
func RestPredicates() []Predicate {
	out := make([]Predicate, len(restPredicates))
	for i, p := range restPredicates {
		out[i] = p.Clone()
	}

	return out
}
