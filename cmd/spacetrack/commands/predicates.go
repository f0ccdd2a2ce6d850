package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/fivetwenty-io/spacetrack/pkg/spacetrack"
)

// predicateView is the printed form of a predicate.
type predicateView struct {
	Name     string   `json:"name"               toml:"name"               yaml:"name"`
	Type     string   `json:"type"               toml:"type"               yaml:"type"`
	Nullable bool     `json:"nullable"           toml:"nullable"           yaml:"nullable"`
	Default  *string  `json:"default"            toml:"default,omitempty"  yaml:"default"`
	Values   []string `json:"values,omitempty"   toml:"values,omitempty"   yaml:"values,omitempty"`
}

// NewPredicatesCommand creates the predicates command.
func NewPredicatesCommand() *cobra.Command {
	var controller string

	cmd := &cobra.Command{
		Use:     "predicates CLASS",
		Aliases: []string{"preds"},
		Short:   "List the predicates of a request class",
		Long:    "Download and display the predicates a request class accepts, with their types",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			client, err := createClient(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			defer func() { _ = client.Close() }()

			predicates, err := client.GetPredicates(ctx, args[0], controller)
			if err != nil {
				return fmt.Errorf("failed to get predicates: %w", err)
			}

			views := make([]predicateView, len(predicates))
			for i, p := range predicates {
				views[i] = predicateView{
					Name:     p.Name,
					Type:     string(p.Type),
					Nullable: p.Nullable,
					Default:  p.Default,
					Values:   p.Values,
				}
			}

			return writeOutput(cmd.OutOrStdout(), "predicates", views, func(table *tablewriter.Table) {
				table.Header("Name", "Type", "Nullable", "Default", "Values")

				for _, v := range views {
					def := ""
					if v.Default != nil {
						def = *v.Default
					}

					_ = table.Append(v.Name, v.Type, fmt.Sprintf("%t", v.Nullable), def, strings.Join(v.Values, ", "))
				}
			})
		},
	}

	cmd.Flags().StringVar(&controller, "controller", "", "request controller (default resolved from the class)")

	return cmd
}

// classView is one row of the classes listing.
type classView struct {
	Controller string `json:"controller" toml:"controller" yaml:"controller"`
	Class      string `json:"class"      toml:"class"      yaml:"class"`
	Deprecated bool   `json:"deprecated" toml:"deprecated" yaml:"deprecated"`
}

// NewClassesCommand creates the classes command.
func NewClassesCommand() *cobra.Command {
	var controller string

	cmd := &cobra.Command{
		Use:   "classes",
		Short: "List request classes",
		Long:  "List the request classes of every controller, or of one controller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			controllers := spacetrack.Controllers()
			if controller != "" {
				if _, ok := spacetrack.ControllerClasses(controller); !ok {
					return fmt.Errorf("%w '%s'", spacetrack.ErrUnknownController, controller)
				}

				controllers = []string{controller}
			}

			var views []classView

			for _, name := range controllers {
				classes, _ := spacetrack.ControllerClasses(name)
				for _, class := range classes {
					views = append(views, classView{
						Controller: name,
						Class:      class,
						Deprecated: spacetrack.IsDeprecated(class, name),
					})
				}
			}

			return writeOutput(cmd.OutOrStdout(), "classes", views, func(table *tablewriter.Table) {
				table.Header("Controller", "Class", "Deprecated")

				for _, v := range views {
					deprecated := ""
					if v.Deprecated {
						deprecated = "yes"
					}

					_ = table.Append(v.Controller, v.Class, deprecated)
				}
			})
		},
	}

	cmd.Flags().StringVar(&controller, "controller", "", "only list classes of this controller")

	return cmd
}
