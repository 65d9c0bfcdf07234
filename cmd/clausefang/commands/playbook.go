package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/clausefang/pkg/finding"
	"github.com/Sumatoshi-tech/clausefang/pkg/playbook"
	"github.com/Sumatoshi-tech/clausefang/pkg/render"
)

// NewPlaybookCommand creates the playbook command group.
func NewPlaybookCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "playbook",
		Short: "Show, validate or extend playbooks",
	}

	cmd.AddCommand(newPlaybookShowCommand(opts))
	cmd.AddCommand(newPlaybookValidateCommand())
	cmd.AddCommand(newPlaybookAddRuleCommand())

	return cmd
}

func newPlaybookShowCommand(opts *rootOptions) *cobra.Command {
	var (
		asYAML  bool
		noColor bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the active playbook",
		Long: `Print the playbook configured by playbook.path, or the built-in one.
Use --yaml to get an editable copy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}

			pb, err := playbook.Load(cfg.Playbook.Path)
			if err != nil {
				return err
			}

			if asYAML {
				return pb.Encode(cmd.OutOrStdout())
			}

			return render.Playbook(cmd.OutOrStdout(), pb, render.Options{Color: !noColor && !color.NoColor})
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print as YAML")
	cmd.Flags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	return cmd
}

func newPlaybookValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a playbook file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pb, err := playbook.Load(args[0])
			if err != nil {
				return err
			}

			rules, enabled := 0, 0
			for _, profile := range pb.Profiles {
				rules += len(profile.Rules)
				enabled += len(profile.RuleSet())
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %d profiles, %d rules (%d enabled)\n",
				color.GreenString("ok"), args[0], len(pb.Profiles), rules, enabled)

			return nil
		},
	}
}

func newPlaybookAddRuleCommand() *cobra.Command {
	var (
		profile  string
		rule     finding.Rule
		severity string
		disabled bool
	)

	cmd := &cobra.Command{
		Use:   "add-rule <file>",
		Short: "Add a rule to a playbook file",
		Long: `Add a rule to a profile of a playbook file and write the file back.
A missing file is created from the built-in playbook. Without --profile the
rule goes to the default profile.`,
		Example: `  clausefang playbook add-rule playbook.yaml --name "Venue" \
    --category "Governing Law" --condition "Disputes heard in Delaware courts"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pb, err := playbook.Load(args[0])
			if errors.Is(err, fs.ErrNotExist) {
				pb, err = playbook.Default(), nil
			}

			if err != nil {
				return err
			}

			rule.Severity = finding.Severity(severity)
			rule.Enabled = !disabled

			err = pb.AddRule(profile, rule)
			if err != nil {
				return err
			}

			err = writePlaybook(args[0], pb)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s added %q to %s\n", color.GreenString("ok"), rule.Name, args[0])

			return nil
		},
	}

	cmd.Flags().StringVar(&profile, "profile", "", "Profile name (default profile if empty)")
	cmd.Flags().StringVar(&rule.Name, "name", "", "Rule name")
	cmd.Flags().StringVar(&rule.Category, "category", "", "Rule category")
	cmd.Flags().StringVar(&rule.Description, "description", "", "Rule description")
	cmd.Flags().StringVar(&rule.Condition, "condition", "", "What a compliant clause looks like")
	cmd.Flags().StringVar(&severity, "severity", string(finding.SeverityWarning), "critical, warning or info")
	cmd.Flags().BoolVar(&disabled, "disabled", false, "Add the rule disabled")

	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("condition")

	return cmd
}

func writePlaybook(path string, pb *playbook.Playbook) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write playbook: %w", err)
	}

	err = pb.Encode(out)
	if err != nil {
		_ = out.Close()

		return err
	}

	return out.Close()
}
