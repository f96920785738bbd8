package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sill-dev/sill/internal/config"
	"github.com/sill-dev/sill/internal/errors"
	"github.com/sill-dev/sill/internal/scaffold"
)

func initCmd() *cobra.Command {
	var force bool
	var templateName string

	cmd := &cobra.Command{
		Use:   "init [dir]",
		Short: "Create a sill project",
		Long: `Create a sill project in the current or given directory: a sill.json,
a template directory, and with the demo template a scenario runnable
with 'sill simulate'.

Examples:
  sill init
  sill init my-bridge
  sill init my-bridge --template demo`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, templateName, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing sill.json")
	cmd.Flags().StringVarP(&templateName, "template", "t", "minimal", "Project template: "+strings.Join(scaffold.List(), "|"))

	return cmd
}

func runInit(dir, templateName string, force bool) error {
	tmpl, err := scaffold.Get(templateName)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}

	if config.Exists(dir) && !force {
		return errors.Newf(errors.CategoryCLI, "sill.json already exists in %s", abs).
			WithSuggestion("Use --force to overwrite")
	}

	cfg := scaffold.Config{
		ProjectName: filepath.Base(abs),
		Port:        config.DefaultPort,
		Path:        config.DefaultBridgePath,
	}
	if err := tmpl.Create(dir, cfg); err != nil {
		return err
	}

	success("Created project '%s' from the %s template", cfg.ProjectName, tmpl.Name)
	for _, rel := range tmpl.Paths() {
		info("  %s", rel)
	}
	info("Start the bridge with 'sill serve'")
	return nil
}
