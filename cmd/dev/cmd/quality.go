package cmd

import (
	"fmt"

	"github.com/gophertribe/devtool/test"
	"github.com/spf13/cobra"
)

// devtoolCmd wraps a devtool step that takes no arguments.
func devtoolCmd(use, short, what string, step func() error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := step(); err != nil {
				return fmt.Errorf("failed to run %s: %w", what, err)
			}
			return nil
		},
	}
}

func TestCmd() *cobra.Command {
	return devtoolCmd("test", "Run unit tests of drivers, scheduler and daemon", "tests", test.Test)
}

func LintCmd() *cobra.Command {
	return devtoolCmd("lint", "Run linting", "linting", test.Lint)
}

// IntegrationTestCmd runs the tests that talk to sensors on a real bus.
func IntegrationTestCmd() *cobra.Command {
	return devtoolCmd("integration-test", "Run tests against attached sensors", "integration testing", test.Integ)
}
