package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/intake/internal/flow"
)

var validateCmd = &cobra.Command{
	Use:   "validate [flow.yaml]",
	Short: "Check a flow definition for consistency",
	Long:  `Compiles the flow definition and reports missing prompts, dead conditions or duplicate step IDs.`,
	Run: func(cmd *cobra.Command, args []string) {
		if err := runValidate(args); err != nil {
			fmt.Printf("Validation failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("Flow is valid! ✅")
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(args []string) error {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}

	if path == "" {
		return flow.Validate(flow.Default())
	}

	compiled, err := flow.LoadFile(path)
	if err != nil {
		return fmt.Errorf("failed to load flow: %w", err)
	}
	return flow.Validate(compiled)
}
