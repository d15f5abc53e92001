package main

import (
	"encoding/json"
	"fmt"

	"bizonboard/internal/profile"

	"github.com/spf13/cobra"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the onboarding sections and fields",
	Args:  cobra.NoArgs,
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print markdown without terminal styling")
	schemaCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the schema as JSON")
}

func runSchema(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(profile.DefaultSchema.Sections())
	}
	text, err := render(schemaMarkdown(profile.DefaultSchema), plainOutput)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}
