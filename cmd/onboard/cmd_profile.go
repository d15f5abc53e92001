package main

import (
	"context"
	"encoding/json"
	"fmt"

	"bizonboard/internal/onboarding"

	"github.com/spf13/cobra"
)

var (
	plainOutput bool
	jsonOutput  bool
)

var profileCmd = &cobra.Command{
	Use:   "profile",
	Short: "Inspect or edit a stored profile directly",
}

var profileShowCmd = &cobra.Command{
	Use:   "show <accountId>",
	Short: "Show a profile and its completion, creating it if absent",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileShow,
}

var profileSetCmd = &cobra.Command{
	Use:   "set <accountId> <sectionKey> <fieldKey> <value>",
	Short: "Save one field",
	Args:  cobra.ExactArgs(4),
	RunE:  runProfileSet,
}

var profileResetCmd = &cobra.Command{
	Use:   "reset <accountId>",
	Short: "Discard every saved answer for an account",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfileReset,
}

func init() {
	for _, c := range []*cobra.Command{profileShowCmd, profileSetCmd, profileResetCmd} {
		c.Flags().BoolVar(&plainOutput, "plain", false, "Print markdown without terminal styling")
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print the raw tool envelope as JSON")
	}
}

func runProfileShow(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc *onboarding.Service) (*onboarding.Envelope, error) {
		return svc.LoadProfile(ctx, onboarding.LoadInput{AccountID: args[0]})
	})
}

func runProfileSet(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc *onboarding.Service) (*onboarding.Envelope, error) {
		return svc.UpdateField(ctx, onboarding.UpdateInput{
			AccountID:  args[0],
			SectionKey: args[1],
			FieldKey:   args[2],
			Value:      args[3],
		})
	})
}

func runProfileReset(cmd *cobra.Command, args []string) error {
	return withService(cmd, func(ctx context.Context, svc *onboarding.Service) (*onboarding.Envelope, error) {
		return svc.ResetProfile(ctx, onboarding.ResetInput{AccountID: args[0]})
	})
}

// withService runs one tool against the configured store and prints the
// result.
func withService(cmd *cobra.Command, call func(context.Context, *onboarding.Service) (*onboarding.Envelope, error)) error {
	ctx, cancel := context.WithTimeout(commandContext(cmd), timeout)
	defer cancel()

	svc, closeStore, err := openService(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	env, err := call(ctx, svc)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	fmt.Fprintln(out, env.Message())
	text, err := render(profileMarkdown(env.StructuredContent, env.Metadata), plainOutput)
	if err != nil {
		return err
	}
	fmt.Fprint(out, text)
	return nil
}
