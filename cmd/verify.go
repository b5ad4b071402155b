package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/vaibhavmahiwal/medverify/internal/model"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <text-or-url>",
	Short: "Verify a single claim or article URL",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initApp(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		input := strings.Join(args, " ")
		result := env.Pipeline.Run(ctx, input)

		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal result")
		}
		fmt.Println(string(out))

		if result.Label == model.VerdictError {
			return eris.New("judgment failed, see reasoning field")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}
