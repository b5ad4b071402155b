package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved verification results, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		records, err := st.ListAll(ctx, historyLimit)
		if err != nil {
			return eris.Wrap(err, "list history")
		}

		out, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal history")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "max results (default 100)")
	rootCmd.AddCommand(historyCmd)
}
