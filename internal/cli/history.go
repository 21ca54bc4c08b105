package cli

import (
	"github.com/spf13/cobra"

	"github.com/armcoincrypto/Armcalc/internal/app"
)

var (
	historyUserID int64
	historyLimit  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a user's recent results",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().History(cmd.Context(), app.HistoryOptions{
			UserID: historyUserID,
			Limit:  historyLimit,
		})
	},
}

func init() {
	historyCmd.Flags().Int64Var(&historyUserID, "user", 0, "Telegram user ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Maximum entries (defaults to config)")
	historyCmd.MarkFlagRequired("user")
}
