package cli

import (
	"github.com/spf13/cobra"

	"github.com/armcoincrypto/Armcalc/internal/app"
)

var (
	ratesFilterFrom string
	ratesFilterTo   string
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "List the current feed directions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rates(cmd.Context(), app.RatesOptions{
			FilterFrom: ratesFilterFrom,
			FilterTo:   ratesFilterTo,
		})
	},
}

func init() {
	ratesCmd.Flags().StringVar(&ratesFilterFrom, "from", "", "Filter by source currency")
	ratesCmd.Flags().StringVar(&ratesFilterTo, "to", "", "Filter by target currency")
}
