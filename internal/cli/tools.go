package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

var calcCmd = &cobra.Command{
	Use:   "calc <expression>",
	Short: "Evaluate an arithmetic expression",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Calc(strings.Join(args, " "))
	},
}

var unitsCmd = &cobra.Command{
	Use:   "units <amount> <from> <to>",
	Short: "Convert a quantity between units",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Units(args[0], args[1], args[2])
	},
}

var rateMethod string

var rateCmd = &cobra.Command{
	Use:   "rate <from> <to>",
	Short: "Look up an exchange rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Rate(cmd.Context(), args[0], args[1], rateMethod, "")
	},
}

var convertMethod string

var convertCmd = &cobra.Command{
	Use:   "convert <amount> <from> <to>",
	Short: "Convert an amount between currencies",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Convert(cmd.Context(), args[0], args[1], args[2], convertMethod)
	},
}

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove expired conversion panel states",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Sweep(cmd.Context())
	},
}

func init() {
	rateCmd.Flags().StringVar(&rateMethod, "method", "", "RUB payment method (sberbank, tinkoff, ...)")
	convertCmd.Flags().StringVar(&convertMethod, "method", "", "RUB payment method (sberbank, tinkoff, ...)")
}
