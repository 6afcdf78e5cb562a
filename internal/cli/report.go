package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/atotto/clipboard"
	"github.com/jwulff/calo/internal/report"
	"github.com/spf13/cobra"
)

var dayCopy bool

func init() {
	dayCmd.Flags().BoolVar(&dayCopy, "copy", false, "also copy the summary to the clipboard")
	rootCmd.AddCommand(dayCmd)
	rootCmd.AddCommand(weekCmd)
	rootCmd.AddCommand(monthCmd)
}

var dayCmd = &cobra.Command{
	Use:   "day [YYYY-MM-DD]",
	Short: "Show the foods and totals of a day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateArg(args)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		day, err := report.Day(cmd.Context(), store, date)
		if err != nil {
			return err
		}
		text := report.DaySummary(day)
		fmt.Print(text)
		if dayCopy {
			if err := clipboard.WriteAll(text); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: could not copy to clipboard: %v\n", err)
			} else {
				fmt.Fprintln(os.Stderr, "✓ Copied to clipboard")
			}
		}
		return nil
	},
}

var weekCmd = &cobra.Command{
	Use:   "week [YYYY-MM-DD]",
	Short: "Show daily totals for the Monday-Sunday week containing a day",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateArg(args)
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		days, err := report.Week(cmd.Context(), store, date)
		if err != nil {
			return err
		}
		fmt.Print(report.WeekSummary(days))
		return nil
	},
}

var monthCmd = &cobra.Command{
	Use:   "month [YYYY-MM]",
	Short: "Show ISO-week totals for a month",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		now := time.Now()
		year, month := now.Year(), now.Month()
		if len(args) == 1 {
			var err error
			if year, month, err = report.ParseMonth(args[0]); err != nil {
				return fmt.Errorf("invalid month %q, want YYYY-MM", args[0])
			}
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		buckets, err := report.Month(cmd.Context(), store, year, month)
		if err != nil {
			return err
		}
		fmt.Printf("%s %d\n", month, year)
		fmt.Print(report.MonthSummary(buckets))
		return nil
	},
}
