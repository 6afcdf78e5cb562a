package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	logDate string
	addDate string
)

func init() {
	logCmd.Flags().StringVar(&logDate, "date", "", "day to log to (YYYY-MM-DD, default today)")
	addCmd.Flags().StringVar(&addDate, "date", "", "day to log to (YYYY-MM-DD, default today)")
	rootCmd.AddCommand(logCmd)
	rootCmd.AddCommand(addCmd)
}

var logCmd = &cobra.Command{
	Use:   "log <audio-file>",
	Short: "Log a meal from a recorded audio file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateArg([]string{logDate})
		if err != nil {
			return err
		}
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read audio: %w", err)
		}

		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := e.pipeline.ProcessAudio(ctx, date, data)
		return reportRun(os.Stdout, res, err)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <description...>",
	Short: "Log a meal from a typed description",
	Example: `  calo add two eggs and 200g of greek yogurt
  calo add --date 2024-06-03 a banana`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		date, err := dateArg([]string{addDate})
		if err != nil {
			return err
		}

		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.Close()

		ctx, cancel := signalContext()
		defer cancel()

		res, err := e.pipeline.ProcessTranscript(ctx, date, strings.Join(args, " "))
		return reportRun(os.Stdout, res, err)
	},
}
