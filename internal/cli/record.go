package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jwulff/calo/internal/openai"
	"github.com/jwulff/calo/internal/recorder"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(recordCmd)
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a meal from the microphone and log it for today",
	Long: `Starts recording immediately. Press Enter (or Ctrl+C) to stop; the
audio is then transcribed, every food looked up and logged.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := setup(false)
		if err != nil {
			return err
		}
		defer e.Close()

		if e.state.APIKey() == "" {
			return errors.New(recorder.UserMessage(openai.ErrMissingAPIKey))
		}

		ctx, cancel := signalContext()
		defer cancel()

		if err := e.pipeline.Start(ctx); err != nil {
			return errors.New(recorder.UserMessage(err))
		}
		fmt.Fprintln(os.Stderr, "● Recording... press Enter to stop")

		enter := make(chan struct{})
		go func() {
			_, _ = bufio.NewReader(os.Stdin).ReadString('\n')
			close(enter)
		}()
		select {
		case <-enter:
		case <-ctx.Done():
		}

		// Processing still runs after Ctrl+C; a second signal kills the process.
		fmt.Fprintln(os.Stderr, "Processing...")
		res, err := e.pipeline.Stop(context.Background())
		return reportRun(os.Stdout, res, err)
	},
}

// reportRun prints what a run logged, including the entries saved before a
// failure stopped it, and turns err into the user-facing message.
func reportRun(w io.Writer, res recorder.Result, err error) error {
	if err == nil {
		fmt.Fprint(w, res.Summary())
		return nil
	}
	if len(res.Entries) > 0 || len(res.Skipped) > 0 {
		fmt.Fprint(w, res.Summary())
	}
	return errors.New(recorder.UserMessage(err))
}
