package cli

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/jwulff/calo/internal/db"
	"github.com/jwulff/calo/internal/report"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(editCmd)
	rootCmd.AddCommand(deleteCmd)
}

var editCmd = &cobra.Command{
	Use:   "edit <id> <grams>",
	Short: "Change the quantity of an entry; nutrients are rescaled",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		qty, err := strconv.ParseFloat(args[1], 64)
		if err != nil || qty <= 0 {
			return fmt.Errorf("invalid quantity %q", args[1])
		}

		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		e, err := store.UpdateQuantity(cmd.Context(), id, qty)
		if errors.Is(err, db.ErrNotFound) {
			return fmt.Errorf("entry #%d not found", id)
		}
		if err != nil {
			return err
		}
		fmt.Printf("#%d %s, %g%s: %s\n", e.ID, e.Name, e.Quantity, e.Unit,
			report.FormatTotals(report.SumEntries([]db.FoodEntry{e})))
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id>",
	Aliases: []string{"rm"},
	Short:   "Delete an entry",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Delete(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Printf("✓ Deleted #%d\n", id)
		return nil
	},
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid entry id %q", s)
	}
	return id, nil
}
