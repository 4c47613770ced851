package cli

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/deanwagman/peregrine/internal/repository"
)

func newHistoryCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded command runs",
		Args:  cobra.NoArgs,
		RunE:  rt.runHistory,
	}
	cmd.Flags().Int("limit", 20, "Maximum number of entries")
	cmd.Flags().Int("offset", 0, "Number of entries to skip")
	cmd.Flags().StringP("output", "o", outputTable, "Output format: table or json")
	return cmd
}

func (rt *runtime) runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	limit, _ := cmd.Flags().GetInt("limit")
	offset, _ := cmd.Flags().GetInt("offset")
	output, _ := cmd.Flags().GetString("output")
	if output != outputTable && output != outputJSON {
		return fmt.Errorf("unknown output format %q", output)
	}

	conn, err := rt.openStore(ctx)
	if err != nil {
		return err
	}
	defer rt.closeStore(conn)

	entries, err := repository.NewInvocationRepository(conn).List(ctx, limit, offset)
	if err != nil {
		return err
	}

	if output == outputJSON {
		data, err := json.Marshal(entries)
		if err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			entry.CreatedAt.Local().Format(time.DateTime),
			entry.Username,
			entry.Status,
			entry.Command,
		})
	}
	return writeTable(cmd.OutOrStdout(), []string{"Time", "User", "Status", "Command"}, rows)
}
