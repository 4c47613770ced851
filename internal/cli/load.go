package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deanwagman/peregrine/internal/ingestion"
	"github.com/deanwagman/peregrine/internal/repository"
	"github.com/deanwagman/peregrine/internal/service"
)

func newLoadCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "Store entities from a file in the database",
		Long: `Read entities from a JSON, YAML, CSV or XLSX file and store them in the configured
database. Each model gets its own table; new properties add columns. Entities that cannot
be read or stored are listed in the summary and do not fail the load.`,
		Args: cobra.NoArgs,
		RunE: rt.runLoad,
	}

	cmd.Flags().String("file", "", "Entity file to load (required)")
	cmd.Flags().String("format-in", "", "Input format: json, yaml, csv or xlsx (default: from file extension)")
	cmd.Flags().String("model", "", "Model for rows of tabular input (default: file name)")
	cmd.Flags().String("path", "", "gjson path of the entity array inside a JSON or YAML document")
	if err := cmd.MarkFlagRequired("file"); err != nil {
		panic(err)
	}
	return cmd
}

func (rt *runtime) runLoad(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	opts, err := ingestionOptions(cmd)
	if err != nil {
		return err
	}

	conn, err := rt.openStore(ctx)
	if err != nil {
		return err
	}
	defer rt.closeStore(conn)

	reader, err := ingestion.NewReader(rt.logger)
	if err != nil {
		return err
	}
	recorder := rt.auditRecorder(conn)
	loader := service.NewLoader(reader, repository.NewEntityRepository(conn, rt.logger), rt.logger)

	summary, err := loader.Load(ctx, file, opts)
	if err != nil {
		rt.recordFailure(ctx, recorder)
		return err
	}
	if recorder != nil {
		if err := recorder.RecordInvocation(ctx, rt.commandLine(), currentUser()); err != nil {
			rt.logger.Warnw("Failed to record invocation", "error", err)
		}
	}

	if summary.Rejected == nil {
		summary.Rejected = []ingestion.Rejection{}
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to encode summary: %w", err)
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return err
}
