package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deanwagman/peregrine/internal/db"
	"github.com/deanwagman/peregrine/internal/ingestion"
	"github.com/deanwagman/peregrine/internal/repository"
	"github.com/deanwagman/peregrine/internal/service"
)

func newAggregateCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Count property values of matching entities",
		Long: `Count how often each property value occurs among the entities that match the
requested models and property filters.

Entities come from --file when given, otherwise from the configured database, where
model and property filters are applied by the query itself.

Property filters have the form key:v1,v2. Entities must match every key and any of its
values. Values are typed: 2008 is a number, true a boolean, "2008" text.`,
		Example: `  peregrine aggregate --file people.json --models person --properties hair_color:brown
  peregrine aggregate --models bike --properties stolen:1 --output table`,
		Args: cobra.NoArgs,
		RunE: rt.runAggregate,
	}

	cmd.Flags().String("file", "", "Read entities from this file instead of the database")
	cmd.Flags().String("format-in", "", "Input format: json, yaml, csv or xlsx (default: from file extension)")
	cmd.Flags().String("model", "", "Model for rows of tabular input (default: file name)")
	cmd.Flags().String("path", "", "gjson path of the entity array inside a JSON or YAML document")
	cmd.Flags().StringArray("models", nil, "Allowed model (repeatable)")
	cmd.Flags().StringArray("properties", nil, "Property filter key:v1,v2 (repeatable)")
	cmd.Flags().StringP("output", "o", outputJSON, "Output format: json, pretty, table, csv or xlsx")
	cmd.Flags().String("out", "", "Write output to this file instead of stdout")
	return cmd
}

func (rt *runtime) runAggregate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	file, _ := cmd.Flags().GetString("file")
	models, _ := cmd.Flags().GetStringArray("models")
	properties, _ := cmd.Flags().GetStringArray("properties")
	output, _ := cmd.Flags().GetString("output")
	out, _ := cmd.Flags().GetString("out")

	if err := checkOutput(output, out); err != nil {
		return err
	}

	req := service.Request{
		Models:     models,
		Properties: properties,
		Command:    rt.commandLine(),
		User:       currentUser(),
	}

	var (
		conn   *db.Connection
		report service.Report
		err    error
	)
	defer func() { rt.closeStore(conn) }()

	if file != "" {
		opts, optErr := ingestionOptions(cmd)
		if optErr != nil {
			return optErr
		}

		// The audit log is optional when reading files.
		var recorder *service.AuditRecorder
		if rt.cfg.Audit.Enabled {
			if conn, err = rt.openStore(ctx); err != nil {
				rt.logger.Warnw("Audit log unavailable", "error", err)
				conn = nil
			} else {
				recorder = rt.auditRecorder(conn)
			}
		}

		reader, readerErr := ingestion.NewReader(rt.logger)
		if readerErr != nil {
			return readerErr
		}
		batch, readErr := reader.ReadFile(ctx, file, opts)
		if readErr != nil {
			rt.recordFailure(ctx, recorder)
			return readErr
		}

		aggregator := service.NewAggregator(service.WithRecorder(optionalRecorder(recorder)), service.WithLogger(rt.logger))
		report, err = aggregator.FromEntities(ctx, batch.Entities, req)
		if err != nil {
			rt.recordFailure(ctx, recorder)
			return err
		}
	} else {
		if conn, err = rt.openStore(ctx); err != nil {
			return err
		}
		recorder := rt.auditRecorder(conn)
		aggregator := service.NewAggregator(
			service.WithSource(repository.NewEntityRepository(conn, rt.logger)),
			service.WithRecorder(optionalRecorder(recorder)),
			service.WithLogger(rt.logger),
		)
		report, err = aggregator.FromStore(ctx, req)
		if err != nil {
			rt.recordFailure(ctx, recorder)
			return err
		}
	}

	data, err := renderResult(report.Result, output)
	if err != nil {
		return err
	}
	return emit(cmd.OutOrStdout(), out, data)
}

// optionalRecorder keeps a nil *AuditRecorder from becoming a non-nil
// interface value.
func optionalRecorder(recorder *service.AuditRecorder) service.InvocationRecorder {
	if recorder == nil {
		return nil
	}
	return recorder
}

func ingestionOptions(cmd *cobra.Command) (ingestion.Options, error) {
	formatIn, _ := cmd.Flags().GetString("format-in")
	model, _ := cmd.Flags().GetString("model")
	path, _ := cmd.Flags().GetString("path")

	format, err := ingestion.ParseFormat(formatIn)
	if err != nil {
		return ingestion.Options{}, fmt.Errorf("invalid --format-in: %w", err)
	}
	return ingestion.Options{Format: format, Model: model, Path: path}, nil
}
