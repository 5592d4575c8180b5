package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/miradorstack/meeting-correlator/internal/api"
	"github.com/miradorstack/meeting-correlator/internal/config"
	"github.com/miradorstack/meeting-correlator/internal/utils"
)

func runCmd(configPath *string) *cobra.Command {
	var (
		noticesPath   string
		artifactsPath string
		strategy      string
		minConfidence float64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Correlate JSON record files once and print the run",
		Example: `  correlator run --notices invites.json --artifacts notes.json
  correlator run --notices invites.json --artifacts notes.json --strategy temporal --min-confidence 0.75`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := utils.NewLoggerTo(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.JSON)

			notices, err := readRecords(noticesPath)
			if err != nil {
				return err
			}
			artifacts, err := readRecords(artifactsPath)
			if err != nil {
				return err
			}

			fields := map[string]*structpb.Value{
				"notices":   structpb.NewListValue(notices),
				"artifacts": structpb.NewListValue(artifacts),
			}
			if cmd.Flags().Changed("strategy") {
				fields["strategy"] = structpb.NewStringValue(strategy)
			}
			if cmd.Flags().Changed("min-confidence") {
				fields["minConfidence"] = structpb.NewNumberValue(minConfidence)
			}
			req, err := api.FromStructRequest(&structpb.Struct{Fields: fields})
			if err != nil {
				return err
			}

			pipeline, err := buildPipeline(cfg, logger, nil)
			if err != nil {
				return fmt.Errorf("build pipeline: %w", err)
			}
			run, err := pipeline.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			doc, err := api.ToStructRun(run)
			if err != nil {
				return err
			}
			out, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
			if err != nil {
				return fmt.Errorf("encode run: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}

	cmd.Flags().StringVar(&noticesPath, "notices", "", "JSON array of notice records")
	cmd.Flags().StringVar(&artifactsPath, "artifacts", "", "JSON array of artifact records")
	cmd.Flags().StringVar(&strategy, "strategy", "", "Fusion strategy: adaptive, temporal-first, participant-first, content-first, balanced")
	cmd.Flags().Float64Var(&minConfidence, "min-confidence", 0, "Minimum fused confidence in [0,1]")
	_ = cmd.MarkFlagRequired("notices")
	_ = cmd.MarkFlagRequired("artifacts")
	return cmd
}

// readRecords decodes a JSON array of objects from path.
func readRecords(path string) (*structpb.ListValue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var list structpb.ListValue
	if err := protojson.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return &list, nil
}
