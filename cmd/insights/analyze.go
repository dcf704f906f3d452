package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"annotation-insights/internal/model"
	"annotation-insights/internal/pipeline"
)

// Flags shared by the analysis commands.
var (
	datasetPath string
	apiRunID    int
	interval    string
	timeAxis    string
	timeSchema  int
	timeField   string
	startDate   string
	endDate     string
	exportFile  string
	asJSON      bool

	fillGaps    bool
	monitor     bool
	expectedIDs []int
	assetIDs    []int

	groupSchema      int
	groupField       string
	aggregateSources bool
	groupOrder       string
	topN             int
	aliasesPath      string

	splitSchema int
	splitField  string
	visible     []string
)

var timelineCmd = &cobra.Command{
	Use:   "timeline",
	Short: "Bucket results by time",
	Long: `Buckets annotation results into day, week, month, quarter or year intervals.
Each bucket counts distinct assets and carries min/max/avg per numeric field.

With --monitor every asset of the dataset (or --asset ids) is classified as
annotated, partial or pending against --expected schema ids.

Example:
  insights timeline --dataset results.json --interval month --start 2024-01-01 --end 2024-03-31`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := baseSpec(model.RunTimeline)
		if err != nil {
			return err
		}
		spec.FillGaps = fillGaps
		if monitor {
			spec.Kind = model.RunMonitoring
			spec.Monitoring = &model.MonitoringConfig{ExpectedSchemaIDs: expectedIDs, AssetIDs: assetIDs}
		}
		return analyze(cmd, spec)
	},
}

var groupedCmd = &cobra.Command{
	Use:   "grouped",
	Short: "Count results per value of a field",
	Long: `Groups results of one schema by the value of one field. Array fields count
once per element; --aliases points at a YAML map of canonical label to raw labels.

Example:
  insights grouped --dataset results.json --schema-id 3 --field document.topics --top-n 10`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := baseSpec(model.RunGrouped)
		if err != nil {
			return err
		}
		aliases, err := loadAliases(aliasesPath)
		if err != nil {
			return err
		}
		spec.Grouping = &model.GroupingConfig{
			SchemaID:         groupSchema,
			FieldKey:         groupField,
			AggregateSources: aggregateSources,
			Order:            model.GroupOrder(groupOrder),
			TopN:             topN,
			ValueAliases:     aliases,
		}
		return analyze(cmd, spec)
	},
}

var splitCmd = &cobra.Command{
	Use:   "split",
	Short: "Timeline per value of a split field",
	Long: `Partitions assets by the canonical value of a field of --split-schema and
builds one timeline per group. --visible restricts the groups shown.

Example:
  insights split --dataset results.json --split-schema 2 --split-field country --aliases countries.yaml`,
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := baseSpec(model.RunTimeline)
		if err != nil {
			return err
		}
		aliases, err := loadAliases(aliasesPath)
		if err != nil {
			return err
		}
		spec.FillGaps = fillGaps
		spec.Splitting = &model.VariableSplittingConfig{
			Enabled:       true,
			SchemaID:      splitSchema,
			FieldKey:      splitField,
			VisibleSplits: visible,
			ValueAliases:  aliases,
		}
		return analyze(cmd, spec)
	},
}

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the target keys of the dataset's schemas",
	RunE: func(cmd *cobra.Command, args []string) error {
		spec, err := baseSpec(model.RunTimeline)
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()
		ds, err := newRunner(newUpstream()).Loader.Load(ctx, &spec)
		if err != nil {
			return err
		}
		var schemas []model.Schema
		for _, s := range ds.Schemas {
			if groupSchema == 0 || s.ID == groupSchema {
				schemas = append(schemas, s)
			}
		}
		if asJSON {
			out := make(map[string][]model.TargetKey, len(schemas))
			for _, s := range schemas {
				out[s.Name] = pipeline.TargetKeys(s)
			}
			return printJSON(cmd, out)
		}
		renderKeys(cmd.OutOrStdout(), schemas)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{timelineCmd, groupedCmd, splitCmd, keysCmd} {
		c.Flags().StringVarP(&datasetPath, "dataset", "d", "", "Dataset JSON file or http(s) URL")
		c.Flags().IntVar(&apiRunID, "api-run", 0, "Load from the annotation API, restricted to this annotation run (0 = all)")
		c.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	}
	for _, c := range []*cobra.Command{timelineCmd, groupedCmd, splitCmd} {
		c.Flags().StringVarP(&interval, "interval", "i", "", "day, week, month, quarter or year (default from config)")
		c.Flags().StringVar(&timeAxis, "time-axis", "default", "default, event or schema")
		c.Flags().IntVar(&timeSchema, "time-schema", 0, "Schema id of a schema time axis")
		c.Flags().StringVar(&timeField, "time-field", "", "Field key of a schema time axis")
		c.Flags().StringVar(&startDate, "start", "", "Inclusive start date of the time frame")
		c.Flags().StringVar(&endDate, "end", "", "Inclusive end date of the time frame")
		c.Flags().StringVarP(&exportFile, "export", "o", "", "Also export to this .csv or .json file under the output directory")
	}
	for _, c := range []*cobra.Command{timelineCmd, splitCmd} {
		c.Flags().BoolVar(&fillGaps, "fill-gaps", false, "Emit empty buckets between the first and last one")
	}
	for _, c := range []*cobra.Command{groupedCmd, splitCmd} {
		c.Flags().StringVar(&aliasesPath, "aliases", "", "YAML file mapping canonical labels to raw labels")
	}

	timelineCmd.Flags().BoolVar(&monitor, "monitor", false, "Classify assets by annotation coverage")
	timelineCmd.Flags().IntSliceVar(&expectedIDs, "expected", nil, "Schema ids every asset should be annotated with")
	timelineCmd.Flags().IntSliceVar(&assetIDs, "asset", nil, "Asset pool for --monitor (default: every asset)")

	groupedCmd.Flags().IntVar(&groupSchema, "schema-id", 0, "Schema to group")
	groupedCmd.Flags().StringVar(&groupField, "field", "", "Field key to group by")
	groupedCmd.Flags().BoolVar(&aggregateSources, "aggregate-sources", false, "Count all sources together")
	groupedCmd.Flags().StringVar(&groupOrder, "order", "count_desc", "count_desc, value_asc or value_desc")
	groupedCmd.Flags().IntVar(&topN, "top-n", 0, "Keep only the first N groups")
	groupedCmd.MarkFlagRequired("schema-id")
	groupedCmd.MarkFlagRequired("field")

	splitCmd.Flags().IntVar(&splitSchema, "split-schema", 0, "Schema holding the split field")
	splitCmd.Flags().StringVar(&splitField, "split-field", "", "Field key to split by")
	splitCmd.Flags().StringSliceVar(&visible, "visible", nil, "Only these groups (default: all)")
	splitCmd.MarkFlagRequired("split-schema")
	splitCmd.MarkFlagRequired("split-field")

	keysCmd.Flags().IntVar(&groupSchema, "schema-id", 0, "Only this schema")
}

func baseSpec(kind model.RunKind) (model.RunSpec, error) {
	spec := model.RunSpec{
		Kind:     kind,
		Interval: model.Interval(interval),
		TimeAxis: model.TimeAxisConfig{
			Type:     model.TimeAxisType(timeAxis),
			SchemaID: timeSchema,
			FieldKey: timeField,
		},
	}
	switch {
	case datasetPath != "":
		spec.Source = &model.Source{Type: "json", URL: datasetPath}
	case cfg.Upstream.BaseURL != "":
		spec.Source = &model.Source{Type: "api", RunID: apiRunID}
	default:
		return spec, fmt.Errorf("--dataset is required when no upstream is configured")
	}
	if startDate != "" || endDate != "" {
		spec.TimeAxis.TimeFrame = &model.TimeFrame{Enabled: true, StartDate: startDate, EndDate: endDate}
	}
	if exportFile != "" {
		spec.Export = &model.Export{File: exportFile}
	}
	return spec, nil
}

func loadAliases(path string) (map[string][]string, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read aliases: %w", err)
	}
	var aliases map[string][]string
	if err := yaml.Unmarshal(data, &aliases); err != nil {
		return nil, fmt.Errorf("failed to parse aliases: %w", err)
	}
	return aliases, nil
}

func analyze(cmd *cobra.Command, spec model.RunSpec) error {
	ctx, cancel := signalContext()
	defer cancel()

	runner := newRunner(newUpstream())
	var (
		out *model.RunOutput
		err error
	)
	if spec.Export != nil {
		out, err = runner.Run(ctx, uuid.New().String(), spec)
	} else {
		out, err = runner.Analyze(ctx, spec)
	}
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd, out)
	}
	w := cmd.OutOrStdout()
	renderOutput(w, out)
	if out.Export != nil {
		fmt.Fprintf(w, "exported %d records to %s\n", out.Export.RecordCount, out.Export.Path)
	}
	return nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
