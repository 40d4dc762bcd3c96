package cmd

import (
	"ProctorGuard/internal/config"
	"ProctorGuard/pkg/log"
	"ProctorGuard/pkg/proctor"
	"ProctorGuard/pkg/utils"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	ObjectBackend string
	FaceBackend   string
	CataloguePath string
	Pretty        bool
	FailOnHigh    bool
}

var analyzeOpts analyzeOptions

type fileReport struct {
	File   string          `json:"file"`
	Report *proctor.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>...",
	Short: "Analyze still frames and print one JSON report per image",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runAnalyze(cmd, args, analyzeOpts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeOpts.ObjectBackend, "objects", "", "Object backend: onnx, gemini, static or none (defaults to OBJECT_MODEL_BACKEND)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.FaceBackend, "faces", "", "Face backend: remote or static (defaults to FACE_MODEL_BACKEND)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.CataloguePath, "catalogue", "", "YAML catalogue overriding CATALOGUE_PATH")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.Pretty, "pretty", false, "Indent JSON output")
	analyzeCmd.Flags().BoolVar(&analyzeOpts.FailOnHigh, "fail-on-high", false, "Exit non-zero when any frame has a high severity violation")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, files []string, opts analyzeOptions) error {
	logger := log.NewDiscardLogger()

	cfg, err := config.LoadProctorConfig()
	if err != nil {
		return err
	}
	if opts.ObjectBackend != "" {
		cfg.ObjectBackend = strings.ToLower(opts.ObjectBackend)
	}
	if opts.FaceBackend != "" {
		cfg.FaceBackend = strings.ToLower(opts.FaceBackend)
	}
	if opts.CataloguePath != "" {
		catalogue, err := proctor.LoadCatalogueFile(opts.CataloguePath)
		if err != nil {
			return fmt.Errorf("load catalogue: %w", err)
		}
		cfg.Engine.Catalogue = catalogue
	}

	engine, err := config.NewProctorEngine(cfg, logger)
	if err != nil {
		return err
	}
	defer engine.Close()

	bar := progressbar.NewOptions(len(files),
		progressbar.OptionSetDescription("Analyzing frames"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
	)

	results := make([]fileReport, 0, len(files))
	highest := proctor.SeverityNone

	for _, file := range files {
		if err := cmd.Context().Err(); err != nil {
			return err
		}

		result := analyzeFile(cmd, engine, file)
		if result.Report != nil {
			highest = proctor.MaxSeverity(highest, result.Report.HighestSeverity())
		}
		results = append(results, result)
		_ = bar.Add(1)
	}
	_ = bar.Finish()
	fmt.Fprintln(os.Stderr)

	if err := writeReports(cmd.OutOrStdout(), results, opts.Pretty); err != nil {
		return err
	}

	if opts.FailOnHigh && highest == proctor.SeverityHigh {
		return fmt.Errorf("high severity violations detected")
	}
	return nil
}

func analyzeFile(cmd *cobra.Command, engine *proctor.Engine, path string) fileReport {
	result := fileReport{File: filepath.Base(path)}

	data, err := os.ReadFile(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	info, err := os.Stat(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	frame, err := utils.DecodeFrame(data, info.ModTime().UTC())
	if err != nil {
		result.Error = err.Error()
		return result
	}

	report, err := engine.Analyze(cmd.Context(), frame)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	result.Report = report
	return result
}

func writeReports(w io.Writer, results []fileReport, pretty bool) error {
	enc := jsoniter.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	for _, r := range results {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}
