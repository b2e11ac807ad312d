package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	recerrors "github.com/anstrom/recon/internal/errors"
	"github.com/anstrom/recon/internal/model"
	"github.com/anstrom/recon/internal/nmapscan"
	"github.com/anstrom/recon/internal/scanning"
)

var (
	importFile   string
	importFormat string
	importOutput string
)

// importCmd represents the import command
var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Convert saved nmap output into a recon result",
	Long: `Read nmap output saved with -oX (XML) or -oN (normal text) and convert the
first host report into recon port records. Unrecognized or malformed input is
rejected as a whole; no partial records are produced.`,
	Example: `  recon import --file scan.xml
  recon import --file scan.nmap --format json --output result.xml`,
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFile, "file", "", "nmap output file (XML or normal text)")
	importCmd.Flags().StringVarP(&importFormat, "format", "f", formatTable, "Output format: table, json or xml")
	importCmd.Flags().StringVarP(&importOutput, "output", "o", "", "Also write the result to this file")

	_ = importCmd.MarkFlagRequired("file")
}

func runImport(cmd *cobra.Command, _ []string) error {
	if err := validateFormat(importFormat, true); err != nil {
		return err
	}

	result, err := importResult(importFile)
	if err != nil {
		return err
	}

	if importOutput != "" {
		if err := scanning.SaveResults(result, importOutput); err != nil {
			return err
		}
	}
	return writeResult(cmd.OutOrStdout(), result, importFormat)
}

// importResult parses an nmap output file into a merged result.
func importResult(path string) (*model.MergedResult, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, recerrors.WrapScanError(recerrors.CodeFileNotFound, "failed to read nmap output", err).
			WithContext("path", path)
	}

	method := model.ProbeMethod{Kind: model.KindDelegated, Name: "nmap"}
	outcome, err := nmapscan.ParseOutput(data, method)
	if err != nil {
		return nil, recerrors.WrapScanError(recerrors.CodeParseFailed, "failed to parse nmap output", err).
			WithContext("path", path)
	}

	now := time.Now()
	availability := model.NewAvailabilityRecord("")
	availability.IsAvailable = outcome.HostUp
	availability.HostHint = outcome.OSHint

	return &model.MergedResult{
		ID:                 uuid.New(),
		Technique:          model.TechniqueConnect,
		Availability:       availability,
		Ports:              scanning.Merge(outcome.Records),
		FirewallFindings:   map[string]model.FilterVerdict{},
		DelegatedAvailable: true,
		OSHint:             outcome.OSHint,
		StartTime:          now,
		EndTime:            now,
	}, nil
}
