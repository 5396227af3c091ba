package analyze

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tphakala/image-analyzer/internal/analysis"
	"github.com/tphakala/image-analyzer/internal/classifier"
	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/logger"
	"github.com/tphakala/image-analyzer/internal/mqtt"
)

// Command creates the command that analyzes one image and prints the record.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <path|uri|->",
		Short: "Analyze a single image",
		Long: "Classify one image, store the record and print it as JSON. " +
			"Use - to read the image from standard input.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			central, err := logger.NewCentralLogger(&settings.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = central.Close() }()

			rt, err := analysis.NewRuntime(cmd.Context(), settings, central.Module("main"))
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close() }()

			ref, in, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			res, err := rt.Service.Analyze(cmd.Context(), ref, in)
			if err != nil {
				return err
			}
			return writeRecord(cmd.OutOrStdout(), res)
		},
	}
	return cmd
}

// readInput maps the argument to an image input. "-" reads all of stdin.
func readInput(arg string, stdin io.Reader) (string, classifier.ImageInput, error) {
	if arg != "-" {
		return arg, classifier.FromLocation(arg), nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, classifier.MaxPayloadBytes+1))
	if err != nil {
		return "", classifier.ImageInput{}, fmt.Errorf("read stdin: %w", err)
	}
	return classifier.InlineReference, classifier.FromBytes(data), nil
}

func writeRecord(w io.Writer, res *analysis.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(mqtt.NewAnalysisEventDTO(res.LogID, &res.Record))
}
