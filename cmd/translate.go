package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/kommo-bridge/internal/pipeline"
)

var (
	translateFile      string
	translateCloseDays int
	translateTZ        string
)

var translateCmd = &cobra.Command{
	Use:   "translate",
	Short: "Translate a webhook payload from a file or stdin",
	Long:  "Runs one payload through the full pipeline (enrichment, dictionary translation, derived attributes) and prints the result as JSON. Reads the payload from --file, or stdin when omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if translateFile != "" {
			f, err := os.Open(translateFile)
			if err != nil {
				return eris.Wrap(err, "open payload file")
			}
			defer f.Close()
			in = f
		}

		var body map[string]any
		if err := json.NewDecoder(in).Decode(&body); err != nil {
			return eris.Wrap(err, "decode payload")
		}

		env, err := initBridge()
		if err != nil {
			return err
		}

		result := env.Pipeline.TranslateBatch(cmd.Context(), body, pipeline.Options{
			CloseDays: translateCloseDays,
			TimeZone:  translateTZ,
		})

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	translateCmd.Flags().StringVar(&translateFile, "file", "", "payload JSON file (default stdin)")
	translateCmd.Flags().IntVar(&translateCloseDays, "close-days", 0, "closing-date offset in days (default from config)")
	translateCmd.Flags().StringVar(&translateTZ, "tz", "", "IANA time zone for dates (default from config)")
	rootCmd.AddCommand(translateCmd)
}
