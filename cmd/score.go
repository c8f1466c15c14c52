package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/safescan/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score <product.yaml|product.json>",
	Short: "Score an extracted product file",
	Long: `Score a product from a YAML or JSON file holding the extracted label data.

Example file:

  product_name: Fruit Punch
  brand: Kool-Aid
  category: food
  ingredients: [water, high fructose corn syrup, red 40]
  external_hazard_estimates:
    red 40: 6.5
  positive_claims: [gluten-free]`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("score"); err != nil {
			return err
		}

		env, err := initScoring(cfg)
		if err != nil {
			return err
		}

		var req model.ScanRequest
		if err := loadProductFile(args[0], &req); err != nil {
			return err
		}

		result, err := env.Engine.Score(req)
		if err != nil {
			return eris.Wrap(err, "score")
		}
		return writeJSON(cmd.OutOrStdout(), result)
	},
}

// loadProductFile decodes a YAML or JSON product file into v. JSON is read by
// the YAML decoder.
func loadProductFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return eris.Wrap(err, "read product file")
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return eris.Wrapf(err, "parse product file %s", path)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.AddCommand(scoreCmd)
}
