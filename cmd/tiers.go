package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/safescan/internal/tierdb"
)

var tiersCmd = &cobra.Command{
	Use:   "tiers",
	Short: "Inspect the ingredient tier database",
}

// -- tiers lookup --

var tiersLookupCmd = &cobra.Command{
	Use:   "lookup <ingredient>",
	Short: "Show the tier entry matching an ingredient name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initScoring(cfg)
		if err != nil {
			return err
		}
		name := strings.Join(args, " ")
		entry, matched, ok := env.Catalog.Search(name)
		if !ok {
			return eris.Errorf("no tier entry matches %q", name)
		}
		formatEntry(cmd.OutOrStdout(), env.Catalog, entry, matched)
		return nil
	},
}

// -- tiers stats --

var tiersStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the tier database",
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := initScoring(cfg)
		if err != nil {
			return err
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		stats := env.Catalog.Stats()
		if asJSON {
			return writeJSON(cmd.OutOrStdout(), stats)
		}
		formatStats(cmd.OutOrStdout(), stats)
		return nil
	},
}

func formatEntry(w io.Writer, db *tierdb.DB, e *tierdb.Entry, matched string) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", e.Name)
	fmt.Fprintf(tw, "Matched as:\t%s\n", matched)
	fmt.Fprintf(tw, "Grade:\t%s\n", e.Tier)
	fmt.Fprintf(tw, "Hazard:\t%d/100\n", e.Hazard)
	fmt.Fprintf(tw, "Reason:\t%s\n", e.Reason)
	if e.Category != "" {
		fmt.Fprintf(tw, "Category:\t%s\n", e.Category)
	}
	if e.Source != "" {
		fmt.Fprintf(tw, "Source:\t%s\n", e.Source)
	}
	if len(e.Concerns) > 0 {
		fmt.Fprintf(tw, "Concerns:\t%s\n", strings.Join(e.Concerns, ", "))
	}
	tw.Flush() //nolint:errcheck

	if e.Narrative != "" {
		if text, ok := db.Narrative(e.Narrative); ok {
			fmt.Fprintf(w, "\nWhat they don't tell you:\n%s\n", text)
		}
	}
}

func formatStats(w io.Writer, s tierdb.Stats) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Tier database:\t%s\n", s.Version)
	fmt.Fprintf(tw, "Ownership table:\t%s\n", s.OwnershipVersion)
	fmt.Fprintf(tw, "Ingredients:\t%d\n", s.TotalEntries)
	fmt.Fprintf(tw, "Materials:\t%d\n", s.TotalMaterials)
	fmt.Fprintf(tw, "Parent companies:\t%d\n", s.Parents)
	fmt.Fprintf(tw, "Narratives:\t%d\n", s.Narratives)
	fmt.Fprintf(tw, "Processing markers:\t%d\n", s.ProcessingTerms)
	fmt.Fprintf(tw, "Hazard high/moderate/low:\t%d / %d / %d\n", s.HighHazard, s.ModerateHazard, s.LowHazard)
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "GRADE\tENTRIES")
	for _, g := range []string{"A+", "A", "B", "C", "D", "F"} {
		fmt.Fprintf(tw, "%s\t%d\n", g, s.Tiers[g])
	}
	fmt.Fprintln(tw)

	cats := make([]string, 0, len(s.Categories))
	for c := range s.Categories {
		cats = append(cats, c)
	}
	sort.Strings(cats)
	fmt.Fprintln(tw, "CATEGORY\tENTRIES")
	for _, c := range cats {
		fmt.Fprintf(tw, "%s\t%d\n", c, s.Categories[c])
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	tiersStatsCmd.Flags().Bool("json", false, "print stats as JSON")

	tiersCmd.AddCommand(tiersLookupCmd)
	tiersCmd.AddCommand(tiersStatsCmd)
	rootCmd.AddCommand(tiersCmd)
}
