package cmd

import (
	"fmt"
	"strconv"

	"github.com/KaramelBytes/quickternary-cli/internal/chem"
	"github.com/spf13/cobra"
)

var formulaCmd = &cobra.Command{
	Use:   "formula <formula|column>...",
	Short: "Print molar masses of formulas or formula-like column names",
	Long: `Print the molar mass (g/mol) used for molar conversion. Arguments may be
formulas such as Fe2O3 or Ca(OH)2, or column names such as "CaO (wt%)" which are
resolved the same way trace columns are.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var r chem.Resolver
		failed := 0
		for _, arg := range args {
			formula, err := r.Resolve(arg)
			if err != nil {
				fmt.Printf("✗ %s: %v\n", arg, err)
				failed++
				continue
			}
			m, err := chem.MolarMass(formula)
			if err != nil {
				fmt.Printf("✗ %s: %v\n", arg, err)
				failed++
				continue
			}
			if formula == arg {
				fmt.Printf("%s: %s g/mol\n", arg, strconv.FormatFloat(m, 'f', 4, 64))
			} else {
				fmt.Printf("%s (%s): %s g/mol\n", arg, formula, strconv.FormatFloat(m, 'f', 4, 64))
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d argument(s) could not be resolved", failed, len(args))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(formulaCmd)
}
