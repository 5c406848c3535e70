package cmd

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/KaramelBytes/quickternary-cli/internal/chem"
	"github.com/KaramelBytes/quickternary-cli/internal/table"
	"github.com/KaramelBytes/quickternary-cli/internal/utils"
	"github.com/spf13/cobra"
)

var (
	insOutputPath string
	insDelimiter  string
	insSheetName  string
	insSheetIndex int
	insHeaderRow  int
	insMaxRows    int
	insFormulas   bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Summarize the columns of a CSV/TSV/XLSX table",
	Long: `Summarize the columns of a table: inferred kind, missing values and ranges.
With --formulas, numeric columns also show the chemical formula used for
molar conversion when one can be derived from the column name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opt := tableOptions()
		if insDelimiter != "" {
			switch insDelimiter {
			case ",", ";":
				opt.Delimiter, _ = utf8.DecodeRuneInString(insDelimiter)
			case "\t", `\t`, "tab":
				opt.Delimiter = '\t'
			default:
				return fmt.Errorf("unsupported --delimiter: %s", insDelimiter)
			}
		}
		if cmd.Flags().Changed("header-row") {
			opt.HeaderRow = insHeaderRow
		}
		if insSheetName != "" {
			opt.SheetName = insSheetName
		}
		if insSheetIndex > 0 {
			opt.SheetIndex = insSheetIndex
		}
		if insMaxRows > 0 {
			opt.MaxRows = insMaxRows
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		t, err := table.Load(ctx, args[0], opt)
		if err != nil {
			return err
		}
		cols := t.Describe()
		if insFormulas {
			for i := range cols {
				if cols[i].Kind == table.KindNumeric {
					cols[i].Formula = chem.Suggest(cols[i].Name)
				}
			}
		}
		md := table.Markdown(t.Name, t.Len(), cols)
		if insOutputPath != "" {
			if err := utils.SafeWriteFile(insOutputPath, []byte(md)); err != nil {
				return fmt.Errorf("write output: %w", err)
			}
			fmt.Printf("✓ Wrote summary to %s\n", insOutputPath)
			return nil
		}
		fmt.Print(strings.TrimRight(md, "\n") + "\n")
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVarP(&insOutputPath, "output", "o", "", "write the summary to a file instead of stdout")
	inspectCmd.Flags().StringVar(&insDelimiter, "delimiter", "", "CSV delimiter: ',', ';' or 'tab' (default: sniffed)")
	inspectCmd.Flags().StringVar(&insSheetName, "sheet", "", "XLSX sheet name")
	inspectCmd.Flags().IntVar(&insSheetIndex, "sheet-index", 0, "XLSX sheet index, 1-based")
	inspectCmd.Flags().IntVar(&insHeaderRow, "header-row", -1, "0-based header row (default: inferred)")
	inspectCmd.Flags().IntVar(&insMaxRows, "max-rows", 0, "read at most this many data rows")
	inspectCmd.Flags().BoolVar(&insFormulas, "formulas", false, "suggest molar formulas for numeric columns")
	rootCmd.AddCommand(inspectCmd)
}
