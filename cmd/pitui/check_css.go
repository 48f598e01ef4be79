package main

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vito/pitui/pkg/css"
	"github.com/vito/pitui/pkg/ioctx"
)

func checkCSSCmd() *cobra.Command {
	var dump bool

	cmd := &cobra.Command{
		Use:   "check-css file...",
		Short: "Parse stylesheets and report errors",
		Long: `Parses each stylesheet and reports every error with its location and
the offending source line. Exits non-zero if any file has errors.

With --dump, prints the rules, variables and typed values of files that
parse cleanly.`,
		Example: `  pitui check-css app.tcss
  pitui check-css --dump theme.tcss`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := ioctx.StdoutFromContext(cmd.Context())
			var failed int
			for _, path := range args {
				ok, err := checkStylesheet(w, path, dump)
				if err != nil {
					return err
				}
				if !ok {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d stylesheets have errors", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dump, "dump", false, "Print the parsed rules")
	return cmd
}

// checkStylesheet reports on one file. It returns false if the file has
// parse errors; err is only for files that can't be read.
func checkStylesheet(w io.Writer, path string, dump bool) (bool, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return false, errors.Wrap(err, "read stylesheet")
	}
	sheet, err := css.Parse(path, string(src))
	if err != nil {
		errs := css.Errors(err)
		if len(errs) == 0 {
			return false, err
		}
		for _, e := range errs {
			fmt.Fprintf(w, "%s\n\n", e.Format(string(src)))
		}
		fmt.Fprintf(w, "%s: %d errors\n", path, len(errs))
		return false, nil
	}

	fmt.Fprintf(w, "%s: ok (%d rules, %d variables)\n", path, len(sheet.Rules), len(sheet.Variables))
	if dump {
		dumpStylesheet(w, sheet)
	}
	return true, nil
}

func dumpStylesheet(w io.Writer, sheet *css.Stylesheet) {
	for _, name := range slices.Sorted(maps.Keys(sheet.Variables)) {
		fmt.Fprintf(w, "$%s: %s;\n", name, sheet.Variables[name])
	}
	for _, rule := range sheet.Rules {
		fmt.Fprintf(w, "\n%s  /* %s */\n", rule, rule.Location)
		for _, sel := range rule.Selectors {
			fmt.Fprintf(w, "  specificity %s: %# v\n", sel, pretty.Formatter(sel.Specificity))
		}
		for _, d := range rule.Declarations {
			important := ""
			if d.Important {
				important = " !important"
			}
			if d.Parsed == nil {
				fmt.Fprintf(w, "  %s: %s%s  (resolved per node)\n", d.Property, d.Value, important)
				continue
			}
			fmt.Fprintf(w, "  %s: %s%s  => %# v\n", d.Property, d.Value, important, pretty.Formatter(d.Parsed))
		}
	}
}
