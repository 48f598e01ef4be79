package pitui

import (
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/pkg/errors"

	"github.com/vito/pitui/pkg/css"
)

// LoadStylesheet parses src and installs it under name. Stylesheets apply
// in the order they were first loaded; reloading a name replaces it in
// place. On a parse error the previously loaded version of name stays
// active and the css.ParseErrors are returned.
//
// Must be called from the UI goroutine or before Start.
func (t *TUI) LoadStylesheet(name, src string) error {
	sheet, err := css.Parse(name, src)
	if err != nil {
		slog.Warn("stylesheet rejected", "name", name, "errors", len(css.Errors(err)))
		return err
	}
	if _, ok := t.sheets[name]; !ok {
		t.sheetNames = append(t.sheetNames, name)
	}
	t.sheets[name] = sheet
	t.applyStylesheets()
	return nil
}

// LoadStylesheetFile reads and loads a stylesheet, named by its path.
func (t *TUI) LoadStylesheetFile(path string) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read stylesheet")
	}
	return t.LoadStylesheet(path, string(src))
}

// RemoveStylesheet unloads the stylesheet installed under name.
func (t *TUI) RemoveStylesheet(name string) {
	if _, ok := t.sheets[name]; !ok {
		return
	}
	delete(t.sheets, name)
	for i, n := range t.sheetNames {
		if n == name {
			t.sheetNames = append(t.sheetNames[:i], t.sheetNames[i+1:]...)
			break
		}
	}
	t.applyStylesheets()
}

// Stylesheets returns the names of the loaded stylesheets in cascade
// order.
func (t *TUI) Stylesheets() []string {
	return append([]string(nil), t.sheetNames...)
}

// applyStylesheets hands the combined stylesheets to the engine unless
// nothing changed.
func (t *TUI) applyStylesheets() {
	combined := css.NewStylesheet(strings.Join(t.sheetNames, ","))
	for _, name := range t.sheetNames {
		combined.Append(t.sheets[name])
	}
	if cur := t.engine.Stylesheet(); cur != nil && cur.Fingerprint == combined.Fingerprint {
		return
	}
	t.engine.SetStylesheet(combined)
}

// SetVariables defines $variables visible to every stylesheet, overriding
// their top-level definitions.
func (t *TUI) SetVariables(vars map[string]css.Value) {
	t.engine.SetGlobals(vars)
}

// ParseVariables parses variable values given as source text, such as
// those from a config file, keyed by name without the '$'.
func ParseVariables(vars map[string]string) (map[string]css.Value, error) {
	var src strings.Builder
	for _, name := range slices.Sorted(maps.Keys(vars)) {
		src.WriteString("$" + name + ": " + vars[name] + ";\n")
	}
	sheet, err := css.Parse("<variables>", src.String())
	if err != nil {
		return nil, err
	}
	return sheet.Variables, nil
}
