package pterm

import (
	"fmt"
	"io"
	"os"

	"github.com/pterm/pterm"

	"github.com/kubiyabot/timeline/internal/output"
)

// PTermManager manages PTerm components with terminal awareness
type PTermManager struct {
	disabled bool
	out      io.Writer
}

// NewPTermManager creates a new PTerm manager writing to out. Styling is
// turned off in CI, when out is not a terminal, or with TIMELINE_PTERM_ENABLED=false.
func NewPTermManager(out io.Writer) *PTermManager {
	if out == nil {
		out = os.Stderr
	}
	pm := &PTermManager{out: out}

	if os.Getenv("TIMELINE_PTERM_ENABLED") == "false" {
		pm.disabled = true
		return pm
	}

	if !output.IsInteractiveWriter(out) {
		pterm.DisableColor()
		pterm.DisableStyling()
		pm.disabled = true
	}

	pm.applyTheme()

	return pm
}

// applyTheme configures PTerm prefix colours
func (pm *PTermManager) applyTheme() {
	pterm.Success = *pterm.Success.WithMessageStyle(pterm.NewStyle(pterm.FgLightGreen))
	pterm.Error = *pterm.Error.WithMessageStyle(pterm.NewStyle(pterm.FgLightRed))
	pterm.Info = *pterm.Info.WithMessageStyle(pterm.NewStyle(pterm.FgLightCyan))
	pterm.Warning = *pterm.Warning.WithMessageStyle(pterm.NewStyle(pterm.FgYellow))
}

// Logger returns a logger writing through this manager
func (pm *PTermManager) Logger(debug bool) *Logger {
	return NewLogger(pm.out, pm.disabled, debug)
}

// Table creates a configured table printer
func (pm *PTermManager) Table() *pterm.TablePrinter {
	if pm.disabled {
		return pterm.DefaultTable.WithHasHeader(true)
	}

	return pterm.DefaultTable.
		WithHasHeader(true).
		WithHeaderStyle(pterm.NewStyle(pterm.FgCyan, pterm.Bold)).
		WithBoxed(false)
}

// RenderTable writes rows (the first being the header) to the manager's output
func (pm *PTermManager) RenderTable(rows [][]string) error {
	out, err := pm.Table().WithData(rows).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(pm.out, out)
	return err
}

// IsDisabled returns whether PTerm styling is disabled
func (pm *PTermManager) IsDisabled() bool {
	return pm.disabled
}
