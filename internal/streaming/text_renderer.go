package streaming

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/kubiyabot/timeline/internal/timeline"
)

const (
	maxTextLen   = 300
	maxValueLen  = 200
	maxToolName  = 30
	valueIndent  = "  │ "
	summaryWidth = 30
)

// TextRenderer renders timeline updates as formatted text with a colour per
// message kind
type TextRenderer struct {
	out       io.Writer
	verbose   bool
	startTime time.Time
	isTTY     bool
	markdown  *glamour.TermRenderer
	mu        sync.Mutex

	bold     *color.Color
	dim      *color.Color
	red      *color.Color
	green    *color.Color
	yellow   *color.Color
	blue     *color.Color
	cyan     *color.Color
	cyanBold *color.Color
}

// NewTextRenderer creates a new TextRenderer
func NewTextRenderer(out io.Writer, verbose bool) *TextRenderer {
	// Detect if output is a TTY for color support
	isTTY := false
	if f, ok := out.(*os.File); ok {
		isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	r := &TextRenderer{
		out:       out,
		verbose:   verbose,
		startTime: timeNow(),
		isTTY:     isTTY,
		bold:      color.New(color.Bold),
		dim:       color.New(color.Faint),
		red:       color.New(color.FgRed),
		green:     color.New(color.FgGreen),
		yellow:    color.New(color.FgYellow),
		blue:      color.New(color.FgBlue),
		cyan:      color.New(color.FgCyan),
		cyanBold:  color.New(color.FgCyan, color.Bold),
	}

	for _, c := range []*color.Color{r.bold, r.dim, r.red, r.green, r.yellow, r.blue, r.cyan, r.cyanBold} {
		r.applyTTY(c)
	}

	return r
}

// RenderUpdate renders appended messages followed by attached tool results
func (r *TextRenderer) RenderUpdate(update timeline.Update) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, msg := range update.Appended {
		if err := r.renderMessage(msg); err != nil {
			return err
		}
	}
	for _, msg := range update.Updated {
		if err := r.renderToolResult(msg); err != nil {
			return err
		}
	}
	return nil
}

// Flush ensures all buffered output is written
func (r *TextRenderer) Flush() error {
	return nil
}

// Close cleans up resources
func (r *TextRenderer) Close() error {
	return r.Flush()
}

func (r *TextRenderer) renderMessage(msg timeline.DisplayMessage) error {
	switch msg.Kind {
	case timeline.MessageKindAssistant:
		return r.renderAssistant(msg)
	case timeline.MessageKindToolUse:
		return r.renderToolUse(msg)
	case timeline.MessageKindStatus:
		return r.renderStatus(msg)
	case timeline.MessageKindDebug:
		return r.renderDebug(msg)
	case timeline.MessageKindError:
		return r.renderError(msg)
	default:
		// Unknown kind - ignore silently
		return nil
	}
}

// EnableMarkdown renders assistant text as markdown wrapped at width columns
func (r *TextRenderer) EnableMarkdown(width int) error {
	style := "notty"
	if r.isTTY {
		style = "dark"
	}

	md, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("failed to create markdown renderer: %w", err)
	}

	r.mu.Lock()
	r.markdown = md
	r.mu.Unlock()
	return nil
}

func (r *TextRenderer) renderAssistant(msg timeline.DisplayMessage) error {
	content := msg.Text
	if !r.verbose {
		content = truncate(content, maxTextLen)
	}
	if r.markdown != nil {
		// Fall back to raw text if the markdown cannot be rendered
		if rendered, err := r.markdown.Render(content); err == nil {
			content = strings.Trim(rendered, "\n")
		}
	}

	header := fmt.Sprintf("\n💬 %s", r.bold.Sprint("Assistant:"))
	if _, err := fmt.Fprintln(r.out, header); err != nil {
		return err
	}
	_, err := fmt.Fprintln(r.out, content)
	return err
}

func (r *TextRenderer) renderToolUse(msg timeline.DisplayMessage) error {
	line := fmt.Sprintf("%s %s %s",
		r.cyan.Sprint(getToolIcon(msg.ToolName)),
		r.cyanBold.Sprint(cleanToolName(msg.ToolName)),
		r.dim.Sprint("running..."))

	if _, err := fmt.Fprintln(r.out, line); err != nil {
		return err
	}

	if r.verbose && msg.ToolInput != nil {
		r.renderValue("Input", msg.ToolInput)
	}
	return nil
}

func (r *TextRenderer) renderToolResult(msg timeline.DisplayMessage) error {
	line := fmt.Sprintf("%s %s %s",
		r.green.Sprint("✓"),
		r.cyan.Sprint(getToolIcon(msg.ToolName)),
		r.cyan.Sprint(cleanToolName(msg.ToolName)))

	if _, err := fmt.Fprintln(r.out, line); err != nil {
		return err
	}

	if msg.HasResult && msg.ToolResult != nil {
		r.renderValue("Result", msg.ToolResult)
	}
	return nil
}

func (r *TextRenderer) renderStatus(msg timeline.DisplayMessage) error {
	icon, c := "●", r.blue
	lower := strings.ToLower(msg.Text)
	switch {
	case strings.Contains(lower, "failed"):
		icon, c = "✗", r.red
	case strings.Contains(lower, "success"), strings.Contains(lower, "complete"):
		icon, c = "✓", r.green
	}

	if _, err := fmt.Fprintf(r.out, "%s %s\n", c.Sprint(icon), c.Sprint(msg.Text)); err != nil {
		return err
	}

	if c == r.green || c == r.red {
		elapsed := timeNow().Sub(r.startTime)
		_, err := fmt.Fprintln(r.out, r.dim.Sprintf("  finished in %.1fs", elapsed.Seconds()))
		return err
	}
	return nil
}

func (r *TextRenderer) renderDebug(msg timeline.DisplayMessage) error {
	_, err := fmt.Fprintf(r.out, "%s %s\n", r.yellow.Sprint("[debug]"), r.dim.Sprint(msg.Text))
	return err
}

func (r *TextRenderer) renderError(msg timeline.DisplayMessage) error {
	fmt.Fprintln(r.out)
	_, err := fmt.Fprintln(r.out, r.createBox("ERROR", msg.Text, r.red))
	return err
}

// renderValue prints a tool input or result as pretty JSON (or raw text when
// it is already a string)
func (r *TextRenderer) renderValue(label string, value any) {
	text := timeline.Stringify(value)
	if !r.verbose {
		text = truncate(text, maxValueLen)
	}

	fmt.Fprintln(r.out, r.dim.Sprintf("  ┌─ %s:", label))
	for _, line := range strings.Split(text, "\n") {
		fmt.Fprintf(r.out, "%s%s\n", r.dim.Sprint(valueIndent), line)
	}
	fmt.Fprintln(r.out, r.dim.Sprint("  └─"))
}

func (r *TextRenderer) createBox(title, content string, c *color.Color) string {
	width := len(title) + len(content) + 5
	if width < summaryWidth {
		width = summaryWidth
	}

	topBorder := "╭" + strings.Repeat("─", width) + "╮"
	bottomBorder := "╰" + strings.Repeat("─", width) + "╯"

	padding := width - len(title) - len(content) - 5
	if padding < 0 {
		padding = 0
	}
	innerContent := fmt.Sprintf("│ %s %s %s%s │",
		c.Sprint(title),
		r.dim.Sprint("•"),
		content,
		strings.Repeat(" ", padding))

	return fmt.Sprintf("%s\n%s\n%s",
		c.Sprint(topBorder),
		innerContent,
		c.Sprint(bottomBorder))
}

func (r *TextRenderer) applyTTY(c *color.Color) {
	if r.isTTY {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
}

func getToolIcon(toolName string) string {
	name := strings.ToLower(toolName)

	if strings.HasPrefix(name, "mcp__") {
		return "🔌"
	}

	switch {
	case strings.Contains(name, "bash"), strings.Contains(name, "shell"), strings.Contains(name, "terminal"):
		return "💻"
	case strings.Contains(name, "read"), strings.Contains(name, "file"):
		return "📄"
	case strings.Contains(name, "write"), strings.Contains(name, "edit"):
		return "✏️"
	case strings.Contains(name, "search"), strings.Contains(name, "grep"), strings.Contains(name, "find"):
		return "🔍"
	case strings.Contains(name, "web"), strings.Contains(name, "http"), strings.Contains(name, "api"):
		return "🌐"
	case strings.Contains(name, "skill"):
		return "🎓"
	default:
		return "🔧"
	}
}

func cleanToolName(toolName string) string {
	if toolName == "" {
		return "Tool"
	}

	// For MCP tools, keep server:action
	if strings.HasPrefix(toolName, "mcp__") {
		parts := strings.Split(strings.TrimPrefix(toolName, "mcp__"), "__")
		if len(parts) >= 2 {
			action := strings.ReplaceAll(strings.Join(parts[1:], "_"), "_", " ")
			return truncate(fmt.Sprintf("%s: %s", parts[0], action), maxToolName)
		}
	}

	return truncate(strings.ReplaceAll(toolName, "_", " "), maxToolName)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
