package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/joss/pairkit/internal/domain"
	"github.com/joss/pairkit/internal/tool"
)

// Renderer turns pairkit values into text. Pretty output is colored and
// aligned; plain output is one stable line per entry for scripts.
type Renderer struct {
	pretty bool
}

// New creates a renderer.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

func (r *Renderer) title(sb *strings.Builder, s string, width int) {
	if !r.pretty {
		return
	}
	sb.WriteString(color.CyanString(s) + "\n")
	sb.WriteString(strings.Repeat("─", width) + "\n")
}

// Files formats candidate context files.
func (r *Renderer) Files(files []domain.FileReference) string {
	if len(files) == 0 {
		return "No context files found"
	}

	var sb strings.Builder
	r.title(&sb, fmt.Sprintf("Context Files (%d)", len(files)), 60)
	for _, f := range files {
		if r.pretty {
			fmt.Fprintf(&sb, "  %s %s\n", f.RelativePath, color.HiBlackString(f.FileName))
		} else {
			fmt.Fprintf(&sb, "%s\t%s\n", f.RelativePath, f.URL)
		}
	}
	return sb.String()
}

// Folders formats discovered workspace folders.
func (r *Renderer) Folders(folders []domain.WorkspaceFolder) string {
	if len(folders) == 0 {
		return "No workspace folders found"
	}

	var sb strings.Builder
	r.title(&sb, "Workspace Folders", 60)
	for _, f := range folders {
		if r.pretty {
			fmt.Fprintf(&sb, "  %-24s %s\n", color.YellowString(f.Name), color.HiBlackString(f.URI))
		} else {
			fmt.Fprintf(&sb, "%s\t%s\n", f.Name, f.URI)
		}
	}
	return sb.String()
}

// Records formats ledger records, oldest first.
func (r *Renderer) Records(recs []domain.FileEditRecord) string {
	if len(recs) == 0 {
		return "No recorded edits"
	}

	var sb strings.Builder
	r.title(&sb, fmt.Sprintf("Edit Ledger (%d)", len(recs)), 60)
	for _, rec := range recs {
		ts := rec.CreatedAt.Format("2006-01-02 15:04:05")
		file := displayPath(rec.FileURL)
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s %-22s %s\n",
				color.HiBlackString("#%d", rec.Seq),
				color.HiBlackString(ts),
				color.MagentaString(rec.ToolName),
				file)
			if rec.TurnID != "" {
				fmt.Fprintf(&sb, "    └─ turn %s\n", rec.TurnID)
			}
		} else {
			fmt.Fprintf(&sb, "%d\t%s\t%s\t%s\n", rec.Seq, ts, rec.ToolName, file)
		}
	}
	return sb.String()
}

// Undone formats the outcome of an undo.
func (r *Renderer) Undone(recs []domain.FileEditRecord, err error) string {
	var sb strings.Builder
	for _, rec := range recs {
		status := "undone"
		if r.pretty {
			status = color.GreenString("✓")
		}
		fmt.Fprintf(&sb, "%s %s (%s)\n", status, displayPath(rec.FileURL), rec.ToolName)
	}
	if err != nil {
		if r.pretty {
			fmt.Fprintf(&sb, "%s %v\n", color.RedString("✗"), err)
		} else {
			fmt.Fprintf(&sb, "error: %v\n", err)
		}
	}
	if sb.Len() == 0 {
		return "Nothing to undo"
	}
	return sb.String()
}

// Result formats a tool outcome.
func (r *Renderer) Result(res domain.ToolInvocationResult, elapsed time.Duration) string {
	if !r.pretty {
		return fmt.Sprintf("%s\t%s\t%s\n", res.ToolCallID, res.Status, res.Message)
	}
	icon := StatusIcon(res.Status)
	switch res.Status {
	case domain.ToolStatusCompleted:
		icon = color.GreenString(icon)
	case domain.ToolStatusError:
		icon = color.RedString(icon)
	default:
		icon = color.YellowString(icon)
	}
	return fmt.Sprintf("%s %s %s\n", icon, res.Message, color.HiBlackString("(%s)", FormatDuration(elapsed)))
}

// Tools formats the registered tools in registration order.
func (r *Renderer) Tools(tools []domain.Tool) string {
	var sb strings.Builder
	r.title(&sb, "Client Tools", 60)
	for _, t := range tools {
		desc := Truncate(t.Description, 70)
		if r.pretty {
			fmt.Fprintf(&sb, "  %-24s %s\n", color.YellowString(t.Name), desc)
		} else {
			fmt.Fprintf(&sb, "%s\t%s\n", t.Name, desc)
		}
	}
	return sb.String()
}

// Rounds formats the agent rounds of one turn.
func (r *Renderer) Rounds(rounds []domain.AgentRound) string {
	if len(rounds) == 0 {
		return "No agent rounds"
	}

	var sb strings.Builder
	for _, round := range rounds {
		fmt.Fprintf(&sb, "round %d: %s\n", round.RoundID, Truncate(round.Reply, 70))
		for _, tc := range round.ToolCalls {
			fmt.Fprintf(&sb, "    └─ %s %s %s\n", StatusIcon(tc.Status), tc.Name, tc.ID)
		}
	}
	return sb.String()
}

// Status formats the chat mode and effective model.
func (r *Renderer) Status(mode string, model domain.LLMModel, ok bool) string {
	name := "(none)"
	if ok {
		name = model.ModelName
		if model.ModelFamily != "" && model.ModelFamily != model.ModelName {
			name += " [" + model.ModelFamily + "]"
		}
	}
	if !r.pretty {
		return fmt.Sprintf("mode=%s model=%s\n", mode, name)
	}

	var sb strings.Builder
	r.title(&sb, "pairkit", 40)
	fmt.Fprintf(&sb, "  Mode:  %s\n", color.GreenString(mode))
	fmt.Fprintf(&sb, "  Model: %s\n", name)
	return sb.String()
}

func displayPath(fileURL string) string {
	return tool.PathFromURL(fileURL)
}

// FormatDuration formats a duration for humans.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
