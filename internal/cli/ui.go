package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/segmenter/pkg/pipeline"
)

// stdout receives all command output. Tests swap it for a buffer.
var stdout io.Writer = os.Stdout

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // segments, selection
	colorGreen  = lipgloss.Color("35")  // cached results, success
	colorYellow = lipgloss.Color("220") // dropped clusters, warnings
	colorRed    = lipgloss.Color("167")
	colorBlue   = lipgloss.Color("75") // suggested commands
	colorWhite  = lipgloss.Color("255")
	colorGray   = lipgloss.Color("245")
	colorDim    = lipgloss.Color("240")
)

// deviceColors cycles through segment indices in tables and summaries.
var deviceColors = []lipgloss.Color{"75", "114", "179", "176", "80", "210"}

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleTitle for view headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for device labels and other emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleDim for secondary text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleNumber for counts.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	styleValue   = lipgloss.NewStyle().Foreground(colorWhite)
	styleWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCached   = lipgloss.NewStyle().Foreground(colorGreen)
	styleComputed = lipgloss.NewStyle().Foreground(colorGray)
)

// deviceStyle returns the color of the i-th segment.
func deviceStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(deviceColors[i%len(deviceColors)])
}

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
	iconSegment = "▣"

	labelCached   = "cached"
	labelComputed = "computed"
)

// =============================================================================
// Status Lines
// =============================================================================

func printSuccess(format string, args ...any) {
	printIcon(styleIconSuccess.Render(iconSuccess), fmt.Sprintf(format, args...))
}

func printError(format string, args ...any) {
	printIcon(styleIconError.Render(iconError), fmt.Sprintf(format, args...))
}

func printWarning(format string, args ...any) {
	printIcon(styleIconWarning.Render(iconWarning), styleWarning.Render(fmt.Sprintf(format, args...)))
}

func printInfo(format string, args ...any) {
	printIcon(styleIconInfo.Render(iconInfo), fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func printDetail(format string, args ...any) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

func printIcon(icon, msg string) {
	fmt.Fprintln(stdout, icon+" "+msg)
}

// printFile reports a written file.
func printFile(path string) {
	fmt.Fprintln(stdout, "  "+StyleDim.Render(iconArrow)+" "+styleValue.Render(path))
}

// printKeyValue prints a label padded to a fixed column and its value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Fprintln(stdout, keyStyle.Render(key)+" "+styleValue.Render(value))
}

// =============================================================================
// Segment Output
// =============================================================================

// printSegmentSummary reports how much of the graph was offloaded, with one
// colored marker per segment. minSize is named in the hint when nothing formed.
func printSegmentSummary(result *pipeline.Result, minSize int) {
	stats := result.Stats
	if len(result.Segments) == 0 {
		printWarning("No segments formed")
		printDetail("Check the candidate ops in [policy] and the minimum segment size (%d)", minSize)
		return
	}

	printSuccess("Found %s covering %s of %d nodes (%s)",
		plural(len(result.Segments), "segment"),
		StyleNumber.Render(fmt.Sprint(stats.CoveredCount)), stats.NodeCount,
		coverage(stats.CoveredCount, stats.NodeCount))

	var b strings.Builder
	b.WriteString("  ")
	for i, s := range result.Segments {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(deviceStyle(i).Render(iconSegment))
		b.WriteString(StyleDim.Render(fmt.Sprintf(" %d", len(s.Nodes))))
	}
	fmt.Fprintln(stdout, b.String())
}

// printRunStats prints graph size, stage time and cache status on one line.
func printRunStats(stats pipeline.Stats, elapsed time.Duration, cached bool) {
	parts := []string{
		plural(stats.NodeCount, "node"),
		plural(stats.EdgeCount, "edge"),
	}
	if elapsed > 0 {
		parts = append(parts, formatElapsed(elapsed))
	}

	status := styleComputed.Render(labelComputed)
	if cached {
		status = styleCached.Render(labelCached)
	}

	dimmed := make([]string, len(parts))
	for i, p := range parts {
		dimmed[i] = StyleDim.Render(p)
	}
	fmt.Fprintln(stdout, "  "+strings.Join(append(dimmed, status), StyleDim.Render(" · ")))
}

// printNextStep suggests a follow-up command.
func printNextStep(description, cmd string) {
	fmt.Fprintln(stdout, StyleDim.Render(description+":")+" "+styleCommand.Render(cmd))
}

func printNewline() {
	fmt.Fprintln(stdout)
}

// =============================================================================
// Formatting
// =============================================================================

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// coverage formats part/total as a whole percentage.
func coverage(part, total int) string {
	if total == 0 {
		return "0%"
	}
	return fmt.Sprintf("%d%%", part*100/total)
}

func formatElapsed(d time.Duration) string {
	if d < time.Millisecond {
		return "<1ms"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
