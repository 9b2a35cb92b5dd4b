package cli

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/segmenter/pkg/dag"
	"github.com/matzehuels/segmenter/pkg/segment"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
	tableHeaderStyle  = lipgloss.NewStyle().Foreground(colorGray).Bold(true)
)

// maxListedNodes caps the node names shown in a table cell.
const maxListedNodes = 6

// =============================================================================
// Segment table
// =============================================================================

// segmentTable renders segments as a bordered table.
func segmentTable(segs []segment.Segment) string {
	return segmentRows(segs, 0, len(segs), -1).Render()
}

func segmentRows(segs []segment.Segment, from, to, cursor int) *table.Table {
	rows := make([][]string, 0, to-from)
	for i := from; i < to; i++ {
		s := segs[i]
		mark := "  "
		if i == cursor {
			mark = "▸ "
		}
		affinity := s.Affinity
		if affinity == "" {
			affinity = "—"
		}
		rows = append(rows, []string{
			mark + s.Device,
			strconv.Itoa(len(s.Nodes)),
			strconv.Itoa(len(s.Entering)),
			strconv.Itoa(len(s.Exiting)),
			affinity,
			abbreviate(s.Nodes, maxListedNodes),
		})
	}

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("Device", "Nodes", "In", "Out", "Affinity", "Members").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return tableHeaderStyle
			}
			base := lipgloss.NewStyle()
			switch col {
			case 0:
				base = deviceStyle(from + row)
			case 1, 2, 3:
				base = base.Foreground(colorCyan)
			case 4, 5:
				base = base.Foreground(colorGray)
			}
			if from+row == cursor {
				return base.Bold(true)
			}
			return base
		})
}

// abbreviate joins up to n ids and summarizes the rest.
func abbreviate(ids []string, n int) string {
	if len(ids) <= n {
		return strings.Join(ids, ", ")
	}
	return fmt.Sprintf("%s, … (+%d)", strings.Join(ids[:n], ", "), len(ids)-n)
}

// =============================================================================
// SegmentBrowserModel - Interactive segment inspection
// =============================================================================

// SegmentBrowserModel is the bubbletea model for browsing segments. The
// list shows every segment; enter toggles the member and boundary detail
// of the one under the cursor.
type SegmentBrowserModel struct {
	Segments []segment.Segment
	Cursor   int
	Height   int
	Offset   int
	Detail   bool
}

// NewSegmentBrowserModel creates a new browser model.
func NewSegmentBrowserModel(segs []segment.Segment) SegmentBrowserModel {
	return SegmentBrowserModel{Segments: segs, Height: 10}
}

func (m SegmentBrowserModel) Init() tea.Cmd {
	return nil
}

func (m SegmentBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Segments)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "enter", " ":
			m.Detail = !m.Detail
		}
	case tea.WindowSizeMsg:
		m.Height = max((msg.Height-8)/2, 3)
	}
	return m, nil
}

func (m SegmentBrowserModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Segments"))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ details  q quit"))
	b.WriteString("\n\n")

	if len(m.Segments) == 0 {
		b.WriteString(listDimStyle.Render("  no segments"))
		return b.String()
	}

	end := min(m.Offset+m.Height, len(m.Segments))
	b.WriteString(segmentRows(m.Segments, m.Offset, end, m.Cursor).Render())
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Segments))))

	if m.Detail {
		b.WriteString("\n\n")
		b.WriteString(segmentDetail(m.Segments[m.Cursor]))
	}
	return b.String()
}

func segmentDetail(s segment.Segment) string {
	var b strings.Builder
	b.WriteString(listSelectedStyle.Render(s.Device))
	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n", listDimStyle.Render("members: "), strings.Join(s.Nodes, ", "))
	fmt.Fprintf(&b, "  %s %s\n", listDimStyle.Render("entering:"), formatEdges(s.Entering))
	fmt.Fprintf(&b, "  %s %s\n", listDimStyle.Render("exiting: "), formatEdges(s.Exiting))
	return b.String()
}

func formatEdges(edges []dag.Edge) string {
	if len(edges) == 0 {
		return "—"
	}
	parts := make([]string, len(edges))
	for i, e := range edges {
		parts[i] = fmt.Sprintf("%s:%d→%s:%d", e.From, e.Port, e.To, e.Slot)
	}
	return strings.Join(parts, ", ")
}
