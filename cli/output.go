package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/grovetools/finder/internal/history"
	"github.com/grovetools/finder/pkg/models"
)

// PrintJSON writes v as indented JSON.
func PrintJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// table renders left-aligned columns separated by two spaces. Widths are
// measured on the unstyled cells.
type table struct {
	header []string
	rows   [][]string
	styles []lipgloss.Style
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) render(w io.Writer, theme *Theme) {
	widths := make([]int, len(t.header))
	for i, h := range t.header {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, cell := range row {
			if n := lipgloss.Width(cell); n > widths[i] {
				widths[i] = n
			}
		}
	}

	line := func(cells []string, style func(i int) lipgloss.Style) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
			if i == len(cells)-1 {
				pad = ""
			}
			parts[i] = style(i).Render(cell) + pad
		}
		fmt.Fprintln(w, strings.Join(parts, "  "))
	}

	line(t.header, func(int) lipgloss.Style { return theme.Bold })
	for _, row := range t.rows {
		line(row, func(i int) lipgloss.Style {
			if i < len(t.styles) {
				return t.styles[i]
			}
			return lipgloss.NewStyle()
		})
	}
}

// RenderScenarios prints the stored scenarios with their indices.
func RenderScenarios(w io.Writer, list []models.SearchScenario) {
	th := DefaultTheme
	if len(list) == 0 {
		fmt.Fprintln(w, th.Muted.Render("No scenarios saved. Add one with 'finder scenarios add'."))
		return
	}
	tbl := &table{
		header: []string{"#", "NAME", "LEVEL", "TARGET", "EXT", "PATH"},
		styles: []lipgloss.Style{th.Index, th.Bold, lipgloss.NewStyle(), lipgloss.NewStyle(), th.Muted, th.Path},
	}
	for i, s := range list {
		ext := s.FileExtensions
		if ext == "" {
			ext = "*"
		}
		tbl.add(strconv.Itoa(i), s.Name, string(s.Level), string(s.Target), ext, s.Path)
	}
	tbl.render(w, th)
}

// RenderResults prints search results, directories first in the theme's
// directory style, followed by a summary line.
func RenderResults(w io.Writer, results []models.SearchResult, elapsed time.Duration) {
	th := DefaultTheme
	if len(results) == 0 {
		fmt.Fprintln(w, th.Muted.Render("No matches."))
		return
	}
	tbl := &table{
		header: []string{"NAME", "SIZE", "MODIFIED", "PATH"},
		styles: []lipgloss.Style{lipgloss.NewStyle(), th.Muted, th.Muted, th.Path},
	}
	for _, r := range results {
		name, size := r.Name, humanize.IBytes(r.Size)
		if r.IsDir {
			name = th.Dir.Render(name + "/")
			size = "-"
		}
		tbl.add(name, size, modifiedAgo(r.ModifiedAt), r.Path)
	}
	tbl.render(w, th)
	fmt.Fprintln(w, th.Muted.Render(fmt.Sprintf("%s in %s",
		humanize.Comma(int64(len(results)))+" "+plural(len(results), "match", "matches"),
		elapsed.Round(time.Millisecond))))
}

// RenderHistory prints recorded searches, newest first.
func RenderHistory(w io.Writer, entries []history.Entry) {
	th := DefaultTheme
	if len(entries) == 0 {
		fmt.Fprintln(w, th.Muted.Render("No searches recorded."))
		return
	}
	statusStyle := map[history.Status]lipgloss.Style{
		history.StatusOK:        th.Success,
		history.StatusTimeout:   th.Warning,
		history.StatusCancelled: th.Warning,
		history.StatusError:     th.Error,
	}
	tbl := &table{
		header: []string{"WHEN", "TERM", "SCENARIO", "RESULTS", "TOOK", "STATUS"},
		styles: []lipgloss.Style{th.Muted, th.Bold, lipgloss.NewStyle(), lipgloss.NewStyle(), th.Muted},
	}
	for _, e := range entries {
		status := string(e.Status)
		if style, ok := statusStyle[e.Status]; ok {
			status = style.Render(status)
		}
		scenario := e.ScenarioName
		if scenario == "" {
			scenario = e.ScenarioPath
		}
		tbl.add(
			humanize.Time(e.CreatedAt),
			strconv.Quote(e.Term),
			scenario,
			humanize.Comma(int64(e.ResultCount)),
			(time.Duration(e.DurationMs) * time.Millisecond).String(),
			status,
		)
	}
	tbl.render(w, th)
}

func modifiedAgo(s string) string {
	t, err := time.ParseInLocation(models.ModifiedAtLayout, s, time.Local)
	if err != nil {
		return s
	}
	return humanize.Time(t)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
