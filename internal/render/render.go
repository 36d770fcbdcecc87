// Package render draws the dashboard views as terminal text.
package render

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

const defaultWidth = 120

// Renderer styles output for one writer. Colour and width follow the
// writer: a terminal gets both, anything else plain text at defaultWidth.
type Renderer struct {
	re    *lipgloss.Renderer
	width int

	header lipgloss.Style
	dim    lipgloss.Style
	warn   lipgloss.Style
	ok     lipgloss.Style
	info   lipgloss.Style
	bad    lipgloss.Style
	accent lipgloss.Style
}

func New(w io.Writer) *Renderer {
	width := defaultWidth
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
			width = cols
		}
	}
	return NewWidth(w, width)
}

func NewWidth(w io.Writer, width int) *Renderer {
	re := lipgloss.NewRenderer(w)
	if width <= 0 {
		width = defaultWidth
	}
	return &Renderer{
		re:     re,
		width:  width,
		header: re.NewStyle().Bold(true).Foreground(lipgloss.Color("62")).Padding(0, 1),
		dim:    re.NewStyle().Foreground(lipgloss.Color("245")),
		warn:   re.NewStyle().Foreground(lipgloss.Color("11")).Bold(true),
		ok:     re.NewStyle().Foreground(lipgloss.Color("10")),
		info:   re.NewStyle().Foreground(lipgloss.Color("39")),
		bad:    re.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		accent: re.NewStyle().Foreground(lipgloss.Color("105")).Bold(true),
	}
}

func (r *Renderer) Width() int { return r.width }

func (r *Renderer) table(headers []string, rows [][]string, style func(row, col int) lipgloss.Style) string {
	cell := r.re.NewStyle().Padding(0, 1)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(r.dim).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return r.header
			}
			if style != nil && row >= 0 && row < len(rows) {
				return style(row, col).Padding(0, 1)
			}
			return cell
		})
	if r.width > 0 {
		t = t.Width(r.width)
	}
	return t.String()
}

// statusStyle colours an HTTP status by class.
func (r *Renderer) statusStyle(code int) lipgloss.Style {
	switch {
	case code >= 500 || code == 0:
		return r.bad
	case code >= 400:
		return r.warn
	case code >= 300:
		return r.info
	case code >= 200:
		return r.ok
	}
	return r.dim
}

// truncate shortens s to max display cells with a trailing ellipsis.
func truncate(s string, max int) string {
	if max <= 0 || lipgloss.Width(s) <= max {
		return s
	}
	rs := []rune(s)
	for len(rs) > 0 && lipgloss.Width(string(rs))+1 > max {
		rs = rs[:len(rs)-1]
	}
	return string(rs) + "…"
}

func count(n int64) string { return humanize.Comma(n) }

func size(n int64) string {
	if n < 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}

// ago renders an RFC 3339 stamp relative to now, or the raw text when it
// does not parse.
func ago(stamp string) string {
	stamp = strings.TrimSpace(stamp)
	if stamp == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339Nano, stamp)
	if err != nil {
		return stamp
	}
	return humanize.Time(t)
}

func pct(p int) string { return strconv.Itoa(p) + "%" }
