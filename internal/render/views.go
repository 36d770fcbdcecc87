package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/session"
	"github.com/Pusher91/truderwatch/internal/state"
)

func (r *Renderer) Scans(items []domain.ScanSummary, selected string) string {
	if len(items) == 0 {
		return r.dim.Render("no scans")
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		mark := ""
		if it.ID == selected {
			mark = "*"
		}
		rows = append(rows, []string{
			mark,
			it.ID,
			string(it.DisplayStatus()),
			ago(it.StartedAt),
			strconv.Itoa(it.TargetsCount),
			count(it.TotalFindings),
			count(it.TotalErrors),
			strings.Join(it.Tags, ","),
		})
	}
	return r.table(
		[]string{"", "ID", "STATUS", "STARTED", "TARGETS", "FINDINGS", "ERRORS", "TAGS"},
		rows,
		func(row, col int) lipgloss.Style {
			if col == 2 {
				return r.scanStatusStyle(items[row].DisplayStatus())
			}
			if items[row].ID == selected {
				return r.accent
			}
			return r.re.NewStyle()
		},
	)
}

func (r *Renderer) scanStatusStyle(s domain.ScanStatus) lipgloss.Style {
	switch s {
	case domain.ScanStatusRunning:
		return r.ok
	case domain.ScanStatusPaused:
		return r.warn
	case domain.ScanStatusError:
		return r.bad
	}
	return r.dim
}

// Findings draws the visible rows, then the count and pager lines and any
// filter parse warnings.
func (r *Renderer) Findings(v findings.View) string {
	var b strings.Builder

	if len(v.Rows) == 0 {
		msg := "no findings"
		if v.PageTotal > 0 {
			msg = "no findings match the current filters"
		}
		b.WriteString(r.dim.Render(msg))
	} else {
		urlWidth := max(r.width-40, 20)
		rows := make([][]string, 0, len(v.Rows))
		for _, f := range v.Rows {
			soft := ""
			if f.Soft404Likely {
				soft = "soft-404?"
			}
			rows = append(rows, []string{
				strconv.Itoa(f.Status),
				size(f.Length),
				truncate(f.Location(), urlWidth),
				soft,
			})
		}
		b.WriteString(r.table(
			[]string{"STATUS", "LENGTH", "URL", ""},
			rows,
			func(row, col int) lipgloss.Style {
				switch col {
				case 0:
					return r.statusStyle(v.Rows[row].Status)
				case 3:
					return r.dim
				}
				return r.re.NewStyle()
			},
		))
	}
	b.WriteByte('\n')

	b.WriteString(r.dim.Render(fmt.Sprintf("%s  shown %d/%d  %s", v.CountText, v.Shown, v.PageTotal, v.PagerText)))
	if len(v.KnownStatuses) > 0 {
		codes := make([]string, 0, len(v.KnownStatuses))
		for _, c := range v.KnownStatuses {
			codes = append(codes, r.statusStyle(c).Render(strconv.Itoa(c)))
		}
		b.WriteString("\n" + r.dim.Render("statuses: ") + strings.Join(codes, " "))
	}
	for _, bad := range []string{v.StatusBad, v.LengthBad} {
		if bad != "" {
			b.WriteString("\n" + r.warn.Render(bad))
		}
	}
	return b.String()
}

func (r *Renderer) Servers(v session.ServersView) string {
	var b strings.Builder
	b.WriteString(r.accent.Render(fmt.Sprintf("Servers (%d)", v.Count)))
	b.WriteString(r.dim.Render(fmt.Sprintf("  running %d  queued %d  paused %d  done %d",
		v.Badges.Running, v.Badges.Queued, v.Badges.Paused, v.Badges.Done)))
	if v.Overall.Total > 0 {
		b.WriteString(r.dim.Render(fmt.Sprintf("  overall %s (%s/%s) %d req/s",
			pct(v.Overall.Percent), count(v.Overall.Checked), count(v.Overall.Total), v.Overall.Rate)))
	}
	b.WriteByte('\n')

	if len(v.Rows) == 0 {
		b.WriteString(r.dim.Render("no servers"))
		return b.String()
	}

	rows := make([][]string, 0, len(v.Rows))
	for _, sp := range v.Rows {
		rows = append(rows, []string{
			truncate(sp.Target, max(r.width-70, 20)),
			string(sp.Status),
			pct(sp.Percent),
			count(sp.Checked) + "/" + count(sp.Total),
			strconv.Itoa(sp.Rate),
			count(sp.Findings),
			count(sp.Errors),
		})
	}
	b.WriteString(r.table(
		[]string{"TARGET", "STATUS", "PROGRESS", "CHECKED", "REQ/S", "FINDINGS", "ERRORS"},
		rows,
		func(row, col int) lipgloss.Style {
			sp := v.Rows[row]
			switch {
			case col == 0 && sp.Target == v.Selected:
				return r.accent
			case col == 6 && sp.Errors > 0:
				return r.bad
			}
			return r.re.NewStyle()
		},
	))
	return b.String()
}

func (r *Renderer) RequestLog(v session.RequestLogView) string {
	title := "Errors"
	if v.Verbose {
		title = "Requests"
	}
	if v.Selected != "" {
		title += " - " + v.Selected
	}

	var b strings.Builder
	b.WriteString(r.accent.Render(title))
	b.WriteByte('\n')
	if len(v.Rows) == 0 {
		b.WriteString(r.dim.Render("nothing logged yet"))
		return b.String()
	}

	rows := make([][]string, 0, len(v.Rows))
	for _, p := range v.Rows {
		loc := p.URL
		if loc == "" {
			loc = p.Target + p.Path
		}
		status := strconv.Itoa(p.Status)
		if p.Status == 0 {
			status = "ERR"
		}
		rows = append(rows, []string{
			p.At,
			status,
			size(p.Length),
			strconv.FormatInt(p.DurationMs, 10) + "ms",
			truncate(loc, max(r.width-70, 20)),
			p.Error,
		})
	}
	b.WriteString(r.table(
		[]string{"AT", "STATUS", "LENGTH", "TOOK", "URL", "ERROR"},
		rows,
		func(row, col int) lipgloss.Style {
			if col == 1 || col == 5 {
				return r.statusStyle(v.Rows[row].Status)
			}
			return r.re.NewStyle()
		},
	))
	return b.String()
}

// StatusLine is the one-line header: selected scan, connection text and
// net info.
func (r *Renderer) StatusLine(st *state.State) string {
	scan := st.ScanID
	if scan == "" {
		scan = "no scan selected"
	}
	parts := []string{r.accent.Render(scan)}

	switch st.Conn {
	case state.ConnConnected, state.ConnScanComplete:
		parts = append(parts, r.ok.Render(st.Conn))
	case state.ConnDisconnected:
		parts = append(parts, r.bad.Render(st.Conn))
	default:
		parts = append(parts, r.dim.Render(st.Conn))
	}

	if ni := st.NetInfo; ni != nil {
		ip := ni.OutboundLocalIPv4
		if ip == "" && len(ni.LocalIPv4s) > 0 {
			ip = ni.LocalIPv4s[0]
		}
		if ip != "" {
			parts = append(parts, r.dim.Render("local "+ip))
		}
		if ni.PublicIPv4 != "" {
			parts = append(parts, r.dim.Render("public "+ni.PublicIPv4))
		}
	}
	return strings.Join(parts, "  ")
}

// NetInfo lists every address the remote reported.
func (r *Renderer) NetInfo(ni domain.NetInfo) string {
	rows := [][]string{}
	for _, ip := range ni.LocalIPv4s {
		rows = append(rows, []string{"local", ip})
	}
	if ni.OutboundLocalIPv4 != "" {
		rows = append(rows, []string{"outbound", ni.OutboundLocalIPv4})
	}
	switch {
	case ni.PublicIPv4 != "":
		rows = append(rows, []string{"public", ni.PublicIPv4})
	case !ni.PublicIPv4Enabled:
		rows = append(rows, []string{"public", "disabled"})
	}
	return r.table([]string{"KIND", "ADDRESS"}, rows, nil)
}

// Dashboard stacks every panel for one snapshot.
func (r *Renderer) Dashboard(st *state.State, q session.ServerQuery, logRows int) string {
	return strings.Join([]string{
		r.StatusLine(st),
		r.Servers(session.BuildServersView(st, q)),
		r.Findings(findings.BuildView(st)),
		r.RequestLog(session.BuildRequestLogView(st, logRows)),
	}, "\n\n")
}

// ProbeLine is one request log record for line-oriented output.
func (r *Renderer) ProbeLine(p domain.Probe) string {
	loc := p.URL
	if loc == "" {
		loc = p.Target + p.Path
	}
	status := strconv.Itoa(p.Status)
	if p.Status == 0 {
		status = "ERR"
	}
	line := r.dim.Render(p.At) + " " + r.statusStyle(p.Status).Render(status) + " " +
		size(p.Length) + " " + strconv.FormatInt(p.DurationMs, 10) + "ms " + loc
	if p.Error != "" {
		line += " " + r.bad.Render(p.Error)
	}
	return line
}
