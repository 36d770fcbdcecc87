package session

import (
	"net"
	"sort"
	"strings"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/filter"
	"github.com/Pusher91/truderwatch/internal/state"
)

type SortKey string

const (
	SortHost     SortKey = "host"
	SortProgress SortKey = "progress"
	SortStatus   SortKey = "status"
	SortFindings SortKey = "findings"
	SortRecent   SortKey = "recent"
)

// ServerQuery selects and orders rows of the servers table. Status "error"
// matches any host with errors.
type ServerQuery struct {
	Text   string
	Status string
	Sort   SortKey
}

type Badges struct {
	Running int
	Queued  int
	Paused  int
	Done    int
}

// Overall aggregates running and completed hosts.
type Overall struct {
	Percent int
	Checked int64
	Total   int64
	Rate    int
}

type ServersView struct {
	Rows     []domain.ServerProgress
	Count    int
	Badges   Badges
	Overall  Overall
	Selected string
}

func BuildServersView(st *state.State, q ServerQuery) ServersView {
	v := ServersView{Count: len(st.Servers), Selected: st.SelectedTarget}

	text := strings.ToLower(strings.TrimSpace(q.Text))
	status := strings.TrimSpace(q.Status)

	for _, target := range st.ServerTargets() {
		sp := *st.Servers[target]

		switch sp.Status {
		case domain.HostStatusRunning:
			v.Badges.Running++
		case domain.HostStatusQueued:
			v.Badges.Queued++
		case domain.HostStatusPaused:
			v.Badges.Paused++
		case domain.HostStatusCompleted:
			v.Badges.Done++
		}
		if sp.Status == domain.HostStatusRunning || sp.Status == domain.HostStatusCompleted {
			v.Overall.Checked += sp.Checked
			v.Overall.Total += sp.Total
			v.Overall.Rate += sp.Rate
		}

		if text != "" && !strings.Contains(strings.ToLower(sp.Target), text) {
			continue
		}
		switch {
		case status == "" || status == "all":
		case status == "error":
			if sp.Errors <= 0 {
				continue
			}
		case string(sp.Status) != status:
			continue
		}
		v.Rows = append(v.Rows, sp)
	}
	if v.Overall.Total > 0 {
		v.Overall.Percent = int((v.Overall.Checked*100 + v.Overall.Total/2) / v.Overall.Total)
	}

	sortServers(v.Rows, q.Sort)
	return v
}

func sortServers(rows []domain.ServerProgress, key SortKey) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		switch key {
		case SortProgress:
			return a.Percent > b.Percent
		case SortStatus:
			return a.Status < b.Status
		case SortFindings:
			return a.Findings > b.Findings
		case SortRecent:
			return a.LastProbeAt.After(b.LastProbeAt)
		default:
			return compareTargets(a.Target, b.Target) < 0
		}
	})
}

// compareTargets orders IPv4 hosts numerically and first, then other hosts
// by name with digit runs compared as numbers.
func compareTargets(a, b string) int {
	ha, hb := filter.HostKey(a), filter.HostKey(b)
	ipa, ipb := ipv4(ha), ipv4(hb)

	switch {
	case ipa != nil && ipb != nil:
		for i := 0; i < 4; i++ {
			if ipa[i] != ipb[i] {
				return int(ipa[i]) - int(ipb[i])
			}
		}
		return 0
	case ipa != nil:
		return -1
	case ipb != nil:
		return 1
	}

	if c := naturalCompare(ha, hb); c != 0 {
		return c
	}
	return naturalCompare(strings.ToLower(a), strings.ToLower(b))
}

func ipv4(host string) net.IP {
	if strings.Count(host, ".") != 3 {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return nil
	}
	return ip.To4()
}

func naturalCompare(a, b string) int {
	for a != "" && b != "" {
		da, db := digitRun(a), digitRun(b)
		if da > 0 && db > 0 {
			na := strings.TrimLeft(a[:da], "0")
			nb := strings.TrimLeft(b[:db], "0")
			if len(na) != len(nb) {
				return len(na) - len(nb)
			}
			if na != nb {
				return strings.Compare(na, nb)
			}
			a, b = a[da:], b[db:]
			continue
		}
		if a[0] != b[0] {
			return int(a[0]) - int(b[0])
		}
		a, b = a[1:], b[1:]
	}
	return len(a) - len(b)
}

func digitRun(s string) int {
	n := 0
	for n < len(s) && s[n] >= '0' && s[n] <= '9' {
		n++
	}
	return n
}

type RequestLogView struct {
	Rows     []domain.Probe
	Verbose  bool
	Selected string
}

// BuildRequestLogView lists up to limit probe records, newest first, only
// those on the selected target's host when one is selected.
func BuildRequestLogView(st *state.State, limit int) RequestLogView {
	v := RequestLogView{Verbose: st.Verbose, Selected: st.SelectedTarget}
	if st.SelectedTarget == "" {
		v.Rows = st.Probes(limit)
		return v
	}

	want := filter.HostKey(st.SelectedTarget)
	for _, p := range st.Probes(0) {
		loc := p.URL
		if loc == "" {
			loc = p.Target
		}
		if filter.HostKey(loc) != want {
			continue
		}
		v.Rows = append(v.Rows, p)
		if limit > 0 && len(v.Rows) >= limit {
			break
		}
	}
	return v
}
