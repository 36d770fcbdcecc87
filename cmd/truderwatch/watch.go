package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/spf13/cobra"
	"golang.org/x/term"
	"golang.org/x/time/rate"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/render"
	"github.com/Pusher91/truderwatch/internal/session"
)

const clearScreen = "\x1b[H\x1b[2J"

var watchOpts struct {
	hostFilter string
	hostStatus string
	sort       string
	logRows    int
	refresh    time.Duration
}

var watchCmd = &cobra.Command{
	Use:   "watch [scan-id]",
	Short: "Follow a scan live: hosts, findings and the request log",
	Long: `watch selects a scan (the given one, the remembered one, the active one,
or the newest) and redraws the dashboard as server events arrive. A newly
started scan takes over the view. Page size and filters from the last run
against the same server are restored and saved again on exit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}

		dirty := make(chan struct{}, 1)
		s := newSession(c, domain.NotifyFunc(func(domain.Signal) {
			select {
			case dirty <- struct{}{}:
			default:
			}
		}))

		remembered := loadPrefs()
		id := scanArg(args)
		if remembered.Server == cfg.Server {
			s.Restore(remembered)
			if id == "" {
				id = rememberedScan(ctx, s, remembered.LastScan)
			}
		}

		var wg conc.WaitGroup
		wg.Go(func() {
			if err := s.Run(ctx, id); err != nil {
				logger.Error().Err(err).Msg("session stopped")
			}
		})

		out := cmd.OutOrStdout()
		draw(ctx.Done(), out, s, dirty)

		wg.Wait()
		savePrefs(s)
		return nil
	},
}

// rememberedScan returns last when the server still lists it.
func rememberedScan(ctx context.Context, s *session.Session, last string) string {
	if last == "" {
		return ""
	}
	items, err := s.RefreshScans(ctx)
	if err != nil {
		return ""
	}
	for _, it := range items {
		if it.ID == last {
			return last
		}
	}
	return ""
}

// draw repaints on every change signal, at most once per refresh interval,
// until done is closed.
func draw(done <-chan struct{}, out io.Writer, s *session.Session, dirty <-chan struct{}) {
	r := render.New(out)
	tty := false
	if f, ok := out.(*os.File); ok {
		tty = term.IsTerminal(int(f.Fd()))
	}
	q := session.ServerQuery{
		Text:   watchOpts.hostFilter,
		Status: watchOpts.hostStatus,
		Sort:   session.SortKey(watchOpts.sort),
	}

	lim := rate.NewLimiter(rate.Every(watchOpts.refresh), 1)
	for {
		select {
		case <-done:
			return
		case <-dirty:
		}
		if res := lim.Reserve(); res.Delay() > 0 {
			select {
			case <-done:
				res.Cancel()
				return
			case <-time.After(res.Delay()):
			}
		}

		st := s.Store().Snapshot()
		frame := r.Dashboard(&st, q, watchOpts.logRows)
		if tty {
			fmt.Fprint(out, clearScreen)
		}
		fmt.Fprintln(out, frame)
	}
}

func init() {
	f := watchCmd.Flags()
	f.StringVar(&watchOpts.hostFilter, "host-filter", "", "only hosts containing this text")
	f.StringVar(&watchOpts.hostStatus, "host-status", "", "only hosts in this status (running, queued, paused, completed, stopped, error)")
	f.StringVar(&watchOpts.sort, "sort", string(session.SortHost), "host order: host, progress, status, findings, recent")
	f.IntVar(&watchOpts.logRows, "log-rows", 15, "request log rows to show")
	f.DurationVar(&watchOpts.refresh, "refresh", 250*time.Millisecond, "minimum time between redraws")
	f.Int("stream-max", 0, "findings kept while a new scan streams in")
	f.Duration("tail-interval", 0, "request log poll interval")
	f.Bool("public-ip", false, "also look up the public address")
	rootCmd.AddCommand(watchCmd)
}
