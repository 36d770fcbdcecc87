package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/findings"
	"github.com/Pusher91/truderwatch/internal/ndjson"
	"github.com/Pusher91/truderwatch/internal/prefs"
	"github.com/Pusher91/truderwatch/internal/render"
	"github.com/Pusher91/truderwatch/internal/session"
)

var findingsOpts struct {
	filters prefs.Filters
	page    int
	all     bool
	seek    bool
	export  string
}

var findingsCmd = &cobra.Command{
	Use:   "findings [scan-id]",
	Short: "Page through a scan's findings with status, length and text filters",
	Long: `Status filters take codes, ranges and classes: "200,301-308,4xx".
Exclusions win over inclusions; "!" in an exclude list keeps a code back in.
Length filters take byte counts and ranges: "0,1234-1300".

Without a scan id the remembered scan for this server is used, else the
active scan, else the newest one.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd.Context())
		defer cancel()

		c, err := newClient()
		if err != nil {
			return err
		}
		s := newSession(c, nil)
		defer s.Close()

		id, err := resolveScan(ctx, s, scanArg(args))
		if err != nil {
			return err
		}
		s.Restore(prefs.Prefs{PageSize: cfg.Findings.Limit, Filters: findingsOpts.filters})
		if err := s.SelectScan(ctx, id); err != nil {
			return err
		}
		// One-shot output: no background polling or debounced seeks.
		s.Logs.StopTail()
		s.Seek.Cancel()

		v, err := walkFindings(ctx, cmd.ErrOrStderr(), s)
		if err != nil {
			return err
		}

		if findingsOpts.export != "" {
			n, err := exportFindings(cmd.OutOrStdout(), findingsOpts.export, v.Rows)
			if err != nil {
				return err
			}
			logger.Info().Int64("count", n).Str("to", findingsOpts.export).Msg("findings exported")
			if findingsOpts.export == "-" {
				return nil
			}
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, render.New(out).Findings(v))
		return nil
	},
}

// walkFindings moves the pager as the flags ask and returns the final view.
func walkFindings(ctx context.Context, stderr io.Writer, s *session.Session) (findings.View, error) {
	v := s.RenderFindings(ctx)

	switch {
	case findingsOpts.all:
		for v.HasNext {
			var err error
			if v, err = s.Page(ctx, session.PageMore); err != nil {
				return v, err
			}
			s.Seek.Cancel()
		}
	case findingsOpts.seek:
		matcher := s.Store().Snapshot().Filter.Matcher()
		res, err := s.Pager.SeekNextMatch(ctx, matcher.Any, findings.SeekOptions{
			MaxPages: cfg.AutoSeek.MaxPages,
			MaxItems: cfg.AutoSeek.MaxItems,
		})
		if err != nil {
			return v, err
		}
		logger.Debug().Bool("found", res.Found).Int("pages", res.Pages).Int("scanned", res.Scanned).Msg("seek finished")
		if !res.Found {
			fmt.Fprintf(stderr, "no match within %d pages\n", res.Pages)
		}
		v = s.RenderFindings(ctx)
	}

	for i := 1; i < findingsOpts.page; i++ {
		if !v.HasNext {
			break
		}
		var err error
		if v, err = s.Page(ctx, session.PageNext); err != nil {
			return v, err
		}
		s.Seek.Cancel()
	}
	return v, nil
}

// exportFindings writes rows as NDJSON to path, or to w for "-".
func exportFindings(w io.Writer, path string, rows []domain.Finding) (int64, error) {
	var nw *ndjson.Writer
	if path == "-" {
		nw = ndjson.NewWriter(w)
	} else {
		var err error
		if nw, err = ndjson.Create(path); err != nil {
			return 0, fmt.Errorf("export: %w", err)
		}
	}
	for _, r := range rows {
		if err := nw.Write(r); err != nil {
			nw.Close()
			return nw.Count(), fmt.Errorf("export: %w", err)
		}
	}
	return nw.Count(), nw.Close()
}

func init() {
	f := findingsCmd.Flags()
	f.StringVarP(&findingsOpts.filters.Search, "search", "s", "", "space-separated text tokens, all must match")
	f.StringVar(&findingsOpts.filters.StatusInclude, "status-include", "", "only these status codes")
	f.StringVar(&findingsOpts.filters.StatusExclude, "status-exclude", "", "hide these status codes")
	f.StringVar(&findingsOpts.filters.LengthInclude, "length-include", "", "only these response lengths")
	f.StringVar(&findingsOpts.filters.LengthExclude, "length-exclude", "", "hide these response lengths")
	f.Int("page-size", 0, "findings per page")
	f.IntVar(&findingsOpts.page, "page", 1, "page number to show")
	f.BoolVar(&findingsOpts.all, "all", false, "fetch every page")
	f.BoolVar(&findingsOpts.seek, "seek", false, "skip forward to the first page with a visible match")
	f.Int("seek-pages", 0, "page bound for --seek")
	f.Int("seek-items", 0, "item bound for --seek")
	f.StringVar(&findingsOpts.export, "export", "", "write the shown findings as NDJSON to a file, or - for stdout")
	findingsCmd.MarkFlagsMutuallyExclusive("all", "seek")
	rootCmd.AddCommand(findingsCmd)
}
