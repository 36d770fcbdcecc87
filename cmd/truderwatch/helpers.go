package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Pusher91/truderwatch/internal/client"
	"github.com/Pusher91/truderwatch/internal/domain"
	"github.com/Pusher91/truderwatch/internal/prefs"
	"github.com/Pusher91/truderwatch/internal/session"
)

// signalContext is cancelled on SIGINT/SIGTERM.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func newClient() (*client.Client, error) {
	c, err := client.New(cfg.Server, client.Options{
		Timeout:  cfg.Timeout,
		Proxy:    cfg.Proxy,
		Insecure: cfg.Insecure,
		Retry:    cfg.Events.Retry,
		Logger:   logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	return c, nil
}

func newSession(remote session.Remote, notify domain.Notifier) *session.Session {
	return session.New(remote, session.Options{
		FindingsLimit:   cfg.Findings.Limit,
		StreamMax:       cfg.Findings.StreamMax,
		MaxProbes:       cfg.Probes.Max,
		TailInterval:    cfg.Logs.TailInterval,
		LogPageLimit:    cfg.Logs.PageLimit,
		Backfill:        cfg.Logs.BackfillMax,
		SeekDebounce:    cfg.AutoSeek.Debounce,
		SeekMaxPages:    cfg.AutoSeek.MaxPages,
		SeekMaxItems:    cfg.AutoSeek.MaxItems,
		NetInfoInterval: cfg.NetInfo.Interval,
		NetInfoPublic:   cfg.NetInfo.Public,
		Notifier:        notify,
		Logger:          logger,
	})
}

// loadPrefs never fails the command; a broken prefs file is only logged.
func loadPrefs() prefs.Prefs {
	p, err := prefs.Load(cfg.PrefsFile)
	if err != nil {
		logger.Warn().Err(err).Str("path", cfg.PrefsFile).Msg("ignoring prefs")
		return prefs.Prefs{}
	}
	return p
}

func savePrefs(s *session.Session) {
	p := s.Remembered(cfg.Server)
	if p.LastScan == "" {
		return
	}
	if err := prefs.Save(cfg.PrefsFile, p); err != nil {
		logger.Warn().Err(err).Msg("could not save prefs")
	}
}

// resolveScan picks the scan a command works on: the explicit id, then the
// remembered scan for this server, then the default (active, else newest).
func resolveScan(ctx context.Context, s *session.Session, arg string) (string, error) {
	if arg != "" {
		return arg, nil
	}
	items, err := s.RefreshScans(ctx)
	if err != nil {
		return "", err
	}
	if last := loadPrefs().ScanFor(cfg.Server); last != "" {
		for _, it := range items {
			if it.ID == last {
				return last, nil
			}
		}
	}
	id := session.PickDefaultScanID(items)
	if id == "" {
		return "", fmt.Errorf("no scans on %s", cfg.Server)
	}
	return id, nil
}

func scanArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
