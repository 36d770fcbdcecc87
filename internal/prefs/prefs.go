// Package prefs remembers presentation choices between runs.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Pusher91/truderwatch/internal/state"
)

const fileName = "prefs.json"

type Filters struct {
	Search        string `json:"search,omitempty"`
	StatusInclude string `json:"statusInclude,omitempty"`
	StatusExclude string `json:"statusExclude,omitempty"`
	LengthInclude string `json:"lengthInclude,omitempty"`
	LengthExclude string `json:"lengthExclude,omitempty"`
}

type Prefs struct {
	Server   string  `json:"server,omitempty"`
	LastScan string  `json:"lastScan,omitempty"`
	PageSize int     `json:"pageSize,omitempty"`
	Filters  Filters `json:"filters"`
}

// DefaultPath is prefs.json under the user config dir, or the working
// directory when that is unknown.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return fileName
	}
	return filepath.Join(dir, "truderwatch", fileName)
}

// Load reads path. A missing file yields zero Prefs.
func Load(path string) (Prefs, error) {
	var p Prefs
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return p, nil
		}
		return p, fmt.Errorf("read prefs: %w", err)
	}
	if err := json.Unmarshal(b, &p); err != nil {
		return Prefs{}, fmt.Errorf("parse prefs %s: %w", path, err)
	}
	if p.PageSize < 0 {
		p.PageSize = 0
	}
	return p, nil
}

// Save replaces the prefs file through a temp file in the same directory,
// so a concurrent Load sees either the old or the new document.
func Save(path string, p Prefs) error {
	b, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+fileName+"-*")
	if err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}
	_, werr := tmp.Write(append(b, '\n'))
	cerr := tmp.Close()
	if err := errors.Join(werr, cerr); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write prefs: %w", err)
	}
	return nil
}

// Capture copies the remembered values out of st. server is stored so a
// last scan id is only reused against the remote it came from.
func Capture(st *state.State, server string) Prefs {
	return Prefs{
		Server:   server,
		LastScan: st.ScanID,
		PageSize: st.Findings.Limit,
		Filters: Filters{
			Search:        st.Filter.Search,
			StatusInclude: st.Filter.Status.IncludeText,
			StatusExclude: st.Filter.Status.ExcludeText,
			LengthInclude: st.Filter.Length.IncludeText,
			LengthExclude: st.Filter.Length.ExcludeText,
		},
	}
}

// ScanFor returns the remembered scan id when it belongs to server.
func (p Prefs) ScanFor(server string) string {
	if p.Server != server {
		return ""
	}
	return p.LastScan
}

func (f Filters) IsZero() bool { return f == Filters{} }
