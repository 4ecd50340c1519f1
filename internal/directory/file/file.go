// Package file provides a directory.Source backed by a plain text export:
// one uid per line, blank lines and lines starting with '#' ignored. The file
// is re-read on every call so an updated export is picked up by the next
// initialize.
package file

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/haukened/uidgen/internal/directory"
)

var (
	_ directory.Source = (*Export)(nil)
	_ directory.Pinger = (*Export)(nil)
)

// Export reads occupied uids from a text file.
type Export struct {
	path string
}

// New returns an Export for path. The file must exist and be a regular file.
func New(path string) (*Export, error) {
	e := &Export{path: path}
	if err := e.Ping(context.Background()); err != nil {
		return nil, err
	}
	return e, nil
}

// OccupiedUIDs returns every non-comment line starting with tag.
func (e *Export) OccupiedUIDs(ctx context.Context, tag string) ([]string, error) {
	f, err := os.Open(e.path) // #nosec G304 path comes from operator configuration
	if err != nil {
		return nil, fmt.Errorf("open directory export: %w", err)
	}
	defer f.Close()

	var uids []string
	sc := bufio.NewScanner(f)
	line := 0
	for sc.Scan() {
		line++
		if line%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if strings.HasPrefix(s, tag) {
			uids = append(uids, s)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read directory export line %d: %w", line, err)
	}
	return uids, nil
}

// Ping checks that the export file is present and regular.
func (e *Export) Ping(_ context.Context) error {
	st, err := os.Stat(e.path)
	if err != nil {
		return err
	}
	if !st.Mode().IsRegular() {
		return errors.New("directory export is not a regular file")
	}
	return nil
}
