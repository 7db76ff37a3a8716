package experiment

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	log "github.com/sirupsen/logrus"
)

// Join concatenates every regular file of dir, in name order, into out.
// out is skipped when it lives inside dir.
func Join(dir, out string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	outAbs, _ := filepath.Abs(out)
	var paths []string
	for _, name := range names {
		p := filepath.Join(dir, name)
		if abs, _ := filepath.Abs(p); abs == outAbs {
			continue
		}
		paths = append(paths, p)
	}

	f, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("join: %w", err)
	}
	defer f.Close()

	for _, p := range paths {
		if err := appendFile(f, p); err != nil {
			return fmt.Errorf("join: %w", err)
		}
	}
	log.Infof("[experiment] joined %d files into %s", len(paths), out)
	return f.Close()
}

func appendFile(w io.Writer, path string) error {
	in, err := os.Open(path)
	if err != nil {
		return err
	}
	defer in.Close()
	_, err = io.Copy(w, in)
	return err
}
