package report

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// OpenOutput creates path for writing. An existing file is first moved
// aside to path.bak, replacing any earlier backup.
func OpenOutput(path string) (*os.File, error) {
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("backing up %s: %w", path, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("checking %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// WriteInvalid lists rejected input lines with their line numbers.
func WriteInvalid(w io.Writer, lines []InvalidLine) error {
	bw := bufio.NewWriter(w)
	for _, l := range lines {
		if _, err := fmt.Fprintf(bw, "%d:   %s\n", l.Number, l.Text); err != nil {
			return err
		}
	}
	return bw.Flush()
}
