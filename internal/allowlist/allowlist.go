package allowlist

import (
	"fmt"
	"os"
	"strings"
)

// File appends entries to a blocky allow-list, one domain per line.
// Every Append opens the file in append mode and issues a single write,
// so concurrent appends from separate requests never interleave.
type File struct {
	Path string
}

func New(path string) *File {
	return &File{Path: path}
}

// Append writes domain followed by a newline. Entries containing line breaks
// are rejected so one call can only ever produce one line.
func (f *File) Append(domain string) error {
	if domain == "" || strings.ContainsAny(domain, "\r\n") {
		return fmt.Errorf("allowlist: invalid entry %q", domain)
	}

	fh, err := os.OpenFile(f.Path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("allowlist: open %s: %w", f.Path, err)
	}

	if _, err := fh.Write([]byte(domain + "\n")); err != nil {
		_ = fh.Close()
		return fmt.Errorf("allowlist: write %s: %w", f.Path, err)
	}
	if err := fh.Close(); err != nil {
		return fmt.Errorf("allowlist: close %s: %w", f.Path, err)
	}
	return nil
}
