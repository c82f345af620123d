// Package linkfile reads seed and product URL lists and appends discovery output.
package linkfile

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	"unicode"
)

// MarkerPrefix starts the line that heads each listing's block in an output file.
const MarkerPrefix = "####"

// Read returns the URLs of a link file in order. Blank lines and lines
// starting with "#" (which includes listing markers) are skipped.
func Read(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open link file: %w", err)
	}
	defer f.Close()

	var links []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		links = append(links, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read link file %s: %w", path, err)
	}
	return links, nil
}

// Writer appends listing blocks to an output link file.
type Writer struct {
	mu   sync.Mutex
	path string
	file *os.File
}

func Open(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file: %w", err)
	}
	return &Writer{path: path, file: f}, nil
}

func (w *Writer) Path() string { return w.path }

// WriteBlock appends a marker line for listing followed by one link per line.
func (w *Writer) WriteBlock(listing string, links []string) error {
	var b strings.Builder
	b.WriteString(MarkerPrefix + listing + "\n")
	for _, link := range links {
		b.WriteString(link + "\n")
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if _, err := w.file.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to write links of %s: %w", listing, err)
	}
	return w.file.Sync()
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.file.Close()
}

// DefaultOutputName is "product_urls_<site>_<YYYYMMDD-HHMMSS>.txt".
func DefaultOutputName(site string, at time.Time) string {
	return fmt.Sprintf("product_urls_%s_%s.txt", slug(site), at.Format("20060102-150405"))
}

func slug(s string) string {
	out := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return unicode.ToLower(r)
		}
		return '_'
	}, strings.TrimSpace(s))
	out = strings.Trim(out, "_")
	if out == "" {
		return "site"
	}
	return out
}
