package trust

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// LoadFile reads a trusted-user list: one username per line, blank lines
// and #-comments ignored.
func LoadFile(path string) (Set, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening trusted users file: %w", err)
	}
	defer func() { _ = f.Close() }()

	s := New()
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		s[line] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading trusted users file: %w", err)
	}
	return s, nil
}
