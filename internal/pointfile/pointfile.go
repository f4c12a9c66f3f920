// Package pointfile reads the harness-only input text format shared by
// the module's command-line tools: a "<count> <dim>" header line
// followed by one point per line, comma- or space-separated
// coordinates.
package pointfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/azybler/oddson/pkg/geom"
)

// Read parses the point file at path, returning its points and their
// shared dimension. A malformed header, a non-positive count, a
// dimension below 2, a coordinate parse failure, or fewer points than
// the header declares are all returned as an error; callers at the CLI
// layer exit 1 on it.
func Read(path string) ([]geom.Point, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	if !sc.Scan() {
		return nil, 0, errors.New("empty file, expected a '<count> <dim>' header")
	}
	header := strings.Fields(sc.Text())
	if len(header) != 2 {
		return nil, 0, fmt.Errorf("malformed header %q, want '<count> <dim>'", sc.Text())
	}
	count, err := strconv.Atoi(header[0])
	if err != nil || count <= 0 {
		return nil, 0, fmt.Errorf("invalid point count %q: must be a positive integer", header[0])
	}
	dim, err := strconv.Atoi(header[1])
	if err != nil || dim < 2 {
		return nil, 0, fmt.Errorf("invalid dimension %q: must be an integer >= 2", header[1])
	}

	points := make([]geom.Point, 0, count)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.FieldsFunc(line, func(r rune) bool { return r == ',' || r == ' ' || r == '\t' })
		if len(fields) != dim {
			return nil, 0, fmt.Errorf("line %d: expected %d coordinates, got %d", len(points)+2, dim, len(fields))
		}
		p := make(geom.Point, dim)
		for i, field := range fields {
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, 0, fmt.Errorf("line %d: invalid coordinate %q: %w", len(points)+2, field, err)
			}
			p[i] = v
		}
		points = append(points, p)
	}
	if err := sc.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(points) < count {
		return nil, 0, fmt.Errorf("header declared %d points, file has %d", count, len(points))
	}
	return points, dim, nil
}
