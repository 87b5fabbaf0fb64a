package dataset

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// readLabels reads the leading label from each svmlight-style row.
func readLabels(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var labels []float64
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		field := line
		if idx := strings.IndexAny(line, " \t"); idx >= 0 {
			field = line[:idx]
		}

		label, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing label %q: %w", lineNo, field, err)
		}
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return labels, nil
}

// readFloats reads one float per line.
func readFloats(path string) ([]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var values []float64
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parsing value %q: %w", lineNo, line, err)
		}
		values = append(values, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return values, nil
}

// readInts reads one integer per line.
func readInts(path string) ([]int, error) {
	values, err := readFloats(path)
	if err != nil {
		return nil, err
	}

	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
		if float64(out[i]) != v {
			return nil, fmt.Errorf("line %d: expected integer, got %f", i+1, v)
		}
	}
	return out, nil
}

// readFloatsOrDefault reads per-row floats, defaulting every row to 1.0
// when the file does not exist. Missing theta files mean the plain
// unweighted DCG behavior.
func readFloatsOrDefault(path string, n int) ([]float64, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		out := make([]float64, n)
		for i := range out {
			out[i] = 1.0
		}
		return out, nil
	}
	return readFloats(path)
}
