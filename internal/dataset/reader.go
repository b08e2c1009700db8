package dataset

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

const (
	initialLineBuffer = 1024 * 1024
	maxLineBuffer     = 10 * 1024 * 1024
)

// ReadRecords reads JSON-lines dataset records. Blank lines are skipped;
// a malformed line fails the whole read.
func ReadRecords(r io.Reader) ([]Record, error) {
	return readLines[Record](r)
}

// ReadRollouts reads JSON-lines rollouts.
func ReadRollouts(r io.Reader) ([]Rollout, error) {
	return readLines[Rollout](r)
}

// ReadResponses reads JSON-lines generated responses.
func ReadResponses(r io.Reader) ([]Response, error) {
	return readLines[Response](r)
}

// ReadRolloutsFile opens path and reads rollouts from it.
func ReadRolloutsFile(path string) ([]Rollout, error) {
	return readFile(path, ReadRollouts)
}

// ReadRecordsFile opens path and reads dataset records from it.
func ReadRecordsFile(path string) ([]Record, error) {
	return readFile(path, ReadRecords)
}

// ReadResponsesFile opens path and reads responses from it.
func ReadResponsesFile(path string) ([]Response, error) {
	return readFile(path, ReadResponses)
}

func readFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer f.Close()
	return read(f)
}

func readLines[T any](r io.Reader) ([]T, error) {
	var out []T

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, initialLineBuffer), maxLineBuffer)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var v T
		if err := json.Unmarshal(line, &v); err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		out = append(out, v)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan: %w", err)
	}
	return out, nil
}
