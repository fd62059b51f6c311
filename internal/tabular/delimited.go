package tabular

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"

	enc "github.com/MrJamesThe3rd/tally/internal/encoding"
)

const sniffWindow = 16 << 10

var delimiterCandidates = []rune{',', ';', '\t'}

type delimitedSource struct {
	reader *csv.Reader
}

func newDelimitedSource(r io.Reader, delimiter rune) (*delimitedSource, error) {
	utf8r, charset, err := enc.NewUTF8Reader(r)
	if err != nil {
		return nil, &DecodeError{Kind: KindDelimited, Cause: fmt.Errorf("detect encoding: %w", err)}
	}

	br := bufio.NewReaderSize(utf8r, sniffWindow)

	if delimiter == 0 {
		head, err := br.Peek(sniffWindow)
		if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
			return nil, &DecodeError{Kind: KindDelimited, Cause: err}
		}

		delimiter = sniffDelimiter(head)
	}

	slog.Debug("decoding delimited file", "charset", charset, "delimiter", string(delimiter))

	reader := csv.NewReader(br)
	reader.Comma = delimiter
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	return &delimitedSource{reader: reader}, nil
}

func (s *delimitedSource) read() ([]string, int, error) {
	record, err := s.reader.Read()
	if err != nil {
		return nil, 0, err
	}

	line, _ := s.reader.FieldPos(0)

	return record, line, nil
}

func (s *delimitedSource) close() error { return nil }

// sniffDelimiter picks the candidate occurring most often outside quotes in
// the first lines of the file. Ties go to the earlier candidate.
func sniffDelimiter(head []byte) rune {
	counts := make(map[rune]int, len(delimiterCandidates))
	lines := bytes.SplitN(head, []byte("\n"), 21)

	if len(lines) > 20 {
		lines = lines[:20]
	}

	for _, line := range lines {
		inQuotes := false

		for _, r := range string(line) {
			if r == '"' {
				inQuotes = !inQuotes
				continue
			}

			if !inQuotes {
				counts[r]++
			}
		}
	}

	best := delimiterCandidates[0]
	for _, c := range delimiterCandidates[1:] {
		if counts[c] > counts[best] {
			best = c
		}
	}

	return best
}
