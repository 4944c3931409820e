package ingest

import (
	"bytes"
	"encoding/csv"
	"io"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// readCSV parses the whole upload into string records. A leading byte order
// mark selects UTF-8 or UTF-16 decoding; without one the input is UTF-8.
func readCSV(data []byte, delimiter rune) ([][]string, error) {
	dec := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	reader := csv.NewReader(transform.NewReader(bytes.NewReader(data), dec))

	if delimiter != 0 {
		reader.Comma = delimiter
	}
	reader.FieldsPerRecord = -1 // ragged rows are checked against the header later
	reader.LazyQuotes = true

	var records [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}
		records = append(records, record)
	}
	return records, nil
}
