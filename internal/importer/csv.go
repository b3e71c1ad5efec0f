package importer

import (
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/territory-cli/internal/territory"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
}

// StreamCSV reads r and sends rows to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV reads assignments from a CSV document whose first row is a
// header. Lines starting with '#' are comments.
func ReadCSV(ctx context.Context, r io.Reader) ([]territory.AssignmentInput, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	rowCh, errCh := StreamCSV(ctx, r, CSVOptions{Comment: '#', TrimSpace: true, LazyQuotes: true})

	var (
		cols    columns
		haveHdr bool
		out     []territory.AssignmentInput
	)
	for row := range rowCh {
		if !haveHdr {
			c, err := parseHeader(row)
			if err != nil {
				return nil, err
			}
			cols, haveHdr = c, true
			continue
		}
		if in, ok := cols.input(row); ok {
			out = append(out, in)
		}
	}
	if err := <-errCh; err != nil {
		return nil, eris.Wrap(err, "importer: read csv")
	}
	if !haveHdr {
		return nil, eris.New("importer: csv has no header row")
	}
	return out, nil
}
