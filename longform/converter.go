// Package longform reshapes wide taxonomic abundance tables, with one row per
// taxon and a <sample>_num / <sample>_frac column pair per sample, into long
// tables with one row per taxon and sample.
package longform

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"github.com/carbocation/pfx"
	"go.uber.org/zap"

	"github.com/carbocation/widetolong"
)

// sniffBytes bounds how much of the input is inspected when the input
// delimiter is detected rather than assumed.
const sniffBytes = 64 * 1024

// Stats summarizes one conversion.
type Stats struct {
	// Rows is the number of data rows read, excluding the header.
	Rows int

	// Emitted is the number of long-format rows written, excluding the header.
	Emitted int
}

// Converter turns a wide table into a long one. The zero value is not usable;
// construct one with New.
type Converter struct {
	delimiter       rune
	inputDelimiter  rune
	detectDelimiter bool
	crlf            bool
	storage         *storage.Client
	log             *zap.Logger
}

// Option configures a Converter.
type Option func(*Converter)

// WithDelimiter sets the output field delimiter. The default is a tab.
func WithDelimiter(delim rune) Option {
	return func(c *Converter) {
		c.delimiter = delim
	}
}

// WithInputDelimiter sets the input field delimiter. The default is a tab.
func WithInputDelimiter(delim rune) Option {
	return func(c *Converter) {
		c.inputDelimiter = delim
	}
}

// WithDetectedInputDelimiter makes the converter guess the input delimiter
// from the start of the input instead of assuming a tab.
func WithDetectedInputDelimiter(detect bool) Option {
	return func(c *Converter) {
		c.detectDelimiter = detect
	}
}

// WithCRLF terminates output records with \r\n instead of \n.
func WithCRLF(crlf bool) Option {
	return func(c *Converter) {
		c.crlf = crlf
	}
}

// WithStorageClient lets ConvertFiles read and write gs:// paths.
func WithStorageClient(client *storage.Client) Option {
	return func(c *Converter) {
		c.storage = client
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Converter) {
		if log != nil {
			c.log = log
		}
	}
}

func New(opts ...Option) *Converter {
	c := &Converter{
		delimiter:      '\t',
		inputDelimiter: '\t',
		log:            zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Convert reads the tab-delimited wide table at inputPath and writes the long
// table to outputPath, comma-delimited if commaDelimited is set and
// tab-delimited otherwise.
func Convert(inputPath, outputPath string, commaDelimited bool) error {
	delim := '\t'
	if commaDelimited {
		delim = ','
	}

	_, err := New(WithDelimiter(delim)).ConvertFiles(context.Background(), inputPath, outputPath)
	return err
}

// ConvertFiles converts the table at inputPath into outputPath. Paths may be
// local files, "-" for stdin/stdout, or gs:// objects when a storage client
// was supplied. The header is validated before the output is created, so a
// table with a missing or malformed column leaves no output behind. Any later
// failure discards the partial output.
func (c *Converter) ConvertFiles(ctx context.Context, inputPath, outputPath string) (Stats, error) {
	var stats Stats

	in, err := widetolong.OpenInput(ctx, inputPath, c.storage)
	if err != nil {
		return stats, err
	}
	defer in.Close()

	rdr, lay, err := c.readHeader(in)
	if err != nil {
		return stats, fmt.Errorf("%s: %w", inputPath, err)
	}

	out, err := widetolong.CreateOutput(ctx, outputPath, c.storage)
	if err != nil {
		return stats, err
	}

	c.log.Debug("converting",
		zap.String("input", inputPath),
		zap.String("output", outputPath),
		zap.Int("measurement_columns", len(lay.measurements)))

	stats, err = c.transform(rdr, lay, out)
	if err != nil {
		if abortErr := out.Abort(); abortErr != nil {
			c.log.Warn("could not discard partial output", zap.String("output", outputPath), zap.Error(abortErr))
		}
		return stats, fmt.Errorf("%s: %w", inputPath, err)
	}

	if err := out.Close(); err != nil {
		return stats, err
	}

	c.log.Debug("converted",
		zap.String("input", inputPath),
		zap.Int("rows", stats.Rows),
		zap.Int("emitted", stats.Emitted))

	return stats, nil
}

// Convert reads a wide table from r and writes the long table to w.
func (c *Converter) Convert(r io.Reader, w io.Writer) (Stats, error) {
	rdr, lay, err := c.readHeader(r)
	if err != nil {
		return Stats{}, err
	}

	return c.transform(rdr, lay, w)
}

func (c *Converter) readHeader(r io.Reader) (*csv.Reader, *layout, error) {
	br := bufio.NewReader(r)

	delim := c.inputDelimiter
	if c.detectDelimiter {
		// Peek reports ErrBufferFull or EOF on short inputs; what was peeked
		// is still a valid sample.
		sample, _ := br.Peek(sniffBytes)
		delim = widetolong.DetermineDelimiter(bytes.NewReader(sample))
		c.log.Debug("detected input delimiter", zap.String("delimiter", string(delim)))
	}

	rdr := csv.NewReader(br)
	rdr.Comma = delim
	rdr.FieldsPerRecord = -1
	rdr.LazyQuotes = true
	rdr.ReuseRecord = true

	header, err := rdr.Read()
	if errors.Is(err, io.EOF) {
		// An empty input has no header to validate and no rows to convert.
		return rdr, &layout{}, nil
	} else if err != nil {
		return nil, nil, pfx.Err(fmt.Errorf("header parsing error: %w", err))
	}

	lay, err := parseHeader(header)
	if err != nil {
		return nil, nil, err
	}

	for _, m := range lay.measurements {
		if m.measure != MeasureNum && m.measure != MeasureFrac {
			c.log.Debug("ignoring column", zap.String("column", m.name), zap.String("measure", m.measure))
		}
	}

	return rdr, lay, nil
}

func (c *Converter) transform(rdr *csv.Reader, lay *layout, w io.Writer) (Stats, error) {
	var stats Stats

	cw := csv.NewWriter(w)
	cw.Comma = c.delimiter
	cw.UseCRLF = c.crlf

	if err := cw.Write(OutputHeader); err != nil {
		return stats, fmt.Errorf("writing header: %w", err)
	}

	out := make([]string, len(OutputHeader))
	for {
		row, err := rdr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				return stats, &MalformedRowError{Line: parseErr.Line, Err: parseErr.Err}
			}
			return stats, pfx.Err(err)
		}

		if len(row) > lay.width {
			line, _ := rdr.FieldPos(0)
			return stats, &MalformedRowError{
				Line: line,
				Err:  fmt.Errorf("%d cells but the header names %d columns", len(row), lay.width),
			}
		}
		stats.Rows++

		out[0] = cell(row, lay.name)
		out[1] = cell(row, lay.taxonomyID)
		out[2] = cell(row, lay.taxonomyLvl)

		// The latch is scoped to this row. An empty cell counts as absent.
		var pendingNum, pendingFrac string
		for _, m := range lay.measurements {
			switch m.measure {
			case MeasureNum:
				pendingNum = cell(row, m.idx)
			case MeasureFrac:
				pendingFrac = cell(row, m.idx)
			}

			if pendingNum == "" || pendingFrac == "" {
				continue
			}

			out[3] = m.sample
			out[4] = pendingNum
			out[5] = pendingFrac
			if err := cw.Write(out); err != nil {
				return stats, fmt.Errorf("writing row: %w", err)
			}
			stats.Emitted++

			pendingNum, pendingFrac = "", ""
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return stats, fmt.Errorf("writing output: %w", err)
	}

	return stats, nil
}
