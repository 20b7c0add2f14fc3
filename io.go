package widetolong

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"cloud.google.com/go/storage"
	"github.com/klauspost/pgzip"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// StdioPath stands for stdin when used as an input path and stdout when used
// as an output path.
const StdioPath = "-"

// InputAccessError reports that an input path could not be opened for reading.
type InputAccessError struct {
	Path string
	Err  error
}

func (e *InputAccessError) Error() string {
	return fmt.Sprintf("cannot read input %s: %v", e.Path, e.Err)
}

func (e *InputAccessError) Unwrap() error { return e.Err }

// OutputAccessError reports that an output path could not be opened, written
// or finalized.
type OutputAccessError struct {
	Path string
	Err  error
}

func (e *OutputAccessError) Error() string {
	return fmt.Sprintf("cannot write output %s: %v", e.Path, e.Err)
}

func (e *OutputAccessError) Unwrap() error { return e.Err }

var errNoStorageClient = errors.New("gs:// paths need a Google Storage client")

// IsBrokenPipe reports whether an error is a broken pipe / closed pipe, as
// happens when stdout is piped into something like `head`.
func IsBrokenPipe(err error) bool {
	return err != nil && (errors.Is(err, syscall.EPIPE) || errors.Is(err, io.ErrClosedPipe))
}

// Input is an opened, decompressed input stream.
type Input struct {
	io.Reader

	// DataType is the compression detected on the raw stream.
	DataType DataType

	closers []func() error
}

// Close releases the decompressor and then the underlying stream.
func (in *Input) Close() error {
	return closeAll(in.closers)
}

// OpenInput opens path for reading. "-" is stdin, gs://bucket/object is read
// from Google Storage through client, and anything else is a local file (with
// ~/ expanded). Compressed streams are transparently decompressed and a
// leading UTF-8 byte order mark is dropped.
func OpenInput(ctx context.Context, path string, client *storage.Client) (*Input, error) {
	var (
		raw      io.Reader
		closeRaw func() error
	)

	switch {
	case path == StdioPath:
		raw, closeRaw = os.Stdin, func() error { return nil }
	case IsGoogleStoragePath(path):
		if client == nil {
			return nil, &InputAccessError{Path: path, Err: errNoStorageClient}
		}
		bucket, object, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, &InputAccessError{Path: path, Err: err}
		}
		r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
		if err != nil {
			return nil, &InputAccessError{Path: path, Err: err}
		}
		raw, closeRaw = r, r.Close
	default:
		local, err := ExpandHome(path)
		if err != nil {
			return nil, &InputAccessError{Path: path, Err: err}
		}
		f, err := os.Open(local)
		if err != nil {
			return nil, &InputAccessError{Path: path, Err: err}
		}
		if fi, err := f.Stat(); err == nil && fi.IsDir() {
			f.Close()
			return nil, &InputAccessError{Path: path, Err: errors.New("is a directory")}
		}
		raw, closeRaw = f, f.Close
	}

	decompressed, dt, closeDecompressor, err := MaybeDecompress(bufio.NewReader(raw))
	if err != nil {
		closeRaw()
		return nil, &InputAccessError{Path: path, Err: err}
	}

	return &Input{
		Reader:   transform.NewReader(decompressed, unicode.UTF8BOM.NewDecoder()),
		DataType: dt,
		closers:  []func() error{closeDecompressor, closeRaw},
	}, nil
}

// Output is an opened output stream. Exactly one of Close or Abort should be
// called.
type Output struct {
	io.Writer

	path    string
	closers []func() error
	abort   func() error
}

// Close flushes every layer of the stream, innermost first, and reports the
// first failure as an OutputAccessError.
func (out *Output) Close() error {
	if err := closeAll(out.closers); err != nil {
		return &OutputAccessError{Path: out.path, Err: err}
	}

	return nil
}

// Abort discards whatever was written. Local files are removed and Google
// Storage uploads are cancelled; nothing can be taken back from stdout.
func (out *Output) Abort() error {
	return out.abort()
}

// CreateOutput creates or truncates path for writing. "-" is stdout,
// gs://bucket/object is uploaded to Google Storage through client, and
// anything else is a local file (with ~/ expanded). A .gz suffix gzips the
// stream.
func CreateOutput(ctx context.Context, path string, client *storage.Client) (*Output, error) {
	out := &Output{path: path}

	switch {
	case path == StdioPath:
		out.Writer = os.Stdout
		out.abort = func() error { return nil }
	case IsGoogleStoragePath(path):
		if client == nil {
			return nil, &OutputAccessError{Path: path, Err: errNoStorageClient}
		}
		bucket, object, err := SplitGoogleStoragePath(path)
		if err != nil {
			return nil, &OutputAccessError{Path: path, Err: err}
		}
		// Cancelling the writer's context before Close abandons the upload.
		ctx, cancel := context.WithCancel(ctx)
		w := client.Bucket(bucket).Object(object).NewWriter(ctx)
		out.Writer = w
		out.closers = append(out.closers, func() error {
			defer cancel()
			return w.Close()
		})
		out.abort = func() error {
			cancel()
			w.Close()
			return nil
		}
	default:
		local, err := ExpandHome(path)
		if err != nil {
			return nil, &OutputAccessError{Path: path, Err: err}
		}
		f, err := os.Create(local)
		if err != nil {
			return nil, &OutputAccessError{Path: path, Err: err}
		}
		out.Writer = f
		out.closers = append(out.closers, f.Close)
		out.abort = func() error {
			f.Close()
			return os.Remove(local)
		}
	}

	if strings.HasSuffix(path, ".gz") {
		gz := pgzip.NewWriter(out.Writer)
		out.Writer = gz
		out.closers = append([]func() error{gz.Close}, out.closers...)
	}

	return out, nil
}

// closeAll calls every closer in order and returns the first error.
func closeAll(closers []func() error) error {
	var first error
	for _, c := range closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}

	return first
}
