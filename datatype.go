package widetolong

import (
	"bufio"
	"compress/bzip2"
	"fmt"
	"io"

	"github.com/klauspost/pgzip"
	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeInvalid DataType = iota
	DataTypeNoCompression
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZ
	DataTypeBZip2
)

func (dt DataType) String() string {
	switch dt {
	case DataTypeNoCompression:
		return "uncompressed"
	case DataTypeGzip:
		return "gzip"
	case DataTypeZip:
		return "zip"
	case DataTypeXZ:
		return "xz"
	case DataTypeZ:
		return "compress"
	case DataTypeBZip2:
		return "bzip2"
	}

	return "invalid"
}

// signatureLen is the length of the longest signature in byteCodeSigs.
const signatureLen = 6

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeZ:     {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// DetectDataType matches the leading bytes of a stream against a set of known
// compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
	// Match known signatures
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	return DataTypeNoCompression
}

// MaybeDecompress peeks at the start of br and, if it carries a known
// compression signature, returns a reader over the decompressed stream.
// Uncompressed streams are returned as-is. The returned close func releases
// decompressor resources only; it never closes the underlying stream.
func MaybeDecompress(br *bufio.Reader) (io.Reader, DataType, func() error, error) {
	nop := func() error { return nil }

	// Short streams cannot match a signature; Peek's error only says so.
	head, _ := br.Peek(signatureLen)
	dt := DetectDataType(head)

	switch dt {
	case DataTypeGzip:
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, dt, nil, err
		}
		return gz, dt, gz.Close, nil
	case DataTypeZip:
		// Only the first member of an archive is read.
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, dt, nil, err
		}
		return zr, dt, nop, nil
	case DataTypeBZip2:
		return bzip2.NewReader(br), dt, nop, nil
	case DataTypeXZ:
		xr, err := xz.NewReader(br, 0)
		if err != nil {
			return nil, dt, nil, err
		}
		return xr, dt, nop, nil
	case DataTypeZ:
		return nil, dt, nil, fmt.Errorf("%s compressed input is not supported; decompress it first", dt)
	}

	// No data type detected. For now, we assume this is uncompressed.
	return br, dt, nop, nil
}
