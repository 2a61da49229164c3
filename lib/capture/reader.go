// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/peersync/lib/codec"
)

// Stream magic numbers used to detect the compression of a capture.
var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Reader iterates over the records of a capture.
type Reader struct {
	header      Header
	compression Compression
	decoder     *codec.Decoder
	closers     []func() error
}

// Open opens a capture file.
func Open(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening capture: %w", err)
	}
	reader, err := NewReader(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closers = append(reader.closers, file.Close)
	return reader, nil
}

// NewReader reads a capture from r, detecting the compression from the
// stream's first bytes.
func NewReader(r io.Reader) (*Reader, error) {
	peeker := bufio.NewReader(r)
	magic, err := peeker.Peek(4)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("reading capture: %w", err)
	}

	reader := &Reader{}
	var source io.Reader
	switch {
	case bytes.Equal(magic, zstdMagic):
		decoder, err := zstd.NewReader(peeker)
		if err != nil {
			return nil, fmt.Errorf("starting zstd stream: %w", err)
		}
		source = decoder
		reader.compression = CompressionZstd
		reader.closers = append(reader.closers, func() error { decoder.Close(); return nil })
	case bytes.Equal(magic, lz4Magic):
		source = lz4.NewReader(peeker)
		reader.compression = CompressionLZ4
	default:
		source = peeker
		reader.compression = CompressionNone
	}

	reader.decoder = codec.NewDecoder(source)
	if err := reader.decoder.Decode(&reader.header); err != nil {
		reader.Close()
		return nil, fmt.Errorf("reading capture header: %w", err)
	}
	if reader.header.Version != FormatVersion {
		reader.Close()
		return nil, fmt.Errorf("capture: unsupported format version %d", reader.header.Version)
	}
	return reader, nil
}

// Header returns the capture header.
func (r *Reader) Header() Header { return r.header }

// Compression returns the detected stream compression.
func (r *Reader) Compression() Compression { return r.compression }

// Next returns the next record, or io.EOF after the last one.
func (r *Reader) Next() (Record, error) {
	var record Record
	if err := r.decoder.Decode(&record); err != nil {
		if errors.Is(err, io.EOF) {
			return Record{}, io.EOF
		}
		return Record{}, fmt.Errorf("reading capture record: %w", err)
	}
	return record, nil
}

// Close releases the decompressor and the underlying file.
func (r *Reader) Close() error {
	var errs []error
	for _, closer := range r.closers {
		errs = append(errs, closer())
	}
	r.closers = nil
	return errors.Join(errs...)
}
