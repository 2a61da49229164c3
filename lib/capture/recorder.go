// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package capture

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/bureau-foundation/peersync/lib/clock"
	"github.com/bureau-foundation/peersync/lib/codec"
)

// ErrClosed is returned by Record after Close.
var ErrClosed = errors.New("capture: recorder closed")

// Recorder appends frames to a compressed CBOR stream.
//
// Record is called from both the tick loop (outbound) and the transport
// callback (inbound). All methods may be called concurrently.
type Recorder struct {
	mu      sync.Mutex
	clock   clock.Clock
	started time.Time

	buffered *bufio.Writer
	encoder  *codec.Encoder
	// compressor is nil for uncompressed captures.
	compressor interface{ Flush() error }
	// closers run in order on Close: the compressor, then the file.
	closers []io.Closer
	closed  bool
	count   uint64
}

// Create opens path for writing and starts a capture.
func Create(path string, compression Compression, header Header, clk clock.Clock) (*Recorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating capture file: %w", err)
	}
	recorder, err := NewRecorder(file, compression, header, clk)
	if err != nil {
		file.Close()
		return nil, err
	}
	recorder.closers = append(recorder.closers, file)
	return recorder, nil
}

// NewRecorder starts a capture on w and writes the header through to w,
// so an unwritable destination fails here. Closing the recorder flushes
// the compressor but does not close w.
func NewRecorder(w io.Writer, compression Compression, header Header, clk clock.Clock) (*Recorder, error) {
	recorder := &Recorder{clock: clk, started: clk.Now()}

	var sink io.Writer
	switch compression {
	case CompressionNone:
		sink = w
	case CompressionZstd, "":
		encoder, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("starting zstd stream: %w", err)
		}
		sink = encoder
		recorder.compressor = encoder
		recorder.closers = append(recorder.closers, encoder)
	case CompressionLZ4:
		writer := lz4.NewWriter(w)
		sink = writer
		recorder.compressor = writer
		recorder.closers = append(recorder.closers, writer)
	default:
		return nil, fmt.Errorf("capture: unknown compression %q", compression)
	}

	recorder.buffered = bufio.NewWriterSize(sink, 64*1024)
	recorder.encoder = codec.NewEncoder(recorder.buffered)

	header.Version = FormatVersion
	header.Started = recorder.started.UnixNano()
	if err := recorder.writeHeader(header); err != nil {
		for _, closer := range recorder.closers {
			err = errors.Join(err, closer.Close())
		}
		return nil, fmt.Errorf("writing capture header: %w", err)
	}
	return recorder, nil
}

func (r *Recorder) writeHeader(header Header) error {
	if err := r.encoder.Encode(header); err != nil {
		return err
	}
	if err := r.buffered.Flush(); err != nil {
		return err
	}
	if r.compressor != nil {
		return r.compressor.Flush()
	}
	return nil
}

// Record appends one frame. The frame is encoded before Record returns,
// so the caller may reuse it.
func (r *Recorder) Record(tick uint32, direction Direction, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrClosed
	}
	record := Record{
		Tick:      tick,
		Direction: direction,
		At:        r.clock.Now().Sub(r.started).Nanoseconds(),
		Frame:     frame,
	}
	if err := r.encoder.Encode(record); err != nil {
		return fmt.Errorf("writing capture record: %w", err)
	}
	r.count++
	return nil
}

// Count returns the number of records written.
func (r *Recorder) Count() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close flushes and finishes the stream. It is safe to call more than
// once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	errs := []error{r.buffered.Flush()}
	for _, closer := range r.closers {
		errs = append(errs, closer.Close())
	}
	return errors.Join(errs...)
}
