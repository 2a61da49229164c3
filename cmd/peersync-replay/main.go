// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/peersync/internal/cli"
	"github.com/bureau-foundation/peersync/lib/capture"
	"github.com/bureau-foundation/peersync/lib/codec"
	"github.com/bureau-foundation/peersync/lib/config"
	"github.com/bureau-foundation/peersync/lib/packet"
	"github.com/bureau-foundation/peersync/lib/replica"
	"github.com/bureau-foundation/peersync/lib/version"
	"github.com/bureau-foundation/peersync/lib/world"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath  string
		options     replayOptions
		showVersion bool
	)
	flagSet := pflag.NewFlagSet("peersync-replay", pflag.ContinueOnError)
	flagSet.StringVar(&configPath, "config", "", "check the capture against the world layout in this peersync.yaml")
	flagSet.BoolVar(&options.frames, "frames", false, "print every captured frame")
	flagSet.BoolVar(&options.windows, "windows", false, "with --frames, print each entity's payload bytes")
	flagSet.BoolVar(&options.header, "header", false, "print the capture header in CBOR diagnostic notation")
	flagSet.BoolVar(&showVersion, "version", false, "print version information and exit")

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if showVersion {
		fmt.Printf("peersync-replay %s\n", version.Info())
		return nil
	}
	if flagSet.NArg() != 1 {
		return fmt.Errorf("usage: peersync-replay [flags] <capture-file>")
	}

	logger, err := cli.NewLogger("warn")
	if err != nil {
		return err
	}
	options.logger = logger

	if configPath != "" {
		cfg, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		options.layout = &cfg.World
	}

	reader, err := capture.Open(flagSet.Arg(0))
	if err != nil {
		return err
	}
	defer reader.Close()
	return replay(os.Stdout, reader, options)
}

type replayOptions struct {
	frames  bool
	windows bool
	header  bool

	// layout, when set, is rebuilt and its manifest compared with the
	// one recorded in the capture.
	layout *world.Layout
	logger *slog.Logger
}

// directionTotals accumulates one direction of traffic.
type directionTotals struct {
	frames    int
	manifests int
	bytes     int
	// sent counts state frames carrying each registration index.
	sent      []int

	// malformed counts frames that did not parse or walk.
	malformed int
	firstTick uint32
	lastTick  uint32
}

// replay prints a capture: its header, optionally every frame with the
// entities present in it, and per-direction totals. Frames that do not
// parse are reported and counted; they do not stop the replay.
func replay(w io.Writer, reader *capture.Reader, options replayOptions) error {
	header := reader.Header()
	manifest := header.Manifest
	if err := manifest.Verify(); err != nil {
		return fmt.Errorf("capture manifest: %w", err)
	}

	role := "responder"
	if header.Initiator {
		role = "initiator"
	}
	fmt.Fprintf(w, "capture version %d, %s, compression %s, %d entities\n",
		header.Version, role, reader.Compression(), len(manifest.Entries))

	if options.header {
		encoded, err := codec.Marshal(header)
		if err != nil {
			return fmt.Errorf("encoding header: %w", err)
		}
		diagnostic, err := codec.Diagnose(encoded)
		if err != nil {
			return fmt.Errorf("diagnosing header: %w", err)
		}
		fmt.Fprintln(w, diagnostic)
	}

	if options.layout != nil {
		if err := checkLayout(*options.layout, header.Initiator, manifest, options.logger); err != nil {
			fmt.Fprintf(w, "layout mismatch: %v\n", err)
		} else {
			fmt.Fprintln(w, "layout matches capture")
		}
	}

	lengths := make([]int, len(manifest.Entries))
	for i, entry := range manifest.Entries {
		lengths[i] = entry.Length
	}
	totals := map[capture.Direction]*directionTotals{
		capture.Outbound: {sent: make([]int, len(lengths))},
		capture.Inbound:  {sent: make([]int, len(lengths))},
	}

	table := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if options.frames {
		fmt.Fprintln(table, "AT\tTICK\tDIR\tKIND\tFRAME TICK\tBYTES\tENTITIES")
	}
	for {
		record, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			table.Flush()
			return err
		}
		total, ok := totals[record.Direction]
		if !ok {
			continue
		}
		if total.frames == 0 {
			total.firstTick = record.Tick
		}
		total.frames++
		total.lastTick = record.Tick
		total.bytes += len(record.Frame)

		line := describe(record.Frame, lengths, total)
		if options.frames {
			fmt.Fprintf(table, "%.3fs\t%d\t%s\t%s\t%s\t%d\t%s\n",
				float64(record.At)/1e9, record.Tick, record.Direction, line.kind, line.tick, len(record.Frame), line.entities)
			if options.windows {
				for _, window := range line.windows {
					fmt.Fprintf(table, "    %s#%d %s\n", manifest.Entries[window.index].Kind, window.index, hex.EncodeToString(window.payload))
				}
			}
		}
	}
	table.Flush()

	for _, direction := range []capture.Direction{capture.Outbound, capture.Inbound} {
		total := totals[direction]
		fmt.Fprintf(w, "%s: %d frames (%d manifest, %d malformed), %d bytes, ticks %d-%d\n",
			direction, total.frames, total.manifests, total.malformed, total.bytes, total.firstTick, total.lastTick)
		if total.frames > 0 {
			fmt.Fprintf(w, "  sent per entity: %s\n", joinCounts(total.sent, manifest))
		}
	}
	return nil
}

// frameLine is the printable summary of one frame.
type frameLine struct {
	kind     string
	tick     string
	entities string
	windows  []window
}

// window is one entity's bytes inside a state packet.
type window struct {
	index   int
	payload []byte
}

// describe parses one frame and counts it into total.
func describe(data []byte, lengths []int, total *directionTotals) frameLine {
	frame, err := packet.ParseFrame(data)
	if err != nil {
		total.malformed++
		return frameLine{kind: "invalid", tick: "-", entities: err.Error()}
	}
	if frame.Kind == packet.FrameManifest {
		total.manifests++
		return frameLine{kind: frame.Kind.String(), tick: "-"}
	}

	var (
		present []string
		windows []window
	)
	err = packet.Walk(frame.Payload, lengths, func(index int, payload []byte) error {
		present = append(present, strconv.Itoa(index))
		windows = append(windows, window{index: index, payload: payload})
		total.sent[index]++
		return nil
	})
	line := frameLine{
		kind:     frame.Kind.String(),
		tick:     strconv.FormatUint(uint64(frame.Tick), 10),
		entities: strings.Join(present, ","),
		windows:  windows,
	}
	if err != nil {
		total.malformed++
		line.entities += " (" + err.Error() + ")"
	}
	return line
}

// checkLayout rebuilds the registry from layout for the capture's role
// and compares manifests.
func checkLayout(layout world.Layout, initiator bool, recorded replica.Manifest, logger *slog.Logger) error {
	rebuilt, err := world.New(layout, initiator, logger)
	if err != nil {
		return err
	}
	manifest, err := rebuilt.Registry().Manifest()
	if err != nil {
		return err
	}
	return manifest.Compare(recorded)
}

// joinCounts renders per-entity send counts as "kind#index=count".
func joinCounts(counts []int, manifest replica.Manifest) string {
	parts := make([]string, len(counts))
	for i, count := range counts {
		parts[i] = fmt.Sprintf("%s#%d=%d", manifest.Entries[i].Kind, i, count)
	}
	return strings.Join(parts, " ")
}
