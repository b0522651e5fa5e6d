// Command cattool is a small diagnostic and maintenance tool for Caterva
// containers: it prints an array's geometry, copies one array onto a new
// backend, and extracts a slice without materializing the whole array.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/NickleDave/Caterva/caterva"
	"github.com/NickleDave/Caterva/internal/schunk"

	_ "gocloud.dev/blob/fileblob"
)

func main() {
	if len(os.Args) < 3 {
		usage()
		os.Exit(1)
	}

	ctx := context.Background()
	cmd, args := os.Args[1], os.Args[2:]

	var err error
	switch cmd {
	case "info":
		err = runInfo(ctx, args)
	case "copy":
		err = runCopy(ctx, args)
	case "slice":
		err = runSlice(ctx, args)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "cattool %s: %v\n", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage:")
	fmt.Println("  cattool info <path>")
	fmt.Println("  cattool copy <src-path> <dst-path> [--codec-config <file.json>]")
	fmt.Println("  cattool slice <path> <start,start,...> <stop,stop,...>")
}

func runInfo(ctx context.Context, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("info wants exactly one path")
	}
	a, err := caterva.OpenPath(ctx, args[0], false)
	if err != nil {
		return err
	}
	defer a.Free()

	fmt.Printf("ndim:       %d\n", a.NDim())
	fmt.Printf("itemsize:   %d\n", a.ItemSize())
	fmt.Printf("shape:      %v\n", a.Shape())
	fmt.Printf("chunkshape: %v\n", a.ChunkShape())
	fmt.Printf("blockshape: %v\n", a.BlockShape())
	fmt.Printf("nitems:     %d\n", a.NItems())
	fmt.Printf("nchunks:    %d\n", a.NChunks())
	return nil
}

func runCopy(ctx context.Context, args []string) error {
	if len(args) != 2 && len(args) != 4 {
		return fmt.Errorf("copy wants <src-path> <dst-path> [--codec-config <file.json>]")
	}
	codec := schunk.CodecParams{CompressorID: "zstd"}
	if len(args) == 4 {
		if args[2] != "--codec-config" {
			return fmt.Errorf("unrecognized option %q", args[2])
		}
		cfg, err := loadCodecConfig(args[3])
		if err != nil {
			return err
		}
		codec = cfg
	}

	a, err := caterva.OpenPath(ctx, args[0], false)
	if err != nil {
		return err
	}
	defer a.Free()

	cp, err := a.Copy(ctx, a.ChunkShape(), a.BlockShape(), schunk.StorageConfig{
		Contiguous: true,
		Path:       args[1],
		Codec:      codec,
	})
	if err != nil {
		return err
	}
	defer cp.Free()

	fmt.Printf("copied %d chunks to %s\n", cp.NChunks(), args[1])
	return nil
}

func runSlice(ctx context.Context, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("slice wants <path> <start,...> <stop,...>")
	}
	a, err := caterva.OpenPath(ctx, args[0], false)
	if err != nil {
		return err
	}
	defer a.Free()

	start, err := parseIndex(args[1])
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	stop, err := parseIndex(args[2])
	if err != nil {
		return fmt.Errorf("stop: %w", err)
	}
	if len(start) != a.NDim() || len(stop) != a.NDim() {
		return fmt.Errorf("start/stop must have %d comma-separated entries", a.NDim())
	}

	nitems := int64(1)
	for i := range start {
		nitems *= stop[i] - start[i]
	}
	dst := make([]byte, nitems*int64(a.ItemSize()))
	if err := a.GetSliceBuffer(ctx, start, stop, dst); err != nil {
		return err
	}

	fmt.Printf("%d bytes\n", len(dst))
	return nil
}

func parseIndex(s string) ([]int64, error) {
	parts := strings.Split(s, ",")
	out := make([]int64, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(strings.TrimSpace(p), 10, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
