// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package main provides dmdump, which prints a persisted data array.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/docopt/docopt-go"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/spacedata/datamodel"
	"github.com/born-ml/spacedata/internal/serialization"
)

const version = "v0.3.0"

const usage = `Data array dumper.

Usage:
  dmdump version
  dmdump [--values] [--mmap] [--skip-checksum] <file>
  dmdump -h | --help

Options:
  -h --help        Show this screen.
  --values         Print the element values.
  --mmap           Read the file through a memory mapping.
  --skip-checksum  Do not verify the data checksum.`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "dmdump:", err)
		os.Exit(1)
	}
}

func run(argv []string, out io.Writer) error {
	parser := &docopt.Parser{HelpHandler: docopt.NoHelpHandler}
	opts, err := parser.ParseArgs(usage, argv, version)
	if err != nil {
		return errors.New(usage)
	}
	if len(opts) == 0 {
		// -h or --help
		_, err := fmt.Fprintln(out, usage)
		return err
	}

	if showVersion, _ := opts.Bool("version"); showVersion {
		_, err := fmt.Fprintf(out, "dmdump %s\n", version)
		return err
	}

	path, err := opts.String("<file>")
	if err != nil {
		return err
	}
	mmap, _ := opts.Bool("--mmap")
	skip, _ := opts.Bool("--skip-checksum")
	values, _ := opts.Bool("--values")

	arr, err := datamodel.Open(path, datamodel.LoadOptions{Mmap: mmap, SkipChecksum: skip})
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	format, err := envelope(path)
	if err != nil {
		return err
	}
	return dump(out, path, format, arr, values)
}

// envelope describes the persisted form of the file: format and library
// versions, codec and section sizes. Only the headers are read.
func envelope(path string) (*datamodel.Attrs, error) {
	r, err := serialization.NewMmapReader(path, serialization.ReaderOptions{ValidationLevel: serialization.ValidationNone})
	if err != nil {
		return nil, fmt.Errorf("read envelope: %w", err)
	}
	defer func() { _ = r.Close() }()

	h, info := r.Header(), r.Info()
	return datamodel.NewAttrs(
		"version", h.FormatVersion,
		"library", h.LibraryVersion,
		"id", h.ID,
		"created_at", h.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		"codec", info.Codec.String(),
		"stored_bytes", info.StoredSize,
		"raw_bytes", info.RawSize,
		"state_slots", len(h.State),
	), nil
}

// dump writes a YAML summary of arr: file, envelope, dtype, shape, element
// count, then every allow-listed attribute in order.
func dump(out io.Writer, path string, format *datamodel.Attrs, arr datamodel.AnyArray, values bool) error {
	doc := datamodel.NewAttrs(
		"file", path,
		"envelope", format,
		"dtype", arr.DType().String(),
		"shape", []int(arr.Shape()),
		"elements", arr.NumElements(),
	)
	for _, name := range arr.AllowedAttributes() {
		v, _ := arr.Attr(name)
		doc.Set(name, v)
	}
	if values {
		doc.Set("values", arr.String())
	}

	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return enc.Close()
}
