// Command filebuf inspects and manipulates persistent buffer file
// pairs. It is codec-agnostic: elements are treated as raw bytes,
// whatever codec wrote them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"filebuf/buffer"
	"filebuf/codec"
	"filebuf/compress"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// rootOpts are the global flags every subcommand shares.
type rootOpts struct {
	indexPath   string
	compression string
	verbose     bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOpts{}
	root := &cobra.Command{
		Use:   "filebuf",
		Short: "Inspect and manipulate persistent buffer file pairs.",
		Long: `filebuf works on the file pairs written by the buffer package: a data
file of length-prefixed compressed frames plus an index file of offsets.

The compression method is part of the on-disk contract and is not
recorded in the files, so --compression must match what wrote them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&opts.indexPath, "index", "", "index file path (default: derived from the data file)")
	pf.StringVar(&opts.compression, "compression", compress.Gzip.String(), "frame compression: gzip, zstd, snappy or brotli")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "log buffer internals to stderr")
	root.AddCommand(
		newStatCmd(opts),
		newGetCmd(opts),
		newCatCmd(opts),
		newPutCmd(opts),
		newImportCmd(opts),
		newVerifyCmd(opts),
		newResetCmd(opts),
		newSnapshotCmd(opts),
	)
	return root
}

func (o *rootOpts) method() (compress.Method, error) {
	return compress.ParseMethod(o.compression)
}

func (o *rootOpts) logger() (*zap.Logger, error) {
	if !o.verbose {
		return zap.NewNop(), nil
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	return cfg.Build()
}

// open opens the buffer the way every subcommand does: raw bytes,
// compression and index path from the global flags.
func (o *rootOpts) open(dataPath string) (*buffer.FileBuffer[[]byte], error) {
	method, err := o.method()
	if err != nil {
		return nil, err
	}
	log, err := o.logger()
	if err != nil {
		return nil, err
	}
	bopts := []buffer.Option{
		buffer.WithCompression(method),
		buffer.WithLogger(log),
	}
	if o.indexPath != "" {
		bopts = append(bopts, buffer.WithIndexPath(o.indexPath))
	}
	return buffer.OpenFile[[]byte](dataPath, codec.Bytes{}, bopts...)
}

// indexPathFor resolves the index path for dataPath, honoring --index.
func (o *rootOpts) indexPathFor(dataPath string) string {
	if o.indexPath != "" {
		return o.indexPath
	}
	return buffer.IndexPathFor(dataPath)
}
