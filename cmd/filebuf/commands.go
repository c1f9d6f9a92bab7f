package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/carlmjohnson/requests"
	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tidwall/pretty"

	"filebuf/buffer"
	"filebuf/fsutil"
)

func newStatCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "stat <data-file>",
		Short: "Print element count and file sizes.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			n := buf.Size()
			dataSize := fsutil.FileSize(buf.DataPath())
			indexSize := fsutil.FileSize(buf.IndexPath())
			fmt.Printf("elements:   %d\n", n)
			fmt.Printf("data file:  %s  %s\n", sizeStr(dataSize), buf.DataPath())
			fmt.Printf("index file: %s  %s\n", sizeStr(indexSize), buf.IndexPath())
			if n > 0 && dataSize > 0 {
				fmt.Printf("avg frame:  %s\n", humanize.Bytes(uint64(dataSize)/n))
			}
			return nil
		},
	}
}

// sizeStr renders a file size, tolerating missing files.
func sizeStr(size int64) string {
	if size < 0 {
		return "missing"
	}
	return humanize.Bytes(uint64(size))
}

func newGetCmd(opts *rootOpts) *cobra.Command {
	var prettyJSON bool
	cmd := &cobra.Command{
		Use:   "get <data-file> <index>",
		Short: "Write one element's bytes to stdout.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.ParseUint(args[1], 10, 64)
			if err != nil {
				return errors.Errorf("invalid index '%s'", args[1])
			}
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			d, ok := buf.Get(index)
			if !ok {
				return errors.Errorf("no readable element at index %d (buffer holds %d)", index, buf.Size())
			}
			if prettyJSON {
				d = pretty.Pretty(d)
			}
			_, err = os.Stdout.Write(d)
			return err
		},
	}
	cmd.Flags().BoolVar(&prettyJSON, "pretty", false, "reformat the element as indented JSON")
	return cmd
}

func newCatCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "cat <data-file>",
		Short: "Stream every element to stdout, one per line.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			w := bufio.NewWriter(os.Stdout)
			for _, d := range buf.All() {
				if _, err := w.Write(d); err != nil {
					return err
				}
				if err := w.WriteByte('\n'); err != nil {
					return err
				}
			}
			return w.Flush()
		},
	}
}

func newPutCmd(opts *rootOpts) *cobra.Command {
	var fromStdin bool
	cmd := &cobra.Command{
		Use:   "put <data-file> [value...]",
		Short: "Append elements from arguments or stdin lines.",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var elems [][]byte
			for _, v := range args[1:] {
				elems = append(elems, []byte(v))
			}
			if fromStdin {
				lines, err := readLines(os.Stdin)
				if err != nil {
					return err
				}
				elems = append(elems, lines...)
			}
			if len(elems) == 0 {
				return errors.New("nothing to append: pass values or --stdin")
			}
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			if err := buf.AddAll(elems...); err != nil {
				return err
			}
			fmt.Printf("appended %d elements, buffer now holds %d\n", len(elems), buf.Size())
			return nil
		},
	}
	cmd.Flags().BoolVar(&fromStdin, "stdin", false, "append one element per stdin line")
	return cmd
}

const maxLineBytes = 64 * 1024 * 1024

// readLines splits r into one element per line, keeping empty lines as
// empty elements.
func readLines(r io.Reader) ([][]byte, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	var lines [][]byte
	for sc.Scan() {
		lines = append(lines, append([]byte(nil), sc.Bytes()...))
	}
	return lines, sc.Err()
}

func newImportCmd(opts *rootOpts) *cobra.Command {
	var fromFile, fromURL string
	cmd := &cobra.Command{
		Use:   "import <data-file> (--file F | --url U)",
		Short: "Bulk-append newline-delimited payloads from a file or URL.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (fromFile == "") == (fromURL == "") {
				return errors.New("must provide exactly one of --file and --url")
			}
			var src io.Reader
			if fromFile != "" {
				f, err := os.Open(fromFile)
				if err != nil {
					return err
				}
				defer f.Close()
				src = f
			} else {
				var body bytes.Buffer
				if err := requests.URL(fromURL).ToBytesBuffer(&body).Fetch(cmd.Context()); err != nil {
					return errors.Wrapf(err, "can't fetch '%s'", fromURL)
				}
				src = &body
			}
			elems, err := readLines(src)
			if err != nil {
				return err
			}
			if len(elems) == 0 {
				return errors.New("no payloads to import")
			}
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			if err := buf.AddAll(elems...); err != nil {
				return err
			}
			fmt.Printf("imported %d elements, buffer now holds %d\n", len(elems), buf.Size())
			return nil
		},
	}
	cmd.Flags().StringVar(&fromFile, "file", "", "read payloads from this file")
	cmd.Flags().StringVar(&fromURL, "url", "", "fetch payloads from this URL")
	return cmd
}

func newVerifyCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <data-file>",
		Short: "Check that the file pair is structurally sound.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			method, err := opts.method()
			if err != nil {
				return err
			}
			res, err := buffer.Verify(args[0], opts.indexPathFor(args[0]), method)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d elements, %s data, %s index\n",
				res.Elements, humanize.Bytes(uint64(res.DataBytes)), humanize.Bytes(uint64(res.IndexBytes)))
			if res.OrphanedDataBytes > 0 {
				fmt.Printf("note: %d orphaned data bytes past the last frame (the next append overwrites them)\n", res.OrphanedDataBytes)
			}
			if res.IndexTailBytes > 0 {
				fmt.Printf("note: %d partial index bytes at the tail (reads ignore them)\n", res.IndexTailBytes)
			}
			return nil
		},
	}
}

func newResetCmd(opts *rootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "reset <data-file>",
		Short: "Delete the file pair.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			if err := buf.Reset(); err != nil {
				return err
			}
			fmt.Println("buffer reset")
			return nil
		},
	}
}
