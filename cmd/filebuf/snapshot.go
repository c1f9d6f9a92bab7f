package main

import (
	"fmt"
	"io"
	"path"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"filebuf/snapshot"
)

func newSnapshotCmd(opts *rootOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Copy a buffer's file pair to off-host storage and back.",
	}
	cmd.AddCommand(
		newSnapshotPushCmd(opts),
		newSnapshotRestoreCmd(opts),
		newSnapshotListCmd(opts),
	)
	return cmd
}

// targetOpts selects and configures a snapshot target.
type targetOpts struct {
	target string
	prefix string

	dir string

	s3Endpoint string
	s3Access   string
	s3Secret   string
	s3Bucket   string
	s3Region   string
	s3Insecure bool

	sshUser       string
	sshHost       string
	sshKey        string
	sshPassphrase string
	sshDir        string
}

func (o *targetOpts) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&o.target, "target", "dir", "where snapshots live: dir, s3 or sftp")
	f.StringVar(&o.prefix, "prefix", "", "object name prefix")
	f.StringVar(&o.dir, "dir", "", "dir target: root directory")
	f.StringVar(&o.s3Endpoint, "s3-endpoint", "", "s3 target: endpoint, e.g. s3.amazonaws.com")
	f.StringVar(&o.s3Access, "s3-access", "", "s3 target: access key")
	f.StringVar(&o.s3Secret, "s3-secret", "", "s3 target: secret key")
	f.StringVar(&o.s3Bucket, "s3-bucket", "", "s3 target: bucket name")
	f.StringVar(&o.s3Region, "s3-region", "", "s3 target: region")
	f.BoolVar(&o.s3Insecure, "s3-insecure", false, "s3 target: use plain http")
	f.StringVar(&o.sshUser, "ssh-user", "", "sftp target: user")
	f.StringVar(&o.sshHost, "ssh-host", "", "sftp target: host")
	f.StringVar(&o.sshKey, "ssh-key", "", "sftp target: private key file")
	f.StringVar(&o.sshPassphrase, "ssh-passphrase", "", "sftp target: key passphrase")
	f.StringVar(&o.sshDir, "ssh-dir", "", "sftp target: remote base directory")
}

func (o *targetOpts) build() (snapshot.Target, error) {
	switch o.target {
	case "dir":
		if o.dir == "" {
			return nil, errors.New("must provide --dir")
		}
		return snapshot.NewDir(o.dir)
	case "s3":
		return snapshot.NewS3(&snapshot.S3Config{
			Access:   o.s3Access,
			Secret:   o.s3Secret,
			Bucket:   o.s3Bucket,
			Endpoint: o.s3Endpoint,
			Region:   o.s3Region,
			Insecure: o.s3Insecure,
		})
	case "sftp":
		return snapshot.NewSFTP(&snapshot.SFTPConfig{
			User:       o.sshUser,
			Host:       o.sshHost,
			KeyPath:    o.sshKey,
			Passphrase: o.sshPassphrase,
			Dir:        o.sshDir,
		})
	}
	return nil, errors.Errorf("unknown target '%s', want dir, s3 or sftp", o.target)
}

// closeTarget closes targets that hold connections, like sftp.
func closeTarget(t snapshot.Target) {
	if c, ok := t.(io.Closer); ok {
		_ = c.Close()
	}
}

func newSnapshotPushCmd(opts *rootOpts) *cobra.Command {
	topts := &targetOpts{}
	cmd := &cobra.Command{
		Use:   "push <data-file>",
		Short: "Push a consistent snapshot of the file pair.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			buf, err := opts.open(args[0])
			if err != nil {
				return err
			}
			tgt, err := topts.build()
			if err != nil {
				return err
			}
			defer closeTarget(tgt)
			info, err := snapshot.Push(cmd.Context(), buf, tgt, topts.prefix)
			if err != nil {
				return err
			}
			fmt.Printf("pushed %s (data %s, index %s)\n",
				path.Join(topts.prefix, info.ID),
				humanize.Bytes(uint64(info.DataBytes)),
				humanize.Bytes(uint64(info.IndexBytes)))
			return nil
		},
	}
	topts.register(cmd)
	return cmd
}

func newSnapshotRestoreCmd(opts *rootOpts) *cobra.Command {
	topts := &targetOpts{}
	cmd := &cobra.Command{
		Use:   "restore <snapshot-id> <data-file>",
		Short: "Download a snapshot into a local file pair.",
		Long: `Downloads the two snapshot objects into <data-file> and its index file.
The snapshot id is the full name printed by push, prefix included. Don't
restore into files an open buffer is using.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := topts.build()
			if err != nil {
				return err
			}
			defer closeTarget(tgt)
			dataPath := args[1]
			if err := snapshot.Restore(cmd.Context(), tgt, args[0], dataPath, opts.indexPathFor(dataPath)); err != nil {
				return err
			}
			fmt.Printf("restored %s to %s\n", args[0], dataPath)
			return nil
		},
	}
	topts.register(cmd)
	return cmd
}

func newSnapshotListCmd(opts *rootOpts) *cobra.Command {
	topts := &targetOpts{}
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List stored snapshot objects.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tgt, err := topts.build()
			if err != nil {
				return err
			}
			defer closeTarget(tgt)
			names, err := tgt.List(cmd.Context(), topts.prefix)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	}
	topts.register(cmd)
	return cmd
}
