package snapshot

import (
	"context"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/melbahja/goph"
	"github.com/pkg/errors"
	"github.com/pkg/sftp"
)

// SFTPConfig describes an SSH host and a base directory on it.
type SFTPConfig struct {
	User string
	// Host is the host name or address; the standard SSH port is used.
	Host string
	// KeyPath is the private key file, Passphrase its passphrase (empty
	// for unencrypted keys).
	KeyPath    string
	Passphrase string
	// Dir is the remote base directory objects are stored under.
	Dir string
}

// SFTP stores objects as files on a remote host over SFTP. It holds an
// open SSH connection; call Close when done.
//
// The sftp protocol has no request cancellation, so contexts are only
// checked before each operation starts.
type SFTP struct {
	ssh *goph.Client
	ftp *sftp.Client
	dir string
}

var _ Target = (*SFTP)(nil)

// NewSFTP connects to the configured host and opens an sftp session.
func NewSFTP(cfg *SFTPConfig) (*SFTP, error) {
	if cfg == nil {
		return nil, errors.New("must provide config")
	}
	if cfg.User == "" || cfg.Host == "" || cfg.KeyPath == "" {
		return nil, errors.New("must provide user, host and key path")
	}
	auth, err := goph.Key(cfg.KeyPath, cfg.Passphrase)
	if err != nil {
		return nil, errors.Wrapf(err, "can't load ssh key '%s'", cfg.KeyPath)
	}
	ssh, err := goph.New(cfg.User, cfg.Host, auth)
	if err != nil {
		return nil, errors.Wrapf(err, "can't connect to '%s'", cfg.Host)
	}
	ftp, err := ssh.NewSftp()
	if err != nil {
		ssh.Close()
		return nil, errors.Wrap(err, "can't open sftp session")
	}
	return &SFTP{ssh: ssh, ftp: ftp, dir: cfg.Dir}, nil
}

// Close closes the sftp session and the underlying SSH connection.
func (s *SFTP) Close() error {
	ferr := s.ftp.Close()
	serr := s.ssh.Close()
	if ferr != nil {
		return ferr
	}
	return serr
}

func (s *SFTP) remotePath(name string) string {
	return path.Join(s.dir, name)
}

func (s *SFTP) Put(ctx context.Context, name string, r io.Reader, size int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rp := s.remotePath(name)
	if err := s.ftp.MkdirAll(path.Dir(rp)); err != nil {
		return errors.Wrapf(err, "can't create remote dir for '%s'", rp)
	}
	// upload under a temp name, rename into place once complete
	tmp := rp + ".tmp"
	f, err := s.ftp.Create(tmp)
	if err != nil {
		return errors.Wrapf(err, "can't create '%s'", tmp)
	}
	_, err = io.Copy(f, r)
	cerr := f.Close()
	if err == nil {
		err = cerr
	}
	if err != nil {
		_ = s.ftp.Remove(tmp)
		return errors.Wrapf(err, "can't upload '%s'", rp)
	}
	if err := s.ftp.PosixRename(tmp, rp); err != nil {
		_ = s.ftp.Remove(tmp)
		return errors.Wrapf(err, "can't move '%s' into place", rp)
	}
	return nil
}

func (s *SFTP) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := s.ftp.Open(s.remotePath(name))
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (s *SFTP) List(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := s.ftp.Stat(s.dir); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	w := s.ftp.Walk(s.dir)
	for w.Step() {
		if err := w.Err(); err != nil {
			return nil, err
		}
		if w.Stat().IsDir() {
			continue
		}
		rel := strings.TrimPrefix(w.Path(), s.dir)
		rel = strings.TrimPrefix(rel, "/")
		if strings.HasPrefix(rel, prefix) {
			names = append(names, rel)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (s *SFTP) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.ftp.Remove(s.remotePath(name))
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}
