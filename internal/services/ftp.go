package services

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jlaffaye/ftp"

	"github.com/ecotaxa/ecopart-back-sub000/internal/shared"
)

// ftpConn is the subset of [ftp.ServerConn] used by [FTPDrop].
type ftpConn interface {
	Login(user, password string) error
	ChangeDir(path string) error
	MakeDir(path string) error
	Stor(path string, r io.Reader) error
	Quit() error
}

type dialFunc func(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error)

func dialFTP(ctx context.Context, addr string, timeout time.Duration) (ftpConn, error) {
	return ftp.Dial(addr, ftp.DialWithContext(ctx), ftp.DialWithTimeout(timeout))
}

// FTPDrop uploads files to a directory of an FTP server.
type FTPDrop struct {
	config shared.FTPConfig
	dial   dialFunc
	logger *log.Logger
}

// NewFTPDrop creates an [FTPDrop] from the [ftp] config section.
func NewFTPDrop(config shared.FTPConfig, logger *log.Logger) *FTPDrop {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &FTPDrop{
		config: config,
		dial:   dialFTP,
		logger: shared.WithLogger(logger, "component", "ftp"),
	}
}

// Upload stores localPath in the configured directory and returns its ftp:// link.
func (d *FTPDrop) Upload(ctx context.Context, localPath string) (link string, err error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", localPath, err)
	}
	defer f.Close()

	conn, err := d.dial(ctx, d.config.Host, d.config.Timeout())
	if err != nil {
		return "", fmt.Errorf("failed to connect to ftp server %s: %w", d.config.Host, err)
	}
	defer func() {
		if qerr := conn.Quit(); qerr != nil && err == nil {
			d.logger.Warn("ftp quit failed", "err", qerr)
		}
	}()

	if err := conn.Login(d.config.User, d.config.Password); err != nil {
		return "", fmt.Errorf("ftp login failed: %w", err)
	}

	if dir := d.config.Directory; dir != "" {
		if err := conn.ChangeDir(dir); err != nil {
			if err := conn.MakeDir(dir); err != nil {
				return "", fmt.Errorf("failed to create ftp directory %s: %w", dir, err)
			}
			if err := conn.ChangeDir(dir); err != nil {
				return "", fmt.Errorf("failed to enter ftp directory %s: %w", dir, err)
			}
		}
	}

	name := filepath.Base(localPath)
	if err := conn.Stor(name, f); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	link = d.Link(name)
	d.logger.Info("uploaded export", "file", name, "link", link)
	return link, nil
}

// Link is the public URL of a file stored in the drop directory.
func (d *FTPDrop) Link(name string) string {
	host := d.config.Host
	if h, port, err := net.SplitHostPort(host); err == nil && port == "21" {
		host = h
	}
	p := path.Join("/", strings.Trim(d.config.Directory, "/"), name)
	return "ftp://" + host + p
}
