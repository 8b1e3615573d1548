package sshutil

import (
	"context"
	"fmt"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"

	"github.com/pkg/sftp"
)

// Upload copies a local file or directory into remoteParent over SFTP. The
// result lands at remoteParent/<basename of localPath>; existing files with
// the same names are overwritten, other remote files are left alone.
//
// Relative remote paths resolve against the login directory. A leading "~/"
// is accepted and means the same thing.
func (c *Client) Upload(ctx context.Context, localPath, remoteParent string) error {
	sftpClient, err := sftp.NewClient(c.Client)
	if err != nil {
		return fmt.Errorf("failed to start sftp subsystem: %w", err)
	}
	defer func() { _ = sftpClient.Close() }()

	info, err := os.Stat(localPath)
	if err != nil {
		return err
	}

	remoteBase := pathpkg.Join(RemotePath(remoteParent), filepath.Base(localPath))
	if !info.IsDir() {
		return uploadFile(ctx, sftpClient, localPath, remoteBase, info.Mode())
	}
	return uploadDir(ctx, sftpClient, localPath, remoteBase)
}

// RemotePath converts a shell-style remote path into one SFTP understands.
func RemotePath(p string) string {
	switch {
	case p == "~" || p == "":
		return "."
	case strings.HasPrefix(p, "~/"):
		return p[2:]
	default:
		return p
	}
}

func uploadDir(ctx context.Context, client *sftp.Client, localBase, remoteBase string) error {
	return filepath.Walk(localBase, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		relPath, err := filepath.Rel(localBase, path)
		if err != nil {
			return err
		}
		remotePath := pathpkg.Join(remoteBase, filepath.ToSlash(relPath))

		switch {
		case info.IsDir():
			if err := client.MkdirAll(remotePath); err != nil {
				return fmt.Errorf("failed to create remote directory %q: %w", remotePath, err)
			}
			_ = client.Chmod(remotePath, info.Mode().Perm())
			return nil
		case info.Mode()&os.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return err
			}
			_ = client.Remove(remotePath)
			if err := client.Symlink(target, remotePath); err != nil {
				return fmt.Errorf("failed to create remote symlink %q: %w", remotePath, err)
			}
			return nil
		case !info.Mode().IsRegular():
			return nil
		}

		return uploadFile(ctx, client, path, remotePath, info.Mode())
	})
}

func uploadFile(ctx context.Context, client *sftp.Client, localPath, remotePath string, mode os.FileMode) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(localPath)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := client.Create(remotePath)
	if err != nil {
		return fmt.Errorf("failed to create remote file %q: %w", remotePath, err)
	}
	defer func() { _ = dst.Close() }()

	if err := client.Chmod(remotePath, mode.Perm()); err != nil {
		return fmt.Errorf("failed to chmod remote file %q: %w", remotePath, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("failed to write remote file %q: %w", remotePath, err)
	}
	return nil
}
