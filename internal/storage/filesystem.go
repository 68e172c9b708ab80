package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Filesystem 将对象写入本地目录，并通过静态路由对外提供。
type Filesystem struct {
	root      string
	urlPrefix string
}

// NewFilesystem 构造文件系统后端，root 为空时使用 web/uploads。
func NewFilesystem(root, urlPrefix string) (*Filesystem, error) {
	if strings.TrimSpace(root) == "" {
		root = "web/uploads"
	}
	if urlPrefix == "" {
		urlPrefix = "/uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Filesystem{root: root, urlPrefix: "/" + strings.Trim(urlPrefix, "/")}, nil
}

func (f *Filesystem) Driver() string { return DriverFilesystem }

// Root 返回本地根目录，供路由挂载静态文件。
func (f *Filesystem) Root() string { return f.root }

// URLPrefix 返回对外 URL 前缀。
func (f *Filesystem) URLPrefix() string { return f.urlPrefix }

func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, _ string) (string, error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	full := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	file, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrExists
		}
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(file, r); err != nil {
		file.Close()
		os.Remove(full)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := file.Close(); err != nil {
		return "", err
	}

	return f.urlPrefix + "/" + key, nil
}
