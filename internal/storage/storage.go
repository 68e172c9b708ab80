// Package storage persists uploaded attachments on the local filesystem or S3.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"time"
)

const (
	DriverFilesystem = "fs"
	DriverS3         = "s3"
)

// ErrExists 目标 key 已存在。
var ErrExists = errors.New("object already exists")

// Store 是附件存储后端。Put 返回可持久化到报表行上的 URL。
type Store interface {
	Driver() string
	Put(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
}

// Options 描述后端配置。
type Options struct {
	Driver      string
	Root        string
	URLPrefix   string
	S3Bucket    string
	S3Region    string
	S3Endpoint  string
	S3PathStyle bool
}

// Open 按驱动选择后端，默认文件系统。
func Open(ctx context.Context, opts Options) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Driver)) {
	case "", DriverFilesystem:
		return NewFilesystem(opts.Root, opts.URLPrefix)
	case DriverS3:
		return NewS3(ctx, S3Config{
			Bucket:    opts.S3Bucket,
			Region:    opts.S3Region,
			Endpoint:  opts.S3Endpoint,
			PathStyle: opts.S3PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown storage driver %s", opts.Driver)
	}
}

// ObjectKey 生成 {prefix}/{year}/{month}/{timestamp}-{filename}。
func ObjectKey(prefix string, now time.Time, filename string) string {
	return path.Join(
		prefix,
		fmt.Sprintf("%04d", now.Year()),
		fmt.Sprintf("%02d", int(now.Month())),
		fmt.Sprintf("%d-%s", now.UnixMilli(), SanitizeFilename(filename)),
	)
}

// SanitizeFilename 去掉目录部分与不安全字符。
func SanitizeFilename(name string) string {
	base := filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		return "upload"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			b.WriteRune(r)
		case r > 127:
			// 保留泰文等非 ASCII 字符
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	cleaned := strings.TrimLeft(b.String(), ".")
	if cleaned == "" {
		return "upload"
	}
	return cleaned
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	return nil
}
