// Package archive uploads evaluation outputs to Azure Blob Storage.
package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"
)

// maxConcurrentUploads bounds the uploads Upload runs at once.
const maxConcurrentUploads = 4

// Uploader is the subset of *azblob.Client used by Archiver.
type Uploader interface {
	UploadBuffer(ctx context.Context, containerName string, blobName string, buffer []byte, o *azblob.UploadBufferOptions) (azblob.UploadBufferResponse, error)
}

// Config selects the storage account and container.
type Config struct {
	AccountURL string
	Container  string
	// Prefix is prepended to every blob name.
	Prefix string
	// Compress gzips each file and appends ".gz" to its blob name.
	Compress bool
	// Credential defaults to azidentity.NewDefaultAzureCredential.
	Credential azcore.TokenCredential
}

// Archiver copies local files into one blob container.
type Archiver struct {
	client    Uploader
	container string
	prefix    string
	compress  bool
}

// Option configures an Archiver.
type Option func(*Archiver)

// WithCompression gzips uploads.
func WithCompression(enabled bool) Option {
	return func(a *Archiver) { a.compress = enabled }
}

// New creates an Archiver backed by an azblob client.
func New(cfg Config) (*Archiver, error) {
	if cfg.AccountURL == "" || cfg.Container == "" {
		return nil, errors.New("archive: account URL and container are required")
	}

	cred := cfg.Credential
	if cred == nil {
		c, err := azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("archive: creating credential: %w", err)
		}
		cred = c
	}

	client, err := azblob.NewClient(cfg.AccountURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("archive: creating blob client: %w", err)
	}
	return NewWithUploader(client, cfg.Container, cfg.Prefix, WithCompression(cfg.Compress)), nil
}

// NewWithUploader creates an Archiver around an existing client.
func NewWithUploader(client Uploader, container, prefix string, opts ...Option) *Archiver {
	a := &Archiver{client: client, container: container, prefix: prefix}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// BlobName is prefix/basename(localPath), with ".gz" appended when
// compressing.
func (a *Archiver) BlobName(localPath string) string {
	base := filepath.Base(localPath)
	if a.compress {
		base += ".gz"
	}
	prefix := strings.Trim(a.prefix, "/")
	if prefix == "" {
		return base
	}
	return path.Join(prefix, base)
}

// Upload copies each file and returns the blob names in argument order.
// Files are uploaded concurrently; the first failure cancels the rest and
// no names are returned.
func (a *Archiver) Upload(ctx context.Context, localPaths ...string) ([]string, error) {
	names := make([]string, len(localPaths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentUploads)
	for i, p := range localPaths {
		g.Go(func() error {
			name, err := a.upload(ctx, p)
			if err != nil {
				return err
			}
			names[i] = name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return names, nil
}

func (a *Archiver) upload(ctx context.Context, p string) (string, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return "", fmt.Errorf("archive: reading %s: %w", p, err)
	}

	headers := &blob.HTTPHeaders{BlobContentType: to.Ptr(contentType(p))}
	if a.compress {
		if data, err = gzipBytes(data); err != nil {
			return "", fmt.Errorf("archive: compressing %s: %w", p, err)
		}
		headers.BlobContentEncoding = to.Ptr("gzip")
	}

	name := a.BlobName(p)
	_, err = a.client.UploadBuffer(ctx, a.container, name, data, &azblob.UploadBufferOptions{
		HTTPHeaders: headers,
	})
	if err != nil {
		return "", fmt.Errorf("archive: uploading %s: %w", name, err)
	}

	slog.Debug("Archived file", "path", p, "container", a.container, "blob", name, "bytes", len(data))
	return name, nil
}

func gzipBytes(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contentType(p string) string {
	if strings.EqualFold(filepath.Ext(p), ".json") {
		return "application/json"
	}
	return "application/octet-stream"
}
