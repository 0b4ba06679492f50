package ebook

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/errgroup"

	"github.com/coreybb/promptbook/storage"
)

const (
	defaultImagesDir      = "uploads/images"
	uploadsSegment        = "uploads/"
	defaultMaxAssetBytes  = 10 << 20
	defaultReadAttempts   = 2
	defaultAssetWorkers   = 4
	defaultReadRetryDelay = 50 * time.Millisecond
)

// ErrAssetUnavailable marks an asset that could not be resolved. It is never
// fatal to a document; the composer renders a notice instead.
var ErrAssetUnavailable = errors.New("asset unavailable")

// Asset is the outcome of resolving one stored file reference.
type Asset struct {
	Ref      string
	Path     string
	MimeType string
	Data     []byte
	Err      error
}

// OK reports whether the asset was read successfully.
func (a Asset) OK() bool {
	return a.Err == nil && len(a.Data) > 0
}

// DataURI returns the asset as a self-contained data URI, or "" on failure.
func (a Asset) DataURI() string {
	if !a.OK() {
		return ""
	}
	return "data:" + a.MimeType + ";base64," + base64.StdEncoding.EncodeToString(a.Data)
}

// ResolveUploadPath maps a stored reference to a slash-separated path under
// the public root. Web paths ("/uploads/images/x.png") become root-relative,
// paths containing "uploads/" are taken from that segment, and anything else
// is treated as a file name in uploads/images. ok is false for empty
// references and for paths that would escape the root.
func ResolveUploadPath(ref string) (string, bool) {
	ref = strings.ReplaceAll(strings.TrimSpace(ref), `\`, "/")
	if ref == "" {
		return "", false
	}

	var rel string
	switch {
	case strings.HasPrefix(ref, "/"):
		rel = strings.TrimLeft(ref, "/")
	case strings.Contains(ref, uploadsSegment):
		rel = ref[strings.Index(ref, uploadsSegment):]
	default:
		name := lastSegment(ref)
		if name == "" {
			return "", false
		}
		rel = path.Join(defaultImagesDir, name)
	}

	rel = path.Clean(rel)
	if !fs.ValidPath(rel) || rel == "." {
		return "", false
	}
	return rel, true
}

// MimeTypeFor returns the image MIME type for a file name, defaulting to image/jpeg.
func MimeTypeFor(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// AssetResolver reads referenced images from the upload tree.
type AssetResolver struct {
	store    storage.UploadStore
	maxBytes int64
	attempts uint
	workers  int
	logger   *slog.Logger
}

// NewAssetResolver creates an AssetResolver. Zero limits select defaults.
func NewAssetResolver(store storage.UploadStore, maxBytes int64, workers int, logger *slog.Logger) *AssetResolver {
	if maxBytes <= 0 {
		maxBytes = defaultMaxAssetBytes
	}
	if workers <= 0 {
		workers = defaultAssetWorkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AssetResolver{
		store:    store,
		maxBytes: maxBytes,
		attempts: defaultReadAttempts,
		workers:  workers,
		logger:   logger.With("component", "AssetResolver"),
	}
}

// Resolve reads one reference. It never returns an error; failures are
// reported through Asset.Err wrapping ErrAssetUnavailable.
func (r *AssetResolver) Resolve(ctx context.Context, ref string) Asset {
	asset := Asset{Ref: ref}

	rel, ok := ResolveUploadPath(ref)
	if !ok {
		asset.Err = fmt.Errorf("%w: invalid reference %q", ErrAssetUnavailable, ref)
		return asset
	}
	asset.Path = rel
	asset.MimeType = MimeTypeFor(rel)

	if r.store == nil {
		asset.Err = fmt.Errorf("%w: no upload store configured", ErrAssetUnavailable)
		return asset
	}

	if _, err := r.store.Stat(rel); err != nil {
		r.logger.Debug("asset missing", "ref", ref, "path", rel, "error", err)
		asset.Err = fmt.Errorf("%w: %s: %v", ErrAssetUnavailable, rel, err)
		return asset
	}

	data, err := retry.DoWithData(
		func() ([]byte, error) {
			return r.store.ReadFile(rel, r.maxBytes)
		},
		retry.Context(ctx),
		retry.Attempts(r.attempts),
		retry.Delay(defaultReadRetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isTransientReadError),
	)
	if err != nil {
		r.logger.Warn("failed to read asset", "ref", ref, "path", rel, "error", err)
		asset.Err = fmt.Errorf("%w: %s: %v", ErrAssetUnavailable, rel, err)
		return asset
	}
	if len(data) == 0 {
		asset.Err = fmt.Errorf("%w: %s is empty", ErrAssetUnavailable, rel)
		return asset
	}

	asset.Data = data
	r.logger.Debug("asset resolved", "ref", ref, "path", rel, "bytes", len(data), "mime", asset.MimeType)
	return asset
}

// ResolveAll resolves the distinct non-empty references concurrently.
func (r *AssetResolver) ResolveAll(ctx context.Context, refs []string) map[string]Asset {
	unique := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		if ref != "" {
			unique[ref] = struct{}{}
		}
	}
	keys := make([]string, 0, len(unique))
	for ref := range unique {
		keys = append(keys, ref)
	}
	sort.Strings(keys)

	results := make([]Asset, len(keys))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers)
	for i, ref := range keys {
		g.Go(func() error {
			results[i] = r.Resolve(gctx, ref)
			return nil
		})
	}
	_ = g.Wait()

	out := make(map[string]Asset, len(keys))
	for i, ref := range keys {
		out[ref] = results[i]
	}
	return out
}

func isTransientReadError(err error) bool {
	return !errors.Is(err, fs.ErrNotExist) &&
		!errors.Is(err, fs.ErrPermission) &&
		!errors.Is(err, storage.ErrTooLarge) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}
