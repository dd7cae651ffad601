// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package assets resolves image references from a Markdown document into
// embeddable raster data. Local paths resolve against the document root;
// remote URLs are fetched only when enabled.
package assets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"

	"github.com/pdiddy/readme-export/internal/httputil"
)

// maxImageBytes caps remote downloads.
const maxImageBytes = 32 << 20

var (
	// ErrSkipped marks a reference that was deliberately not resolved, such
	// as a remote URL while remote images are disabled.
	ErrSkipped = errors.New("image skipped")

	// ErrUnsupported marks image data no renderer can embed (SVG, ICO, ...).
	ErrUnsupported = errors.New("unsupported image format")
)

// Image is resolved raster data ready to embed.
type Image struct {
	// Src is the reference as written in the document.
	Src string

	// Data is PNG, JPEG or GIF encoded.
	Data []byte

	// MIME is the content type of Data.
	MIME string

	// Ext is the file extension matching MIME, including the dot.
	Ext string

	// Width and Height are pixel dimensions.
	Width  int
	Height int

	// Digest is the hex SHA-256 of Data. Identical images share a digest.
	Digest string
}

// Options configures a Resolver.
type Options struct {
	// Root is the directory relative references resolve against.
	Root string

	// Remote enables fetching http and https references.
	Remote bool

	// Client performs remote fetches. Defaults to http.DefaultClient.
	Client *http.Client

	// UserAgent is sent with remote requests when set.
	UserAgent string

	// Token is sent as a bearer token to GitHub hosts when set.
	Token string
}

type result struct {
	img *Image
	err error
}

// Resolver resolves and caches image references. It is not safe for
// concurrent use.
type Resolver struct {
	opts  Options
	cache map[string]result
}

// NewResolver returns a Resolver for opts.
func NewResolver(opts Options) *Resolver {
	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}
	return &Resolver{opts: opts, cache: make(map[string]result)}
}

// Resolve loads the image behind src. Results, including failures, are cached
// per reference string.
func (r *Resolver) Resolve(ctx context.Context, src string) (*Image, error) {
	src = strings.TrimSpace(src)
	if cached, ok := r.cache[src]; ok {
		return cached.img, cached.err
	}
	img, err := r.resolve(ctx, src)
	if err != nil {
		err = fmt.Errorf("resolving image %s: %w", src, err)
	}
	r.cache[src] = result{img: img, err: err}
	return img, err
}

func (r *Resolver) resolve(ctx context.Context, src string) (*Image, error) {
	if src == "" {
		return nil, fmt.Errorf("empty reference: %w", ErrSkipped)
	}

	var (
		data []byte
		err  error
	)
	switch {
	case strings.HasPrefix(src, "data:"):
		data, err = decodeDataURI(src)
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		if !r.opts.Remote {
			return nil, fmt.Errorf("remote images disabled: %w", ErrSkipped)
		}
		data, err = r.fetch(ctx, src)
	default:
		data, err = os.ReadFile(r.localPath(src))
	}
	if err != nil {
		return nil, err
	}

	img, err := Normalize(data)
	if err != nil {
		return nil, err
	}
	img.Src = src
	return img, nil
}

// localPath maps a relative reference to a filesystem path. Query strings and
// fragments (GitHub's "?raw=true") are dropped and %-escapes decoded.
func (r *Resolver) localPath(src string) string {
	p := strings.TrimPrefix(src, "file://")
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if unescaped, err := url.PathUnescape(p); err == nil {
		p = unescaped
	}
	p = filepath.FromSlash(p)
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.opts.Root, p)
}

func (r *Resolver) fetch(ctx context.Context, src string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, err
	}
	if r.opts.UserAgent != "" {
		req.Header.Set("User-Agent", r.opts.UserAgent)
	}
	if r.opts.Token != "" && isGitHubHost(req.URL.Hostname()) {
		req.Header.Set("Authorization", "Bearer "+r.opts.Token)
	}

	resp, err := httputil.DoWithRetry(ctx, r.opts.Client, req, 0)
	if err != nil {
		return nil, fmt.Errorf("fetching: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching: HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

func isGitHubHost(host string) bool {
	return host == "github.com" || strings.HasSuffix(host, ".github.com") ||
		strings.HasSuffix(host, ".githubusercontent.com")
}

func decodeDataURI(src string) ([]byte, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(src, "data:"), ",")
	if !ok {
		return nil, errors.New("malformed data URI")
	}
	if strings.HasSuffix(meta, ";base64") {
		return base64.StdEncoding.DecodeString(payload)
	}
	s, err := url.PathUnescape(payload)
	if err != nil {
		return nil, err
	}
	return []byte(s), nil
}

// Normalize sniffs data and returns it as PNG, JPEG or GIF. BMP, TIFF and
// WebP are transcoded to PNG, as are interlaced and 16-bit PNGs, which PDF
// writers reject.
func Normalize(data []byte) (*Image, error) {
	mtype := mimetype.Detect(data)

	switch {
	case mtype.Is("image/png"):
		if pngNeedsReencode(data) {
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("decoding png: %w", err)
			}
			return encodePNG(img)
		}
	case mtype.Is("image/jpeg"), mtype.Is("image/gif"):
	case mtype.Is("image/bmp"):
		return transcode(data, bmp.Decode)
	case mtype.Is("image/tiff"):
		return transcode(data, tiff.Decode)
	case mtype.Is("image/webp"):
		return transcode(data, webp.Decode)
	default:
		return nil, fmt.Errorf("%s: %w", mtype.String(), ErrUnsupported)
	}
	return describe(data, mtype.String(), mtype.Extension())
}

func transcode(data []byte, decode func(io.Reader) (image.Image, error)) (*Image, error) {
	img, err := decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) (*Image, error) {
	b := img.Bounds()
	rgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return describe(buf.Bytes(), "image/png", ".png")
}

func describe(data []byte, mime, ext string) (*Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("reading image header: %w", err)
	}
	if ext == ".jpeg" {
		ext = ".jpg"
	}
	sum := sha256.Sum256(data)
	return &Image{
		Data:   data,
		MIME:   mime,
		Ext:    ext,
		Width:  cfg.Width,
		Height: cfg.Height,
		Digest: hex.EncodeToString(sum[:]),
	}, nil
}

// pngNeedsReencode reports whether the IHDR chunk declares 16-bit samples or
// Adam7 interlacing.
func pngNeedsReencode(data []byte) bool {
	const (
		bitDepthOffset  = 24
		interlaceOffset = 28
	)
	if len(data) <= interlaceOffset {
		return false
	}
	return data[bitDepthOffset] == 16 || data[interlaceOffset] != 0
}
