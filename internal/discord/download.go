package discord

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultMaxAttachment is the download cap used when none is configured.
const DefaultMaxAttachment = 25 << 20

// ErrTooLarge is returned for attachments over the download cap.
var ErrTooLarge = errors.New("discord: attachment too large")

// Downloader fetches message attachments from the Discord CDN.
type Downloader struct {
	client  *resty.Client
	maxSize int64
}

// NewDownloader returns a Downloader that refuses files over maxSize bytes.
// A non-positive maxSize selects [DefaultMaxAttachment].
func NewDownloader(maxSize int64) *Downloader {
	if maxSize <= 0 {
		maxSize = DefaultMaxAttachment
	}
	return &Downloader{
		client:  resty.New().SetTimeout(60 * time.Second),
		maxSize: maxSize,
	}
}

// Fetch downloads a to path. A partial file is removed on failure.
func (d *Downloader) Fetch(ctx context.Context, a Attachment, path string) error {
	if a.Size > d.maxSize {
		return fmt.Errorf("%w: %d bytes", ErrTooLarge, a.Size)
	}

	res, err := d.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(a.URL)
	if err != nil {
		return fmt.Errorf("discord: download %q: %w", a.Filename, err)
	}
	body := res.RawBody()
	defer body.Close()
	if res.StatusCode() != http.StatusOK {
		return fmt.Errorf("discord: download %q: status code: %d", a.Filename, res.StatusCode())
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("discord: create %q: %w", path, err)
	}
	n, err := io.Copy(f, io.LimitReader(body, d.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err == nil && n > d.maxSize {
		err = fmt.Errorf("%w: more than %d bytes", ErrTooLarge, d.maxSize)
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("discord: download %q: %w", a.Filename, err)
	}
	return nil
}
