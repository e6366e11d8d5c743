package services

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"net/http"
	"time"

	"github.com/bogem/id3v2/v2"
	"github.com/charmbracelet/log"
	"github.com/karlseguin/ccache/v3"

	"github.com/desertthunder/soundpy/internal/models"
)

const (
	coverCacheSize = 100
	coverTTL       = time.Hour
)

// Tagger writes ID3 metadata and cover art into downloaded mp3 files.
//
// Converted covers are kept for an hour, so tracks sharing a thumbnail fetch it once.
type Tagger struct {
	fetcher *Fetcher
	logger  *log.Logger
	covers  *ccache.Cache[[]byte]
}

// NewTagger creates a tagger that downloads covers with fetcher.
func NewTagger(fetcher *Fetcher, logger *log.Logger) *Tagger {
	if fetcher == nil {
		fetcher = NewFetcher(nil)
	}
	if logger == nil {
		logger = log.Default()
	}
	covers := ccache.New(
		ccache.Configure[[]byte]().
			MaxSize(coverCacheSize).
			GetsPerPromote(3).
			ItemsToPrune(1),
	)
	return &Tagger{fetcher: fetcher, logger: logger, covers: covers}
}

// Close stops the cover cache worker.
func (t *Tagger) Close() {
	t.covers.Stop()
}

// Tag sets title, artist and album on the file at path and embeds the thumbnail as the front cover.
//
// The album frame carries the thumbnail URL. A cover that cannot be fetched or
// decoded is skipped with a warning so the text frames are still written.
func (t *Tagger) Tag(ctx context.Context, path string, info models.VideoInfo) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tag %s: %w", path, err)
	}
	defer tag.Close()

	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	tag.SetTitle(info.Title)
	tag.SetArtist(info.Author)
	tag.SetAlbum(info.Thumb)

	if info.Thumb != "" {
		cover, err := t.cover(ctx, info.Thumb)
		if err != nil {
			t.logger.Warn("skipping cover art", "video", info.ID, "error", err)
		} else {
			tag.AddAttachedPicture(id3v2.PictureFrame{
				Encoding:    id3v2.EncodingUTF8,
				MimeType:    "image/jpeg",
				PictureType: id3v2.PTFrontCover,
				Description: "Front cover",
				Picture:     cover,
			})
		}
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tag %s: %w", path, err)
	}
	return nil
}

// cover fetches the image at rawURL and returns it as JPEG bytes.
func (t *Tagger) cover(ctx context.Context, rawURL string) ([]byte, error) {
	if item := t.covers.Get(rawURL); item != nil && !item.Expired() {
		return item.Value(), nil
	}

	resp, err := t.fetcher.Get(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	cover, err := toJPEG(resp.Body)
	if err != nil {
		return nil, err
	}
	t.covers.Set(rawURL, cover, coverTTL)
	return cover, nil
}

// toJPEG re-encodes data as JPEG unless it already is one.
func toJPEG(data []byte) ([]byte, error) {
	if http.DetectContentType(data) == "image/jpeg" {
		return data, nil
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode cover: %w", err)
	}
	return buf.Bytes(), nil
}
