package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MediaTypeScreenshots is the directory trade screenshots are stored in
const MediaTypeScreenshots = "screenshots"

// screenshotTypes maps accepted upload content types to their default extension
var screenshotTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/jpg":  ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// IsAllowedScreenshot reports whether contentType is an accepted screenshot image type
func IsAllowedScreenshot(contentType string) bool {
	_, ok := screenshotTypes[normalizeContentType(contentType)]
	return ok
}

// ErrUnsupportedType is returned when uploaded bytes are not a JPEG, PNG or WebP image
var ErrUnsupportedType = errors.New("unsupported screenshot type")

// sniffLen is the number of bytes http.DetectContentType looks at
const sniffLen = 512

// DetectScreenshot sniffs the leading bytes of r and returns the detected image type
// together with a reader that replays the full content.
func DetectScreenshot(r io.Reader) (string, io.Reader, error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", nil, fmt.Errorf("failed to read screenshot: %w", err)
	}
	head = head[:n]

	contentType := normalizeContentType(http.DetectContentType(head))
	if !IsAllowedScreenshot(contentType) {
		return "", nil, ErrUnsupportedType
	}
	return contentType, io.MultiReader(bytes.NewReader(head), r), nil
}

// ScreenshotFileName builds the stored name of a trade screenshot: trade_<id>_<YYYYMMDD_HHMMSS><ext>.
// The extension is derived from contentType only, never from a client supplied name.
func ScreenshotFileName(tradeID int, at time.Time, contentType string) string {
	return fmt.Sprintf("trade_%d_%s%s", tradeID, at.Format("20060102_150405"), screenshotTypes[normalizeContentType(contentType)])
}

func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// sizeWriter counts the bytes written through it
type sizeWriter struct {
	size int64
}

// Write implements io.Writer interface
func (sw *sizeWriter) Write(p []byte) (int, error) {
	n := len(p)
	sw.size += int64(n)
	return n, nil
}

// Size returns the total number of bytes written
func (sw *sizeWriter) Size() int64 {
	return sw.size
}

// NewSizeWriter creates a new sizeWriter instance
func NewSizeWriter() *sizeWriter {
	return &sizeWriter{}
}
