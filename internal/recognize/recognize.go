// Package recognize holds the text-recognition contract and the hashtag
// extractor that runs over recognized text.
package recognize

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"inkpad/internal/drawing"
)

// Recognizer converts a drawing snapshot into recognized text. The real
// implementation is an external OCR engine; it may return empty text and may
// error on unrenderable input.
type Recognizer interface {
	Recognize(ctx context.Context, snap *drawing.Snapshot) (string, error)
}

// Static is a Recognizer returning a fixed result, used by tests and by
// headless builds with no OCR engine attached.
type Static struct {
	Text string
	Err  error
}

func (s Static) Recognize(_ context.Context, _ *drawing.Snapshot) (string, error) {
	return s.Text, s.Err
}

var hashtagRe = regexp.MustCompile(`#(\w+)`)

// ExtractHashtags returns the distinct lowercase word tokens that follow a
// '#' in text. Pure and synchronous; the result is sorted so callers get a
// set with a stable order.
func ExtractHashtags(text string) []string {
	seen := make(map[string]struct{})
	for _, m := range hashtagRe.FindAllStringSubmatch(text, -1) {
		seen[strings.ToLower(m[1])] = struct{}{}
	}
	if len(seen) == 0 {
		return nil
	}
	tags := make([]string, 0, len(seen))
	for t := range seen {
		tags = append(tags, t)
	}
	sort.Strings(tags)
	return tags
}
