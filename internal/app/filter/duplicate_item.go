package filter

import (
	"context"
	"regexp"
	"strings"

	"github.com/osa030/castbox/internal/domain/track"
)

// QueueLister lists the queued items.
type QueueLister interface {
	List() []track.Item
}

// DuplicateItemFilter checks for duplicate items queued for the same device.
// Detects:
// - Identical track ref or media URL
// - Remasters and alternate versions (normalized title + same artist)
// Items for different devices never collide.
type DuplicateItemFilter struct {
	queue QueueLister
}

// NewDuplicateItemFilter creates a new duplicate item filter.
func NewDuplicateItemFilter(queue QueueLister) *DuplicateItemFilter {
	return &DuplicateItemFilter{queue: queue}
}

func (f *DuplicateItemFilter) Name() string {
	return "duplicate_item_filter"
}

func (f *DuplicateItemFilter) Description() string {
	return "Rejects items already queued for the same device, including remasters of the same song"
}

func (f *DuplicateItemFilter) ReturnCodes() []string {
	return []string{"duplicate_item"}
}

func (f *DuplicateItemFilter) ValidateConfig(settings map[string]any) error {
	return nil
}

func (f *DuplicateItemFilter) AppliesTo(kind RequestKind) bool {
	return kind != RequestPlayNow
}

func (f *DuplicateItemFilter) Check(ctx context.Context, req Request) Result {
	if f.queue == nil {
		return Accept()
	}

	for _, queued := range f.queue.List() {
		if queued.DeviceName != req.Item.DeviceName {
			continue
		}
		if queued.SameTarget(req.Item) || isSameSong(queued, req.Item) {
			return Reject("duplicate_item")
		}
	}
	return Accept()
}

// isSameSong reports whether two items are versions of the same song by the
// same artist. Items without a known artist are never matched this way.
func isSameSong(a, b track.Item) bool {
	if a.Artist == "" || b.Artist == "" || !strings.EqualFold(a.Artist, b.Artist) {
		return false
	}
	nameA := normalizeTitle(a.Title)
	return nameA != "" && nameA == normalizeTitle(b.Title)
}

var (
	remasterPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*-?\s*\d{4}\s+remaster(ed)?`),      // "- 2011 Remaster"
		regexp.MustCompile(`\s*\(remaster(ed)?\s*\d{0,4}\)`),     // "(Remastered 2023)"
		regexp.MustCompile(`\s*\[remaster(ed)?\s*\d{0,4}\]`),     // "[Remastered]"
		regexp.MustCompile(`\s*-?\s*remaster(ed)?(\s+version)?`), // "- Remastered"
		regexp.MustCompile(`\s*\(.*?remaster.*?\)`),              // "(Any Remaster text)"
		regexp.MustCompile(`\s*\[.*?remaster.*?\]`),              // "[Any Remaster text]"
	}
	versionPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\s*\(.*?version\)`),        // "(Single Version)"
		regexp.MustCompile(`\s*\(.*?edit\)`),           // "(Radio Edit)"
		regexp.MustCompile(`\s*\(live\)`),              // "(Live)"
		regexp.MustCompile(`\s*-\s*live\b`),            // "- Live"
		regexp.MustCompile(`\s*-?\s*radio\s+edit`),     // "- Radio Edit"
		regexp.MustCompile(`\s*-?\s*single\s+version`), // "- Single Version"
	}
	spaces = regexp.MustCompile(`\s+`)
)

// normalizeTitle strips remaster and version annotations.
func normalizeTitle(title string) string {
	normalized := strings.ToLower(title)

	for _, pattern := range remasterPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}
	for _, pattern := range versionPatterns {
		normalized = pattern.ReplaceAllString(normalized, "")
	}

	normalized = strings.TrimSpace(normalized)
	normalized = spaces.ReplaceAllString(normalized, " ")
	return strings.TrimRight(normalized, " -")
}

func init() {
	Register("duplicate_item_filter", func() Filter {
		return &DuplicateItemFilter{}
	})
}
