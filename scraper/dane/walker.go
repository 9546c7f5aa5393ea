package dane

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/sebmatecho/sipsa-tracker/models"
	"github.com/sebmatecho/sipsa-tracker/utils"
)

var (
	yearTextRegexp = regexp.MustCompile(`^\d{4}$`)

	// Title fragments of the anchor pointing at the current year's page.
	yearTitleMarkers = []string{
		"boletín mayorista semanal",
		"boletin mayorista semanal",
		"mayoristas boletín semanal",
	}
)

// Walker walks the bulletin index: year pages first, then the "Anexo"
// spreadsheet links on each year page.
type Walker struct {
	source        PageSource
	indexURL      string
	reportsPrefix string
	logger        *utils.Logger
	now           func() time.Time
}

// NewWalker creates a Walker reading pages through source.
func NewWalker(source PageSource, indexURL, reportsPrefix string, logger *utils.Logger) *Walker {
	return &Walker{
		source:        source,
		indexURL:      indexURL,
		reportsPrefix: reportsPrefix,
		logger:        logger,
		now:           time.Now,
	}
}

// YearLinks returns the year anchors of the index page, in page order.
func (w *Walker) YearLinks(ctx context.Context) ([]models.YearLink, error) {
	doc, err := w.document(ctx, w.indexURL)
	if err != nil {
		return nil, fmt.Errorf("dane: index: %w", err)
	}

	seen := utils.NewURLSet()
	var links []models.YearLink
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		title := strings.ToLower(a.AttrOr("title", ""))

		label := ""
		switch {
		case yearTextRegexp.MatchString(text):
			label = text
		case containsAny(title, yearTitleMarkers) || containsAny(strings.ToLower(text), yearTitleMarkers):
			// The current year's page is labelled with the bulletin name instead of a year.
			label = strconv.Itoa(w.now().Year())
		default:
			return
		}

		href, err := w.resolve(w.indexURL, a.AttrOr("href", ""))
		if err != nil {
			w.logger.Warn("[dane] Skipping year anchor %q: %v", text, err)
			return
		}
		if !seen.Add(href) {
			return
		}
		year, _ := strconv.Atoi(label)
		links = append(links, models.YearLink{Label: label, Year: year, Href: href})
	})

	w.logger.Info("[dane] Found %d year pages", len(links))
	return links, nil
}

// ReportLinks returns the bulletin anchors of one year page. A page that
// cannot be fetched is logged and yields no links.
func (w *Walker) ReportLinks(ctx context.Context, year models.YearLink) []models.ReportLink {
	doc, err := w.document(ctx, year.Href)
	if err != nil {
		w.logger.Error("[dane] Failed to fetch year %s (%s): %v", year.Label, year.Href, err)
		return nil
	}

	var links []models.ReportLink
	doc.Find(`a[target="_blank"]`).Each(func(_ int, a *goquery.Selection) {
		text := strings.TrimSpace(a.Text())
		href, ok := a.Attr("href")
		if !ok || !strings.Contains(text, "Anexo") {
			return
		}
		abs, err := w.resolve(year.Href, href)
		if err != nil {
			w.logger.Warn("[dane] Skipping report anchor %q: %v", text, err)
			return
		}
		links = append(links, models.ReportLink{Href: abs, Text: text, Ordinal: len(links) + 1})
	})

	w.logger.Info("[dane] Working on %s files: %d bulletins listed", year.Label, len(links))
	return links
}

// FilesForYear turns the report links of a year into SourceFiles. Links are
// listed newest first, so the week number counts down from the total.
func (w *Walker) FilesForYear(ctx context.Context, year models.YearLink) []models.SourceFile {
	links := w.ReportLinks(ctx, year)
	files := make([]models.SourceFile, 0, len(links))
	for _, l := range links {
		week := len(links) - l.Ordinal + 1
		name := originalName(l.Href)
		if name == "" {
			w.logger.Warn("[dane] Skipping report link without a file name: %s", l.Href)
			continue
		}
		files = append(files, models.SourceFile{
			Year:         year.Year,
			YearLabel:    year.Label,
			Week:         week,
			OriginalName: name,
			StorageKey:   models.BuildStorageKey(w.reportsPrefix, year.Label, week, name),
			Link:         l.Href,
		})
	}
	return files
}

// Catalog lists every bulletin on the site, grouped by year in index order.
func (w *Walker) Catalog(ctx context.Context) ([]models.SourceFile, error) {
	years, err := w.YearLinks(ctx)
	if err != nil {
		return nil, err
	}
	var files []models.SourceFile
	for _, y := range years {
		if err := ctx.Err(); err != nil {
			return files, err
		}
		files = append(files, w.FilesForYear(ctx, y)...)
	}
	return files, nil
}

func (w *Walker) document(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := w.source.Fetch(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func (w *Walker) resolve(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty href")
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(ref).String(), nil
}

// originalName is the last path segment of a link, without query or fragment.
func originalName(link string) string {
	if i := strings.IndexAny(link, "?#"); i >= 0 {
		link = link[:i]
	}
	link = strings.TrimRight(link, "/")
	if i := strings.LastIndex(link, "/"); i >= 0 {
		link = link[i+1:]
	}
	return link
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
