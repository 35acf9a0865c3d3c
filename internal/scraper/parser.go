package scraper

import (
	"regexp"
	"strconv"
	"strings"

	"cinelist/internal/domain/film"

	"github.com/PuerkitoBio/goquery"
)

// detailHref matches a detail-page link and captures the numeric id. Ids
// shorter than five digits are navigation noise, not films.
var detailHref = regexp.MustCompile(`/item(\d{5,})\.html`)

var yearRe = regexp.MustCompile(`\b(\d{4})\b`)

// Container selectors for the list-item markup, in priority order. The site
// has shipped several layouts over the years and different list types still
// render different ones, so all of them stay in the chain.
var containerSelectors = []string{
	"div.movie-item",
	"div.film-item",
	"article.shortstory",
	"div.th-item",
	"li[data-film-id]",
}

var titleSelectors = []string{
	".movie-title",
	".film-name",
	"h2.title",
	"h3.title",
	".name",
}

var ratingSelectors = []string{
	".rating .value",
	".movie-rating",
	".rate",
}

var yearSelectors = []string{
	".movie-year",
	".year",
	".misc .date",
}

var lazyPosterAttrs = []string{"data-src", "data-original", "data-lazy-src"}

var seriesKeywords = []string{"miniseries", "mini-series", "series", "сериал", "мини-сериал"}

// Parser turns one list page of HTML into film records. It never fails:
// unparseable input yields an empty slice.
type Parser struct {
	// BaseURL is used to build canonical detail URLs from extracted ids.
	BaseURL string
}

func NewParser(baseURL string) *Parser {
	return &Parser{BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// ParseListPage extracts film records using the container-selector chain
// first and a generic anchor scan as fallback, deduplicating by id with
// first occurrence winning.
func (p *Parser) ParseListPage(html string) []film.Record {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return []film.Record{}
	}

	records := p.parseContainers(doc)
	if len(records) == 0 {
		records = p.parseGenericAnchors(doc)
	}
	return film.Dedupe(records)
}

func (p *Parser) parseContainers(doc *goquery.Document) []film.Record {
	var records []film.Record
	seen := map[string]struct{}{}

	for _, selector := range containerSelectors {
		doc.Find(selector).Each(func(_ int, container *goquery.Selection) {
			rec, ok := p.parseContainer(container)
			if !ok {
				return
			}
			if _, dup := seen[rec.ID]; dup {
				return
			}
			seen[rec.ID] = struct{}{}
			records = append(records, rec)
		})
	}
	return records
}

func (p *Parser) parseContainer(container *goquery.Selection) (film.Record, bool) {
	var rec film.Record

	anchor, id := findDetailAnchor(container)
	if anchor == nil {
		return rec, false
	}
	rec.ID = id
	rec.SourceURL = p.detailURL(id)

	// The anchor's visible text is unreliable here: the site wraps the
	// title twice inside it. The title attribute does not share that bug.
	for _, sel := range titleSelectors {
		if t := strings.TrimSpace(container.Find(sel).First().Text()); t != "" {
			rec.Title = t
			break
		}
	}
	if rec.Title == "" {
		rec.Title = strings.TrimSpace(anchor.AttrOr("title", ""))
	}
	rec.Title = collapseDoubledTitle(rec.Title)

	rec.Poster = normalizePosterURL(posterFrom(container))

	for _, sel := range ratingSelectors {
		raw := strings.TrimSpace(container.Find(sel).First().Text())
		if raw == "" {
			continue
		}
		raw = strings.ReplaceAll(raw, ",", ".")
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			rec.Rating = &v
			break
		}
	}

	for _, sel := range yearSelectors {
		raw := strings.TrimSpace(container.Find(sel).First().Text())
		if raw == "" {
			continue
		}
		if m := yearRe.FindString(raw); m != "" {
			if y, err := strconv.Atoi(m); err == nil {
				rec.Year = &y
				break
			}
		}
	}

	rec.Type = inferType(container)
	return rec, true
}

// parseGenericAnchors is the degraded strategy for layouts none of the
// containers match: every detail anchor in the document becomes a record
// with whatever title and poster can be scraped off the anchor itself.
// Rating and year are unavailable in this mode.
func (p *Parser) parseGenericAnchors(doc *goquery.Document) []film.Record {
	var records []film.Record
	doc.Find("a[href]").Each(func(_ int, anchor *goquery.Selection) {
		href := anchor.AttrOr("href", "")
		m := detailHref.FindStringSubmatch(href)
		if m == nil {
			return
		}
		id := m[1]

		title := strings.TrimSpace(anchor.AttrOr("title", ""))
		if title == "" {
			title = strings.TrimSpace(anchor.Text())
		}

		poster := ""
		if img := anchor.Find("img").First(); img.Length() > 0 {
			poster = imgSrc(img)
		} else if img := anchor.Parent().Find("img").First(); img.Length() > 0 {
			poster = imgSrc(img)
		}

		records = append(records, film.Record{
			ID:        id,
			Title:     collapseDoubledTitle(title),
			Poster:    normalizePosterURL(poster),
			Type:      film.TypeMovie,
			SourceURL: p.detailURL(id),
		})
	})
	return records
}

// ParseTotalPages returns the page count advertised by the pagination
// markup: the largest purely numeric link text not exceeding 99. Years and
// film ids elsewhere on the page are above that ceiling by construction.
func (p *Parser) ParseTotalPages(html string) int {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return 1
	}

	max := 1
	doc.Find("a, span").Each(func(_ int, s *goquery.Selection) {
		n, err := strconv.Atoi(strings.TrimSpace(s.Text()))
		if err != nil {
			return
		}
		if n > max && n <= 99 {
			max = n
		}
	})
	return max
}

func (p *Parser) detailURL(id string) string {
	if p.BaseURL == "" {
		return "/item" + id + ".html"
	}
	return p.BaseURL + "/item" + id + ".html"
}

func findDetailAnchor(container *goquery.Selection) (*goquery.Selection, string) {
	var anchor *goquery.Selection
	var id string
	container.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		m := detailHref.FindStringSubmatch(a.AttrOr("href", ""))
		if m == nil {
			return true
		}
		anchor = a
		id = m[1]
		return false
	})
	return anchor, id
}

func posterFrom(container *goquery.Selection) string {
	img := container.Find("img").First()
	if img.Length() == 0 {
		return ""
	}
	return imgSrc(img)
}

func imgSrc(img *goquery.Selection) string {
	if src := strings.TrimSpace(img.AttrOr("src", "")); src != "" {
		return src
	}
	for _, attr := range lazyPosterAttrs {
		if src := strings.TrimSpace(img.AttrOr(attr, "")); src != "" {
			return src
		}
	}
	return ""
}

func normalizePosterURL(src string) string {
	src = strings.TrimSpace(src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "//") {
		return "https:" + src
	}
	return src
}

func inferType(container *goquery.Selection) film.MediaType {
	text := strings.ToLower(container.Text())
	for _, kw := range seriesKeywords {
		if strings.Contains(text, kw) {
			return film.TypeSeries
		}
	}
	// Second signal: some layouts tag the kind in a dedicated element.
	kind := strings.ToLower(strings.TrimSpace(container.Find(".type, .category").First().Text()))
	for _, kw := range seriesKeywords {
		if strings.Contains(kind, kw) {
			return film.TypeSeries
		}
	}
	return film.TypeMovie
}

// collapseDoubledTitle repairs the layout artifact where the source
// duplicates the title inside the anchor ("Blue Moon Blue Moon").
func collapseDoubledTitle(title string) string {
	t := strings.TrimSpace(title)
	runes := []rune(t)
	if len(runes) < 2 {
		return t
	}
	half := len(runes) / 2
	a := strings.TrimSpace(string(runes[:half]))
	b := strings.TrimSpace(string(runes[half:]))
	if a != "" && a == b {
		return a
	}
	return t
}
