package scrape

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"trueneutral/internal/dataset"
)

// Source knows the page layout of one listing site.
type Source interface {
	Name() string
	// ListURL is the address of page (1-based) of a named list.
	ListURL(list string, page int) string
	// ParseList extracts absolute book page links from a list page.
	ParseList(body []byte) ([]string, error)
	// ParseBook extracts one record from a book page fetched from pageURL.
	ParseBook(pageURL string, body []byte) (dataset.RawRecord, error)
}

// NewSource returns the source registered under name. baseURL overrides the site root.
func NewSource(name, baseURL string) (Source, error) {
	if baseURL != "" {
		if _, err := url.Parse(baseURL); err != nil {
			return nil, fmt.Errorf("invalid base url: %w", err)
		}
	}
	switch name {
	case "goodreads":
		return NewGoodreads(baseURL), nil
	case "risingshadow":
		return NewRisingShadow(baseURL), nil
	default:
		return nil, fmt.Errorf("unknown source: %s", name)
	}
}

// GoodreadsDelay is the request spacing goodreads.com tolerates without blocking.
const GoodreadsDelay = 20 * time.Second

// Goodreads parses goodreads.com list and book pages.
type Goodreads struct {
	base *url.URL
}

func NewGoodreads(baseURL string) *Goodreads {
	if baseURL == "" {
		baseURL = "https://www.goodreads.com"
	}
	return &Goodreads{base: mustBase(baseURL)}
}

func (g *Goodreads) Name() string { return "goodreads" }

func (g *Goodreads) ListURL(list string, page int) string {
	return g.base.JoinPath("list", "show", list).String() + fmt.Sprintf("?page=%d", page)
}

func (g *Goodreads) ParseList(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return links(g.base, findAll(doc, func(n *html.Node) bool { return hasClass(n, "bookTitle") && attr(n, "href") != "" })), nil
}

var goodreadsIDRe = regexp.MustCompile(`/book/show/\s*([^-./?]+)`)

func (g *Goodreads) ParseBook(pageURL string, body []byte) (dataset.RawRecord, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return dataset.RawRecord{}, err
	}
	rec := dataset.RawRecord{URL: pageURL}
	if m := goodreadsIDRe.FindStringSubmatch(pageURL); m != nil {
		rec.ID = dataset.FlexString(m[1])
	}
	rec.Title = text(findFirst(doc, tagWithAttr(atom.H1, "id", "bookTitle")))
	rec.Authors = texts(findAll(doc, tagWithClass(atom.A, "authorName")))
	rec.Genres = texts(findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "bookPageGenreLink") && strings.Contains(attr(n, "href"), "/genres/")
	}))
	// The last span holds the full description; the first is the truncated teaser.
	if desc := findFirst(doc, tagWithAttr(atom.Div, "id", "descriptionContainer")); desc != nil {
		if spans := findAll(desc, func(n *html.Node) bool { return n.DataAtom == atom.Span }); len(spans) > 0 {
			rec.Description = text(spans[len(spans)-1])
		}
	}
	if rec.Title == "" {
		return rec, fmt.Errorf("%s: no book title found", pageURL)
	}
	return rec, nil
}

// RisingShadow parses risingshadow.net library pages.
type RisingShadow struct {
	base *url.URL
}

func NewRisingShadow(baseURL string) *RisingShadow {
	if baseURL == "" {
		baseURL = "https://www.risingshadow.net"
	}
	return &RisingShadow{base: mustBase(baseURL)}
}

func (r *RisingShadow) Name() string { return "risingshadow" }

func (r *RisingShadow) ListURL(list string, page int) string {
	return r.base.JoinPath("library", "searchlist", list).String() + fmt.Sprintf("?page=%d", page)
}

func (r *RisingShadow) ParseList(body []byte) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	return links(r.base, findAll(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.A && hasClass(n, "nav") && attr(n, "href") != ""
	})), nil
}

var risingShadowIDRe = regexp.MustCompile(`/library/book/(.+?)-`)

func (r *RisingShadow) ParseBook(pageURL string, body []byte) (dataset.RawRecord, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return dataset.RawRecord{}, err
	}
	rec := dataset.RawRecord{URL: pageURL}
	if m := risingShadowIDRe.FindStringSubmatch(pageURL); m != nil {
		rec.ID = dataset.FlexString(m[1])
	}
	rec.Title = text(findFirst(doc, tagWithClass(atom.H1, "lib_title")))
	if span := findFirst(doc, tagWithClass(atom.Span, "lib_book_author")); span != nil {
		rec.Authors = texts(findAll(span, func(n *html.Node) bool { return n.DataAtom == atom.A }))
	}
	rec.Genres = texts(findAll(doc, tagWithAttr(atom.Span, "itemprop", "genre")))
	rec.Description = text(findFirst(doc, tagWithClass(atom.Div, "lib_description")))
	if rec.Title == "" {
		return rec, fmt.Errorf("%s: no book title found", pageURL)
	}
	return rec, nil
}

func mustBase(raw string) *url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		panic(fmt.Sprintf("scrape: invalid base url %q: %v", raw, err))
	}
	return u
}

func links(base *url.URL, nodes []*html.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ref, err := url.Parse(strings.TrimSpace(attr(n, "href")))
		if err != nil {
			continue
		}
		out = append(out, base.ResolveReference(ref).String())
	}
	return out
}
