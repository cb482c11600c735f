package service

import (
	"encoding/xml"
	"fmt"
	"time"

	"smartdecor/internal/repository"
)

const sitemapNS = "http://www.sitemaps.org/schemas/sitemap/0.9"

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type staticRoute struct {
	path, priority, changeFreq string
}

var staticRoutes = []staticRoute{
	{"/", "1.0", "daily"},
	{"/shop", "0.8", "daily"},
	{"/about", "0.5", "monthly"},
	{"/blog", "0.6", "weekly"},
	{"/faq", "0.6", "monthly"},
	{"/terms", "0.4", "yearly"},
	{"/privacy", "0.4", "yearly"},
	{"/services", "0.5", "monthly"},
	{"/contact", "0.5", "monthly"},
	{"/testimonials", "0.5", "monthly"},
}

// SitemapService renders sitemap.xml for the storefront.
type SitemapService struct {
	products *repository.ProductRepository
	baseURL  string
	now      func() time.Time
}

func NewSitemapService(products *repository.ProductRepository, baseURL string) *SitemapService {
	return &SitemapService{products: products, baseURL: baseURL, now: time.Now}
}

// Render lists the static pages and one page per product in stock, all stamped with today's UTC date.
func (s *SitemapService) Render() ([]byte, error) {
	products, err := s.products.ListInStock()
	if err != nil {
		return nil, err
	}
	today := s.now().UTC().Format("2006-01-02")
	set := urlSet{XMLNS: sitemapNS, URLs: make([]sitemapURL, 0, len(staticRoutes)+len(products))}
	for _, r := range staticRoutes {
		set.URLs = append(set.URLs, sitemapURL{Loc: s.baseURL + r.path, LastMod: today, ChangeFreq: r.changeFreq, Priority: r.priority})
	}
	for _, p := range products {
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        fmt.Sprintf("%s/product/%d", s.baseURL, p.ID),
			LastMod:    today,
			ChangeFreq: "weekly",
			Priority:   "0.9",
		})
	}
	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
