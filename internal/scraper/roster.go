package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"github.com/gocolly/colly/v2/debug"
	"github.com/sirupsen/logrus"

	"github.com/amuthap/wedding-automation/internal/models"
	"github.com/amuthap/wedding-automation/internal/roster"
)

// Member cards are collected from both selectors, our-team cards first.
var cardSelectors = []string{"div.our-team", "div.team-member"}

const defaultRole = "member"

type RosterScraper struct {
	collector *colly.Collector
	now       func() time.Time
}

type Options struct {
	UserAgent string
	Delay     time.Duration
	Debug     bool
	// Now stamps the Date column; defaults to time.Now.
	Now func() time.Time
}

func NewRosterScraper(opts Options) *RosterScraper {
	collectorOpts := []colly.CollectorOption{colly.AllowURLRevisit()}
	if opts.UserAgent != "" {
		collectorOpts = append(collectorOpts, colly.UserAgent(opts.UserAgent))
	}
	if opts.Debug {
		collectorOpts = append(collectorOpts, colly.Debugger(&debug.LogDebugger{}))
	}
	c := colly.NewCollector(collectorOpts...)

	// Rate limiting
	if opts.Delay > 0 {
		if err := c.Limit(&colly.LimitRule{
			DomainGlob:  "*",
			Parallelism: 1,
			Delay:       opts.Delay,
		}); err != nil {
			logrus.WithError(err).Warn("Invalid scraper limit rule")
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &RosterScraper{collector: c, now: now}
}

// Scrape fetches the roster page and extracts one row per member card.
func (s *RosterScraper) Scrape(pageURL string) ([]models.RosterRow, error) {
	c := s.collector.Clone()
	today := roster.FormatDate(s.now())

	c.OnError(func(r *colly.Response, err error) {
		logrus.WithError(err).WithFields(logrus.Fields{
			"url":         r.Request.URL.String(),
			"status_code": r.StatusCode,
		}).Error("Scraping error")
	})

	found := make(map[string][]models.RosterRow, len(cardSelectors))
	for _, sel := range cardSelectors {
		sel := sel
		c.OnHTML(sel, func(e *colly.HTMLElement) {
			row := extractMember(e.DOM, e.Request.AbsoluteURL)
			row.Date = today
			found[sel] = append(found[sel], row)
		})
	}

	if err := c.Visit(pageURL); err != nil {
		return nil, fmt.Errorf("failed to visit roster page: %w", err)
	}
	c.Wait()

	var rows []models.RosterRow
	for _, sel := range cardSelectors {
		rows = append(rows, found[sel]...)
	}

	logrus.WithFields(logrus.Fields{
		"url":     pageURL,
		"members": len(rows),
	}).Info("Roster page scraped")
	return rows, nil
}

// extractMember reads one member card. absolute resolves relative image
// sources against the page URL.
func extractMember(card *goquery.Selection, absolute func(string) string) models.RosterRow {
	row := models.RosterRow{Role: defaultRole}

	nameTag := card.Find("h2, h3, h4").First()
	row.Name = text(nameTag)
	row.Address = extractClub(card, nameTag)

	if a := card.Find("a[href]").First(); a.Length() > 0 {
		href, _ := a.Attr("href")
		switch {
		case strings.HasPrefix(href, "tel:"):
			row.Phone = strings.TrimPrefix(href, "tel:")
		case strings.Contains(href, "whatsapp.com"):
			row.WhatsApp = href
		}
	}
	if a := card.Find(`a[href][target="_blank"]`).First(); a.Length() > 0 {
		if href, _ := a.Attr("href"); strings.Contains(href, "whatsapp.com") {
			row.WhatsApp = href
		}
	}

	if src, ok := card.Find("img").First().Attr("src"); ok && src != "" {
		row.ImageURL = absolute(src)
	}
	return row
}

// extractClub tries, in order: the first paragraph, the first span, the
// element following the name heading, then any text mentioning "RC of".
func extractClub(card, nameTag *goquery.Selection) string {
	if p := card.Find("p").First(); p.Length() > 0 {
		return text(p)
	}
	if span := card.Find("span").First(); span.Length() > 0 {
		return text(span)
	}
	if nameTag.Length() > 0 {
		if next := nameTag.Next(); next.Is("div, span, p") {
			return text(next)
		}
	}

	return findText(card, func(t string) bool {
		return strings.Contains(t, "RC of") || strings.Contains(t, "RC Of")
	})
}

// findText returns the first text node under s, in document order, that
// satisfies match.
func findText(s *goquery.Selection, match func(string) bool) string {
	var found string
	s.Contents().EachWithBreak(func(_ int, n *goquery.Selection) bool {
		if goquery.NodeName(n) == "#text" {
			if t := n.Text(); match(t) {
				found = strings.TrimSpace(t)
			}
		} else {
			found = findText(n, match)
		}
		return found == ""
	})
	return found
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}
