// Package detector decides when a probed page needs a headless render.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/chromara/hq/internal/agent"
	"github.com/chromara/hq/internal/extract"
)

const (
	defaultBodyThreshold = 2048
	// minVisibleText is the amount of extracted text below which a large
	// document is assumed to be an empty client-side shell.
	minVisibleText = 200
	// minScriptShare is the script percentage that marks a small page as a bootstrapper.
	minScriptShare = 25
)

// frameworkRoots match mount points left by client-side frameworks.
const frameworkRoots = "#__next, #__nuxt, [data-reactroot], [ng-version]"

// emptyMounts are conventional mount points that only count when empty.
const emptyMounts = "#root, #app"

// Heuristic implements a handful of rule-based promotions.
type Heuristic struct {
	BodyLengthThreshold int
}

// NewHeuristic creates a new detector.
func NewHeuristic(threshold int) *Heuristic {
	if threshold <= 0 {
		threshold = defaultBodyThreshold
	}
	return &Heuristic{BodyLengthThreshold: threshold}
}

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp agent.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	body := resp.Body
	if len(body) == 0 {
		return true
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return true
	}
	if doc.Find(frameworkRoots).Length() > 0 || hasEmptyMount(doc) {
		return true
	}
	if strings.Contains(strings.ToLower(doc.Find("noscript").Text()), "enable javascript") {
		return true
	}
	if len(body) < h.BodyLengthThreshold {
		return scriptShare(doc, len(body)) >= minScriptShare
	}
	text, err := extract.FromHTML(body)
	return err == nil && len(text.Text) < minVisibleText
}

func hasEmptyMount(doc *goquery.Document) bool {
	empty := false
	doc.Find(emptyMounts).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Children().Length() == 0 && strings.TrimSpace(s.Text()) == "" {
			empty = true
			return false
		}
		return true
	})
	return empty
}

// scriptShare returns the percentage of a total-byte document taken up by
// script elements, capped at 100.
func scriptShare(doc *goquery.Document, total int) int {
	if total <= 0 {
		return 0
	}
	covered := 0
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if outer, err := goquery.OuterHtml(s); err == nil {
			covered += len(outer)
		}
	})
	share := covered * 100 / total
	if share > 100 {
		share = 100
	}
	return share
}
