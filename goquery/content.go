package goquery

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Scoring thresholds for MainContent.
const (
	// minParagraphLength is the minimum text length for a paragraph to
	// contribute to its ancestors' scores.
	minParagraphLength = 25

	// maxLinkDensity discards candidates where links make up more than
	// this fraction of the text.
	maxLinkDensity = 0.5
)

// noiseSelectors are removed before scoring. They never hold article content.
var noiseSelectors = []string{
	"script", "style", "noscript", "template", "link", "meta",
	"iframe", "object", "embed", "svg", "canvas",
	"form", "button", "input", "select", "textarea",
	"nav", "footer", "aside", "dialog",
	"[hidden]", `[aria-hidden="true"]`,
	`[role="navigation"]`, `[role="banner"]`, `[role="contentinfo"]`, `[role="complementary"]`,
}

var (
	unlikelyCandidates = regexp.MustCompile(`(?i)\b(nav|navbar|menu|footer|sidebar|comments?|ads?|advert|advertisement|sponsor(ed)?|promo|share|sharing|social|related|breadcrumbs?|cookie|banner|newsletter|subscribe|popup|modal)\b`)
	maybeCandidate     = regexp.MustCompile(`(?i)\b(article|body|content|entry|main|post|story|text)\b`)
	positiveClass      = regexp.MustCompile(`(?i)\b(article|body|content|entry|main|page|post|story|text|blog)\b`)
	negativeClass      = regexp.MustCompile(`(?i)\b(comment|meta|footer|footnote|masthead|sidebar|sponsor|shoutbox|widget|hidden|byline|author|tags?)\b`)
)

// RemoveNoise deletes elements that never carry article content: scripts,
// styles, navigation, footers, forms, hidden elements and elements whose
// class or id names a non-content role.
func RemoveNoise(doc *goquery.Document) {
	for _, sel := range noiseSelectors {
		doc.Find(sel).Remove()
	}

	doc.Find("[class], [id]").Each(func(_ int, sel *goquery.Selection) {
		switch goquery.NodeName(sel) {
		case "html", "body", "article", "main":
			return
		}
		names := sel.AttrOr("class", "") + " " + sel.AttrOr("id", "")
		if unlikelyCandidates.MatchString(names) && !maybeCandidate.MatchString(names) {
			sel.Remove()
		}
	})
}

// MainContent returns the subtree most likely to hold the article, or an
// empty selection when nothing qualifies.
//
// Paragraph-like elements with enough text award points to their parent
// and half as many to their grandparent. Each candidate's total is then
// scaled by the share of its text that is not link text, so navigation
// blocks and link lists lose to prose. Ties go to the earlier candidate.
func MainContent(doc *goquery.Document) *goquery.Selection {
	scores := make(map[*html.Node]float64)
	var candidates []*html.Node

	addScore := func(n *html.Node, score float64) {
		if n == nil || n.Type != html.ElementNode {
			return
		}
		if _, ok := scores[n]; !ok {
			scores[n] = initialScore(n)
			candidates = append(candidates, n)
		}
		scores[n] += score
	}

	doc.Find("p, pre, td, div").Each(func(_ int, sel *goquery.Selection) {
		n := sel.Nodes[0]
		if n.DataAtom == atom.Div && hasBlockChild(n) {
			return
		}
		text := strings.TrimSpace(sel.Text())
		length := utf8.RuneCountInString(text)
		if length < minParagraphLength {
			return
		}

		score := 1 + float64(strings.Count(text, ",")) + math.Min(float64(length/100), 3)
		addScore(n.Parent, score)
		if n.Parent != nil {
			addScore(n.Parent.Parent, score/2)
		}
	})

	var best *html.Node
	bestScore := 0.0
	for _, n := range candidates {
		density := linkDensity(n)
		if density > maxLinkDensity {
			continue
		}
		score := scores[n] * (1 - density)
		if best == nil || score > bestScore {
			best, bestScore = n, score
		}
	}

	if best != nil {
		return doc.FindNodes(best)
	}

	// No scored candidate: fall back to explicit article markup.
	for _, sel := range []string{"article", "main", `[role="main"]`} {
		if found := doc.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return doc.FindNodes()
}

// initialScore weighs a candidate by its tag and its class and id names.
func initialScore(n *html.Node) float64 {
	var score float64
	switch n.DataAtom {
	case atom.Article, atom.Main:
		score = 10
	case atom.Div:
		score = 5
	case atom.Pre, atom.Td, atom.Blockquote:
		score = 3
	case atom.Address, atom.Ol, atom.Ul, atom.Dl, atom.Dd, atom.Dt, atom.Li, atom.Form:
		score = -3
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6, atom.Th:
		score = -5
	}
	return score + classWeight(n)
}

func classWeight(n *html.Node) float64 {
	var weight float64
	for _, key := range []string{"class", "id"} {
		value := attr(n, key)
		if value == "" {
			continue
		}
		if negativeClass.MatchString(value) {
			weight -= 25
		}
		if positiveClass.MatchString(value) {
			weight += 25
		}
	}
	return weight
}

// linkDensity is the fraction of n's text that sits inside links.
func linkDensity(n *html.Node) float64 {
	total := utf8.RuneCountInString(strings.TrimSpace(nodeText(n)))
	if total == 0 {
		return 0
	}
	var linked int
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.ElementNode && c.DataAtom == atom.A {
			linked += utf8.RuneCountInString(strings.TrimSpace(nodeText(c)))
			return
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return float64(linked) / float64(total)
}

// hasBlockChild reports whether n directly contains block-level elements.
func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && blockElements[c.DataAtom] {
			return true
		}
	}
	return false
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(c *html.Node) {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
		for child := c.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
