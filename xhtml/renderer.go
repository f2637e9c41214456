// Package xhtml renders extracted articles as XHTML chapter fragments.
package xhtml

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/fwojciec/artpub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var headingAtoms = [...]atom.Atom{atom.H2, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6}

// Ensure Renderer implements artpub.Renderer at compile time.
var _ artpub.Renderer = (*Renderer)(nil)

// Renderer converts ArticleDocuments into chapters. Documents without a
// title are named Untitled-1, Untitled-2, ... in the order they are
// rendered, so a Renderer should serve a single run.
type Renderer struct {
	mu       sync.Mutex
	untitled int
}

// NewRenderer creates a new Renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render produces the chapter markup for doc: the title as <h1>, then each
// block in order. Image blocks are emitted only when their source is a key
// of images.
func (r *Renderer) Render(doc *artpub.ArticleDocument, images map[string]*artpub.ResolvedImage) (*artpub.Chapter, error) {
	if doc == nil {
		return nil, artpub.Errorf(artpub.EINVALID, "nil document")
	}

	title := artpub.SanitizeTitle(doc.Title)
	if title == "" {
		title = r.nextUntitled()
	}

	var buf bytes.Buffer
	var imageIDs []string
	seen := make(map[string]bool)

	nodes := []*html.Node{textElement(atom.H1, title)}
	for _, block := range doc.Blocks {
		switch b := block.(type) {
		case artpub.TextBlock:
			text := artpub.CleanText(b.Text)
			if text == "" {
				continue
			}
			tag := atom.P
			if b.Heading > 0 {
				tag = headingAtoms[min(b.Heading, 6)-1]
			}
			nodes = append(nodes, textElement(tag, text))
		case artpub.ImageBlock:
			img, ok := images[b.Src]
			if !ok || img == nil {
				continue
			}
			nodes = append(nodes, imageElement(img.Href(), artpub.CleanText(b.Alt)))
			if !seen[img.ID] {
				seen[img.ID] = true
				imageIDs = append(imageIDs, img.ID)
			}
		}
	}

	for _, n := range nodes {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("render chapter %q: %w", title, err)
		}
		buf.WriteByte('\n')
	}

	return &artpub.Chapter{
		Title:     title,
		SourceURL: doc.BaseURL,
		Byline:    artpub.CleanText(doc.Byline),
		Language:  doc.Language,
		Markup:    buf.String(),
		ImageIDs:  imageIDs,
	}, nil
}

func (r *Renderer) nextUntitled() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.untitled++
	return fmt.Sprintf("Untitled-%d", r.untitled)
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{
		Type:     html.ElementNode,
		DataAtom: a,
		Data:     a.String(),
		Attr:     attrs,
	}
}

func textElement(a atom.Atom, text string) *html.Node {
	n := element(a)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: text})
	return n
}

func imageElement(src, alt string) *html.Node {
	div := element(atom.Div, html.Attribute{Key: "class", Val: "image"})
	div.AppendChild(element(atom.Img,
		html.Attribute{Key: "src", Val: src},
		html.Attribute{Key: "alt", Val: alt},
	))
	return div
}
