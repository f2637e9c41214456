package goquery

import (
	"strings"

	"github.com/fwojciec/artpub"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// blockElements end the current paragraph when entered and when left.
var blockElements = map[atom.Atom]bool{
	atom.Address: true, atom.Article: true, atom.Aside: true, atom.Blockquote: true,
	atom.Dd: true, atom.Details: true, atom.Div: true, atom.Dl: true, atom.Dt: true,
	atom.Figcaption: true, atom.Figure: true, atom.Footer: true, atom.Header: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Hr: true, atom.Li: true, atom.Main: true, atom.Ol: true, atom.P: true,
	atom.Pre: true, atom.Section: true, atom.Summary: true, atom.Table: true,
	atom.Tbody: true, atom.Td: true, atom.Th: true, atom.Thead: true, atom.Tr: true,
	atom.Ul: true,
}

// skippedElements contribute neither text nor images.
var skippedElements = map[atom.Atom]bool{
	atom.Script: true, atom.Style: true, atom.Noscript: true, atom.Template: true,
	atom.Head: true, atom.Svg: true, atom.Math: true,
}

var headingLevels = map[atom.Atom]int{
	atom.H1: 1, atom.H2: 2, atom.H3: 3, atom.H4: 4, atom.H5: 5, atom.H6: 6,
}

// Blocks walks the given subtrees in document order and returns their
// content as text and image blocks. Inline text is gathered until a block
// boundary or an image; every <img> with a non-empty src becomes an
// ImageBlock at its position.
func Blocks(nodes ...*html.Node) []artpub.ContentBlock {
	w := &blockWalker{}
	for _, n := range nodes {
		w.walk(n)
	}
	w.flush()
	return w.blocks
}

type blockWalker struct {
	blocks  []artpub.ContentBlock
	text    strings.Builder
	heading int
}

func (w *blockWalker) walk(n *html.Node) {
	switch n.Type {
	case html.TextNode:
		w.text.WriteString(n.Data)
		return
	case html.ElementNode:
	case html.DocumentNode:
		w.walkChildren(n)
		return
	default:
		return
	}

	if skippedElements[n.DataAtom] {
		return
	}

	switch n.DataAtom {
	case atom.Img:
		if src := strings.TrimSpace(attr(n, "src")); src != "" {
			w.flush()
			w.blocks = append(w.blocks, artpub.ImageBlock{
				Src: src,
				Alt: artpub.CleanText(attr(n, "alt")),
			})
		}
		return
	case atom.Br:
		w.text.WriteByte(' ')
		return
	}

	if level, ok := headingLevels[n.DataAtom]; ok {
		w.flush()
		w.heading = level
		w.walkChildren(n)
		w.flush()
		w.heading = 0
		return
	}

	if blockElements[n.DataAtom] {
		w.flush()
		w.walkChildren(n)
		w.flush()
		return
	}

	w.walkChildren(n)
}

func (w *blockWalker) walkChildren(n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

// flush emits the gathered inline text as a TextBlock.
func (w *blockWalker) flush() {
	text := artpub.CleanText(w.text.String())
	w.text.Reset()
	if text == "" {
		return
	}
	w.blocks = append(w.blocks, artpub.TextBlock{Text: text, Heading: w.heading})
}
