package artpub

// ArticleDocument represents the main content extracted from a page.
type ArticleDocument struct {
	Title     string
	BaseURL   string
	Byline    string
	Published string
	Language  string
	Blocks    []ContentBlock
}

// ImageRefs returns the distinct image sources in document order.
func (d *ArticleDocument) ImageRefs() []string {
	var refs []string
	seen := make(map[string]bool)
	for _, b := range d.Blocks {
		img, ok := b.(ImageBlock)
		if !ok || seen[img.Src] {
			continue
		}
		seen[img.Src] = true
		refs = append(refs, img.Src)
	}
	return refs
}

// ContentBlock is one unit of article content: a TextBlock or an ImageBlock.
// The set of block types is closed.
type ContentBlock interface {
	contentBlock()
}

// TextBlock is a paragraph or heading of plain text.
type TextBlock struct {
	Text string

	// Heading is the heading level (1-6), or 0 for a paragraph.
	Heading int
}

// ImageBlock is an inline image reference as written in the page.
type ImageBlock struct {
	Src string
	Alt string
}

func (TextBlock) contentBlock()  {}
func (ImageBlock) contentBlock() {}
