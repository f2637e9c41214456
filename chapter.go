package artpub

// Chapter is one article rendered as markup, corresponding to one input URL.
type Chapter struct {
	// ID is the manifest id. An empty ID is assigned by the Book.
	ID        string
	Title     string
	SourceURL string
	Byline    string
	Language  string

	// Markup is a fragment of the safe XHTML subset (headings,
	// paragraphs, images).
	Markup string

	// ImageIDs lists the distinct images referenced by Markup in
	// document order.
	ImageIDs []string
}

// Renderer converts an extracted article into a chapter.
type Renderer interface {
	// Render produces chapter markup. Image blocks whose source is not a
	// key of images are omitted.
	Render(doc *ArticleDocument, images map[string]*ResolvedImage) (*Chapter, error)
}

// Book accumulates chapters and images and serializes them once.
type Book interface {
	AddImage(img *ResolvedImage)
	AddChapter(ch *Chapter)

	// Finalize validates the container and serializes it.
	// Invariant violations are returned as EASSEMBLY.
	Finalize() ([]byte, error)
}
