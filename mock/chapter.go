package mock

import "github.com/fwojciec/artpub"

var (
	_ artpub.Renderer = (*Renderer)(nil)
	_ artpub.Book     = (*Book)(nil)
)

// Renderer is a mock implementation of artpub.Renderer.
type Renderer struct {
	RenderFn func(doc *artpub.ArticleDocument, images map[string]*artpub.ResolvedImage) (*artpub.Chapter, error)
}

func (r *Renderer) Render(doc *artpub.ArticleDocument, images map[string]*artpub.ResolvedImage) (*artpub.Chapter, error) {
	return r.RenderFn(doc, images)
}

// Book is a mock implementation of artpub.Book.
type Book struct {
	AddImageFn   func(img *artpub.ResolvedImage)
	AddChapterFn func(ch *artpub.Chapter)
	FinalizeFn   func() ([]byte, error)
}

func (b *Book) AddImage(img *artpub.ResolvedImage) {
	b.AddImageFn(img)
}

func (b *Book) AddChapter(ch *artpub.Chapter) {
	b.AddChapterFn(ch)
}

func (b *Book) Finalize() ([]byte, error) {
	return b.FinalizeFn()
}
