// Package epub assembles chapters and images into an EPUB 3 container.
package epub

import (
	"archive/zip"
	"bytes"
	"hash/crc32"
	"io"
	"strconv"
	"time"

	"github.com/fwojciec/artpub"
	"github.com/google/uuid"
)

// Container paths and media types.
const (
	MediaType = "application/epub+zip"

	contentDir    = "OEBPS"
	containerPath = "META-INF/container.xml"
	packagePath   = contentDir + "/content.opf"
	navFile       = "nav.xhtml"
	ncxFile       = "toc.ncx"

	xhtmlMediaType = "application/xhtml+xml"
	ncxMediaType   = "application/x-dtbncx+xml"
)

// DefaultTitle is the book title when neither an explicit title nor a
// chapter title is available.
const DefaultTitle = "Articles"

// DefaultLanguage is the book language when none is configured.
const DefaultLanguage = "en"

// reservedSlugs are chapter file names taken by the navigation documents.
var reservedSlugs = []string{"nav", "toc"}

// Ensure Builder implements artpub.Book at compile time.
var _ artpub.Book = (*Builder)(nil)

// Builder accumulates chapters and images and serializes them as a single
// EPUB file. A Builder can be finalized once.
type Builder struct {
	title           string
	author          string
	language        string
	identifier      string
	modified        time.Time
	requireChapters bool

	chapters  []*artpub.Chapter
	images    map[string]*artpub.ResolvedImage
	conflicts []string
	finalized bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithTitle sets the book title.
func WithTitle(title string) Option {
	return func(b *Builder) {
		b.title = artpub.SanitizeTitle(title)
	}
}

// WithAuthor sets the book creator.
func WithAuthor(author string) Option {
	return func(b *Builder) {
		b.author = artpub.CleanText(author)
	}
}

// WithLanguage sets the book language as a BCP 47 tag.
func WithLanguage(lang string) Option {
	return func(b *Builder) {
		if lang != "" {
			b.language = lang
		}
	}
}

// WithIdentifier sets the unique identifier of the book, replacing the
// random urn:uuid identifier.
func WithIdentifier(id string) Option {
	return func(b *Builder) {
		if id != "" {
			b.identifier = id
		}
	}
}

// WithModified sets the dcterms:modified timestamp, which is also used as
// the modification time of every zip entry.
func WithModified(t time.Time) Option {
	return func(b *Builder) {
		b.modified = t.UTC().Truncate(time.Second)
	}
}

// WithRequireChapters makes Finalize fail when no chapter was added.
func WithRequireChapters(require bool) Option {
	return func(b *Builder) {
		b.requireChapters = require
	}
}

// NewBuilder creates a new Builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		language:   DefaultLanguage,
		identifier: "urn:uuid:" + uuid.NewString(),
		modified:   time.Now().UTC().Truncate(time.Second),
		images:     make(map[string]*artpub.ResolvedImage),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AddImage registers an image. Adding the same id twice is a no-op when the
// payloads match; differing payloads fail at Finalize.
func (b *Builder) AddImage(img *artpub.ResolvedImage) {
	if img == nil {
		return
	}
	if existing, ok := b.images[img.ID]; ok {
		if existing.MediaType != img.MediaType || !bytes.Equal(existing.Data, img.Data) {
			b.conflicts = append(b.conflicts, img.ID)
		}
		return
	}
	b.images[img.ID] = img
}

// AddChapter appends a chapter. Chapters appear in the book in the order
// they are added.
func (b *Builder) AddChapter(ch *artpub.Chapter) {
	if ch == nil {
		return
	}
	c := *ch
	b.chapters = append(b.chapters, &c)
}

// Finalize validates the book and returns the EPUB file contents.
func (b *Builder) Finalize() ([]byte, error) {
	if b.finalized {
		return nil, artpub.Errorf(artpub.EASSEMBLY, "book already finalized")
	}
	b.finalized = true

	if len(b.conflicts) > 0 {
		return nil, artpub.Errorf(artpub.EASSEMBLY, "image id %s registered with different payloads", b.conflicts[0])
	}
	if len(b.chapters) == 0 && b.requireChapters {
		return nil, artpub.Errorf(artpub.EASSEMBLY, "book has no chapters")
	}

	p, err := b.plan()
	if err != nil {
		return nil, err
	}

	files := []file{
		{name: containerPath, build: containerDocument},
		{name: packagePath, build: p.packageDocument},
		{name: contentDir + "/" + navFile, build: p.navDocument},
		{name: contentDir + "/" + ncxFile, build: p.ncxDocument},
	}
	for _, ch := range p.chapters {
		files = append(files, file{name: contentDir + "/" + ch.href, build: ch.document})
	}
	for _, img := range p.images {
		data := img.Data
		files = append(files, file{name: contentDir + "/" + img.Href(), build: func() ([]byte, error) { return data, nil }})
	}

	var buf bytes.Buffer
	if err := b.writeZip(&buf, files); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteTo finalizes the book and writes it to w.
func (b *Builder) WriteTo(w io.Writer) (int64, error) {
	data, err := b.Finalize()
	if err != nil {
		return 0, err
	}
	n, err := w.Write(data)
	return int64(n), err
}

type file struct {
	name  string
	build func() ([]byte, error)
}

// writeZip writes the mimetype entry uncompressed and first, as readers
// require, followed by files in order.
func (b *Builder) writeZip(w io.Writer, files []file) error {
	zw := zip.NewWriter(w)

	// OCF requires mimetype to have no extra field and no data descriptor,
	// so its header is written raw with sizes and legacy DOS time only.
	mimetype := []byte(MediaType)
	date, clock := msdosTime(b.modified)
	mw, err := zw.CreateRaw(&zip.FileHeader{
		Name:               "mimetype",
		Method:             zip.Store,
		CreatorVersion:     20,
		ReaderVersion:      20,
		ModifiedDate:       date,
		ModifiedTime:       clock,
		CRC32:              crc32.ChecksumIEEE(mimetype),
		CompressedSize64:   uint64(len(mimetype)),
		UncompressedSize64: uint64(len(mimetype)),
	})
	if err != nil {
		return artpub.Errorf(artpub.EASSEMBLY, "write mimetype: %v", err)
	}
	if _, err := mw.Write(mimetype); err != nil {
		return artpub.Errorf(artpub.EASSEMBLY, "write mimetype: %v", err)
	}

	for _, f := range files {
		data, err := f.build()
		if err != nil {
			return err
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     f.name,
			Method:   zip.Deflate,
			Modified: b.modified,
		})
		if err != nil {
			return artpub.Errorf(artpub.EASSEMBLY, "write %s: %v", f.name, err)
		}
		if _, err := fw.Write(data); err != nil {
			return artpub.Errorf(artpub.EASSEMBLY, "write %s: %v", f.name, err)
		}
	}

	if err := zw.Close(); err != nil {
		return artpub.Errorf(artpub.EASSEMBLY, "close container: %v", err)
	}
	return nil
}

// msdosTime encodes t in the zip format's DOS date and time fields.
// Times before 1980 are clamped to its epoch.
func msdosTime(t time.Time) (date, clock uint16) {
	if t.Year() < 1980 {
		t = time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	date = uint16(t.Day() + int(t.Month())<<5 + (t.Year()-1980)<<9)
	clock = uint16(t.Second()/2 + t.Minute()<<5 + t.Hour()<<11)
	return date, clock
}

// plannedChapter is a chapter with its final file name and manifest id.
type plannedChapter struct {
	*artpub.Chapter
	href     string
	id       string
	language string
}

// plan holds everything needed to write the container.
type plan struct {
	title      string
	author     string
	language   string
	identifier string
	modified   time.Time
	chapters   []plannedChapter
	images     []*artpub.ResolvedImage
}

// plan assigns file names and ids and checks that every reference
// resolves.
func (b *Builder) plan() (*plan, error) {
	p := &plan{
		title:      b.title,
		author:     b.author,
		language:   b.language,
		identifier: b.identifier,
		modified:   b.modified,
	}

	slugs := make(map[string]bool)
	for _, s := range reservedSlugs {
		slugs[s] = true
	}
	ids := map[string]bool{"nav": true, "ncx": true}
	for id := range b.images {
		ids[id] = true
	}
	embedded := make(map[string]bool)

	for _, ch := range b.chapters {
		slug := uniqueSlug(artpub.Slugify(ch.Title), slugs)
		id := ch.ID
		if id == "" {
			id = "ch-" + slug
		}
		if ids[id] {
			return nil, artpub.Errorf(artpub.EASSEMBLY, "duplicate chapter id %q", id)
		}
		ids[id] = true

		for _, imageID := range ch.ImageIDs {
			img, ok := b.images[imageID]
			if !ok {
				return nil, artpub.Errorf(artpub.EASSEMBLY, "chapter %q references unknown image %q", ch.Title, imageID)
			}
			if !embedded[imageID] {
				embedded[imageID] = true
				p.images = append(p.images, img)
			}
		}

		lang := ch.Language
		if lang == "" {
			lang = b.language
		}
		p.chapters = append(p.chapters, plannedChapter{
			Chapter:  ch,
			href:     slug + ".xhtml",
			id:       id,
			language: lang,
		})
	}

	if p.title == "" && len(b.chapters) > 0 {
		p.title = artpub.SanitizeTitle(b.chapters[0].Title)
	}
	if p.title == "" {
		p.title = DefaultTitle
	}
	if p.author == "" && len(b.chapters) > 0 {
		p.author = artpub.CleanText(b.chapters[0].Byline)
	}

	return p, nil
}

// uniqueSlug returns slug, or slug-2, slug-3, ... when taken, and marks the
// result as taken.
func uniqueSlug(slug string, taken map[string]bool) string {
	candidate := slug
	for n := 2; taken[candidate]; n++ {
		candidate = slug + "-" + strconv.Itoa(n)
	}
	taken[candidate] = true
	return candidate
}

func (p *plan) modifiedString() string {
	return p.modified.Format("2006-01-02T15:04:05Z")
}
