package epub

import (
	"strconv"

	"github.com/beevik/etree"
	"github.com/fwojciec/artpub"
)

// XML namespaces used by the container documents.
const (
	nsContainer = "urn:oasis:names:tc:opendocument:xmlns:container"
	nsOPF       = "http://www.idpf.org/2007/opf"
	nsDC        = "http://purl.org/dc/elements/1.1/"
	nsXHTML     = "http://www.w3.org/1999/xhtml"
	nsOPS       = "http://www.idpf.org/2007/ops"
	nsNCX       = "http://www.daisy.org/z3986/2005/ncx/"
)

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func serialize(doc *etree.Document, indent bool) ([]byte, error) {
	if indent {
		doc.Indent(2)
	}
	data, err := doc.WriteToBytes()
	if err != nil {
		return nil, artpub.Errorf(artpub.EASSEMBLY, "serialize document: %v", err)
	}
	return data, nil
}

func containerDocument() ([]byte, error) {
	doc := newDocument()
	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", nsContainer)
	rootfile := container.CreateElement("rootfiles").CreateElement("rootfile")
	rootfile.CreateAttr("full-path", packagePath)
	rootfile.CreateAttr("media-type", "application/oebps-package+xml")
	return serialize(doc, true)
}

// packageDocument builds content.opf: metadata, manifest and spine.
func (p *plan) packageDocument() ([]byte, error) {
	doc := newDocument()
	pkg := doc.CreateElement("package")
	pkg.CreateAttr("xmlns", nsOPF)
	pkg.CreateAttr("version", "3.0")
	pkg.CreateAttr("unique-identifier", "book-id")
	pkg.CreateAttr("xml:lang", p.language)

	metadata := pkg.CreateElement("metadata")
	metadata.CreateAttr("xmlns:dc", nsDC)
	identifier := metadata.CreateElement("dc:identifier")
	identifier.CreateAttr("id", "book-id")
	identifier.SetText(p.identifier)
	metadata.CreateElement("dc:title").SetText(p.title)
	metadata.CreateElement("dc:language").SetText(p.language)
	if p.author != "" {
		metadata.CreateElement("dc:creator").SetText(p.author)
	}
	modified := metadata.CreateElement("meta")
	modified.CreateAttr("property", "dcterms:modified")
	modified.SetText(p.modifiedString())

	manifest := pkg.CreateElement("manifest")
	addItem := func(id, href, mediaType string) *etree.Element {
		item := manifest.CreateElement("item")
		item.CreateAttr("id", id)
		item.CreateAttr("href", href)
		item.CreateAttr("media-type", mediaType)
		return item
	}
	addItem("nav", navFile, xhtmlMediaType).CreateAttr("properties", "nav")
	addItem("ncx", ncxFile, ncxMediaType)
	for _, ch := range p.chapters {
		addItem(ch.id, ch.href, xhtmlMediaType)
	}
	for _, img := range p.images {
		addItem(img.ID, img.Href(), img.MediaType)
	}

	spine := pkg.CreateElement("spine")
	spine.CreateAttr("toc", "ncx")
	if len(p.chapters) == 0 {
		spine.CreateElement("itemref").CreateAttr("idref", "nav")
	}
	for _, ch := range p.chapters {
		spine.CreateElement("itemref").CreateAttr("idref", ch.id)
	}

	return serialize(doc, true)
}

// xhtmlDocument starts an XHTML document and returns it with its body.
func xhtmlDocument(title, lang string, epubNS bool) (*etree.Document, *etree.Element) {
	doc := newDocument()
	doc.CreateDirective("DOCTYPE html")
	root := doc.CreateElement("html")
	root.CreateAttr("xmlns", nsXHTML)
	if epubNS {
		root.CreateAttr("xmlns:epub", nsOPS)
	}
	root.CreateAttr("xml:lang", lang)
	root.CreateAttr("lang", lang)
	head := root.CreateElement("head")
	head.CreateElement("title").SetText(title)
	return doc, root.CreateElement("body")
}

// navDocument builds the EPUB 3 navigation document.
func (p *plan) navDocument() ([]byte, error) {
	doc, body := xhtmlDocument(p.title, p.language, true)
	nav := body.CreateElement("nav")
	nav.CreateAttr("epub:type", "toc")
	nav.CreateAttr("id", "toc")
	nav.CreateElement("h1").SetText(p.title)
	list := nav.CreateElement("ol")
	for _, entry := range p.tocEntries() {
		a := list.CreateElement("li").CreateElement("a")
		a.CreateAttr("href", entry.href)
		a.SetText(entry.title)
	}
	return serialize(doc, true)
}

// ncxDocument builds the EPUB 2 table of contents.
func (p *plan) ncxDocument() ([]byte, error) {
	doc := newDocument()
	ncx := doc.CreateElement("ncx")
	ncx.CreateAttr("xmlns", nsNCX)
	ncx.CreateAttr("version", "2005-1")

	head := ncx.CreateElement("head")
	for _, m := range [][2]string{
		{"dtb:uid", p.identifier},
		{"dtb:depth", "1"},
		{"dtb:totalPageCount", "0"},
		{"dtb:maxPageNumber", "0"},
	} {
		meta := head.CreateElement("meta")
		meta.CreateAttr("name", m[0])
		meta.CreateAttr("content", m[1])
	}
	ncx.CreateElement("docTitle").CreateElement("text").SetText(p.title)

	navMap := ncx.CreateElement("navMap")
	for i, entry := range p.tocEntries() {
		point := navMap.CreateElement("navPoint")
		point.CreateAttr("id", "np-"+entry.id)
		point.CreateAttr("playOrder", strconv.Itoa(i+1))
		point.CreateElement("navLabel").CreateElement("text").SetText(entry.title)
		point.CreateElement("content").CreateAttr("src", entry.href)
	}
	return serialize(doc, true)
}

type tocEntry struct {
	id    string
	href  string
	title string
}

// tocEntries lists the chapters in reading order. A book without chapters
// gets a single entry pointing at the navigation document, since an empty
// list or navMap is not valid.
func (p *plan) tocEntries() []tocEntry {
	if len(p.chapters) == 0 {
		return []tocEntry{{id: "nav", href: navFile, title: p.title}}
	}
	entries := make([]tocEntry, len(p.chapters))
	for i, ch := range p.chapters {
		entries[i] = tocEntry{id: ch.id, href: ch.href, title: ch.Title}
	}
	return entries
}

// document wraps the chapter markup in an XHTML document. The markup is
// parsed as XML, so malformed fragments fail here.
func (ch plannedChapter) document() ([]byte, error) {
	fragment := etree.NewDocument()
	if err := fragment.ReadFromString("<section>" + ch.Markup + "</section>"); err != nil {
		return nil, artpub.Errorf(artpub.EASSEMBLY, "chapter %q has malformed markup: %v", ch.Title, err)
	}
	section := fragment.Root()
	section.CreateAttr("class", "chapter")

	doc, body := xhtmlDocument(ch.Title, ch.language, false)
	body.AddChild(section)
	return serialize(doc, false)
}
