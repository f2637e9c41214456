package epub_test

import (
	"archive/zip"
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/epub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var modified = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

// container is an EPUB opened for inspection.
type container struct {
	names []string
	files map[string][]byte
	zip   *zip.Reader
}

func open(t *testing.T, data []byte) *container {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	c := &container{files: make(map[string][]byte), zip: zr}
	for _, f := range zr.File {
		rc, err := f.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		c.names = append(c.names, f.Name)
		c.files[f.Name] = content
	}
	return c
}

func (c *container) xml(t *testing.T, name string) *etree.Document {
	t.Helper()
	content, ok := c.files[name]
	require.True(t, ok, "missing %s", name)
	doc := etree.NewDocument()
	require.NoError(t, doc.ReadFromBytes(content))
	return doc
}

func attrs(elements []*etree.Element, key string) []string {
	var out []string
	for _, e := range elements {
		out = append(out, e.SelectAttrValue(key, ""))
	}
	return out
}

func texts(elements []*etree.Element) []string {
	var out []string
	for _, e := range elements {
		out = append(out, e.Text())
	}
	return out
}

func newBuilder(opts ...epub.Option) *epub.Builder {
	return epub.NewBuilder(append([]epub.Option{
		epub.WithIdentifier("urn:uuid:00000000-0000-0000-0000-000000000001"),
		epub.WithModified(modified),
	}, opts...)...)
}

var png = &artpub.ResolvedImage{ID: "img-0001", MediaType: "image/png", Data: []byte("\x89PNG\r\n\x1a\npng")}

func TestBuilder_Finalize(t *testing.T) {
	t.Parallel()

	t.Run("writes the container layout", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddImage(png)
		b.AddChapter(&artpub.Chapter{
			Title:    "First Story",
			Markup:   `<h1>First Story</h1><p>Text.</p><div class="image"><img src="images/img-0001.png" alt=""/></div>`,
			ImageIDs: []string{"img-0001"},
		})

		data, err := b.Finalize()
		require.NoError(t, err)
		c := open(t, data)

		assert.Equal(t, []string{
			"mimetype",
			"META-INF/container.xml",
			"OEBPS/content.opf",
			"OEBPS/nav.xhtml",
			"OEBPS/toc.ncx",
			"OEBPS/first-story.xhtml",
			"OEBPS/images/img-0001.png",
		}, c.names)
		assert.Equal(t, "application/epub+zip", string(c.files["mimetype"]))
		assert.Equal(t, zip.Store, c.zip.File[0].Method)
		assert.Equal(t, png.Data, c.files["OEBPS/images/img-0001.png"])

		rootfile := c.xml(t, "META-INF/container.xml").FindElement("//rootfile")
		require.NotNil(t, rootfile)
		assert.Equal(t, "OEBPS/content.opf", rootfile.SelectAttrValue("full-path", ""))
	})

	t.Run("writes package metadata", func(t *testing.T) {
		t.Parallel()

		b := newBuilder(epub.WithTitle("Weekend Reading"), epub.WithAuthor("Editor"), epub.WithLanguage("de"))
		b.AddChapter(&artpub.Chapter{Title: "One", Byline: "Jane Roe", Markup: "<p>x</p>"})

		data, err := b.Finalize()
		require.NoError(t, err)
		opf := open(t, data).xml(t, "OEBPS/content.opf")

		assert.Equal(t, "urn:uuid:00000000-0000-0000-0000-000000000001", opf.FindElement("//dc:identifier").Text())
		assert.Equal(t, "Weekend Reading", opf.FindElement("//dc:title").Text())
		assert.Equal(t, "de", opf.FindElement("//dc:language").Text())
		assert.Equal(t, "Editor", opf.FindElement("//dc:creator").Text())
		assert.Equal(t, "2024-03-01T10:00:00Z", opf.FindElement("//meta[@property='dcterms:modified']").Text())
		assert.Equal(t, "3.0", opf.Root().SelectAttrValue("version", ""))
	})

	t.Run("defaults title and creator from first chapter", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddChapter(&artpub.Chapter{Title: "Lead Story", Byline: "Jane Roe", Markup: "<p>x</p>"})
		b.AddChapter(&artpub.Chapter{Title: "Second", Byline: "John Doe", Markup: "<p>y</p>"})

		data, err := b.Finalize()
		require.NoError(t, err)
		opf := open(t, data).xml(t, "OEBPS/content.opf")

		assert.Equal(t, "Lead Story", opf.FindElement("//dc:title").Text())
		assert.Equal(t, "Jane Roe", opf.FindElement("//dc:creator").Text())
		assert.Equal(t, "en", opf.FindElement("//dc:language").Text())
	})

	t.Run("keeps chapter order in spine and tables of contents", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		for _, title := range []string{"Charlie", "Alpha", "Bravo"} {
			b.AddChapter(&artpub.Chapter{Title: title, Markup: "<p>" + title + "</p>"})
		}

		data, err := b.Finalize()
		require.NoError(t, err)
		c := open(t, data)

		opf := c.xml(t, "OEBPS/content.opf")
		assert.Equal(t, []string{"ch-charlie", "ch-alpha", "ch-bravo"}, attrs(opf.FindElements("//spine/itemref"), "idref"))

		nav := c.xml(t, "OEBPS/nav.xhtml")
		links := nav.FindElements("//nav/ol/li/a")
		assert.Equal(t, []string{"Charlie", "Alpha", "Bravo"}, texts(links))
		assert.Equal(t, []string{"charlie.xhtml", "alpha.xhtml", "bravo.xhtml"}, attrs(links, "href"))

		ncx := c.xml(t, "OEBPS/toc.ncx")
		assert.Equal(t, []string{"1", "2", "3"}, attrs(ncx.FindElements("//navPoint"), "playOrder"))
		assert.Equal(t, []string{"charlie.xhtml", "alpha.xhtml", "bravo.xhtml"}, attrs(ncx.FindElements("//navPoint/content"), "src"))
	})

	t.Run("suffixes colliding file names", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddChapter(&artpub.Chapter{Title: "Same Title", Markup: "<p>a</p>"})
		b.AddChapter(&artpub.Chapter{Title: "Same Title", Markup: "<p>b</p>"})
		b.AddChapter(&artpub.Chapter{Title: "Same Title!", Markup: "<p>c</p>"})
		b.AddChapter(&artpub.Chapter{Title: "Nav", Markup: "<p>d</p>"})

		data, err := b.Finalize()
		require.NoError(t, err)
		c := open(t, data)

		for _, name := range []string{"same-title.xhtml", "same-title-2.xhtml", "same-title-3.xhtml", "nav-2.xhtml"} {
			assert.Contains(t, c.files, "OEBPS/"+name)
		}
		assert.Contains(t, string(c.files["OEBPS/same-title-2.xhtml"]), "<p>b</p>")
		assert.Contains(t, string(c.files["OEBPS/nav.xhtml"]), `epub:type="toc"`)
	})

	t.Run("embeds only referenced images in first reference order", func(t *testing.T) {
		t.Parallel()

		jpeg := &artpub.ResolvedImage{ID: "img-0002", MediaType: "image/jpeg", Data: []byte("\xff\xd8\xffjpeg")}
		orphan := &artpub.ResolvedImage{ID: "img-0003", MediaType: "image/gif", Data: []byte("GIF89a")}

		b := newBuilder()
		b.AddImage(png)
		b.AddImage(jpeg)
		b.AddImage(orphan)
		b.AddChapter(&artpub.Chapter{Title: "One", Markup: "<p>x</p>", ImageIDs: []string{"img-0002"}})
		b.AddChapter(&artpub.Chapter{Title: "Two", Markup: "<p>y</p>", ImageIDs: []string{"img-0001", "img-0002"}})

		data, err := b.Finalize()
		require.NoError(t, err)
		c := open(t, data)

		opf := c.xml(t, "OEBPS/content.opf")
		assert.Equal(t, []string{
			"nav", "ncx", "ch-one", "ch-two", "img-0002", "img-0001",
		}, attrs(opf.FindElements("//manifest/item"), "id"))
		assert.NotContains(t, c.files, "OEBPS/images/img-0003.gif")
		assert.Equal(t, "image/jpeg", opf.FindElement("//item[@id='img-0002']").SelectAttrValue("media-type", ""))
	})

	t.Run("keeps explicit chapter ids", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddChapter(&artpub.Chapter{ID: "intro", Title: "Intro", Markup: "<p>x</p>"})

		data, err := b.Finalize()
		require.NoError(t, err)
		opf := open(t, data).xml(t, "OEBPS/content.opf")

		assert.Equal(t, []string{"intro"}, attrs(opf.FindElements("//spine/itemref"), "idref"))
	})

	t.Run("wraps chapter markup in an XHTML document", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddChapter(&artpub.Chapter{Title: "Tom & Jerry", Language: "fr", Markup: "<h1>Tom &amp; Jerry</h1>\n<p>&#34;Quoted&#34;</p>\n"})

		data, err := b.Finalize()
		require.NoError(t, err)
		doc := open(t, data).xml(t, "OEBPS/tom-jerry.xhtml")

		assert.Equal(t, "fr", doc.Root().SelectAttrValue("xml:lang", ""))
		assert.Equal(t, "Tom & Jerry", doc.FindElement("//head/title").Text())
		assert.Equal(t, `"Quoted"`, doc.FindElement("//body/section/p").Text())
	})

	t.Run("produces an empty book without chapters", func(t *testing.T) {
		t.Parallel()

		data, err := newBuilder().Finalize()
		require.NoError(t, err)
		c := open(t, data)

		opf := c.xml(t, "OEBPS/content.opf")
		assert.Equal(t, []string{"nav"}, attrs(opf.FindElements("//spine/itemref"), "idref"))
		assert.Equal(t, "Articles", opf.FindElement("//dc:title").Text())
		assert.Nil(t, opf.FindElement("//dc:creator"))
		assert.Equal(t, []string{"nav.xhtml"}, attrs(c.xml(t, "OEBPS/nav.xhtml").FindElements("//ol/li/a"), "href"))
		points := c.xml(t, "OEBPS/toc.ncx").FindElements("//navPoint")
		require.Len(t, points, 1)
		assert.Equal(t, "np-nav", points[0].SelectAttrValue("id", ""))
		assert.Equal(t, "nav.xhtml", points[0].FindElement("content").SelectAttrValue("src", ""))
	})

	t.Run("writes mimetype as a bare stored entry", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddChapter(&artpub.Chapter{Title: "One", Markup: "<p>x</p>"})
		data, err := b.Finalize()
		require.NoError(t, err)

		le16 := func(off int) int { return int(data[off]) | int(data[off+1])<<8 }
		le32 := func(off int) int { return le16(off) | le16(off+2)<<16 }

		require.Greater(t, len(data), 58)
		assert.Equal(t, "PK\x03\x04", string(data[0:4]))
		assert.Zero(t, le16(6)&0x8, "data descriptor flag set")
		assert.Equal(t, 0, le16(8), "mimetype must be stored")
		assert.Equal(t, len(epub.MediaType), le32(18))
		assert.Equal(t, len(epub.MediaType), le32(22))
		assert.Equal(t, 8, le16(26))
		assert.Equal(t, 0, le16(28), "mimetype must not carry an extra field")
		assert.Equal(t, "mimetype"+epub.MediaType, string(data[30:58]))
	})

	t.Run("is reproducible", func(t *testing.T) {
		t.Parallel()

		build := func() []byte {
			b := newBuilder()
			b.AddImage(png)
			b.AddChapter(&artpub.Chapter{Title: "One", Markup: "<p>x</p>", ImageIDs: []string{"img-0001"}})
			data, err := b.Finalize()
			require.NoError(t, err)
			return data
		}

		assert.Equal(t, build(), build())
	})

	t.Run("generates a uuid identifier by default", func(t *testing.T) {
		t.Parallel()

		data, err := epub.NewBuilder().Finalize()
		require.NoError(t, err)
		id := open(t, data).xml(t, "OEBPS/content.opf").FindElement("//dc:identifier").Text()

		assert.True(t, strings.HasPrefix(id, "urn:uuid:"), id)
		assert.Len(t, id, len("urn:uuid:")+36)
	})
}

func TestBuilder_Finalize_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(b *epub.Builder)
		opts  []epub.Option
	}{
		{
			name: "duplicate chapter ids",
			build: func(b *epub.Builder) {
				b.AddChapter(&artpub.Chapter{ID: "same", Title: "A", Markup: "<p>a</p>"})
				b.AddChapter(&artpub.Chapter{ID: "same", Title: "B", Markup: "<p>b</p>"})
			},
		},
		{
			name: "chapter id clashing with an image id",
			build: func(b *epub.Builder) {
				b.AddImage(png)
				b.AddChapter(&artpub.Chapter{ID: "img-0001", Title: "A", Markup: "<p>a</p>"})
			},
		},
		{
			name: "image referenced but never added",
			build: func(b *epub.Builder) {
				b.AddChapter(&artpub.Chapter{Title: "A", Markup: "<p>a</p>", ImageIDs: []string{"img-0009"}})
			},
		},
		{
			name: "same image id with different payloads",
			build: func(b *epub.Builder) {
				b.AddImage(png)
				b.AddImage(&artpub.ResolvedImage{ID: "img-0001", MediaType: "image/png", Data: []byte("other")})
				b.AddChapter(&artpub.Chapter{Title: "A", Markup: "<p>a</p>"})
			},
		},
		{
			name: "malformed chapter markup",
			build: func(b *epub.Builder) {
				b.AddChapter(&artpub.Chapter{Title: "A", Markup: "<p>unclosed"})
			},
		},
		{
			name:  "no chapters when chapters are required",
			build: func(*epub.Builder) {},
			opts:  []epub.Option{epub.WithRequireChapters(true)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			b := newBuilder(tt.opts...)
			tt.build(b)

			_, err := b.Finalize()

			require.Error(t, err)
			assert.Equal(t, artpub.EASSEMBLY, artpub.ErrorCode(err))
		})
	}

	t.Run("second finalize", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		_, err := b.Finalize()
		require.NoError(t, err)

		_, err = b.Finalize()

		require.Error(t, err)
		assert.Equal(t, artpub.EASSEMBLY, artpub.ErrorCode(err))
	})

	t.Run("re-adding an identical image is allowed", func(t *testing.T) {
		t.Parallel()

		b := newBuilder()
		b.AddImage(png)
		b.AddImage(&artpub.ResolvedImage{ID: png.ID, MediaType: png.MediaType, Data: append([]byte{}, png.Data...)})

		_, err := b.Finalize()

		require.NoError(t, err)
	})
}

func TestBuilder_WriteTo(t *testing.T) {
	t.Parallel()

	b := newBuilder()
	b.AddChapter(&artpub.Chapter{Title: "One", Markup: "<p>x</p>"})

	var buf bytes.Buffer
	n, err := b.WriteTo(&buf)

	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)
	assert.Contains(t, open(t, buf.Bytes()).files, "OEBPS/one.xhtml")
}
