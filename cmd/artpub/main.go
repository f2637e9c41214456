package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"os/signal"

	"github.com/alecthomas/kong"
	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/convert"
	"github.com/fwojciec/artpub/epub"
	"github.com/fwojciec/artpub/fs"
	"github.com/fwojciec/artpub/goquery"
	artpubhttp "github.com/fwojciec/artpub/http"
	"github.com/fwojciec/artpub/images"
	"github.com/fwojciec/artpub/readability"
	artslog "github.com/fwojciec/artpub/slog"
	"github.com/fwojciec/artpub/sqlite"
	"github.com/fwojciec/artpub/trafilatura"
	"github.com/fwojciec/artpub/xhtml"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	m := NewMain()

	if err := m.Run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Main represents the program.
type Main struct {
	// Fetcher replaces the HTTP fetcher. Set before calling Run().
	Fetcher artpub.Fetcher

	// SQLite database backing the response cache, when enabled.
	DB *sqlite.DB
}

// NewMain returns a new instance of Main with defaults.
func NewMain() *Main {
	return &Main{}
}

// Close gracefully stops the program.
func (m *Main) Close() error {
	if m.DB != nil {
		return m.DB.Close()
	}
	return nil
}

// Run executes the CLI with the given arguments.
func (m *Main) Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cli := &CLI{}
	parser, err := kong.New(cli,
		kong.Name("artpub"),
		kong.Description("Convert web articles into a single EPUB file"),
		kong.Writers(stdout, stderr),
		kong.Exit(func(int) {}),
	)
	if err != nil {
		return fmt.Errorf("failed to create parser: %w", err)
	}

	// Handle no arguments
	if len(args) == 0 {
		_, _ = parser.Parse([]string{"--help"})
		return fmt.Errorf("no arguments provided")
	}

	// Handle help flags
	if len(args) == 1 && (args[0] == "--help" || args[0] == "-h" || args[0] == "help") {
		_, _ = parser.Parse([]string{"--help"})
		return nil
	}

	if _, err := parser.Parse(args); err != nil {
		return err
	}

	for _, u := range cli.URLs {
		if err := validateURL(u); err != nil {
			return err
		}
	}

	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: logLevel(cli.Verbose)}))

	// Wire dependencies
	fetcher := m.Fetcher
	if fetcher == nil {
		fetcher = artpubhttp.NewFetcher(artpubhttp.WithTimeout(cli.Timeout))
	}

	if cli.Cache != "" {
		m.DB = sqlite.NewDB(cli.Cache)
		if err := m.DB.Open(); err != nil {
			return fmt.Errorf("failed to open cache at %q: %w", cli.Cache, err)
		}
		defer m.Close()

		cache := sqlite.NewFetchCache(m.DB, fetcher, sqlite.WithTTL(cli.CacheTTL))
		if n, err := cache.Prune(ctx); err != nil {
			logger.Warn("prune cache", "err", err)
		} else if n > 0 {
			logger.Debug("pruned cache", "responses", n)
		}
		fetcher = cache
	}

	politeFetcher := &convert.Fetcher{
		Fetcher:     fetcher,
		RetryDelays: convert.RetryDelays(cli.Retries),
		Logger:      logger,
	}
	if cli.Rate > 0 {
		politeFetcher.Limiter = convert.NewDomainLimiter(cli.Rate)
	}
	fetcher = artslog.NewLoggingFetcher(politeFetcher, logger)

	extractor, err := newExtractor(cli.Extractor)
	if err != nil {
		return err
	}

	var bookOpts []epub.Option
	if cli.Title != "" {
		bookOpts = append(bookOpts, epub.WithTitle(cli.Title))
	}
	if cli.Author != "" {
		bookOpts = append(bookOpts, epub.WithAuthor(cli.Author))
	}
	bookOpts = append(bookOpts, epub.WithLanguage(cli.Language))

	deps := &Dependencies{
		Ctx:    ctx,
		Stdout: stdout,
		Stderr: stderr,
		Converter: &convert.Converter{
			Fetcher:   fetcher,
			Extractor: artslog.NewLoggingExtractor(extractor, logger),
			Images:    artslog.NewLoggingImageResolver(images.NewResolver(fetcher, images.WithConcurrency(cli.Concurrency)), logger),
			Renderer:  xhtml.NewRenderer(),
			Logger:    logger,
		},
		Book:   epub.NewBuilder(bookOpts...),
		Writer: fs.NewWriter(cli.OutDir),
	}

	cmd := &ConvertCmd{
		URLs:       cli.URLs,
		Session:    newSession(cli.Cookies, cli.Header),
		Epub:       cli.Epub,
		Title:      cli.Title,
		AllowEmpty: cli.AllowEmpty,
	}

	return cmd.Run(deps)
}

func newExtractor(name string) (artpub.Extractor, error) {
	switch name {
	case "", "density":
		return goquery.NewExtractor(), nil
	case "readability":
		return readability.NewExtractor(), nil
	case "trafilatura":
		return trafilatura.NewExtractor(), nil
	}
	return nil, artpub.Errorf(artpub.EINVALID, "unknown extractor %q", name)
}

func newSession(cookie string, headers map[string]string) *artpub.Session {
	if cookie == "" && len(headers) == 0 {
		return nil
	}
	return &artpub.Session{Cookie: cookie, Headers: headers}
}

// validateURL accepts absolute http and https URLs only.
func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return artpub.Errorf(artpub.EINVALID, "invalid URL %q: must start with http:// or https://", raw)
	}
	return nil
}

// logLevel maps the -v count to a level: warnings by default, info with
// -v, debug with -vv.
func logLevel(verbose int) slog.Level {
	switch {
	case verbose >= 2:
		return slog.LevelDebug
	case verbose == 1:
		return slog.LevelInfo
	}
	return slog.LevelWarn
}
