package main

import (
	"fmt"
	"net/url"

	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/convert"
	"github.com/fwojciec/artpub/fs"
)

// ConvertCmd converts the given URLs and writes the book.
type ConvertCmd struct {
	URLs       []string
	Session    *artpub.Session
	Epub       string
	Title      string
	AllowEmpty bool
}

// Run executes the convert command.
func (c *ConvertCmd) Run(deps *Dependencies) error {
	reqs := make([]artpub.SourceRequest, len(c.URLs))
	for i, u := range c.URLs {
		reqs[i] = artpub.SourceRequest{URL: u, Session: c.Session}
	}

	deps.Converter.Progress = func(position, total int, o convert.Outcome) {
		detail := o.Title
		if o.Status == convert.StatusFailed {
			detail = o.Code() + ": " + artpub.ErrorMessage(o.Err)
		}
		fmt.Fprintf(deps.Stdout, "[%d/%d] %-6s %s  %s\n", position, total, o.Status, truncateURL(o.URL, 40), detail)
		for _, f := range o.ImageFailures {
			fmt.Fprintf(deps.Stdout, "        image skipped (%s): %s\n", artpub.ErrorCode(f.Err), f.Ref)
		}
	}

	report, err := deps.Converter.Convert(deps.Ctx, reqs, deps.Book)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", artpub.ErrorMessage(err))
		return err
	}

	fmt.Fprintf(deps.Stdout, "%d chapters (%d empty), %d failed\n",
		report.Chapters(), report.Count(convert.StatusEmpty), report.Count(convert.StatusFailed))

	if report.Chapters() == 0 && !c.AllowEmpty {
		return artpub.Errorf(artpub.EINVALID, "no articles could be converted; nothing written (use --allow-empty to write an empty book)")
	}

	data, err := deps.Book.Finalize()
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", artpub.ErrorMessage(err))
		return err
	}

	path, err := deps.Writer.WriteEbook(fs.EbookName(c.Epub, c.bookTitle(report)), data)
	if err != nil {
		return err
	}
	fmt.Fprintf(deps.Stdout, "Wrote %s\n", path)

	return nil
}

// bookTitle is the explicit title, else the title of the first chapter.
func (c *ConvertCmd) bookTitle(report *convert.Report) string {
	if c.Title != "" {
		return c.Title
	}
	for _, o := range report.Outcomes {
		if o.Status != convert.StatusFailed {
			return o.Title
		}
	}
	return ""
}

// truncateURL shortens a URL for display by showing only the path.
// This makes progress more useful when many URLs share the same host prefix.
func truncateURL(rawURL string, maxLen int) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		if len(rawURL) <= maxLen {
			return rawURL
		}
		return rawURL[:maxLen-3] + "..."
	}

	path := parsed.Host + parsed.Path
	if len(path) <= maxLen {
		return path
	}

	// Truncate from the left to show the unique suffix
	return "..." + path[len(path)-maxLen+3:]
}
