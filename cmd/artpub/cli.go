package main

import (
	"context"
	"io"
	"time"

	"github.com/fwojciec/artpub"
	"github.com/fwojciec/artpub/convert"
	"github.com/fwojciec/artpub/fs"
)

// Dependencies holds all services and configuration for command execution.
type Dependencies struct {
	Ctx       context.Context
	Stdout    io.Writer
	Stderr    io.Writer
	Converter *convert.Converter
	Book      artpub.Book
	Writer    *fs.Writer
}

// CLI defines the command-line interface structure for Kong.
type CLI struct {
	URLs        []string          `arg:"" name:"url" required:"" help:"Article URLs to convert, in chapter order"`
	OutDir      string            `short:"o" name:"out-dir" required:"" help:"Directory to write the EPUB into"`
	Cookies     string            `short:"c" help:"Cookie header sent with every request"`
	Header      map[string]string `short:"H" help:"Extra request header as Key=Value (repeatable)"`
	Epub        string            `short:"e" name:"epub" help:"Output file name (default: first article title)"`
	Title       string            `short:"t" help:"Book title (default: first article title)"`
	Author      string            `short:"a" help:"Book author (default: first article byline)"`
	Language    string            `default:"en" help:"Book language"`
	Extractor   string            `enum:"density,readability,trafilatura" default:"density" help:"Article extractor (density, readability, trafilatura)"`
	Concurrency int               `default:"4" help:"Concurrent image downloads per article"`
	Timeout     time.Duration     `default:"30s" help:"Timeout per request"`
	Retries     int               `default:"0" help:"Retries per failed request, with 1s, 2s, 4s... backoff"`
	Rate        float64           `default:"0" help:"Maximum requests per second per host (0: unlimited)"`
	Cache       string            `type:"path" help:"SQLite file caching fetched responses"`
	CacheTTL    time.Duration     `name:"cache-ttl" default:"24h" help:"How long cached responses are reused"`
	AllowEmpty  bool              `help:"Write a book even when no article succeeded"`
	Verbose     int               `short:"v" type:"counter" help:"Log more (-v info, -vv debug)"`
}
