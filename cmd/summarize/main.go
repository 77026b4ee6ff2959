package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"slack-summarizer/internal/app"
	"slack-summarizer/internal/artifact"
	"slack-summarizer/internal/dispatch"
	"slack-summarizer/internal/summary"
)

// CLI summarizes one URL from the terminal.
type CLI struct {
	URL string `arg:"" optional:"" help:"Page to summarize. Prompted for when omitted."`
	Out string `short:"o" help:"Also write the result to this file." type:"path"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("summarize"),
		kong.Description("Summarize a web page and extract its keywords."),
		kong.UsageOnError(),
	)

	deps, err := app.BuildCLI()
	if err != nil {
		slog.Default().Error("failed to build dependencies", "err", err)
		os.Exit(1)
	}
	defer deps.Close()

	var sink artifact.Sink
	if cli.Out != "" {
		sink = artifact.NewFileSink(cli.Out)
	}
	err = run(context.Background(), cli.URL, deps.Dispatcher, sink, os.Stdin, os.Stdout)
	kctx.FatalIfErrorf(err)
}

// summarizer is the slice of the dispatcher the CLI uses.
type summarizer interface {
	Summarize(ctx context.Context, rawURL string) (summary.Result, error)
}

func run(ctx context.Context, rawURL string, s summarizer, sink artifact.Sink, in io.Reader, out io.Writer) error {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		fmt.Fprint(out, "Enter a URL to summarize: ")
		line, err := bufio.NewReader(in).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("read url: %w", err)
		}
		rawURL = strings.TrimSpace(line)
	}
	if rawURL == "" {
		return errors.New(dispatch.MsgInvalidURL)
	}

	res, err := s.Summarize(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("%s (%w)", dispatch.FailureMessage(err), err)
	}
	fmt.Fprintf(out, "\nSummary:\n%s\n\nKeywords:\n%s\n", res.Summary, res.KeywordList())

	if sink != nil {
		if err := sink.Save(ctx, res); err != nil {
			return fmt.Errorf("write result: %w", err)
		}
	}
	return nil
}
