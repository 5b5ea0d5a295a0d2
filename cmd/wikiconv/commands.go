package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v2"

	"github.com/kk-code-lab/wikiconv/internal/htmlconv"
	"github.com/kk-code-lab/wikiconv/internal/textenc"
	"github.com/kk-code-lab/wikiconv/internal/textutil"
	"github.com/kk-code-lab/wikiconv/internal/ui/preview"
	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

var errRoundTrip = errors.New("round trip check failed")

// readInput decodes the file named by the argument at idx, or standard input
// when the argument is missing or "-".
func (env *environment) readInput(c *cli.Context, idx int, charset string) (string, string, error) {
	name := c.Args().Get(idx)
	if name == "" || name == "-" {
		content, err := io.ReadAll(c.App.Reader)
		if err != nil {
			return "", "", fmt.Errorf("read stdin: %w", err)
		}
		text, err := textenc.DecodeCharset(content, charset)
		if err != nil {
			return "", "", fmt.Errorf("stdin: %w", err)
		}
		return "-", text, nil
	}
	text, err := textenc.ReadFile(name, charset)
	return name, text, err
}

// parse builds a document and logs every lenient recovery.
func (env *environment) parse(name, text string) (*wiki.Document, error) {
	doc, err := wiki.Parse(text, env.settings.Wiki)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	if textutil.HasInvisible(text) {
		env.log.Warn().Str("file", name).Msg("text contains invisible formatting characters")
	}
	for _, issue := range doc.Issues {
		env.log.Warn().Str("file", name).Int("line", issue.Line).Msg(issue.Reason)
	}
	return doc, nil
}

func (env *environment) toHTML(c *cli.Context) error {
	name, text, err := env.readInput(c, 0, "")
	if err != nil {
		return err
	}
	doc, err := env.parse(name, text)
	if err != nil {
		return err
	}
	env.log.Debug().Str("file", name).Int("blocks", len(doc.Blocks)).Msg("rendering html")
	return wiki.WriteHTML(c.App.Writer, doc, env.settings.Wiki)
}

func (env *environment) toWiki(c *cli.Context) error {
	name, page, err := env.readInput(c, 0, env.settings.Charset)
	if err != nil {
		return err
	}
	text, err := htmlconv.ToWiki(page, env.settings.Wiki)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	_, err = fmt.Fprintln(c.App.Writer, text)
	return err
}

func (env *environment) normalize(c *cli.Context) error {
	name, page, err := env.readInput(c, 0, env.settings.Charset)
	if err != nil {
		return err
	}
	root, err := htmlconv.ParseString(page)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	_, err = fmt.Fprintln(c.App.Writer, htmlconv.Render(htmlconv.Normalize(root)))
	return err
}

func (env *environment) check(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("check: at least one file is required")
	}
	failed := 0
	for i := 0; i < c.NArg(); i++ {
		name, text, err := env.readInput(c, i, "")
		if err != nil {
			return err
		}
		want := strings.TrimRight(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
		got, err := htmlconv.RoundTrip(want, env.settings.Wiki)
		switch {
		case err != nil:
			failed++
			fmt.Fprintf(c.App.Writer, "FAIL %s: %v\n", name, err)
		case got != want:
			failed++
			diff := cmp.Diff(strings.Split(want, "\n"), strings.Split(got, "\n"))
			fmt.Fprintf(c.App.Writer, "FAIL %s (-input +round trip):\n%s", name, diff)
		default:
			fmt.Fprintf(c.App.Writer, "ok   %s\n", name)
		}
	}
	env.log.Info().Int("files", c.NArg()).Int("failed", failed).Msg("round trip check finished")
	if failed > 0 {
		return fmt.Errorf("%w: %d of %d files", errRoundTrip, failed, c.NArg())
	}
	return nil
}

func (env *environment) preview(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("preview: exactly one file is required")
	}
	name, text, err := env.readInput(c, 0, "")
	if err != nil {
		return err
	}
	doc, err := preview.Build(name, text, env.settings.Wiki)
	if err != nil {
		return err
	}
	return preview.Run(doc)
}
