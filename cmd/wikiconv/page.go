package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kk-code-lab/wikiconv/internal/htmlconv"
	"github.com/kk-code-lab/wikiconv/internal/pagestore"
	"github.com/kk-code-lab/wikiconv/internal/wiki"
)

func pageCommand(env *environment) *cli.Command {
	revFlag := &cli.IntFlag{Name: "rev", Aliases: []string{"r"}, Usage: "revision number, 0 for the latest"}
	return &cli.Command{
		Name:  "page",
		Usage: "manage pages in the local page store",
		Subcommands: []*cli.Command{
			{
				Name:      "put",
				Usage:     "store wiki text as a new revision",
				ArgsUsage: "NAME [FILE]",
				Action:    env.pagePut,
			},
			{
				Name:      "save",
				Usage:     "convert posted HTML to wiki text and store it",
				ArgsUsage: "NAME [FILE]",
				Action:    env.pageSave,
			},
			{
				Name:      "get",
				Usage:     "print the wiki text of a revision",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{revFlag},
				Action:    env.pageGet,
			},
			{
				Name:      "render",
				Usage:     "print a revision as canonical HTML",
				ArgsUsage: "NAME",
				Flags:     []cli.Flag{revFlag},
				Action:    env.pageRender,
			},
			{
				Name:      "log",
				Usage:     "list the revisions of a page",
				ArgsUsage: "NAME",
				Action:    env.pageLog,
			},
			{
				Name:   "list",
				Usage:  "list stored pages",
				Action: env.pageList,
			},
		},
	}
}

func (env *environment) openStore() (*pagestore.Store, error) {
	path := env.settings.StorePath
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	env.log.Debug().Str("path", path).Msg("opening page store")
	return pagestore.Open(path)
}

func pageName(c *cli.Context) (string, error) {
	name := c.Args().First()
	if name == "" {
		return "", fmt.Errorf("%s: page name is required", c.Command.Name)
	}
	return name, nil
}

// store parses text to surface nesting problems, then saves it.
func (env *environment) store(c *cli.Context, name, text string) error {
	if _, err := env.parse(name, text); err != nil {
		return err
	}
	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	rev, err := st.Put(name, strings.TrimRight(text, "\n"))
	if errors.Is(err, pagestore.ErrUnchanged) {
		env.log.Info().Str("page", name).Msg("page unchanged, nothing saved")
		return nil
	}
	if err != nil {
		return fmt.Errorf("save %s: %w", name, err)
	}
	env.log.Info().Str("page", name).Int("rev", rev).Msg("page saved")
	_, err = fmt.Fprintf(c.App.Writer, "%s rev %d\n", name, rev)
	return err
}

func (env *environment) pagePut(c *cli.Context) error {
	name, err := pageName(c)
	if err != nil {
		return err
	}
	_, text, err := env.readInput(c, 1, "")
	if err != nil {
		return err
	}
	return env.store(c, name, text)
}

// pageSave is the editor save path: posted HTML becomes wiki text.
func (env *environment) pageSave(c *cli.Context) error {
	name, err := pageName(c)
	if err != nil {
		return err
	}
	_, page, err := env.readInput(c, 1, env.settings.Charset)
	if err != nil {
		return err
	}
	text, err := htmlconv.ToWiki(page, env.settings.Wiki)
	if err != nil {
		env.log.Error().Err(err).Str("page", name).Msg("posted HTML rejected")
		return err
	}
	return env.store(c, name, text)
}

func (env *environment) revision(c *cli.Context) (pagestore.Revision, error) {
	name, err := pageName(c)
	if err != nil {
		return pagestore.Revision{}, err
	}
	st, err := env.openStore()
	if err != nil {
		return pagestore.Revision{}, err
	}
	defer st.Close()
	rev, err := st.Get(name, c.Int("rev"))
	if err != nil {
		return rev, fmt.Errorf("%s: %w", name, err)
	}
	return rev, nil
}

func (env *environment) pageGet(c *cli.Context) error {
	rev, err := env.revision(c)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(c.App.Writer, rev.Text)
	return err
}

func (env *environment) pageRender(c *cli.Context) error {
	rev, err := env.revision(c)
	if err != nil {
		return err
	}
	doc, err := env.parse(rev.Page, rev.Text)
	if err != nil {
		return err
	}
	return wiki.WriteHTML(c.App.Writer, doc, env.settings.Wiki)
}

func (env *environment) pageLog(c *cli.Context) error {
	name, err := pageName(c)
	if err != nil {
		return err
	}
	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	revs, err := st.Revisions(name)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	for _, r := range revs {
		fmt.Fprintf(c.App.Writer, "%4d  %s  %d lines\n", r.Rev, r.Saved.Format(time.RFC3339), strings.Count(r.Text, "\n")+1)
	}
	return nil
}

func (env *environment) pageList(c *cli.Context) error {
	st, err := env.openStore()
	if err != nil {
		return err
	}
	defer st.Close()
	names, err := st.Pages()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(c.App.Writer, name)
	}
	return nil
}
