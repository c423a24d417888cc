package commands

import (
	"fmt"
	"io"
	"os"

	"git.home.luguber.info/inful/sitebuilder/internal/config"
	sberrors "git.home.luguber.info/inful/sitebuilder/internal/errors"
	"git.home.luguber.info/inful/sitebuilder/internal/highlight"
)

// StylesCmd writes the stylesheet matching class-based highlighting.
type StylesCmd struct {
	Style  string `name:"style" help:"Chroma style (defaults to highlight.style from the config)"`
	Output string `short:"o" name:"output" help:"Write to this file instead of stdout" type:"path"`
	List   bool   `name:"list" help:"List available styles and exit"`
}

func (s *StylesCmd) Run(_ *Global, root *CLI) error {
	return RunStyles(root.Config, *s, os.Stdout)
}

// RunStyles writes CSS for the chosen style to Output, or to stdout.
func RunStyles(configPath string, s StylesCmd, stdout io.Writer) error {
	if s.List {
		for _, name := range highlight.Styles() {
			fmt.Fprintln(stdout, name)
		}
		return nil
	}

	style := s.Style
	if style == "" {
		cfg, err := config.LoadOrDefault(configPath)
		if err != nil {
			return err
		}
		style = cfg.Highlight.Style
	}

	if s.Output == "" {
		return highlight.WriteCSS(stdout, style)
	}
	f, err := os.Create(s.Output)
	if err != nil {
		return sberrors.FileSystemError("create", s.Output, err)
	}
	if err := highlight.WriteCSS(f, style); err != nil {
		_ = f.Close()
		_ = os.Remove(s.Output)
		return err
	}
	if err := f.Close(); err != nil {
		return sberrors.FileSystemError("close", s.Output, err)
	}
	return nil
}
