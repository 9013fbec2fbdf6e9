// Package shell implements the interactive consultation loop used by the
// consultant CLI. It reads one command or message per line and drives a
// shared consult.Engine.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/consult"
)

// ErrQuit is returned by Execute when the user asks to leave.
var ErrQuit = errors.New("quit")

// Renderer turns a markdown reply into terminal output.
// *glamour.TermRenderer satisfies it.
type Renderer interface {
	Render(in string) (string, error)
}

type plainRenderer struct{}

func (plainRenderer) Render(in string) (string, error) { return in + "\n", nil }

// Shell is a line-oriented front end over the engine.
type Shell struct {
	engine    *consult.Engine
	in        *bufio.Scanner
	out       io.Writer
	renderer  Renderer
	mode      mode.Mode
	exportDir string
	logger    *zap.Logger
}

// Option customizes a Shell.
type Option func(*Shell)

// WithRenderer sets the reply renderer. Replies are printed verbatim by default.
func WithRenderer(r Renderer) Option {
	return func(s *Shell) {
		if r != nil {
			s.renderer = r
		}
	}
}

// WithMode sets the starting mode.
func WithMode(m mode.Mode) Option {
	return func(s *Shell) { s.mode = m }
}

// WithExportDir sets where "save" writes when no file is given.
func WithExportDir(dir string) Option {
	return func(s *Shell) { s.exportDir = dir }
}

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Shell) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a shell reading from in and writing to out.
func New(engine *consult.Engine, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		engine:   engine,
		in:       bufio.NewScanner(in),
		out:      out,
		renderer: plainRenderer{},
		mode:     mode.Chat,
		logger:   zap.NewNop(),
	}
	s.in.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run prints the banner and processes lines until quit, EOF or ctx is done.
func (s *Shell) Run(ctx context.Context) error {
	s.println(bannerStyle.Render("Marketing Consultant"))
	s.println(infoStyle.Render("Type a message to chat, or 'help' for commands."))

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		s.printf("%s ", promptStyle.Render(fmt.Sprintf("[%s]>", s.mode)))

		line, ok := s.readLine()
		if !ok {
			s.println("")
			return s.in.Err()
		}

		if err := s.Execute(ctx, line); err != nil {
			if errors.Is(err, ErrQuit) {
				s.println(infoStyle.Render("Goodbye!"))
				return nil
			}
			s.logger.Debug("command failed", zap.String("line", line), zap.Error(err))
			s.println(errorStyle.Render("Error: " + err.Error()))
		}
	}
}

// Mode reports the mode plain messages are sent under.
func (s *Shell) Mode() mode.Mode {
	return s.mode
}

func (s *Shell) readLine() (string, bool) {
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// ask prompts for a single value on its own line.
func (s *Shell) ask(label string) (string, bool) {
	s.printf("%s ", promptStyle.Render(label+":"))
	return s.readLine()
}

func (s *Shell) reply(text string) {
	rendered, err := s.renderer.Render(text)
	if err != nil {
		s.logger.Debug("render failed, printing raw reply", zap.Error(err))
		rendered = text + "\n"
	}
	s.printf("%s", rendered)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *Shell) println(text string) {
	fmt.Fprintln(s.out, text)
}
