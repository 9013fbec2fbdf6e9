package shell

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/zhouzirui/consultant/internal/analysis/brief"
	"github.com/zhouzirui/consultant/internal/model/mode"
	"github.com/zhouzirui/consultant/internal/service/consult"
	"github.com/zhouzirui/consultant/internal/service/session"
)

var fieldLabels = map[string]string{
	"description":  "Describe it",
	"industry":     "Industry",
	"audience":     "Target audience",
	"budget":       "Monthly budget",
	"website":      "Website info (URL, current traffic, goals)",
	"total_budget": "Total marketing budget",
	"goals":        "Business goals",
}

const helpText = `Commands (a leading "/" always marks a command):
  /strategy [brief]  critique a marketing strategy
  /social [brief]    plan a social media campaign (industry=, audience=, budget=)
  /funnel [brief]    optimize a conversion funnel
  /seo [brief]       audit SEO (website=)
  /budget [brief]    allocate a budget (total_budget=, goals=, industry=)
  /session <name>    start a new named session
  /list              list sessions
  /use <id>          switch the current session
  /save [file]       export the current session
  /load <file>       import an exported session
  /clear             clear the current session's history
  /retry             resend the last unanswered message
  /mode <tag>        switch mode (chat, strategy, social_media, seo, budget)
  /modes             list modes
  /help              show this help
  /quit              exit
Without the "/", a command word on its own line works too, as do
"mode <tag>", "use <id>" and a workflow followed by key=value fields.
Anything else is sent as a message in the current mode.`

// bareCommands run without a "/" only when nothing follows them.
var bareCommands = map[string]bool{
	"quit": true, "exit": true, "help": true, "list": true, "save": true,
	"clear": true, "retry": true, "modes": true,
}

// Execute runs one input line. It returns ErrQuit for quit/exit.
func (s *Shell) Execute(ctx context.Context, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}

	cmd, rest, explicit := s.command(line)
	if cmd == "" {
		return s.turn(ctx, line)
	}

	if w, err := consult.ParseWorkflow(cmd); err == nil {
		return s.runWorkflow(ctx, w, rest)
	}

	switch cmd {
	case "quit", "exit":
		return ErrQuit
	case "help":
		s.println(helpText)
		return nil
	case "session":
		info := s.engine.CreateSession(rest)
		s.println(infoStyle.Render(fmt.Sprintf("Started session %s (%s)", info.ID, info.Name)))
		return nil
	case "list":
		s.listSessions()
		return nil
	case "use":
		if rest == "" {
			return fmt.Errorf("usage: /use <session id>")
		}
		if err := s.engine.SelectSession(rest); err != nil {
			return err
		}
		s.println(infoStyle.Render("Switched to " + rest))
		return nil
	case "save":
		return s.save(rest)
	case "load":
		if rest == "" {
			return fmt.Errorf("usage: /load <file>")
		}
		info, err := s.engine.ImportSession(rest)
		if err != nil {
			return err
		}
		s.println(infoStyle.Render(fmt.Sprintf("Loaded %s as %s", info.Name, info.ID)))
		return nil
	case "clear":
		info, ok := s.engine.CurrentSession()
		if !ok {
			return session.ErrNoActiveSession
		}
		if err := s.engine.Reset(info.ID); err != nil {
			return err
		}
		s.println(infoStyle.Render("Conversation history cleared."))
		return nil
	case "retry":
		info, ok := s.engine.CurrentSession()
		if !ok {
			return session.ErrNoActiveSession
		}
		reply, err := s.engine.RetryLast(ctx, info.ID, s.mode)
		if err != nil {
			return err
		}
		s.reply(reply)
		return nil
	case "mode":
		m, err := mode.ParseMode(rest)
		if err != nil {
			return err
		}
		s.mode = m
		s.println(infoStyle.Render("Mode set to " + string(m)))
		return nil
	case "modes":
		for _, tpl := range s.engine.Modes() {
			marker := " "
			if tpl.Mode == s.mode {
				marker = "*"
			}
			s.printf("%s %-13s %s\n", marker, tpl.Mode, tpl.Title)
		}
		return nil
	}

	if explicit {
		return fmt.Errorf("unknown command /%s (try /help)", cmd)
	}
	return s.turn(ctx, line)
}

// command decides whether line is a command. A "/" prefix always is; a bare
// command word only when the rest of the line cannot be ordinary chat.
// It returns an empty cmd for chat lines.
func (s *Shell) command(line string) (cmd, rest string, explicit bool) {
	word, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)

	if strings.HasPrefix(word, "/") {
		return strings.ToLower(strings.TrimPrefix(word, "/")), rest, true
	}

	word = strings.ToLower(word)
	if rest == "" {
		if bareCommands[word] {
			return word, "", false
		}
		if _, err := consult.ParseWorkflow(word); err == nil {
			return word, "", false
		}
		return "", "", false
	}

	switch word {
	case "mode":
		if _, err := mode.ParseMode(rest); err == nil {
			return word, rest, false
		}
	case "use":
		for _, info := range s.engine.ListSessions() {
			if info.ID == rest {
				return word, rest, false
			}
		}
	default:
		if w, err := consult.ParseWorkflow(word); err == nil && brief.Explicit(rest, w.Fields()...) {
			return word, rest, false
		}
	}
	return "", "", false
}

func (s *Shell) currentSession() string {
	if info, ok := s.engine.CurrentSession(); ok {
		return info.ID
	}
	info := s.engine.CreateSession("")
	s.println(infoStyle.Render("Started session " + info.ID))
	return info.ID
}

func (s *Shell) turn(ctx context.Context, text string) error {
	reply, err := s.engine.Turn(ctx, s.currentSession(), s.mode, text)
	if err != nil {
		return err
	}
	s.reply(reply)
	return nil
}

// runWorkflow fills the workflow's fields from an inline brief, then prompts
// for whatever is still missing.
func (s *Shell) runWorkflow(ctx context.Context, w consult.Workflow, inline string) error {
	fields := brief.Parse(inline)
	for _, key := range brief.Missing(fields, w.Fields()) {
		label := fieldLabels[key]
		if label == "" {
			label = key
		}
		value, ok := s.ask(label)
		if !ok {
			return fmt.Errorf("%s: input ended before %s was given", w, key)
		}
		fields[key] = value
	}

	s.println(headerStyle.Render(fmt.Sprintf("Running %s workflow...", w)))
	reply, err := s.engine.RunWorkflow(ctx, s.currentSession(), w, fields)
	if err != nil {
		return err
	}
	s.reply(reply)
	return nil
}

func (s *Shell) listSessions() {
	sessions := s.engine.ListSessions()
	if len(sessions) == 0 {
		s.println(infoStyle.Render("No sessions yet."))
		return
	}
	current, _ := s.engine.CurrentSession()
	for _, info := range sessions {
		marker := " "
		if info.ID == current.ID {
			marker = "*"
		}
		s.printf("%s %s  %s  %s\n", marker, info.ID, info.CreatedAt.Format("2006-01-02 15:04"), info.Name)
	}
}

func (s *Shell) save(file string) error {
	info, ok := s.engine.CurrentSession()
	if !ok {
		return session.ErrNoActiveSession
	}
	if file == "" {
		file = filepath.Join(s.exportDir, session.DefaultExportName(info.ID))
	}
	if err := s.engine.ExportSession(info.ID, file); err != nil {
		return err
	}
	s.println(infoStyle.Render("Session saved to " + file))
	return nil
}
