// Package repl is a terminal front end for ChatService: plain text is sent as
// a message, lines starting with "/" are commands.
package repl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"llamachat-backend/internal/model"
	"llamachat-backend/internal/service"
)

const updatedLayout = "01/02 15:04"

// FormatUpdated renders a chat's last activity the way the chat list shows it.
func FormatUpdated(t time.Time) string {
	return "Updated: " + t.Format(updatedLayout)
}

type REPL struct {
	svc     *service.ChatService
	out     io.Writer
	model   string
	listed  []string // ids from the last /list, for /switch <n>
	scanner *bufio.Scanner
}

func New(svc *service.ChatService, in io.Reader, out io.Writer) *REPL {
	s := bufio.NewScanner(in)
	s.Buffer(make([]byte, 1024*1024), 1024*1024)
	return &REPL{
		svc:     svc,
		out:     out,
		model:   svc.Models().Default,
		scanner: s,
	}
}

// Run reads lines until EOF, /quit or ctx is done.
func (r *REPL) Run(ctx context.Context) error {
	fmt.Fprintln(r.out, "Groq chat. Type /help for commands.")
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}
		fmt.Fprint(r.out, "\n> ")
		if !r.scanner.Scan() {
			if err := r.scanner.Err(); err != nil {
				return err
			}
			return nil
		}
		line := strings.TrimSpace(r.scanner.Text())
		if line == "" {
			continue
		}

		quit, err := r.handle(ctx, line)
		if err != nil {
			fmt.Fprintf(r.out, "error: %s\n", err)
		}
		if quit {
			return nil
		}
	}
}

func (r *REPL) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.help()
	case "/new":
		chat, err := r.svc.NewChat()
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Started %s (%s)\n", chat.Title, chat.ID)
	case "/list":
		return false, r.list()
	case "/switch":
		id, err := r.resolve(arg)
		if err != nil {
			return false, err
		}
		chat, err := r.svc.SwitchChat(id)
		if err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Switched to %s\n", chat.Title)
		r.printHistory(chat.Messages)
	case "/delete":
		id, err := r.resolve(arg)
		if err != nil {
			return false, err
		}
		if err := r.svc.DeleteChat(id); err != nil {
			return false, err
		}
		fmt.Fprintln(r.out, "Deleted.")
	case "/rename":
		id := r.svc.ActiveChatID()
		if id == "" {
			return false, errors.New("no active chat")
		}
		if err := r.svc.RenameChat(id, arg); err != nil {
			return false, err
		}
		fmt.Fprintf(r.out, "Renamed to %s\n", strings.TrimSpace(arg))
	case "/models":
		for _, m := range r.svc.Models().Models {
			marker := " "
			if m == r.model {
				marker = "*"
			}
			fmt.Fprintf(r.out, "%s %s\n", marker, m)
		}
	case "/model":
		resolved, err := r.svc.ResolveModel(arg)
		if err != nil {
			return false, err
		}
		r.model = resolved
		fmt.Fprintf(r.out, "Model set to %s\n", resolved)
	default:
		return false, fmt.Errorf("unknown command %s, try /help", cmd)
	}
	return false, nil
}

func (r *REPL) send(ctx context.Context, content string) error {
	res, err := r.svc.SendMessage(ctx, r.model, content)
	if err != nil {
		return err
	}
	fmt.Fprintln(r.out, res.Assistant.Content)
	return nil
}

func (r *REPL) list() error {
	chats, err := r.svc.ListChats()
	if err != nil {
		return err
	}
	if len(chats) == 0 {
		r.listed = nil
		fmt.Fprintln(r.out, "No chats yet.")
		return nil
	}

	active := r.svc.ActiveChatID()
	r.listed = make([]string, len(chats))
	for i, chat := range chats {
		r.listed[i] = chat.ID
		marker := " "
		if chat.ID == active {
			marker = "*"
		}
		fmt.Fprintf(r.out, "%s %d. %s  %s\n", marker, i+1, chat.Title, FormatUpdated(chat.LastUpdated))
	}
	return nil
}

// resolve accepts an index from the last /list or a raw chat id.
func (r *REPL) resolve(arg string) (string, error) {
	if arg == "" {
		return "", errors.New("missing chat number or id")
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(r.listed) {
			return "", fmt.Errorf("no chat #%d in the last /list", n)
		}
		return r.listed[n-1], nil
	}
	return arg, nil
}

func (r *REPL) printHistory(messages []model.Message) {
	for _, msg := range messages {
		fmt.Fprintf(r.out, "[%s] %s\n", msg.Role, msg.Content)
	}
}

func (r *REPL) help() {
	fmt.Fprint(r.out, `Commands:
  /new              start a new chat
  /list             list chats, most recent first
  /switch <n|id>    switch to a chat
  /delete <n|id>    delete a chat
  /rename <title>   rename the active chat
  /models           list available models
  /model <name>     choose the model for new messages
  /quit             exit
`)
}
