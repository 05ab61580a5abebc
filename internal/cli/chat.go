package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"yeetbank/internal/cli/prompt"
	"yeetbank/pkg/api"
	"yeetbank/pkg/chat"
)

func (c *cli) chatCmd() *cobra.Command {
	var list bool
	cmd := &cobra.Command{
		Use:   "chat [conversation]",
		Short: "Chat with support",
		Long: `Chat with support. Without arguments the conversation list is shown and
one can be picked by number. In a conversation, each line is sent as a
message; "/photo PATH [caption]" sends an image and "/quit" leaves.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			self, err := c.requireLogin(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := chat.Directory(cmd.Context(), c.client, self)
			if err != nil {
				return errors.New(userMessage(err))
			}
			if len(entries) == 0 {
				c.printf("No conversations.\n")
				return nil
			}
			if list {
				c.printDirectory(entries)
				return nil
			}
			var pick string
			if len(args) == 1 {
				pick = args[0]
			} else {
				c.printDirectory(entries)
				if pick, err = c.prompt.Required("Open conversation #"); err != nil {
					return err
				}
			}
			e, ok := findEntry(entries, pick)
			if !ok {
				return fmt.Errorf("no conversation matches %q", pick)
			}
			return c.converse(cmd.Context(), self, e)
		},
	}
	cmd.Flags().BoolVarP(&list, "list", "l", false, "only list conversations")
	return cmd
}

func (c *cli) printDirectory(entries []chat.Entry) {
	for i, e := range entries {
		unread := ""
		if e.Unread > 0 {
			unread = fmt.Sprintf(" (%d unread)", e.Unread)
		}
		c.printf("%2d. %s%s\n    %s\n", i+1, e.Title(), unread, e.LastMessage)
	}
}

// findEntry matches a list position, an entry key or a partner name.
func findEntry(entries []chat.Entry, pick string) (chat.Entry, bool) {
	pick = strings.TrimSpace(pick)
	if n, err := strconv.Atoi(pick); err == nil && n >= 1 && n <= len(entries) {
		return entries[n-1], true
	}
	for _, e := range entries {
		if e.Key() == pick {
			return e, true
		}
	}
	lower := strings.ToLower(pick)
	for _, e := range entries {
		if lower != "" && strings.Contains(strings.ToLower(e.Title()), lower) {
			return e, true
		}
	}
	return chat.Entry{}, false
}

// transcript prints each message once, in arrival order, plus typing changes.
type transcript struct {
	c    *cli
	self int64
	peer string

	mu      sync.Mutex
	printed map[int64]bool
	typing  bool
}

func (t *transcript) update(s chat.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range s.Messages {
		if t.printed[m.ID] {
			continue
		}
		t.printed[m.ID] = true
		t.c.printf("%s\n", t.format(m))
	}
	if s.PeerTyping != t.typing {
		t.typing = s.PeerTyping
		if t.typing {
			t.c.printf("%s is typing...\n", t.peer)
		}
	}
}

func (t *transcript) format(m api.ChatMessage) string {
	who := m.Sender.DisplayName()
	if m.Sender.ID == t.self {
		who = "You"
	}
	stamp := m.CreatedAt.Local().Format("15:04")
	if m.MessageType == api.MessageImage {
		return fmt.Sprintf("[%s] %s: [photo %s] %s", stamp, who, m.Image, m.Content)
	}
	return fmt.Sprintf("[%s] %s: %s", stamp, who, m.Content)
}

func (c *cli) converse(ctx context.Context, self api.User, e chat.Entry) error {
	p := chat.NewPoller(c.client, chat.Options{
		Clock:           c.opts.Clock,
		MessageInterval: c.cfg.Chat.MessagePollInterval.Duration(),
		TypingInterval:  c.cfg.Chat.TypingPollInterval.Duration(),
		TypingIdle:      c.cfg.Chat.TypingIdle.Duration(),
	})
	defer p.Close()

	t := &transcript{c: c, self: self.ID, peer: e.Title(), printed: map[int64]bool{}}
	p.OnChange(t.update)
	c.printf("Chat with %s. /photo PATH [caption] sends an image, /quit leaves.\n", e.Title())
	if _, err := p.Open(ctx, e); err != nil {
		return errors.New(userMessage(err))
	}

	// The reader only prompts when asked so nothing is written after return.
	ask := make(chan struct{}, 1)
	defer close(ask)
	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		for range ask {
			line, err := c.prompt.Line("You")
			if err != nil {
				readErr <- err
				return
			}
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		ask <- struct{}{}
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, prompt.ErrAborted) {
				return nil
			}
			return err
		case line = <-lines:
		}
		if line == "" {
			continue
		}
		if line == "/quit" || line == "/exit" {
			return nil
		}
		var (
			staged *chat.Staged
			text   = line
		)
		if rest, ok := strings.CutPrefix(line, "/photo "); ok {
			path, caption, _ := strings.Cut(strings.TrimSpace(rest), " ")
			var err error
			if staged, err = chat.StageFile(path); err != nil {
				c.printf("%s\n", photoMessage(err))
				continue
			}
			text = caption
		} else {
			p.Keystroke()
		}
		if _, err := p.Send(ctx, text, staged); err != nil {
			c.printf("Message not sent: %s\n", userMessage(err))
		}
	}
}

func photoMessage(err error) string {
	if errors.Is(err, chat.ErrNotImage) {
		return "Please select an image file"
	}
	return "Could not read photo: " + err.Error()
}
