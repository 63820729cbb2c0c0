package chatcmder

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/peterh/liner"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/smartguide/smartguide/pkg/chat"
	"github.com/smartguide/smartguide/pkg/config"
	"github.com/smartguide/smartguide/pkg/llm"
	"github.com/smartguide/smartguide/pkg/logger"
	"github.com/smartguide/smartguide/pkg/tui"
)

const chatLongDesc string = `Chat with Smart Guide through a running relay.

When stdin is a terminal a full screen chat opens. Otherwise, or with
--plain, each input line is sent as a message and the reply is printed as
it streams in. In line mode "/clear" starts a new conversation and "/quit"
exits.

Examples:
  smartguide chat
  smartguide chat --relay http://192.168.1.42:8080
  echo "What is photosynthesis?" | smartguide chat`

const chatShortDesc string = "Chat with Smart Guide"

type chatCommander struct {
	configPath string
	envFile    string
	relayURL   string
	plain      bool
	debug      bool
}

func NewChatCmd() *cobra.Command {
	cmder := &chatCommander{}

	cmd := &cobra.Command{
		Use:   "chat",
		Short: chatShortDesc,
		Long:  chatLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVarP(&cmder.configPath, "config", "c", "", "Path to TOML config file")
	cmd.Flags().StringVar(&cmder.envFile, "env-file", "", "Path to a dotenv file (default: .env when present)")
	cmd.Flags().StringVarP(&cmder.relayURL, "relay", "r", "", "Relay base URL (overrides config)")
	cmd.Flags().BoolVar(&cmder.plain, "plain", false, "Use line mode even on a terminal")
	cmd.Flags().BoolVar(&cmder.debug, "debug", false, "Log client activity to stderr")

	return cmd
}

func (c *chatCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if err := config.LoadEnvFile(c.envFile); err != nil {
		return err
	}

	cfg, err := config.Load(c.configPath)
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	if c.relayURL != "" {
		cfg.Client.RelayURL = c.relayURL
	}

	log := zap.NewNop()
	if c.debug {
		log = logger.New(cmd.ErrOrStderr(), true)
	}

	client, err := chat.NewClient(cfg.Client.RelayURL)
	if err != nil {
		return fmt.Errorf("could not create relay client: %w", err)
	}

	interactive := isTerminal(cmd.InOrStdin())
	if interactive && !c.plain {
		obs := &tui.Observer{}
		orch := chat.New(client, chat.WithLogger(log), chat.WithObserver(obs.Notify))
		return tui.Run(ctx, orch, obs)
	}

	var in lineReader
	if interactive {
		in = newPromptReader()
	} else {
		in = newScanReader(cmd.InOrStdin())
	}
	defer in.Close()

	p := &printer{out: cmd.OutOrStdout()}
	orch := chat.New(client, chat.WithLogger(log), chat.WithObserver(p.observe))
	return c.lineLoop(ctx, cmd, orch, p, in)
}

// lineLoop sends one message per input line until EOF, /quit or ctx is done.
// Relay failures are reported on stderr and the loop carries on.
func (c *chatCommander) lineLoop(ctx context.Context, cmd *cobra.Command, orch *chat.Orchestrator, p *printer, in lineReader) error {
	out := cmd.OutOrStdout()

	for {
		raw, err := in.ReadLine()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("could not read input: %w", err)
		}
		if ctx.Err() != nil {
			return nil
		}

		line := strings.TrimSpace(raw)
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			orch.Clear()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		err = orch.Send(ctx, line)
		if p.wrote {
			fmt.Fprintln(out)
			p.wrote = false
		}
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			return nil
		default:
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %s\n", orch.State().Notice)
		}
	}
}

// lineReader yields one line of input per call. io.EOF ends the session.
type lineReader interface {
	ReadLine() (string, error)
	Close() error
}

type scanReader struct {
	scanner *bufio.Scanner
}

func newScanReader(r io.Reader) *scanReader {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	return &scanReader{scanner: scanner}
}

func (s *scanReader) ReadLine() (string, error) {
	if s.scanner.Scan() {
		return s.scanner.Text(), nil
	}
	if err := s.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (s *scanReader) Close() error {
	return nil
}

// promptReader reads from the terminal with line editing and in-session
// history.
type promptReader struct {
	state *liner.State
}

func newPromptReader() *promptReader {
	state := liner.NewLiner()
	state.SetCtrlCAborts(true)
	return &promptReader{state: state}
}

func (p *promptReader) ReadLine() (string, error) {
	line, err := p.state.Prompt("> ")
	if errors.Is(err, liner.ErrPromptAborted) {
		return "", io.EOF
	}
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) != "" {
		p.state.AppendHistory(line)
	}
	return line, nil
}

func (p *promptReader) Close() error {
	return p.state.Close()
}

// printer writes assistant deltas as they arrive. It is driven by the
// orchestrator's observer callbacks, which run on the sending goroutine in
// line mode.
type printer struct {
	out io.Writer

	turnID  string
	printed int
	wrote   bool
}

func (p *printer) observe(st chat.State) {
	if len(st.Messages) == 0 {
		return
	}
	last := st.Messages[len(st.Messages)-1]
	if last.Role != llm.RoleAssistant {
		return
	}
	if last.ID != p.turnID {
		p.turnID = last.ID
		p.printed = 0
	}
	if len(last.Content) > p.printed {
		fmt.Fprint(p.out, last.Content[p.printed:])
		p.printed = len(last.Content)
		p.wrote = true
	}
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
