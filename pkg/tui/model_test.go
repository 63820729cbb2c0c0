package tui_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartguide/smartguide/pkg/chat"
	"github.com/smartguide/smartguide/pkg/llm"
	"github.com/smartguide/smartguide/pkg/tui"
)

type stubRelayer struct {
	body   string
	stream io.ReadCloser
	err    error
}

func (s stubRelayer) Stream(context.Context, []llm.Message) (io.ReadCloser, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.stream != nil {
		return s.stream, nil
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

// trackedBody records whether the consumer released the stream.
type trackedBody struct {
	io.ReadCloser
	closed atomic.Bool
}

func (b *trackedBody) Close() error {
	b.closed.Store(true)
	return b.ReadCloser.Close()
}

func sseOf(deltas ...string) string {
	var b strings.Builder
	for _, d := range deltas {
		fmt.Fprintf(&b, "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", d)
	}
	b.WriteString("data: [DONE]\n\n")
	return b.String()
}

var _ = Describe("Model", func() {
	var (
		ctx  context.Context
		orch *chat.Orchestrator
	)

	newModel := func(r chat.Relayer) tea.Model {
		orch = chat.New(r)
		m := tui.NewModel(ctx, orch, tui.WithColorProfile(termenv.Ascii))
		sized, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		return sized
	}

	view := func(m tea.Model) string {
		return ansi.Strip(m.View())
	}

	typeText := func(m tea.Model, text string) tea.Model {
		m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
		return m
	}

	// press delivers a key and runs the resulting command, if any, feeding
	// its message back into the model.
	press := func(m tea.Model, key tea.KeyType) tea.Model {
		m, cmd := m.Update(tea.KeyMsg{Type: key})
		if cmd != nil {
			m, _ = m.Update(cmd())
		}
		return m
	}

	BeforeEach(func() {
		ctx = context.Background()
	})

	It("waits for the terminal size before rendering", func() {
		m := tui.NewModel(ctx, chat.New(stubRelayer{}))
		Expect(m.View()).To(ContainSubstring("Loading..."))
	})

	It("greets an empty conversation", func() {
		m := newModel(stubRelayer{})
		out := view(m)
		Expect(out).To(ContainSubstring("Welcome to Smart Guide!"))
		Expect(out).To(ContainSubstring("Your friendly homework helper"))
	})

	It("sends the input and renders the streamed answer", func() {
		m := newModel(stubRelayer{body: sseOf("Plants ", "turn light ", "into food.")})

		m = typeText(m, "What is photosynthesis?")
		m = press(m, tea.KeyEnter)

		out := view(m)
		Expect(out).To(ContainSubstring("You"))
		Expect(out).To(ContainSubstring("What is photosynthesis?"))
		Expect(out).To(ContainSubstring("Plants turn light into food."))
		Expect(out).NotTo(ContainSubstring("Welcome to Smart Guide!"))
		Expect(orch.Messages()).To(HaveLen(2))
	})

	It("ignores blank input", func() {
		m := newModel(stubRelayer{body: sseOf("unused")})

		m = typeText(m, "   ")
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		Expect(cmd).To(BeNil())
		Expect(orch.Messages()).To(BeEmpty())
	})

	It("shows relay errors as a notice", func() {
		m := newModel(stubRelayer{err: &chat.RelayError{
			StatusCode: http.StatusTooManyRequests,
			Message:    "Rate limit exceeded. Please try again in a moment.",
		}})

		m = typeText(m, "hello")
		m = press(m, tea.KeyEnter)

		Expect(view(m)).To(ContainSubstring("Rate limit exceeded. Please try again in a moment."))
	})

	It("clears the conversation", func() {
		m := newModel(stubRelayer{body: sseOf("Hi!")})

		m = typeText(m, "hello")
		m = press(m, tea.KeyEnter)
		Expect(orch.Messages()).To(HaveLen(2))

		m = press(m, tea.KeyCtrlL)
		Expect(orch.Messages()).To(BeEmpty())
		Expect(view(m)).To(ContainSubstring("Welcome to Smart Guide!"))
	})

	It("shows a thinking indicator before the first delta", func() {
		m := newModel(stubRelayer{})

		m, _ = m.Update(tui.StateMsg(chat.State{
			Messages: []chat.Turn{{ID: "1", Role: llm.RoleUser, Content: "hi"}},
			Loading:  true,
		}))

		out := view(m)
		Expect(out).To(ContainSubstring("hi"))
		// Header plus the pending assistant label.
		Expect(strings.Count(out, "Smart Guide")).To(Equal(2))
	})

	It("abandons the streaming reply when the screen closes", func() {
		pr, pw := io.Pipe()
		body := &trackedBody{ReadCloser: pr}
		first := sseOf("Plants use")
		first = strings.TrimSuffix(first, "data: [DONE]\n\n")

		m := newModel(stubRelayer{stream: body})
		m = typeText(m, "What is photosynthesis?")
		m, send := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		Expect(send).NotTo(BeNil())

		sent := make(chan tea.Msg, 1)
		go func() {
			sent <- send()
		}()
		go func() {
			_, _ = io.WriteString(pw, first)
		}()

		Eventually(func() string {
			msgs := orch.Messages()
			if len(msgs) < 2 {
				return ""
			}
			return msgs[1].Content
		}).Should(Equal("Plants use"))
		Expect(orch.IsLoading()).To(BeTrue())

		_, quit := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
		Expect(quit()).To(Equal(tea.QuitMsg{}))

		Eventually(sent).Should(Receive())
		Expect(body.closed.Load()).To(BeTrue())
		Expect(orch.IsLoading()).To(BeFalse())

		_, err := io.WriteString(pw, sseOf("late"))
		Expect(err).To(MatchError(io.ErrClosedPipe))
	})

	It("releases the stream on Close", func() {
		pr, pw := io.Pipe()
		defer pw.Close()
		body := &trackedBody{ReadCloser: pr}

		orch = chat.New(stubRelayer{stream: body})
		m := tui.NewModel(ctx, orch, tui.WithColorProfile(termenv.Ascii))
		var model tea.Model = m
		model = typeText(model, "hello")
		_, send := model.Update(tea.KeyMsg{Type: tea.KeyEnter})

		sent := make(chan tea.Msg, 1)
		go func() {
			sent <- send()
		}()
		Eventually(orch.IsLoading).Should(BeTrue())

		m.Close()
		Eventually(sent).Should(Receive())
		Expect(body.closed.Load()).To(BeTrue())
		Expect(orch.IsLoading()).To(BeFalse())
		Expect(orch.Messages()).To(HaveLen(1))
	})

	It("quits on escape", func() {
		m := newModel(stubRelayer{})
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
		Expect(cmd).NotTo(BeNil())
		Expect(cmd()).To(Equal(tea.QuitMsg{}))
	})
})

var _ = Describe("Observer", func() {
	It("drops updates when no program is attached", func() {
		obs := &tui.Observer{}
		Expect(func() { obs.Notify(chat.State{Loading: true}) }).NotTo(Panic())
	})
})
