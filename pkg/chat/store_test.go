package chat_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/smartguide/smartguide/pkg/chat"
	"github.com/smartguide/smartguide/pkg/llm"
)

var _ = Describe("Store", func() {
	var store *chat.Store

	BeforeEach(func() {
		store = chat.NewStore()
	})

	It("keeps turns in insertion order", func() {
		store.Append(llm.RoleUser, "first")
		store.Append(llm.RoleAssistant, "second")
		store.Append(llm.RoleUser, "third")

		msgs := store.Messages()
		Expect(msgs).To(HaveLen(3))
		Expect(msgs[0].Content).To(Equal("first"))
		Expect(msgs[1].Role).To(Equal(llm.RoleAssistant))
		Expect(msgs[2].Content).To(Equal("third"))
	})

	It("assigns distinct IDs", func() {
		a := store.Append(llm.RoleUser, "same")
		b := store.Append(llm.RoleUser, "same")

		Expect(a.ID).NotTo(BeEmpty())
		Expect(a.ID).NotTo(Equal(b.ID))
	})

	It("returns copies from Messages", func() {
		store.Append(llm.RoleUser, "original")
		msgs := store.Messages()
		msgs[0].Content = "changed"

		Expect(store.Messages()[0].Content).To(Equal("original"))
	})

	Describe("in-progress turns", func() {
		It("grows the in-progress turn by appending deltas", func() {
			turn, err := store.BeginAssistant()
			Expect(err).NotTo(HaveOccurred())
			Expect(turn.InProgress).To(BeTrue())

			Expect(store.AppendDelta(turn.ID, "Hel")).To(BeTrue())
			Expect(store.AppendDelta(turn.ID, "lo")).To(BeTrue())

			Expect(store.Messages()[0].Content).To(Equal("Hello"))
			Expect(store.InProgress()).To(BeTrue())
		})

		It("allows only one turn in progress", func() {
			_, err := store.BeginAssistant()
			Expect(err).NotTo(HaveOccurred())

			_, err = store.BeginAssistant()
			Expect(err).To(MatchError(chat.ErrTurnInProgress))
			Expect(store.Len()).To(Equal(1))
		})

		It("freezes a turn once finalized", func() {
			turn, _ := store.BeginAssistant()
			store.AppendDelta(turn.ID, "done")

			Expect(store.Finalize(turn.ID)).To(BeTrue())
			Expect(store.InProgress()).To(BeFalse())
			Expect(store.AppendDelta(turn.ID, " more")).To(BeFalse())
			Expect(store.Messages()[0].Content).To(Equal("done"))
		})

		It("ignores deltas for unknown IDs", func() {
			store.BeginAssistant()

			Expect(store.AppendDelta("nope", "x")).To(BeFalse())
			Expect(store.Messages()[0].Content).To(BeEmpty())
		})

		It("discards the in-progress turn", func() {
			store.Append(llm.RoleUser, "question")
			turn, _ := store.BeginAssistant()

			Expect(store.Discard(turn.ID)).To(BeTrue())
			Expect(store.Len()).To(Equal(1))
			Expect(store.InProgress()).To(BeFalse())
		})

		It("does not discard finalized turns", func() {
			turn, _ := store.BeginAssistant()
			store.Finalize(turn.ID)

			Expect(store.Discard(turn.ID)).To(BeFalse())
			Expect(store.Len()).To(Equal(1))
		})
	})

	It("leaves the in-progress turn out of the history", func() {
		store.Append(llm.RoleUser, "Hi")
		turn, _ := store.BeginAssistant()
		store.AppendDelta(turn.ID, "partial")

		Expect(store.History()).To(Equal([]llm.Message{{Role: llm.RoleUser, Content: "Hi"}}))
	})

	It("clears everything", func() {
		store.Append(llm.RoleUser, "Hi")
		store.BeginAssistant()

		store.Clear()
		Expect(store.Len()).To(Equal(0))
		Expect(store.InProgress()).To(BeFalse())
		Expect(store.Messages()).To(BeEmpty())
	})
})
