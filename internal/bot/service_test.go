package bot_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"todobot/internal/bot"
	"todobot/internal/jobs"
	"todobot/internal/memo"
	"todobot/internal/store"
)

const chatID int64 = 42

var _ = Describe("Service", func() {
	var (
		ctx      context.Context
		msgr     *fakeMessenger
		st       *store.Memory
		handlers *jobs.Handlers
		sched    *recordingScheduler
		svc      *bot.Service
	)

	BeforeEach(func() {
		ctx = context.Background()
		msgr = newFakeMessenger()
		st = store.NewMemory()
		handlers = &jobs.Handlers{}

		timers := jobs.NewTimers(handlers, zap.NewNop())
		DeferCleanup(timers.Close)
		sched = &recordingScheduler{Timers: timers}

		svc = bot.New(st, sched, msgr, zap.NewNop())
		svc.Register(handlers)
	})

	load := func() *memo.List {
		l, err := st.Load(ctx, chatID)
		Expect(err).NotTo(HaveOccurred())
		return l
	}

	Describe("plain memos", func() {
		It("echoes the text with the check button and stores the memo", func() {
			Expect(svc.Dispatch(ctx, chatID, "buy milk")).To(Succeed())

			echo := msgr.Last()
			Expect(echo.Text).To(Equal("buy milk"))
			Expect(echo.Keyboard).To(HaveLen(1))
			Expect(echo.Keyboard[0].Data).To(Equal(bot.ActionCheck))

			m, err := load().Get(echo.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ID).To(Equal(fmt.Sprint(echo.ID)))
		})

		It("completes the buy milk scenario", func() {
			id, err := svc.Add(ctx, chatID, "buy milk")
			Expect(err).NotTo(HaveOccurred())
			Expect(id).To(Equal("101"))
			Expect(load().Len()).To(Equal(1))

			Expect(svc.Press(ctx, chatID, 101, bot.ActionCheck)).To(Succeed())
			Expect(load().Len()).To(Equal(0))
			_, err = load().Get(101)
			Expect(err).To(MatchError(memo.ErrNotFound))
			Expect(msgr.Edits()).To(HaveKeyWithValue(int64(101), "<s>buy milk</s>"))
		})

		It("escapes markup when striking through", func() {
			_, err := svc.Add(ctx, chatID, "fix <b> tags & co")
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Complete(ctx, chatID, 101)).To(Succeed())
			Expect(msgr.Edits()[101]).To(Equal("<s>fix &lt;b&gt; tags &amp; co</s>"))
		})

		It("fails to complete an unknown message", func() {
			Expect(svc.Complete(ctx, chatID, 999)).To(MatchError(memo.ErrNotFound))
		})

		It("rejects unknown button data", func() {
			_, err := svc.Add(ctx, chatID, "a")
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.Press(ctx, chatID, 101, "snooze")).To(MatchError(bot.ErrUnknownAction))
			Expect(load().Len()).To(Equal(1))
		})

		It("has no reminder to cancel", func() {
			id, err := svc.Add(ctx, chatID, "a")
			Expect(err).NotTo(HaveOccurred())

			removed, err := svc.RemoveReminder(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())

			removed, err = svc.RemoveReminder(ctx, "never-scheduled")
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})

		It("does not store a memo when the echo cannot be sent", func() {
			msgr.failSend = true
			_, err := svc.Add(ctx, chatID, "a")
			Expect(err).To(HaveOccurred())
			Expect(load().Len()).To(Equal(0))
		})
	})

	Describe("completion", func() {
		It("strikes every display and keeps going past a failed edit", func() {
			_, err := svc.Add(ctx, chatID, "water plants")
			Expect(err).NotTo(HaveOccurred())
			Expect(svc.List(ctx, chatID, "")).To(Succeed())
			Expect(svc.List(ctx, chatID, "")).To(Succeed())

			m, err := load().Get(101)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Messages).To(Equal([]int64{101, 102, 103}))

			msgr.failEdit[102] = true
			Expect(svc.Press(ctx, chatID, 103, bot.ActionCheck)).To(Succeed())

			edits := msgr.Edits()
			Expect(edits).To(HaveKey(int64(101)))
			Expect(edits).NotTo(HaveKey(int64(102)))
			Expect(edits).To(HaveKey(int64(103)))
			Expect(load().Len()).To(Equal(0))
		})
	})

	Describe("/timed", func() {
		It("schedules a reminder named after the memo", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())

			Expect(sched.Delays()).To(Equal([]time.Duration{300 * time.Second}))

			reply := msgr.Last()
			Expect(reply.Text).To(Equal("Reminder in 5 min\ncall mom"))
			Expect(id).To(Equal(fmt.Sprint(reply.ID)))

			m, err := load().Get(reply.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Text).To(Equal("call mom"))

			pending, err := sched.JobsByName(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(pending[0].Type).To(Equal(jobs.TypeReminder))
			Expect(pending[0].ChatID).To(Equal(chatID))

			var r jobs.Reminder
			Expect(json.Unmarshal(pending[0].Payload, &r)).To(Succeed())
			Expect(r).To(Equal(jobs.Reminder{MessageID: reply.ID, Text: "call mom"}))
		})

		It("cancels once and then has nothing left to cancel", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())

			removed, err := svc.RemoveReminder(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeTrue())

			removed, err = svc.RemoveReminder(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})

		It("cancels the reminder when the memo is completed", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())
			reply := msgr.Last()

			Expect(svc.Press(ctx, chatID, reply.ID, bot.ActionCheck)).To(Succeed())

			pending, err := sched.JobsByName(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(BeEmpty())
		})

		DescribeTable("rejects bad input without side effects",
			func(args []string, want error) {
				_, err := svc.Timed(ctx, chatID, args)
				Expect(err).To(MatchError(want))
				Expect(err).To(MatchError(bot.ErrInvalidInput))
				Expect(load().Len()).To(Equal(0))
				Expect(sched.Delays()).To(BeEmpty())
				Expect(msgr.Sent()).To(BeEmpty())
			},
			Entry("no arguments", []string{}, bot.ErrBadCommand),
			Entry("only the delay", []string{"5"}, bot.ErrBadCommand),
			Entry("non-numeric delay", []string{"soon", "call"}, bot.ErrBadCommand),
			Entry("zero delay", []string{"0", "call"}, bot.ErrPastReminder),
			Entry("negative delay", []string{"-3", "call"}, bot.ErrPastReminder),
			Entry("overflowing delay", []string{"9223372036854775807", "call"}, bot.ErrBadCommand),
		)

		It("answers malformed commands in the chat", func() {
			Expect(svc.Dispatch(ctx, chatID, "/timed 5")).To(Succeed())
			Expect(msgr.Last().Text).To(ContainSubstring("malformed"))

			Expect(svc.Dispatch(ctx, chatID, "/timed 0 call mom")).To(Succeed())
			Expect(msgr.Last().Text).To(Equal("I can't remind you about the past"))

			Expect(load().Len()).To(Equal(0))
			Expect(sched.Delays()).To(BeEmpty())
		})

		It("accepts the command addressed to the bot by name", func() {
			Expect(svc.Dispatch(ctx, chatID, "/timed@todobot 2 stretch")).To(Succeed())
			Expect(sched.Delays()).To(Equal([]time.Duration{2 * time.Minute}))
		})
	})

	Describe("reminder firing", func() {
		fire := func(name string) {
			pending, err := sched.JobsByName(ctx, name)
			Expect(err).NotTo(HaveOccurred())
			Expect(pending).To(HaveLen(1))
			Expect(svc.Remind(ctx, pending[0])).To(Succeed())
		}

		It("shows the memo again and records the new message", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())

			fire(id)

			again := msgr.Last()
			Expect(again.Text).To(Equal("call mom"))
			Expect(again.Keyboard[0].Data).To(Equal(bot.ActionCheck))

			m, err := load().Get(again.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ID).To(Equal(id))
			Expect(m.Messages).To(HaveLen(2))

			Expect(svc.Press(ctx, chatID, again.ID, bot.ActionCheck)).To(Succeed())
			Expect(msgr.Edits()).To(HaveLen(2))
		})

		It("does nothing when the memo is already gone", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())
			pending, _ := sched.JobsByName(ctx, id)
			Expect(pending).To(HaveLen(1))

			reply := msgr.Sent()[0]
			Expect(svc.Complete(ctx, chatID, reply.ID)).To(Succeed())
			before := len(msgr.Sent())

			Expect(svc.Remind(ctx, pending[0])).To(Succeed())
			Expect(msgr.Sent()).To(HaveLen(before))
		})

		It("does nothing after /start dropped the list", func() {
			id, err := svc.Timed(ctx, chatID, []string{"5", "call", "mom"})
			Expect(err).NotTo(HaveOccurred())
			pending, _ := sched.JobsByName(ctx, id)

			Expect(svc.Dispatch(ctx, chatID, "/start")).To(Succeed())
			before := len(msgr.Sent())

			Expect(svc.Remind(ctx, pending[0])).To(Succeed())
			Expect(msgr.Sent()).To(HaveLen(before))
		})

		It("rejects a job with a broken payload", func() {
			err := svc.Remind(ctx, jobs.Job{ChatID: chatID, Type: jobs.TypeReminder, Payload: []byte("{oops")})
			Expect(err).To(MatchError(jobs.ErrBadPayload))
		})

		It("fires on the scheduler's own goroutine", func() {
			id, err := svc.Add(ctx, chatID, "stretch")
			Expect(err).NotTo(HaveOccurred())

			payload, _ := json.Marshal(jobs.Reminder{MessageID: 101, Text: "stretch"})
			_, err = sched.RunOnce(ctx, 10*time.Millisecond, jobs.Job{
				ChatID:  chatID,
				Name:    id,
				Type:    jobs.TypeReminder,
				Payload: payload,
			})
			Expect(err).NotTo(HaveOccurred())

			Eventually(func() int { return len(msgr.Sent()) }).Should(Equal(2))
			Eventually(func() []int64 {
				m, err := load().Get(101)
				if err != nil {
					return nil
				}
				return m.Messages
			}).Should(Equal([]int64{101, 102}))

			removed, err := svc.RemoveReminder(ctx, id)
			Expect(err).NotTo(HaveOccurred())
			Expect(removed).To(BeFalse())
		})
	})

	Describe("/list", func() {
		It("says so when there is nothing to do", func() {
			Expect(svc.Dispatch(ctx, chatID, "/list")).To(Succeed())
			Expect(msgr.Last().Text).To(Equal("You have no active tasks"))
			Expect(msgr.Last().Keyboard).To(BeEmpty())
		})

		It("shows every memo again with the check button", func() {
			_, _ = svc.Add(ctx, chatID, "a")
			_, _ = svc.Add(ctx, chatID, "b")

			Expect(svc.Dispatch(ctx, chatID, "/list")).To(Succeed())

			all := msgr.Sent()
			Expect(all).To(HaveLen(4))
			Expect(all[2].Text).To(Equal("a"))
			Expect(all[3].Text).To(Equal("b"))

			m, err := load().Get(all[3].ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(m.ID).To(Equal(fmt.Sprint(all[1].ID)))
		})

		It("filters by hashtag", func() {
			_, _ = svc.Add(ctx, chatID, "pay rent #home")
			_, _ = svc.Add(ctx, chatID, "ship it #work")

			Expect(svc.Dispatch(ctx, chatID, "/list #work")).To(Succeed())
			Expect(msgr.Sent()).To(HaveLen(3))
			Expect(msgr.Last().Text).To(Equal("ship it #work"))

			memos, err := svc.Memos(ctx, chatID, "home")
			Expect(err).NotTo(HaveOccurred())
			Expect(memos).To(HaveLen(1))
			Expect(memos[0].Text).To(Equal("pay rent #home"))
		})
	})

	Describe("other commands", func() {
		It("starts over on /start", func() {
			_, _ = svc.Add(ctx, chatID, "a")
			Expect(svc.Dispatch(ctx, chatID, "/start")).To(Succeed())
			Expect(load().Len()).To(Equal(0))
			Expect(msgr.Last().Text).To(ContainSubstring("/timed"))
		})

		It("shows help without touching the list", func() {
			_, _ = svc.Add(ctx, chatID, "a")
			Expect(svc.Dispatch(ctx, chatID, "/help")).To(Succeed())
			Expect(load().Len()).To(Equal(1))
			Expect(msgr.Last().Text).To(ContainSubstring("/list"))
		})

		It("answers unknown commands", func() {
			Expect(svc.Dispatch(ctx, chatID, "/dance")).To(Succeed())
			Expect(msgr.Last().Text).To(Equal("Sorry, I don't know that command"))
		})

		It("ignores blank messages", func() {
			Expect(svc.Dispatch(ctx, chatID, "   ")).To(Succeed())
			Expect(msgr.Sent()).To(BeEmpty())
		})
	})

	Describe("concurrency", func() {
		It("serializes events of one chat", func() {
			var wg sync.WaitGroup
			for i := 0; i < 50; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					_, err := svc.Add(ctx, chatID, fmt.Sprintf("memo %d", i))
					Expect(err).NotTo(HaveOccurred())
				}(i)
			}
			wg.Wait()
			Expect(load().Len()).To(Equal(50))
		})

		It("keeps chats apart", func() {
			_, _ = svc.Add(ctx, 1, "a")
			_, _ = svc.Add(ctx, 2, "b")

			one, _ := st.Load(ctx, 1)
			two, _ := st.Load(ctx, 2)
			Expect(one.Len()).To(Equal(1))
			Expect(two.Len()).To(Equal(1))
			Expect(svc.Complete(ctx, 2, 101)).To(MatchError(memo.ErrNotFound))
		})
	})
})
