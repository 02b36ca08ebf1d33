package bot_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"todobot/internal/bot"
)

var _ = Describe("ParseTimed", func() {
	It("converts minutes and joins the text", func() {
		d, text, err := bot.ParseTimed([]string{"5", "buy", "milk"})
		Expect(err).NotTo(HaveOccurred())
		Expect(d).To(Equal(300 * time.Second))
		Expect(text).To(Equal("buy milk"))
	})

	It("needs a delay and some text", func() {
		_, _, err := bot.ParseTimed([]string{"5"})
		Expect(err).To(MatchError(bot.ErrBadCommand))
	})

	It("refuses the past", func() {
		_, _, err := bot.ParseTimed([]string{"0", "x"})
		Expect(err).To(MatchError(bot.ErrPastReminder))
	})
})
