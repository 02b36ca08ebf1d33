package bot

import (
	"context"
	"errors"
	"html"
	"strings"

	"go.uber.org/zap"

	"todobot/internal/memo"
	"todobot/internal/metrics"
)

const (
	helpText = "To add a task, just send it to this chat.\n" +
		"To mark it done, press the button under the task.\n" +
		"To add a task with a reminder in n minutes, send\n" +
		"\"/timed n task to be reminded of in n minutes\"\n" +
		"Use /list to see your current tasks, /list #tag to see only tagged ones."
	noTasksText    = "You have no active tasks"
	unknownText    = "Sorry, I don't know that command"
	badCommandText = "The command is malformed. Usage: /timed <minutes> <task>"
	pastText       = "I can't remind you about the past"
)

// Dispatch handles a text message written by the user: commands start with
// "/", anything else becomes a memo.
func (s *Service) Dispatch(ctx context.Context, chatID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if !strings.HasPrefix(text, "/") {
		_, err := s.Add(ctx, chatID, text)
		return err
	}

	name, args := splitCommand(text)
	switch name {
	case "start":
		return s.Start(ctx, chatID)
	case "help":
		return s.Help(ctx, chatID)
	case "list":
		var tag string
		if len(args) > 0 {
			tag = args[0]
		}
		return s.List(ctx, chatID, tag)
	case "timed":
		_, err := s.Timed(ctx, chatID, args)
		if errors.Is(err, ErrInvalidInput) {
			return s.reject(ctx, chatID, err)
		}
		return err
	default:
		_, err := s.msgr.Send(ctx, chatID, unknownText, nil)
		return err
	}
}

// splitCommand turns "/timed@bot 5 buy milk" into ("timed", ["5", "buy", "milk"]).
func splitCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	name := strings.TrimPrefix(fields[0], "/")
	if i := strings.IndexByte(name, '@'); i >= 0 {
		name = name[:i]
	}
	return strings.ToLower(name), fields[1:]
}

// reject tells the user why their command was not accepted.
func (s *Service) reject(ctx context.Context, chatID int64, err error) error {
	text := badCommandText
	if errors.Is(err, ErrPastReminder) {
		text = pastText
	}
	s.logger.Debug("command rejected", zap.Int64("chat_id", chatID), zap.Error(err))
	_, sendErr := s.msgr.Send(ctx, chatID, text, nil)
	return sendErr
}

// Start greets the user and gives the chat a fresh, empty memo list.
func (s *Service) Start(ctx context.Context, chatID int64) error {
	unlock := s.locks.lock(chatID)
	err := s.store.Reset(ctx, chatID)
	unlock()
	if err != nil {
		return err
	}
	_, err = s.msgr.Send(ctx, chatID, helpText, nil)
	return err
}

func (s *Service) Help(ctx context.Context, chatID int64) error {
	_, err := s.msgr.Send(ctx, chatID, helpText, nil)
	return err
}

// Add echoes text back with the check button and records it as a memo
// keyed by the echo.
func (s *Service) Add(ctx context.Context, chatID int64, text string) (string, error) {
	var id string
	err := s.withChat(ctx, chatID, func(l *memo.List) error {
		msgID, err := s.msgr.Send(ctx, chatID, text, checkKeyboard)
		if err != nil {
			return err
		}
		id = l.Add(msgID, text)
		return nil
	})
	if err != nil {
		return "", err
	}

	metrics.MemosCreated.Inc()
	s.logger.Debug("memo added", zap.Int64("chat_id", chatID), zap.String("memo_id", id))
	return id, nil
}

// List shows every active memo again, or only those tagged with tag.
func (s *Service) List(ctx context.Context, chatID int64, tag string) error {
	return s.withChat(ctx, chatID, func(l *memo.List) error {
		memos := l.Filter(tag)
		if len(memos) == 0 {
			_, err := s.msgr.Send(ctx, chatID, noTasksText, nil)
			return err
		}
		for _, m := range memos {
			msgID, err := s.msgr.Send(ctx, chatID, m.Text, checkKeyboard)
			if err != nil {
				return err
			}
			m.Update(msgID)
		}
		return nil
	})
}

// Memos returns the chat's active memos, optionally filtered by tag.
func (s *Service) Memos(ctx context.Context, chatID int64, tag string) ([]*memo.Memo, error) {
	unlock := s.locks.lock(chatID)
	defer unlock()

	l, err := s.store.Load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return l.Filter(tag), nil
}

// Press handles a button press on one of the bot's messages.
func (s *Service) Press(ctx context.Context, chatID, messageID int64, data string) error {
	if data != ActionCheck {
		return ErrUnknownAction
	}
	return s.Complete(ctx, chatID, messageID)
}

// Complete strikes through every message showing the memo behind messageID,
// drops the memo and cancels its pending reminder.
func (s *Service) Complete(ctx context.Context, chatID, messageID int64) error {
	var done *memo.Memo
	err := s.withChat(ctx, chatID, func(l *memo.List) error {
		m, err := l.Get(messageID)
		if err != nil {
			return err
		}

		struck := strike(m.Text)
		for _, id := range m.Messages {
			if err := s.msgr.Edit(ctx, chatID, id, struck); err != nil {
				s.logger.Warn("strike message failed",
					zap.Int64("chat_id", chatID),
					zap.Int64("message_id", id),
					zap.Error(err),
				)
			}
		}

		if err := l.Remove(messageID); err != nil {
			return err
		}
		done = m
		return nil
	})
	if err != nil {
		return err
	}

	metrics.MemosCompleted.Inc()
	if _, err := s.RemoveReminder(ctx, done.ID); err != nil {
		s.logger.Error("cancel reminder failed", zap.String("memo_id", done.ID), zap.Error(err))
	}
	return nil
}

func strike(text string) string {
	return "<s>" + html.EscapeString(text) + "</s>"
}
