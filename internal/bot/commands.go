package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/labstack/gommon/log"

	"meeting-planner/internal/apperr"
	"meeting-planner/internal/model"
)

const notLinkedText = "🔗 This chat is not linked yet. Send /link &lt;email&gt; with the email of your planner account."

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) error {
	if msg.From == nil {
		return nil
	}

	if !msg.IsCommand() {
		if handled, err := b.handleMenuAlias(ctx, msg); handled {
			return err
		}
		return b.sendText(msg.Chat.ID, "I did not understand that. Send /help for the list of commands.")
	}

	log.Infof("command from %d: /%s %s", msg.From.ID, msg.Command(), msg.CommandArguments())
	switch msg.Command() {
	case "start":
		return b.handleStart(ctx, msg)
	case "help":
		return b.handleHelp(msg)
	case "link":
		return b.handleLink(ctx, msg)
	case "agenda":
		return b.handleAgenda(ctx, msg)
	case "tasks":
		return b.handleTasks(ctx, msg)
	case "done":
		return b.handleDone(ctx, msg)
	default:
		return b.sendText(msg.Chat.ID, "Unknown command. Send /help for the list of commands.")
	}
}

func (b *Bot) handleMenuAlias(ctx context.Context, msg *tgbotapi.Message) (bool, error) {
	switch strings.TrimSpace(msg.Text) {
	case menuLabelAgenda:
		return true, b.handleAgenda(ctx, msg)
	case menuLabelTasks:
		return true, b.handleTasks(ctx, msg)
	case menuLabelHelp:
		return true, b.handleHelp(msg)
	default:
		return false, nil
	}
}

func (b *Bot) handleStart(ctx context.Context, msg *tgbotapi.Message) error {
	user, err := b.users.FindByTelegramID(ctx, msg.From.ID)
	if err != nil {
		if isNotFound(err) {
			name := strings.TrimSpace(msg.From.FirstName)
			if name == "" {
				name = "there"
			}
			return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Hi, %s!\n<b>I send meeting reminders and your daily agenda.</b>\n\n%s", html.EscapeString(name), notLinkedText))
		}
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, fmt.Sprintf("👋 Welcome back, %s! Send /help for the list of commands.", html.EscapeString(user.DisplayName())))
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	text := "ℹ️ <b>Commands</b>\n" +
		"• /link &lt;email&gt; — link this chat to your planner account\n" +
		"• /agenda — today's meetings and open tasks\n" +
		"• /tasks — open tasks, with buttons to complete them\n" +
		"• /done &lt;id&gt; — mark a task complete (for example, /done 3)\n" +
		"• /help — this message"
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleLink(ctx context.Context, msg *tgbotapi.Message) error {
	email := strings.TrimSpace(msg.CommandArguments())
	if email == "" {
		return b.sendText(msg.Chat.ID, "Give the email of your account: /link alice@example.com")
	}
	user, err := b.users.LinkTelegram(ctx, email, msg.From.ID)
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	log.Infof("chat %d linked to user %s", msg.From.ID, user.ID)
	return b.sendText(msg.Chat.ID, fmt.Sprintf("✅ Linked to %s. You will get reminders here.", html.EscapeString(user.DisplayName())))
}

func (b *Bot) handleAgenda(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return err
	}
	text, err := b.reminders.DailyAgenda(ctx, *user, time.Now())
	if err != nil {
		return b.replyError(msg.Chat.ID, err)
	}
	return b.sendText(msg.Chat.ID, text)
}

func (b *Bot) handleTasks(ctx context.Context, msg *tgbotapi.Message) error {
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return err
	}
	return b.sendTaskList(ctx, msg.Chat.ID, user)
}

func (b *Bot) handleDone(ctx context.Context, msg *tgbotapi.Message) error {
	args := strings.TrimSpace(msg.CommandArguments())
	if args == "" {
		return b.sendText(msg.Chat.ID, "Give the task ID: /done 12")
	}
	taskID, err := strconv.ParseUint(args, 10, 64)
	if err != nil {
		return b.sendText(msg.Chat.ID, "The task ID must be a number.")
	}
	user, ok, err := b.linkedUser(ctx, msg.Chat.ID, msg.From.ID)
	if !ok {
		return err
	}
	return b.completeTask(ctx, msg.Chat.ID, user, uint(taskID))
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) error {
	if cb == nil || cb.From == nil || cb.Message == nil || cb.Message.Chat == nil {
		return nil
	}

	if !strings.HasPrefix(cb.Data, cbCompletePrefix) {
		b.ack(cb, "")
		return nil
	}
	log.Infof("callback complete request user=%d task=%s", cb.From.ID, strings.TrimPrefix(cb.Data, cbCompletePrefix))
	b.ack(cb, "")

	taskID, err := parseTaskID(cb.Data, cbCompletePrefix)
	if err != nil {
		return nil
	}
	user, ok, err := b.linkedUser(ctx, cb.Message.Chat.ID, cb.From.ID)
	if !ok {
		return err
	}
	return b.completeTask(ctx, cb.Message.Chat.ID, user, taskID)
}

// completeTask completes a task assigned to user and sends the refreshed list.
func (b *Bot) completeTask(ctx context.Context, chatID int64, user *model.User, taskID uint) error {
	task, err := b.tasks.GetTask(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	if task.AssigneeID == nil || *task.AssigneeID != user.ID {
		return b.replyError(chatID, apperr.Forbidden("Task %d is not assigned to you", taskID))
	}
	if task.Completed {
		return b.sendText(chatID, "The task is already complete.")
	}

	task, err = b.tasks.MarkTaskComplete(ctx, taskID)
	if err != nil {
		return b.replyError(chatID, err)
	}
	log.Infof("task completed id=%d user=%s", task.ID, user.ID)
	if err := b.sendText(chatID, fmt.Sprintf("✅ Task «%s» is complete.", html.EscapeString(strings.TrimSpace(task.Title)))); err != nil {
		return err
	}
	return b.sendTaskList(ctx, chatID, user)
}

func (b *Bot) sendTaskList(ctx context.Context, chatID int64, user *model.User) error {
	text, err := b.reminders.OpenTasks(ctx, *user, time.Now())
	if err != nil {
		return b.replyError(chatID, err)
	}
	tasks, err := b.tasks.ListByUser(ctx, user.ID)
	if err != nil {
		return b.replyError(chatID, err)
	}

	var buttons [][]tgbotapi.InlineKeyboardButton
	for _, task := range tasks {
		if task.Completed {
			continue
		}
		buttons = append(buttons, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("✅ #%d · %s", task.ID, shortTitle(task.Title, 24)),
				fmt.Sprintf("%s%d", cbCompletePrefix, task.ID),
			),
		))
	}
	if len(buttons) == 0 {
		return b.sendText(chatID, text)
	}
	return b.sendWithReplyMarkup(chatID, text, tgbotapi.NewInlineKeyboardMarkup(buttons...))
}

// linkedUser resolves the user of a chat. When ok is false the chat has
// already been answered and err is the result of that reply.
func (b *Bot) linkedUser(ctx context.Context, chatID, telegramID int64) (user *model.User, ok bool, err error) {
	user, err = b.users.FindByTelegramID(ctx, telegramID)
	if err != nil {
		if isNotFound(err) {
			return nil, false, b.sendText(chatID, notLinkedText)
		}
		return nil, false, b.replyError(chatID, err)
	}
	return user, true, nil
}

func (b *Bot) replyError(chatID int64, err error) error {
	_, detail := apperr.Status(err)
	return b.sendText(chatID, "⚠️ "+html.EscapeString(detail))
}

func isNotFound(err error) bool {
	var nf *apperr.NotFoundError
	return errors.As(err, &nf)
}

func parseTaskID(data, prefix string) (uint, error) {
	raw := strings.TrimPrefix(data, prefix)
	value, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, err
	}
	return uint(value), nil
}

func shortTitle(title string, maxLen int) string {
	clean := strings.TrimSpace(strings.ReplaceAll(title, "\n", " "))
	runes := []rune(clean)
	if len(runes) <= maxLen {
		return clean
	}
	if maxLen <= 1 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-1]) + "…"
}
