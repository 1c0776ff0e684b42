// Package channel contains the user-facing surfaces. Telegram is the only
// one: long polling, inline approve/reject keyboards for protected actions
// and chunked markdown delivery.
package channel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/n1kko777/sber-agents/internal/agent"
	"github.com/n1kko777/sber-agents/internal/domain"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3

	callbackApprove = "interrupt_approve"
	callbackReject  = "interrupt_reject"
)

// Agent is the conversational engine behind the channel.
type Agent interface {
	Ask(ctx context.Context, threadID, question string) (*agent.Result, error)
	Resume(ctx context.Context, threadID string, decision domain.InterruptDecision, reason string) (*agent.Result, error)
}

// Telegram serves the agent over the Telegram Bot API. Each chat maps to one
// conversation thread; messages within a chat are processed strictly in
// order while different chats run concurrently.
type Telegram struct {
	token       string
	allowFrom   []int64 // Allowed user IDs (empty = allow all)
	parseMode   string
	showSources bool

	bot    *tgbotapi.BotAPI
	agent  Agent
	logger *slog.Logger

	chatLocks sync.Map // chatID → *sync.Mutex
}

type TelegramConfig struct {
	Token       string
	AllowFrom   []string // User IDs as strings
	ParseMode   string
	ShowSources bool
	Agent       Agent
	Logger      *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.ParseMode == "" {
		cfg.ParseMode = "Markdown"
	}
	return &Telegram{
		token:       cfg.Token,
		allowFrom:   allowed,
		parseMode:   cfg.ParseMode,
		showSources: cfg.ShowSources,
		agent:       cfg.Agent,
		logger:      cfg.Logger,
	}
}

// Start connects to Telegram and polls for updates until ctx is cancelled.
func (t *Telegram) Start(ctx context.Context) error {
	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			go t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.CallbackQuery != nil {
		t.handleCallback(ctx, update.CallbackQuery)
		return
	}

	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	userID := update.Message.From.ID
	chatID := update.Message.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", update.Message.From.UserName,
		)
		t.sendMessage(chatID, "⛔ Доступ запрещен.")
		return
	}

	text := strings.TrimSpace(update.Message.Text)
	if text == "" {
		return
	}

	if update.Message.IsCommand() {
		t.handleCommand(chatID, update.Message)
		return
	}

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"text_len", len(text),
	)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	unlock := t.lockChat(chatID)
	defer unlock()

	result, err := t.agent.Ask(ctx, threadID(chatID), text)
	if err != nil {
		t.replyError(chatID, err)
		return
	}
	t.deliver(chatID, result)
}

func (t *Telegram) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	if cq.Message == nil || cq.Message.Chat == nil {
		return
	}
	chatID := cq.Message.Chat.ID

	callback := tgbotapi.NewCallback(cq.ID, "")
	_, _ = t.bot.Request(callback)

	var decision domain.InterruptDecision
	switch cq.Data {
	case callbackApprove:
		decision = domain.DecisionApprove
	case callbackReject:
		decision = domain.DecisionReject
	default:
		return
	}

	// Remove the keyboard so the decision cannot be submitted twice.
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, cq.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	_, _ = t.bot.Send(edit)

	unlock := t.lockChat(chatID)
	defer unlock()

	// Inline buttons carry no free text, so the rejection reason stays empty.
	result, err := t.agent.Resume(ctx, threadID(chatID), decision, "")
	if err != nil {
		t.replyError(chatID, err)
		return
	}
	t.deliver(chatID, result)
}

// deliver sends the run's outcome: a pending interrupt becomes an inline
// approve/reject prompt, a final answer goes out with its sources footer.
func (t *Telegram) deliver(chatID int64, result *agent.Result) {
	if result.Interrupt != nil {
		t.sendInterruptPrompt(chatID, result.Interrupt)
		return
	}

	text := result.Answer
	if t.showSources && len(result.Documents) > 0 {
		text += "\n\n" + formatSourcesFooter(result.Documents)
	}
	t.sendMessage(chatID, text)
}

func (t *Telegram) sendInterruptPrompt(chatID int64, interrupt *domain.InterruptRequest) {
	var sb strings.Builder
	sb.WriteString("⚠️ Требуется подтверждение операции\n\n")
	fmt.Fprintf(&sb, "Операция: %s\n", interrupt.ToolName)
	if len(interrupt.ToolArgs) > 0 {
		sb.WriteString("Параметры:\n")
		for k, v := range interrupt.ToolArgs {
			fmt.Fprintf(&sb, "  %s: %v\n", k, v)
		}
	}
	sb.WriteString("\nВыполнить?")

	msg := tgbotapi.NewMessage(chatID, sb.String())
	msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", callbackApprove),
			tgbotapi.NewInlineKeyboardButtonData("❌ Отклонить", callbackReject),
		),
	)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Error("failed to send interrupt prompt", "chat_id", chatID, "err", err)
	}
}

// formatSourcesFooter groups citations by file, pages merged per file.
func formatSourcesFooter(refs []domain.SourceRef) string {
	type fileRefs struct {
		name  string
		pages []int
	}
	byFile := make(map[string]*fileRefs)
	var order []string
	for _, r := range refs {
		f, ok := byFile[r.Source]
		if !ok {
			f = &fileRefs{name: r.Source}
			byFile[r.Source] = f
			order = append(order, r.Source)
		}
		if r.Page > 0 && !containsInt(f.pages, r.Page) {
			f.pages = append(f.pages, r.Page)
		}
	}

	var sb strings.Builder
	sb.WriteString("📚 Источники:")
	for _, name := range order {
		f := byFile[name]
		if len(f.pages) > 0 {
			pages := make([]string, 0, len(f.pages))
			for _, p := range f.pages {
				pages = append(pages, strconv.Itoa(p))
			}
			fmt.Fprintf(&sb, "\n• %s, стр. %s", f.name, strings.Join(pages, ", "))
		} else {
			fmt.Fprintf(&sb, "\n• %s", f.name)
		}
	}
	return sb.String()
}

func containsInt(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}
	return false
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, "👋 Здравствуйте! Я помощник банка.\n\nЯ отвечаю на вопросы о продуктах и услугах, считаю доходность вкладов, конвертирую валюту и помогаю открыть вклад или карту.\n\nПросто напишите свой вопрос.")
	case "help":
		t.sendMessage(chatID, "📖 Что я умею:\n• Отвечать на вопросы о продуктах банка\n• Искать информацию в документах\n• Рассчитывать доходность вкладов\n• Конвертировать валюту по курсу ЦБ РФ\n• Открывать вклады и карты (с вашим подтверждением)")
	default:
		t.sendMessage(chatID, "Неизвестная команда. /help — список возможностей.")
	}
}

func (t *Telegram) replyError(chatID int64, err error) {
	t.logger.Error("agent request failed", "chat_id", chatID, "error", err)
	var protoErr *domain.InterruptProtocolError
	if errors.As(err, &protoErr) {
		t.sendMessage(chatID, "⚠️ Сначала подтвердите или отклоните ожидающую операцию.")
		return
	}
	t.sendMessage(chatID, "Извините, произошла ошибка. Попробуйте еще раз.")
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // Empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

// lockChat serializes processing per chat so checkpoint writes for one
// thread never interleave.
func (t *Telegram) lockChat(chatID int64) func() {
	muAny, _ := t.chatLocks.LoadOrStore(chatID, &sync.Mutex{})
	mu := muAny.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

func threadID(chatID int64) string {
	return "telegram:" + strconv.FormatInt(chatID, 10)
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram has a 4096 char limit per message
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit handling.
// Strategy: try Markdown first → on parse error fallback to plain text → retry with backoff.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}
		// On subsequent attempts: send as plain text (parse mode may be malformed).

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		// Handle Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		// Markdown parse error on first attempt — immediately retry as plain text.
		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram markdown parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			plainMsg := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
			// Plain also failed — fall through to backoff loop.
		}

		// Exponential backoff for other transient errors.
		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", maxRetries+1)
	}
}
