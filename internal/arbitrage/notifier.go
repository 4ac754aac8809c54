package arbitrage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/models"
)

// Min interval between any two Telegram messages to the same chat to avoid 429 Too Many Requests (~30/min limit).
const telegramSendInterval = 2 * time.Second

type messageType int

const (
	messageTypeOpportunity messageType = iota
	messageTypeTest
)

type queuedMessage struct {
	msgType     messageType
	opp         *models.Opportunity
	threshold   float64
	testMessage string
}

// TelegramNotifier sends Telegram alerts for detected arbitrage
// opportunities. Sends go through a background queue so scan cycles never
// block on the Telegram API.
type TelegramNotifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	mu       sync.Mutex
	lastSend time.Time

	queue     chan queuedMessage
	queueDone chan struct{}
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewTelegramNotifier creates the notifier and verifies the bot token.
// Returns nil when the bot cannot be reached; callers treat a nil notifier as
// alerting disabled.
func NewTelegramNotifier(token string, chatID int64) *TelegramNotifier {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		slog.Error("Failed to create telegram bot", "error", err)
		return nil
	}
	bot.Debug = false

	if _, err := bot.GetMe(); err != nil {
		slog.Error("Failed to get bot info", "error", err)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	notifier := &TelegramNotifier{
		bot:       bot,
		chatID:    chatID,
		queue:     make(chan queuedMessage, 100),
		queueDone: make(chan struct{}),
		ctx:       ctx,
		cancel:    cancel,
	}

	notifier.wg.Add(1)
	go notifier.messageSender()

	slog.Info("Telegram notifier initialized", "chat_id", chatID)
	return notifier
}

// QueueLen returns current number of messages in the send queue (for logging).
func (n *TelegramNotifier) QueueLen() int {
	if n == nil || n.queue == nil {
		return 0
	}
	return len(n.queue)
}

// messageSender runs in background and sends queued messages with proper intervals
func (n *TelegramNotifier) messageSender() {
	defer n.wg.Done()

	for {
		select {
		case <-n.ctx.Done():
			// Drain remaining messages before exit
			for {
				select {
				case msg := <-n.queue:
					n.sendQueuedMessage(msg)
				default:
					close(n.queueDone)
					return
				}
			}
		case msg := <-n.queue:
			n.sendQueuedMessage(msg)
		}
	}
}

func (n *TelegramNotifier) sendQueuedMessage(msg queuedMessage) {
	var messageText string
	switch msg.msgType {
	case messageTypeOpportunity:
		messageText = n.formatOpportunityAlert(msg.opp, msg.threshold)
	case messageTypeTest:
		messageText = msg.testMessage
	default:
		slog.Error("Unknown message type", "type", msg.msgType)
		return
	}

	tgMsg := tgbotapi.NewMessage(n.chatID, messageText)
	tgMsg.ParseMode = tgbotapi.ModeMarkdown

	// Wait for proper interval
	n.mu.Lock()
	elapsed := time.Since(n.lastSend)
	if elapsed < telegramSendInterval {
		waitTime := telegramSendInterval - elapsed
		n.mu.Unlock()
		select {
		case <-n.ctx.Done():
			slog.Warn("Telegram send: cancelled during wait", "type", msg.msgType)
			return
		case <-time.After(waitTime):
		}
		n.mu.Lock()
	}
	n.lastSend = time.Now()
	_, err := n.bot.Send(tgMsg)
	n.mu.Unlock()

	if err != nil {
		slog.Error("Telegram send: failed", "error", err, "type", msg.msgType)
		return
	}
	logArgs := []any{"type", msg.msgType, "queue_length", len(n.queue)}
	if msg.opp != nil {
		logArgs = append(logArgs, "match", msg.opp.MatchTitle, "profit_percent", msg.opp.ProfitPercent)
	}
	slog.Info("Telegram send: success", logArgs...)
}

// SendOpportunityAlert queues an alert for a detected opportunity (non-blocking).
func (n *TelegramNotifier) SendOpportunityAlert(ctx context.Context, opp *models.Opportunity, threshold float64) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}

	oppCopy := *opp
	oppCopy.Legs = append([]models.Leg(nil), opp.Legs...)

	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- queuedMessage{
		msgType:   messageTypeOpportunity,
		opp:       &oppCopy,
		threshold: threshold,
	}:
		return nil
	default:
		slog.Warn("Telegram message queue is full, dropping message", "match", opp.MatchTitle)
		return fmt.Errorf("message queue is full")
	}
}

// SendTestAlert queues a test alert message (non-blocking).
func (n *TelegramNotifier) SendTestAlert(ctx context.Context, message string) error {
	if n == nil || n.bot == nil {
		return fmt.Errorf("telegram notifier not initialized")
	}

	testMsg := fmt.Sprintf("🧪 *Test Alert*\n\n%s\n\n_Time: %s_", message, time.Now().UTC().Format("2006-01-02 15:04:05 UTC"))

	select {
	case <-n.ctx.Done():
		return fmt.Errorf("notifier stopped")
	case <-ctx.Done():
		return ctx.Err()
	case n.queue <- queuedMessage{msgType: messageTypeTest, testMessage: testMsg}:
		slog.Info("Telegram test alert: queued", "queue_len", len(n.queue))
		return nil
	default:
		slog.Warn("Telegram test alert: queue full, dropping")
		return fmt.Errorf("message queue is full")
	}
}

// Stop stops the notifier and waits for all queued messages to be sent
func (n *TelegramNotifier) Stop() {
	if n == nil {
		return
	}
	n.cancel()
	<-n.queueDone
	n.wg.Wait()
}

// formatOpportunityAlert formats an arbitrage opportunity as a Telegram message.
func (n *TelegramNotifier) formatOpportunityAlert(opp *models.Opportunity, threshold float64) string {
	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("🚨 *Arbitrage Alert (%.1f%%+)*\n\n", threshold))
	builder.WriteString(fmt.Sprintf("*%s*\n", escapeMarkdown(opp.MatchTitle)))
	if opp.League != "" {
		builder.WriteString(fmt.Sprintf("🏆 %s", escapeMarkdown(opp.League)))
		if opp.Sport != "" {
			builder.WriteString(fmt.Sprintf(" | %s", escapeMarkdown(opp.Sport)))
		}
		builder.WriteString("\n")
	}
	builder.WriteString(fmt.Sprintf("\n📈 *Profit: %.2f%%*\n", opp.ProfitPercent))
	builder.WriteString(fmt.Sprintf("💰 Invest %.2f → return %.2f\n\n", opp.Investment, opp.ExpectedRet))

	// No-vig implied probabilities for the combination, used for the per-leg
	// Kelly sizing hint.
	sumReciprocals := 0.0
	for _, leg := range opp.Legs {
		if leg.Odds > 1.0 {
			sumReciprocals += 1.0 / leg.Odds
		}
	}

	for _, leg := range opp.Legs {
		builder.WriteString(fmt.Sprintf("▫️ %s @ *%.2f* (%s): stake %.2f",
			escapeMarkdown(leg.OutcomeLabel),
			leg.Odds,
			escapeMarkdown(leg.SourceID),
			leg.Stake))
		if sumReciprocals > 0 && leg.Odds > 1.0 {
			probability := (1.0 / leg.Odds) / sumReciprocals
			if k := KellyFraction(leg.Odds, probability); k > 0 {
				builder.WriteString(fmt.Sprintf(" | kelly %.1f%%", k*100))
			}
		}
		builder.WriteString("\n")
	}

	if !opp.StartTime.IsZero() {
		builder.WriteString(fmt.Sprintf("\n🕐 Kick-off: %s\n", formatTime(opp.StartTime)))
	}
	return builder.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "N/A"
	}
	return t.Format("2006-01-02 15:04 UTC")
}

func escapeMarkdown(text string) string {
	replacer := strings.NewReplacer(
		"_", "\\_",
		"*", "\\*",
		"[", "\\[",
		"]", "\\]",
		"`", "\\`",
	)
	return replacer.Replace(text)
}
