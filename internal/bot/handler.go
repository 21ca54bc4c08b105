package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/armcoincrypto/Armcalc/internal/calc"
	"github.com/armcoincrypto/Armcalc/internal/feed"
	"github.com/armcoincrypto/Armcalc/internal/panel"
	"github.com/armcoincrypto/Armcalc/internal/rates"
	"github.com/armcoincrypto/Armcalc/internal/storage"
	"github.com/armcoincrypto/Armcalc/internal/units"
)

// Handler routes incoming messages to the calculator, unit converter, rate
// lookups, and the panel state machine. Every failure answers with a plain
// message and, where it helps, a short list of concrete alternatives.
type Handler struct {
	rates   *rates.Service
	prices  *feed.PriceClient
	panels  panel.Store
	history storage.HistoryStore
	autoFix bool
	logger  zerolog.Logger
}

// NewHandler wires the command handler. history may be nil when persistence
// is not configured.
func NewHandler(rateSvc *rates.Service, prices *feed.PriceClient, panels panel.Store, history storage.HistoryStore, autoFix bool, logger zerolog.Logger) *Handler {
	return &Handler{
		rates:   rateSvc,
		prices:  prices,
		panels:  panels,
		history: history,
		autoFix: autoFix,
		logger:  logger.With().Str("component", "handler").Logger(),
	}
}

const helpText = `Armcalc commands:
/calc <expression> — evaluate (10% of sums works: 100+10%)
/units <amount> <from> <to> — unit conversion
/price <symbol> — crypto price
/rate <from> <to> [method] — exchange rate
/convert — conversion panel (see /convert help)
/history — your recent results
/clear — wipe your history

A bare message is treated as an expression.`

const convertHelpText = `Panel commands:
/convert — show the panel
/convert <amount> — set amount and convert
/convert from <usdt|amd|usd|rub>
/convert to <usdt|amd|usd|rub>
/convert swap
/convert network <trc20|bep20|erc20|ton|sol>
/convert unit <cash|card>
/convert method <sberbank|tinkoff|alfa|vtb>
/convert go — run the conversion
/convert close — discard the panel`

// HandleMessage dispatches one message. Send failures are logged, never
// bubbled: the poll loop must keep running.
func (h *Handler) HandleMessage(ctx context.Context, sender Sender, msg Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" {
		return
	}

	var reply string
	command, args := splitCommand(text)
	switch command {
	case "/start", "/help":
		reply = helpText
	case "/calc":
		reply = h.handleCalc(ctx, msg.From.ID, args)
	case "/units":
		reply = h.handleUnits(ctx, msg.From.ID, args)
	case "/price":
		reply = h.handlePrice(ctx, msg.From.ID, args)
	case "/rate":
		reply = h.handleRate(ctx, msg.From.ID, args)
	case "/convert":
		reply = h.handleConvert(ctx, msg.From.ID, args)
	case "/history":
		reply = h.handleHistory(ctx, msg.From.ID)
	case "/clear":
		reply = h.handleClear(ctx, msg.From.ID)
	default:
		if strings.HasPrefix(command, "/") {
			reply = "Unknown command. Try /help."
		} else {
			// A bare message is an expression.
			reply = h.handleCalc(ctx, msg.From.ID, text)
		}
	}

	if reply == "" {
		return
	}
	if err := sender.SendMessage(ctx, msg.Chat.ID, reply); err != nil {
		h.logger.Warn().Err(err).Int64("chat_id", msg.Chat.ID).Msg("reply failed")
	}
}

func splitCommand(text string) (string, string) {
	parts := strings.SplitN(text, " ", 2)
	command := strings.ToLower(parts[0])
	// Strip the @botname suffix of group-chat commands.
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	args := ""
	if len(parts) > 1 {
		args = strings.TrimSpace(parts[1])
	}
	return command, args
}

func (h *Handler) handleCalc(ctx context.Context, userID int64, expression string) string {
	if expression == "" {
		return "Usage: /calc <expression>"
	}

	result := calc.Evaluate(expression)
	if !result.OK {
		return result.Err
	}

	h.record(ctx, userID, expression, result.Formatted, storage.EntryCalc)
	return fmt.Sprintf("%s = %s", expression, result.Formatted)
}

func (h *Handler) handleUnits(ctx context.Context, userID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) != 3 && !(len(fields) == 4 && strings.EqualFold(fields[2], "to")) {
		return "Usage: /units <amount> <from> <to>\nExample: /units 10 km mi"
	}
	fromUnit, toUnit := fields[1], fields[2]
	if len(fields) == 4 {
		toUnit = fields[3]
	}

	amount, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", ""), 64)
	if err != nil {
		return "Invalid amount: " + fields[0]
	}

	result := units.Convert(amount, fromUnit, toUnit)
	if result == nil {
		return fmt.Sprintf("Cannot convert %s to %s. Units must share a category (distance, weight, volume, area, speed, data, temperature).", fromUnit, toUnit)
	}

	formatted := result.Formatted()
	h.record(ctx, userID, fmt.Sprintf("%s %s -> %s", fields[0], fromUnit, toUnit), formatted, storage.EntryUnits)
	return formatted
}

func (h *Handler) handlePrice(ctx context.Context, userID int64, args string) string {
	symbol := strings.TrimSpace(args)
	if symbol == "" {
		return "Usage: /price <symbol>\nExample: /price btc"
	}

	price, err := h.prices.GetPrice(ctx, symbol)
	if err != nil {
		return "Price source is unavailable right now, try again in a minute."
	}
	if price == nil {
		return fmt.Sprintf("Unknown symbol %q. Try btc, eth, usdt, ton...", symbol)
	}

	reply := fmt.Sprintf("%s (%s): %s", price.Name, price.Symbol, price.FormattedUSD())
	if price.AMD != nil {
		reply += " / " + price.FormattedAMD()
	}
	if price.Change24h != nil {
		reply += fmt.Sprintf(" (%+.2f%% 24h)", *price.Change24h)
	}

	h.record(ctx, userID, strings.ToLower(symbol), price.FormattedUSD(), storage.EntryPrice)
	return reply
}

func (h *Handler) handleRate(ctx context.Context, userID int64, args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "Usage: /rate <from> <to> [method]\nExample: /rate usdt amd"
	}
	method := ""
	if len(fields) > 2 {
		method = fields[2]
	}

	quote := h.rates.GetRate(ctx, fields[0], fields[1], method, "")
	if quote == nil {
		return h.unavailableReply(fields[0], fields[1])
	}

	h.record(ctx, userID,
		fmt.Sprintf("%s -> %s", quote.FromCode, quote.ToCode),
		quote.Rate.StringFixed(4), storage.EntryRate)
	return fmt.Sprintf("1 %s = %s %s", quote.FromDisplay, quote.Rate.StringFixed(4), quote.ToDisplay)
}

// unavailableReply names the failure and lists quotable targets for the same
// source, so the user gets something actionable instead of a bare "no".
func (h *Handler) unavailableReply(from, to string) string {
	reply := fmt.Sprintf("%s → %s is not available right now.",
		strings.ToUpper(from), strings.ToUpper(to))

	fromCode := h.rates.NormalizeCode(from)
	directions := h.rates.ListDirections(context.Background(), fromCode, "")
	if len(directions) == 0 {
		return reply
	}

	seen := make(map[string]bool)
	var targets []string
	for _, d := range directions {
		display := h.rates.DisplayName(d.ToCode, d.Method)
		if seen[display] {
			continue
		}
		seen[display] = true
		targets = append(targets, display)
		if len(targets) == 3 {
			break
		}
	}
	if len(targets) > 0 {
		reply += "\nAvailable from " + strings.ToUpper(from) + ": " + strings.Join(targets, ", ")
	}
	return reply
}

func (h *Handler) handleConvert(ctx context.Context, userID int64, args string) string {
	state, err := h.panels.Get(ctx, userID)
	if err != nil {
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("panel state load failed")
		state = panel.NewState()
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		return h.renderPanel(ctx, userID, state)
	}

	switch strings.ToLower(fields[0]) {
	case "help":
		return convertHelpText
	case "from":
		if len(fields) < 2 {
			return "Usage: /convert from <usdt|amd|usd|rub>"
		}
		state = state.SetFrom(fields[1])
	case "to":
		if len(fields) < 2 {
			return "Usage: /convert to <usdt|amd|usd|rub>"
		}
		state = state.SetTo(fields[1])
	case "swap":
		state = state.Swap()
	case "network":
		if len(fields) < 2 {
			return "Usage: /convert network <trc20|bep20|erc20|ton|sol>"
		}
		state = state.SetNetwork(fields[1])
	case "unit":
		if len(fields) < 2 {
			return "Usage: /convert unit <cash|card>"
		}
		state = state.SetAMDUnit(fields[1])
	case "method":
		if len(fields) < 2 {
			return "Usage: /convert method <sberbank|tinkoff|alfa|vtb>"
		}
		state = state.SetRUBMethod(fields[1])
	case "go":
		return h.runConversion(ctx, userID, state)
	case "close":
		if err := h.panels.Delete(ctx, userID); err != nil {
			h.logger.Warn().Err(err).Int64("user_id", userID).Msg("panel delete failed")
		}
		return "Panel closed."
	default:
		// A bare number sets the amount and converts immediately.
		next, amountErr := state.SetAmount(args)
		if amountErr != nil {
			switch {
			case errors.Is(amountErr, panel.ErrAmountNotPositive):
				return "Amount must be positive."
			case errors.Is(amountErr, panel.ErrAmountTooLarge):
				return "Amount too large."
			default:
				return "Unknown panel command. See /convert help."
			}
		}
		return h.runConversion(ctx, userID, next)
	}

	h.savePanel(ctx, userID, state)
	return h.renderPanel(ctx, userID, state)
}

func (h *Handler) runConversion(ctx context.Context, userID int64, state panel.State) string {
	state, verdict := panel.AutoFix(ctx, state, h.rates, h.autoFix)

	var prefix string
	if verdict.Adjusted {
		prefix = verdict.AdjustmentMsg + "\n"
	}

	if !verdict.Available {
		h.savePanel(ctx, userID, state)
		reply := prefix + verdict.Reason + "."
		if len(verdict.Suggestions) > 0 {
			var options []string
			for _, s := range verdict.Suggestions {
				options = append(options, s.Display)
			}
			reply += "\nTry: " + strings.Join(options, ", ")
		}
		return reply
	}

	quote := h.rates.GetRate(ctx, verdict.FromCode, verdict.ToCode, verdict.Method, "")
	if quote == nil {
		h.savePanel(ctx, userID, state)
		return prefix + h.unavailableReply(state.FromCode, state.ToCode)
	}

	converted := quote.Convert(state.Amount)
	resultText := fmt.Sprintf("%s %s = %s %s",
		state.Amount.String(), quote.FromDisplay, converted.String(), quote.ToDisplay)
	rateText := fmt.Sprintf("1 %s = %s %s", quote.FromDisplay, quote.Rate.StringFixed(4), quote.ToDisplay)

	state = state.SetResult(resultText, rateText)
	h.savePanel(ctx, userID, state)
	h.record(ctx, userID,
		fmt.Sprintf("%s %s -> %s", state.Amount.String(), state.FromCode, state.ToCode),
		converted.String(), storage.EntryConvert)

	return prefix + resultText + "\n" + rateText
}

func (h *Handler) renderPanel(ctx context.Context, userID int64, state panel.State) string {
	fromCode, fromDetail := state.DisplayFrom()
	toCode, toDetail := state.DisplayTo()

	b := strings.Builder{}
	b.WriteString("Conversion panel\n")
	fmt.Fprintf(&b, "Amount: %s\n", state.Amount.String())
	fmt.Fprintf(&b, "From: %s%s\n", fromCode, detailSuffix(fromDetail))
	fmt.Fprintf(&b, "To: %s%s\n", toCode, detailSuffix(toDetail))
	if state.LastResult != "" {
		fmt.Fprintf(&b, "Last: %s\n", state.LastResult)
	}
	b.WriteString("Run with /convert go, more in /convert help")

	h.savePanel(ctx, userID, state)
	return b.String()
}

func detailSuffix(detail string) string {
	if detail == "" {
		return ""
	}
	return " (" + detail + ")"
}

func (h *Handler) handleHistory(ctx context.Context, userID int64) string {
	if h.history == nil {
		return "History is not enabled."
	}

	entries, err := h.history.ListHistory(ctx, userID, 0)
	if err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return "History is not enabled."
		}
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("history list failed")
		return "Could not load history, try again later."
	}
	if len(entries) == 0 {
		return "No history yet."
	}

	b := strings.Builder{}
	b.WriteString("Recent results:\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "%d. %s\n", i+1, e.Formatted())
	}
	return strings.TrimRight(b.String(), "\n")
}

func (h *Handler) handleClear(ctx context.Context, userID int64) string {
	if h.history == nil {
		return "History is not enabled."
	}
	if err := h.history.ClearHistory(ctx, userID); err != nil {
		if errors.Is(err, storage.ErrNotConfigured) {
			return "History is not enabled."
		}
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("history clear failed")
		return "Could not clear history, try again later."
	}
	return "History cleared."
}

// record persists a history entry best-effort.
func (h *Handler) record(ctx context.Context, userID int64, input, result, entryType string) {
	if h.history == nil {
		return
	}
	entry := storage.HistoryEntry{
		UserID:    userID,
		Input:     input,
		Result:    result,
		EntryType: entryType,
	}
	if _, err := h.history.InsertHistory(ctx, entry); err != nil && !errors.Is(err, storage.ErrNotConfigured) {
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("history insert failed")
	}
}

func (h *Handler) savePanel(ctx context.Context, userID int64, state panel.State) {
	if err := h.panels.Save(ctx, userID, state); err != nil {
		h.logger.Warn().Err(err).Int64("user_id", userID).Msg("panel state save failed")
	}
}
