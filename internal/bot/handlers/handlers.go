// Package handlers implements the Telegram command surface of the tracker.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/pilltick/pilltick/internal/models"
	"github.com/pilltick/pilltick/internal/repository"
)

// Tracker is the slice of the medicine tracker the bot commands need.
type Tracker interface {
	Medicine(ctx context.Context, medicineID int) (*models.Medicine, error)
	MedicineByBarcode(ctx context.Context, barcode string) (*models.Medicine, error)
	Medicines(ctx context.Context) ([]*models.Medicine, error)
	DueToday(ctx context.Context) ([]*models.DueReminder, error)
	MarkTaken(ctx context.Context, medicineID int, at time.Time) (*models.Reminder, error)
	RecordAdHocDose(ctx context.Context, medicineID int) error
	Stats(ctx context.Context) (*models.AdherenceStats, error)
}

// SettingStore persists the chat id learned from /start and serves the
// opaque key/value settings the integrations keep.
type SettingStore interface {
	Set(ctx context.Context, key, value string) error
	All(ctx context.Context) (map[string]string, error)
}

// SyncLogReader answers when a mirror last pushed successfully.
type SyncLogReader interface {
	LastSuccess(ctx context.Context) (*time.Time, error)
}

// Waker pokes the scheduler after a state change.
type Waker interface {
	Notify()
}

type Handlers struct {
	api      *tgbotapi.BotAPI
	tracker  Tracker
	settings SettingStore
	syncs    SyncLogReader
	waker    Waker
	log      zerolog.Logger
}

func New(api *tgbotapi.BotAPI, tracker Tracker, settings SettingStore, syncs SyncLogReader, waker Waker, log zerolog.Logger) *Handlers {
	return &Handlers{
		api:      api,
		tracker:  tracker,
		settings: settings,
		syncs:    syncs,
		waker:    waker,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

func (h *Handlers) HandleCommand(ctx context.Context, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		h.handleStart(ctx, msg)
	case "help":
		h.handleHelp(msg)
	case "today":
		h.handleToday(ctx, msg)
	case "meds":
		h.handleMeds(ctx, msg)
	case "taken":
		h.handleTaken(ctx, msg)
	case "adhoc":
		h.handleAdHoc(ctx, msg)
	case "streak":
		h.handleStreak(ctx, msg)
	case "sync":
		h.handleSync(ctx, msg)
	case "settings":
		h.handleSettings(ctx, msg)
	default:
		h.sendMessage(msg.Chat.ID, "Unknown command, see /help")
	}
}

func (h *Handlers) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := h.api.Send(msg); err != nil {
		h.log.Error().Err(err).Int64("chat_id", chatID).Msg("failed to send message")
	}
}

// handleStart records the chat id so reminders can reach this chat.
func (h *Handlers) handleStart(ctx context.Context, msg *tgbotapi.Message) {
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	if err := h.settings.Set(ctx, repository.SettingTelegramChatID, chatID); err != nil {
		h.log.Error().Err(err).Msg("failed to store chat id")
		h.sendMessage(msg.Chat.ID, "Something went wrong, try /start again")
		return
	}
	h.sendMessage(msg.Chat.ID, "Hi! Reminders will arrive in this chat from now on. See /help for commands.")
}

func (h *Handlers) handleHelp(msg *tgbotapi.Message) {
	h.sendMessage(msg.Chat.ID, `Commands:
/today - reminders for today
/meds - list medicines
/taken <id or barcode> - mark the earliest pending dose of a medicine as taken
/adhoc <id or barcode> - log an unscheduled dose (stock only, no adherence credit)
/streak - streak and adherence stats
/sync - last successful mirror sync
/settings - stored settings
/help - this message`)
}

func (h *Handlers) handleToday(ctx context.Context, msg *tgbotapi.Message) {
	due, err := h.tracker.DueToday(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list today's reminders")
		h.sendMessage(msg.Chat.ID, "Could not load today's reminders")
		return
	}
	if len(due) == 0 {
		h.sendMessage(msg.Chat.ID, "Nothing on the plan for today.")
		return
	}

	var b strings.Builder
	b.WriteString("Today:\n")
	for _, r := range due {
		mark := " "
		if r.Taken {
			mark = "x"
		}
		fmt.Fprintf(&b, "[%s] %s %s", mark, r.ScheduledAt.Format("15:04"), r.Name)
		if r.Dosage != "" {
			fmt.Fprintf(&b, " (%s)", r.Dosage)
		}
		b.WriteString("\n")
	}
	h.sendMessage(msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) handleMeds(ctx context.Context, msg *tgbotapi.Message) {
	meds, err := h.tracker.Medicines(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list medicines")
		h.sendMessage(msg.Chat.ID, "Could not load medicines")
		return
	}
	if len(meds) == 0 {
		h.sendMessage(msg.Chat.ID, "No medicines in the cabinet yet.")
		return
	}

	var b strings.Builder
	b.WriteString("Cabinet:\n")
	for _, m := range meds {
		fmt.Fprintf(&b, "%d. %s", m.MedicineID, m.Name)
		if m.Dosage != "" {
			fmt.Fprintf(&b, " (%s)", m.Dosage)
		}
		if m.DosesRemaining != nil {
			fmt.Fprintf(&b, ", %d doses left", *m.DosesRemaining)
		}
		if m.ExpiryDate != nil {
			fmt.Fprintf(&b, ", expires %s", m.ExpiryDate.Format("2006-01-02"))
		}
		b.WriteString("\n")
	}
	h.sendMessage(msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

func (h *Handlers) handleTaken(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := h.resolveMedicine(ctx, msg, "/taken")
	if !ok {
		return
	}

	rem, err := h.tracker.MarkTaken(ctx, id, time.Time{})
	switch {
	case errors.Is(err, models.ErrMedicineNotFound):
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("No medicine with id %d, see /meds", id))
		return
	case errors.Is(err, models.ErrNoPendingReminder):
		h.sendMessage(msg.Chat.ID, "No pending reminder for that medicine. Use /adhoc to log an unscheduled dose.")
		return
	case err != nil:
		h.log.Error().Err(err).Int("medicine_id", id).Msg("mark taken failed")
		h.sendMessage(msg.Chat.ID, "Could not record the intake, try again")
		return
	}

	h.waker.Notify()
	h.sendMessage(msg.Chat.ID, fmt.Sprintf("Recorded, that was the %s dose.", rem.ScheduledAt.Format("15:04")))
}

func (h *Handlers) handleAdHoc(ctx context.Context, msg *tgbotapi.Message) {
	id, ok := h.resolveMedicine(ctx, msg, "/adhoc")
	if !ok {
		return
	}

	err := h.tracker.RecordAdHocDose(ctx, id)
	switch {
	case errors.Is(err, models.ErrMedicineNotFound):
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("No medicine with id %d, see /meds", id))
		return
	case err != nil:
		h.log.Error().Err(err).Int("medicine_id", id).Msg("ad-hoc dose failed")
		h.sendMessage(msg.Chat.ID, "Could not record the dose, try again")
		return
	}

	h.sendMessage(msg.Chat.ID, "Logged an unscheduled dose. It counts against stock, not adherence.")
}

func (h *Handlers) handleStreak(ctx context.Context, msg *tgbotapi.Message) {
	stats, err := h.tracker.Stats(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to load stats")
		h.sendMessage(msg.Chat.ID, "Could not load stats")
		return
	}
	h.sendMessage(msg.Chat.ID, fmt.Sprintf(
		"Current streak: %d days\nLongest streak: %d days\nAdherence: %.1f%%",
		stats.CurrentStreak, stats.LongestStreak, stats.AdherenceRate,
	))
}

func (h *Handlers) handleSync(ctx context.Context, msg *tgbotapi.Message) {
	last, err := h.syncs.LastSuccess(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to read sync log")
		h.sendMessage(msg.Chat.ID, "Could not read the sync log")
		return
	}
	if last == nil {
		h.sendMessage(msg.Chat.ID, "No successful mirror sync yet.")
		return
	}
	h.sendMessage(msg.Chat.ID, "Last successful mirror sync: "+last.Format("2006-01-02 15:04"))
}

func (h *Handlers) handleSettings(ctx context.Context, msg *tgbotapi.Message) {
	settings, err := h.settings.All(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list settings")
		h.sendMessage(msg.Chat.ID, "Could not load settings")
		return
	}
	if len(settings) == 0 {
		h.sendMessage(msg.Chat.ID, "No settings stored yet.")
		return
	}

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString("Settings:\n")
	for _, k := range keys {
		fmt.Fprintf(&b, "%s = %s\n", k, settings[k])
	}
	h.sendMessage(msg.Chat.ID, strings.TrimRight(b.String(), "\n"))
}

// resolveMedicine accepts either a numeric medicine id or a scanned
// barcode. A numeric argument is tried as an id first; anything that does
// not match an id falls through to the barcode lookup.
func (h *Handlers) resolveMedicine(ctx context.Context, msg *tgbotapi.Message, command string) (int, bool) {
	arg := strings.TrimSpace(msg.CommandArguments())
	if arg == "" {
		h.sendMessage(msg.Chat.ID, fmt.Sprintf("Usage: %s <medicine id or barcode>, see /meds for ids", command))
		return 0, false
	}

	if id, err := strconv.Atoi(arg); err == nil && id > 0 {
		if _, err := h.tracker.Medicine(ctx, id); err == nil {
			return id, true
		}
	}

	med, err := h.tracker.MedicineByBarcode(ctx, arg)
	switch {
	case errors.Is(err, models.ErrMedicineNotFound):
		h.sendMessage(msg.Chat.ID, "Nothing in the cabinet matches that, see /meds")
		return 0, false
	case err != nil:
		h.log.Error().Err(err).Msg("medicine lookup failed")
		h.sendMessage(msg.Chat.ID, "Could not look that up, try again")
		return 0, false
	}
	return med.MedicineID, true
}
