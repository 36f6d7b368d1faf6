// internal/api/commands.go
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gitsync-standup/internal/registry"
)

// telegramUpdate mirrors the subset of the Telegram bot update payload
// the command endpoint consumes.
type telegramUpdate struct {
	Message *telegramMessage `json:"message"`
}

type telegramMessage struct {
	Text string `json:"text"`
	Chat struct {
		ID   int64  `json:"id"`
		Type string `json:"type"`
	} `json:"chat"`
	From struct {
		ID       int64  `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

var tokenPattern = regexp.MustCompile(`ghp_|gho_|ghs_|ghu_|ghr_|github_pat_`)

// handleTelegramCommand processes bot updates: /start, /gitsync,
// /dashboard in groups, and the token paste flow in private chats.
// Always answers 200 so Telegram does not retry.
// POST /telegram/commands
func (h *Handler) handleTelegramCommand(w http.ResponseWriter, r *http.Request) {
	var update telegramUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil || update.Message == nil {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
		return
	}

	msg := update.Message
	chatID := strconv.FormatInt(msg.Chat.ID, 10)
	text := strings.TrimSpace(msg.Text)

	switch {
	case strings.HasPrefix(text, "/start"):
		h.commandStart(r.Context(), chatID, msg, text)
	case strings.HasPrefix(text, "/gitsync"):
		h.commandGitsync(r.Context(), chatID)
	case strings.HasPrefix(text, "/dashboard"):
		h.commandDashboard(r.Context(), chatID)
	case msg.Chat.Type == "private":
		h.privateChatMessage(r.Context(), chatID, msg, text)
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// commandStart handles the bare welcome and the deep-link payload that
// opens a token setup session.
func (h *Handler) commandStart(ctx context.Context, chatID string, msg *telegramMessage, text string) {
	parts := strings.Fields(text)
	if len(parts) > 1 {
		secret := parts[1]
		team, err := h.registry.LookupBySecret(ctx, secret)
		if err != nil {
			h.reply(chatID, "❌ This setup link is invalid or expired.")
			return
		}
		userID := strconv.FormatInt(msg.From.ID, 10)
		if _, err := h.vault.BeginTokenRequest(ctx, userID, team.ID); err != nil {
			h.logger.Error("Failed to open token request", "team_id", team.ID, "error", err)
			h.reply(chatID, "❌ Could not start token setup. Try again later.")
			return
		}
		h.reply(chatID, "🔒 Paste your GitHub token in this private chat. It is stored encrypted and never shown. The request expires in 15 minutes.")
		return
	}

	guide := "👋 <b>Welcome to GitSync!</b>\n\n" +
		"Add me to your team's group, then run:\n" +
		"🔹 <code>/gitsync</code> — generate your webhook URL\n" +
		"🔹 <code>/dashboard</code> — open the velocity dashboard"
	h.reply(chatID, guide)
}

// commandGitsync rotates the team secret and replies with the freshly
// built webhook URL. The old URL stops working by design.
func (h *Handler) commandGitsync(ctx context.Context, chatID string) {
	secret, err := h.registry.Issue(ctx, chatID)
	if err != nil {
		h.logger.Error("Failed to issue secret", "team_id", chatID, "error", err)
		h.reply(chatID, "❌ Could not generate a webhook right now. Try again later.")
		return
	}

	webhookURL := registry.WebhookURL(h.appBaseURL, chatID, secret)
	reply := "👋 <b>GitSync Setup Guide</b>\n\n" +
		"1. Copy your unique webhook URL:\n\n" +
		fmt.Sprintf("<code>%s</code>\n\n", webhookURL) +
		"2. Paste it in your repository settings → Webhooks (push events).\n"
	if h.vault.Enabled() {
		deepLink := fmt.Sprintf("https://t.me/%s?start=%s", h.botUsername, secret)
		reply += fmt.Sprintf("\n3. For exact line counts on private repos, an admin can install a token: <a href=\"%s\">secure setup (private chat)</a>\n", deepLink)
	}
	reply += "\nThen run /dashboard."
	h.reply(chatID, reply)
}

func (h *Handler) commandDashboard(ctx context.Context, chatID string) {
	team, err := h.registry.Lookup(ctx, chatID)
	if err != nil {
		h.reply(chatID, "❌ Run /gitsync first.")
		return
	}
	url := registry.DashboardURL(h.appBaseURL, team.ID, team.Secret)
	h.reply(chatID, fmt.Sprintf("📊 <b>Team Dashboard</b>\n<a href=\"%s\">Open dashboard</a>", url))
}

// privateChatMessage handles the token capture flow: /remove_github_token
// and pasted tokens matched against a live pending request.
func (h *Handler) privateChatMessage(ctx context.Context, chatID string, msg *telegramMessage, text string) {
	userID := strconv.FormatInt(msg.From.ID, 10)

	if strings.HasPrefix(text, "/remove_github_token") {
		teamID, err := h.vault.PendingTeam(ctx, userID, time.Now())
		if err != nil {
			h.reply(chatID, "⚠️ Click the setup link in your group first.")
			return
		}
		if err := h.vault.RemoveToken(ctx, teamID); err != nil {
			h.reply(chatID, "❌ Remove failed.")
			return
		}
		_ = h.vault.FinishTokenRequest(ctx, userID)
		h.reply(chatID, "✅ Token removed.")
		h.reply(teamID, "⚠️ GitSync: GitHub token removed. Exact line counts disabled.")
		return
	}

	if !looksLikeToken(text) {
		return
	}

	teamID, err := h.vault.PendingTeam(ctx, userID, time.Now())
	if err != nil {
		h.reply(chatID, "⚠️ No pending setup request found. Use the setup link in your group.")
		return
	}

	if err := h.gh.ValidateToken(ctx, text); err != nil {
		h.reply(chatID, "❌ Token validation failed. Make sure it has 'repo' permissions.")
		return
	}

	if err := h.vault.StoreToken(ctx, teamID, text, msg.From.Username); err != nil {
		h.logger.Error("Failed to store token", "team_id", teamID, "error", err)
		h.reply(chatID, "❌ Save failed.")
		return
	}
	_ = h.vault.FinishTokenRequest(ctx, userID)
	h.reply(chatID, "✅ Token validated and saved securely.")
	h.reply(teamID, "✅ GitHub token installed. Exact line counts enabled.")
}

func looksLikeToken(s string) bool {
	return tokenPattern.MatchString(s) || len(strings.TrimSpace(s)) > 30
}

// reply sends a best-effort message back to a chat; command handling
// never fails the HTTP request on delivery problems.
func (h *Handler) reply(chatID, html string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := h.chat.SendMessage(ctx, chatID, html); err != nil {
		h.logger.Warn("Command reply failed", "chat_id", chatID, "error", err)
	}
}
