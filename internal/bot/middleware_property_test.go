package bot

import (
	"testing"

	tele "gopkg.in/telebot.v3"
	"pgregory.net/rapid"

	"klovn-bot/internal/config"
)

func drawWhitelist(t *rapid.T) ([]int64, map[int64]bool) {
	numChats := rapid.IntRange(1, 10).Draw(t, "numChats")
	chatIDs := make([]int64, numChats)
	chatSet := make(map[int64]bool)
	for i := 0; i < numChats; i++ {
		chatIDs[i] = -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		chatSet[chatIDs[i]] = true
	}
	return chatIDs, chatSet
}

// TestWhitelistEnforcementProperty checks that group updates are handled
// exactly when the group is whitelisted.
func TestWhitelistEnforcementProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs, chatSet := drawWhitelist(t)
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}

		var chatID int64
		if rapid.Bool().Draw(t, "known") {
			chatID = chatIDs[rapid.IntRange(0, len(chatIDs)-1).Draw(t, "chatIndex")]
		} else {
			chatID = -rapid.Int64Range(1, 1000000000).Draw(t, "otherChatID")
		}
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		p := newPrivateUsers()
		got := p.admit(cfg, &tele.Chat{ID: chatID, Type: tele.ChatSuperGroup}, userID)

		if got != chatSet[chatID] {
			t.Fatalf("admit(chat=%d) = %v, whitelist=%v", chatID, got, chatIDs)
		}
		if p.allowed(userID) != got {
			t.Fatalf("user %d remembered=%v after group admit=%v", userID, p.allowed(userID), got)
		}
	})
}

// TestEmptyWhitelistAllowsAllChatsProperty checks that an empty whitelist
// lets every group and private chat through.
func TestEmptyWhitelistAllowsAllChatsProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{}}}
		chatID := -rapid.Int64Range(1, 1000000000).Draw(t, "chatID")
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")

		p := newPrivateUsers()
		if !p.admit(cfg, &tele.Chat{ID: chatID, Type: tele.ChatGroup}, userID) {
			t.Fatalf("group %d should be allowed with an empty whitelist", chatID)
		}
		if !newPrivateUsers().admit(cfg, &tele.Chat{ID: userID, Type: tele.ChatPrivate}, userID) {
			t.Fatalf("private chat of %d should be allowed with an empty whitelist", userID)
		}
	})
}

// TestPrivateChatNeedsGroupVisitProperty checks that with a whitelist a user
// may talk privately only after being seen in a whitelisted group.
func TestPrivateChatNeedsGroupVisitProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chatIDs, _ := drawWhitelist(t)
		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chatIDs}}
		userID := rapid.Int64Range(1, 1000000000).Draw(t, "userID")
		private := &tele.Chat{ID: userID, Type: tele.ChatPrivate}

		p := newPrivateUsers()
		if p.admit(cfg, private, userID) {
			t.Fatalf("user %d allowed privately before visiting a group", userID)
		}

		group := &tele.Chat{ID: chatIDs[0], Type: tele.ChatSuperGroup}
		if !p.admit(cfg, group, userID) {
			t.Fatalf("whitelisted group %d rejected", chatIDs[0])
		}
		if !p.admit(cfg, private, userID) {
			t.Fatalf("user %d should be allowed privately after a group visit", userID)
		}
	})
}
