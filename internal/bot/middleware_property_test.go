// Property-based tests for the whitelist middleware.
package bot

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
	tele "gopkg.in/telebot.v3"

	"idiom-quiz-bot/internal/config"
	"idiom-quiz-bot/internal/handler"
	"idiom-quiz-bot/internal/model"
)

// fakeContext implements the parts of tele.Context the middleware and
// handlers touch. Anything else panics through the nil embedded interface.
type fakeContext struct {
	tele.Context
	chat    *tele.Chat
	sender  *tele.User
	text    string
	sent    []any
	replies []any
	sendErr error
}

func (c *fakeContext) Chat() *tele.Chat   { return c.chat }
func (c *fakeContext) Sender() *tele.User { return c.sender }
func (c *fakeContext) Text() string       { return c.text }

func (c *fakeContext) Send(what any, _ ...any) error {
	if c.sendErr != nil {
		return c.sendErr
	}
	c.sent = append(c.sent, what)
	return nil
}

func (c *fakeContext) Reply(what any, _ ...any) error {
	c.replies = append(c.replies, what)
	return nil
}

func passes(mw tele.MiddlewareFunc, c tele.Context) bool {
	called := false
	_ = mw(func(tele.Context) error {
		called = true
		return nil
	})(c)
	return called
}

// TestWhitelistGroupProperty checks that a group message passes iff the chat
// is whitelisted or the whitelist is empty.
func TestWhitelistGroupProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		chats := rapid.SliceOfN(rapid.Int64Range(-1000, -1), 0, 8).Draw(t, "chats")
		chatID := rapid.Int64Range(-1000, -1).Draw(t, "chatID")

		cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: chats}}
		mw := WhitelistMiddleware(cfg, newPrivateUsers())

		want := len(chats) == 0
		for _, id := range chats {
			if id == chatID {
				want = true
			}
		}

		c := &fakeContext{
			chat:   &tele.Chat{ID: chatID, Type: tele.ChatGroup},
			sender: &tele.User{ID: 42},
		}
		if got := passes(mw, c); got != want {
			t.Fatalf("chat %d with whitelist %v: passed=%v, want %v", chatID, chats, got, want)
		}
	})
}

func TestWhitelist_PrivateChatAfterGroup(t *testing.T) {
	cfg := &config.Config{Whitelist: config.WhitelistConfig{Chats: []int64{-100}}}
	mw := WhitelistMiddleware(cfg, newPrivateUsers())

	private := &fakeContext{chat: &tele.Chat{ID: 42, Type: tele.ChatPrivate}, sender: &tele.User{ID: 42}}
	assert.False(t, passes(mw, private), "unknown user is ignored in private")

	group := &fakeContext{chat: &tele.Chat{ID: -100, Type: tele.ChatSuperGroup}, sender: &tele.User{ID: 42}}
	require.True(t, passes(mw, group))

	assert.True(t, passes(mw, private), "user seen in a whitelisted group may play in private")
}

func TestWhitelist_MissingChatOrSender(t *testing.T) {
	mw := WhitelistMiddleware(&config.Config{}, newPrivateUsers())
	assert.False(t, passes(mw, &fakeContext{sender: &tele.User{ID: 1}}))
	assert.False(t, passes(mw, &fakeContext{chat: &tele.Chat{ID: 1}}))
}

func TestRecoveryMiddleware(t *testing.T) {
	c := &fakeContext{}
	err := RecoveryMiddleware()(func(tele.Context) error {
		panic("boom")
	})(c)

	require.NoError(t, err)
	assert.Equal(t, []any{handler.ErrorReply}, c.replies)
}

func TestDeliver(t *testing.T) {
	c := &fakeContext{}
	err := deliver(c, []model.Message{
		model.Text("恭喜你答对了!"),
		model.Image("assets/1.jpg"),
		model.Text("第2题/共3题"),
	})
	require.NoError(t, err)
	require.Len(t, c.sent, 3)
	assert.Equal(t, "恭喜你答对了!", c.sent[0])
	photo, ok := c.sent[1].(*tele.Photo)
	require.True(t, ok)
	assert.Equal(t, "assets/1.jpg", photo.File.FileLocal)
	assert.Equal(t, "第2题/共3题", c.sent[2])

	c = &fakeContext{sendErr: errors.New("flood wait")}
	assert.Error(t, deliver(c, []model.Message{model.Text("x")}))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ada Lovelace", displayName(&tele.User{FirstName: "Ada", LastName: "Lovelace", Username: "ada"}))
	assert.Equal(t, "小明", displayName(&tele.User{FirstName: "小明"}))
	assert.Equal(t, "ada", displayName(&tele.User{Username: "ada"}))
	assert.Equal(t, "", displayName(&tele.User{}))
}
