// Package handler turns chat text into quiz commands and renders their replies.
package handler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"idiom-quiz-bot/internal/game"
	"idiom-quiz-bot/internal/metrics"
	"idiom-quiz-bot/internal/model"
	"idiom-quiz-bot/internal/pkg/lock"
	"idiom-quiz-bot/internal/question"
	"idiom-quiz-bot/internal/service"
)

// Command words. They must match the whole trimmed message, except the answer
// prefix which is followed by the guess.
const (
	CmdRank   = "#排行"
	CmdScore  = "#积分"
	CmdStart  = "#猜成语"
	CmdAnswer = "#答案 "
	CmdEnd    = "#结束"
	CmdSkip   = "#跳过"
)

const leaderboardSize = 10

// ErrorReply is sent when a command fails unexpectedly.
const ErrorReply = "处理消息时出现错误，请稍后再试"

// Request is one inbound text message.
type Request struct {
	UserID string
	// DisplayName is the sender's nickname; empty means unknown.
	DisplayName string
	Text        string
}

// Deps holds what the router needs.
type Deps struct {
	Ledger      *service.Ledger
	Leaderboard *service.Leaderboard
	Games       *game.Manager
	Locks       *lock.UserLock
	// AssetRoot is the directory question images are resolved against.
	AssetRoot string
	// Schedule describes the scoring window for the help text, e.g. "18:00-00:00".
	Schedule string
	Metrics  *metrics.Recorder
}

// Router dispatches quiz commands.
type Router struct {
	ledger    *service.Ledger
	board     *service.Leaderboard
	games     *game.Manager
	locks     *lock.UserLock
	assetRoot string
	schedule  string
	metrics   *metrics.Recorder
}

// NewRouter creates a Router.
func NewRouter(deps Deps) *Router {
	locks := deps.Locks
	if locks == nil {
		locks = lock.NewUserLock()
	}
	return &Router{
		ledger:    deps.Ledger,
		board:     deps.Leaderboard,
		games:     deps.Games,
		locks:     locks,
		assetRoot: deps.AssetRoot,
		schedule:  deps.Schedule,
		metrics:   deps.Metrics,
	}
}

type route struct {
	verb string
	run  func(ctx context.Context, userID string) ([]model.Message, error)
}

// parse maps text to a handler. ok is false for anything that is not a quiz command.
func (r *Router) parse(text string) (route, bool) {
	switch text {
	case CmdRank:
		return route{"rank", func(context.Context, string) ([]model.Message, error) { return r.rank(), nil }}, true
	case CmdScore:
		return route{"score", func(_ context.Context, id string) ([]model.Message, error) { return r.score(id), nil }}, true
	case CmdStart:
		return route{"start", r.start}, true
	case CmdEnd:
		return route{"end", func(_ context.Context, id string) ([]model.Message, error) { return r.end(id), nil }}, true
	case CmdSkip:
		return route{"skip", r.skip}, true
	}
	if strings.HasPrefix(text, CmdAnswer) {
		guess := strings.TrimSpace(strings.TrimPrefix(text, CmdAnswer))
		return route{"answer", func(ctx context.Context, id string) ([]model.Message, error) {
			return r.answer(ctx, id, guess)
		}}, true
	}
	return route{}, false
}

// Handle processes one message. handled is false when the text is not a quiz
// command; the caller may pass it on. A handled command may still produce no
// messages.
func (r *Router) Handle(ctx context.Context, req Request) (msgs []model.Message, handled bool) {
	name := req.DisplayName
	if name == "" {
		name = model.UnknownName
	}
	r.ledger.UpsertName(ctx, req.UserID, name)

	rt, ok := r.parse(strings.TrimSpace(req.Text))
	if !ok {
		return nil, false
	}
	r.metrics.Command(rt.verb)

	defer func() {
		if rec := recover(); rec != nil {
			log.Error().
				Interface("panic", rec).
				Str("user_id", req.UserID).
				Str("command", rt.verb).
				Msg("Recovered from panic in command")
			msgs, handled = []model.Message{model.Text(ErrorReply)}, true
		}
	}()

	err := r.locks.WithLock(ctx, req.UserID, func() error {
		var err error
		msgs, err = rt.run(ctx, req.UserID)
		return err
	})
	if err != nil {
		log.Error().
			Err(err).
			Str("user_id", req.UserID).
			Str("command", rt.verb).
			Msg("Failed to handle command")
		return []model.Message{model.Text(ErrorReply)}, true
	}
	return msgs, true
}

func (r *Router) rank() []model.Message {
	top := r.board.TopN(leaderboardSize)
	if len(top) == 0 {
		return []model.Message{model.Text("暂无排行数据")}
	}

	medals := []string{"🥇", "🥈", "🥉"}
	var sb strings.Builder
	sb.WriteString("🏆 积分排行榜 TOP10\n\n")
	for i, e := range top {
		prefix := "  "
		if i < len(medals) {
			prefix = medals[i]
		}
		fmt.Fprintf(&sb, "%s 第%d名: %s - %d分\n", prefix, i+1, e.DisplayName, e.Total)
	}
	return []model.Message{model.Text(sb.String())}
}

func (r *Router) score(userID string) []model.Message {
	text := fmt.Sprintf("您当前的积分是：%d\n", r.ledger.Total(userID))
	if rank := r.board.RankOf(userID); rank > 0 {
		text += fmt.Sprintf("当前排名：第%d名", rank)
	} else {
		text += "暂无排名"
	}
	return []model.Message{model.Text(text)}
}

func (r *Router) start(ctx context.Context, userID string) ([]model.Message, error) {
	res, err := r.games.Start(ctx, userID)
	if errors.Is(err, game.ErrNotEnoughQuestions) {
		log.Warn().Err(err).Str("user_id", userID).Msg("Cannot start round")
		return []model.Message{model.Text("题库加载失败,无法开始游戏")}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to start round: %w", err)
	}
	if res.AlreadyPlaying {
		return []model.Message{model.Text("您已经在游戏中了,请先完成当前题目或输入 " + CmdEnd + " 结束游戏")}, nil
	}

	status := "(非答题时间，答题不计分)"
	if res.Scored {
		status = "(每日答题时间，答题将计分)"
	}
	return []model.Message{
		model.Image(question.ImagePath(r.assetRoot, res.Question)),
		model.Text(fmt.Sprintf("%s %s", label(res.Number, res.Of), status)),
	}, nil
}

func (r *Router) answer(ctx context.Context, userID, guess string) ([]model.Message, error) {
	res, err := r.games.Answer(ctx, userID, guess)
	if err != nil {
		return nil, fmt.Errorf("failed to check answer: %w", err)
	}

	switch res.Status {
	case game.AnswerNoSession:
		return []model.Message{model.Text("当前没有进行中的游戏,请先使用 " + CmdStart + " 开始游戏")}, nil
	case game.AnswerWrong:
		return []model.Message{model.Text("答案不对,再想想~")}, nil
	}

	head := fmt.Sprintf("恭喜你答对了! 答案就是: %s\n%s", res.Answer, scoreLine(res.Delta, res.Total))
	return r.progress(head, res.Progress), nil
}

func (r *Router) skip(ctx context.Context, userID string) ([]model.Message, error) {
	res, err := r.games.Skip(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to skip question: %w", err)
	}
	if !res.Skipped {
		return nil, nil
	}
	return r.progress(scoreLine(res.Delta, res.Total), res.Progress), nil
}

func (r *Router) end(userID string) []model.Message {
	res, ok := r.games.End(userID)
	if !ok {
		return nil
	}
	return []model.Message{model.Text(fmt.Sprintf("游戏结束,当前题目答案是: %s\n本轮得分：%d分", res.Answer, res.RoundScore))}
}

// progress renders the outcome of a correct answer or a skip.
func (r *Router) progress(head string, p game.Progress) []model.Message {
	if p.Finished {
		return []model.Message{model.Text(fmt.Sprintf("%s\n\n本轮游戏结束！\n本轮得分：%d分", head, p.RoundScore))}
	}
	return []model.Message{
		model.Text(head),
		model.Image(question.ImagePath(r.assetRoot, p.Next)),
		model.Text(label(p.Number, p.Of)),
	}
}

func label(n, of int) string {
	return fmt.Sprintf("第%d题/共%d题", n, of)
}

// scoreLine renders "+3分！当前积分：T" for gains and "-2分！当前积分：T" for losses.
func scoreLine(delta, total int64) string {
	return fmt.Sprintf("%s分！当前积分：%d", signed(delta), total)
}

func signed(n int64) string {
	if n > 0 {
		return fmt.Sprintf("+%d", n)
	}
	return fmt.Sprintf("%d", n)
}
