package handler

import (
	"fmt"
	"strings"
)

// HelpText lists the commands and the round rules.
func (r *Router) HelpText() string {
	rules := r.games.Rules()

	var sb strings.Builder
	sb.WriteString("看图猜成语游戏指令:\n")
	fmt.Fprintf(&sb, "1. %s - 开始新游戏(每轮%d题)\n", CmdStart, rules.QuestionsPerRound)
	fmt.Fprintf(&sb, "2. %s[成语] - 提交答案\n", CmdAnswer)
	fmt.Fprintf(&sb, "3. %s - 结束当前游戏\n", CmdEnd)
	fmt.Fprintf(&sb, "4. %s - 跳过当前题目（%s分）\n", CmdSkip, signed(rules.SkipScore))
	fmt.Fprintf(&sb, "5. %s - 查看当前积分\n", CmdScore)
	fmt.Fprintf(&sb, "6. %s - 查看积分排行榜\n", CmdRank)
	sb.WriteString("\n游戏规则：\n")
	if r.schedule != "" {
		fmt.Fprintf(&sb, "- 每日 %s 开启答题\n", r.schedule)
	}
	fmt.Fprintf(&sb, "- 每轮游戏%d题\n", rules.QuestionsPerRound)
	fmt.Fprintf(&sb, "- 答对一题：%s分（仅限每日答题时间）\n", signed(rules.CorrectScore))
	fmt.Fprintf(&sb, "- 跳过题目：%s分（仅限每日答题时间）\n", signed(rules.SkipScore))
	sb.WriteString("- 非每日答题时间可以练习，但不计分")
	return sb.String()
}
