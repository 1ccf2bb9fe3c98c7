package cli

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupWorkspace writes a config, a three-question bank and images for the
// first withImages questions.
func setupWorkspace(t *testing.T, withImages int) string {
	t.Helper()
	dir := t.TempDir()

	bank := `{"questions": [
		{"image": "a.png", "answer": "一帆风顺", "hints": ["4字"]},
		{"image": "b.png", "answer": "画蛇添足"},
		{"image": "c.png", "answer": "守株待兔"}
	]}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "questions.json"), []byte(bank), 0o644))

	images := filepath.Join(dir, "images")
	require.NoError(t, os.MkdirAll(images, 0o755))
	for _, name := range []string{"a.png", "b.png", "c.png"}[:withImages] {
		require.NoError(t, os.WriteFile(filepath.Join(images, name), []byte("png"), 0o644))
	}

	cfg := fmt.Sprintf(`
log:
  level: error
game:
  bank_path: %q
  asset_root: %q
storage:
  driver: file
  dir: %q
`, filepath.Join(dir, "questions.json"), images, filepath.Join(dir, "data"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfg), 0o644))
	return dir
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCheckBank(t *testing.T) {
	t.Run("all images present", func(t *testing.T) {
		dir := setupWorkspace(t, 3)
		out, err := run(t, "", "--config", dir, "check-bank")
		require.NoError(t, err)
		assert.Contains(t, out, "3 questions in")
	})

	t.Run("missing image fails", func(t *testing.T) {
		dir := setupWorkspace(t, 2)
		out, err := run(t, "", "--config", dir, "check-bank")
		require.Error(t, err)
		assert.Contains(t, out, "missing image: "+filepath.Join(dir, "images", "c.png"))
	})
}

func TestConsole_PracticeRound(t *testing.T) {
	dir := setupWorkspace(t, 3)
	input := strings.Join([]string{
		"#猜成语",
		"#跳过",
		"#跳过",
		"#跳过",
		"#积分",
		"#排行",
		"hello",
		"quit",
		"#猜成语",
	}, "\n")

	out, err := run(t, input, "--config", dir, "console", "--user", "u1", "--name", "小明")
	require.NoError(t, err)

	assert.Contains(t, out, "看图猜成语游戏指令")
	assert.Contains(t, out, "[图片] "+filepath.Join(dir, "images"))
	assert.Contains(t, out, "第1题/共3题 (非答题时间，答题不计分)")
	assert.Contains(t, out, "-2分！当前积分：0\n\n本轮游戏结束！\n本轮得分：0分")
	assert.Contains(t, out, "您当前的积分是：0\n暂无排名")
	assert.Contains(t, out, "暂无排行数据")
	assert.Equal(t, 1, strings.Count(out, "第1题/共3题"), "input after quit is ignored")

	names, err := os.ReadFile(filepath.Join(dir, "data", "usernames.json"))
	require.NoError(t, err)
	assert.Contains(t, string(names), "小明")
}

func TestConsole_SwitchPlayer(t *testing.T) {
	dir := setupWorkspace(t, 3)
	input := "#猜成语\n/as u2 小红\n#结束\n/as u1\n#结束\n"

	out, err := run(t, input, "--config", dir, "console", "--user", "u1")
	require.NoError(t, err)

	assert.Contains(t, out, "playing as u2")
	assert.Equal(t, 1, strings.Count(out, "游戏结束,当前题目答案是"), "u2 had no round to end")
}

func TestBadConfigFails(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("storage:\n  driver: mongo\n"), 0o644))

	_, err := run(t, "", "--config", dir, "check-bank")
	assert.ErrorContains(t, err, "storage.driver")
}
