// Package question loads the picture-idiom question bank and samples rounds from it.
package question

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"idiom-quiz-bot/internal/model"
)

// Errors returned by the question bank.
var (
	// ErrLoad is returned when the bank file is missing, malformed or empty.
	ErrLoad = errors.New("question bank load failed")
	// ErrInsufficientData is returned when a sample asks for more records than exist.
	ErrInsufficientData = errors.New("not enough questions in bank")
)

// document is the on-disk layout of a bank file.
type document struct {
	Questions []model.Question `json:"questions" yaml:"questions"`
}

// Bank is an immutable set of questions. Only the random source is mutable,
// and it is guarded by mu.
type Bank struct {
	questions []model.Question
	mu        sync.Mutex
	rnd       *rand.Rand
}

// Option configures a Bank.
type Option func(*Bank)

// WithRand sets the random source used by Sample.
func WithRand(r *rand.Rand) Option {
	return func(b *Bank) {
		b.rnd = r
	}
}

// NewBank builds a bank from already decoded questions.
func NewBank(questions []model.Question, opts ...Option) (*Bank, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no questions", ErrLoad)
	}
	for i, q := range questions {
		if q.Image == "" || q.Answer == "" {
			return nil, fmt.Errorf("%w: question %d is missing image or answer", ErrLoad, i)
		}
	}

	b := &Bank{
		questions: append([]model.Question(nil), questions...),
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Load reads a bank file. Files ending in .yaml or .yml are decoded as YAML,
// everything else as JSON.
func Load(path string, opts ...Option) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoad, err)
	}

	var doc document
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &doc)
	default:
		err = json.Unmarshal(data, &doc)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrLoad, path, err)
	}

	return NewBank(doc.Questions, opts...)
}

// Len returns the number of questions in the bank.
func (b *Bank) Len() int {
	return len(b.questions)
}

// All returns a copy of every question in file order.
func (b *Bank) All() []model.Question {
	return append([]model.Question(nil), b.questions...)
}

// Sample returns n distinct questions chosen uniformly at random.
func (b *Bank) Sample(n int) ([]model.Question, error) {
	if n <= 0 || n > len(b.questions) {
		return nil, fmt.Errorf("%w: want %d, have %d", ErrInsufficientData, n, len(b.questions))
	}

	idx := make([]int, len(b.questions))
	for i := range idx {
		idx[i] = i
	}

	// Partial Fisher-Yates: the first n slots end up as the sample.
	b.mu.Lock()
	for i := 0; i < n; i++ {
		j := i + b.rnd.Intn(len(idx)-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	b.mu.Unlock()

	out := make([]model.Question, n)
	for i := 0; i < n; i++ {
		out[i] = b.questions[idx[i]]
	}
	return out, nil
}

// ImagePath resolves a question's image reference under the asset root.
func ImagePath(root string, q model.Question) string {
	return filepath.Join(root, q.Image)
}
