// Package model defines the data models shared by the quiz engine.
package model

// UnknownName is the display name used when the transport supplies none.
const UnknownName = "未知用户"

// Question is one picture puzzle from the question bank.
// Answer is compared byte for byte against user input.
type Question struct {
	Image  string   `json:"image" yaml:"image"`
	Answer string   `json:"answer" yaml:"answer"`
	Hints  []string `json:"hints" yaml:"hints"`
}

// ScoreEntry is a user's cumulative ledger score with the last known display name.
type ScoreEntry struct {
	UserID      string
	DisplayName string
	Total       int64
}

// MessageKind distinguishes outbound text from image references.
type MessageKind int

// Outbound message kinds.
const (
	KindText MessageKind = iota
	KindImage
)

// Message is one outbound reply. Image messages carry a path under the asset root;
// the engine never reads the image bytes itself.
type Message struct {
	Kind      MessageKind
	Text      string
	ImagePath string
}

// Text builds a text message.
func Text(s string) Message {
	return Message{Kind: KindText, Text: s}
}

// Image builds an image reference message.
func Image(path string) Message {
	return Message{Kind: KindImage, ImagePath: path}
}
