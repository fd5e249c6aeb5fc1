// Package parser turns raw exported transcript text into structured
// message records. Parsing is pure and single-threaded; the worker in this
// package moves it off the caller's goroutine and reports progress.
package parser

import (
	"errors"
	"fmt"
	"math/rand"
	"regexp"
	"strings"
)

// SystemSender is the synthetic sender assigned to announcement lines.
// It is never added to the participant set.
const SystemSender = "System"

// DefaultChunkSize is the number of lines processed between progress events.
const DefaultChunkSize = 1000

// Terminal parse errors. A failed parse never yields a partial result.
var (
	// ErrEmptyTranscript is returned when the input holds no text at all.
	ErrEmptyTranscript = errors.New("transcript is empty")
	// ErrNoMessages is returned when the input has text but not a single
	// line matches the message grammar.
	ErrNoMessages = errors.New("transcript contains no parseable messages")
)

// Message line grammar: "DATE, TIME - REST".
var lineRegexp = regexp.MustCompile(`^(\d{1,2}/\d{1,2}/\d{2,4}), (\d{1,2}:\d{2}) - (.*)$`)

// Message is one parsed transcript line.
type Message struct {
	ID       string
	Date     string
	Time     string
	Sender   string
	Content  string
	IsSystem bool
}

// Result is the outcome of a complete parse.
type Result struct {
	ChatName     string
	Participants []string // ordered, first-seen, excludes SystemSender
	Messages     []Message
	MessageCount int
	DroppedLines int // non-blank lines that did not match the grammar
}

// Progress reports chunk completion during a parse.
type Progress struct {
	Progress       int // percent, 0-100
	ProcessedLines int
	TotalLines     int
}

// Parser converts transcript text into messages chunk by chunk.
type Parser struct {
	chunkSize int
}

// New creates a parser. chunkSize <= 0 selects DefaultChunkSize.
func New(chunkSize int) *Parser {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &Parser{chunkSize: chunkSize}
}

// Parse processes the transcript and returns the structured result.
// onProgress, if non-nil, is invoked after each chunk; returning a non-nil
// error from it aborts the parse with that error. No partial result is
// returned on error.
func (p *Parser) Parse(text string, onProgress func(Progress) error) (*Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyTranscript
	}

	lines := strings.Split(text, "\n")
	total := len(lines)

	res := &Result{}
	seen := make(map[string]struct{})

	for start := 0; start < total; start += p.chunkSize {
		end := min(start+p.chunkSize, total)
		for _, line := range lines[start:end] {
			p.parseLine(line, res, seen)
		}
		if onProgress != nil {
			if err := onProgress(Progress{
				Progress:       end * 100 / total,
				ProcessedLines: end,
				TotalLines:     total,
			}); err != nil {
				return nil, err
			}
		}
	}

	if len(res.Messages) == 0 {
		// Text that yields no structure at all is a terminal error, not an
		// empty chat.
		return nil, ErrNoMessages
	}

	res.MessageCount = len(res.Messages)
	res.ChatName = chatName(res.Participants)
	return res, nil
}

func (p *Parser) parseLine(line string, res *Result, seen map[string]struct{}) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	m := lineRegexp.FindStringSubmatch(line)
	if m == nil {
		// Non-matching lines (including continuations of multi-line
		// messages) are dropped, not merged into the previous message.
		res.DroppedLines++
		return
	}
	date, timeStr, rest := m[1], m[2], m[3]

	msg := Message{
		ID:   messageID(date, timeStr),
		Date: date,
		Time: timeStr,
	}
	sender, content, found := strings.Cut(rest, ":")
	sender = strings.TrimSpace(sender)
	if found && sender != "" {
		msg.Sender = sender
		msg.Content = strings.TrimSpace(content)
		if sender != SystemSender {
			if _, ok := seen[sender]; !ok {
				seen[sender] = struct{}{}
				res.Participants = append(res.Participants, sender)
			}
		}
	} else {
		msg.Sender = SystemSender
		msg.Content = strings.TrimSpace(rest)
		msg.IsSystem = true
	}
	res.Messages = append(res.Messages, msg)
}

// chatName derives a display title from the participant set.
func chatName(participants []string) string {
	switch len(participants) {
	case 0:
		return "Empty Chat"
	case 1:
		return fmt.Sprintf("%s (Notes)", participants[0])
	case 2:
		return fmt.Sprintf("%s & %s", participants[0], participants[1])
	default:
		return fmt.Sprintf("%s +%d others", strings.Join(participants[:2], ", "), len(participants)-2)
	}
}

const (
	base36       = "0123456789abcdefghijklmnopqrstuvwxyz"
	suffixLength = 7
)

// messageID builds "date-time-suffix". The random suffix keeps ids unique
// within a parse; re-importing the same transcript yields a disjoint id
// space, so a re-import never merges into an existing chat.
func messageID(date, timeStr string) string {
	suffix := make([]byte, suffixLength)
	for i := range suffix {
		suffix[i] = base36[rand.Intn(len(base36))]
	}
	return fmt.Sprintf("%s-%s-%s", date, timeStr, suffix)
}
