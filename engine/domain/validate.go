package domain

import (
	"errors"
	"strings"
)

// Validation failures for incoming questions.
var (
	ErrEmptyQuestion   = errors.New("question is empty")
	ErrQuestionTooLong = errors.New("question too long")
)

// MaxQuestionLen bounds incoming questions. Anything longer is almost
// certainly pasted document text, not a question.
const MaxQuestionLen = 2000

// ValidateQuestion checks that a question is answerable input: non-blank
// after trimming and within the length bound.
func ValidateQuestion(q string) error {
	if strings.TrimSpace(q) == "" {
		return ErrEmptyQuestion
	}
	if len(q) > MaxQuestionLen {
		return ErrQuestionTooLong
	}
	return nil
}
