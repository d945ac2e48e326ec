package exam

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/go-playground/validator/v10"
)

var (
	ErrEmptyBank         = errors.New("question bank is empty")
	ErrDuplicateQuestion = errors.New("duplicate question id")
	ErrInvalidQuestion   = errors.New("invalid question")
	ErrInvalidSubject    = errors.New("invalid subject")
	ErrInvalidLearner    = errors.New("invalid learner")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// PrepareBank validates the questions and returns a copy ordered by Position.
// Equal positions keep their input order.
func PrepareBank(in []Question) ([]Question, error) {
	if len(in) == 0 {
		return nil, ErrEmptyBank
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Question, len(in))
	for i, q := range in {
		if err := validateQuestion(q); err != nil {
			return nil, err
		}
		if _, dup := seen[q.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateQuestion, q.ID)
		}
		seen[q.ID] = struct{}{}
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out, nil
}

func validateQuestion(q Question) error {
	if err := validate.Struct(q); err != nil {
		return fmt.Errorf("%w %q: %v", ErrInvalidQuestion, q.ID, err)
	}
	switch q.Type {
	case TypeMultipleChoice:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w %q: multiple choice needs at least two options", ErrInvalidQuestion, q.ID)
		}
		if q.CorrectOption >= len(q.Options) {
			return fmt.Errorf("%w %q: correct option %d out of range", ErrInvalidQuestion, q.ID, q.CorrectOption)
		}
	case TypeTrueFalse:
		if _, err := strconv.ParseBool(q.CorrectText); err != nil {
			return fmt.Errorf("%w %q: true/false answer must be a boolean, got %q", ErrInvalidQuestion, q.ID, q.CorrectText)
		}
	}
	return nil
}

func (s Subject) Validate() error {
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSubject, err)
	}
	return nil
}

func (l Learner) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidLearner, err)
	}
	return nil
}

// MaxScore is the full point pool of the bank.
func MaxScore(bank []Question) int {
	total := 0
	for _, q := range bank {
		total += q.Points
	}
	return total
}
