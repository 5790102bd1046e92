// Package assessment contains the behavioral assessment model: a fixed set of
// 35 question answers and the composite score computed from them. Pre- and
// post-assessment sets are structurally identical but semantically distinct
// and never merged.
package assessment

import (
	"encoding/json"
	"fmt"

	"github.com/edbridge/onboarding-engine/internal/domain/shared"
)

// QuestionCount is the fixed number of questions in one assessment.
// All answers are mandatory; there is no partial-assessment state.
const QuestionCount = 35

// Valid answer range. Each question is scored on a 0..4 scale.
const (
	AnswerMin = 0
	AnswerMax = 4
)

// Kind distinguishes the pre- and post-assessment instances of a subject.
type Kind string

const (
	KindPre  Kind = "pre"
	KindPost Kind = "post"
)

// IsValid reports whether the kind is known.
func (k Kind) IsValid() bool {
	return k == KindPre || k == KindPost
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	return string(k)
}

// AnswerSet is one complete assessment: exactly 35 answers in question order.
type AnswerSet struct {
	Kind    Kind
	Answers []int
}

// NewAnswerSet validates the answers and builds an AnswerSet.
func NewAnswerSet(kind Kind, answers []int) (*AnswerSet, error) {
	if !kind.IsValid() {
		return nil, shared.ErrUnknownAssessmentKind
	}
	if err := validate(answers); err != nil {
		return nil, err
	}
	cp := make([]int, QuestionCount)
	copy(cp, answers)
	return &AnswerSet{Kind: kind, Answers: cp}, nil
}

// CompositeScore returns the sum of all answers.
func (a *AnswerSet) CompositeScore() int {
	total := 0
	for _, answer := range a.Answers {
		total += answer
	}
	return total
}

// Sum computes the composite score of a complete answer set: the plain
// arithmetic sum of all 35 answers. No weighting, no normalization.
func Sum(answers []int) (int, error) {
	if err := validate(answers); err != nil {
		return 0, err
	}
	total := 0
	for _, answer := range answers {
		total += answer
	}
	return total, nil
}

// validate checks count and range.
func validate(answers []int) error {
	if len(answers) < QuestionCount {
		return shared.WrapError("assessment", "Sum", shared.ErrIncompleteAssessment,
			fmt.Sprintf("got %d of %d answers", len(answers), QuestionCount), nil)
	}
	if len(answers) > QuestionCount {
		return shared.WrapError("assessment", "Sum", shared.ErrInvalidInput,
			fmt.Sprintf("got %d answers, expected %d", len(answers), QuestionCount), nil)
	}
	for i, answer := range answers {
		if answer < AnswerMin || answer > AnswerMax {
			return shared.WrapError("assessment", "Validate", shared.ErrValueOutOfRange,
				fmt.Sprintf("answer %d for question %d outside [%d, %d]", answer, i+1, AnswerMin, AnswerMax), nil)
		}
	}
	return nil
}

// CoerceAnswers converts an answer payload of unknown dynamic shape into a
// []int. Completion payloads arrive as generic variable values, typically
// []interface{} of json numbers after decoding.
func CoerceAnswers(value interface{}) ([]int, error) {
	switch v := value.(type) {
	case []int:
		cp := make([]int, len(v))
		copy(cp, v)
		return cp, nil
	case []interface{}:
		answers := make([]int, 0, len(v))
		for _, item := range v {
			n, err := coerceInt(item)
			if err != nil {
				return nil, err
			}
			answers = append(answers, n)
		}
		return answers, nil
	case []float64:
		answers := make([]int, 0, len(v))
		for _, f := range v {
			n, err := coerceInt(f)
			if err != nil {
				return nil, err
			}
			answers = append(answers, n)
		}
		return answers, nil
	default:
		return nil, shared.WrapError("assessment", "Coerce", shared.ErrInvalidInput,
			fmt.Sprintf("answer payload of type %T is not a list of integers", value), nil)
	}
}

func coerceInt(item interface{}) (int, error) {
	switch n := item.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, shared.WrapError("assessment", "Coerce", shared.ErrInvalidInput,
				fmt.Sprintf("answer %v is not an integer", n), nil)
		}
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, shared.WrapError("assessment", "Coerce", shared.ErrInvalidInput,
				fmt.Sprintf("answer %q is not an integer", n.String()), err)
		}
		return int(i), nil
	default:
		return 0, shared.WrapError("assessment", "Coerce", shared.ErrInvalidInput,
			fmt.Sprintf("answer of type %T is not an integer", item), nil)
	}
}
