package exam

// AnswerSheet holds at most one answer per question. A new selection overwrites the
// previous one in place, so answers keep the order in which questions were first answered.
type AnswerSheet struct {
	answers []Answer
	pos     map[int]int // question index -> position in answers
}

func NewAnswerSheet() *AnswerSheet {
	return &AnswerSheet{
		answers: make([]Answer, 0),
		pos:     make(map[int]int),
	}
}

// Select records optionIndex for questionIndex and reports whether anything changed.
func (as *AnswerSheet) Select(questionIndex, optionIndex int) bool {
	if i, ok := as.pos[questionIndex]; ok {
		if as.answers[i].SelectedIndex == optionIndex {
			return false
		}
		as.answers[i].SelectedIndex = optionIndex
		return true
	}
	as.pos[questionIndex] = len(as.answers)
	as.answers = append(as.answers, Answer{QuestionIndex: questionIndex, SelectedIndex: optionIndex})
	return true
}

func (as *AnswerSheet) Get(questionIndex int) (int, bool) {
	if i, ok := as.pos[questionIndex]; ok {
		return as.answers[i].SelectedIndex, true
	}
	return 0, false
}

func (as *AnswerSheet) Len() int {
	return len(as.answers)
}

// Answers returns a copy; never nil so an empty sheet is submitted as [].
func (as *AnswerSheet) Answers() []Answer {
	out := make([]Answer, len(as.answers))
	copy(out, as.answers)
	return out
}
