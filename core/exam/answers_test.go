package exam

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAnswerSheet_Select(t *testing.T) {
	type pick struct{ question, option int }
	tests := []struct {
		name        string
		picks       []pick
		wantChanged []bool
		want        []Answer
	}{
		{
			name: "empty",
			want: []Answer{},
		},
		{
			name:        "last write wins",
			picks:       []pick{{0, 0}, {0, 2}, {0, 1}},
			wantChanged: []bool{true, true, true},
			want:        []Answer{{QuestionIndex: 0, SelectedIndex: 1}},
		},
		{
			name:        "same option twice",
			picks:       []pick{{3, 1}, {3, 1}},
			wantChanged: []bool{true, false},
			want:        []Answer{{QuestionIndex: 3, SelectedIndex: 1}},
		},
		{
			name:        "overwrite keeps first-answered order",
			picks:       []pick{{2, 0}, {0, 1}, {2, 1}},
			wantChanged: []bool{true, true, true},
			want: []Answer{
				{QuestionIndex: 2, SelectedIndex: 1},
				{QuestionIndex: 0, SelectedIndex: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			as := NewAnswerSheet()
			for i, p := range tt.picks {
				assert.Equal(t, tt.wantChanged[i], as.Select(p.question, p.option), "pick %d", i)
			}
			assert.Equal(t, tt.want, as.Answers())
			assert.Equal(t, len(tt.want), as.Len())
		})
	}
}

func TestAnswerSheet_AnswersIsACopy(t *testing.T) {
	as := NewAnswerSheet()
	as.Select(0, 1)

	got := as.Answers()
	got[0].SelectedIndex = 9

	opt, ok := as.Get(0)
	assert.True(t, ok)
	assert.Equal(t, 1, opt)

	_, ok = as.Get(4)
	assert.False(t, ok)
}
