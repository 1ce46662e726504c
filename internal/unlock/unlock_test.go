package unlock

import (
	"testing"

	"lms_backend/internal/model"

	"github.com/stretchr/testify/assert"
)

func chapter(id uint, order int) model.Chapter {
	return model.Chapter{BaseModel: model.BaseModel{ID: id}, Order: order}
}

func statuses(chs []model.PlayerChapter) []model.ChapterStatus {
	out := make([]model.ChapterStatus, len(chs))
	for i, ch := range chs {
		out[i] = ch.Status
	}
	return out
}

func TestResolve(t *testing.T) {
	a, b, c := chapter(1, 0), chapter(2, 1), chapter(3, 2)

	tests := []struct {
		name      string
		completed map[uint]bool
		want      []model.ChapterStatus
	}{
		{
			name:      "empty progress",
			completed: nil,
			want:      []model.ChapterStatus{model.ChapterUnlocked, model.ChapterLocked, model.ChapterLocked},
		},
		{
			name:      "first completed",
			completed: map[uint]bool{1: true},
			want:      []model.ChapterStatus{model.ChapterCompleted, model.ChapterUnlocked, model.ChapterLocked},
		},
		{
			name:      "all completed",
			completed: map[uint]bool{1: true, 2: true, 3: true},
			want:      []model.ChapterStatus{model.ChapterCompleted, model.ChapterCompleted, model.ChapterCompleted},
		},
		{
			name:      "gap keeps later chapters locked",
			completed: map[uint]bool{1: true, 3: true},
			want:      []model.ChapterStatus{model.ChapterCompleted, model.ChapterUnlocked, model.ChapterCompleted},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve([]model.Chapter{a, b, c}, tt.completed)
			assert.Equal(t, tt.want, statuses(got))
		})
	}
}

func TestResolve_SortsByOrderStably(t *testing.T) {
	in := []model.Chapter{chapter(3, 2), chapter(1, 0), chapter(2, 0)}

	got := Resolve(in, map[uint]bool{1: true})

	assert.Equal(t, []uint{1, 2, 3}, []uint{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, []model.ChapterStatus{model.ChapterCompleted, model.ChapterUnlocked, model.ChapterLocked}, statuses(got))
	// input slice untouched
	assert.Equal(t, uint(3), in[0].ID)
}

func TestResolve_Empty(t *testing.T) {
	assert.Empty(t, Resolve(nil, nil))
}

func TestAccessible(t *testing.T) {
	chs := Resolve([]model.Chapter{chapter(1, 0), chapter(2, 1)}, nil)
	assert.True(t, Accessible(chs, 1))
	assert.False(t, Accessible(chs, 2))
	assert.False(t, Accessible(chs, 42))
}
