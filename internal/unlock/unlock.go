// Package unlock decides which course chapters a learner may open.
package unlock

import (
	"sort"

	"lms_backend/internal/model"
)

// Resolve annotates chapters with their status. Chapters are ordered by Order
// (stable for equal values); a chapter is unlocked when every earlier chapter
// is completed, and the first chapter is never locked.
func Resolve(chapters []model.Chapter, completed map[uint]bool) []model.PlayerChapter {
	ordered := make([]model.Chapter, len(chapters))
	copy(ordered, chapters)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	out := make([]model.PlayerChapter, len(ordered))
	priorDone := true
	for i, ch := range ordered {
		status := model.ChapterLocked
		switch {
		case completed[ch.ID]:
			status = model.ChapterCompleted
		case priorDone || i == 0:
			status = model.ChapterUnlocked
			priorDone = false
		default:
			priorDone = false
		}
		out[i] = model.PlayerChapter{Chapter: ch, Status: status}
	}
	return out
}

// Accessible reports whether the chapter with id may be opened.
func Accessible(chapters []model.PlayerChapter, id uint) bool {
	for _, ch := range chapters {
		if ch.ID == id {
			return ch.Status != model.ChapterLocked
		}
	}
	return false
}
