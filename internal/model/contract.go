package model

import "encoding/json"

// SyncRequest 是答案同步的请求体，按 (attempt, question) upsert，可重复提交
type SyncRequest struct {
	// Revision 单调递增；不大于服务端已应用版本的请求会被忽略
	Revision         uint64  `json:"revision"`
	ChapterID        *uint   `json:"chapterId,omitempty"`
	QuestionID       *uint   `json:"questionId,omitempty"`
	Completed        bool    `json:"completed,omitempty"`
	Answers          Answers `json:"answers"`
	CurrentPage      int     `json:"currentPage"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

// SyncResult reports whether the server applied the payload.
type SyncResult struct {
	Applied      bool   `json:"applied"`
	SyncRevision uint64 `json:"syncRevision"`
}

type CompleteRequest struct {
	Score   int     `json:"score"`
	Answers Answers `json:"answers"`
}

type StatusRequest struct {
	Status AttemptStatus `json:"status" binding:"required"`
}

type ProgressItem struct {
	ChapterID   uint            `json:"chapterId"`
	IsCompleted bool            `json:"isCompleted"`
	Answers     json.RawMessage `json:"answers,omitempty"`
}

type Progress struct {
	Items []ProgressItem `json:"items"`
}

// CompletedMap 章节ID -> 是否完成
func (p *Progress) CompletedMap() map[uint]bool {
	m := make(map[uint]bool, len(p.Items))
	for _, it := range p.Items {
		if it.IsCompleted {
			m[it.ChapterID] = true
		}
	}
	return m
}
