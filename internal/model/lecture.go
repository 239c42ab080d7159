package model

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ParseApprovalStatus проверяет статус модерации
func ParseApprovalStatus(s string) (ApprovalStatus, bool) {
	switch st := ApprovalStatus(s); st {
	case ApprovalPending, ApprovalApproved, ApprovalRejected:
		return st, true
	default:
		return "", false
	}
}

type Lecture struct {
	ID             int64          `json:"id"`
	Title          string         `json:"lecture_title"`
	Description    string         `json:"description"`
	TeacherID      int64          `json:"teacher_id"` // основной преподаватель
	IsMultiTeacher bool           `json:"is_multi_teacher"`
	ApprovalStatus ApprovalStatus `json:"approval_status"`
	IsDeleted      bool           `json:"is_deleted"`
	DeletedAt      *time.Time     `json:"deleted_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// TeacherAssignment дополнительный (не основной) преподаватель лекции
type TeacherAssignment struct {
	LectureID int64     `json:"lecture_id"`
	TeacherID int64     `json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
}

// LectureTeacher элемент списка преподавателей лекции
type LectureTeacher struct {
	TeacherID int64  `json:"teacher_id"`
	Name      string `json:"name"`
	IsPrimary bool   `json:"is_primary"`
}
