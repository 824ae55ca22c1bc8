package models

// SubmissionModel is one user's versioned snapshot of work for one
// activity. Rows are never mutated; each accepted submission inserts the
// next version. The composite unique index is what makes concurrent
// double-submits fail instead of corrupting the version order.
type SubmissionModel struct {
	Base
	ActivityID string `json:"activity_id" gorm:"index:idx_submission_version,unique;not null"`
	UserID     string `json:"user_id"     gorm:"index:idx_submission_version,unique;not null"`
	Version    int    `json:"version"     gorm:"index:idx_submission_version,unique;not null"`
	Payload    string `json:"payload"     gorm:"type:longtext"`

	User *UserModel `json:"user,omitempty" gorm:"foreignKey:UserID;references:ID"`
}

func (SubmissionModel) TableName() string { return "submissions" }
