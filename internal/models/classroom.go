package models

// Membership roles within a classroom.
const (
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// UserModel is the identity attached to memberships and submissions.
// Account management lives in the owning web application; this table is
// read-only from the coordination service's point of view.
type UserModel struct {
	Base
	Username string `json:"username" gorm:"uniqueIndex;not null"`
	Name     string `json:"name"`
}

func (UserModel) TableName() string { return "users" }

// ClassroomModel is one classroom; each classroom maps to exactly one
// in-memory room on the coordination side.
type ClassroomModel struct {
	Base
	Title   string `json:"title" gorm:"not null"`
	OwnerID string `json:"owner_id" gorm:"index"`
}

func (ClassroomModel) TableName() string { return "classrooms" }

// MembershipModel binds a user to a classroom with a role. Role changes
// take effect on the next action because scope checks re-read this table.
type MembershipModel struct {
	Base
	ClassroomID string `json:"classroom_id" gorm:"index:idx_membership,unique;not null"`
	UserID      string `json:"user_id"      gorm:"index:idx_membership,unique;not null"`
	Role        string `json:"role"         gorm:"not null"`
}

func (MembershipModel) TableName() string { return "memberships" }

// ActivityModel is the catalog entry for an activity that can go live in a
// classroom. Start/stop is driven by the web application over the bridge.
type ActivityModel struct {
	Base
	ClassroomID string `json:"classroom_id" gorm:"index;not null"`
	Title       string `json:"title"`
	Info        string `json:"info" gorm:"type:longtext"`
}

func (ActivityModel) TableName() string { return "activities" }
