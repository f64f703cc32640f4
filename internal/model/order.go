package model

import "time"

// Order status values. StatusInWork is the only status the system sets
// automatically: the first comment on an order whose status is NULL or
// "New" moves it to "In work". The remaining values are set manually
// through order edits.
const (
	StatusNew      = "New"
	StatusInWork   = "In work"
	StatusAgree    = "Aggre"
	StatusDisagree = "Disaggre"
	StatusDubbing  = "Dubbing"
)

// Closed enumerations for course columns. Values outside these sets are
// rejected at the handler boundary before any SQL runs.
var (
	Courses       = []string{"FS", "QACX", "JCX", "JSCX", "FE", "PCX"}
	CourseFormats = []string{"static", "online"}
	CourseTypes   = []string{"pro", "minimal", "premium", "incubator", "vip"}
	Statuses      = []string{StatusNew, StatusInWork, StatusAgree, StatusDisagree, StatusDubbing}
)

// ValidEnum reports whether v is a member of the given closed set.
func ValidEnum(v string, set []string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

// Order mirrors the `orders` table: one sales lead. Almost every column
// is nullable because leads arrive from external imports with partial
// data; pointer fields distinguish NULL from a zero value.
type Order struct {
	ID           uint64     // orders.id
	Name         *string    // orders.name
	Surname      *string    // orders.surname
	Email        *string    // orders.email
	Phone        *string    // orders.phone
	Age          *int       // orders.age
	Course       *string    // orders.course
	CourseFormat *string    // orders.course_format
	CourseType   *string    // orders.course_type
	Sum          *int       // orders.sum
	AlreadyPaid  *int       // orders.already_paid
	UTM          *string    // orders.utm
	Msg          *string    // orders.msg
	Status       *string    // orders.status (nullable enum)
	GroupID      *uint64    // orders.group_id (nullable FK)
	ManagerID    *uint64    // orders.manager_id (nullable FK)
	CreatedAt    time.Time  // orders.created_at
	UpdatedAt    time.Time  // orders.updated_at
}

// Comment is an append-only annotation on an order. The first comment on
// an unmanaged order claims it for the author.
type Comment struct {
	ID        uint64    // comments.id
	Message   string    // comments.message
	OrderID   uint64    // comments.order_id
	UserID    uint64    // comments.user_id
	CreatedAt time.Time // comments.created_at
}

// Group is a named bucket orders can optionally belong to.
type Group struct {
	ID        uint64    // groups.id
	Name      string    // groups.name (unique)
	CreatedAt time.Time // groups.created_at
	UpdatedAt time.Time // groups.updated_at
}

// StatusCounts aggregates orders by status. Used for both the overall
// statistics endpoint and the per-manager breakdown.
type StatusCounts struct {
	Total    int `json:"total"`
	New      int `json:"new"`
	InWork   int `json:"in_work"`
	Agree    int `json:"agree"`
	Disagree int `json:"disagree"`
	Dubbing  int `json:"dubbing"`
}

// ManagerStatistics is the fixed-shape per-manager aggregation row
// returned by the admin statistics endpoints.
type ManagerStatistics struct {
	ManagerID uint64       `json:"manager_id"`
	Email     string       `json:"email"`
	FirstName string       `json:"first_name"`
	LastName  string       `json:"last_name"`
	Counts    StatusCounts `json:"counts"`
}
