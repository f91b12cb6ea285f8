package models

import "time"

// Domain models matching the tables in db/migrations.

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Application review states.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusDeclined = "declined"
)

// ValidStatus reports whether s is one of the application review states.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusDeclined:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id" db:"id"`
	OpenID       string    `json:"openId" db:"open_id"`
	Name         *string   `json:"name" db:"name"`
	Email        *string   `json:"email" db:"email"`
	LoginMethod  *string   `json:"loginMethod" db:"login_method"`
	Role         string    `json:"role" db:"role"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
	LastSignedIn time.Time `json:"lastSignedIn" db:"last_signed_in"`
}

// IsAdmin reports whether the user may call admin procedures.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// UserUpsert carries the fields written by an authentication. Nil pointers
// leave the stored column untouched on conflict.
type UserUpsert struct {
	OpenID       string
	Name         *string
	Email        *string
	LoginMethod  *string
	Role         *string
	LastSignedIn *time.Time
}

// Review holds the audit trio shared by learner and client applications.
type Review struct {
	Status     string     `json:"status" db:"status"`
	AdminNotes *string    `json:"adminNotes" db:"admin_notes"`
	ReviewedBy *int64     `json:"reviewedBy" db:"reviewed_by"`
	ReviewedAt *time.Time `json:"reviewedAt" db:"reviewed_at"`
}

type LearnerApplication struct {
	ID                   int64   `json:"id" db:"id"`
	FullName             string  `json:"fullName" db:"full_name"`
	Email                string  `json:"email" db:"email"`
	Phone                string  `json:"phone" db:"phone"`
	IDNumber             string  `json:"idNumber" db:"id_number"`
	DateOfBirth          string  `json:"dateOfBirth" db:"date_of_birth"`
	Gender               string  `json:"gender" db:"gender"`
	Address              string  `json:"address" db:"address"`
	City                 string  `json:"city" db:"city"`
	Province             string  `json:"province" db:"province"`
	PostalCode           string  `json:"postalCode" db:"postal_code"`
	HighestQualification string  `json:"highestQualification" db:"highest_qualification"`
	ProgramInterest      string  `json:"programInterest" db:"program_interest"`
	EmploymentStatus     string  `json:"employmentStatus" db:"employment_status"`
	ComputerAccess       string  `json:"computerAccess" db:"computer_access"`
	InternetAccess       string  `json:"internetAccess" db:"internet_access"`
	Motivation           string  `json:"motivation" db:"motivation"`
	HearAboutUs          *string `json:"hearAboutUs" db:"hear_about_us"`
	Review
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

type ClientApplication struct {
	ID                    int64   `json:"id" db:"id"`
	CompanyName           string  `json:"companyName" db:"company_name"`
	RegistrationNumber    *string `json:"registrationNumber" db:"registration_number"`
	Industry              string  `json:"industry" db:"industry"`
	ContactPerson         string  `json:"contactPerson" db:"contact_person"`
	JobTitle              string  `json:"jobTitle" db:"job_title"`
	Email                 string  `json:"email" db:"email"`
	Phone                 string  `json:"phone" db:"phone"`
	CompanyAddress        string  `json:"companyAddress" db:"company_address"`
	City                  string  `json:"city" db:"city"`
	Province              string  `json:"province" db:"province"`
	PostalCode            string  `json:"postalCode" db:"postal_code"`
	NumberOfEmployees     string  `json:"numberOfEmployees" db:"number_of_employees"`
	TrainingNeeds         string  `json:"trainingNeeds" db:"training_needs"`
	ServiceInterest       string  `json:"serviceInterest" db:"service_interest"`
	PreferredTrainingMode string  `json:"preferredTrainingMode" db:"preferred_training_mode"`
	EstimatedLearners     *string `json:"estimatedLearners" db:"estimated_learners"`
	Timeframe             *string `json:"timeframe" db:"timeframe"`
	BudgetRange           *string `json:"budgetRange" db:"budget_range"`
	AdditionalInfo        *string `json:"additionalInfo" db:"additional_info"`
	Review
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// ContactMessage is a contact-form enquiry. It is mailed, never stored.
type ContactMessage struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   *string `json:"phone,omitempty"`
	Subject string  `json:"subject"`
	Message string  `json:"message"`
}

type News struct {
	ID          int64      `json:"id" db:"id"`
	Title       string     `json:"title" db:"title"`
	Slug        string     `json:"slug" db:"slug"`
	Excerpt     string     `json:"excerpt" db:"excerpt"`
	Content     string     `json:"content" db:"content"`
	ImageURL    *string    `json:"imageUrl" db:"image_url"`
	Category    string     `json:"category" db:"category"`
	Published   bool       `json:"published" db:"published"`
	AuthorID    int64      `json:"authorId" db:"author_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	PublishedAt *time.Time `json:"publishedAt" db:"published_at"`
}

// NewsPatch is a partial news update; nil fields are left unchanged.
type NewsPatch struct {
	Title       *string
	Slug        *string
	Excerpt     *string
	Content     *string
	ImageURL    *string
	Category    *string
	Published   *bool
	PublishedAt *time.Time
}

type StudentStory struct {
	ID              int64     `json:"id" db:"id"`
	StudentName     string    `json:"studentName" db:"student_name"`
	Program         string    `json:"program" db:"program"`
	GraduationYear  int       `json:"graduationYear" db:"graduation_year"`
	CurrentPosition *string   `json:"currentPosition" db:"current_position"`
	Company         *string   `json:"company" db:"company"`
	ImageURL        *string   `json:"imageUrl" db:"image_url"`
	Story           string    `json:"story" db:"story"`
	Quote           *string   `json:"quote" db:"quote"`
	Featured        bool      `json:"featured" db:"featured"`
	Published       bool      `json:"published" db:"published"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
}

// StoryPatch is a partial story update; nil fields are left unchanged.
type StoryPatch struct {
	StudentName     *string
	Program         *string
	GraduationYear  *int
	CurrentPosition *string
	Company         *string
	ImageURL        *string
	Story           *string
	Quote           *string
	Featured        *bool
	Published       *bool
}
