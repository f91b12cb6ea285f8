package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dynamicdna/academy/pkg/models"
)

const learnerColumns = `id, full_name, email, phone, id_number, date_of_birth, gender, address, city, province,
	postal_code, highest_qualification, program_interest, employment_status, computer_access, internet_access,
	motivation, hear_about_us, status, admin_notes, reviewed_by, reviewed_at, created_at, updated_at`

const clientColumns = `id, company_name, registration_number, industry, contact_person, job_title, email, phone,
	company_address, city, province, postal_code, number_of_employees, training_needs, service_interest,
	preferred_training_mode, estimated_learners, timeframe, budget_range, additional_info,
	status, admin_notes, reviewed_by, reviewed_at, created_at, updated_at`

// CreateLearnerApplication stores a new pending application and returns the
// stored row.
func (r *Repo) CreateLearnerApplication(ctx context.Context, a *models.LearnerApplication) (*models.LearnerApplication, error) {
	if a == nil {
		return nil, fmt.Errorf("learner application is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return nil, err
	}

	ts := now()
	res, err := d.Exec(ctx, `INSERT INTO learner_applications (
		full_name, email, phone, id_number, date_of_birth, gender, address, city, province, postal_code,
		highest_qualification, program_interest, employment_status, computer_access, internet_access,
		motivation, hear_about_us, status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.FullName, a.Email, a.Phone, a.IDNumber, a.DateOfBirth, a.Gender, a.Address, a.City, a.Province, a.PostalCode,
		a.HighestQualification, a.ProgramInterest, a.EmploymentStatus, a.ComputerAccess, a.InternetAccess,
		a.Motivation, nullString(a.HearAboutUs), models.StatusPending, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert learner application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return scanLearner(d.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learner_applications WHERE id = ?`, id))
}

// ListLearnerApplications returns applications newest first, optionally
// filtered by status. An empty status means all.
func (r *Repo) ListLearnerApplications(ctx context.Context, status string) ([]models.LearnerApplication, error) {
	d, ok := r.reader(ctx, "ListLearnerApplications")
	if !ok {
		return []models.LearnerApplication{}, nil
	}

	q := `SELECT ` + learnerColumns + ` FROM learner_applications`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := d.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.LearnerApplication{}
	for rows.Next() {
		a, err := scanLearner(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repo) GetLearnerApplication(ctx context.Context, id int64) (*models.LearnerApplication, error) {
	d, ok := r.reader(ctx, "GetLearnerApplication")
	if !ok {
		return nil, nil
	}
	return scanLearner(d.QueryRow(ctx, `SELECT `+learnerColumns+` FROM learner_applications WHERE id = ?`, id))
}

func (r *Repo) UpdateLearnerApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error {
	return r.updateReview(ctx, "learner_applications", id, status, reviewerID, notes)
}

// CreateClientApplication stores a new pending application and returns the
// stored row.
func (r *Repo) CreateClientApplication(ctx context.Context, a *models.ClientApplication) (*models.ClientApplication, error) {
	if a == nil {
		return nil, fmt.Errorf("client application is nil")
	}
	d, err := r.writer(ctx)
	if err != nil {
		return nil, err
	}

	ts := now()
	res, err := d.Exec(ctx, `INSERT INTO client_applications (
		company_name, registration_number, industry, contact_person, job_title, email, phone,
		company_address, city, province, postal_code, number_of_employees, training_needs, service_interest,
		preferred_training_mode, estimated_learners, timeframe, budget_range, additional_info,
		status, created_at, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CompanyName, nullString(a.RegistrationNumber), a.Industry, a.ContactPerson, a.JobTitle, a.Email, a.Phone,
		a.CompanyAddress, a.City, a.Province, a.PostalCode, a.NumberOfEmployees, a.TrainingNeeds, a.ServiceInterest,
		a.PreferredTrainingMode, nullString(a.EstimatedLearners), nullString(a.Timeframe), nullString(a.BudgetRange),
		nullString(a.AdditionalInfo), models.StatusPending, ts, ts)
	if err != nil {
		return nil, fmt.Errorf("insert client application: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}

	return scanClient(d.QueryRow(ctx, `SELECT `+clientColumns+` FROM client_applications WHERE id = ?`, id))
}

func (r *Repo) ListClientApplications(ctx context.Context, status string) ([]models.ClientApplication, error) {
	d, ok := r.reader(ctx, "ListClientApplications")
	if !ok {
		return []models.ClientApplication{}, nil
	}

	q := `SELECT ` + clientColumns + ` FROM client_applications`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC, id DESC`

	rows, err := d.QueryRows(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.ClientApplication{}
	for rows.Next() {
		a, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *Repo) GetClientApplication(ctx context.Context, id int64) (*models.ClientApplication, error) {
	d, ok := r.reader(ctx, "GetClientApplication")
	if !ok {
		return nil, nil
	}
	return scanClient(d.QueryRow(ctx, `SELECT `+clientColumns+` FROM client_applications WHERE id = ?`, id))
}

func (r *Repo) UpdateClientApplicationStatus(ctx context.Context, id int64, status string, reviewerID int64, notes *string) error {
	return r.updateReview(ctx, "client_applications", id, status, reviewerID, notes)
}

// updateReview records a review decision. Empty notes are stored as NULL.
func (r *Repo) updateReview(ctx context.Context, table string, id int64, status string, reviewerID int64, notes *string) error {
	if !models.ValidStatus(status) {
		return fmt.Errorf("invalid application status %q", status)
	}
	d, err := r.writer(ctx)
	if err != nil {
		return err
	}

	ts := now()
	res, err := d.Exec(ctx, `UPDATE `+table+` SET status = ?, reviewed_by = ?, reviewed_at = ?, admin_notes = ?, updated_at = ? WHERE id = ?`,
		status, reviewerID, ts, emptyAsNull(notes), ts, id)
	if err != nil {
		return fmt.Errorf("update %s status: %w", table, err)
	}
	return expectRow(res)
}

func scanReview(rv *models.Review, notes sql.NullString, by, at sql.NullInt64) {
	rv.AdminNotes = strPtr(notes)
	rv.ReviewedBy = int64Ptr(by)
	rv.ReviewedAt = timePtr(at)
}

func scanLearner(row scanner) (*models.LearnerApplication, error) {
	var (
		a                 models.LearnerApplication
		hear, notes       sql.NullString
		reviewedBy, revAt sql.NullInt64
		created, updated  int64
	)
	err := row.Scan(&a.ID, &a.FullName, &a.Email, &a.Phone, &a.IDNumber, &a.DateOfBirth, &a.Gender, &a.Address,
		&a.City, &a.Province, &a.PostalCode, &a.HighestQualification, &a.ProgramInterest, &a.EmploymentStatus,
		&a.ComputerAccess, &a.InternetAccess, &a.Motivation, &hear, &a.Status, &notes, &reviewedBy, &revAt,
		&created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.HearAboutUs = strPtr(hear)
	scanReview(&a.Review, notes, reviewedBy, revAt)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}

func scanClient(row scanner) (*models.ClientApplication, error) {
	var (
		a                                       models.ClientApplication
		regNo, learners, timeframe, budget, add sql.NullString
		notes                                   sql.NullString
		reviewedBy, revAt                       sql.NullInt64
		created, updated                        int64
	)
	err := row.Scan(&a.ID, &a.CompanyName, &regNo, &a.Industry, &a.ContactPerson, &a.JobTitle, &a.Email, &a.Phone,
		&a.CompanyAddress, &a.City, &a.Province, &a.PostalCode, &a.NumberOfEmployees, &a.TrainingNeeds,
		&a.ServiceInterest, &a.PreferredTrainingMode, &learners, &timeframe, &budget, &add,
		&a.Status, &notes, &reviewedBy, &revAt, &created, &updated)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.RegistrationNumber = strPtr(regNo)
	a.EstimatedLearners = strPtr(learners)
	a.Timeframe = strPtr(timeframe)
	a.BudgetRange = strPtr(budget)
	a.AdditionalInfo = strPtr(add)
	scanReview(&a.Review, notes, reviewedBy, revAt)
	a.CreatedAt = fromMillis(created)
	a.UpdatedAt = fromMillis(updated)
	return &a, nil
}
