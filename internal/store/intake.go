// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

// InternshipApplication is a public internship application row.
type InternshipApplication struct {
	ID                   int64
	Name                 string
	DateOfBirth          sql.NullTime
	Email                string
	Phone                string
	Address              string
	City                 string
	Region               string
	ZipCode              string
	Institution          string
	PaymentScreenshotURL string
	Status               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Requirement is a service-requirement / appointment submission row.
type Requirement struct {
	ID          int64
	Username    string
	Email       string
	Phone       string
	Address     sql.NullString
	SiteDetails sql.NullString
	Area        sql.NullString
	Budget      sql.NullString
	Category    sql.NullString
	Services    sql.NullString
	DrawingsURL sql.NullString
	Message     sql.NullString
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContactMessage is a contact-form submission row.
type ContactMessage struct {
	ID        int64
	Name      string
	Email     string
	Subject   string
	Message   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

const applicationColumns = `id, name, date_of_birth, email, phone, address, city, region, zip_code, institution, payment_screenshot_url, status, created_at, updated_at`

func scanApplication(row interface{ Scan(...any) error }) (InternshipApplication, error) {
	var a InternshipApplication
	err := row.Scan(&a.ID, &a.Name, &a.DateOfBirth, &a.Email, &a.Phone, &a.Address,
		&a.City, &a.Region, &a.ZipCode, &a.Institution, &a.PaymentScreenshotURL,
		&a.Status, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateApplicationParams holds the fields for creating an internship application.
type CreateApplicationParams struct {
	Name                 string
	DateOfBirth          sql.NullTime
	Email                string
	Phone                string
	Address              string
	City                 string
	Region               string
	ZipCode              string
	Institution          string
	PaymentScreenshotURL string
	Status               string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CreateApplication inserts an internship application and returns the stored row.
func (q *Queries) CreateApplication(ctx context.Context, arg CreateApplicationParams) (InternshipApplication, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO internship_applications
		 (name, date_of_birth, email, phone, address, city, region, zip_code, institution, payment_screenshot_url, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+applicationColumns,
		arg.Name, arg.DateOfBirth, arg.Email, arg.Phone, arg.Address, arg.City,
		arg.Region, arg.ZipCode, arg.Institution, arg.PaymentScreenshotURL,
		arg.Status, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanApplication(row)
}

// ListApplications returns all internship applications, newest first.
func (q *Queries) ListApplications(ctx context.Context) ([]InternshipApplication, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM internship_applications ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var apps []InternshipApplication
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		apps = append(apps, a)
	}
	return apps, rows.Err()
}

// GetApplicationByID fetches an internship application by id.
func (q *Queries) GetApplicationByID(ctx context.Context, id int64) (InternshipApplication, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM internship_applications WHERE id = ?`, id)
	return scanApplication(row)
}

// UpdateApplicationStatusParams holds the arguments for UpdateApplicationStatus.
type UpdateApplicationStatusParams struct {
	ID        int64
	Status    string
	UpdatedAt time.Time
}

// UpdateApplicationStatus sets the status and returns the post-update row.
func (q *Queries) UpdateApplicationStatus(ctx context.Context, arg UpdateApplicationStatusParams) (InternshipApplication, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE internship_applications SET status = ?, updated_at = ? WHERE id = ?
		 RETURNING `+applicationColumns,
		arg.Status, arg.UpdatedAt, arg.ID)
	return scanApplication(row)
}

const requirementColumns = `id, username, email, phone, address, site_details, area, budget, category, services, drawings_url, message, status, created_at, updated_at`

func scanRequirement(row interface{ Scan(...any) error }) (Requirement, error) {
	var r Requirement
	err := row.Scan(&r.ID, &r.Username, &r.Email, &r.Phone, &r.Address, &r.SiteDetails,
		&r.Area, &r.Budget, &r.Category, &r.Services, &r.DrawingsURL, &r.Message,
		&r.Status, &r.CreatedAt, &r.UpdatedAt)
	return r, err
}

// CreateRequirementParams holds the fields for creating a requirement.
type CreateRequirementParams struct {
	Username    string
	Email       string
	Phone       string
	Address     sql.NullString
	SiteDetails sql.NullString
	Area        sql.NullString
	Budget      sql.NullString
	Category    sql.NullString
	Services    sql.NullString
	DrawingsURL sql.NullString
	Message     sql.NullString
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRequirement inserts a requirement and returns the stored row.
func (q *Queries) CreateRequirement(ctx context.Context, arg CreateRequirementParams) (Requirement, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO requirements
		 (username, email, phone, address, site_details, area, budget, category, services, drawings_url, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+requirementColumns,
		arg.Username, arg.Email, arg.Phone, arg.Address, arg.SiteDetails, arg.Area,
		arg.Budget, arg.Category, arg.Services, arg.DrawingsURL, arg.Message,
		arg.Status, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanRequirement(row)
}

// ListRequirements returns all requirements, newest first.
func (q *Queries) ListRequirements(ctx context.Context) ([]Requirement, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+requirementColumns+` FROM requirements ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var reqs []Requirement
	for rows.Next() {
		r, err := scanRequirement(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, rows.Err()
}

// GetRequirementByID fetches a requirement by id.
func (q *Queries) GetRequirementByID(ctx context.Context, id int64) (Requirement, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+requirementColumns+` FROM requirements WHERE id = ?`, id)
	return scanRequirement(row)
}

// UpdateRequirementStatusParams holds the arguments for UpdateRequirementStatus.
type UpdateRequirementStatusParams struct {
	ID        int64
	Status    string
	UpdatedAt time.Time
}

// UpdateRequirementStatus sets the status and returns the post-update row.
func (q *Queries) UpdateRequirementStatus(ctx context.Context, arg UpdateRequirementStatusParams) (Requirement, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE requirements SET status = ?, updated_at = ? WHERE id = ?
		 RETURNING `+requirementColumns,
		arg.Status, arg.UpdatedAt, arg.ID)
	return scanRequirement(row)
}

const contactColumns = `id, name, email, subject, message, status, created_at, updated_at`

func scanContact(row interface{ Scan(...any) error }) (ContactMessage, error) {
	var c ContactMessage
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.Subject, &c.Message, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

// CreateContactMessageParams holds the fields for creating a contact message.
type CreateContactMessageParams struct {
	Name      string
	Email     string
	Subject   string
	Message   string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateContactMessage inserts a contact message and returns the stored row.
func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	row := q.db.QueryRowContext(ctx,
		`INSERT INTO contact_messages (name, email, subject, message, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING `+contactColumns,
		arg.Name, arg.Email, arg.Subject, arg.Message, arg.Status, arg.CreatedAt, arg.UpdatedAt,
	)
	return scanContact(row)
}

// ListContactMessages returns all contact messages, newest first.
func (q *Queries) ListContactMessages(ctx context.Context) ([]ContactMessage, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contact_messages ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []ContactMessage
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, err
		}
		msgs = append(msgs, c)
	}
	return msgs, rows.Err()
}

// GetContactMessageByID fetches a contact message by id.
func (q *Queries) GetContactMessageByID(ctx context.Context, id int64) (ContactMessage, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contact_messages WHERE id = ?`, id)
	return scanContact(row)
}

// UpdateContactMessageStatusParams holds the arguments for UpdateContactMessageStatus.
type UpdateContactMessageStatusParams struct {
	ID        int64
	Status    string
	UpdatedAt time.Time
}

// UpdateContactMessageStatus sets the status and returns the post-update row.
func (q *Queries) UpdateContactMessageStatus(ctx context.Context, arg UpdateContactMessageStatusParams) (ContactMessage, error) {
	row := q.db.QueryRowContext(ctx,
		`UPDATE contact_messages SET status = ?, updated_at = ? WHERE id = ?
		 RETURNING `+contactColumns,
		arg.Status, arg.UpdatedAt, arg.ID)
	return scanContact(row)
}
