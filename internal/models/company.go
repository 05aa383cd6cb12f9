package models

import "time"

// Company is a recruiter that organises events.
type Company struct {
	ID        string    `db:"company_id" json:"companyId"`
	Name      string    `db:"company_name" json:"companyName"`
	HRName    string    `db:"hr_name" json:"hrName"`
	HREmail   string    `db:"hr_email" json:"hrEmail"`
	HRPhone   *string   `db:"hr_phone" json:"hrPhone,omitempty"`
	PhotoLink *string   `db:"photo_link" json:"photoLink,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// CompanyFilter captures listing criteria for companies.
type CompanyFilter struct {
	Search    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
}
