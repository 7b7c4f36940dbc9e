package repository

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/medicore/internal/patient/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, patient *domain.Patient) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO patients (id, name, age, gender, contact, email, address, blood_group,
			type, ward, diagnosis, status, metadata, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		patient.ID,
		patient.Name,
		patient.Age,
		patient.Gender,
		patient.Contact,
		patient.Email,
		patient.Address,
		patient.BloodGroup,
		patient.Type,
		patient.Ward,
		patient.Diagnosis,
		patient.Status,
		patient.Metadata,
		patient.CreatedAt,
		patient.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Patient, error) {
	var patient domain.Patient
	err := db.WithContext(ctx).Raw(
		`SELECT id, name, age, gender, contact, email, address, blood_group,
			type, ward, diagnosis, status, metadata, created_at, updated_at
		 FROM patients WHERE id = ?`,
		id,
	).Scan(&patient).Error
	if err != nil {
		return nil, err
	}
	if patient.ID == 0 {
		return nil, nil
	}
	return &patient, nil
}

func (r *repo) FindByIDs(ctx context.Context, db *gorm.DB, ids []snowflake.ID) ([]*domain.Patient, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var patients []*domain.Patient
	err := db.WithContext(ctx).
		Model(&domain.Patient{}).
		Where("id IN ?", ids).
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListPatientFilter) ([]*domain.Patient, error) {
	var patients []*domain.Patient
	stmt := db.WithContext(ctx).Model(&domain.Patient{})
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where("LOWER(name) LIKE ? OR contact LIKE ?", like, like)
	}
	if filter.Type != "" {
		stmt = stmt.Where("type = ?", filter.Type)
	}
	if filter.Ward != "" {
		stmt = stmt.Where("ward = ?", filter.Ward)
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	err := stmt.
		Order("created_at desc, id desc").
		Find(&patients).Error
	if err != nil {
		return nil, err
	}
	return patients, nil
}

func (r *repo) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Patient{}).Count(&count).Error
	return count, err
}
