package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/polyclinic/appointment-core/internal/model"
)

type DoctorRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error)
	List(ctx context.Context, onlyActive bool) ([]model.Doctor, error)
}

type GormDoctorRepository struct {
	db *gorm.DB
}

func NewGormDoctorRepository(db *gorm.DB) *GormDoctorRepository {
	return &GormDoctorRepository{db: db}
}

func (r *GormDoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Doctor, error) {
	var d model.Doctor
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *GormDoctorRepository) List(ctx context.Context, onlyActive bool) ([]model.Doctor, error) {
	q := r.db.WithContext(ctx).Model(&model.Doctor{})
	if onlyActive {
		q = q.Where("is_active = ?", true)
	}

	var doctors []model.Doctor
	if err := q.Order("full_name ASC").Find(&doctors).Error; err != nil {
		return nil, err
	}
	return doctors, nil
}
