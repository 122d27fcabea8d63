package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pilltick/pilltick/internal/database"
	"github.com/pilltick/pilltick/internal/models"
)

type MedicineRepository struct {
	db *database.DB
}

func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

func (r *MedicineRepository) Create(ctx context.Context, med *models.Medicine) error {
	return r.db.Pool.QueryRow(ctx,
		`INSERT INTO medicines (barcode, name, dosage, notes, expiry_date, doses_remaining)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING medicine_id, created_at, updated_at`,
		med.Barcode, med.Name, med.Dosage, med.Notes, med.ExpiryDate, med.DosesRemaining,
	).Scan(&med.MedicineID, &med.CreatedAt, &med.UpdatedAt)
}

func (r *MedicineRepository) GetByID(ctx context.Context, medicineID int) (*models.Medicine, error) {
	med := &models.Medicine{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT medicine_id, barcode, name, dosage, notes, expiry_date, doses_remaining, created_at, updated_at
		 FROM medicines WHERE medicine_id = $1`,
		medicineID,
	).Scan(&med.MedicineID, &med.Barcode, &med.Name, &med.Dosage, &med.Notes,
		&med.ExpiryDate, &med.DosesRemaining, &med.CreatedAt, &med.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrMedicineNotFound
	}
	if err != nil {
		return nil, err
	}
	return med, nil
}

func (r *MedicineRepository) GetByBarcode(ctx context.Context, barcode string) (*models.Medicine, error) {
	med := &models.Medicine{}
	err := r.db.Pool.QueryRow(ctx,
		`SELECT medicine_id, barcode, name, dosage, notes, expiry_date, doses_remaining, created_at, updated_at
		 FROM medicines WHERE barcode = $1`,
		barcode,
	).Scan(&med.MedicineID, &med.Barcode, &med.Name, &med.Dosage, &med.Notes,
		&med.ExpiryDate, &med.DosesRemaining, &med.CreatedAt, &med.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrMedicineNotFound
	}
	if err != nil {
		return nil, err
	}
	return med, nil
}

func (r *MedicineRepository) List(ctx context.Context) ([]*models.Medicine, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT medicine_id, barcode, name, dosage, notes, expiry_date, doses_remaining, created_at, updated_at
		 FROM medicines ORDER BY name`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMedicines(rows)
}

func (r *MedicineRepository) Update(ctx context.Context, med *models.Medicine) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE medicines SET barcode = $1, name = $2, dosage = $3, notes = $4,
		 expiry_date = $5, doses_remaining = $6, updated_at = CURRENT_TIMESTAMP
		 WHERE medicine_id = $7`,
		med.Barcode, med.Name, med.Dosage, med.Notes, med.ExpiryDate, med.DosesRemaining, med.MedicineID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMedicineNotFound
	}
	return nil
}

func (r *MedicineRepository) Delete(ctx context.Context, medicineID int) error {
	// Schedules and reminders cascade via foreign keys.
	tag, err := r.db.Pool.Exec(ctx,
		`DELETE FROM medicines WHERE medicine_id = $1`,
		medicineID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return models.ErrMedicineNotFound
	}
	return nil
}

// DecrementDoses takes one dose off a finite supply, flooring at zero.
// Medicines with unlimited supply are left untouched.
func (r *MedicineRepository) DecrementDoses(ctx context.Context, medicineID int) error {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE medicines
		 SET doses_remaining = GREATEST(doses_remaining - 1, 0), updated_at = CURRENT_TIMESTAMP
		 WHERE medicine_id = $1 AND doses_remaining IS NOT NULL`,
		medicineID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		// Distinguish "unlimited supply" from "unknown medicine".
		var exists bool
		if err := r.db.Pool.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM medicines WHERE medicine_id = $1)`, medicineID,
		).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return models.ErrMedicineNotFound
		}
	}
	return nil
}

// ExpiringBetween returns medicines whose expiry date falls in [from, to],
// soonest first.
func (r *MedicineRepository) ExpiringBetween(ctx context.Context, from, to time.Time) ([]*models.Medicine, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT medicine_id, barcode, name, dosage, notes, expiry_date, doses_remaining, created_at, updated_at
		 FROM medicines
		 WHERE expiry_date IS NOT NULL AND expiry_date >= $1 AND expiry_date <= $2
		 ORDER BY expiry_date`,
		from, to,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return r.scanMedicines(rows)
}

func (r *MedicineRepository) scanMedicines(rows pgx.Rows) ([]*models.Medicine, error) {
	var medicines []*models.Medicine
	for rows.Next() {
		med := &models.Medicine{}
		if err := rows.Scan(&med.MedicineID, &med.Barcode, &med.Name, &med.Dosage, &med.Notes,
			&med.ExpiryDate, &med.DosesRemaining, &med.CreatedAt, &med.UpdatedAt); err != nil {
			return nil, err
		}
		medicines = append(medicines, med)
	}
	return medicines, rows.Err()
}
