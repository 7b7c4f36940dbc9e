package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"gorm.io/gorm"
)

// DemoPatients returns the records created for local and self-hosted
// environments so bills can be composed out of the box.
func DemoPatients() []patientdomain.Patient {
	return []patientdomain.Patient{
		{Name: "Rahul Sharma", Age: 45, Gender: "Male", Contact: "+91 98200 11223", BloodGroup: "B+", Type: patientdomain.TypeIPD, Ward: "General Ward", Diagnosis: "Dengue fever"},
		{Name: "Ananya Iyer", Age: 32, Gender: "Female", Contact: "+91 98450 33441", BloodGroup: "O+", Type: patientdomain.TypeOPD, Ward: "OPD Floor", Diagnosis: "Migraine"},
		{Name: "Vikram Singh", Age: 61, Gender: "Male", Contact: "+91 99100 55667", BloodGroup: "A-", Type: patientdomain.TypeIPD, Ward: "ICU", Diagnosis: "Post-operative care"},
		{Name: "Meera Nair", Age: 28, Gender: "Female", Contact: "+91 97400 77889", BloodGroup: "AB+", Type: patientdomain.TypeIPD, Ward: "Maternity Ward", Diagnosis: "Prenatal checkup"},
		{Name: "Arjun Patel", Age: 9, Gender: "Male", Contact: "+91 98980 99001", BloodGroup: "O-", Type: patientdomain.TypeOPD, Ward: "OPD Floor", Diagnosis: "Seasonal flu"},
	}
}

// EnsureDemoPatients inserts any demo patient whose name is not present yet.
// It returns the number of rows created.
func EnsureDemoPatients(db *gorm.DB) (int, error) {
	if db == nil {
		return 0, errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return 0, err
	}

	ctx := context.Background()
	created := 0
	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now().UTC()
		for _, patient := range DemoPatients() {
			var count int64
			if err := tx.Model(&patientdomain.Patient{}).
				Where("name = ?", patient.Name).
				Count(&count).Error; err != nil {
				return err
			}
			if count > 0 {
				continue
			}

			patient.ID = node.Generate()
			patient.Status = "Active"
			patient.CreatedAt = now
			patient.UpdatedAt = now
			if err := tx.Create(&patient).Error; err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}
