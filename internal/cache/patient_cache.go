package cache

import (
	"time"

	"github.com/bwmarrin/snowflake"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
)

const defaultPatientTTL = time.Minute

// PatientCache keeps recently resolved patients for bill list hydration.
type PatientCache interface {
	GetPatient(id snowflake.ID) (patientdomain.Patient, bool)
	SetPatient(patient patientdomain.Patient)
}

type patientCache struct {
	patients Cache[snowflake.ID, patientdomain.Patient]
	ttl      time.Duration
}

func NewPatientCache(opts ...Option) PatientCache {
	return &patientCache{
		patients: NewTTLCache[snowflake.ID, patientdomain.Patient](opts...),
		ttl:      defaultPatientTTL,
	}
}

func (c *patientCache) GetPatient(id snowflake.ID) (patientdomain.Patient, bool) {
	return c.patients.Get(id)
}

func (c *patientCache) SetPatient(patient patientdomain.Patient) {
	if patient.ID == 0 {
		return
	}
	c.patients.Set(patient.ID, patient, c.ttl)
}
