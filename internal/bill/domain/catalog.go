package domain

import "slices"

var serviceTemplates = []string{
	"Consultation Fee",
	"Ward Charges",
	"ICU Charges",
	"Nursing Care",
	"Blood Test (CBC)",
	"Urine Test",
	"X-Ray",
	"ECG",
	"Ultrasound",
	"MRI Scan",
	"CT Scan",
	"Surgery",
	"Anesthesia",
	"Medicine",
	"IV Fluid",
	"Oxygen",
	"Physiotherapy",
	"Ambulance",
	"Vaccination",
	"Dressing",
}

// ServiceTemplates returns the suggested service names for a line item.
func ServiceTemplates() []string {
	return slices.Clone(serviceTemplates)
}
