package models

// Diagnosis is one stored preliminary-diagnosis record. Rows are inserted
// once and never updated or deleted; corrections are new rows. The input
// fields are echoed verbatim for audit and replay.
type Diagnosis struct {
	BaseModel
	Symptoms      string `gorm:"type:text;not null" json:"symptoms"`
	PatientAge    *int   `json:"patient_age,omitempty"`
	PatientGender string `gorm:"size:50" json:"patient_gender,omitempty"`
	Location      string `gorm:"size:255" json:"location,omitempty"`

	Diagnosis           string   `gorm:"type:text;not null" json:"diagnosis"`
	Medicines           []string `gorm:"serializer:json" json:"medicines"`
	MedicineTiming      string   `gorm:"type:text" json:"medicine_timing"`
	DietRecommendations []string `gorm:"serializer:json" json:"diet_recommendations"`
	NearbyPharmacies    []string `gorm:"serializer:json" json:"nearby_pharmacies"`
	RecommendedDoctors  []string `gorm:"serializer:json" json:"recommended_doctors"`
	Disclaimer          string   `gorm:"type:text;not null" json:"disclaimer"`

	// Which provider and model produced the assessment.
	Provider string `gorm:"size:50" json:"provider,omitempty"`
	Model    string `gorm:"size:100" json:"model,omitempty"`
}
