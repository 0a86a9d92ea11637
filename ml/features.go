package ml

import "sort"

// FeatureCount is the width of the vector the classifier was trained on.
const FeatureCount = 10

// FeatureVector is one row of classifier input, ordered as FeatureColumns.
type FeatureVector [FeatureCount]float64

type FeatureKind string

const (
	FeatureBinary  FeatureKind = "binary"
	FeatureScale   FeatureKind = "scale"
	FeatureNumeric FeatureKind = "numeric"
)

// Feature describes one input column.
type Feature struct {
	Key    string      `json:"key"`
	Column string      `json:"column"`
	Label  string      `json:"label"`
	Kind   FeatureKind `json:"kind"`
	Min    float64     `json:"min"`
	Max    float64     `json:"max"`
}

// FeatureColumns is the column order of the trained artifact. Reordering it silently
// corrupts every prediction; TestFeatureColumnsOrder pins it.
var FeatureColumns = [FeatureCount]Feature{
	{Key: "suicidal_thoughts", Column: "Have_you_ever_had_suicidal_thoughts__Encoded", Label: "Suicidal Thoughts (1=Yes, 0=No)", Kind: FeatureBinary, Min: 0, Max: 1},
	{Key: "academic_pressure", Column: "Academic Pressure", Label: "Academic Pressure (1=Low, 5=High)", Kind: FeatureScale, Min: 1, Max: 5},
	{Key: "financial_stress", Column: "Financial Stress", Label: "Financial Stress (1=Low, 5=High)", Kind: FeatureScale, Min: 1, Max: 5},
	{Key: "age", Column: "Age", Label: "Age (Years)", Kind: FeatureNumeric, Min: 18, Max: 60},
	{Key: "work_hours", Column: "Work/Study Hours", Label: "Work/Study Hours", Kind: FeatureNumeric, Min: 1, Max: 15},
	{Key: "unhealthy_diet", Column: "Dietary Habits_Unhealthy", Label: "Unhealthy Diet (1=Yes, 0=No)", Kind: FeatureBinary, Min: 0, Max: 1},
	{Key: "study_satisfaction", Column: "Study Satisfaction", Label: "Study Satisfaction (1=Low, 5=High)", Kind: FeatureScale, Min: 1, Max: 5},
	{Key: "sleep_more_8h", Column: "Sleep Duration_'More than 8 hours'", Label: "Sleep > 8 hours (1=Yes, 0=No)", Kind: FeatureBinary, Min: 0, Max: 1},
	{Key: "sleep_less_5h", Column: "Sleep Duration_'Less than 5 hours'", Label: "Sleep < 5 hours (1=Yes, 0=No)", Kind: FeatureBinary, Min: 0, Max: 1},
	{Key: "family_history", Column: "Family_History_of_Mental_Illness_Encoded", Label: "Family History (1=Yes, 0=No)", Kind: FeatureBinary, Min: 0, Max: 1},
}

// StudentProfile holds the ten attributes of one student.
type StudentProfile struct {
	SuicidalThoughts  float64 `json:"suicidal_thoughts"`
	AcademicPressure  float64 `json:"academic_pressure"`
	FinancialStress   float64 `json:"financial_stress"`
	Age               float64 `json:"age"`
	WorkStudyHours    float64 `json:"work_hours"`
	UnhealthyDiet     float64 `json:"unhealthy_diet"`
	StudySatisfaction float64 `json:"study_satisfaction"`
	SleepMoreThan8h   float64 `json:"sleep_more_8h"`
	SleepLessThan5h   float64 `json:"sleep_less_5h"`
	FamilyHistory     float64 `json:"family_history"`
}

// Vector lays the profile out in FeatureColumns order.
func (p StudentProfile) Vector() FeatureVector {
	return FeatureVector{
		p.SuicidalThoughts,
		p.AcademicPressure,
		p.FinancialStress,
		p.Age,
		p.WorkStudyHours,
		p.UnhealthyDiet,
		p.StudySatisfaction,
		p.SleepMoreThan8h,
		p.SleepLessThan5h,
		p.FamilyHistory,
	}
}

func (p *StudentProfile) field(key string) *float64 {
	switch key {
	case "suicidal_thoughts":
		return &p.SuicidalThoughts
	case "academic_pressure":
		return &p.AcademicPressure
	case "financial_stress":
		return &p.FinancialStress
	case "age":
		return &p.Age
	case "work_hours":
		return &p.WorkStudyHours
	case "unhealthy_diet":
		return &p.UnhealthyDiet
	case "study_satisfaction":
		return &p.StudySatisfaction
	case "sleep_more_8h":
		return &p.SleepMoreThan8h
	case "sleep_less_5h":
		return &p.SleepLessThan5h
	case "family_history":
		return &p.FamilyHistory
	default:
		return nil
	}
}

// ProfileFromValues builds a profile from named inputs. Every key in FeatureColumns is
// required and unknown keys are rejected; both cases return *InvalidInputError.
func ProfileFromValues(values map[string]float64) (StudentProfile, error) {
	var profile StudentProfile
	invalid := &InvalidInputError{}

	for _, feature := range FeatureColumns {
		value, ok := values[feature.Key]
		if !ok {
			invalid.Missing = append(invalid.Missing, feature.Key)
			continue
		}
		*profile.field(feature.Key) = value
	}
	for key := range values {
		if profile.field(key) == nil {
			invalid.Unknown = append(invalid.Unknown, key)
		}
	}
	sort.Strings(invalid.Unknown)

	if invalid.empty() {
		return profile, nil
	}
	return StudentProfile{}, invalid
}

// Values is the inverse of ProfileFromValues.
func (p StudentProfile) Values() map[string]float64 {
	vector := p.Vector()
	values := make(map[string]float64, FeatureCount)
	for i, feature := range FeatureColumns {
		values[feature.Key] = vector[i]
	}
	return values
}

func FeatureNames() []string {
	names := make([]string, FeatureCount)
	for i, feature := range FeatureColumns {
		names[i] = feature.Column
	}
	return names
}
