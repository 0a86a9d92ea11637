package http

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"studentrisk/ml"
)

// predictionForm is the input boundary. Ranges are enforced here; the predictor only
// checks that every feature is present. Pointers tell "absent" apart from 0.
type predictionForm struct {
	SuicidalThoughts  *int `json:"suicidal_thoughts" validate:"required,oneof=0 1"`
	AcademicPressure  *int `json:"academic_pressure" validate:"required,min=1,max=5"`
	FinancialStress   *int `json:"financial_stress" validate:"required,min=1,max=5"`
	Age               *int `json:"age" validate:"required,min=18,max=60"`
	WorkStudyHours    *int `json:"work_hours" validate:"required,min=1,max=15"`
	UnhealthyDiet     *int `json:"unhealthy_diet" validate:"required,oneof=0 1"`
	StudySatisfaction *int `json:"study_satisfaction" validate:"required,min=1,max=5"`
	SleepMoreThan8h   *int `json:"sleep_more_8h" validate:"required,oneof=0 1"`
	SleepLessThan5h   *int `json:"sleep_less_5h" validate:"required,oneof=0 1"`
	FamilyHistory     *int `json:"family_history" validate:"required,oneof=0 1"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonName)
	return v
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	return name
}

// parseForm reads the feature keys out of submitted form values. Non-numeric values are
// reported per field; absent or empty values stay nil and fail "required" later.
func parseForm(values url.Values) (*predictionForm, *ml.InvalidInputError) {
	form := &predictionForm{}
	invalid := &ml.InvalidInputError{Fields: map[string]string{}}

	for _, feature := range ml.FeatureColumns {
		raw := strings.TrimSpace(values.Get(feature.Key))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			invalid.Fields[feature.Key] = "must be a whole number"
			continue
		}
		form.set(feature.Key, n)
	}

	if len(invalid.Fields) > 0 {
		return form, invalid
	}
	return form, nil
}

func (f *predictionForm) set(key string, value int) {
	rv := reflect.ValueOf(f).Elem()
	for i := 0; i < rv.NumField(); i++ {
		if jsonName(rv.Type().Field(i)) == key {
			v := value
			rv.Field(i).Set(reflect.ValueOf(&v))
			return
		}
	}
}

// values returns the fields that were supplied, keyed by feature key.
func (f *predictionForm) values() map[string]float64 {
	out := make(map[string]float64, ml.FeatureCount)
	rv := reflect.ValueOf(f).Elem()
	for i := 0; i < rv.NumField(); i++ {
		field := rv.Field(i)
		if field.IsNil() {
			continue
		}
		out[jsonName(rv.Type().Field(i))] = float64(field.Elem().Int())
	}
	return out
}

// validateForm maps validator failures onto InvalidInputError and merges them with the
// errors parseForm found. A field that failed to parse is not also reported as missing.
func validateForm(v *validator.Validate, form *predictionForm, parse *ml.InvalidInputError) error {
	invalid := parse
	if invalid == nil {
		invalid = &ml.InvalidInputError{}
	}
	if invalid.Fields == nil {
		invalid.Fields = map[string]string{}
	}

	err := v.Struct(form)
	var verrs validator.ValidationErrors
	if err != nil && !errors.As(err, &verrs) {
		return err
	}

	for _, fe := range verrs {
		key := fe.Field()
		if _, failed := invalid.Fields[key]; failed {
			continue
		}
		switch fe.Tag() {
		case "required":
			invalid.Missing = append(invalid.Missing, key)
		case "oneof":
			invalid.Fields[key] = "must be 0 or 1"
		case "min":
			invalid.Fields[key] = fmt.Sprintf("must be at least %s", fe.Param())
		case "max":
			invalid.Fields[key] = fmt.Sprintf("must be at most %s", fe.Param())
		default:
			invalid.Fields[key] = "is invalid"
		}
	}

	if len(invalid.Missing) == 0 && len(invalid.Fields) == 0 && len(invalid.Unknown) == 0 {
		return nil
	}
	return invalid
}
