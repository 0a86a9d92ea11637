package http

import (
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"studentrisk/ml"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

var (
	supportedLanguages = []language.Tag{language.English, language.German, language.French, language.Spanish}
	languageMatcher    = language.NewMatcher(supportedLanguages)
)

// formDefaults are the values the form opens with.
var formDefaults = map[string]string{
	"suicidal_thoughts":  "0",
	"academic_pressure":  "4",
	"financial_stress":   "4",
	"age":                "22",
	"work_hours":         "6",
	"unhealthy_diet":     "0",
	"study_satisfaction": "2",
	"sleep_more_8h":      "0",
	"sleep_less_5h":      "0",
	"family_history":     "0",
}

type fieldView struct {
	Key     string
	Label   string
	Select  bool
	Options []int
	Min     int
	Max     int
	Value   string
	Error   string
}

type resultView struct {
	HighRisk  bool
	Summary   string
	RiskScore string
}

type pageData struct {
	Unavailable string
	Failure     string
	Fields      []fieldView
	Result      *resultView
}

// formatScore prints the probability with the client's decimal separator.
func formatScore(acceptLanguage string, probability float64) string {
	tags, _, _ := language.ParseAcceptLanguage(acceptLanguage)
	_, idx, _ := languageMatcher.Match(tags...)
	return message.NewPrinter(supportedLanguages[idx]).Sprintf("%.2f", probability)
}

func buildFields(values map[string]string, errs map[string]string) []fieldView {
	fields := make([]fieldView, 0, ml.FeatureCount)
	for _, feature := range ml.FeatureColumns {
		view := fieldView{
			Key:   feature.Key,
			Label: feature.Label,
			Min:   int(feature.Min),
			Max:   int(feature.Max),
			Value: values[feature.Key],
			Error: errs[feature.Key],
		}
		if feature.Kind != ml.FeatureNumeric {
			view.Select = true
			for n := view.Min; n <= view.Max; n++ {
				view.Options = append(view.Options, n)
			}
		}
		fields = append(fields, view)
	}
	return fields
}

func renderPage(w http.ResponseWriter, status int, data pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_ = pageTemplate.Execute(w, data)
}

func (v fieldView) Selected(option int) bool {
	return v.Value == strconv.Itoa(option)
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, msg string, fields map[string]string) {
	respondJSON(w, status, errorResponse{Error: msg, Fields: fields})
}
