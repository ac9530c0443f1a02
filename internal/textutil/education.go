package textutil

import "strings"

// Education levels recognized by InferEducation.
const (
	EducationAny     = "무관"
	EducationHigh    = "고졸"
	EducationCollege = "대졸"
	EducationMaster  = "석사"
	EducationPhD     = "박사"
)

// InferEducation classifies requirement text into an education level, or "" when nothing matches.
func InferEducation(text string) string {
	if text == "" {
		return ""
	}
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "무관"):
		return EducationAny
	case strings.Contains(lower, "고등학교"), strings.Contains(lower, "고졸"):
		return EducationHigh
	case strings.Contains(lower, "학사"), strings.Contains(lower, "대졸"), strings.Contains(lower, "대학교"):
		return EducationCollege
	case strings.Contains(lower, "석사"):
		return EducationMaster
	case strings.Contains(lower, "박사"):
		return EducationPhD
	default:
		return ""
	}
}
