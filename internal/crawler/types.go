// Package crawler defines core types shared across subsystems.
package crawler

import (
	"time"
)

// Platform identifies a supported job board.
type Platform string

// Supported platforms.
const (
	PlatformWanted   Platform = "wanted"
	PlatformJobKorea Platform = "jobkorea"
	PlatformSaramin  Platform = "saramin"
)

// Confidence grades how certain a normalization result is.
type Confidence string

// Confidence levels shared by the position and tech-stack normalizers.
const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TechContext describes how a posting refers to a technology.
type TechContext string

// Usage contexts inferred from the posting text.
const (
	ContextRequired   TechContext = "필수"
	ContextPreferred  TechContext = "우대"
	ContextExperience TechContext = "경험"
)

// JobPosting is the unit of record written to the store.
type JobPosting struct {
	JobID               string              `json:"job_id"`
	JobURL              string              `json:"job_url"`
	Platform            Platform            `json:"platform"`
	JobTitle            string              `json:"job_title"`
	Company             Company             `json:"company"`
	WorkType            string              `json:"work_type,omitempty"`
	Location            Location            `json:"location"`
	Education           string              `json:"education,omitempty"`
	Experience          Experience          `json:"experience"`
	Position            Position            `json:"position"`
	TechStack           TechStack           `json:"tech_stack"`
	PreferredExperience PreferredExperience `json:"preferred_experience"`
	CrawledAt           time.Time           `json:"crawled_at"`
}

// Company holds the employer facts a board exposes. Every field except Name is optional.
type Company struct {
	Name        string `json:"name"`
	Size        string `json:"size,omitempty"`
	Description string `json:"description,omitempty"`
	Sales       string `json:"sales,omitempty"`
	Industry    string `json:"industry,omitempty"`
}

// Location is the parsed work location. City and District are empty when unknown.
type Location struct {
	RawText       string `json:"raw_text,omitempty"`
	City          string `json:"city"`
	District      string `json:"district"`
	DetailAddress string `json:"detail_address,omitempty"`
}

// Experience carries both the board's wording and the parsed year range.
type Experience struct {
	RawText  string `json:"raw_text"`
	MinYears int    `json:"min_years"`
	MaxYears int    `json:"max_years"`
}

// Position is the raw role wording plus its taxonomy placement.
type Position struct {
	RawText    string             `json:"raw_text"`
	RawList    []string           `json:"raw_list"`
	Normalized NormalizedPosition `json:"normalized"`
}

// NormalizedPosition is a two-level taxonomy placement.
type NormalizedPosition struct {
	PrimaryCategory   string     `json:"primary_category"`
	SecondaryCategory string     `json:"secondary_category"`
	PrimaryLabel      string     `json:"primary_label"`
	SecondaryLabel    string     `json:"secondary_label"`
	Confidence        Confidence `json:"confidence"`
	IsDataRole        bool       `json:"is_data_role"`
}

// TechStack is the raw technology wording plus canonical entries.
type TechStack struct {
	RawText    string           `json:"raw_text"`
	RawList    []string         `json:"raw_list"`
	Normalized []NormalizedTech `json:"normalized"`
}

// NormalizedTech is one canonical technology reference.
type NormalizedTech struct {
	Tech       string      `json:"tech"`
	Category   string      `json:"category"`
	Confidence Confidence  `json:"confidence"`
	Context    TechContext `json:"context"`
}

// PreferredExperience lists "nice to have" items as written by the employer.
type PreferredExperience struct {
	RawText string   `json:"raw_text"`
	RawList []string `json:"raw_list"`
}

// SuspiciousFinding describes one embedded document that looks like an image, PDF or canvas
// rather than text.
type SuspiciousFinding struct {
	Site Platform
	// URL is the embedded document; PostingURL is the page that embeds it.
	URL        string
	PostingURL string
	Kind       string
	Sample     string
	HTML       []byte
	DetectedAt time.Time
}

// Err describes the finding as a *SuspiciousContentDetected for the embedded document.
func (f SuspiciousFinding) Err() error {
	return &SuspiciousContentDetected{URL: f.URL, Kind: f.Kind}
}

// SaveOutcome reports what a single upsert did.
type SaveOutcome int

// Save outcomes returned by Store.SaveJobPosting.
const (
	SaveInserted SaveOutcome = iota
	SaveUpdated
)

func (o SaveOutcome) String() string {
	switch o {
	case SaveInserted:
		return "inserted"
	case SaveUpdated:
		return "updated"
	default:
		return "unknown"
	}
}

// BulkResult aggregates a BulkSave call.
type BulkResult struct {
	Inserted int
	Updated  int
	Errors   int
}

// PostingStats summarizes what the store holds for one platform.
type PostingStats struct {
	Platform      Platform
	Total         int
	LastCrawledAt time.Time
	ByCategory    map[string]int
}

// ListingMeta is the inline snapshot a listing row carries about its posting.
type ListingMeta struct {
	Title         string
	Company       string
	CompanyURL    string
	Experience    string
	Education     string
	Location      string
	WorkType      string
	PositionLevel string
	Positions     []string
}

// TopicPostingSaved names the event published after every successful upsert.
const TopicPostingSaved = "posting.saved"

// PostingSaved is the payload of TopicPostingSaved. Consumers re-read the posting from the
// store by URL.
type PostingSaved struct {
	RunID     string    `json:"run_id"`
	JobID     string    `json:"job_id"`
	JobURL    string    `json:"job_url"`
	Platform  Platform  `json:"platform"`
	Outcome   string    `json:"outcome"`
	CrawledAt time.Time `json:"crawled_at"`
}
