package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

const (
	defaultRunLimit = 20
	maxRunLimit     = 200
)

func parseLimitOffset(r *http.Request, def, maxLimit int) (int, int, error) {
	q := r.URL.Query()
	limit := def
	if limStr := q.Get("limit"); limStr != "" {
		val, err := strconv.Atoi(limStr)
		if err != nil || val <= 0 {
			return 0, 0, errors.New("invalid limit")
		}
		if val > maxLimit {
			val = maxLimit
		}
		limit = val
	}
	offset := 0
	if offStr := q.Get("offset"); offStr != "" {
		val, err := strconv.Atoi(offStr)
		if err != nil || val < 0 {
			return 0, 0, errors.New("invalid offset")
		}
		offset = val
	}
	return limit, offset, nil
}

type statsDTO struct {
	Site          string         `json:"site"`
	Total         int            `json:"total"`
	LastCrawledAt *time.Time     `json:"last_crawled_at,omitempty"`
	ByCategory    map[string]int `json:"by_category"`
}

func toStatsDTO(s crawler.PostingStats) statsDTO {
	dto := statsDTO{
		Site:       string(s.Platform),
		Total:      s.Total,
		ByCategory: s.ByCategory,
	}
	if !s.LastCrawledAt.IsZero() {
		last := s.LastCrawledAt
		dto.LastCrawledAt = &last
	}
	if dto.ByCategory == nil {
		dto.ByCategory = map[string]int{}
	}
	return dto
}
