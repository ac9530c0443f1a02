package textutil

import (
	"regexp"
	"strings"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

var districtPattern = regexp.MustCompile(`([가-힣]+구)`)

// Seoul is checked first; the others only yield a city.
var metroCities = []string{"서울", "경기", "부산", "대구", "인천", "광주", "대전", "울산"}

// ParseLocation splits free-form location text into city and, for Seoul, the district.
func ParseLocation(text string) crawler.Location {
	text = Clean(text)
	loc := crawler.Location{RawText: text}
	if text == "" {
		return loc
	}
	for _, city := range metroCities {
		if !strings.Contains(text, city) {
			continue
		}
		loc.City = city
		if city == "서울" {
			if m := districtPattern.FindStringSubmatch(text); m != nil {
				loc.District = m[1]
			}
		}
		return loc
	}
	return loc
}
