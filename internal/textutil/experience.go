package textutil

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/JakeFAU/jobboard-crawler/internal/crawler"
)

// OpenEndedYears is the max_years ceiling for "N년 이상" style requirements.
const OpenEndedYears = 99

var digitsPattern = regexp.MustCompile(`\d+`)

// ParseExperience turns wording such as "신입", "경력 3~5년" or "경력 5년 이상" into a year range.
func ParseExperience(text string) crawler.Experience {
	exp := crawler.Experience{RawText: text}
	if text == "" {
		return exp
	}
	if strings.Contains(text, "신입") || strings.Contains(text, "경력무관") {
		return exp
	}
	matches := digitsPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return exp
	}
	nums := make([]int, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	if len(nums) == 0 {
		return exp
	}
	switch {
	case strings.Contains(text, "이상"):
		exp.MinYears = nums[0]
		exp.MaxYears = OpenEndedYears
	case len(nums) >= 2:
		exp.MinYears, exp.MaxYears = nums[0], nums[0]
		for _, n := range nums[1:] {
			exp.MinYears = min(exp.MinYears, n)
			exp.MaxYears = max(exp.MaxYears, n)
		}
	default:
		exp.MinYears = nums[0]
		exp.MaxYears = nums[0]
	}
	return exp
}
