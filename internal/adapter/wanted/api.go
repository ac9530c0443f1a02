package wanted

import (
	"encoding/json"
	"fmt"
)

type listResponse struct {
	Data []struct {
		ID int64 `json:"id"`
	} `json:"data"`
}

type detailResponse struct {
	Message string `json:"message"`
	Data    struct {
		Job *job `json:"job"`
	} `json:"data"`
}

type job struct {
	ID             int64           `json:"id"`
	Company        company         `json:"company"`
	Detail         detail          `json:"detail"`
	Address        address         `json:"address"`
	AttractionTags []attractionTag `json:"attraction_tags"`
	EmploymentType string          `json:"employment_type"`
	AnnualFrom     int             `json:"annual_from"`
	AnnualTo       int             `json:"annual_to"`
	IsNewbie       bool            `json:"is_newbie"`
	CategoryTag    categoryTag     `json:"category_tag"`
	SkillTags      []textTag       `json:"skill_tags"`
}

type company struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	IndustryName string `json:"industry_name"`
}

type detail struct {
	Position        string `json:"position"`
	Intro           string `json:"intro"`
	MainTasks       string `json:"main_tasks"`
	Requirements    string `json:"requirements"`
	PreferredPoints string `json:"preferred_points"`
}

type address struct {
	Location     string `json:"location"`
	District     string `json:"district"`
	FullLocation string `json:"full_location"`
}

type categoryTag struct {
	ParentTag textTag   `json:"parent_tag"`
	ChildTags []textTag `json:"child_tags"`
}

type textTag struct {
	Text string `json:"text"`
}

// attractionTag is sent either as a bare id or as {"tag_type_id": id}.
type attractionTag int

func (t *attractionTag) UnmarshalJSON(data []byte) error {
	var id int
	if err := json.Unmarshal(data, &id); err == nil {
		*t = attractionTag(id)
		return nil
	}
	var obj struct {
		TagTypeID int `json:"tag_type_id"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("attraction tag: %w", err)
	}
	*t = attractionTag(obj.TagTypeID)
	return nil
}

var companySizeTags = map[attractionTag]string{
	10402: "50명이하",
	10403: "51-100명",
	10404: "101-500명",
	10405: "501-1000명",
	10406: "1000명이상",
}

var employmentTypes = map[string]string{
	"regular":   "정규직",
	"contract":  "계약직",
	"intern":    "인턴",
	"freelance": "프리랜서",
	"part_time": "파트타임",
}
