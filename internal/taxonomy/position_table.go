package taxonomy

import "github.com/JakeFAU/jobboard-crawler/internal/crawler"

type secondaryDef struct {
	key      string
	label    string
	keywords []keywordDef
}

type keywordDef struct {
	text       string
	confidence crawler.Confidence
}

type primaryDef struct {
	key   string
	label string
	subs  []secondaryDef
}

const (
	high   = crawler.ConfidenceHigh
	medium = crawler.ConfidenceMedium
)

// positionTable lists each board's spellings of the developer roles it advertises.
var positionTable = []primaryDef{
	{key: "SOFTWARE_DEVELOPMENT", label: "소프트웨어 개발", subs: []secondaryDef{
		{key: "BACKEND", label: "백엔드 개발", keywords: []keywordDef{
			{"node.js 개발자", high},
			{"서버 개발자", high},
			{"백엔드 개발자", high},
			{"java 개발자", medium},
			{"python 개발자", medium},
			{"php 개발자", medium},
			{".net 개발자", medium},
			{"백엔드/서버개발", high},
			{"서버개발", high},
			{"백엔드개발자", high},
		}},
		{key: "FRONTEND", label: "프론트엔드 개발", keywords: []keywordDef{
			{"프론트엔드 개발자", high},
			{"프론트엔드", high},
			{"프론트엔드개발자", high},
			{"웹개발", medium},
			{"웹개발자", medium},
			{"웹 개발자", medium},
			{"웹퍼블리셔", medium},
			{"웹 퍼블리셔", medium},
		}},
		{key: "MOBILE", label: "모바일 개발", keywords: []keywordDef{
			{"안드로이드 개발자", high},
			{"ios 개발자", high},
			{"앱개발", high},
			{"앱개발자", high},
			{"모바일 개발자", high},
		}},
		{key: "FULLSTACK", label: "풀스택 개발", keywords: []keywordDef{
			{"풀스택", high},
			{"풀스택 개발자", high},
			{"소프트웨어 엔지니어", medium},
		}},
	}},
	{key: "DATA_SCIENCE", label: "데이터 사이언스", subs: []secondaryDef{
		{key: "DATA_ENGINEER", label: "데이터 엔지니어", keywords: []keywordDef{
			{"데이터 엔지니어", high},
			{"데이터엔지니어", high},
			{"빅데이터 엔지니어", high},
			{"mlops엔지니어", high},
		}},
		{key: "DATA_SCIENTIST", label: "데이터 사이언티스트", keywords: []keywordDef{
			{"데이터 사이언티스트", high},
			{"데이터사이언티스트", high},
		}},
		{key: "DATA_ANALYST", label: "데이터 분석가", keywords: []keywordDef{
			{"데이터분석가", high},
			{"데이터 분석가", high},
			{"bi 엔지니어", high},
		}},
	}},
	{key: "AI_ML", label: "AI/머신러닝", subs: []secondaryDef{
		{key: "AI_ENGINEER", label: "AI 엔지니어", keywords: []keywordDef{
			{"ai/ml엔지니어", high},
			{"ai 엔지니어", high},
			{"머신러닝 엔지니어", high},
			{"ai/ml연구원", high},
		}},
	}},
	{key: "INFRASTRUCTURE", label: "인프라/시스템", subs: []secondaryDef{
		{key: "DEVOPS", label: "DevOps", keywords: []keywordDef{
			{"devops", high},
			{"devops / 시스템 관리자", high},
			{"클라우드엔지니어", high},
		}},
		{key: "SYSTEM", label: "시스템 엔지니어", keywords: []keywordDef{
			{"시스템엔지니어", high},
			{"se(시스템엔지니어)", high},
			{"시스템,네트워크 관리자", medium},
		}},
		{key: "DATABASE", label: "데이터베이스", keywords: []keywordDef{
			{"dba", high},
		}},
	}},
	{key: "SECURITY", label: "보안", subs: []secondaryDef{
		{key: "SECURITY_ENGINEER", label: "보안 엔지니어", keywords: []keywordDef{
			{"보안엔지니어", high},
			{"정보보안", high},
			{"보안관제", high},
		}},
	}},
	{key: "QA_TESTING", label: "QA/테스팅", subs: []secondaryDef{
		{key: "QA", label: "QA 엔지니어", keywords: []keywordDef{
			{"qa", high},
			{"qa/테스터", high},
			{"qa,테스트 엔지니어", high},
		}},
	}},
}

// dataPrimaries marks the primary categories reported as data roles.
var dataPrimaries = map[string]bool{
	"DATA_SCIENCE": true,
	"AI_ML":        true,
}
