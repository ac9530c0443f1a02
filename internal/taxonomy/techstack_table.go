package taxonomy

// Tech categories used by the alias table and the unmapped-token heuristic.
const (
	CategoryLanguage   = "language"
	CategoryFramework  = "framework"
	CategoryDatabase   = "database"
	CategoryCloud      = "cloud"
	CategoryRuntime    = "runtime"
	CategoryMessaging  = "messaging"
	CategoryMonitoring = "monitoring"
	CategoryAPI        = "api"
	CategoryTool       = "tool"
)

type techDef struct {
	canonical string
	aliases   []string
}

type techCategoryDef struct {
	category string
	techs    []techDef
}

// techTable maps spellings seen on Korean boards onto canonical identifiers.
// Later categories win when two aliases normalize to the same key.
var techTable = []techCategoryDef{
	{category: CategoryLanguage, techs: []techDef{
		{"javascript", []string{"javascript", "js"}},
		{"typescript", []string{"typescript", "ts"}},
		{"python", []string{"python"}},
		{"java", []string{"java"}},
		{"kotlin", []string{"kotlin"}},
		{"swift", []string{"swift"}},
		{"go", []string{"go", "golang"}},
		{"rust", []string{"rust"}},
		{"php", []string{"php"}},
		{"ruby", []string{"ruby"}},
		{"scala", []string{"scala"}},
		{"csharp", []string{"c#", "csharp"}},
		{"cpp", []string{"c++", "cpp"}},
		{"c", []string{"c언어", "c"}},
		{"dart", []string{"dart"}},
		{"html", []string{"html", "html5"}},
		{"css", []string{"css", "css3"}},
	}},
	{category: CategoryFramework, techs: []techDef{
		{"react", []string{"react", "react.js", "reactjs"}},
		{"vue", []string{"vue", "vue.js", "vuejs"}},
		{"angular", []string{"angular", "angularjs"}},
		{"svelte", []string{"svelte"}},
		{"nextjs", []string{"next.js", "nextjs", "next"}},
		{"nuxtjs", []string{"nuxt.js", "nuxtjs", "nuxt"}},
		{"spring", []string{"spring"}},
		{"spring_boot", []string{"spring boot", "springboot"}},
		{"django", []string{"django"}},
		{"flask", []string{"flask"}},
		{"fastapi", []string{"fastapi"}},
		{"express", []string{"express", "express.js", "expressjs"}},
		{"nestjs", []string{"nest.js", "nestjs"}},
		{"laravel", []string{"laravel"}},
		{"rails", []string{"rails", "ruby on rails"}},
		{"dotnet", []string{".net", "dotnet"}},
		{"flutter", []string{"flutter"}},
		{"react_native", []string{"react native"}},
		{"jquery", []string{"jquery"}},
		{"bootstrap", []string{"bootstrap"}},
		{"tailwind", []string{"tailwind", "tailwindcss"}},
	}},
	{category: CategoryDatabase, techs: []techDef{
		{"mysql", []string{"mysql"}},
		{"postgresql", []string{"postgresql", "postgres"}},
		{"mongodb", []string{"mongodb", "mongo"}},
		{"redis", []string{"redis"}},
		{"oracle", []string{"oracle", "oracle db"}},
		{"sqlite", []string{"sqlite"}},
		{"mariadb", []string{"mariadb"}},
		{"elasticsearch", []string{"elasticsearch", "elastic search"}},
		{"dynamodb", []string{"dynamodb"}},
		{"cassandra", []string{"cassandra"}},
		{"influxdb", []string{"influxdb"}},
		{"neo4j", []string{"neo4j"}},
	}},
	{category: CategoryCloud, techs: []techDef{
		{"aws", []string{"aws", "amazon web services"}},
		{"azure", []string{"azure", "microsoft azure"}},
		{"gcp", []string{"gcp", "google cloud", "google cloud platform"}},
		{"docker", []string{"docker"}},
		{"kubernetes", []string{"kubernetes", "k8s"}},
		{"jenkins", []string{"jenkins"}},
		{"github_actions", []string{"github actions"}},
		{"gitlab_ci", []string{"gitlab ci", "gitlab-ci"}},
		{"terraform", []string{"terraform"}},
		{"ansible", []string{"ansible"}},
		{"nginx", []string{"nginx"}},
		{"apache", []string{"apache"}},
		{"cloudflare", []string{"cloudflare"}},
	}},
	{category: CategoryRuntime, techs: []techDef{
		{"nodejs", []string{"node.js", "nodejs", "node"}},
		{"deno", []string{"deno"}},
		{"bun", []string{"bun"}},
	}},
	{category: CategoryMessaging, techs: []techDef{
		{"rabbitmq", []string{"rabbitmq", "rabbit mq"}},
		{"kafka", []string{"kafka", "apache kafka"}},
		{"redis_queue", []string{"redis queue"}},
		{"sqs", []string{"sqs", "amazon sqs"}},
		{"pubsub", []string{"pub/sub", "pubsub"}},
	}},
	{category: CategoryMonitoring, techs: []techDef{
		{"elk_stack", []string{"elk", "elastic stack", "elk stack"}},
		{"prometheus", []string{"prometheus"}},
		{"grafana", []string{"grafana"}},
		{"cloudwatch", []string{"cloudwatch", "aws cloudwatch"}},
		{"datadog", []string{"datadog"}},
		{"newrelic", []string{"new relic", "newrelic"}},
		{"sentry", []string{"sentry"}},
	}},
	{category: CategoryAPI, techs: []techDef{
		{"rest", []string{"rest", "restful", "rest api"}},
		{"graphql", []string{"graphql"}},
		{"grpc", []string{"grpc"}},
		{"websocket", []string{"websocket"}},
		{"socket_io", []string{"socket.io"}},
	}},
	{category: CategoryTool, techs: []techDef{
		{"git", []string{"git"}},
		{"github", []string{"github"}},
		{"gitlab", []string{"gitlab"}},
		{"jira", []string{"jira"}},
		{"confluence", []string{"confluence"}},
		{"slack", []string{"slack"}},
		{"notion", []string{"notion"}},
		{"figma", []string{"figma"}},
		{"postman", []string{"postman"}},
		{"webpack", []string{"webpack"}},
		{"vite", []string{"vite"}},
		{"babel", []string{"babel"}},
		{"eslint", []string{"eslint"}},
		{"prettier", []string{"prettier"}},
		{"jest", []string{"jest"}},
		{"cypress", []string{"cypress"}},
		{"selenium", []string{"selenium"}},
	}},
}

// contextKeywords are checked in this order; the first context with a hit wins.
var contextKeywords = []struct {
	context  string
	keywords []string
}{
	{"필수", []string{"필수", "required", "must"}},
	{"우대", []string{"우대", "preferred", "plus", "advantage", "welcome"}},
	{"경험", []string{"경험", "experience", "familiar", "knowledge"}},
}

// techSeparators split a free-text tech field into tokens.
var techSeparators = []string{",", "/", "·", "•", "\n", "|", ";"}
