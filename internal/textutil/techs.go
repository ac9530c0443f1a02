package textutil

import (
	"strings"
)

// techKeywords is the curated vocabulary ExtractTechs scans for. Order is the output order.
var techKeywords = []string{
	// languages
	"JavaScript", "TypeScript", "Python", "Java", "C++", "C#", "Go", "Rust", "Swift", "Kotlin",
	"PHP", "Ruby", "Scala", "Dart", "HTML", "CSS", "SQL", "R", "MATLAB", "Objective-C",

	// web frameworks and libraries
	"Node.js", "React", "Vue.js", "Vue", "Angular", "Nest.js", "NestJS", "Express", "Express.js",
	"Spring", "Spring Boot", "Django", "Flask", "FastAPI", "Next.js", "NextJS", "Nuxt.js",
	"jQuery", "Bootstrap", "Tailwind", "Tailwind CSS", "Material-UI", "Ant Design",
	"Laravel", "CodeIgniter", "Symfony", "CakePHP", "Rails", "Ruby on Rails",

	// cross-platform mobile
	"Flutter", "React Native", "Xamarin", "Ionic", "PhoneGap", "Cordova",

	// iOS
	"SwiftUI", "UIKit", "Combine", "SnapKit", "Swift Concurrency", "RxSwift", "Alamofire",
	"Core Data", "CloudKit", "WebKit", "MapKit", "AVFoundation", "ARKit", "Core ML",
	"Auto Layout", "AutoLayout", "Storyboard", "XIB", "MVVM", "MVP", "MVC", "VIPER",
	"SPM", "CocoaPods", "Carthage", "Xcode", "Instruments", "TestFlight", "App Store Connect",
	"Xcode Cloud", "Firebase", "Realm", "UserNotifications", "Push Notifications",

	// Android
	"Android Studio", "Gradle", "Retrofit", "OkHttp", "Glide", "Picasso", "Room", "LiveData",
	"ViewModel", "Data Binding", "View Binding", "Jetpack Compose", "Coroutines", "RxJava",
	"Dagger", "Hilt", "Koin", "Material Design", "ConstraintLayout",

	// databases
	"MySQL", "PostgreSQL", "MongoDB", "Redis", "Oracle", "SQLite", "MariaDB", "Elasticsearch",
	"DynamoDB", "Cassandra", "InfluxDB", "Neo4j", "CouchDB", "Firebase Firestore",
	"Microsoft SQL Server", "DB2", "Supabase", "PlanetScale",

	// cloud and infrastructure
	"AWS", "Azure", "GCP", "Google Cloud", "Digital Ocean", "Heroku", "Vercel", "Netlify",
	"Docker", "Kubernetes", "Jenkins", "GitLab CI", "GitHub Actions", "CircleCI", "Travis CI",
	"Terraform", "Ansible", "Chef", "Puppet", "Vagrant", "Nginx", "Apache", "HAProxy",
	"CloudFlare", "CDN", "Load Balancer",

	// messaging
	"RabbitMQ", "Kafka", "Apache Kafka", "SQS", "Pub/Sub",

	// monitoring
	"Elastic Stack", "ELK", "Prometheus", "Grafana", "CloudWatch", "DataDog",

	// api
	"REST", "RESTful", "GraphQL", "gRPC", "WebSocket", "Socket.io",

	// practices and tools
	"Git", "GitHub", "GitLab", "TDD", "BDD", "Agile", "Scrum", "CI/CD", "DevOps",
	"Microservice", "MSA", "Serverless", "Container",
}

// TechKeywords returns a copy of the scan vocabulary.
func TechKeywords() []string {
	return append([]string(nil), techKeywords...)
}

// ExtractTechs scans text for known technology keywords, case-insensitively and on
// whole-token boundaries, and returns each hit as it is spelled in text.
// "Javascript" therefore does not yield "Java", while "Java와" still does.
func ExtractTechs(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	lower := strings.ToLower(text)
	if len(lower) != len(text) {
		// Lowercasing changed byte offsets; fall back to matching on the lowered text.
		text = lower
	}
	var found []string
	seen := make(map[string]struct{})
	for _, kw := range techKeywords {
		key := strings.ToLower(kw)
		if _, dup := seen[key]; dup {
			continue
		}
		start := indexToken(lower, key)
		if start < 0 {
			continue
		}
		seen[key] = struct{}{}
		found = append(found, text[start:start+len(key)])
	}
	return found
}

// indexToken finds the first occurrence of needle in haystack that is not glued to an
// ASCII letter, digit or underscore on either side. Hangul neighbours count as boundaries.
func indexToken(haystack, needle string) int {
	offset := 0
	for {
		i := strings.Index(haystack[offset:], needle)
		if i < 0 {
			return -1
		}
		start := offset + i
		end := start + len(needle)
		if !isWordByte(haystack, start-1) && !isWordByte(haystack, end) {
			return start
		}
		offset = start + 1
		if offset >= len(haystack) {
			return -1
		}
	}
}

func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}
