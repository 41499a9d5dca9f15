package scoring

import "strings"

// skillAliases maps common spelling variants to a canonical skill name so
// overlap matching is not defeated by "vue.js" vs "Vue 3".
var skillAliases = map[string]string{
	"vue.js":              "vue",
	"vuejs":               "vue",
	"vue 3":               "vue",
	"vue3":                "vue",
	"reactjs":             "react",
	"react.js":            "react",
	"node.js":             "node",
	"nodejs":              "node",
	"python3":             "python",
	"python 3":            "python",
	"dotnet":              "c#",
	".net":                "c#",
	"asp.net":             "c#",
	"ts":                  "typescript",
	"js":                  "javascript",
	"es6":                 "javascript",
	"postgres":            "postgresql",
	"psql":                "postgresql",
	"ms sql":              "sql",
	"mssql":               "sql",
	"sql server":          "sql",
	"k8s":                 "kubernetes",
	"rest-api":            "rest",
	"rest api":            "rest",
	"restful":             "rest",
	"github":              "git",
	"gitlab":              "git",
	"amazon web services": "aws",
	"microsoft azure":     "azure",
	"ci/cd":               "cicd",
	"ci cd":               "cicd",
	"full-stack":          "fullstack",
	"full stack":          "fullstack",
	"docker-compose":      "docker",
	"docker compose":      "docker",
	"spring boot":         "spring",
	"springboot":          "spring",
}

// normalizeSkill lowercases, trims and resolves aliases.
func normalizeSkill(skill string) string {
	s := strings.ToLower(strings.TrimSpace(skill))
	if canonical, ok := skillAliases[s]; ok {
		return canonical
	}
	return s
}

// normalizeSkillSet converts a skill list into a canonical set, dropping
// empties and duplicates while keeping determinism (set membership only).
func normalizeSkillSet(skills []string) map[string]bool {
	set := make(map[string]bool, len(skills))
	for _, s := range skills {
		n := normalizeSkill(s)
		if n != "" {
			set[n] = true
		}
	}
	return set
}

// NormalizeClient canonicalizes client names for prior-statistics lookups.
// Aggregation and lookup must agree on the key form.
func NormalizeClient(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
