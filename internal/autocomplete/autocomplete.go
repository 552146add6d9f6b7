// 包 autocomplete：自动补全的分词与匹配语义
// 物种按前缀匹配（属名或种加词），地理单元按子串匹配（单元名）；所有词元必须同时命中
package autocomplete

import (
	"regexp"
	"strings"
)

var separators = regexp.MustCompile(`[.\s]+`)

// Tokenize：按连续空白或句点切分，丢弃空词元，保持原顺序
func Tokenize(q string) []string {
	parts := separators.Split(q, -1)
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// MatchSpecies：每个词元须为属名或种加词的前缀（大小写不敏感）；词元之间相互独立
// 约束：无词元时不匹配任何记录
func MatchSpecies(tokens []string, genus, species string) bool {
	if len(tokens) == 0 {
		return false
	}
	g := strings.ToLower(genus)
	s := strings.ToLower(species)
	for _, t := range tokens {
		t = strings.ToLower(t)
		if !strings.HasPrefix(g, t) && !strings.HasPrefix(s, t) {
			return false
		}
	}
	return true
}

// MatchUnit：每个词元须为单元名的子串（大小写不敏感）
func MatchUnit(tokens []string, name string) bool {
	if len(tokens) == 0 {
		return false
	}
	n := strings.ToLower(name)
	for _, t := range tokens {
		if !strings.Contains(n, strings.ToLower(t)) {
			return false
		}
	}
	return true
}

// LikeEscape：转义 LIKE 通配符，配合 ESCAPE '\' 使用
func LikeEscape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
