package locale

import (
	"strconv"
	"strings"
)

const (
	LanguageThai    = "th"
	LanguageEnglish = "en"
)

type Preference struct {
	Language string
	Locale   string
	HTMLLang string
}

func NormalizeLanguage(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}
	if strings.HasPrefix(trimmed, "th") {
		return LanguageThai
	}
	if strings.HasPrefix(trimmed, "en") {
		return LanguageEnglish
	}
	return ""
}

// LanguageFromAcceptLanguage 按 q 值从高到低取第一个受支持的语言。
func LanguageFromAcceptLanguage(header string) string {
	best, bestQ := "", -1.0
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		lang := NormalizeLanguage(fields[0])
		if lang == "" {
			continue
		}
		q := 1.0
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if strings.HasPrefix(f, "q=") {
				q = parseQuality(strings.TrimPrefix(f, "q="))
			}
		}
		// q=0 表示明确不接受
		if q <= 0 {
			continue
		}
		if q > bestQ {
			best, bestQ = lang, q
		}
	}
	return best
}

func parseQuality(raw string) float64 {
	q, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || q < 0 {
		return 0
	}
	return min(q, 1)
}

// Resolve 依次取显式选择、默认语言，最终回退泰语。
func Resolve(candidates ...string) string {
	for _, c := range candidates {
		if lang := NormalizeLanguage(c); lang != "" {
			return lang
		}
	}
	return LanguageThai
}

func PreferenceForLanguage(language string) Preference {
	if NormalizeLanguage(language) == LanguageEnglish {
		return Preference{Language: LanguageEnglish, Locale: "en_US", HTMLLang: "en"}
	}
	return Preference{Language: LanguageThai, Locale: "th_TH", HTMLLang: "th"}
}

// Pick 按语言在英文与泰文之间选择，所选一侧为空时退回另一侧。
func Pick(language, english, thai string) string {
	first, second := thai, english
	if NormalizeLanguage(language) == LanguageEnglish {
		first, second = english, thai
	}
	if first != "" {
		return first
	}
	return second
}
