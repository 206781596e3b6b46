package conversation

import (
	_ "embed"
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"tachora/backend/internal/scheduling"
)

//go:embed keywords.yaml
var defaultKeywordsYAML []byte

// LocaleKeywords 单个语言的关键词表（原文书写，加载时归一化）
type LocaleKeywords struct {
	Affirmative []string                          `yaml:"affirmative"`
	Negative    []string                          `yaml:"negative"`
	Ordinals    map[string]int                    `yaml:"ordinals"`
	TimeOfDay   map[scheduling.TimeOfDay][]string `yaml:"time_of_day"`
	Assign      []string                          `yaml:"assign"`
	Pronouns    []string                          `yaml:"pronouns"`
}

type phrase struct {
	tokens []string
	locale string
}

type ordinalPhrase struct {
	phrase
	index int
}

type timeOfDayPhrase struct {
	phrase
	bucket scheduling.TimeOfDay
}

// Tables 归一化后的多语言词表
type Tables struct {
	locales     []string
	affirmative []phrase
	negative    []phrase
	ordinals    []ordinalPhrase
	timeOfDay   []timeOfDayPhrase
	assign      []phrase
	pronouns    []phrase
}

// ParseTables 解析 YAML 词表：顶层键为语言代码
func ParseTables(data []byte) (*Tables, error) {
	raw := map[string]LocaleKeywords{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("解析关键词表失败: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("关键词表为空")
	}

	t := &Tables{}
	for code := range raw {
		t.locales = append(t.locales, code)
	}
	sort.Strings(t.locales)

	for _, code := range t.locales {
		kw := raw[code]
		t.affirmative = appendPhrases(t.affirmative, code, kw.Affirmative)
		t.negative = appendPhrases(t.negative, code, kw.Negative)
		t.assign = appendPhrases(t.assign, code, kw.Assign)
		t.pronouns = appendPhrases(t.pronouns, code, kw.Pronouns)

		words := make([]string, 0, len(kw.Ordinals))
		for w := range kw.Ordinals {
			words = append(words, w)
		}
		sort.Strings(words)
		for _, w := range words {
			idx := kw.Ordinals[w]
			if idx < 1 {
				return nil, fmt.Errorf("关键词表 %s: 序数 %q 必须从 1 开始", code, w)
			}
			if p, ok := newPhrase(code, w); ok {
				t.ordinals = append(t.ordinals, ordinalPhrase{phrase: p, index: idx})
			}
		}

		for _, bucket := range []scheduling.TimeOfDay{scheduling.Morning, scheduling.Afternoon, scheduling.Evening} {
			for _, w := range kw.TimeOfDay[bucket] {
				if p, ok := newPhrase(code, w); ok {
					t.timeOfDay = append(t.timeOfDay, timeOfDayPhrase{phrase: p, bucket: bucket})
				}
			}
		}
	}
	return t, nil
}

func newPhrase(locale, text string) (phrase, bool) {
	toks := tokenize(Normalize(text))
	if len(toks) == 0 {
		return phrase{}, false
	}
	return phrase{tokens: toks, locale: locale}, true
}

func appendPhrases(dst []phrase, locale string, words []string) []phrase {
	for _, w := range words {
		if p, ok := newPhrase(locale, w); ok {
			dst = append(dst, p)
		}
	}
	return dst
}

func (t *Tables) hasLocale(code string) bool {
	i := sort.SearchStrings(t.locales, code)
	return i < len(t.locales) && t.locales[i] == code
}

// Locales 已加载的语言代码（有序）
func (t *Tables) Locales() []string {
	return append([]string(nil), t.locales...)
}

var (
	defaultTablesOnce sync.Once
	defaultTables     *Tables
)

// DefaultTables 内置词表；内置数据解析失败属于构建错误
func DefaultTables() *Tables {
	defaultTablesOnce.Do(func() {
		t, err := ParseTables(defaultKeywordsYAML)
		if err != nil {
			panic(err)
		}
		defaultTables = t
	})
	return defaultTables
}

// preferLocale 指定语言的词条排在前面，其余保持原顺序
func preferLocale[T interface{ localeOf() string }](items []T, locale string) []T {
	if locale == "" {
		return items
	}
	out := make([]T, 0, len(items))
	for _, it := range items {
		if it.localeOf() == locale {
			out = append(out, it)
		}
	}
	for _, it := range items {
		if it.localeOf() != locale {
			out = append(out, it)
		}
	}
	return out
}

func (p phrase) localeOf() string { return p.locale }
