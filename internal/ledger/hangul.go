package ledger

import (
	"unicode/utf8"

	"parishledger/internal/core"
)

const (
	hangulBase      = 0xAC00
	hangulSyllables = 11172
	// syllables sharing one leading consonant: 21 vowels * 28 finals
	syllablesPerLead = 588
)

// OtherBucket labels members whose name does not start with a Hangul syllable.
const OtherBucket = "기타"

var leadingConsonants = [19]string{
	"ㄱ", "ㄲ", "ㄴ", "ㄷ", "ㄸ", "ㄹ", "ㅁ", "ㅂ", "ㅃ", "ㅅ",
	"ㅆ", "ㅇ", "ㅈ", "ㅉ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ",
}

var tenseToPlain = map[string]string{
	"ㄲ": "ㄱ",
	"ㄸ": "ㄷ",
	"ㅃ": "ㅂ",
	"ㅆ": "ㅅ",
	"ㅉ": "ㅈ",
}

// Consonants lists the 14 grouping buckets in display order.
var Consonants = []string{"ㄱ", "ㄴ", "ㄷ", "ㄹ", "ㅁ", "ㅂ", "ㅅ", "ㅇ", "ㅈ", "ㅊ", "ㅋ", "ㅌ", "ㅍ", "ㅎ"}

// InitialConsonant returns the grouping consonant of a name's first syllable,
// or "" when the name does not start with a precomposed Hangul syllable.
func InitialConsonant(name string) string {
	r, size := utf8.DecodeRuneInString(name)
	if size == 0 || r == utf8.RuneError {
		return ""
	}
	off := int(r) - hangulBase
	if off < 0 || off >= hangulSyllables {
		return ""
	}
	lead := leadingConsonants[off/syllablesPerLead]
	if plain, ok := tenseToPlain[lead]; ok {
		return plain
	}
	return lead
}

// MemberGroup is one consonant bucket of the member picker.
type MemberGroup struct {
	Consonant string // "" for the OtherBucket group
	Label     string
	Members   []core.Member
}

// GroupByInitial partitions members by InitialConsonant. Groups follow
// Consonants order, empty groups are omitted and the ungrouped bucket comes
// last. Member order inside a group follows the input.
func GroupByInitial(members []core.Member) []MemberGroup {
	buckets := make(map[string][]core.Member, len(Consonants)+1)
	for _, m := range members {
		c := InitialConsonant(m.Name)
		buckets[c] = append(buckets[c], m)
	}
	groups := make([]MemberGroup, 0, len(buckets))
	for _, c := range Consonants {
		if ms := buckets[c]; len(ms) > 0 {
			groups = append(groups, MemberGroup{Consonant: c, Label: c, Members: ms})
		}
	}
	if ms := buckets[""]; len(ms) > 0 {
		groups = append(groups, MemberGroup{Label: OtherBucket, Members: ms})
	}
	return groups
}

// FilterByInitial returns the members of one bucket; "" selects the
// ungrouped bucket.
func FilterByInitial(members []core.Member, consonant string) []core.Member {
	var out []core.Member
	for _, m := range members {
		if InitialConsonant(m.Name) == consonant {
			out = append(out, m)
		}
	}
	return out
}
