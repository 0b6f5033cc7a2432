package tts

import "strings"

// Voice 是一个音色描述。
type Voice struct {
	Name                   string   `json:"name"`
	SSMLGender             string   `json:"ssmlGender"`
	LanguageCodes          []string `json:"languageCodes"`
	NaturalSampleRateHertz int      `json:"naturalSampleRateHertz,omitempty"`
}

// ShortName 返回音色名最后一段，如 ja-JP-Neural2-B -> B。
func (v Voice) ShortName() string {
	if i := strings.LastIndex(v.Name, "-"); i >= 0 {
		return v.Name[i+1:]
	}
	return v.Name
}

// GenderLabel 返回性别显示文字。
func (v Voice) GenderLabel() string {
	if v.SSMLGender == "FEMALE" {
		return "女性"
	}
	return "男性"
}

// Tiers 是按音色名划分的品质档位，顺序即展示顺序。
var Tiers = []string{"Studio", "Neural2", "WaveNet", "Standard"}

var tierDescriptions = map[string]string{
	"Studio":   "最高品質",
	"Neural2":  "高品質",
	"WaveNet":  "自然",
	"Standard": "標準",
}

// TierOf 返回音色所属档位，无法识别时归入 Standard。
func TierOf(name string) string {
	for _, t := range Tiers {
		if strings.Contains(name, t) {
			return t
		}
	}
	return "Standard"
}

// TierDescription 返回档位说明。
func TierDescription(tier string) string {
	return tierDescriptions[tier]
}

// VoiceGroup 是同一档位的音色。
type VoiceGroup struct {
	Tier        string
	Description string
	Voices      []Voice
}

// GroupVoices 按档位分组，跳过空档位，组内保持原顺序。
func GroupVoices(voices []Voice) []VoiceGroup {
	byTier := make(map[string][]Voice, len(Tiers))
	for _, v := range voices {
		t := TierOf(v.Name)
		byTier[t] = append(byTier[t], v)
	}

	var groups []VoiceGroup
	for _, t := range Tiers {
		if len(byTier[t]) == 0 {
			continue
		}
		groups = append(groups, VoiceGroup{Tier: t, Description: TierDescription(t), Voices: byTier[t]})
	}
	return groups
}

// FilterByLanguage 只保留 languageCodes 包含 code 的音色。
func FilterByLanguage(voices []Voice, code string) []Voice {
	out := make([]Voice, 0, len(voices))
	for _, v := range voices {
		for _, c := range v.LanguageCodes {
			if c == code {
				out = append(out, v)
				break
			}
		}
	}
	return out
}

// DefaultVoice 依次选第一个 Neural2、第一个 WaveNet、第一个音色。
func DefaultVoice(voices []Voice) (Voice, bool) {
	for _, tier := range []string{"Neural2", "WaveNet"} {
		for _, v := range voices {
			if strings.Contains(v.Name, tier) {
				return v, true
			}
		}
	}
	if len(voices) > 0 {
		return voices[0], true
	}
	return Voice{}, false
}
