package tts

// Voice 是可供用户选择的音色。
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Language 是支持的语言，ID 为两位语言代码。
type Language struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Voices 是 ElevenLabs 预置音色目录，第一个为默认值。
var Voices = []Voice{
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
}

// Languages 是固定的语言列表，第一个为默认值。
var Languages = []Language{
	{ID: "en", Name: "English"},
	{ID: "es", Name: "Spanish"},
	{ID: "fr", Name: "French"},
	{ID: "de", Name: "German"},
	{ID: "it", Name: "Italian"},
	{ID: "pl", Name: "Polish"},
}

// LookupVoice 按 ID 查找预置音色。
func LookupVoice(id string) (Voice, bool) {
	for _, v := range Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// LookupLanguage 按语言代码查找。
func LookupLanguage(id string) (Language, bool) {
	for _, l := range Languages {
		if l.ID == id {
			return l, true
		}
	}
	return Language{}, false
}
