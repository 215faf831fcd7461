package conf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/chaqqon/chatgate/internal/biz/usecase"
)

// Vocabulary holds every word list and fixed phrase the router uses.
// It is data, not logic: localizing the bot means editing vocab.yaml.
type Vocabulary struct {
	Topic   TopicVocabulary `yaml:"topic"`
	Phrases Phrases         `yaml:"phrases"`
	Tips    []string        `yaml:"tips"`
	Banter  []string        `yaml:"banter_replies"`
}

// TopicVocabulary contains the classifier word lists
type TopicVocabulary struct {
	DomainTerms        []string `yaml:"domain_terms"`
	ConfusionMarkers   []string `yaml:"confusion_markers"`
	CodeRequestPhrases []string `yaml:"code_request_phrases"`
	TriggerKeywords    []string `yaml:"trigger_keywords"`
	HeatedKeywords     []string `yaml:"heated_keywords"`
	BanterKeywords     []string `yaml:"banter_keywords"`
	IdentityPhrases    []string `yaml:"identity_phrases"`
}

// Phrases contains fixed prompts and user-visible strings
type Phrases struct {
	SystemPrompt       string `yaml:"system_prompt"`
	SummarizePrompt    string `yaml:"summarize_prompt"`
	CodeRefusal        string `yaml:"code_refusal"`
	SelfIdentification string `yaml:"self_identification"`
	CodeReminder       string `yaml:"code_reminder"`
	EmptyReply         string `yaml:"empty_reply"`
	NoAnswer           string `yaml:"no_answer"`
	Apology            string `yaml:"apology"`
	Welcome            string `yaml:"welcome"`
	ResetDone          string `yaml:"reset_done"`
	AskUsage           string `yaml:"ask_usage"`
}

// LoadVocabulary loads the vocabulary from YAML, falling back to built-in defaults
func LoadVocabulary(configPath string) (*Vocabulary, error) {
	paths := []string{configPath}
	if configPath == "" {
		paths = []string{
			"configs/vocab.yaml",
			"/etc/chatgate/vocab.yaml",
		}
		if execPath, err := os.Executable(); err == nil {
			paths = append(paths, filepath.Join(filepath.Dir(execPath), "configs", "vocab.yaml"))
		}
	}

	var data []byte
	var loadedPath string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err == nil {
			data = b
			loadedPath = p
			break
		}
	}

	if data == nil {
		if configPath != "" {
			return nil, &ConfigError{Field: "VOCAB_CONFIG_PATH", Message: "cannot read " + configPath}
		}
		log.Info().Str("component", "config").Msg("No vocab.yaml found, using defaults")
		return DefaultVocabulary(), nil
	}

	log.Info().Str("component", "config").Str("path", loadedPath).Msg("Loading vocabulary")

	var v Vocabulary
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", loadedPath, err)
	}
	v.fillDefaults()
	return &v, nil
}

// fillDefaults fills in default values for empty fields
func (v *Vocabulary) fillDefaults() {
	d := DefaultVocabulary()

	fillList(&v.Topic.DomainTerms, d.Topic.DomainTerms)
	fillList(&v.Topic.ConfusionMarkers, d.Topic.ConfusionMarkers)
	fillList(&v.Topic.CodeRequestPhrases, d.Topic.CodeRequestPhrases)
	fillList(&v.Topic.TriggerKeywords, d.Topic.TriggerKeywords)
	fillList(&v.Topic.HeatedKeywords, d.Topic.HeatedKeywords)
	fillList(&v.Topic.BanterKeywords, d.Topic.BanterKeywords)
	fillList(&v.Topic.IdentityPhrases, d.Topic.IdentityPhrases)
	fillList(&v.Tips, d.Tips)
	fillList(&v.Banter, d.Banter)

	fillString(&v.Phrases.SystemPrompt, d.Phrases.SystemPrompt)
	fillString(&v.Phrases.SummarizePrompt, d.Phrases.SummarizePrompt)
	fillString(&v.Phrases.CodeRefusal, d.Phrases.CodeRefusal)
	fillString(&v.Phrases.SelfIdentification, d.Phrases.SelfIdentification)
	fillString(&v.Phrases.CodeReminder, d.Phrases.CodeReminder)
	fillString(&v.Phrases.EmptyReply, d.Phrases.EmptyReply)
	fillString(&v.Phrases.NoAnswer, d.Phrases.NoAnswer)
	fillString(&v.Phrases.Apology, d.Phrases.Apology)
	fillString(&v.Phrases.Welcome, d.Phrases.Welcome)
	fillString(&v.Phrases.ResetDone, d.Phrases.ResetDone)
	fillString(&v.Phrases.AskUsage, d.Phrases.AskUsage)
}

func fillList(dst *[]string, def []string) {
	if len(*dst) == 0 {
		*dst = append([]string(nil), def...)
	}
}

func fillString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

// DefaultVocabulary returns the built-in vocabulary of the English-study group bot
func DefaultVocabulary() *Vocabulary {
	return &Vocabulary{
		Topic: TopicVocabulary{
			DomainTerms: []string{
				"english", "ingliz", "ingliz tili", "grammar", "grammatika", "vocabulary",
				"tense", "present perfect", "past simple", "article", "preposition",
				"ielts", "toefl", "cefr", "band", "essay", "speaking", "listening",
				"reading", "writing", "pronunciation", "idiom", "phrasal verb", "so'z", "gap",
			},
			ConfusionMarkers: []string{
				"tushunmadim", "tushunarsiz", "qanday", "nima uchun", "nega",
				"don't understand", "dont understand", "confused", "not sure", "how come",
			},
			CodeRequestPhrases: []string{
				"write code", "write a script", "kod yoz", "kod yozib", "python", "javascript",
				"source code", "program yoz",
			},
			TriggerKeywords: []string{
				"help", "yordam", "explain", "tushuntir", "farqi", "difference", "misol", "example",
			},
			HeatedKeywords: []string{
				"noto'g'ri", "wrong", "nonsense", "bema'ni", "!!!", "??",
			},
			BanterKeywords: []string{
				"haha", "hahaha", "lol", "xaxa", "😂", "🤣",
			},
			IdentityPhrases: []string{
				"who are you", "what are you", "are you a bot", "are you ai",
				"sen kimsan", "siz kimsiz", "kimsan", "botmisan",
			},
		},
		Phrases: Phrases{
			SystemPrompt: "You are Chaqqon AI, a friendly English tutor in an Uzbek study group. " +
				"Answer in at most three short sentences, in the language of the question. " +
				"Never write program code, scripts or markup, even if asked; explain in words instead. " +
				"Do not mention that you are an AI unless someone asks who you are.",
			SummarizePrompt: "Summarize our conversation so far in at most three sentences, " +
				"keeping the key grammar and vocabulary points.",
			CodeRefusal:        "(Kod yubora olmayman, lekin so'z bilan tushuntirib beraman.)",
			SelfIdentification: "I am an AI language model.",
			CodeReminder:       "(Javobni kodsiz, faqat so'z bilan tushuntiring.)",
			EmptyReply:         "(bo'sh javob)",
			NoAnswer:           "Uzr, javob topilmadi.",
			Apology:            "⚠️ API bilan bog'lanishda muammo yuz berdi. Bir ozdan so'ng qayta urinib ko'ring.",
			Welcome: "🤖 Chaqqon AI ga xush kelibsiz, {{name}}!\n" +
				"⚡️ Savolingizni yozing — chaqqon va aniq javob beraman.\n\n" +
				"🧹 Kontekstni tozalash: /reset\n" +
				"💡 Maslahat: /tip\n" +
				"📝 Xulosa: /xulosa\n" +
				"❓ Savol: /ask <matn>",
			ResetDone: "♻️ Kontekst tozalandi. Yangi suhbatni boshladik.",
			AskUsage:  "Savolni /ask dan keyin yozing, masalan: /ask present perfect qachon ishlatiladi?",
		},
		Tips: []string{
			"Har kuni 10 ta yangi so'z yozib, ular bilan gap tuzing.",
			"Present perfect natijaga, past simple esa aniq vaqtga urg'u beradi.",
			"Speaking uchun o'z ovozingizni yozib oling va qayta tinglang.",
			"IELTS writing'da har bir paragraf bitta asosiy fikrga bag'ishlansin.",
			"Phrasal verb'larni kontekst bilan yodlang, alohida ro'yxat qilib emas.",
		},
		Banter: []string{
			"😄 Kulgi — eng yaxshi mashq!",
			"Haha, keyingi savolni kutaman 😉",
			"🤣 Good one! Endi inglizchada ayting-chi?",
		},
	}
}

// ToTopicConfig converts to topic filter configuration
func (v *Vocabulary) ToTopicConfig() usecase.TopicConfig {
	return usecase.TopicConfig{
		DomainTerms:        v.Topic.DomainTerms,
		ConfusionMarkers:   v.Topic.ConfusionMarkers,
		CodeRequestPhrases: v.Topic.CodeRequestPhrases,
		TriggerKeywords:    v.Topic.TriggerKeywords,
		BanterKeywords:     v.Topic.BanterKeywords,
		IdentityPhrases:    v.Topic.IdentityPhrases,
	}
}

// ToSanitizerConfig converts to reply sanitizer configuration
func (v *Vocabulary) ToSanitizerConfig() usecase.SanitizerConfig {
	return usecase.SanitizerConfig{
		CodeRefusal:        v.Phrases.CodeRefusal,
		SelfIdentification: v.Phrases.SelfIdentification,
		EmptyReply:         v.Phrases.EmptyReply,
		MaxSentences:       usecase.DefaultMaxSentences,
	}
}
