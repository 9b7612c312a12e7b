package prompt

import (
	"fmt"

	"github.com/ashureev/wellness-companion/internal/domain"
)

// Table holds the localized instruction text used to build prompts.
type Table struct {
	// Persona is the base instruction per language.
	Persona map[domain.Language]string `yaml:"persona"`
	// Intents is the intent-specific instruction per intent and language.
	Intents map[domain.Intent]map[domain.Language]string `yaml:"intents"`
}

// Validate checks that the table can serve every declared intent. English is
// the fallback for every lookup, so English text is mandatory everywhere.
func (t Table) Validate() error {
	if t.Persona[domain.English] == "" {
		return fmt.Errorf("%w: persona has no English text", ErrMissingInstruction)
	}
	for _, in := range domain.Intents() {
		variants, ok := t.Intents[in]
		if !ok {
			return fmt.Errorf("%w: intent %q has no instructions", ErrMissingInstruction, in)
		}
		if variants[domain.English] == "" {
			return fmt.Errorf("%w: intent %q has no English instruction", ErrMissingInstruction, in)
		}
	}
	return nil
}

func (t Table) persona(lang domain.Language) string {
	if text, ok := t.Persona[lang]; ok && text != "" {
		return text
	}
	return t.Persona[domain.English]
}

func (t Table) intent(in domain.Intent, lang domain.Language) (string, error) {
	variants, ok := t.Intents[in]
	if !ok || variants[domain.English] == "" {
		return "", fmt.Errorf("%w: intent %q", ErrMissingInstruction, in)
	}
	if text, ok := variants[lang]; ok && text != "" {
		return text, nil
	}
	return variants[domain.English], nil
}

// DefaultTable returns the built-in instruction text for all supported languages.
func DefaultTable() Table {
	return Table{
		Persona: map[domain.Language]string{
			domain.English: "You are a compassionate mental wellness assistant. Provide warm, empathetic, and practical support.",
			domain.Hindi:   "आप एक दयालु मानसिक स्वास्थ्य सहायक हैं। गर्मजोशी, सहानुभूतिपूर्ण और व्यावहारिक सहायता प्रदान करें।",
			domain.Marathi: "तुम्ही एक कनवाळू मानसिक आरोग्य सहाय्यक आहात. उबदार, सहानुभूतिपूर्ण आणि व्यावहारिक आधार द्या.",
			domain.Spanish: "Eres un asistente de bienestar mental compasivo. Proporciona apoyo cálido, empático y práctico.",
			domain.French:  "Vous êtes un assistant de bien-être mental compatissant. Fournissez un soutien chaleureux, empathique et pratique.",
			domain.German:  "Sie sind ein mitfühlender Assistent für psychisches Wohlbefinden. Bieten Sie warme, einfühlsame und praktische Unterstützung.",
		},
		Intents: map[domain.Intent]map[domain.Language]string{
			domain.IntentMoodAnalysis: {
				domain.English: "Analyze the user's mood and provide supportive, practical mental health advice. Be empathetic and understanding.",
				domain.Hindi:   "उपयोगकर्ता के मूड का विश्लेषण करें और सहायक, व्यावहारिक मानसिक स्वास्थ्य सलाह दें। सहानुभूतिपूर्ण और समझदार बनें।",
				domain.Marathi: "वापरकर्त्याच्या मूडचे विश्लेषण करा आणि सहाय्यक, व्यावहारिक मानसिक आरोग्य सल्ला द्या. सहानुभूतिपूर्ण आणि समजूतदार व्हा.",
				domain.Spanish: "Analiza el estado de ánimo del usuario y proporciona consejos de salud mental prácticos y de apoyo. Sé empático y comprensivo.",
				domain.French:  "Analysez l'humeur de l'utilisateur et fournissez des conseils de santé mentale pratiques et bienveillants. Soyez empathique et compréhensif.",
				domain.German:  "Analysieren Sie die Stimmung des Benutzers und geben Sie praktische Ratschläge zur psychischen Gesundheit. Seien Sie einfühlsam und verständnisvoll.",
			},
			domain.IntentMindfulness: {
				domain.English: "Provide a practical mindfulness or meditation exercise. Make it easy to follow and beneficial for mental wellbeing.",
				domain.Hindi:   "एक व्यावहारिक माइंडफुलनेस या ध्यान व्यायाम प्रदान करें। इसे आसान और मानसिक स्वास्थ्य के लिए फायदेमंद बनाएं।",
				domain.Marathi: "एक व्यावहारिक माइंडफुलनेस किंवा ध्यान व्यायाम द्या. तो अनुसरण करण्यास सोपा आणि मानसिक आरोग्यासाठी फायदेशीर बनवा.",
				domain.Spanish: "Proporciona un ejercicio práctico de mindfulness o meditación. Hazlo fácil de seguir y beneficioso para el bienestar mental.",
				domain.French:  "Proposez un exercice pratique de pleine conscience ou de méditation. Rendez-le facile à suivre et bénéfique pour le bien-être mental.",
				domain.German:  "Bieten Sie eine praktische Achtsamkeits- oder Meditationsübung an. Machen Sie sie leicht nachvollziehbar und förderlich für das psychische Wohlbefinden.",
			},
			domain.IntentMotivation: {
				domain.English: "Provide motivational encouragement that inspires hope and positivity. Be uplifting and supportive.",
				domain.Hindi:   "प्रेरक प्रोत्साहन प्रदान करें जो आशा और सकारात्मकता को प्रेरित करे। उत्साहवर्धक और सहायक बनें।",
				domain.Marathi: "आशा आणि सकारात्मकता जागवणारे प्रेरणादायी प्रोत्साहन द्या. उत्साहवर्धक आणि सहाय्यक व्हा.",
				domain.Spanish: "Proporciona un estímulo motivador que inspire esperanza y positividad. Sé edificante y solidario.",
				domain.French:  "Apportez un encouragement motivant qui inspire l'espoir et la positivité. Soyez stimulant et bienveillant.",
				domain.German:  "Bieten Sie motivierende Ermutigung, die Hoffnung und Positivität weckt. Seien Sie aufbauend und unterstützend.",
			},
			domain.IntentJournal: {
				domain.English: "Provide a thoughtful journaling prompt that encourages self-reflection and personal growth.",
				domain.Hindi:   "एक विचारशील जर्नलिंग प्रॉम्प्ट प्रदान करें जो आत्म-चिंतन और व्यक्तिगत विकास को प्रोत्साहित करे।",
				domain.Marathi: "स्व-चिंतन आणि वैयक्तिक वाढीस प्रोत्साहन देणारा एक विचारपूर्वक जर्नलिंग प्रॉम्प्ट द्या.",
				domain.Spanish: "Proporciona una consigna de diario reflexiva que fomente la autorreflexión y el crecimiento personal.",
				domain.French:  "Proposez une invitation à l'écriture réfléchie qui encourage l'introspection et la croissance personnelle.",
				domain.German:  "Geben Sie einen nachdenklichen Journaling-Impuls, der Selbstreflexion und persönliches Wachstum fördert.",
			},
			domain.IntentGeneral: {
				domain.English: "Provide helpful mental wellness support and guidance.",
				domain.Hindi:   "मददगार मानसिक स्वास्थ्य सहायता और मार्गदर्शन प्रदान करें।",
				domain.Marathi: "उपयुक्त मानसिक आरोग्य आधार आणि मार्गदर्शन द्या.",
				domain.Spanish: "Proporciona ayuda y orientación útiles para el bienestar mental.",
				domain.French:  "Apportez un soutien et des conseils utiles pour le bien-être mental.",
				domain.German:  "Bieten Sie hilfreiche Unterstützung und Anleitung für das psychische Wohlbefinden.",
			},
		},
	}
}
