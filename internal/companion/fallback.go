package companion

import "github.com/ashureev/wellness-companion/internal/domain"

// NoModelMessage is returned when the service runs without a model client.
const NoModelMessage = "I'm here to support your mental wellness. Please try again."

var fallbackMessages = map[domain.Language]string{
	domain.English: "I understand you're reaching out for support. Let me help you with that. Could you please share a bit more about how you're feeling?",
	domain.Hindi:   "मैं समझता हूं कि आप सहायता के लिए संपर्क कर रहे हैं। मुझे आपकी मदद करने दें। क्या आप कृपया थोड़ा और बता सकते हैं कि आप कैसा महसूस कर रहे हैं?",
	domain.Marathi: "मी समजतो की तुम्हाला आधारासाठी संपर्क करत आहात. मला तुमची मदत करू द्या. कृपया तुम्हाला कसे वाटत आहे ते थोडे अधिक सांगू शकता?",
	domain.Spanish: "Entiendo que estás buscando apoyo. Permíteme ayudarte con eso. ¿Podrías compartir un poco más sobre cómo te sientes?",
	domain.French:  "Je comprends que vous cherchez du soutien. Permettez-moi de vous aider avec cela. Pourriez-vous s'il vous plaît partager un peu plus sur ce que vous ressentez ?",
	domain.German:  "Ich verstehe, dass Sie Unterstützung suchen. Lassen Sie mich Ihnen dabei helfen. Könnten Sie bitte etwas mehr darüber teilen, wie Sie sich fühlen?",
}

// Fallback returns the canned reply for lang, or the English one.
func Fallback(lang domain.Language) string {
	if msg, ok := fallbackMessages[lang]; ok {
		return msg
	}
	return fallbackMessages[domain.English]
}
