// Package messages holds the canned reply texts per supported language. The
// job's language tag selects the catalog entry; unknown tags fall back to
// English.
package messages

import "strings"

// Texts are the fixed outbound strings used by the interview engine.
type Texts struct {
	// Welcome is sent to candidates with no open session who have not yet
	// signaled readiness.
	Welcome string
	// NoQuestions is sent when a job template has an empty question list.
	NoQuestions string
	// Acknowledgement prefixes the next question after a recorded answer.
	Acknowledgement string
	// Closing is sent once, when the interview completes.
	Closing string
}

const DefaultLanguage = "en"

var catalog = map[string]Texts{
	"en": {
		Welcome:         "Hi! I'm the interview assistant. When you are ready to begin, just reply \"ready\".",
		NoQuestions:     "There are no interview questions configured for this position right now. We'll be in touch.",
		Acknowledgement: "Thanks, noted.",
		Closing:         "That was the last question. Thank you for your time. The team will review your answers and get back to you soon.",
	},
	"es": {
		Welcome:         "¡Hola! Soy el asistente de entrevistas. Cuando quieras comenzar, responde \"listo\".",
		NoQuestions:     "Por ahora no hay preguntas configuradas para esta posición. Nos pondremos en contacto contigo.",
		Acknowledgement: "Gracias, anotado.",
		Closing:         "Esa fue la última pregunta. Gracias por tu tiempo. El equipo revisará tus respuestas y te contactará pronto.",
	},
}

// For returns the texts for a language tag, defaulting to English.
func For(lang string) Texts {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if idx := strings.IndexByte(lang, '-'); idx > 0 {
		lang = lang[:idx]
	}
	if texts, ok := catalog[lang]; ok {
		return texts
	}
	return catalog[DefaultLanguage]
}
