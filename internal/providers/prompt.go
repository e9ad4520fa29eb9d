package providers

import (
	"fmt"
	"strings"

	"github.com/careercraft/careercraft_service/internal/model"
)

// maxContextChars bounds how much extracted document text goes into a
// prompt. Long documents are chunked by the caller instead.
const maxContextChars = 24000

// Canned fallbacks returned when retries against the model are exhausted on
// rate-limit class failures. The flow degrades, it does not error.
const (
	FallbackChatAnswer = "I couldn't reach the study assistant just now. " +
		"Please try your question again in a moment; your document and progress are safe."
	FallbackSummary = "A summary could not be generated right now. " +
		"You can retry from the document page in a few minutes."
	FallbackInterviewTurn = "Let's pause here for a moment. " +
		"Take your time with the previous question and submit your answer again shortly."
)

func clipContext(text string) string {
	if len(text) > maxContextChars {
		return text[:maxContextChars]
	}
	return text
}

// BuildChatPrompt asks for a grounded answer to a question about the
// uploaded document, with optional prior turns for continuity.
func BuildChatPrompt(docText, question string, history []model.ChatMessage) string {
	var b strings.Builder
	b.WriteString("You are a study assistant. Answer the question using ONLY the document text below. ")
	b.WriteString("If the document does not contain the answer, say so briefly.\n\nDOCUMENT:\n")
	b.WriteString(clipContext(docText))
	if len(history) > 0 {
		b.WriteString("\n\nPREVIOUS TURNS:\n")
		for _, m := range history {
			b.WriteString(m.Role)
			b.WriteString(": ")
			b.WriteString(m.Content)
			b.WriteByte('\n')
		}
	}
	b.WriteString("\nQUESTION:\n")
	b.WriteString(question)
	b.WriteByte('\n')
	return b.String()
}

func BuildSummaryPrompt(docText string) string {
	var b strings.Builder
	b.WriteString("Summarize the document below for a student. ")
	b.WriteString("Use short paragraphs and bullet points for key facts. No preamble.\n\nDOCUMENT:\n")
	b.WriteString(clipContext(docText))
	b.WriteByte('\n')
	return b.String()
}

// instruction to make all LLMs reply in plain JSON, no code fence.
const flashcardInstruction = `Return ONLY a JSON array of objects with keys "front" and "back".
No Markdown, no code fences, no extra text.`

func BuildFlashcardPrompt(docText string, count int) string {
	var b strings.Builder
	b.WriteString(flashcardInstruction)
	fmt.Fprintf(&b, "\n\nCreate %d flashcards covering the most testable facts in the document below.\n\nDOCUMENT:\n", count)
	b.WriteString(clipContext(docText))
	b.WriteByte('\n')
	return b.String()
}

const quizInstruction = `Return ONLY a JSON array of objects with keys
"question" (string), "options" (array of 4 strings), "answer" (index 0-3 of the correct option),
and "why" (one-sentence explanation). No Markdown, no code fences, no extra text.`

func BuildQuizPrompt(docText string, count int) string {
	var b strings.Builder
	b.WriteString(quizInstruction)
	fmt.Fprintf(&b, "\n\nWrite %d multiple-choice questions from the document below.\n\nDOCUMENT:\n", count)
	b.WriteString(clipContext(docText))
	b.WriteByte('\n')
	return b.String()
}

// BuildInterviewOpener starts a mock interview for a target role.
func BuildInterviewOpener(role string) string {
	return fmt.Sprintf("You are interviewing a candidate for the role of %s. "+
		"Ask your first interview question. Ask exactly one question, no preamble.", role)
}

// BuildInterviewTurn continues the interview given the transcript so far and
// the candidate's latest answer.
func BuildInterviewTurn(role string, transcript []model.InterviewTurn, answer string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are interviewing a candidate for the role of %s.\n\nTRANSCRIPT:\n", role)
	for _, t := range transcript {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("candidate: ")
	b.WriteString(answer)
	b.WriteString("\n\nAsk the next interview question. Exactly one question, no preamble.\n")
	return b.String()
}

func BuildInterviewFeedback(role string, transcript []model.InterviewTurn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The mock interview for the role of %s is over.\n\nTRANSCRIPT:\n", role)
	for _, t := range transcript {
		b.WriteString(t.Role)
		b.WriteString(": ")
		b.WriteString(t.Content)
		b.WriteByte('\n')
	}
	b.WriteString("\nGive the candidate concise feedback: strengths, weaknesses, and two concrete improvements.\n")
	return b.String()
}
