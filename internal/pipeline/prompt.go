package pipeline

const answerSystemPrompt = `You are a question answering system grounded in documents.
Use only the information in the CONTEXT below.

Rules:
1) If the CONTEXT has information related to the question, summarize it to answer.
2) Only when the CONTEXT has no basis at all, answer exactly: "%s"
3) End each key sentence with the DOC number it relies on, like (DOC 1).
4) No exaggeration, guessing or invention. Prefer the documents' wording but explain it naturally.
5) Answer in the language of the question.`

func answerPrompt(question, contextText string) string {
	return "[CONTEXT]\n" + contextText + "\n\n[QUESTION]\n" + question + "\n\n[ANSWER]"
}
