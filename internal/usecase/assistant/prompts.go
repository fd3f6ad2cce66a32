package assistant

import "fmt"

const expandPrompt = "You are a search optimization assistant. " +
	"Refine and expand the following search query to improve retrieval of academic papers. " +
	"Return ONLY the optimized query string, no explanations. Original Query: %s"

const analyzePrompt = `You are an expert academic researcher. Please provide a detailed analysis of the following research paper.

Title: %s
Abstract: %s

Please structure your response with the following sections using Markdown:
1. **Core Contribution**: What is the main novelty?
2. **Key Methodology**: How did they do it?
3. **Implications**: Why does this matter?
4. **Potential Limitations**: What might be missing?
5. **Future Directions**: Where can this go next?

Keep the tone professional and academic.`

const chatSystemPrompt = `You are a helpful research assistant discussing a specific paper.
Context (Paper Abstract): %s

Answer the user's questions based on this context and your general knowledge.
If the answer isn't in the abstract, use your general knowledge but mention that it's not explicitly in the provided text.`

// MissingAbstract replaces an empty abstract in analysis prompts.
const MissingAbstract = "Abstract not available."

func buildExpandPrompt(query string) string { return fmt.Sprintf(expandPrompt, query) }

func buildAnalyzePrompt(title, abstract string) string {
	return fmt.Sprintf(analyzePrompt, title, abstract)
}

func buildChatSystemPrompt(paperContext string) string {
	return fmt.Sprintf(chatSystemPrompt, paperContext)
}
