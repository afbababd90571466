package rag

import "strings"

const contextDelimiter = "\n\n---\n\n"

const emptyContextPrompt = `You are an AI assistant for a documentation knowledge base.
You help users find answers grounded in the imported documentation.

Unfortunately, I couldn't find specific information for this query in the knowledge base.
Please try asking about:
- Topics named in the documentation's section headers
- Setup, configuration, and usage guides that were imported
- A document by its title from the docs navigation

Answer in a helpful way and suggest what information is available.`

const groundedPromptHeader = `You are an AI assistant for a documentation knowledge base.
Your role is to answer the user's question using the provided context.

IMPORTANT RULES:
1. ONLY use information from the CONTEXT below to answer questions
2. If the answer is in the context, provide it clearly with details
3. Mention specific documents, sections, and facts from the context
4. Use markdown formatting for better readability
5. Be specific and cite the information you used

CONTEXT FROM KNOWLEDGE BASE:
`

const groundedPromptFooter = `

---

Now answer the user's question based ONLY on the above context. Be specific and cite the information.`

// ComposePrompt builds the grounding system prompt from retrieved
// context. Pure and deterministic: identical input always yields
// identical text.
func ComposePrompt(contexts []Context) string {
	if len(contexts) == 0 {
		return emptyContextPrompt
	}

	blocks := make([]string, 0, len(contexts))
	for _, c := range contexts {
		blocks = append(blocks, "### "+c.Title+" ("+c.Section+")\n"+c.Content)
	}

	return groundedPromptHeader + strings.Join(blocks, contextDelimiter) + groundedPromptFooter
}
