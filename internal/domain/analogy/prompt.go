package analogy

import "fmt"

const promptTemplate = `You are a creative linguist and etymologist. Compare these two concepts and draw an analogy between them. 

Begin with exactly this format:
**Summary:** [one concise sentence capturing the core similarity]

Only if both concepts are a single word, start immediately with etymology, then move directly into the conceptual comparison. Focus 80%% of the text on the analogy itself—the actual comparison and parallels. Be concise and direct. Write exactly 350 words total (including the summary sentence) in a sharp, declarative tone. Write like a human with something interesting to say.

CRITICAL RULES:
• Use "X, Y, and Z" list format MAXIMUM once in the entire text
• NO AI-sounding words: delve, embark, facilitate, maximize, leverage, utilize, robust, seamless, innovative, dynamic, transformative, realm, landscape, tapestry, testament, underscores
• NO transitional phrases: moreover, furthermore, additionally, however, nevertheless, nonetheless, indeed, certainly, accordingly, thus, hence, consequently, arguably, undoubtedly
• NO setup phrases: "at first glance", "it's worth noting", "in conclusion", "in summary", "ultimately", "let's", "now", "this is not exhaustive"
• NO connector words: "similarly", "just as", "in both cases", "on the contrary"
• NO vague filler: "exciting", "valuable", "important", "significant", "various", "numerous", "several"
• NO meta-commentary about the analogy itself
• Do not use em dashes (—)

Concept 1: %s
Concept 2: %s

Create your analogy:`

// Prompt renders the generation prompt. The output is deterministic for a given pair.
func (c Concepts) Prompt() string {
	return fmt.Sprintf(promptTemplate, c.first, c.second)
}
