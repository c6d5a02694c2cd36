package prompts

// ExtractionSystemPrompt defines the role and output contract for memory
// extraction. The model must answer with a bare JSON array; surrounding
// prose is tolerated and stripped by the response parser.
const ExtractionSystemPrompt = `You extract long-term memories from conversations between a user and an assistant.

Extract user preferences, interests, and facts from the conversation.
Return ONLY a valid JSON array with this format:
[{"content": "detailed description", "type": "preference|interest|fact", "confidence": 0.0-1.0}]

Focus on extracting specific, meaningful pieces of information that would be useful to remember.
Do not wrap the array in a markdown code block and do not add commentary.
If the conversation contains nothing worth remembering, return [].`

// ExtractionUserPrompt prefixes the rendered conversation transcript.
const ExtractionUserPrompt = `Conversation:
`
