package core

import "fmt"

// Instructions is the fixed role every engine session is bound to.
const Instructions = `You are a professional communication assistant. You rewrite messages so they land well with their intended audience while keeping every fact from the original intact.`

// BuildPrompt renders a rewrite request into the single prompt the engine
// consumes. It is pure and deterministic; no other component constructs
// request text. The raw input is embedded unmodified; if it is too large,
// the engine rejects it rather than this layer truncating it.
func BuildPrompt(input string, rc RequestContext) string {
	return fmt.Sprintf(`Rewrite the following message in a %s tone for a %s audience.

Preserve all key information from the original message. Match the %s style throughout. Keep the rewrite concise and professional.

Message:
%s`, rc.Style, rc.Audience, rc.Style, input)
}
