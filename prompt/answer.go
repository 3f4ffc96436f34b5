package prompt

import (
	"fmt"
	"strings"
)

// NoContextAnswer is returned to the user when retrieval finds nothing.
const NoContextAnswer = "I couldn't find anything in your notes or videos about that."

const answerTemplate = `Answer the question using only the sources below. Each source starts with its type and title.
If the sources do not contain the answer, say so. Mention the titles you relied on.

Sources:
%s
Question: %s
Answer:`

// Answer builds the completion prompt for question grounded in context.
func Answer(question, context string) string {
	return fmt.Sprintf(answerTemplate, strings.TrimRight(context, "\n")+"\n", strings.TrimSpace(question))
}
