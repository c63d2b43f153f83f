package usecase

import "fmt"

// User-visible answers that do not come from an extractor.
const (
	AnswerUnknownMember = "I couldn't identify which member the question is about."
	AnswerNoRecords     = "I couldn't retrieve any member messages."
	AnswerUnavailable   = "Sorry, the service is temporarily unable to retrieve member data. Please try again later."
)

func memberNotFoundAnswer(queried string) string {
	if queried == "" {
		return AnswerUnknownMember
	}
	return fmt.Sprintf("I couldn't find any member named %s.", queried)
}

// suggestedAnswer discloses that the answer is about a different member
// than the one asked for.
func suggestedAnswer(queried, suggested, body string) string {
	return fmt.Sprintf(
		"I couldn't find any member named %s, but I did find %s. Here is what their messages say:\n\n%s",
		queried, suggested, body,
	)
}
