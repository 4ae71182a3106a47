package prompt

import (
	"regexp"
	"strings"

	"github.com/roundtable-dev/roundtable/internal/conversation"
	"github.com/roundtable-dev/roundtable/internal/errors"
)

// Sentinel errors for marker extraction.
var (
	// ErrNoVoteTag indicates a ballot response carried no <vote> tag at all.
	ErrNoVoteTag = errors.New("no <vote> tag found in response")

	// ErrMalformedVote indicates a <vote> tag whose body is not a valid vote value.
	ErrMalformedVote = errors.New("vote tag does not contain approve, reject, or abstain")

	// ErrEmptyTagBody indicates a marker tag that was present but empty.
	ErrEmptyTagBody = errors.New("marker tag has empty body")
)

var (
	proposalTagRegex = regexp.MustCompile(`(?s)<proposal>\s*(.*?)\s*</proposal>`)
	questionTagRegex = regexp.MustCompile(`(?s)<question_for_user>\s*(.*?)\s*</question_for_user>`)
	voteTagRegex     = regexp.MustCompile(`(?s)<vote>\s*(.*?)\s*</vote>`)
)

// Classification is the result of scanning one generated utterance for
// marker tags. Category tells the caller how to record the message; the
// typed fields carry the extracted tag bodies.
type Classification struct {
	Category conversation.Category

	// Body is the utterance with all recognized marker tags stripped,
	// suitable for appending to the transcript.
	Body string

	// Proposal is the tag body when Category is CategoryProposal.
	Proposal string

	// Question is the tag body when Category is CategoryQuestionToHuman.
	Question string
}

// Classify scans an utterance for marker tags and decides how to record it.
// A proposal tag wins over a question tag when both appear: the participant
// committed to a concrete direction, and the question can be re-asked next
// round. Unknown or absent tags classify as plain discussion.
func Classify(text string) Classification {
	body := stripTags(text)

	if proposal := firstTagBody(proposalTagRegex, text); proposal != "" {
		// A tag-only utterance keeps the tag body as the transcript text;
		// the raw tags never reach the stored content.
		if body == "" {
			body = proposal
		}
		return Classification{
			Category: conversation.CategoryProposal,
			Body:     body,
			Proposal: proposal,
		}
	}

	if question := firstTagBody(questionTagRegex, text); question != "" {
		if body == "" {
			body = question
		}
		return Classification{
			Category: conversation.CategoryQuestionToHuman,
			Body:     body,
			Question: question,
		}
	}

	if body == "" {
		body = strings.TrimSpace(text)
	}
	return Classification{
		Category: conversation.CategoryDiscussion,
		Body:     body,
	}
}

// Ballot is a parsed voting response.
type Ballot struct {
	Value conversation.VoteValue

	// Rationale is the text surrounding the vote tag, trimmed.
	Rationale string
}

// ParseBallot extracts the vote from a voting-phase utterance. The response
// must carry exactly one valid <vote> tag body; surrounding prose becomes
// the rationale. A missing tag returns ErrNoVoteTag and an unrecognized
// body returns ErrMalformedVote so the caller can re-request the ballot.
func ParseBallot(text string) (Ballot, error) {
	matches := voteTagRegex.FindStringSubmatch(text)
	if matches == nil {
		return Ballot{}, ErrNoVoteTag
	}

	raw := strings.ToLower(strings.TrimSpace(matches[1]))
	if raw == "" {
		return Ballot{}, errors.Wrapf(ErrEmptyTagBody, "vote")
	}

	var value conversation.VoteValue
	switch raw {
	case string(conversation.VoteApprove):
		value = conversation.VoteApprove
	case string(conversation.VoteReject):
		value = conversation.VoteReject
	case string(conversation.VoteAbstain):
		value = conversation.VoteAbstain
	default:
		return Ballot{}, errors.Wrapf(ErrMalformedVote, "got %q", raw)
	}

	rationale := strings.TrimSpace(voteTagRegex.ReplaceAllString(text, ""))
	return Ballot{Value: value, Rationale: rationale}, nil
}

// firstTagBody returns the trimmed body of the first tag match, or "".
func firstTagBody(re *regexp.Regexp, text string) string {
	matches := re.FindStringSubmatch(text)
	if matches == nil {
		return ""
	}
	return strings.TrimSpace(matches[1])
}

// stripTags removes every recognized marker tag block from the text.
func stripTags(text string) string {
	out := proposalTagRegex.ReplaceAllString(text, "")
	out = questionTagRegex.ReplaceAllString(out, "")
	out = voteTagRegex.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
