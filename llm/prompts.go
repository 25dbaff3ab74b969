package llm

import (
	"fmt"
	"strings"
)

// Persona carries the demographic and psychometric profile interpolated
// into the roleplay system prompt.
type Persona struct {
	Name        string
	Age         int
	Gender      string
	Nationality string
	Language    string
	Education   string
	Leaning     string
	Interests   []string

	// Big Five trait scores in [0, 1].
	Openness          float64
	Conscientiousness float64
	Extraversion      float64
	Agreeableness     float64
	Neuroticism       float64
}

func traitWord(score float64) string {
	switch {
	case score < 0.33:
		return "low"
	case score < 0.66:
		return "moderate"
	default:
		return "high"
	}
}

// RoleplayPrompt renders the system prompt that keeps the model in
// character for every action the agent takes.
func RoleplayPrompt(p Persona) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %d year old %s from %s. ", p.Name, p.Age, p.Gender, p.Nationality)
	fmt.Fprintf(&b, "You write in %s. Your education level is %s and your political leaning is %s. ",
		p.Language, p.Education, p.Leaning)
	fmt.Fprintf(&b, "Your personality shows %s openness, %s conscientiousness, %s extraversion, %s agreeableness and %s neuroticism. ",
		traitWord(p.Openness), traitWord(p.Conscientiousness), traitWord(p.Extraversion),
		traitWord(p.Agreeableness), traitWord(p.Neuroticism))
	if len(p.Interests) > 0 {
		fmt.Fprintf(&b, "You are interested in %s. ", strings.Join(p.Interests, ", "))
	}
	b.WriteString("Act as a social media user. Stay in character and never mention that you are an AI.")
	return b.String()
}

// PostPrompt asks for an original status update.
func PostPrompt(interests []string) string {
	topic := "whatever is on your mind"
	if len(interests) > 0 {
		topic = "one of your interests (" + strings.Join(interests, ", ") + ")"
	}
	return fmt.Sprintf("Write a short social media post about %s. "+
		"Use at most 280 characters. You may include hashtags and mention other users with @username. "+
		"Reply with the post text only.", topic)
}

// CommentPrompt asks for a reply to a thread, given the thread tail.
func CommentPrompt(thread []string) string {
	var b strings.Builder
	b.WriteString("You are reading this conversation:\n")
	for _, msg := range thread {
		b.WriteString("- ")
		b.WriteString(msg)
		b.WriteString("\n")
	}
	b.WriteString("Write a short comment continuing the conversation, at most 280 characters. " +
		"Reply with the comment text only.")
	return b.String()
}

// SharePrompt asks for a short remark to attach when resharing a news article.
func SharePrompt(title, summary string) string {
	return fmt.Sprintf("You are sharing a news article titled %q.\nSummary: %s\n"+
		"Write one short sentence, at most 140 characters, saying why you are sharing it. "+
		"Reply with the sentence only.", title, summary)
}

// ReactionPrompt asks whether the agent likes or dislikes a post.
func ReactionPrompt(post string) string {
	return fmt.Sprintf("You just read this post:\n%s\n"+
		"Do you like or dislike it? Answer with exactly one word: LIKE or DISLIKE.", post)
}

// VotePrompt asks for a political preference expression on a post.
func VotePrompt(post string, options []string) string {
	return fmt.Sprintf("You just read this post:\n%s\n"+
		"Which option do you prefer? Answer with exactly one of: %s.",
		post, strings.Join(options, ", "))
}

// EmotionPrompt asks the model to annotate text with emotions from the
// configured vocabulary.
func EmotionPrompt(text string, vocabulary []string) string {
	return fmt.Sprintf("Which emotions does the author of this text express?\n%s\n"+
		"Answer with a comma separated list drawn only from: %s.",
		text, strings.Join(vocabulary, ", "))
}

// ParseReaction maps a completion onto "like" or "dislike". Unrecognized
// answers default to like, matching the lenient handling users get.
func ParseReaction(reply string) string {
	if strings.Contains(strings.ToLower(reply), "dislike") {
		return "dislike"
	}
	return "like"
}

// ParseChoice returns the first option found in the completion, or the
// empty string when none matches.
func ParseChoice(reply string, options []string) string {
	lower := strings.ToLower(reply)
	for _, opt := range options {
		if strings.Contains(lower, strings.ToLower(opt)) {
			return opt
		}
	}
	return ""
}

// ParseEmotions filters a comma separated completion down to the known
// vocabulary, preserving vocabulary order and dropping duplicates.
func ParseEmotions(reply string, vocabulary []string) []string {
	lower := strings.ToLower(reply)
	var out []string
	for _, emotion := range vocabulary {
		if strings.Contains(lower, strings.ToLower(emotion)) {
			out = append(out, emotion)
		}
	}
	return out
}

// CleanText strips quote wrapping and boilerplate prefixes models tend to
// add around generated posts.
func CleanText(reply string) string {
	s := strings.TrimSpace(reply)
	for _, prefix := range []string{"Post:", "Comment:", "Tweet:"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimSpace(strings.TrimPrefix(s, prefix))
		}
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
