package comments

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/njyeung/sprunki/backend"
)

const (
	MaxAuthorLen      = 50
	MaxEmailLen       = 100
	MinCommentBodyLen = 10
	MinReplyBodyLen   = 5
	MaxBodyLen        = 2000
	MinRating         = 1
	MaxRating         = 5

	// AnonymousAuthor is used when a reply is posted without a name
	AnonymousAuthor = "Anonymous"
)

var (
	// letters, digits, underscore, CJK ideographs, hiragana, katakana and whitespace
	authorPattern = regexp.MustCompile(`^[a-zA-Z0-9_\x{4e00}-\x{9fa5}\x{3040}-\x{309f}\x{30a0}-\x{30ff}\s]+$`)
	emailPattern  = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// ValidationError lists every local problem with a submission.
// Submissions that fail validation are never sent.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "Data validation failed: " + strings.Join(e.Errors, ", ")
}

// ValidateComment checks a top-level comment before it is sent
func ValidateComment(c backend.NewComment) error {
	var errs []string

	errs = append(errs, authorErrors(c.Author, false)...)

	email := strings.TrimSpace(c.Email)
	switch {
	case email == "":
		errs = append(errs, "Email is required")
	case utf8.RuneCountInString(email) > MaxEmailLen || !emailPattern.MatchString(email):
		errs = append(errs, "Invalid email format")
	}

	errs = append(errs, bodyErrors(c.Body, MinCommentBodyLen, "Comment")...)

	if c.Rating < MinRating || c.Rating > MaxRating {
		errs = append(errs, "Rating must be between 1 and 5")
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// ValidateReply checks a reply before it is sent. An empty author is allowed
// and becomes AnonymousAuthor.
func ValidateReply(r backend.NewReply) error {
	var errs []string
	errs = append(errs, authorErrors(r.Author, true)...)
	errs = append(errs, bodyErrors(r.Body, MinReplyBodyLen, "Reply")...)
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func authorErrors(author string, allowEmpty bool) []string {
	author = strings.TrimSpace(author)
	if author == "" {
		if allowEmpty {
			return nil
		}
		return []string{"Username cannot be empty"}
	}
	if utf8.RuneCountInString(author) > MaxAuthorLen {
		return []string{"Username must be less than 50 characters"}
	}
	if !authorPattern.MatchString(author) {
		return []string{"Username can only contain letters, numbers, underscores, Chinese characters, Japanese characters and spaces"}
	}
	return nil
}

func bodyErrors(body string, minLen int, noun string) []string {
	body = strings.TrimSpace(body)
	n := utf8.RuneCountInString(body)
	switch {
	case n == 0:
		return []string{"Please enter a " + strings.ToLower(noun)}
	case n < minLen:
		return []string{noun + " must be at least " + strconv.Itoa(minLen) + " characters long"}
	case n > MaxBodyLen:
		return []string{noun + " must be less than 2000 characters"}
	}
	return nil
}
