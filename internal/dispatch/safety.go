package dispatch

import (
	"regexp"
	"strings"

	"golang-notify-dispatch/internal/domain"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// SafetyCheck is the pre-send acceptance gate. It is a pure function of the
// notification, runs exactly once per dispatch, and is all-or-nothing: any
// item failing its rule rejects the whole notification.
func SafetyCheck(n *domain.Notification) bool {
	if len(n.Items) == 0 {
		return false
	}

	switch n.Channel {
	case domain.ChannelSMS:
		for _, item := range n.Items {
			if !validPhone(item.Recipient) {
				return false
			}
			if n.MessageType == domain.TypeOTP && item.OTP == "" {
				return false
			}
		}
		return true

	case domain.ChannelEmail:
		if !validEmail(n.FromEmail) {
			return false
		}
		if n.Subject == "" {
			return false
		}
		for _, item := range n.Items {
			if !validEmail(item.Recipient) {
				return false
			}
		}
		return true

	default:
		return false
	}
}

// validPhone accepts a number that, after stripping whitespace, hyphens and
// parentheses, is at least 10 characters and all digits.
func validPhone(phone string) bool {
	if phone == "" {
		return false
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '-', '(', ')':
			return -1
		}
		return r
	}, phone)

	if len(cleaned) < 10 {
		return false
	}
	for _, r := range cleaned {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func validEmail(email string) bool {
	return email != "" && emailPattern.MatchString(email)
}
