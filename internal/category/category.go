// Package category defines the closed classification set for job-hunt mail
// and its exhaustive mapping to Gmail label names.
package category

// Category is one classification outcome. The set is closed: Parse only
// produces members, and Label covers every member.
type Category string

const (
	ApplicationConfirmed Category = "application_confirmed"
	InterviewRequest     Category = "interview_request"
	InterviewReminder    Category = "interview_reminder"
	Offer                Category = "offer"
	Rejected             Category = "rejected"
	Assessment           Category = "assessment"
	FollowUp             Category = "follow_up"
	JobAlert             Category = "job_alert"
	Newsletter           Category = "newsletter"
	Spam                 Category = "spam"
	Uncategorized        Category = "uncategorized"
)

// All returns every category in classification priority order.
func All() []Category {
	return []Category{
		InterviewRequest,
		InterviewReminder,
		Offer,
		Rejected,
		Assessment,
		FollowUp,
		ApplicationConfirmed,
		JobAlert,
		Newsletter,
		Spam,
		Uncategorized,
	}
}

// Parse maps a classifier response onto the closed set. Unknown strings
// report ok=false; callers fall back to Uncategorized.
func Parse(s string) (Category, bool) {
	switch Category(s) {
	case ApplicationConfirmed, InterviewRequest, InterviewReminder, Offer,
		Rejected, Assessment, FollowUp, JobAlert, Newsletter, Spam,
		Uncategorized:
		return Category(s), true
	}
	return Uncategorized, false
}

// Label returns the Gmail label name for a category. The switch is
// exhaustive over All; an unmapped category is a programming error.
func Label(c Category) string {
	switch c {
	case ApplicationConfirmed:
		return "Applied ✓"
	case InterviewRequest:
		return "Interview 📅"
	case InterviewReminder:
		return "Interview Reminder ⏰"
	case Offer:
		return "Job Offer 🎉"
	case Rejected:
		return "Rejected ❌"
	case Assessment:
		return "Assessment 📝"
	case FollowUp:
		return "Follow-up 💬"
	case JobAlert:
		return "Job Alert 🔔"
	case Newsletter:
		return "Newsletter 📰"
	case Spam:
		return "Spam 🗑️"
	case Uncategorized:
		return "Other 📧"
	}
	return "Other 📧"
}

// NotifySet is the set of categories that trigger an immediate notification.
type NotifySet map[Category]struct{}

// DefaultNotifySet covers the time-sensitive interview pipeline.
func DefaultNotifySet() NotifySet {
	return NewNotifySet(InterviewRequest, InterviewReminder, FollowUp)
}

func NewNotifySet(cats ...Category) NotifySet {
	set := make(NotifySet, len(cats))
	for _, c := range cats {
		set[c] = struct{}{}
	}
	return set
}

func (s NotifySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}
