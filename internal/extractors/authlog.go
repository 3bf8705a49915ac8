// Package extractors derives brute-force indicators from raw authentication logs and
// serialized flow records.
package extractors

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

// EventKind classifies one authentication log line.
type EventKind int

const (
	EventOther EventKind = iota
	EventFailure
	EventSuccess
	EventSessionOpened
	EventSessionClosed
)

// AuthEvent is one parsed authentication log line.
type AuthEvent struct {
	Time    time.Time
	Kind    EventKind
	User    string
	Source  string
	Service models.Service
}

var (
	syslogStamp = regexp.MustCompile(`^([A-Z][a-z]{2}\s+\d{1,2}\s+\d{2}:\d{2}:\d{2})`)
	isoStamp    = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2})`)

	sshFailed   = regexp.MustCompile(`Failed (?:password|publickey|none|keyboard-interactive(?:/pam)?) for (?:invalid user )?(\S+) from (\S+)`)
	sshAccepted = regexp.MustCompile(`Accepted (?:password|publickey|keyboard-interactive(?:/pam)?) for (\S+) from (\S+)`)
	sshInvalid  = regexp.MustCompile(`Invalid user (\S*) from (\S+)`)

	telnetFailed   = regexp.MustCompile(`(?i)FAILED LOGIN(?: \(\d+\))?(?: on '?[^'\s]+'?)?(?: FROM '?([^'\s]+)'?)? FOR '?([^'\s,]+)'?`)
	telnetAccepted = regexp.MustCompile(`(?i)LOGIN ON '?[^'\s]+'? BY '?([^'\s]+)'?(?: FROM '?([^'\s]+)'?)?`)

	smbFailed   = regexp.MustCompile(`(?i)user \[(?:[^\]]*\]\\\[)?([^\]]+)\].*status \[NT_STATUS_(?:LOGON_FAILURE|WRONG_PASSWORD|NO_SUCH_USER)\].*remote host \[ipv4:([0-9.]+)`)
	smbAccepted = regexp.MustCompile(`(?i)user \[(?:[^\]]*\]\\\[)?([^\]]+)\].*status \[NT_STATUS_OK\].*remote host \[ipv4:([0-9.]+)`)

	sessionOpened = regexp.MustCompile(`session opened for user (\S+?)(?:\(uid=\d+\))?(?:\s|$)`)
	sessionClosed = regexp.MustCompile(`session closed for user (\S+)`)
)

// ParseAuthLog extracts events from syslog or ISO-timestamped authentication logs.
// Lines that match no known pattern are kept as EventOther for service detection.
func ParseAuthLog(text string) []AuthEvent {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	events := make([]AuthEvent, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev := AuthEvent{Time: parseStamp(line), Service: serviceOf(line)}
		switch {
		case match(sshFailed, line, &ev, 1, 2):
			ev.Kind = EventFailure
		case match(sshAccepted, line, &ev, 1, 2):
			ev.Kind = EventSuccess
		case match(telnetFailed, line, &ev, 2, 1):
			ev.Kind, ev.Service = EventFailure, models.ServiceTelnet
		case match(telnetAccepted, line, &ev, 1, 2):
			ev.Kind, ev.Service = EventSuccess, models.ServiceTelnet
		case match(smbFailed, line, &ev, 1, 2):
			ev.Kind, ev.Service = EventFailure, models.ServiceSMB
		case match(smbAccepted, line, &ev, 1, 2):
			ev.Kind, ev.Service = EventSuccess, models.ServiceSMB
		case match(sessionOpened, line, &ev, 1, 0):
			ev.Kind = EventSessionOpened
		case match(sessionClosed, line, &ev, 1, 0):
			ev.Kind = EventSessionClosed
		case match(sshInvalid, line, &ev, 1, 2):
			ev.Kind = EventOther
		}
		events = append(events, ev)
	}
	return events
}

func match(re *regexp.Regexp, line string, ev *AuthEvent, userGroup, sourceGroup int) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	if userGroup > 0 && userGroup < len(m) {
		ev.User = m[userGroup]
	}
	if sourceGroup > 0 && sourceGroup < len(m) {
		ev.Source = m[sourceGroup]
	}
	return true
}

func parseStamp(line string) time.Time {
	if m := isoStamp.FindString(line); m != "" {
		if t, err := time.Parse("2006-01-02T15:04:05", strings.Replace(m, " ", "T", 1)); err == nil {
			return t
		}
	}
	if m := syslogStamp.FindString(line); m != "" {
		if t, err := time.Parse("Jan _2 15:04:05", strings.Join(strings.Fields(m), " ")); err == nil {
			return t
		}
		if t, err := time.Parse("Jan 2 15:04:05", strings.Join(strings.Fields(m), " ")); err == nil {
			return t
		}
	}
	return time.Time{}
}

func serviceOf(line string) models.Service {
	lower := strings.ToLower(line)
	switch {
	case strings.Contains(lower, "sshd"):
		return models.ServiceSSH
	case strings.Contains(lower, "telnet"):
		return models.ServiceTelnet
	case strings.Contains(lower, "smbd"), strings.Contains(lower, "samba"), strings.Contains(lower, "nt_status"):
		return models.ServiceSMB
	default:
		return models.ServiceOther
	}
}

// AuthSummary aggregates the events of one log batch.
type AuthSummary struct {
	Service             models.Service
	Failed              int
	Succeeded           int
	Users               []string
	Attacker            string
	FirstFailure        time.Time
	LastFailure         time.Time
	LastActivity        time.Time
	SuccessAfterFailure bool
	MaxBurst            int
	ShortestSession     time.Duration
	CompletedSessions   int
}

// Summarize aggregates events. burstWindow bounds the sliding window used for MaxBurst.
func Summarize(events []AuthEvent, burstWindow time.Duration) AuthSummary {
	var s AuthSummary
	serviceVotes := make(map[models.Service]int)
	failuresBySource := make(map[string]int)
	users := make(map[string]struct{})
	openSessions := make(map[string]time.Time)
	var failureTimes []time.Time
	s.ShortestSession = -1

	for _, ev := range events {
		if ev.Service != models.ServiceOther {
			serviceVotes[ev.Service]++
		}
		if !ev.Time.IsZero() && ev.Time.After(s.LastActivity) {
			s.LastActivity = ev.Time
		}
		if ev.User != "" {
			users[ev.User] = struct{}{}
		}

		switch ev.Kind {
		case EventFailure:
			s.Failed++
			if ev.Source != "" {
				failuresBySource[ev.Source]++
			}
			if !ev.Time.IsZero() {
				failureTimes = append(failureTimes, ev.Time)
				if s.FirstFailure.IsZero() || ev.Time.Before(s.FirstFailure) {
					s.FirstFailure = ev.Time
				}
				if ev.Time.After(s.LastFailure) {
					s.LastFailure = ev.Time
				}
			}
		case EventSuccess:
			s.Succeeded++
			if s.Failed > 0 && (ev.Source == "" || failuresBySource[ev.Source] > 0 || len(failuresBySource) == 0) {
				s.SuccessAfterFailure = true
			}
		case EventSessionOpened:
			if !ev.Time.IsZero() {
				openSessions[ev.User] = ev.Time
			}
		case EventSessionClosed:
			if opened, ok := openSessions[ev.User]; ok && !ev.Time.IsZero() {
				d := ev.Time.Sub(opened)
				if d >= 0 {
					s.CompletedSessions++
					if s.ShortestSession < 0 || d < s.ShortestSession {
						s.ShortestSession = d
					}
				}
				delete(openSessions, ev.User)
			}
		}
	}
	if s.ShortestSession < 0 {
		s.ShortestSession = 0
	}

	s.Service = models.ServiceOther
	best := 0
	for _, svc := range models.Services {
		if serviceVotes[svc] > best {
			best = serviceVotes[svc]
			s.Service = svc
		}
	}

	s.Attacker = topSource(failuresBySource)
	s.Users = sortedKeys(users)
	s.MaxBurst = maxInWindow(failureTimes, burstWindow)
	return s
}

// SuspiciousDuration spans the first failure to the last activity after it.
func (s AuthSummary) SuspiciousDuration() time.Duration {
	if s.FirstFailure.IsZero() {
		return 0
	}
	end := s.LastFailure
	if s.LastActivity.After(end) {
		end = s.LastActivity
	}
	return end.Sub(s.FirstFailure)
}

// GenericUsers returns the subset of Users found in generic.
func (s AuthSummary) GenericUsers(generic []string) []string {
	var out []string
	for _, u := range s.Users {
		for _, g := range generic {
			if strings.EqualFold(u, g) {
				out = append(out, u)
				break
			}
		}
	}
	return out
}

func topSource(counts map[string]int) string {
	best, top := 0, ""
	for src, n := range counts {
		if n > best || (n == best && src < top) {
			best, top = n, src
		}
	}
	return top
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func maxInWindow(times []time.Time, window time.Duration) int {
	if len(times) == 0 || window <= 0 {
		return 0
	}
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	best, lo := 0, 0
	for hi := range sorted {
		for sorted[hi].Sub(sorted[lo]) > window {
			lo++
		}
		if n := hi - lo + 1; n > best {
			best = n
		}
	}
	return best
}

// FormatISODuration renders d as an ISO 8601 duration such as PT15M30S.
func FormatISODuration(d time.Duration) string {
	if d <= 0 {
		return "PT0S"
	}
	d = d.Round(time.Second)
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	sec := int(d % time.Minute / time.Second)

	var b strings.Builder
	b.WriteString("PT")
	if h > 0 {
		fmt.Fprintf(&b, "%dH", h)
	}
	if m > 0 {
		fmt.Fprintf(&b, "%dM", m)
	}
	if sec > 0 || (h == 0 && m == 0) {
		fmt.Fprintf(&b, "%dS", sec)
	}
	return b.String()
}
