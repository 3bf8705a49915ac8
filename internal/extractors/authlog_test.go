package extractors

import (
	"strings"
	"testing"
	"time"

	"github.com/miradorstack/mirador-bfeval/internal/models"
)

const bruteForceLog = `Mar 10 13:45:01 web sshd[811]: Invalid user admin from 203.0.113.7 port 50011
Mar 10 13:45:01 web sshd[811]: Failed password for invalid user admin from 203.0.113.7 port 50011 ssh2
Mar 10 13:45:03 web sshd[812]: Failed password for root from 203.0.113.7 port 50013 ssh2
Mar 10 13:45:05 web sshd[813]: Failed password for root from 203.0.113.7 port 50015 ssh2
Mar 10 13:45:07 web sshd[814]: Failed password for root from 203.0.113.7 port 50017 ssh2
Mar 10 13:45:09 web sshd[815]: Failed password for root from 203.0.113.7 port 50019 ssh2
Mar 10 13:45:11 web sshd[816]: Accepted password for root from 203.0.113.7 port 50021 ssh2
Mar 10 13:45:11 web sshd[816]: pam_unix(sshd:session): session opened for user root(uid=0) by (uid=0)
Mar 10 13:45:19 web sshd[816]: pam_unix(sshd:session): session closed for user root`

func TestSummarizeBruteForce(t *testing.T) {
	s := Summarize(ParseAuthLog(bruteForceLog), time.Minute)

	if s.Service != models.ServiceSSH {
		t.Fatalf("expected SSH, got %s", s.Service)
	}
	if s.Failed != 5 || s.Succeeded != 1 {
		t.Fatalf("expected 5 failures and 1 success, got %d/%d", s.Failed, s.Succeeded)
	}
	if !s.SuccessAfterFailure {
		t.Fatalf("expected success after failures")
	}
	if s.Attacker != "203.0.113.7" {
		t.Fatalf("unexpected attacker %q", s.Attacker)
	}
	if s.MaxBurst != 5 {
		t.Fatalf("expected burst of 5, got %d", s.MaxBurst)
	}
	if s.CompletedSessions != 1 || s.ShortestSession != 8*time.Second {
		t.Fatalf("expected one 8s session, got %d %v", s.CompletedSessions, s.ShortestSession)
	}
	if got := s.GenericUsers([]string{"root", "admin"}); strings.Join(got, ",") != "admin,root" {
		t.Fatalf("unexpected generic users %v", got)
	}
	if got := FormatISODuration(s.SuspiciousDuration()); got != "PT18S" {
		t.Fatalf("expected PT18S, got %s", got)
	}
}

func TestSummarizeBenign(t *testing.T) {
	log := `2024-05-01T08:00:00 host sshd[10]: Accepted publickey for deploy from 192.0.2.10 port 40000 ssh2
2024-05-01T08:00:00 host sshd[10]: pam_unix(sshd:session): session opened for user deploy by (uid=0)
2024-05-01T09:30:00 host sshd[10]: pam_unix(sshd:session): session closed for user deploy`
	s := Summarize(ParseAuthLog(log), time.Minute)
	if s.Failed != 0 || s.SuccessAfterFailure || s.Attacker != "" {
		t.Fatalf("unexpected suspicious summary: %+v", s)
	}
	if s.ShortestSession != 90*time.Minute {
		t.Fatalf("expected 90m session, got %v", s.ShortestSession)
	}
}

func TestParseTelnetAndSMB(t *testing.T) {
	log := `Jan  5 10:00:00 box login[99]: FAILED LOGIN (1) on '/dev/pts/1' FROM '198.51.100.4' FOR 'admin', Authentication failure
Jan  5 10:00:30 box login[99]: LOGIN ON pts/1 BY admin FROM 198.51.100.4
Jan  5 10:01:00 box smbd[5]: Auth: [SMB2,(null)] user [WORKGROUP]\[guest] at [Fri, 05 Jan 2024 10:01:00] with [NTLMv2] status [NT_STATUS_WRONG_PASSWORD] workstation [X] remote host [ipv4:198.51.100.9:445]`
	events := ParseAuthLog(log)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}
	if events[0].Kind != EventFailure || events[0].User != "admin" || events[0].Source != "198.51.100.4" || events[0].Service != models.ServiceTelnet {
		t.Fatalf("unexpected telnet failure %+v", events[0])
	}
	if events[1].Kind != EventSuccess || events[1].Service != models.ServiceTelnet {
		t.Fatalf("unexpected telnet login %+v", events[1])
	}
	if events[2].Kind != EventFailure || events[2].User != "guest" || events[2].Source != "198.51.100.9" || events[2].Service != models.ServiceSMB {
		t.Fatalf("unexpected smb failure %+v", events[2])
	}
}

func TestFormatISODuration(t *testing.T) {
	cases := map[time.Duration]string{
		0:                               "PT0S",
		45 * time.Second:                "PT45S",
		15*time.Minute + 30*time.Second: "PT15M30S",
		2 * time.Hour:                   "PT2H",
	}
	for d, want := range cases {
		if got := FormatISODuration(d); got != want {
			t.Fatalf("FormatISODuration(%v) = %s, want %s", d, got, want)
		}
	}
}
