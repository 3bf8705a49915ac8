package models

import (
	"encoding/json"
	"strings"
)

// Service names the network service a batch of authentication logs belongs to.
type Service string

const (
	ServiceSSH    Service = "SSH"
	ServiceTelnet Service = "Telnet"
	ServiceSMB    Service = "SMB"
	ServiceOther  Service = "Other"
)

// Services lists the accepted service labels in schema order.
var Services = []Service{ServiceSSH, ServiceTelnet, ServiceSMB, ServiceOther}

// ParseService matches value case-insensitively; unknown values map to ServiceOther.
func ParseService(value string) Service {
	value = strings.TrimSpace(value)
	for _, s := range Services {
		if strings.EqualFold(value, string(s)) {
			return s
		}
	}
	return ServiceOther
}

// UnmarshalJSON accepts any casing of a known label.
func (s *Service) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseService(raw)
	return nil
}

// LogsMetadata is the output of the metadata stage of the log pipeline.
type LogsMetadata struct {
	Duration string  `json:"duration"`
	Attacker string  `json:"attacker"`
	Service  Service `json:"service"`
}

// LogsDescription is the narrative produced by the description stage.
type LogsDescription struct {
	Activity string `json:"activity"`
}

// Verdict is a final classification that can be scored against ground truth.
type Verdict interface {
	// Positive reports the predicted class used for scoring.
	Positive() bool
	// Explanation returns the back-end's reasoning, possibly empty.
	Explanation() string
}

// LogsVerdict is the final verdict of the log pipeline.
type LogsVerdict struct {
	Bruteforce        bool   `json:"bruteforce"`
	SystemCompromised bool   `json:"system_compromised"`
	Reason            string `json:"reason,omitempty"`
}

// Positive scores a log batch as detected only when the system was compromised.
func (v LogsVerdict) Positive() bool { return v.SystemCompromised }

// Explanation implements Verdict.
func (v LogsVerdict) Explanation() string { return v.Reason }

// FlowVerdict is the verdict of the flow pipeline.
type FlowVerdict struct {
	Bruteforce bool   `json:"bruteforce"`
	Reason     string `json:"reason"`
}

// Positive implements Verdict.
func (v FlowVerdict) Positive() bool { return v.Bruteforce }

// Explanation implements Verdict.
func (v FlowVerdict) Explanation() string { return v.Reason }
